package cyaml

import "github.com/tlsa/go-cyaml/internal/yamlh"

// anchorRange is the recorded [start, end) span, in anchorRecorder.data
// index space, of the events that make up one anchored node.
type anchorRange struct {
	start, end int
}

// anchorRecorder mediates between the live parser and the loader so that
// anchors and aliases look like transparent substitution (spec §4.3).
//
// spec.md's own design keeps a compacted data buffer plus a separately
// growing "events" index array, because the C implementation wants to avoid
// storing an anchor's events twice when two aliases replay it. In Go, data
// is just an append-only []yamlh.Event slice; two aliases referencing the
// same anchor both slice the same backing array, so the secondary index
// layer buys nothing here and is dropped — see DESIGN.md.
type anchorRecorder struct {
	data      []yamlh.Event
	complete  map[string]anchorRange
	openStack []int // data-buffer positions of currently-open Mapping/Sequence starts
	openNames map[int]string

	active  bool
	playPos int
	playEnd int

	noAlias bool
}

func newAnchorRecorder(noAlias bool) *anchorRecorder {
	return &anchorRecorder{
		complete:  make(map[string]anchorRange),
		openNames: make(map[int]string),
		noAlias:   noAlias,
	}
}

// observe records ev (every live event, unconditionally — see the type
// doc) and updates anchor bookkeeping. It must be called for every event
// pulled from the live parser, whether or not a replay is in progress.
func (r *anchorRecorder) observe(ev yamlh.Event) {
	r.data = append(r.data, ev)
	pos := len(r.data) - 1

	switch ev.Type {
	case yamlh.SCALAR_EVENT:
		if len(ev.Anchor) > 0 {
			r.complete[string(ev.Anchor)] = anchorRange{start: pos, end: pos + 1}
		}
	case yamlh.MAPPING_START_EVENT, yamlh.SEQUENCE_START_EVENT:
		r.openStack = append(r.openStack, pos)
		if len(ev.Anchor) > 0 {
			r.openNames[pos] = string(ev.Anchor)
		}
	case yamlh.MAPPING_END_EVENT, yamlh.SEQUENCE_END_EVENT:
		if n := len(r.openStack); n > 0 {
			start := r.openStack[n-1]
			r.openStack = r.openStack[:n-1]
			if name, ok := r.openNames[start]; ok {
				r.complete[name] = anchorRange{start: start, end: pos + 1}
				delete(r.openNames, start)
			}
		}
	}
}

// beginAlias looks up name (the most recently completed definition wins,
// since a later assignment overwrites the map entry) and arms replay.
func (r *anchorRecorder) beginAlias(name string) error {
	if r.noAlias {
		return newErr(ErrAlias, "alias %q encountered with NoAlias set", name)
	}
	rng, ok := r.complete[name]
	if !ok {
		return newErr(InvalidAlias, "alias refers to unknown anchor %q", name)
	}
	r.active = true
	r.playPos = rng.start
	r.playEnd = rng.end
	return nil
}

// next returns the next replayed event, advancing playback and
// deactivating once the anchor's range is exhausted.
func (r *anchorRecorder) next() yamlh.Event {
	ev := r.data[r.playPos]
	r.playPos++
	if r.playPos >= r.playEnd {
		r.active = false
	}
	return ev
}
