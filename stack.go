package cyaml

import "unsafe"

// frameState is one of the six states of the traversal state machine
// (spec §3.3). Bitfield and Flags nodes are deliberately not given their
// own state: both are flat, non-recursive collections of scalar tokens (a
// bitfield's members and a flags set's names can never themselves contain a
// nested schema), so reading or writing one is a bounded loop driven
// directly out of readValue/writeValue rather than a new stack frame. The
// stack exists to bound recursion depth by heap size instead of call depth
// for schemas that really can recurse (Mapping and Sequence); Bitfield and
// Flags can't, so they don't need it.
type frameState uint8

const (
	stateStart frameState = iota
	stateInStream
	stateInDoc
	stateInMappingKey
	stateInMappingValue
	stateInSequence
)

// frame is one stack entry (spec §3.3). dataIn is the source address used
// by save/copy/free-adjacent code; dataOut is the destination address used
// by load/copy. Exactly one is meaningful for a pure load or pure save;
// copy uses both at once, which is why spec.md gives every frame both
// bases instead of one.
type frame struct {
	state         frameState
	schema        *Schema
	dataIn        unsafe.Pointer
	dataOut       unsafe.Pointer
	line, column  int

	// Stream
	docsSeen int

	// Mapping / Union (InMappingKey, InMappingValue)
	fields     []Field
	fieldsSeen []bool
	fieldIndex int

	// activeField is set by the driver immediately before it recurses into
	// the value of one of its fields, so a freshly pushed child sequence
	// frame can find its owning field's CountOffset. It can't be derived
	// from fieldIndex/state alone: by the time a driver actually calls into
	// the field's value, it has already advanced fieldIndex past the
	// current field and reverted state to stateInMappingKey (each driver
	// does its own bookkeeping before recursing, not after).
	activeField *Field

	// Sequence (InSequence)
	index           int
	count           int
	countInPtr      unsafe.Pointer // struct-field count target, source side
	countOutPtr     unsafe.Pointer // struct-field count target, destination side
	countSize       uint8
	topCountIn      *int // top-level count target, source side
	topCountOut     *int // top-level count target, destination side
	entriesOut      unsafe.Pointer // base of the (possibly reallocated) destination entries buffer
	entriesOutOwner unsafe.Pointer // address of the parent slot holding the pointer to entriesOut, so growth can rewrite it
	entrySize       uintptr
}

// readCount reads this sequence frame's element count from whichever count
// target it was resolved to at push time (spec §4.2's three cases: a
// parent mapping field's count_offset, the caller-supplied top-level count,
// or none at all for a SequenceFixed nested in a Sequence).
func (f *frame) readCount() (int, error) {
	switch {
	case f.topCountIn != nil:
		return *f.topCountIn, nil
	case f.countInPtr != nil:
		v, err := readInt(f.countSize, f.countInPtr)
		return int(v), err
	default:
		return f.count, nil
	}
}

// writeCount is readCount's inverse, used by load and copy.
func (f *frame) writeCount(n int) error {
	switch {
	case f.topCountOut != nil:
		*f.topCountOut = n
		return nil
	case f.countOutPtr != nil:
		return writeInt(uint64(n), f.countSize, f.countOutPtr)
	default:
		return nil
	}
}

// stack is the explicit, growable stack shared by load, save and copy
// (spec §2 component 3, §4.2). free does not use it; see free.go.
type stack struct {
	frames []*frame

	// topCountIn/topCountOut back the top-level sequence count when the
	// schema's top-level value is itself a Sequence/SequenceFixed (spec
	// §6.2's "top_sequence_count" parameter, resolved here instead of from
	// a parent mapping field or parent sequence frame).
	topCountIn  *int
	topCountOut *int
}

func (s *stack) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *stack) depth() int { return len(s.frames) }

// push installs a new frame for state/schema and does the kind-specific
// setup spec §4.2 assigns to push: snapshotting a mapping's field list and
// allocating its seen-bitset, or resolving a sequence's count target and
// rejecting the schema violations push is specified to catch.
func (s *stack) push(state frameState, schema *Schema, dataIn, dataOut unsafe.Pointer, entrySize uintptr) (*frame, error) {
	f := &frame{state: state, schema: schema, dataIn: dataIn, dataOut: dataOut, entrySize: entrySize}

	switch state {
	case stateInMappingKey:
		f.fields = fieldsOf(schema)
		f.fieldsSeen = make([]bool, len(f.fields))

	case stateInSequence:
		parent := s.top()
		if schema.Kind == KindSequence {
			if parent != nil && parent.state == stateInSequence {
				return nil, newErr(SequenceInSequence, "a non-fixed sequence cannot nest directly in a sequence")
			}
		}
		if schema.Kind == KindSequenceFixed && schema.Sequence.Min != schema.Sequence.Max {
			return nil, newErr(SequenceFixedCount, "sequence_fixed schema has min %d != max %d", schema.Sequence.Min, schema.Sequence.Max)
		}

		switch {
		case parent == nil || parent.state == stateInDoc:
			f.topCountIn = s.topCountIn
			f.topCountOut = s.topCountOut
		case parent.activeField != nil:
			field := parent.activeField
			// A field with CountSize == 0 (a SequenceFixed field with no
			// separate counter, since its length is schema.Sequence.Max) has
			// no real count slot to read from; leave count{In,Out}Ptr nil so
			// readCount falls back to f.count below.
			if field.CountSize > 0 {
				f.countSize = field.CountSize
				if parent.dataIn != nil {
					f.countInPtr = unsafe.Add(parent.dataIn, field.CountOffset)
				}
				if parent.dataOut != nil {
					f.countOutPtr = unsafe.Add(parent.dataOut, field.CountOffset)
				}
			}
		case parent.state == stateInSequence:
			// A SequenceFixed nested in a Sequence has no independent count
			// slot of its own: its length is schema.Sequence.Max, full stop.
		}

		if schema.Kind == KindSequenceFixed {
			f.count = schema.Sequence.Max
		}
	}

	s.frames = append(s.frames, f)
	return f, nil
}

// pop discards the top frame. It never fails: callers must already have
// processed whatever end-of-region event triggered the pop (spec §4.2).
func (s *stack) pop() {
	s.frames = s.frames[:len(s.frames)-1]
}
