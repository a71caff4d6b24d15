package cyaml

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/tlsa/go-cyaml/internal/parserc"
	"github.com/tlsa/go-cyaml/internal/yamlh"
)

// eventSource is the loader's only window onto the YAML stream: every event
// the state machine sees has already passed through the anchor recorder, so
// an alias is indistinguishable from the nodes it stands for (spec §4.3).
type eventSource struct {
	parser   *parserc.YamlParser
	recorder *anchorRecorder
}

func (es *eventSource) next() (yamlh.Event, error) {
	if es.recorder.active {
		return es.recorder.next(), nil
	}
	for {
		ev, err := parserc.Parse(es.parser)
		if err != nil {
			return yamlh.Event{}, wrapErr(ParserError, err, "yaml parse error")
		}
		es.recorder.observe(*ev)
		if ev.Type == yamlh.ALIAS_EVENT {
			if err := es.recorder.beginAlias(string(ev.Anchor)); err != nil {
				return yamlh.Event{}, err
			}
			return es.recorder.next(), nil
		}
		return *ev, nil
	}
}

// loader holds the state of one Load call: the event source, the schema
// being loaded against, and the explicit stack that stands in for call-stack
// recursion (spec §2 component 3, §4.4).
type loader struct {
	cfg    *Config
	schema *Schema
	src    *eventSource
	stack  *stack
}

// Load parses data against schema and populates the value addressed by out
// (spec §4.4, §6.2).
//
// If schema is Pointer-flagged, out is the address of a pointer variable:
// Load allocates a fresh value and stores its address there. Otherwise out
// is the address of the destination's own storage.
//
// topSeqCount is required, and used, exactly when schema.Kind is Sequence
// or SequenceFixed at the top level: it receives the number of entries
// loaded.
func Load(cfg *Config, schema *Schema, data []byte, out unsafe.Pointer, topSeqCount *int) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	if schema == nil {
		return newErr(BadParamNullSchema, "schema is nil")
	}
	if out == nil {
		return newErr(BadParamNullData, "out is nil")
	}
	if err := schema.Validate(); err != nil {
		return err
	}
	if schema.Kind.isSequenceLike() && schema.Kind != KindFlags && topSeqCount == nil {
		return newErr(BadParamSeqCount, "a top level sequence schema requires topSeqCount")
	}

	p := parserc.New(bytes.NewReader(data))
	l := &loader{
		cfg:    cfg,
		schema: schema,
		src:    &eventSource{parser: p, recorder: newAnchorRecorder(cfg.Flags.has(NoAlias))},
		stack:  &stack{topCountOut: topSeqCount},
	}

	if err := l.run(out); err != nil {
		if ce, ok := err.(*Error); ok {
			cfg.logBacktrace(LevelError, ce.Backtrace)
		}
		return err
	}
	return nil
}

// LoadFile is Load reading from a path instead of an in-memory buffer.
func LoadFile(cfg *Config, schema *Schema, path string, out unsafe.Pointer, topSeqCount *int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wrapErr(FileOpen, err, "could not read %q", path)
	}
	return Load(cfg, schema, data, out, topSeqCount)
}

// LoadReader is Load reading from an io.Reader instead of an in-memory
// buffer.
func LoadReader(cfg *Config, schema *Schema, r io.Reader, out unsafe.Pointer, topSeqCount *int) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return wrapErr(FileOpen, err, "could not read from reader")
	}
	return Load(cfg, schema, data, out, topSeqCount)
}

// run drives the state machine until the stream frame pops itself, which
// happens exactly once, after STREAM_END_EVENT (spec §4.2, §4.4).
func (l *loader) run(out unsafe.Pointer) error {
	if _, err := l.stack.push(stateInStream, nil, nil, nil, 0); err != nil {
		return l.annotate(err)
	}

	for {
		top := l.stack.top()
		if top == nil {
			return nil
		}

		var err error
		switch top.state {
		case stateInStream:
			err = l.stepStream(top, out)
		case stateInDoc:
			err = l.stepDoc(top)
		case stateInMappingKey:
			err = l.stepMappingKey(top)
		case stateInMappingValue:
			err = l.stepMappingValue(top)
		case stateInSequence:
			err = l.stepSequence(top)
		}
		if err != nil {
			return l.annotate(err)
		}
	}
}

// annotate attaches the current stack as a backtrace the first time an
// error crosses a frame boundary (spec §4.4.4, §7).
func (l *loader) annotate(err error) error {
	ce, ok := err.(*Error)
	if !ok || ce.Backtrace != nil {
		return err
	}
	for _, f := range l.stack.frames {
		if f.schema == nil {
			continue // the outermost stream frame carries no schema node
		}
		bf := Frame{Kind: f.schema.Kind, Line: f.line, Column: f.column}
		if f.state == stateInMappingValue && f.fieldIndex < len(f.fields) {
			bf.Field = f.fields[f.fieldIndex].Key
		}
		if f.state == stateInSequence {
			bf.Index = f.index
		}
		ce.Backtrace = append(ce.Backtrace, bf)
	}
	return ce
}

func (l *loader) stepStream(top *frame, out unsafe.Pointer) error {
	ev, err := l.src.next()
	if err != nil {
		return err
	}
	switch ev.Type {
	case yamlh.STREAM_START_EVENT:
		return nil
	case yamlh.DOCUMENT_START_EVENT:
		if top.docsSeen > 0 {
			l.cfg.log(LevelWarning, "ignoring extra document in yaml stream")
			return l.skipDocument()
		}
		top.docsSeen = 1
		_, err := l.stack.push(stateInDoc, l.schema, nil, out, 0)
		return err
	case yamlh.STREAM_END_EVENT:
		l.stack.pop()
		return nil
	default:
		return newErr(UnexpectedEvent, "unexpected %s while expecting stream content", ev.Type)
	}
}

// skipDocument discards one entire DOCUMENT_START..DOCUMENT_END span,
// already past its start event.
func (l *loader) skipDocument() error {
	depth := 0
	for {
		ev, err := l.src.next()
		if err != nil {
			return err
		}
		switch ev.Type {
		case yamlh.MAPPING_START_EVENT, yamlh.SEQUENCE_START_EVENT:
			depth++
		case yamlh.MAPPING_END_EVENT, yamlh.SEQUENCE_END_EVENT:
			depth--
		case yamlh.DOCUMENT_END_EVENT:
			if depth == 0 {
				return nil
			}
		}
	}
}

// stepDoc's frame reuses docsSeen (0/1) as a sub-state: 0 means the root
// value hasn't been read yet, 1 means it has and only DOCUMENT_END remains.
func (l *loader) stepDoc(top *frame) error {
	if top.docsSeen == 0 {
		ev, err := l.src.next()
		if err != nil {
			return err
		}
		top.line, top.column = ev.Start_mark.Line, ev.Start_mark.Column
		top.docsSeen = 1
		return l.readValue(top.schema, top.dataOut, ev)
	}
	ev, err := l.src.next()
	if err != nil {
		return err
	}
	if ev.Type != yamlh.DOCUMENT_END_EVENT {
		return newErr(UnexpectedEvent, "unexpected %s while expecting document end", ev.Type)
	}
	l.stack.pop()
	return nil
}

func (l *loader) stepMappingKey(top *frame) error {
	ev, err := l.src.next()
	if err != nil {
		return err
	}
	switch ev.Type {
	case yamlh.MAPPING_END_EVENT:
		return l.finishMapping(top)
	case yamlh.SCALAR_EVENT:
		key := string(ev.Value)
		idx := l.findField(top.fields, top.schema, key)
		if idx < 0 {
			if l.cfg.Flags.has(IgnoreUnknownKeys) {
				if l.cfg.Flags.has(IgnoredKeyWarning) {
					l.cfg.log(LevelWarning, "ignoring unknown mapping key", "key", key)
				}
				valEv, err := l.src.next()
				if err != nil {
					return err
				}
				return l.consumeIgnored(valEv)
			}
			return newErr(InvalidKey, "unexpected mapping key %q", key)
		}
		if top.fieldsSeen[idx] {
			return newErr(InvalidKey, "duplicate mapping key %q", key)
		}
		top.fieldsSeen[idx] = true
		top.fieldIndex = idx
		top.state = stateInMappingValue
		return nil
	default:
		return newErr(UnexpectedEvent, "unexpected %s while expecting a mapping key", ev.Type)
	}
}

func (l *loader) stepMappingValue(top *frame) error {
	ev, err := l.src.next()
	if err != nil {
		return err
	}
	field := &top.fields[top.fieldIndex]
	top.state = stateInMappingKey
	top.activeField = field
	dst := unsafe.Add(top.dataOut, field.DataOffset)
	err = l.readValue(field.Value, dst, ev)
	top.activeField = nil
	return err
}

// finishMapping checks that every required (non-Optional) field was seen,
// applying schema-supplied defaults and validators where one was missing
// but Optional, then pops the frame.
func (l *loader) finishMapping(top *frame) error {
	for i := range top.fields {
		if top.fieldsSeen[i] {
			continue
		}
		field := &top.fields[i]
		if !field.Value.Flags.has(FlagOptional) {
			return newErr(MappingFieldMissing, "mapping field %q is required", field.Key)
		}
		if err := applyFieldDefault(field, unsafe.Add(top.dataOut, field.DataOffset)); err != nil {
			return err
		}
	}
	if top.schema.Kind == KindMapping && top.schema.Mapping.Validator != nil {
		if err := top.schema.Mapping.Validator(l.cfg.ValidationCtx, top.schema, top.dataOut); err != nil {
			return wrapErr(InvalidValue, err, "mapping validator rejected value")
		}
	}
	l.stack.pop()
	return nil
}

func (l *loader) stepSequence(top *frame) error {
	ev, err := l.src.next()
	if err != nil {
		return err
	}
	if ev.Type == yamlh.SEQUENCE_END_EVENT {
		return l.finishSequence(top)
	}

	if top.schema.Sequence.Max != 0 && top.index >= top.schema.Sequence.Max {
		return newErr(SequenceEntriesMax, "sequence has more than %d entries", top.schema.Sequence.Max)
	}

	entry := top.schema.Sequence.Entry
	if top.index >= top.count {
		grown := top.count*2 + 1
		top.entriesOut = growEntries(top.schema.Sequence.EntryGoType, top.entriesOut, top.count, grown, top.entrySize)
		top.count = grown
	}
	dst := unsafe.Add(top.entriesOut, uintptr(top.index)*top.entrySize)
	if err := l.readValue(entry, dst, ev); err != nil {
		return err
	}
	top.index++
	return nil
}

func (l *loader) finishSequence(top *frame) error {
	n := top.index
	if n < top.schema.Sequence.Min {
		return newErr(SequenceEntriesMin, "sequence has %d entries, want at least %d", n, top.schema.Sequence.Min)
	}
	if top.schema.Kind == KindSequenceFixed && n != top.schema.Sequence.Max {
		return newErr(SequenceFixedCount, "fixed sequence has %d entries, want exactly %d", n, top.schema.Sequence.Max)
	}

	if top.entriesOutOwner != nil {
		// Growable Sequence: publish the (possibly over-allocated, from
		// doubling growth) buffer's true address only now that its final
		// length is known. A SequenceFixed's storage, pointer-flagged or
		// embedded, was already wired up in pushSequence.
		*(*unsafe.Pointer)(top.entriesOutOwner) = top.entriesOut
	}
	if err := top.writeCount(n); err != nil {
		return err
	}
	if top.schema.Sequence.Validator != nil {
		if err := top.schema.Sequence.Validator(l.cfg.ValidationCtx, top.schema, top.entriesOut); err != nil {
			return wrapErr(InvalidValue, err, "sequence validator rejected value")
		}
	}
	l.stack.pop()
	return nil
}

// readValue is the shared single-event dispatcher used for a document's
// root, a mapping field's value, and a sequence entry (spec §4.4.1). It
// either finishes a scalar in place or pushes the frame that will consume
// the composite value's own events on subsequent loop iterations.
func (l *loader) readValue(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if schema.Kind == KindIgnore {
		return l.consumeIgnored(ev)
	}
	if schema.Flags.has(FlagPointer) {
		return l.readPointerValue(schema, dst, ev)
	}
	return l.readInlineValue(schema, dst, ev)
}

func (l *loader) consumeIgnored(ev yamlh.Event) error {
	switch ev.Type {
	case yamlh.MAPPING_START_EVENT, yamlh.SEQUENCE_START_EVENT:
		depth := 1
		for depth > 0 {
			next, err := l.src.next()
			if err != nil {
				return err
			}
			switch next.Type {
			case yamlh.MAPPING_START_EVENT, yamlh.SEQUENCE_START_EVENT:
				depth++
			case yamlh.MAPPING_END_EVENT, yamlh.SEQUENCE_END_EVENT:
				depth--
			}
		}
	}
	return nil
}

// readPointerValue handles the three null-producing cases (§3.1's
// PointerNullOnEmpty/PointerNullOnNullString flags) before falling through
// to allocating real storage and delegating to readInlineValue.
func (l *loader) readPointerValue(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type == yamlh.SCALAR_EVENT {
		val := string(ev.Value)
		if schema.Flags.has(FlagPointerNullOnNullString) && isNullScalar(val) {
			*(*unsafe.Pointer)(dst) = nil
			return nil
		}
		if schema.Flags.has(FlagPointerNullOnEmpty) && val == "" {
			*(*unsafe.Pointer)(dst) = nil
			return nil
		}
	}

	switch schema.Kind {
	case KindString:
		return l.readStringPointer(schema, dst, ev)
	case KindBinary:
		return l.readBinaryPointer(schema, dst, ev)
	case KindSequence, KindSequenceFixed, KindFlags:
		// A pointer-flagged sequence-like node's storage slot is itself the
		// pointer that will end up holding the entries array; that pointer
		// is populated incrementally as entries arrive, so it is threaded
		// straight through to the pushed frame instead of pre-allocated.
		return l.readInlineValue(schema, dst, ev)
	case KindMapping, KindUnion:
		ptr := allocTyped(schema.GoType)
		*(*unsafe.Pointer)(dst) = ptr
		return l.readInlineValue(schema, ptr, ev)
	default:
		ptr := alloc(schema.DataSize)
		*(*unsafe.Pointer)(dst) = ptr
		return l.readInlineValue(schema, ptr, ev)
	}
}

func isNullScalar(val string) bool {
	switch val {
	case "", "~", "null", "Null", "NULL":
		return true
	default:
		return false
	}
}

// readInlineValue writes schema's value directly at dst: dst is either the
// embedded storage itself, or the freshly allocated block readPointerValue
// just created.
func (l *loader) readInlineValue(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	switch schema.Kind {
	case KindInt:
		return l.readIntScalar(schema, dst, ev)
	case KindUint:
		return l.readUintScalar(schema, dst, ev)
	case KindBool:
		return l.readBoolScalar(schema, dst, ev)
	case KindEnum:
		return l.readEnumScalar(schema, dst, ev)
	case KindFloat:
		return l.readFloatScalar(schema, dst, ev)
	case KindString:
		return l.readStringScalar(schema, dst, ev)
	case KindBinary:
		return l.readBinaryScalar(schema, dst, ev)
	case KindBitfield:
		return l.readBitfield(schema, dst, ev)
	case KindFlags:
		return l.readFlags(schema, dst, ev)
	case KindMapping:
		if ev.Type != yamlh.MAPPING_START_EVENT {
			return newErr(UnexpectedEvent, "unexpected %s while expecting a mapping", ev.Type)
		}
		_, err := l.stack.push(stateInMappingKey, schema, nil, dst, 0)
		return err
	case KindUnion:
		variant, err := l.resolveUnionVariant(schema)
		if err != nil {
			return err
		}
		return l.readValue(variant.Value, dst, ev)
	case KindSequence, KindSequenceFixed:
		if ev.Type != yamlh.SEQUENCE_START_EVENT {
			return newErr(UnexpectedEvent, "unexpected %s while expecting a sequence", ev.Type)
		}
		return l.pushSequence(schema, dst)
	default:
		return newErr(InternalError, "unhandled kind %s in readInlineValue", schema.Kind)
	}
}

// pushSequence resolves the entries' storage base before handing control to
// stepSequence: a SequenceFixed's storage is the caller's own inline array
// (dst, sized schema.Sequence.Max entries already); a growable Sequence's
// storage grows from nothing and is published into *dst only once the
// SEQUENCE_END_EVENT arrives (finishSequence), so readers never observe a
// half-grown buffer.
func (l *loader) pushSequence(schema *Schema, dst unsafe.Pointer) error {
	entrySize := entryStorageSize(schema.Sequence.Entry)
	f, err := l.stack.push(stateInSequence, schema, nil, dst, entrySize)
	if err != nil {
		return err
	}
	switch {
	case schema.Kind == KindSequenceFixed && schema.Flags.has(FlagPointer):
		// dst is the parent's pointer slot; the fixed-size array itself
		// still needs allocating before entries can land in it.
		arr := allocEntries(schema.Sequence.EntryGoType, schema.Sequence.Max, entrySize)
		*(*unsafe.Pointer)(dst) = arr
		f.entriesOut = arr
		f.count = schema.Sequence.Max
	case schema.Kind == KindSequenceFixed:
		// dst is the caller's own embedded [Max]Entry array.
		f.entriesOut = dst
		f.count = schema.Sequence.Max
	default:
		// Growable Sequence: dst is the parent's pointer slot, published
		// only once SEQUENCE_END_EVENT arrives (finishSequence).
		f.entriesOutOwner = dst
	}
	return nil
}

// resolveUnionVariant finds the sibling discriminant field in the mapping
// frame that is loading this union's enclosing value, reads its already-set
// Enum value, and matches it to the union variant field of the same name
// (spec §4.7's ancestor-walk, specialised to load's case: the discriminant
// must precede the union field in YAML key order, since it has to already
// be written into dataOut by the time the union field is reached).
func (l *loader) resolveUnionVariant(schema *Schema) (*Field, error) {
	top := l.stack.top()
	if top == nil || (top.schema == nil || (top.schema.Kind != KindMapping && top.schema.Kind != KindUnion)) {
		return nil, newErr(UnionDiscNotFound, "union discriminant %q has no enclosing mapping", schema.Union.Discriminant)
	}
	for i := range top.fields {
		if top.fields[i].Key != schema.Union.Discriminant {
			continue
		}
		discField := &top.fields[i]
		if discField.Value.Kind != KindEnum {
			return nil, newErr(UnionDiscNotFound, "discriminant field %q is not an Enum", schema.Union.Discriminant)
		}
		raw, err := readInt(uint8(discField.Value.DataSize), unsafe.Add(top.dataOut, discField.DataOffset))
		if err != nil {
			return nil, err
		}
		disc := signPad(raw, uint8(discField.Value.DataSize))
		for _, ev := range discField.Value.Enum.Values {
			if ev.Value != disc {
				continue
			}
			for j := range schema.Union.Fields {
				if schema.Union.Fields[j].Key == ev.Name {
					return &schema.Union.Fields[j], nil
				}
			}
		}
		return nil, newErr(UnionDiscNotFound, "no union variant matches discriminant value %d", disc)
	}
	return nil, newErr(UnionDiscNotFound, "discriminant field %q not found in enclosing mapping", schema.Union.Discriminant)
}

func entryStorageSize(entry *Schema) uintptr {
	if entry.Flags.has(FlagPointer) {
		return unsafe.Sizeof(uintptr(0))
	}
	return entry.DataSize
}

// findField resolves a mapping key to a field index. Case sensitivity is
// decided, most specific first, by the field's own schema flags, then the
// enclosing mapping's flags, then the global config default (spec §6.1).
func (l *loader) findField(fields []Field, parent *Schema, key string) int {
	for i := range fields {
		ci := l.caseInsensitive(fields[i].Value, parent)
		if ci && strings.EqualFold(fields[i].Key, key) {
			return i
		}
		if !ci && fields[i].Key == key {
			return i
		}
	}
	return -1
}

// caseInsensitiveScalar is caseInsensitive's single-schema variant, for a
// node (Enum, Flags) that isn't a mapping field with a separate parent.
func (l *loader) caseInsensitiveScalar(schema *Schema) bool {
	switch {
	case schema.Flags.has(FlagCaseSensitive):
		return false
	case schema.Flags.has(FlagCaseInsensitive):
		return true
	default:
		return l.cfg.Flags.has(CaseInsensitive)
	}
}

func (l *loader) caseInsensitive(field, parent *Schema) bool {
	switch {
	case field.Flags.has(FlagCaseSensitive):
		return false
	case field.Flags.has(FlagCaseInsensitive):
		return true
	case parent.Flags.has(FlagCaseSensitive):
		return false
	case parent.Flags.has(FlagCaseInsensitive):
		return true
	default:
		return l.cfg.Flags.has(CaseInsensitive)
	}
}

func applyFieldDefault(field *Field, dst unsafe.Pointer) error {
	s := field.Value
	switch s.Kind {
	case KindInt:
		if s.Int.HasDefault {
			return writeInt(uint64(s.Int.Default), uint8(s.DataSize), dst)
		}
	case KindUint:
		if s.Uint.HasDefault {
			return writeInt(s.Uint.Default, uint8(s.DataSize), dst)
		}
	case KindBool:
		if s.Bool.HasDefault {
			v := uint64(0)
			if s.Bool.Default {
				v = 1
			}
			return writeInt(v, uint8(s.DataSize), dst)
		}
	case KindFloat:
		if s.Float.HasDefault {
			return writeFloat(s.Float.Default, s.DataSize, dst)
		}
	case KindEnum:
		if s.Enum.HasDefault {
			return writeInt(uint64(s.Enum.Default), uint8(s.DataSize), dst)
		}
	case KindString:
		if s.String.HasDefault {
			*(*string)(dst) = s.String.Default
		}
	case KindBitfield:
		if s.Bitfield.HasDefault {
			return writeInt(s.Bitfield.Default, uint8(s.DataSize), dst)
		}
	case KindFlags:
		if s.FlagsSet.HasDefault {
			return writeInt(s.FlagsSet.Default, uint8(s.DataSize), dst)
		}
	case KindMapping:
		if s.Mapping.HasDefault {
			copy(unsafe.Slice((*byte)(dst), s.DataSize), s.Mapping.Default)
		}
	case KindSequence, KindSequenceFixed:
		if s.Sequence.HasDefault {
			n := s.Sequence.DefaultCount
			entrySize := entryStorageSize(s.Sequence.Entry)
			buf := alloc(uintptr(n) * entrySize)
			copy(unsafe.Slice((*byte)(buf), uintptr(n)*entrySize), s.Sequence.Default)
			*(*unsafe.Pointer)(dst) = buf
		}
	}
	return nil
}

func (l *loader) readIntScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for int, got %s", ev.Type)
	}
	v, err := parseSignedInt(string(ev.Value))
	if err != nil {
		return wrapErr(InvalidValue, err, "invalid integer %q", string(ev.Value))
	}
	if schema.Int.HasRange && (v < schema.Int.Min || v > schema.Int.Max) {
		return newErr(InvalidValue, "integer %d out of range [%d, %d]", v, schema.Int.Min, schema.Int.Max)
	}
	if err := writeInt(uint64(v), uint8(schema.DataSize), dst); err != nil {
		return err
	}
	return runValidator(schema.Int.Validator, l, schema, dst)
}

func (l *loader) readUintScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for uint, got %s", ev.Type)
	}
	v, err := parseUnsignedInt(string(ev.Value))
	if err != nil {
		return wrapErr(InvalidValue, err, "invalid unsigned integer %q", string(ev.Value))
	}
	if schema.Uint.HasRange && (v < schema.Uint.Min || v > schema.Uint.Max) {
		return newErr(InvalidValue, "unsigned integer %d out of range [%d, %d]", v, schema.Uint.Min, schema.Uint.Max)
	}
	if err := writeInt(v, uint8(schema.DataSize), dst); err != nil {
		return err
	}
	return runValidator(schema.Uint.Validator, l, schema, dst)
}

func (l *loader) readBoolScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for bool, got %s", ev.Type)
	}
	v, err := parseBool(string(ev.Value))
	if err != nil {
		return wrapErr(InvalidValue, err, "invalid boolean %q", string(ev.Value))
	}
	n := uint64(0)
	if v {
		n = 1
	}
	if err := writeInt(n, uint8(schema.DataSize), dst); err != nil {
		return err
	}
	return runValidator(schema.Bool.Validator, l, schema, dst)
}

func (l *loader) readFloatScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for float, got %s", ev.Type)
	}
	v, err := strconv.ParseFloat(string(ev.Value), 64)
	if err != nil {
		return wrapErr(InvalidValue, err, "invalid float %q", string(ev.Value))
	}
	if err := writeFloat(v, schema.DataSize, dst); err != nil {
		return err
	}
	return runValidator(schema.Float.Validator, l, schema, dst)
}

func writeFloat(v float64, size uintptr, dst unsafe.Pointer) error {
	switch size {
	case 4:
		*(*float32)(dst) = float32(v)
	case 8:
		*(*float64)(dst) = v
	default:
		return newErr(InvalidDataSize, "float data_size must be 4 or 8, got %d", size)
	}
	return nil
}

func (l *loader) readEnumScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for enum, got %s", ev.Type)
	}
	name := string(ev.Value)
	ci := l.caseInsensitiveScalar(schema)
	for _, m := range schema.Enum.Values {
		if (ci && strings.EqualFold(m.Name, name)) || (!ci && m.Name == name) {
			if err := writeInt(uint64(m.Value), uint8(schema.DataSize), dst); err != nil {
				return err
			}
			return runValidator(schema.Enum.Validator, l, schema, dst)
		}
	}
	if schema.Flags.has(FlagStrict) {
		return newErr(InvalidValue, "%q is not a valid member of this enum", name)
	}
	if n, err := parseSignedInt(name); err == nil {
		return writeInt(uint64(n), uint8(schema.DataSize), dst)
	}
	return newErr(InvalidValue, "%q is not a valid member of this enum", name)
}

func (l *loader) readStringScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for string, got %s", ev.Type)
	}
	val := string(ev.Value)
	if len(val) < schema.String.MinLen {
		return newErr(StringLengthMin, "string length %d < minimum %d", len(val), schema.String.MinLen)
	}
	if schema.String.MaxLen != 0 && len(val) > schema.String.MaxLen {
		return newErr(StringLengthMax, "string length %d > maximum %d", len(val), schema.String.MaxLen)
	}
	*(*string)(dst) = val
	return runValidator(schema.String.Validator, l, schema, dst)
}

// readStringPointer gives a Pointer-flagged string its own one-element
// []string-backed cell, rather than the raw byte buffer alloc() would
// produce, so the string header's data pointer stays visible to the
// collector.
func (l *loader) readStringPointer(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	cell := make([]string, 1)
	if err := l.readStringScalar(schema, unsafe.Pointer(&cell[0]), ev); err != nil {
		return err
	}
	*(*unsafe.Pointer)(dst) = unsafe.Pointer(&cell[0])
	return nil
}

func (l *loader) readBinaryScalar(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SCALAR_EVENT {
		return newErr(UnexpectedEvent, "expected scalar for binary, got %s", ev.Type)
	}
	raw, err := decodeBase64(string(ev.Value))
	if err != nil {
		return wrapErr(InvalidValue, err, "invalid base64 payload")
	}
	if len(raw) < schema.Binary.MinLen {
		return newErr(StringLengthMin, "binary length %d < minimum %d", len(raw), schema.Binary.MinLen)
	}
	if schema.Binary.MaxLen != 0 && len(raw) > schema.Binary.MaxLen {
		return newErr(StringLengthMax, "binary length %d > maximum %d", len(raw), schema.Binary.MaxLen)
	}
	*(*[]byte)(dst) = raw
	return nil
}

// readBinaryPointer mirrors readStringPointer: a real []byte-typed cell, not
// a raw allocation, so the slice header's backing array stays reachable.
func (l *loader) readBinaryPointer(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	cell := make([][]byte, 1)
	if err := l.readBinaryScalar(schema, unsafe.Pointer(&cell[0]), ev); err != nil {
		return err
	}
	*(*unsafe.Pointer)(dst) = unsafe.Pointer(&cell[0])
	return nil
}

// readBitfield reads a flat mapping of {member name: integer value} pairs
// into a single packed integer (spec §3.1, §4.4.1). It needs no stack frame
// of its own: a bitfield's members are never themselves schema nodes.
func (l *loader) readBitfield(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.MAPPING_START_EVENT {
		return newErr(UnexpectedEvent, "unexpected %s while expecting a bitfield mapping", ev.Type)
	}
	var packed uint64
	seen := make([]bool, len(schema.Bitfield.Members))
	for {
		keyEv, err := l.src.next()
		if err != nil {
			return err
		}
		if keyEv.Type == yamlh.MAPPING_END_EVENT {
			break
		}
		if keyEv.Type != yamlh.SCALAR_EVENT {
			return newErr(UnexpectedEvent, "unexpected %s while expecting a bitfield member name", keyEv.Type)
		}
		name := string(keyEv.Value)
		idx := -1
		for i, m := range schema.Bitfield.Members {
			if m.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return newErr(InvalidKey, "unknown bitfield member %q", name)
		}
		if seen[idx] {
			return newErr(InvalidKey, "duplicate bitfield member %q", name)
		}
		seen[idx] = true

		valEv, err := l.src.next()
		if err != nil {
			return err
		}
		if valEv.Type != yamlh.SCALAR_EVENT {
			return newErr(UnexpectedEvent, "unexpected %s for bitfield member %q value", valEv.Type, name)
		}
		v, err := parseUnsignedInt(string(valEv.Value))
		if err != nil {
			return wrapErr(InvalidValue, err, "invalid bitfield member %q value", name)
		}
		m := schema.Bitfield.Members[idx]
		if m.Width < 64 && v >= (uint64(1)<<m.Width) {
			return newErr(BadBitvalInSchema, "bitfield member %q value %d overflows its %d-bit width", name, v, m.Width)
		}
		packed |= v << m.Offset
	}
	if schema.Flags.has(FlagStrict) {
		for i, ok := range seen {
			if !ok {
				return newErr(BadBitfieldValueCount, "bitfield member %q missing", schema.Bitfield.Members[i].Name)
			}
		}
	}
	if err := writeInt(packed, uint8(schema.DataSize), dst); err != nil {
		return err
	}
	return runValidator(schema.Bitfield.Validator, l, schema, dst)
}

// readFlags reads a sequence of flag names into a single bitmask (spec
// §3.1, §4.4.1). Like Bitfield, it is a flat, bounded, non-recursive scan
// and does not need a stack frame.
func (l *loader) readFlags(schema *Schema, dst unsafe.Pointer, ev yamlh.Event) error {
	if ev.Type != yamlh.SEQUENCE_START_EVENT {
		return newErr(UnexpectedEvent, "unexpected %s while expecting a flags sequence", ev.Type)
	}
	var mask uint64
	for {
		item, err := l.src.next()
		if err != nil {
			return err
		}
		if item.Type == yamlh.SEQUENCE_END_EVENT {
			break
		}
		if item.Type != yamlh.SCALAR_EVENT {
			return newErr(UnexpectedEvent, "unexpected %s in flags sequence", item.Type)
		}
		name := string(item.Value)
		found := false
		ci := l.caseInsensitiveScalar(schema)
		for _, v := range schema.FlagsSet.Values {
			if (ci && strings.EqualFold(v.Name, name)) || (!ci && v.Name == name) {
				mask |= uint64(v.Value)
				found = true
				break
			}
		}
		if found {
			continue
		}
		if schema.Flags.has(FlagStrict) {
			return newErr(InvalidValue, "%q is not a valid flag", name)
		}
		// Non-strict: an unmatched token that parses as an unsigned integer
		// fitting the target width is OR'd in as raw bits; anything else is
		// a genuine InvalidValue, not a silent skip.
		raw, err := parseUnsignedInt(name)
		if err != nil {
			return newErr(InvalidValue, "%q is not a valid flag", name)
		}
		if schema.DataSize < 8 && raw>>(schema.DataSize*8) != 0 {
			return newErr(InvalidValue, "flag value %d does not fit in %d-byte storage", raw, schema.DataSize)
		}
		mask |= raw
	}
	if err := writeInt(mask, uint8(schema.DataSize), dst); err != nil {
		return err
	}
	return runValidator(schema.FlagsSet.Validator, l, schema, dst)
}

func runValidator(v Validator, l *loader, schema *Schema, dst unsafe.Pointer) error {
	if v == nil {
		return nil
	}
	if err := v(l.cfg.ValidationCtx, schema, dst); err != nil {
		return wrapErr(InvalidValue, err, "validator rejected value")
	}
	return nil
}

// parseSignedInt accepts decimal, 0x-hex and 0-octal forms, the same
// surface strconv.ParseInt gives with base 0.
func parseSignedInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 0, 64)
}

func parseUnsignedInt(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, 64)
}

// parseBool implements spec §4.4.1's Bool rule: case-insensitively compare
// against the false set {false, no, off, disable, 0}; anything else is
// true.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "no", "off", "disable", "0":
		return false, nil
	default:
		return true, nil
	}
}
