package cyaml

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"unsafe"

	"github.com/tlsa/go-cyaml/internal/emitter"
	"github.com/tlsa/go-cyaml/internal/resolve"
	"github.com/tlsa/go-cyaml/internal/yamlh"
)

// saver holds the state of one Save call. Like loader, it drives the shared
// explicit stack instead of recursing natively, so a pathologically deep
// schema (mirrored by a pathologically deep Go value) can't blow the native
// call stack on the way out any more than it can on the way in (spec §2
// component 3, §4.5).
type saver struct {
	cfg    *Config
	schema *Schema
	em     *emitter.Emitter
	stack  *stack
}

// Save serializes the value addressed by in against schema and returns the
// resulting YAML document (spec §4.5, §6.3).
//
// If schema is Pointer-flagged, in is the address of a pointer variable
// whose target is serialized (a nil pointer on an Optional field omits the
// field entirely, one level up; any other nil pointer, the top-level one
// included, is emitted as the null scalar "~").
// Otherwise in is the address of the value's own storage.
//
// topSeqCount supplies the entry count for a top-level Sequence or
// SequenceFixed schema, mirroring Load's parameter of the same name.
func Save(cfg *Config, schema *Schema, in unsafe.Pointer, topSeqCount *int) ([]byte, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if schema == nil {
		return nil, newErr(BadParamNullSchema, "schema is nil")
	}
	if in == nil {
		return nil, newErr(BadParamNullData, "in is nil")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if schema.Kind.isSequenceLike() && schema.Kind != KindFlags && topSeqCount == nil {
		return nil, newErr(BadParamSeqCount, "a top level sequence schema requires topSeqCount")
	}

	var buf bytes.Buffer
	em := emitter.New(&buf)
	em.SetIndent(2)

	s := &saver{
		cfg:    cfg,
		schema: schema,
		em:     em,
		stack:  &stack{topCountIn: topSeqCount},
	}
	if err := s.run(in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile is Save writing its result to path.
func SaveFile(cfg *Config, schema *Schema, in unsafe.Pointer, topSeqCount *int, path string) error {
	data, err := Save(cfg, schema, in, topSeqCount)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapErr(FileOpen, err, "could not write %q", path)
	}
	return nil
}

// SaveWriter is Save writing its result to w.
func SaveWriter(cfg *Config, schema *Schema, in unsafe.Pointer, topSeqCount *int, w io.Writer) error {
	data, err := Save(cfg, schema, in, topSeqCount)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *saver) emit(ev *yamlh.Event) error {
	if err := s.em.Emit(ev, false); err != nil {
		return wrapErr(EmitterError, err, "yaml emit error")
	}
	return nil
}

func (s *saver) run(in unsafe.Pointer) error {
	if err := s.emit(evStreamStart()); err != nil {
		return err
	}
	if err := s.emit(evDocStart()); err != nil {
		return err
	}
	if _, err := s.stack.push(stateInDoc, s.schema, in, nil, 0); err != nil {
		return s.annotate(err)
	}

	for {
		top := s.stack.top()
		if top == nil {
			break
		}
		var err error
		switch top.state {
		case stateInDoc:
			err = s.stepDoc(top)
		case stateInMappingKey:
			err = s.stepMappingKey(top)
		case stateInMappingValue:
			err = s.stepMappingValue(top)
		case stateInSequence:
			err = s.stepSequence(top)
		}
		if err != nil {
			return s.annotate(err)
		}
	}

	if err := s.emit(evDocEnd()); err != nil {
		return err
	}
	return s.emit(evStreamEnd())
}

func (s *saver) annotate(err error) error {
	ce, ok := err.(*Error)
	if !ok || ce.Backtrace != nil {
		return err
	}
	for _, f := range s.stack.frames {
		if f.schema == nil {
			continue
		}
		bf := Frame{Kind: f.schema.Kind}
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

// stepDoc reuses docsSeen as a 0/1 substate exactly like load's: 0 means the
// root value hasn't been written yet, 1 means it has and the frame is only
// here to be popped once the nested frame it may have pushed unwinds.
func (s *saver) stepDoc(top *frame) error {
	if top.docsSeen == 0 {
		top.docsSeen = 1
		return s.writeValue(top.schema, top.dataIn)
	}
	s.stack.pop()
	return nil
}

func (s *saver) stepMappingKey(top *frame) error {
	if top.fieldIndex >= len(top.fields) {
		s.stack.pop()
		return s.emit(evMappingEnd())
	}
	field := &top.fields[top.fieldIndex]
	if field.Value.Kind == KindIgnore {
		top.fieldIndex++
		return nil
	}
	if skip, err := s.fieldOmitted(field, top.dataIn); err != nil {
		return err
	} else if skip {
		top.fieldIndex++
		return nil
	}
	if err := s.emit(evScalar(field.Key)); err != nil {
		return err
	}
	top.state = stateInMappingValue
	return nil
}

// fieldOmitted reports whether an Optional field whose value is a nil
// pointer should be left out of the mapping entirely, the save-side mirror
// of load applying a field's default when the key is absent.
func (s *saver) fieldOmitted(field *Field, base unsafe.Pointer) (bool, error) {
	if !field.Value.Flags.has(FlagPointer) || !field.Value.Flags.has(FlagOptional) {
		return false, nil
	}
	ptr := *(*unsafe.Pointer)(unsafe.Add(base, field.DataOffset))
	return ptr == nil, nil
}

func (s *saver) stepMappingValue(top *frame) error {
	field := &top.fields[top.fieldIndex]
	top.fieldIndex++
	top.state = stateInMappingKey
	top.activeField = field
	err := s.writeValue(field.Value, unsafe.Add(top.dataIn, field.DataOffset))
	top.activeField = nil
	return err
}

func (s *saver) stepSequence(top *frame) error {
	n, err := top.readCount()
	if err != nil {
		return err
	}
	if top.index >= n {
		s.stack.pop()
		return s.emit(evSequenceEnd())
	}
	entry := top.schema.Sequence.Entry
	src := unsafe.Add(top.entriesOut, uintptr(top.index)*top.entrySize)
	top.index++
	return s.writeValue(entry, src)
}

// writeValue is readValue's mirror: it dispatches a single schema node's
// value out, pushing a frame for a composite kind instead of recursing.
func (s *saver) writeValue(schema *Schema, src unsafe.Pointer) error {
	if schema.Kind == KindIgnore {
		return nil
	}
	if schema.Flags.has(FlagPointer) {
		ptr := *(*unsafe.Pointer)(src)
		if ptr == nil {
			return s.emit(evScalar("~"))
		}
		return s.writeInline(schema, s.pointerTarget(schema, ptr))
	}
	return s.writeInline(schema, src)
}

// pointerTarget resolves the address writeInline should read from once a
// non-nil pointer has been dereferenced. A sequence-like schema's own
// "pointer" already points straight at its entries array, so that case
// passes ptr straight through as the frame's future entriesOut base rather
// than treating it as a second level of indirection.
func (s *saver) pointerTarget(schema *Schema, ptr unsafe.Pointer) unsafe.Pointer {
	return ptr
}

func (s *saver) writeInline(schema *Schema, src unsafe.Pointer) error {
	switch schema.Kind {
	case KindInt:
		return s.writeIntScalar(schema, src)
	case KindUint:
		return s.writeUintScalar(schema, src)
	case KindBool:
		return s.writeBoolScalar(schema, src)
	case KindEnum:
		return s.writeEnumScalar(schema, src)
	case KindFloat:
		return s.writeFloatScalar(schema, src)
	case KindString:
		return s.writeStringScalar(schema, src)
	case KindBinary:
		return s.writeBinaryScalar(schema, src)
	case KindBitfield:
		return s.writeBitfield(schema, src)
	case KindFlags:
		return s.writeFlags(schema, src)
	case KindMapping:
		if err := s.emit(evMappingStart()); err != nil {
			return err
		}
		_, err := s.stack.push(stateInMappingKey, schema, src, nil, 0)
		return err
	case KindUnion:
		variant, err := s.resolveUnionVariant(schema)
		if err != nil {
			return err
		}
		return s.writeValue(variant.Value, src)
	case KindSequence, KindSequenceFixed:
		if err := s.emit(evSequenceStart()); err != nil {
			return err
		}
		entrySize := entryStorageSize(schema.Sequence.Entry)
		f, err := s.stack.push(stateInSequence, schema, src, nil, entrySize)
		if err != nil {
			return err
		}
		if schema.Kind == KindSequenceFixed {
			f.entriesOut = src
			f.count = schema.Sequence.Max
		} else {
			// src is already the dereferenced entries array (writeValue
			// resolved the pointer before calling writeInline).
			f.entriesOut = src
		}
		return nil
	default:
		return newErr(InternalError, "unhandled kind %s in writeInline", schema.Kind)
	}
}

// resolveUnionVariant mirrors load's: the discriminant sibling field lives
// in the mapping frame currently on top of the stack (the one whose field
// iteration is emitting this union's key).
func (s *saver) resolveUnionVariant(schema *Schema) (*Field, error) {
	top := s.stack.top()
	if top == nil || top.schema == nil || top.schema.Kind != KindMapping {
		return nil, newErr(UnionDiscNotFound, "union discriminant %q has no enclosing mapping", schema.Union.Discriminant)
	}
	for i := range top.fields {
		if top.fields[i].Key != schema.Union.Discriminant {
			continue
		}
		discField := &top.fields[i]
		raw, err := readInt(uint8(discField.Value.DataSize), unsafe.Add(top.dataIn, discField.DataOffset))
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

func (s *saver) writeIntScalar(schema *Schema, src unsafe.Pointer) error {
	raw, err := readInt(uint8(schema.DataSize), src)
	if err != nil {
		return err
	}
	v := signPad(raw, uint8(schema.DataSize))
	return s.emit(evScalar(strconv.FormatInt(v, 10)))
}

func (s *saver) writeUintScalar(schema *Schema, src unsafe.Pointer) error {
	v, err := readInt(uint8(schema.DataSize), src)
	if err != nil {
		return err
	}
	return s.emit(evScalar(strconv.FormatUint(v, 10)))
}

func (s *saver) writeBoolScalar(schema *Schema, src unsafe.Pointer) error {
	v, err := readInt(uint8(schema.DataSize), src)
	if err != nil {
		return err
	}
	if v != 0 {
		return s.emit(evScalar("true"))
	}
	return s.emit(evScalar("false"))
}

func (s *saver) writeFloatScalar(schema *Schema, src unsafe.Pointer) error {
	var v float64
	switch schema.DataSize {
	case 4:
		v = float64(*(*float32)(src))
	case 8:
		v = *(*float64)(src)
	default:
		return newErr(InvalidDataSize, "float data_size must be 4 or 8, got %d", schema.DataSize)
	}
	bits := 64
	if schema.DataSize == 4 {
		bits = 32
	}
	return s.emit(evScalar(strconv.FormatFloat(v, 'g', -1, bits)))
}

func (s *saver) writeEnumScalar(schema *Schema, src unsafe.Pointer) error {
	raw, err := readInt(uint8(schema.DataSize), src)
	if err != nil {
		return err
	}
	v := signPad(raw, uint8(schema.DataSize))
	for _, m := range schema.Enum.Values {
		if m.Value == v {
			return s.emit(evScalar(m.Name))
		}
	}
	if schema.Flags.has(FlagStrict) {
		return newErr(InvalidValue, "%d is not a valid member of this enum", v)
	}
	return s.emit(evScalar(strconv.FormatInt(v, 10)))
}

func (s *saver) writeStringScalar(schema *Schema, src unsafe.Pointer) error {
	val := *(*string)(src)
	if len(val) < schema.String.MinLen {
		return newErr(StringLengthMin, "string length %d < minimum %d", len(val), schema.String.MinLen)
	}
	if schema.String.MaxLen != 0 && len(val) > schema.String.MaxLen {
		return newErr(StringLengthMax, "string length %d > maximum %d", len(val), schema.String.MaxLen)
	}
	return s.emit(evScalar(val))
}

func (s *saver) writeBinaryScalar(schema *Schema, src unsafe.Pointer) error {
	val := *(*[]byte)(src)
	if len(val) < schema.Binary.MinLen {
		return newErr(StringLengthMin, "binary length %d < minimum %d", len(val), schema.Binary.MinLen)
	}
	if schema.Binary.MaxLen != 0 && len(val) > schema.Binary.MaxLen {
		return newErr(StringLengthMax, "binary length %d > maximum %d", len(val), schema.Binary.MaxLen)
	}
	return s.emit(evScalar(resolve.EncodeBase64(string(val))))
}

func (s *saver) writeBitfield(schema *Schema, src unsafe.Pointer) error {
	packed, err := readInt(uint8(schema.DataSize), src)
	if err != nil {
		return err
	}
	if err := s.emit(evMappingStart()); err != nil {
		return err
	}
	for _, m := range schema.Bitfield.Members {
		var mask uint64
		if m.Width >= 64 {
			mask = ^uint64(0)
		} else {
			mask = (uint64(1) << m.Width) - 1
		}
		v := (packed >> m.Offset) & mask
		if err := s.emit(evScalar(m.Name)); err != nil {
			return err
		}
		if err := s.emit(evScalar(strconv.FormatUint(v, 10))); err != nil {
			return err
		}
	}
	return s.emit(evMappingEnd())
}

func (s *saver) writeFlags(schema *Schema, src unsafe.Pointer) error {
	mask, err := readInt(uint8(schema.DataSize), src)
	if err != nil {
		return err
	}
	if err := s.emit(evSequenceStart()); err != nil {
		return err
	}
	var matched uint64
	for _, v := range schema.FlagsSet.Values {
		if mask&uint64(v.Value) != uint64(v.Value) || v.Value == 0 {
			continue
		}
		matched |= uint64(v.Value)
		if err := s.emit(evScalar(v.Name)); err != nil {
			return err
		}
	}
	// Bits set in mask but not covered by any named value round-trip as a
	// trailing decimal scalar (spec §4.5) unless the schema is Strict, in
	// which case such bits can't occur (readFlags rejects them on load).
	if residual := mask &^ matched; residual != 0 && !schema.Flags.has(FlagStrict) {
		if err := s.emit(evScalar(strconv.FormatUint(residual, 10))); err != nil {
			return err
		}
	}
	return s.emit(evSequenceEnd())
}
