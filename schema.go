package cyaml

import (
	"fmt"
	"reflect"
)

// Kind tags the variant a Schema node describes (spec §3.1).
type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindBool
	KindEnum
	KindFloat
	KindString
	KindBinary
	KindMapping
	KindBitfield
	KindFlags
	KindSequence
	KindSequenceFixed
	KindIgnore
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindMapping:
		return "mapping"
	case KindBitfield:
		return "bitfield"
	case KindFlags:
		return "flags"
	case KindSequence:
		return "sequence"
	case KindSequenceFixed:
		return "sequence_fixed"
	case KindIgnore:
		return "ignore"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// isComposite reports whether a YAML MappingStart/SequenceStart event (as
// opposed to a bare Scalar) is expected for this kind.
func (k Kind) isComposite() bool {
	switch k {
	case KindMapping, KindBitfield, KindSequence, KindSequenceFixed, KindFlags, KindUnion:
		return true
	default:
		return false
	}
}

func (k Kind) isSequenceLike() bool {
	return k == KindSequence || k == KindSequenceFixed || k == KindFlags
}

// SchemaFlag is the per-node bitset from spec §3.1.
type SchemaFlag uint16

const (
	FlagPointer SchemaFlag = 1 << iota
	FlagOptional
	FlagStrict
	FlagCaseSensitive
	FlagCaseInsensitive
	FlagPointerNullOnEmpty
	FlagPointerNullOnNullString
)

func (f SchemaFlag) has(bit SchemaFlag) bool { return f&bit != 0 }

// EnumValue is one {string,value} pair of an Enum or Flags table (spec §3.1).
type EnumValue struct {
	Name  string
	Value int64
}

// BitfieldMember is one named sub-range of a Bitfield's backing integer.
type BitfieldMember struct {
	Name   string
	Offset uint8
	Width  uint8
}

// Field is a Mapping's field record (spec §3.2): the field's YAML key, its
// sub-schema, and the byte offsets of its storage (and, for Sequence-valued
// fields, of its count) within the parent Go struct.
type Field struct {
	Key         string
	Value       *Schema
	DataOffset  uintptr
	CountOffset uintptr
	CountSize   uint8
}

// IntSchema is the Int kind's payload.
type IntSchema struct {
	HasRange  bool
	Min, Max  int64
	Validator Validator
	HasDefault bool
	Default   int64
}

// UintSchema is the Uint kind's payload.
type UintSchema struct {
	HasRange  bool
	Min, Max  uint64
	Validator Validator
	HasDefault bool
	Default   uint64
}

// BoolSchema is the Bool kind's payload.
type BoolSchema struct {
	Validator  Validator
	HasDefault bool
	Default    bool
}

// FloatSchema is the Float kind's payload.
type FloatSchema struct {
	Validator  Validator
	HasDefault bool
	Default    float64
}

// EnumSchema is the Enum kind's payload.
type EnumSchema struct {
	Values     []EnumValue
	Validator  Validator
	HasDefault bool
	Default    int64
}

// StringSchema is the String kind's payload. MinLen/MaxLen count bytes and
// exclude the trailing NUL the C original would reserve.
type StringSchema struct {
	MinLen, MaxLen int
	Validator      Validator
	HasDefault     bool
	Default        string
}

// BinarySchema is the Binary kind's payload: base64 on the wire, a raw byte
// slice in memory (spec §6.4).
type BinarySchema struct {
	MinLen, MaxLen int
}

// MappingSchema is the Mapping kind's payload.
type MappingSchema struct {
	Fields     []Field
	Validator  Validator
	HasDefault bool
	// Default, when HasDefault is set, is copied byte for byte into the
	// destination when an Optional mapping field is absent from the input.
	Default []byte
}

// BitfieldSchema is the Bitfield kind's payload.
type BitfieldSchema struct {
	Members    []BitfieldMember
	Validator  Validator
	HasDefault bool
	Default    uint64
}

// FlagsSchema is the Flags kind's payload.
type FlagsSchema struct {
	Values     []EnumValue
	Validator  Validator
	HasDefault bool
	Default    uint64
}

// SequenceSchema is the Sequence/SequenceFixed kind's payload.
type SequenceSchema struct {
	Entry     *Schema
	Min, Max  int
	Validator Validator
	// DefaultCount/Default supply the missing-and-Optional fallback for a
	// top-level or mapping-field sequence (spec §3.1).
	HasDefault   bool
	DefaultCount int
	Default      []byte // DefaultCount entries of Entry.DataSize bytes each

	// EntryGoType is the concrete Go type of one entry. It must be set
	// whenever an entry's own storage can hold a pointer the garbage
	// collector needs to see: a Pointer-flagged entry, or an entry whose
	// Kind is Mapping, Union, String, Binary or itself sequence-like. A
	// plain fixed-width scalar/bitfield entry can leave this nil, since
	// such storage never holds anything the collector must trace.
	EntryGoType reflect.Type
}

// UnionSchema is the Union kind's payload. At most one of Fields is ever
// populated; Discriminant names the Enum-kinded, non-pointer field — found
// by walking the chain of enclosing mappings at free time (spec §4.7) and
// at load/save/copy time via the frame that owns this union's parent data —
// that selects which.
type UnionSchema struct {
	Fields       []Field
	Discriminant string
	Validator    Validator
}

// Schema is the recursive, tagged-variant value descriptor of spec §3.1.
// Exactly one of the kind-specific payload pointers is non-nil, matching
// Kind.
type Schema struct {
	Kind     Kind
	Flags    SchemaFlag
	DataSize uintptr

	// GoType is the concrete Go type a Pointer-flagged Mapping or Union
	// node allocates. It is irrelevant (and may be left nil) for every
	// other kind: scalar, bitfield and flags storage never holds a
	// sub-pointer, so a plain untyped byte allocation already gives the
	// collector everything it needs to know.
	GoType reflect.Type

	Int      *IntSchema
	Uint     *UintSchema
	Bool     *BoolSchema
	Enum     *EnumSchema
	Float    *FloatSchema
	String   *StringSchema
	Binary   *BinarySchema
	Mapping  *MappingSchema
	Bitfield *BitfieldSchema
	FlagsSet *FlagsSchema
	Sequence *SequenceSchema
	Union    *UnionSchema
}

// Validate checks the static invariants of spec §3.1 and the schema
// self-validation this port adds (SPEC_FULL.md §3). It does not look at any
// data; it only examines the schema's shape, so it is cheap to call once at
// construction time and again defensively at the top of every driver.
func (s *Schema) Validate() error {
	return s.validate(false)
}

func (s *Schema) validate(nestedInSequence bool) error {
	if s == nil {
		return newErr(BadParamNullSchema, "schema is nil")
	}
	switch s.Kind {
	case KindInt, KindUint, KindBool, KindFloat, KindEnum, KindBitfield, KindFlags:
		if s.DataSize < 1 || s.DataSize > 8 {
			return newErr(InvalidDataSize, "%s schema has data_size %d, want 1..8", s.Kind, s.DataSize)
		}
	}
	// String and Binary are always backed by a native Go string/[]byte
	// header (spec.md's fixed-buffer-vs-pointer split doesn't apply once
	// the GC owns the backing bytes), so neither kind constrains DataSize.
	switch s.Kind {
	case KindInt:
		if s.Int == nil {
			return newErr(BadTypeInSchema, "Int schema missing IntSchema payload")
		}
		if s.Int.HasRange && s.Int.Min > s.Int.Max {
			return newErr(BadMinMaxSchema, "int schema min %d > max %d", s.Int.Min, s.Int.Max)
		}
	case KindUint:
		if s.Uint == nil {
			return newErr(BadTypeInSchema, "Uint schema missing UintSchema payload")
		}
		if s.Uint.HasRange && s.Uint.Min > s.Uint.Max {
			return newErr(BadMinMaxSchema, "uint schema min %d > max %d", s.Uint.Min, s.Uint.Max)
		}
	case KindBool:
		if s.Bool == nil {
			return newErr(BadTypeInSchema, "Bool schema missing BoolSchema payload")
		}
	case KindFloat:
		if s.Float == nil {
			return newErr(BadTypeInSchema, "Float schema missing FloatSchema payload")
		}
		if s.DataSize != 4 && s.DataSize != 8 {
			return newErr(InvalidDataSize, "float schema data_size must be 4 or 8, got %d", s.DataSize)
		}
	case KindEnum:
		if s.Enum == nil || len(s.Enum.Values) == 0 {
			return newErr(BadTypeInSchema, "enum schema needs at least one value")
		}
	case KindString:
		if s.String == nil {
			return newErr(BadTypeInSchema, "String schema missing StringSchema payload")
		}
		if s.String.MaxLen != 0 && s.String.MinLen > s.String.MaxLen {
			return newErr(BadMinMaxSchema, "string schema min_len %d > max_len %d", s.String.MinLen, s.String.MaxLen)
		}
	case KindBinary:
		if s.Binary == nil {
			return newErr(BadTypeInSchema, "Binary schema missing BinarySchema payload")
		}
		if s.Binary.MaxLen != 0 && s.Binary.MinLen > s.Binary.MaxLen {
			return newErr(BadMinMaxSchema, "binary schema min_len %d > max_len %d", s.Binary.MinLen, s.Binary.MaxLen)
		}
	case KindMapping:
		if s.Mapping == nil {
			return newErr(BadTypeInSchema, "Mapping schema missing MappingSchema payload")
		}
		if s.Flags.has(FlagPointer) && s.GoType == nil {
			return newErr(BadTypeInSchema, "pointer-flagged mapping schema needs GoType set")
		}
		for i := range s.Mapping.Fields {
			f := &s.Mapping.Fields[i]
			if f.Key == "" {
				return newErr(BadTypeInSchema, "mapping field %d has an empty key", i)
			}
			if err := f.Value.validate(false); err != nil {
				return fmt.Errorf("field %q: %w", f.Key, err)
			}
		}
	case KindBitfield:
		if s.Bitfield == nil || len(s.Bitfield.Members) == 0 {
			return newErr(BadTypeInSchema, "bitfield schema needs at least one member")
		}
		maxBits := int(s.DataSize) * 8
		for _, m := range s.Bitfield.Members {
			if int(m.Offset)+int(m.Width) > maxBits {
				return newErr(BadBitvalInSchema, "bitfield member %q overruns %d-bit storage", m.Name, maxBits)
			}
		}
	case KindFlags:
		if s.FlagsSet == nil || len(s.FlagsSet.Values) == 0 {
			return newErr(BadTypeInSchema, "flags schema needs at least one value")
		}
	case KindSequence:
		if nestedInSequence {
			return newErr(SequenceInSequence, "a non-fixed sequence cannot nest directly in a sequence")
		}
		if s.Sequence == nil || s.Sequence.Entry == nil {
			return newErr(BadTypeInSchema, "sequence schema missing entry schema")
		}
		if !s.Flags.has(FlagPointer) {
			return newErr(BadTypeInSchema, "a growable sequence's storage must be Pointer-flagged; use SequenceFixed for an inline array")
		}
		if s.Sequence.Max != 0 && s.Sequence.Min > s.Sequence.Max {
			return newErr(BadMinMaxSchema, "sequence schema min %d > max %d", s.Sequence.Min, s.Sequence.Max)
		}
		if err := s.Sequence.Entry.validate(true); err != nil {
			return fmt.Errorf("sequence entry: %w", err)
		}
	case KindSequenceFixed:
		if s.Sequence == nil || s.Sequence.Entry == nil {
			return newErr(BadTypeInSchema, "sequence_fixed schema missing entry schema")
		}
		if s.Sequence.Min != s.Sequence.Max {
			return newErr(SequenceFixedCount, "sequence_fixed schema has min %d != max %d", s.Sequence.Min, s.Sequence.Max)
		}
		if err := s.Sequence.Entry.validate(true); err != nil {
			return fmt.Errorf("sequence_fixed entry: %w", err)
		}
	case KindUnion:
		if s.Union == nil || len(s.Union.Fields) == 0 {
			return newErr(BadTypeInSchema, "union schema needs at least one variant field")
		}
		if s.Union.Discriminant == "" {
			return newErr(BadTypeInSchema, "union schema needs a discriminant field name")
		}
		if s.Flags.has(FlagPointer) && s.GoType == nil {
			return newErr(BadTypeInSchema, "pointer-flagged union schema needs GoType set")
		}
		for i := range s.Union.Fields {
			f := &s.Union.Fields[i]
			if err := f.Value.validate(false); err != nil {
				return fmt.Errorf("union variant %q: %w", f.Key, err)
			}
		}
	case KindIgnore:
		// no payload, nothing to check.
	default:
		return newErr(BadTypeInSchema, "unknown kind %d", s.Kind)
	}
	return nil
}

// fieldsOf returns the ordered field list for a Mapping or Union schema,
// used uniformly by the drivers that don't care which.
func fieldsOf(s *Schema) []Field {
	switch s.Kind {
	case KindMapping:
		return s.Mapping.Fields
	case KindUnion:
		return s.Union.Fields
	default:
		return nil
	}
}
