package cyaml

import (
	"fmt"
	"reflect"
)

// structField locates fieldName within v's (possibly pointer-to-)struct
// type, panicking on a bad name since schema construction happens once at
// init time: a typo here is a programmer error, not a runtime one, exactly
// like a bad argument to a libcyaml CYAML_FIELD_* macro would be caught at
// compile time in C.
func structField(v any, fieldName string) reflect.StructField {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	sf, ok := t.FieldByName(fieldName)
	if !ok {
		panic(fmt.Sprintf("cyaml: %s has no field %q", t, fieldName))
	}
	return sf
}

// fieldOf builds a Field for fieldName within v, inferring DataOffset from
// v's layout and, where schema.DataSize is still zero, defaulting it to the
// field's own in-memory size — the Go analogue of libcyaml's paired
// offsetof()/sizeof() macro arguments.
func fieldOf(key string, v any, fieldName string, schema *Schema) Field {
	sf := structField(v, fieldName)
	if schema.DataSize == 0 {
		schema.DataSize = sf.Type.Size()
	}
	return Field{Key: key, Value: schema, DataOffset: sf.Offset}
}

// withCount attaches countFieldName as f's element-count sibling, the Go
// analogue of CYAML_FIELD_SEQUENCE_COUNT's paired offset/size.
func withCount(f Field, v any, countFieldName string) Field {
	cf := structField(v, countFieldName)
	f.CountOffset = cf.Offset
	f.CountSize = uint8(cf.Type.Size())
	return f
}

// IntField declares a signed-integer mapping field (spec §3.1, CYAML_FIELD_INT).
func IntField(key string, v any, fieldName string, flags SchemaFlag, payload *IntSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindInt, Flags: flags, Int: payload})
}

// UintField declares an unsigned-integer mapping field.
func UintField(key string, v any, fieldName string, flags SchemaFlag, payload *UintSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindUint, Flags: flags, Uint: payload})
}

// BoolField declares a boolean mapping field.
func BoolField(key string, v any, fieldName string, flags SchemaFlag, payload *BoolSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindBool, Flags: flags, Bool: payload})
}

// FloatField declares a floating point mapping field. dataSize must be 4 or 8.
func FloatField(key string, v any, fieldName string, dataSize uintptr, flags SchemaFlag, payload *FloatSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindFloat, Flags: flags, DataSize: dataSize, Float: payload})
}

// EnumField declares a named-integer mapping field (CYAML_FIELD_ENUM).
func EnumField(key string, v any, fieldName string, flags SchemaFlag, payload *EnumSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindEnum, Flags: flags, Enum: payload})
}

// StringField declares a string mapping field, backed by a native Go string
// header either way: fieldName must be a *string when flags carries
// FlagPointer, or a plain string otherwise. dataSize is unused (kept for
// call-site symmetry with the other typed constructors) and may be left 0.
func StringField(key string, v any, fieldName string, dataSize uintptr, flags SchemaFlag, payload *StringSchema) Field {
	f := fieldOf(key, v, fieldName, &Schema{Kind: KindString, Flags: flags, DataSize: dataSize, String: payload})
	return f
}

// BinaryField declares a []byte mapping field, base64-encoded on the wire.
func BinaryField(key string, v any, fieldName string, flags SchemaFlag, payload *BinarySchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindBinary, Flags: flags, Binary: payload})
}

// MappingField declares a nested-struct mapping field. goType is required
// when flags carries FlagPointer (see Schema.GoType's doc comment).
func MappingField(key string, v any, fieldName string, flags SchemaFlag, goType reflect.Type, payload *MappingSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindMapping, Flags: flags, GoType: goType, Mapping: payload})
}

// BitfieldField declares a packed-bitfield mapping field. dataSize is the
// width, in bytes, of the backing integer.
func BitfieldField(key string, v any, fieldName string, dataSize uintptr, flags SchemaFlag, payload *BitfieldSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindBitfield, Flags: flags, DataSize: dataSize, Bitfield: payload})
}

// FlagsField declares a bitmask-of-named-flags mapping field.
func FlagsField(key string, v any, fieldName string, dataSize uintptr, flags SchemaFlag, payload *FlagsSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindFlags, Flags: flags, DataSize: dataSize, FlagsSet: payload})
}

// SequenceField declares a growable-sequence mapping field (always
// Pointer-flagged; see Schema.Validate). countFieldName names the sibling
// struct field that holds the loaded entry count.
func SequenceField(key string, v any, fieldName, countFieldName string, entry *Schema, payload *SequenceSchema) Field {
	payload.Entry = entry
	f := fieldOf(key, v, fieldName, &Schema{Kind: KindSequence, Flags: FlagPointer, Sequence: payload})
	return withCount(f, v, countFieldName)
}

// SequenceFixedField declares a fixed-length array mapping field. When
// countFieldName is "", the field's length is always payload.Max (no
// independent counter); otherwise it behaves like SequenceField but with
// payload.Min == payload.Max enforced.
func SequenceFixedField(key string, v any, fieldName, countFieldName string, flags SchemaFlag, entry *Schema, payload *SequenceSchema) Field {
	payload.Entry = entry
	f := fieldOf(key, v, fieldName, &Schema{Kind: KindSequenceFixed, Flags: flags, Sequence: payload})
	if countFieldName != "" {
		f = withCount(f, v, countFieldName)
	}
	return f
}

// UnionField declares a tagged-union mapping field, selected at
// load/save/copy/free time by the sibling enum field named
// payload.Discriminant.
func UnionField(key string, v any, fieldName string, flags SchemaFlag, goType reflect.Type, payload *UnionSchema) Field {
	return fieldOf(key, v, fieldName, &Schema{Kind: KindUnion, Flags: flags, GoType: goType, Union: payload})
}

// IgnoreField declares a mapping key that is parsed (or, on save, never
// emitted) and discarded (CYAML_FIELD_IGNORE): it occupies no struct
// storage, so it doesn't need a fieldName.
func IgnoreField(key string) Field {
	return Field{Key: key, Value: &Schema{Kind: KindIgnore}}
}
