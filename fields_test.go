package cyaml

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type fieldsFixtureAddr struct {
	City string
}

type fieldsFixtureTag struct {
	Name string
}

type fieldsFixtureStruct struct {
	I32        int32
	U16        uint16
	B          bool
	F64        float64
	E          int32
	S          string
	Bin        []byte
	Addr       fieldsFixtureAddr
	Perms      uint8
	Flags      uint16
	Tags       *fieldsFixtureTag
	TagsCount  int32
	Fixed      [3]fieldsFixtureTag
	U          unsafe.Pointer
}

func TestIntFieldInfersOffsetAndSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := IntField("i32", zero, "I32", 0, &IntSchema{})
	require.Equal(t, "i32", f.Key)
	require.Equal(t, Offset(zero, "I32"), f.DataOffset)
	require.Equal(t, KindInt, f.Value.Kind)
	require.Equal(t, SizeOf(int32(0)), f.Value.DataSize)
}

func TestUintFieldInfersOffsetAndSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := UintField("u16", zero, "U16", 0, &UintSchema{})
	require.Equal(t, Offset(zero, "U16"), f.DataOffset)
	require.Equal(t, SizeOf(uint16(0)), f.Value.DataSize)
}

func TestBoolFieldInfersOffsetAndSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := BoolField("b", zero, "B", 0, &BoolSchema{})
	require.Equal(t, Offset(zero, "B"), f.DataOffset)
	require.Equal(t, KindBool, f.Value.Kind)
}

func TestFloatFieldUsesExplicitDataSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := FloatField("f64", zero, "F64", 8, 0, &FloatSchema{})
	require.Equal(t, Offset(zero, "F64"), f.DataOffset)
	require.Equal(t, uintptr(8), f.Value.DataSize)
}

func TestEnumFieldInfersOffsetAndSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := EnumField("e", zero, "E", 0, &EnumSchema{Values: []EnumValue{{Name: "a", Value: 0}}})
	require.Equal(t, Offset(zero, "E"), f.DataOffset)
	require.Equal(t, SizeOf(int32(0)), f.Value.DataSize)
}

func TestStringFieldOffsetOnly(t *testing.T) {
	var zero fieldsFixtureStruct
	f := StringField("s", zero, "S", 0, 0, &StringSchema{MaxLen: 10})
	require.Equal(t, Offset(zero, "S"), f.DataOffset)
	require.Equal(t, KindString, f.Value.Kind)
}

func TestBinaryFieldInfersOffset(t *testing.T) {
	var zero fieldsFixtureStruct
	f := BinaryField("bin", zero, "Bin", 0, &BinarySchema{MaxLen: 10})
	require.Equal(t, Offset(zero, "Bin"), f.DataOffset)
	require.Equal(t, KindBinary, f.Value.Kind)
}

func TestMappingFieldInfersOffset(t *testing.T) {
	var zero fieldsFixtureStruct
	f := MappingField("addr", zero, "Addr", 0, nil, &MappingSchema{
		Fields: []Field{StringField("city", fieldsFixtureAddr{}, "City", 0, 0, &StringSchema{})},
	})
	require.Equal(t, Offset(zero, "Addr"), f.DataOffset)
	require.Equal(t, KindMapping, f.Value.Kind)
}

func TestBitfieldFieldExplicitDataSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := BitfieldField("perms", zero, "Perms", 1, 0, &BitfieldSchema{
		Members: []BitfieldMember{{Name: "r", Offset: 0, Width: 1}},
	})
	require.Equal(t, Offset(zero, "Perms"), f.DataOffset)
	require.Equal(t, uintptr(1), f.Value.DataSize)
}

func TestFlagsFieldExplicitDataSize(t *testing.T) {
	var zero fieldsFixtureStruct
	f := FlagsField("flags", zero, "Flags", 2, 0, &FlagsSchema{
		Values: []EnumValue{{Name: "x", Value: 1}},
	})
	require.Equal(t, Offset(zero, "Flags"), f.DataOffset)
	require.Equal(t, uintptr(2), f.Value.DataSize)
}

func TestSequenceFieldAlwaysPointerFlagged(t *testing.T) {
	var zero fieldsFixtureStruct
	entry := &Schema{Kind: KindMapping, DataSize: SizeOf(fieldsFixtureTag{}), Mapping: &MappingSchema{
		Fields: []Field{StringField("name", fieldsFixtureTag{}, "Name", 0, 0, &StringSchema{})},
	}}
	f := SequenceField("tags", zero, "Tags", "TagsCount", entry, &SequenceSchema{Max: 8})
	require.Equal(t, Offset(zero, "Tags"), f.DataOffset)
	require.Equal(t, Offset(zero, "TagsCount"), f.CountOffset)
	require.Equal(t, uint8(SizeOf(int32(0))), f.CountSize)
	require.True(t, f.Value.Flags.has(FlagPointer))
}

func TestSequenceFixedFieldNoCounter(t *testing.T) {
	var zero fieldsFixtureStruct
	entry := &Schema{Kind: KindMapping, DataSize: SizeOf(fieldsFixtureTag{}), Mapping: &MappingSchema{
		Fields: []Field{StringField("name", fieldsFixtureTag{}, "Name", 0, 0, &StringSchema{})},
	}}
	f := SequenceFixedField("fixed", zero, "Fixed", "", 0, entry, &SequenceSchema{Min: 3, Max: 3})
	require.Equal(t, Offset(zero, "Fixed"), f.DataOffset)
	require.Equal(t, uintptr(0), f.CountOffset)
	require.Equal(t, uint8(0), f.CountSize)
}

func TestUnionFieldInfersOffset(t *testing.T) {
	var zero fieldsFixtureStruct
	f := UnionField("u", zero, "U", 0, nil, &UnionSchema{Discriminant: "e", Fields: []Field{
		{Key: "a", Value: &Schema{Kind: KindMapping, Flags: FlagPointer, GoType: reflect.TypeOf(fieldsFixtureTag{}), Mapping: &MappingSchema{}}},
	}})
	require.Equal(t, Offset(zero, "U"), f.DataOffset)
	require.Equal(t, KindUnion, f.Value.Kind)
}

func TestIgnoreFieldHasNoStorage(t *testing.T) {
	f := IgnoreField("comment")
	require.Equal(t, "comment", f.Key)
	require.Equal(t, KindIgnore, f.Value.Kind)
	require.Equal(t, uintptr(0), f.DataOffset)
}

func TestFieldOfPanicsOnUnknownFieldName(t *testing.T) {
	var zero fieldsFixtureStruct
	require.Panics(t, func() {
		IntField("nope", zero, "DoesNotExist", 0, &IntSchema{})
	})
}
