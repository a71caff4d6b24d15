package cyaml

import (
	"reflect"
	"unsafe"
)

// The fixture below is shared by load_test.go, save_test.go, copy_test.go
// and free_test.go: one mapping schema exercising a scalar of each kind
// plus a nested mapping, an optional pointer string, a growable sequence
// and a tagged union, built directly against Field/Schema rather than the
// fields.go constructors (those get their own coverage in fields_test.go).

type fixtureAddress struct {
	City string
	Zip  uint32
}

type fixtureTag struct {
	Name string
}

type fixtureVariantA struct {
	Count int32
}

type fixtureVariantB struct {
	Label string
}

type fixturePerson struct {
	Name    string
	Age     int32
	Active  bool
	Height  float64
	Nick    *string
	Address fixtureAddress
	Perms   uint8
	Badges  uint16

	Tags      *fixtureTag
	TagsCount int32

	Kind    int32
	Variant unsafe.Pointer

	Note string
}

const (
	fixtureKindA int32 = iota
	fixtureKindB
)

func fixtureSchema() *Schema {
	addrSchema := &Schema{
		Kind:     KindMapping,
		DataSize: uintptr(reflect.TypeOf(fixtureAddress{}).Size()),
		Mapping: &MappingSchema{
			Fields: []Field{
				{Key: "city", Value: &Schema{Kind: KindString, DataSize: 16, String: &StringSchema{MaxLen: 64}}, DataOffset: Offset(fixtureAddress{}, "City")},
				{Key: "zip", Value: &Schema{Kind: KindUint, DataSize: 4, Uint: &UintSchema{}}, DataOffset: Offset(fixtureAddress{}, "Zip")},
			},
		},
	}

	tagEntry := &Schema{
		Kind:     KindMapping,
		DataSize: uintptr(reflect.TypeOf(fixtureTag{}).Size()),
		Mapping: &MappingSchema{
			Fields: []Field{
				{Key: "name", Value: &Schema{Kind: KindString, DataSize: 16, String: &StringSchema{MaxLen: 32}}, DataOffset: Offset(fixtureTag{}, "Name")},
			},
		},
	}

	variantA := &Schema{
		Kind:   KindMapping,
		Flags:  FlagPointer,
		GoType: reflect.TypeOf(fixtureVariantA{}),
		Mapping: &MappingSchema{
			Fields: []Field{
				{Key: "count", Value: &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}, DataOffset: Offset(fixtureVariantA{}, "Count")},
			},
		},
	}
	variantB := &Schema{
		Kind:   KindMapping,
		Flags:  FlagPointer,
		GoType: reflect.TypeOf(fixtureVariantB{}),
		Mapping: &MappingSchema{
			Fields: []Field{
				{Key: "label", Value: &Schema{Kind: KindString, DataSize: 16, String: &StringSchema{MaxLen: 32}}, DataOffset: Offset(fixtureVariantB{}, "Label")},
			},
		},
	}

	union := &Schema{
		Kind: KindUnion,
		Union: &UnionSchema{
			Discriminant: "kind",
			Fields: []Field{
				{Key: "a", Value: variantA},
				{Key: "b", Value: variantB},
			},
		},
	}

	return &Schema{
		Kind:   KindMapping,
		GoType: reflect.TypeOf(fixturePerson{}),
		Mapping: &MappingSchema{
			Fields: []Field{
				{Key: "name", Value: &Schema{Kind: KindString, DataSize: 16, String: &StringSchema{MinLen: 1, MaxLen: 64}}, DataOffset: Offset(fixturePerson{}, "Name")},
				{Key: "age", Value: &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{HasRange: true, Min: 0, Max: 150}}, DataOffset: Offset(fixturePerson{}, "Age")},
				{Key: "active", Value: &Schema{Kind: KindBool, DataSize: 1, Bool: &BoolSchema{}}, DataOffset: Offset(fixturePerson{}, "Active")},
				{Key: "height", Value: &Schema{Kind: KindFloat, DataSize: 8, Float: &FloatSchema{}}, DataOffset: Offset(fixturePerson{}, "Height")},
				{Key: "nick", Value: &Schema{Kind: KindString, Flags: FlagPointer | FlagOptional, String: &StringSchema{MaxLen: 64}}, DataOffset: Offset(fixturePerson{}, "Nick")},
				{Key: "address", Value: addrSchema, DataOffset: Offset(fixturePerson{}, "Address")},
				{Key: "perms", Value: &Schema{Kind: KindBitfield, DataSize: 1, Bitfield: &BitfieldSchema{
					Members: []BitfieldMember{
						{Name: "read", Offset: 0, Width: 1},
						{Name: "write", Offset: 1, Width: 1},
						{Name: "execute", Offset: 2, Width: 1},
					},
				}}, DataOffset: Offset(fixturePerson{}, "Perms")},
				{Key: "badges", Value: &Schema{Kind: KindFlags, DataSize: 2, FlagsSet: &FlagsSchema{
					Values: []EnumValue{
						{Name: "gold", Value: 1},
						{Name: "silver", Value: 2},
						{Name: "bronze", Value: 4},
					},
				}}, DataOffset: Offset(fixturePerson{}, "Badges")},
				{
					Key: "tags",
					Value: &Schema{
						Kind:  KindSequence,
						Flags: FlagPointer,
						Sequence: &SequenceSchema{
							Entry:       tagEntry,
							Max:         8,
							EntryGoType: reflect.TypeOf(fixtureTag{}),
						},
					},
					DataOffset:  Offset(fixturePerson{}, "Tags"),
					CountOffset: Offset(fixturePerson{}, "TagsCount"),
					CountSize:   4,
				},
				{Key: "kind", Value: &Schema{Kind: KindEnum, DataSize: 4, Enum: &EnumSchema{
					Values: []EnumValue{
						{Name: "a", Value: int64(fixtureKindA)},
						{Name: "b", Value: int64(fixtureKindB)},
					},
				}}, DataOffset: Offset(fixturePerson{}, "Kind")},
				{Key: "variant", Value: union, DataOffset: Offset(fixturePerson{}, "Variant")},
				{Key: "note", Value: &Schema{Kind: KindIgnore}},
			},
		},
	}
}

const fixtureYAML = `name: Ada
age: 36
active: true
height: 1.75
nick: Countess
address:
  city: London
  zip: 1010
perms:
  read: 1
  write: 1
  execute: 0
badges:
  - gold
  - bronze
tags:
  - name: founder
  - name: mathematician
kind: a
variant:
  count: 7
note: discarded
`
