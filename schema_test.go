package cyaml

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	var ce *Error
	for e := err; e != nil; {
		if c, ok := e.(*Error); ok {
			ce = c
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	require.NotNil(t, ce, "error %v is not a *Error nor wraps one", err)
	require.Equal(t, code, ce.Code)
}

func TestValidateNilSchema(t *testing.T) {
	var s *Schema
	requireCode(t, s.Validate(), BadParamNullSchema)
}

func TestValidateIntBadRange(t *testing.T) {
	s := &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{HasRange: true, Min: 10, Max: 1}}
	requireCode(t, s.Validate(), BadMinMaxSchema)
}

func TestValidateUintBadRange(t *testing.T) {
	s := &Schema{Kind: KindUint, DataSize: 4, Uint: &UintSchema{HasRange: true, Min: 10, Max: 1}}
	requireCode(t, s.Validate(), BadMinMaxSchema)
}

func TestValidateStringBadRange(t *testing.T) {
	s := &Schema{Kind: KindString, String: &StringSchema{MinLen: 10, MaxLen: 1}}
	requireCode(t, s.Validate(), BadMinMaxSchema)
}

func TestValidateBinaryBadRange(t *testing.T) {
	s := &Schema{Kind: KindBinary, Binary: &BinarySchema{MinLen: 10, MaxLen: 1}}
	requireCode(t, s.Validate(), BadMinMaxSchema)
}

func TestValidateMissingPayload(t *testing.T) {
	requireCode(t, (&Schema{Kind: KindInt, DataSize: 4}).Validate(), BadTypeInSchema)
	requireCode(t, (&Schema{Kind: KindUint, DataSize: 4}).Validate(), BadTypeInSchema)
	requireCode(t, (&Schema{Kind: KindBool, DataSize: 1}).Validate(), BadTypeInSchema)
	requireCode(t, (&Schema{Kind: KindFloat, DataSize: 8}).Validate(), BadTypeInSchema)
	requireCode(t, (&Schema{Kind: KindString}).Validate(), BadTypeInSchema)
	requireCode(t, (&Schema{Kind: KindBinary}).Validate(), BadTypeInSchema)
	requireCode(t, (&Schema{Kind: KindMapping}).Validate(), BadTypeInSchema)
}

func TestValidateEnumNeedsValues(t *testing.T) {
	s := &Schema{Kind: KindEnum, DataSize: 4, Enum: &EnumSchema{}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidateFloatBadDataSize(t *testing.T) {
	s := &Schema{Kind: KindFloat, DataSize: 6, Float: &FloatSchema{}}
	requireCode(t, s.Validate(), InvalidDataSize)
}

func TestValidateIntDataSizeOutOfRange(t *testing.T) {
	s := &Schema{Kind: KindInt, DataSize: 0, Int: &IntSchema{}}
	requireCode(t, s.Validate(), InvalidDataSize)

	s = &Schema{Kind: KindInt, DataSize: 9, Int: &IntSchema{}}
	requireCode(t, s.Validate(), InvalidDataSize)
}

func TestValidateStringIgnoresDataSize(t *testing.T) {
	s := &Schema{Kind: KindString, DataSize: 0, String: &StringSchema{}}
	require.NoError(t, s.Validate())
}

func TestValidateGrowableSequenceRequiresPointerFlag(t *testing.T) {
	entry := &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}
	s := &Schema{Kind: KindSequence, Sequence: &SequenceSchema{Entry: entry, Max: 8}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidateSequenceFixedRequiresMinEqualsMax(t *testing.T) {
	entry := &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}
	s := &Schema{Kind: KindSequenceFixed, Sequence: &SequenceSchema{Entry: entry, Min: 2, Max: 4}}
	requireCode(t, s.Validate(), SequenceFixedCount)
}

func TestValidateSequenceBadMinMax(t *testing.T) {
	entry := &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}
	s := &Schema{Kind: KindSequence, Flags: FlagPointer, Sequence: &SequenceSchema{Entry: entry, Min: 10, Max: 1}}
	requireCode(t, s.Validate(), BadMinMaxSchema)
}

func TestValidateSequenceInSequenceRejected(t *testing.T) {
	innerEntry := &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}
	inner := &Schema{Kind: KindSequence, Flags: FlagPointer, Sequence: &SequenceSchema{Entry: innerEntry, Max: 4}}
	outer := &Schema{Kind: KindSequence, Flags: FlagPointer, Sequence: &SequenceSchema{Entry: inner, Max: 4}}
	requireCode(t, outer.Validate(), SequenceInSequence)
}

func TestValidateBitfieldMemberOverrunsStorage(t *testing.T) {
	s := &Schema{Kind: KindBitfield, DataSize: 1, Bitfield: &BitfieldSchema{
		Members: []BitfieldMember{{Name: "huge", Offset: 6, Width: 4}},
	}}
	requireCode(t, s.Validate(), BadBitvalInSchema)
}

func TestValidateBitfieldNeedsMembers(t *testing.T) {
	s := &Schema{Kind: KindBitfield, DataSize: 1, Bitfield: &BitfieldSchema{}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidateFlagsNeedsValues(t *testing.T) {
	s := &Schema{Kind: KindFlags, DataSize: 2, FlagsSet: &FlagsSchema{}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidateUnionMissingDiscriminant(t *testing.T) {
	s := &Schema{Kind: KindUnion, Union: &UnionSchema{
		Fields: []Field{{Key: "a", Value: &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}}},
	}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidateUnionNoFields(t *testing.T) {
	s := &Schema{Kind: KindUnion, Union: &UnionSchema{Discriminant: "kind"}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidatePointerMappingRequiresGoType(t *testing.T) {
	s := &Schema{Kind: KindMapping, Flags: FlagPointer, Mapping: &MappingSchema{
		Fields: []Field{{Key: "x", Value: &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}}},
	}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidatePointerMappingWithGoTypeOK(t *testing.T) {
	type T struct{ X int32 }
	s := &Schema{Kind: KindMapping, Flags: FlagPointer, GoType: reflect.TypeOf(T{}), Mapping: &MappingSchema{
		Fields: []Field{{Key: "x", Value: &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}, DataOffset: Offset(T{}, "X")}},
	}}
	require.NoError(t, s.Validate())
}

func TestValidateMappingEmptyFieldKeyRejected(t *testing.T) {
	s := &Schema{Kind: KindMapping, Mapping: &MappingSchema{
		Fields: []Field{{Key: "", Value: &Schema{Kind: KindInt, DataSize: 4, Int: &IntSchema{}}}},
	}}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestValidateUnknownKindRejected(t *testing.T) {
	s := &Schema{Kind: Kind(200)}
	requireCode(t, s.Validate(), BadTypeInSchema)
}

func TestFixtureSchemaValidates(t *testing.T) {
	require.NoError(t, fixtureSchema().Validate())
}
