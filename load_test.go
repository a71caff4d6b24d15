package cyaml

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	err := Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil)
	require.NoError(t, err)

	require.Equal(t, "Ada", p.Name)
	require.Equal(t, int32(36), p.Age)
	require.True(t, p.Active)
	require.InDelta(t, 1.75, p.Height, 1e-9)
	require.NotNil(t, p.Nick)
	require.Equal(t, "Countess", *p.Nick)
	require.Equal(t, "London", p.Address.City)
	require.Equal(t, uint32(1010), p.Address.Zip)
	require.Equal(t, uint8(0b011), p.Perms) // read=1, write=1, execute=0
	require.Equal(t, uint16(0b101), p.Badges) // gold|bronze
	require.Equal(t, int32(2), p.TagsCount)
	require.NotNil(t, p.Tags)

	tags := (*[2]fixtureTag)(unsafe.Pointer(p.Tags))
	require.Equal(t, "founder", tags[0].Name)
	require.Equal(t, "mathematician", tags[1].Name)

	require.Equal(t, fixtureKindA, p.Kind)
	require.NotNil(t, p.Variant)
	variant := (*fixtureVariantA)(p.Variant)
	require.Equal(t, int32(7), variant.Count)

	// Ignore fields never populate Go storage (Note stays zero) even though
	// "note" was present on the wire.
	require.Equal(t, "", p.Note)
}

func TestParseBoolAnythingNotInFalseSetIsTrue(t *testing.T) {
	for _, s := range []string{"maybe", "2", "enabled", "TRUE", "anything"} {
		v, err := parseBool(s)
		require.NoError(t, err)
		require.True(t, v, "parseBool(%q)", s)
	}
}

func TestParseBoolFalseSetCaseInsensitive(t *testing.T) {
	for _, s := range []string{"false", "No", "OFF", "disable", "0"} {
		v, err := parseBool(s)
		require.NoError(t, err)
		require.False(t, v, "parseBool(%q)", s)
	}
}

func TestLoadBoolAcceptsAnyNonFalseToken(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: Bob
age: 1
active: maybe
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: a
variant: {count: 1}
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.NoError(t, err)
	require.True(t, p.Active)
}

func TestLoadFlagsNumericTokenOrsIntoMask(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges:
  - gold
  - 8
kind: a
variant: {count: 1}
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.NoError(t, err)
	require.Equal(t, uint16(1|8), p.Badges)
}

func TestLoadFlagsGarbageTokenRejectedNonStrict(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges:
  - gold
  - not-a-flag
kind: a
variant: {count: 1}
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, InvalidValue, ce.Code)
}

func TestLoadMissingRequiredField(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`age: 10
active: true
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: a
variant: {count: 1}
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, MappingFieldMissing, ce.Code)
}

func TestLoadUnknownKeyRejectedByDefault(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: a
variant: {count: 1}
unexpected: oops
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, InvalidKey, ce.Code)
}

func TestLoadUnknownKeyIgnoredWithFlag(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	cfg := NewConfig(WithFlags(IgnoreUnknownKeys))

	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: b
variant: {label: hi}
unexpected: oops
`)
	err := Load(cfg, schema, data, unsafe.Pointer(&p), nil)
	require.NoError(t, err)
	require.Equal(t, "Bob", p.Name)
	require.Equal(t, fixtureKindB, p.Kind)
	variant := (*fixtureVariantB)(p.Variant)
	require.Equal(t, "hi", variant.Label)
}

func TestLoadOptionalFieldOmitted(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: a
variant: {count: 1}
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.NoError(t, err)
	require.Nil(t, p.Nick)
}

func TestLoadStringOutOfRangeRejected(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: ""
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: a
variant: {count: 1}
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, StringLengthMin, ce.Code)
}

func TestLoadBadNilSchema(t *testing.T) {
	var p fixturePerson
	err := Load(nil, nil, []byte("{}"), unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullSchema, ce.Code)
}

func TestLoadBadNilData(t *testing.T) {
	err := Load(nil, fixtureSchema(), []byte("{}"), nil, nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullData, ce.Code)
}
