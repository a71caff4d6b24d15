package cyaml

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestSaveRoundTripsLoad(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))

	out, err := Save(nil, schema, unsafe.Pointer(&p), nil)
	require.NoError(t, err)

	var p2 fixturePerson
	require.NoError(t, Load(nil, schema, out, unsafe.Pointer(&p2), nil))

	require.Equal(t, p.Name, p2.Name)
	require.Equal(t, p.Age, p2.Age)
	require.Equal(t, p.Active, p2.Active)
	require.InDelta(t, p.Height, p2.Height, 1e-9)
	require.Equal(t, *p.Nick, *p2.Nick)
	require.Equal(t, p.Address, p2.Address)
	require.Equal(t, p.Perms, p2.Perms)
	require.Equal(t, p.Badges, p2.Badges)
	require.Equal(t, p.TagsCount, p2.TagsCount)
	require.Equal(t, p.Kind, p2.Kind)

	v1 := (*fixtureVariantA)(p.Variant)
	v2 := (*fixtureVariantA)(p2.Variant)
	require.Equal(t, v1.Count, v2.Count)
}

func TestSaveBitfieldEmitsMemberMapping(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))

	out, err := Save(nil, schema, unsafe.Pointer(&p), nil)
	require.NoError(t, err)

	require.Contains(t, string(out), "perms:")
	require.Contains(t, string(out), "read:")
	require.Contains(t, string(out), "write:")
	require.Contains(t, string(out), "execute:")
}

func TestSaveFlagsEmitsNameSequence(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))

	out, err := Save(nil, schema, unsafe.Pointer(&p), nil)
	require.NoError(t, err)

	require.Contains(t, string(out), "badges:")
	require.Contains(t, string(out), "gold")
	require.Contains(t, string(out), "bronze")
	require.NotContains(t, string(out), "silver")
}

func TestSaveFlagsEmitsResidualBitsAsDecimal(t *testing.T) {
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
	require.NoError(t, Load(nil, schema, data, unsafe.Pointer(&p), nil))
	require.Equal(t, uint16(1|8), p.Badges)

	out, err := Save(nil, schema, unsafe.Pointer(&p), nil)
	require.NoError(t, err)
	require.Contains(t, string(out), "gold")
	require.Contains(t, string(out), "8")

	var p2 fixturePerson
	require.NoError(t, Load(nil, schema, out, unsafe.Pointer(&p2), nil))
	require.Equal(t, p.Badges, p2.Badges)
}

func TestSaveOmitsNilOptionalPointer(t *testing.T) {
	schema := fixtureSchema()
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
	var p fixturePerson
	require.NoError(t, Load(nil, schema, data, unsafe.Pointer(&p), nil))
	require.Nil(t, p.Nick)

	out, err := Save(nil, schema, unsafe.Pointer(&p), nil)
	require.NoError(t, err)
	require.NotContains(t, string(out), "nick:")
}

func TestSaveBadNilSchema(t *testing.T) {
	var p fixturePerson
	_, err := Save(nil, nil, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullSchema, ce.Code)
}

func TestSaveBadNilIn(t *testing.T) {
	_, err := Save(nil, fixtureSchema(), nil, nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullData, ce.Code)
}
