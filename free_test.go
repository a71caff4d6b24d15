package cyaml

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestFreeNilsAndClearsFixture(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))
	require.NotNil(t, p.Nick)
	require.NotNil(t, p.Tags)
	require.NotNil(t, p.Variant)

	require.NoError(t, Free(nil, schema, unsafe.Pointer(&p), nil))

	require.Equal(t, "", p.Name)
	require.Nil(t, p.Nick)
	require.Equal(t, "", p.Address.City)
	require.Nil(t, p.Tags)
	require.Nil(t, p.Variant)
	require.Equal(t, "", p.Note)
}

func TestFreeRecursesIntoSequenceEntries(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))

	tags := (*[2]fixtureTag)(unsafe.Pointer(p.Tags))
	require.Equal(t, "founder", tags[0].Name)

	require.NoError(t, Free(nil, schema, unsafe.Pointer(&p), nil))

	// The entries array itself is unreachable once Tags is nilled, but the
	// slots Free walked before nilling the parent pointer must have been
	// cleared in place first.
	require.Equal(t, "", tags[0].Name)
	require.Equal(t, "", tags[1].Name)
}

func TestFreeBadNilArgs(t *testing.T) {
	var p fixturePerson
	err := Free(nil, nil, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullSchema, ce.Code)

	err = Free(nil, fixtureSchema(), nil, nil)
	require.Error(t, err)
	ce, ok = err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullData, ce.Code)
}

func TestFreeUnionVariantB(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: b
variant: {label: hi}
`)
	require.NoError(t, Load(nil, schema, data, unsafe.Pointer(&p), nil))
	require.NotNil(t, p.Variant)

	require.NoError(t, Free(nil, schema, unsafe.Pointer(&p), nil))
	require.Nil(t, p.Variant)
}
