package cyaml

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCopyIndependentClone(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))

	var clone fixturePerson
	require.NoError(t, Copy(nil, schema, unsafe.Pointer(&p), unsafe.Pointer(&clone), nil, nil))

	require.Equal(t, p.Name, clone.Name)
	require.Equal(t, p.Age, clone.Age)
	require.Equal(t, p.Address, clone.Address)
	require.Equal(t, p.Perms, clone.Perms)
	require.Equal(t, p.Badges, clone.Badges)
	require.Equal(t, p.TagsCount, clone.TagsCount)
	require.Equal(t, p.Kind, clone.Kind)

	origVariant := (*fixtureVariantA)(p.Variant)
	cloneVariant := (*fixtureVariantA)(clone.Variant)
	require.Equal(t, origVariant.Count, cloneVariant.Count)

	// Mutating the clone must not affect the original: Nick is a distinct
	// allocation, not a shared pointer.
	*clone.Nick = "changed"
	require.Equal(t, "Countess", *p.Nick)
	require.NotSame(t, p.Nick, clone.Nick)

	cloneVariant.Count = 999
	require.Equal(t, int32(7), origVariant.Count)

	cloneTags := (*[2]fixtureTag)(unsafe.Pointer(clone.Tags))
	origTags := (*[2]fixtureTag)(unsafe.Pointer(p.Tags))
	cloneTags[0].Name = "renamed"
	require.Equal(t, "founder", origTags[0].Name)
}

func TestCopyMutatingOriginalDoesNotAffectClone(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAML), unsafe.Pointer(&p), nil))

	var clone fixturePerson
	require.NoError(t, Copy(nil, schema, unsafe.Pointer(&p), unsafe.Pointer(&clone), nil, nil))

	p.Name = "mutated"
	*p.Nick = "mutated-nick"
	require.Equal(t, "Ada", clone.Name)
	require.Equal(t, "Countess", *clone.Nick)
}

func TestCopyBadNilArgs(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	err := Copy(nil, nil, unsafe.Pointer(&p), unsafe.Pointer(&p), nil, nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullSchema, ce.Code)

	err = Copy(nil, schema, nil, unsafe.Pointer(&p), nil, nil)
	require.Error(t, err)
	ce, ok = err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullData, ce.Code)

	err = Copy(nil, schema, unsafe.Pointer(&p), nil, nil, nil)
	require.Error(t, err)
	ce, ok = err.(*Error)
	require.True(t, ok)
	require.Equal(t, BadParamNullData, ce.Code)
}
