package cyaml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinderLoadSaveRoundTrip(t *testing.T) {
	binder := NewBinder[fixturePerson](fixtureSchema())

	p, err := binder.Load([]byte(fixtureYAML), nil)
	require.NoError(t, err)
	require.Equal(t, "Ada", p.Name)
	require.Equal(t, int32(36), p.Age)

	out, err := binder.Save(p, nil)
	require.NoError(t, err)
	require.Contains(t, string(out), "name: Ada")
}

func TestBinderCopyIsIndependent(t *testing.T) {
	binder := NewBinder[fixturePerson](fixtureSchema())

	p, err := binder.Load([]byte(fixtureYAML), nil)
	require.NoError(t, err)

	clone, err := binder.Copy(p, nil)
	require.NoError(t, err)
	require.Equal(t, p.Name, clone.Name)

	clone.Name = "mutated"
	require.Equal(t, "Ada", p.Name)
}

func TestBinderFreeClearsValue(t *testing.T) {
	binder := NewBinder[fixturePerson](fixtureSchema())

	p, err := binder.Load([]byte(fixtureYAML), nil)
	require.NoError(t, err)
	require.NoError(t, binder.Free(p, nil))
	require.Equal(t, "", p.Name)
	require.Nil(t, p.Nick)
}

func TestBinderLoadIgnoresUnknownKeys(t *testing.T) {
	binder := NewBinder[fixturePerson](fixtureSchema(), WithFlags(IgnoreUnknownKeys))

	data := []byte(`name: Bob
age: 1
active: false
height: 1.0
address: {city: X, zip: 1}
perms: {read: 0, write: 0, execute: 0}
badges: []
kind: a
variant: {count: 1}
extra: field
`)
	p, err := binder.Load(data, nil)
	require.NoError(t, err)
	require.Equal(t, "Bob", p.Name)
}
