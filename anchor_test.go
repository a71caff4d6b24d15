package cyaml

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

const fixtureYAMLWithAlias = `name: Ada
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
  - &tag1
    name: founder
  - *tag1
kind: a
variant:
  count: 7
note: discarded
`

func TestLoadAliasReplaysAnchoredNode(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	require.NoError(t, Load(nil, schema, []byte(fixtureYAMLWithAlias), unsafe.Pointer(&p), nil))

	require.Equal(t, int32(2), p.TagsCount)
	tags := (*[2]fixtureTag)(unsafe.Pointer(p.Tags))
	require.Equal(t, "founder", tags[0].Name)
	require.Equal(t, "founder", tags[1].Name)
}

func TestLoadAliasRejectedWithNoAlias(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson
	cfg := NewConfig(WithFlags(NoAlias))

	err := Load(cfg, schema, []byte(fixtureYAMLWithAlias), unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrAlias, ce.Code)
}

func TestLoadUnknownAliasRejected(t *testing.T) {
	schema := fixtureSchema()
	var p fixturePerson

	data := []byte(`name: Ada
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
tags:
  - *missing
kind: a
variant:
  count: 7
`)
	err := Load(nil, schema, data, unsafe.Pointer(&p), nil)
	require.Error(t, err)
	ce, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, InvalidAlias, ce.Code)
}
