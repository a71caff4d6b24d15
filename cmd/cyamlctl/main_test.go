package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tlsa/go-cyaml"
)

func TestFlagsLevelParsesKnownNames(t *testing.T) {
	cases := map[string]cyaml.LogLevel{
		"debug":   cyaml.LevelDebug,
		"info":    cyaml.LevelInfo,
		"warn":    cyaml.LevelWarning,
		"warning": cyaml.LevelWarning,
		"error":   cyaml.LevelError,
	}
	for name, want := range cases {
		f := &flags{logLevel: name}
		got, err := f.level()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestFlagsLevelRejectsUnknownName(t *testing.T) {
	f := &flags{logLevel: "verbose"}
	_, err := f.level()
	require.Error(t, err)
}

func TestFlagsHandlerPicksFormat(t *testing.T) {
	var buf bytes.Buffer
	f := &flags{logFormat: "json"}
	h := f.handler(&buf, cyaml.LevelDebug)
	require.NotNil(t, h)

	f2 := &flags{logFormat: "text"}
	h2 := f2.handler(&buf, cyaml.LevelDebug)
	require.NotNil(t, h2)
}

func TestRunLoadsAndReEmitsFile(t *testing.T) {
	dir := t.TempDir()
	inPath := dir + "/in.yaml"
	outPath := dir + "/out.yaml"

	require.NoError(t, os.WriteFile(inPath, []byte(minimalServerConfigYAML), 0o644))

	f := &flags{logLevel: "error", logFormat: "text", output: outPath}
	require.NoError(t, run(f, []string{inPath}))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(out), "name: minimal")
}

const minimalServerConfigYAML = `name: minimal
address: {host: localhost, port: 80}
perms: {read: 0, write: 0, execute: 0}
backends: []
endpoints:
  - {path: /a, timeout: 1.0}
  - {path: /b, timeout: 1.0}
  - {path: /c, timeout: 1.0}
  - {path: /d, timeout: 1.0}
kind: unix
target: {path: /tmp/x.sock}
`
