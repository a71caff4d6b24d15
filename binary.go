package cyaml

import "encoding/base64"

// decodeBase64 is encodeBinary's inverse (spec §6.4). internal/resolve
// exports EncodeBase64 for the encode direction (used by save.go) but has no
// public decoder, so this side goes straight to encoding/base64 — the same
// package EncodeBase64 itself wraps.
func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
