package cyaml

import (
	"os"
	"unsafe"
)

// Binder pairs a schema with the concrete Go type it describes, giving
// callers a typed front door instead of working with unsafe.Pointer
// directly — the same role glint's Decoder[T] plays over its untyped
// decoderImpl. schema must describe T's own layout: if the top level value
// is itself Pointer-flagged, use the unsafe entry points (Load, Save, Copy,
// Free) directly instead, since Binder always hands out &v of a value it
// owns.
type Binder[T any] struct {
	schema *Schema
	cfg    *Config
}

// NewBinder builds a Binder for T using schema and the given options.
func NewBinder[T any](schema *Schema, opts ...Option) *Binder[T] {
	return &Binder[T]{schema: schema, cfg: NewConfig(opts...)}
}

// Load parses data into a freshly zeroed T. topSeqCount is only consulted
// when schema's top level kind is Sequence or SequenceFixed.
func (b *Binder[T]) Load(data []byte, topSeqCount *int) (*T, error) {
	var v T
	if err := Load(b.cfg, b.schema, data, unsafe.Pointer(&v), topSeqCount); err != nil {
		return nil, err
	}
	return &v, nil
}

// LoadFile is Load reading from a path.
func (b *Binder[T]) LoadFile(path string, topSeqCount *int) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(FileOpen, err, "could not read %q", path)
	}
	return b.Load(data, topSeqCount)
}

// Save serializes v to YAML.
func (b *Binder[T]) Save(v *T, topSeqCount *int) ([]byte, error) {
	return Save(b.cfg, b.schema, unsafe.Pointer(v), topSeqCount)
}

// SaveFile serializes v and writes it to path.
func (b *Binder[T]) SaveFile(v *T, topSeqCount *int, path string) error {
	return SaveFile(b.cfg, b.schema, unsafe.Pointer(v), topSeqCount, path)
}

// Copy returns an independent clone of v.
func (b *Binder[T]) Copy(v *T, topSeqCountIn *int) (*T, error) {
	var out T
	topOut := new(int)
	if err := Copy(b.cfg, b.schema, unsafe.Pointer(v), unsafe.Pointer(&out), topSeqCountIn, topOut); err != nil {
		return nil, err
	}
	return &out, nil
}

// Free releases every reference v holds to Go-managed memory, leaving v
// zeroed where the schema's Pointer-flagged fields were populated.
func (b *Binder[T]) Free(v *T, topSeqCount *int) error {
	return Free(b.cfg, b.schema, unsafe.Pointer(v), topSeqCount)
}
