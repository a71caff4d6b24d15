// Package cyaml binds YAML documents to native Go values against an
// explicit schema, rather than Go's struct tags and reflection. A Schema
// tree describes the shape of a value — its Kind, storage layout via
// reflect-free offsets, and validation rules — and the four entry points
// Load, Save, Copy and Free walk that schema to parse, emit, clone and
// release values built from it.
//
// The schema model exists because reflection-driven (de)serializers can't
// express everything a C-derived wire format needs: fixed-width integers
// with explicit byte order, packed bitfields, tagged unions keyed by a
// sibling discriminant field, and fixed vs growable sequences with
// independent pointer-or-embedded storage. Building a Schema by hand is
// more verbose than a struct tag, but it makes every one of those choices
// explicit instead of inferred.
//
// Load, Save and Copy share a single non-recursive, explicit-stack
// traversal engine (stack.go) so that the recursion depth of a maliciously
// or accidentally deep document is bounded by heap size, not Go's
// goroutine stack. Free has no parser or emitter to suspend partway
// through, so it walks its schema with ordinary native recursion instead.
//
// Binder[T] (generic.go) wraps a Schema for a concrete Go type T, giving
// callers a typed Load/Save/Copy/Free without touching unsafe.Pointer
// themselves.
package cyaml
