package cyaml

import (
	"reflect"
	"unsafe"
)

// alloc returns size zeroed bytes with no internal pointers, suitable for a
// scalar or bitfield slot. It must never back a Mapping, Union or
// Sequence-entry allocation whose Go type holds a string, slice or pointer
// field: those need allocTyped/allocEntries so the garbage collector can see
// what lives inside. Spec's manual allocator draws no such distinction;
// Go's garbage collector does.
func alloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size)
	return unsafe.Pointer(&buf[0])
}

// allocTyped allocates one zero value of t and returns its address with the
// collector's pointer metadata intact, the way any Pointer-flagged Mapping
// or Union node must be allocated.
func allocTyped(t reflect.Type) unsafe.Pointer {
	return reflect.New(t).UnsafePointer()
}

// allocEntries allocates storage for a sequence of n entries. When t is
// non-nil it is the entry's own Go type and allocation goes through reflect
// to build a [n]t array so the collector can trace pointers inside each
// entry; otherwise entries are assumed pointer-free and backed by a raw
// byte buffer sized n*entrySize.
func allocEntries(t reflect.Type, n int, entrySize uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	if t != nil {
		return reflect.New(reflect.ArrayOf(n, t)).UnsafePointer()
	}
	return alloc(uintptr(n) * entrySize)
}

// growEntries reallocates an entries buffer from oldN to newN elements,
// copying the first oldN entries' bytes across.
func growEntries(t reflect.Type, old unsafe.Pointer, oldN, newN int, entrySize uintptr) unsafe.Pointer {
	next := allocEntries(t, newN, entrySize)
	if old != nil && oldN > 0 {
		copy(
			unsafe.Slice((*byte)(next), uintptr(oldN)*entrySize),
			unsafe.Slice((*byte)(old), uintptr(oldN)*entrySize),
		)
	}
	return next
}
