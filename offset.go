package cyaml

import (
	"fmt"
	"reflect"
)

// Offset returns the byte offset of field within the struct (or pointer to
// struct) v, the Go analogue of libcyaml's offsetof()-based
// CYAML_FIELD_* macros. It panics if v isn't a struct (or *struct) or field
// doesn't name one of its fields, since schema construction happens once at
// init time and a bad field name is a programmer error, not a runtime one.
func Offset(v any, field string) uintptr {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("cyaml.Offset: %T is not a struct", v))
	}
	sf, ok := t.FieldByName(field)
	if !ok {
		panic(fmt.Sprintf("cyaml.Offset: %s has no field %q", t, field))
	}
	return sf.Offset
}

// SizeOf returns the in-memory size of v's type, the analogue of sizeof()
// in a libcyaml schema.
func SizeOf(v any) uintptr {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Size()
}
