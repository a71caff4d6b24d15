package cyaml

import "unsafe"

// Free is the Go-idiomatic reading of spec §4.7: since the garbage
// collector reclaims memory on its own schedule, Free's job isn't to
// deallocate but to release every reference this value holds to Go-managed
// memory — nil out pointer-flagged slots, truncate strings and byte slices,
// zero sequence entry counts — so nothing this tree reaches stays pinned in
// the heap a moment longer than necessary. Unlike Load/Save/Copy, Free has
// no suspension points or partial-failure path to protect against: it
// cannot fail on malformed input (there is none), so it recurses natively
// instead of going through the explicit stack (spec §2 component 3's
// rationale applies only to the three drivers that parse or emit).
func Free(cfg *Config, schema *Schema, ptr unsafe.Pointer, topSeqCount *int) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	if schema == nil {
		return newErr(BadParamNullSchema, "schema is nil")
	}
	if ptr == nil {
		return newErr(BadParamNullData, "ptr is nil")
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	n := -1
	if schema.Kind.isSequenceLike() && schema.Kind != KindFlags {
		n = schema.Sequence.Max
		if topSeqCount != nil {
			n = *topSeqCount
		}
	}
	if err := freeValue(schema, ptr, n); err != nil {
		return err
	}
	if topSeqCount != nil {
		*topSeqCount = 0
	}
	return nil
}

// freeValue releases schema's value at dst. count is only consulted when
// schema is sequence-like; -1 means "not applicable".
func freeValue(schema *Schema, dst unsafe.Pointer, count int) error {
	if schema.Kind == KindIgnore {
		return nil
	}
	if schema.Flags.has(FlagPointer) {
		target := *(*unsafe.Pointer)(dst)
		*(*unsafe.Pointer)(dst) = nil
		if target == nil {
			return nil
		}
		return freeComposite(schema, target, count)
	}
	return freeComposite(schema, dst, count)
}

func freeComposite(schema *Schema, addr unsafe.Pointer, count int) error {
	switch schema.Kind {
	case KindMapping:
		for i := range schema.Mapping.Fields {
			f := &schema.Mapping.Fields[i]
			if f.Value.Kind == KindIgnore {
				continue
			}
			if f.Value.Kind == KindUnion {
				if err := freeUnionField(schema.Mapping.Fields, f, addr); err != nil {
					return err
				}
				continue
			}
			n := -1
			if f.Value.Kind.isSequenceLike() && f.Value.Kind != KindFlags {
				n = f.Value.Sequence.Max
				if f.CountSize > 0 {
					raw, err := readInt(f.CountSize, unsafe.Add(addr, f.CountOffset))
					if err != nil {
						return err
					}
					n = int(raw)
				}
			}
			if err := freeValue(f.Value, unsafe.Add(addr, f.DataOffset), n); err != nil {
				return err
			}
			if n >= 0 && f.CountSize > 0 {
				if err := writeInt(0, f.CountSize, unsafe.Add(addr, f.CountOffset)); err != nil {
					return err
				}
			}
		}
		return nil
	case KindString:
		*(*string)(addr) = ""
		return nil
	case KindBinary:
		*(*[]byte)(addr) = nil
		return nil
	case KindSequence, KindSequenceFixed:
		if count < 0 {
			return nil
		}
		entry := schema.Sequence.Entry
		entrySize := entryStorageSize(entry)
		for i := 0; i < count; i++ {
			if err := freeValue(entry, unsafe.Add(addr, uintptr(i)*entrySize), -1); err != nil {
				return err
			}
		}
		return nil
	default:
		// Int, Uint, Bool, Float, Enum, Bitfield, Flags: fixed-width
		// storage with no sub-pointer ever written into it.
		return nil
	}
}

// freeUnionField mirrors load/save/copy's discriminant resolution (spec
// §4.7): unlike those drivers, the discriminant's value here was never
// written by this call, so it's read intact regardless of the union
// field's position relative to its discriminant in the mapping's field
// order.
func freeUnionField(siblings []Field, f *Field, base unsafe.Pointer) error {
	u := f.Value
	for i := range siblings {
		if siblings[i].Key != u.Union.Discriminant {
			continue
		}
		disc := &siblings[i]
		raw, err := readInt(uint8(disc.Value.DataSize), unsafe.Add(base, disc.DataOffset))
		if err != nil {
			return err
		}
		dv := signPad(raw, uint8(disc.Value.DataSize))
		for _, ev := range disc.Value.Enum.Values {
			if ev.Value != dv {
				continue
			}
			for j := range u.Union.Fields {
				if u.Union.Fields[j].Key == ev.Name {
					variant := u.Union.Fields[j].Value
					n := -1
					if variant.Kind.isSequenceLike() && variant.Kind != KindFlags {
						n = variant.Sequence.Max
					}
					return freeValue(variant, unsafe.Add(base, f.DataOffset), n)
				}
			}
		}
		return newErr(UnionDiscNotFound, "no union variant matches discriminant value %d", dv)
	}
	return newErr(UnionDiscNotFound, "discriminant field %q not found in enclosing mapping", u.Union.Discriminant)
}
