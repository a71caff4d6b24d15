package cyaml

import "unsafe"

// cloner holds the state of one Copy call. It walks schema once, reading
// from dataIn and writing to dataOut at every frame simultaneously, which is
// exactly what frame already carries both addresses for (spec §2 component
// 3, §4.6).
type cloner struct {
	cfg    *Config
	schema *Schema
	stack  *stack
}

// Copy produces an independent clone of the value at in into the storage
// addressed by out, following the same Pointer-flagged-vs-embedded
// conventions as Load and Save (spec §4.6, §6.2).
//
// topSeqCountIn gives the entry count of a top-level Sequence/SequenceFixed
// source value; topSeqCountOut receives the cloned value's entry count
// (always equal, since Copy does not filter entries, but kept distinct for
// symmetry with Load/Save's parameter shape). Each source sequence's count
// is checked against the schema's maximum; the minimum is not re-checked.
func Copy(cfg *Config, schema *Schema, in, out unsafe.Pointer, topSeqCountIn, topSeqCountOut *int) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	if schema == nil {
		return newErr(BadParamNullSchema, "schema is nil")
	}
	if in == nil || out == nil {
		return newErr(BadParamNullData, "in/out must both be non-nil")
	}
	if err := schema.Validate(); err != nil {
		return err
	}
	if schema.Kind.isSequenceLike() && schema.Kind != KindFlags && (topSeqCountIn == nil || topSeqCountOut == nil) {
		return newErr(BadParamSeqCount, "a top level sequence schema requires both top level count pointers")
	}

	c := &cloner{
		cfg:    cfg,
		schema: schema,
		stack:  &stack{topCountIn: topSeqCountIn, topCountOut: topSeqCountOut},
	}
	if err := c.copyValue(schema, in, out); err != nil {
		return c.annotate(err)
	}
	return c.drain()
}

// drain finishes any Mapping/Sequence frames copyValue's top-level call
// left pushed (anything composite pushes and returns immediately, the same
// convention load and save use).
func (c *cloner) drain() error {
	for {
		top := c.stack.top()
		if top == nil {
			return nil
		}
		var err error
		switch top.state {
		case stateInMappingKey:
			err = c.stepMapping(top)
		case stateInSequence:
			err = c.stepSequence(top)
		}
		if err != nil {
			return c.annotate(err)
		}
	}
}

func (c *cloner) annotate(err error) error {
	ce, ok := err.(*Error)
	if !ok || ce.Backtrace != nil {
		return err
	}
	for _, f := range c.stack.frames {
		if f.schema == nil {
			continue
		}
		bf := Frame{Kind: f.schema.Kind}
		if f.state == stateInMappingKey && f.fieldIndex > 0 && f.fieldIndex <= len(f.fields) {
			bf.Field = f.fields[f.fieldIndex-1].Key
		}
		if f.state == stateInSequence {
			bf.Index = f.index
		}
		ce.Backtrace = append(ce.Backtrace, bf)
	}
	return ce
}

func (c *cloner) stepMapping(top *frame) error {
	if top.fieldIndex >= len(top.fields) {
		c.stack.pop()
		if top.schema.Kind == KindMapping && top.schema.Mapping.Validator != nil {
			if err := top.schema.Mapping.Validator(c.cfg.ValidationCtx, top.schema, top.dataOut); err != nil {
				return wrapErr(InvalidValue, err, "mapping validator rejected value")
			}
		}
		return nil
	}
	field := &top.fields[top.fieldIndex]
	top.fieldIndex++
	if field.Value.Kind == KindIgnore {
		return nil
	}
	top.activeField = field
	err := c.copyValue(field.Value, unsafe.Add(top.dataIn, field.DataOffset), unsafe.Add(top.dataOut, field.DataOffset))
	top.activeField = nil
	return err
}

func (c *cloner) stepSequence(top *frame) error {
	n, err := top.readCount()
	if err != nil {
		return err
	}
	if top.index >= n {
		if err := top.writeCount(n); err != nil {
			return err
		}
		if top.schema.Sequence.Validator != nil {
			if err := top.schema.Sequence.Validator(c.cfg.ValidationCtx, top.schema, top.entriesOut); err != nil {
				return wrapErr(InvalidValue, err, "sequence validator rejected value")
			}
		}
		c.stack.pop()
		return nil
	}
	entry := top.schema.Sequence.Entry
	src := unsafe.Add(top.dataIn, uintptr(top.index)*top.entrySize)
	dst := unsafe.Add(top.entriesOut, uintptr(top.index)*top.entrySize)
	top.index++
	return c.copyValue(entry, src, dst)
}

// copyValue is the shared dispatcher, the Copy-side analogue of load's
// readValue/save's writeValue.
func (c *cloner) copyValue(schema *Schema, src, dst unsafe.Pointer) error {
	if schema.Kind == KindIgnore {
		return nil
	}
	if schema.Flags.has(FlagPointer) {
		ptr := *(*unsafe.Pointer)(src)
		if ptr == nil {
			*(*unsafe.Pointer)(dst) = nil
			return nil
		}
		return c.copyPointerValue(schema, ptr, dst)
	}
	return c.copyInline(schema, src, dst)
}

func (c *cloner) copyPointerValue(schema *Schema, src, dst unsafe.Pointer) error {
	switch schema.Kind {
	case KindString:
		cell := make([]string, 1)
		*(*unsafe.Pointer)(dst) = unsafe.Pointer(&cell[0])
		return c.copyInline(schema, src, unsafe.Pointer(&cell[0]))
	case KindBinary:
		cell := make([][]byte, 1)
		*(*unsafe.Pointer)(dst) = unsafe.Pointer(&cell[0])
		return c.copyInline(schema, src, unsafe.Pointer(&cell[0]))
	case KindSequence, KindSequenceFixed, KindFlags:
		// src is already the source entries array; the destination pointer
		// slot is filled once the pushed sequence frame knows its final
		// count (see pushCopySequence).
		return c.copyInline(schema, src, dst)
	case KindMapping, KindUnion:
		ptr := allocTyped(schema.GoType)
		*(*unsafe.Pointer)(dst) = ptr
		return c.copyInline(schema, src, ptr)
	default:
		ptr := alloc(schema.DataSize)
		*(*unsafe.Pointer)(dst) = ptr
		return c.copyInline(schema, src, ptr)
	}
}

func (c *cloner) copyInline(schema *Schema, src, dst unsafe.Pointer) error {
	switch schema.Kind {
	case KindInt, KindUint, KindBool, KindFloat, KindEnum, KindBitfield, KindFlags:
		copy(unsafe.Slice((*byte)(dst), schema.DataSize), unsafe.Slice((*byte)(src), schema.DataSize))
		return runCopyValidator(c, schema, dst)
	case KindString:
		*(*string)(dst) = *(*string)(src)
		return runCopyValidator(c, schema, dst)
	case KindBinary:
		orig := *(*[]byte)(src)
		dup := append([]byte(nil), orig...)
		*(*[]byte)(dst) = dup
		return nil
	case KindMapping, KindUnion:
		if schema.Kind == KindUnion {
			variant, err := c.resolveUnionVariant(schema, dst)
			if err != nil {
				return err
			}
			return c.copyValue(variant.Value, src, dst)
		}
		_, err := c.stack.push(stateInMappingKey, schema, src, dst, 0)
		return err
	case KindSequence, KindSequenceFixed:
		return c.pushCopySequence(schema, src, dst)
	default:
		return newErr(InternalError, "unhandled kind %s in copyInline", schema.Kind)
	}
}

func runCopyValidator(c *cloner, schema *Schema, dst unsafe.Pointer) error {
	v := validatorOf(schema)
	if v == nil {
		return nil
	}
	if err := v(c.cfg.ValidationCtx, schema, dst); err != nil {
		return wrapErr(InvalidValue, err, "validator rejected copied value")
	}
	return nil
}

func validatorOf(schema *Schema) Validator {
	switch schema.Kind {
	case KindInt:
		return schema.Int.Validator
	case KindUint:
		return schema.Uint.Validator
	case KindBool:
		return schema.Bool.Validator
	case KindFloat:
		return schema.Float.Validator
	case KindEnum:
		return schema.Enum.Validator
	case KindString:
		return schema.String.Validator
	case KindBitfield:
		return schema.Bitfield.Validator
	case KindFlags:
		return schema.FlagsSet.Validator
	default:
		return nil
	}
}

// pushCopySequence determines the source count up front (unlike load, Copy
// never has to grow a buffer speculatively: the final size is already known
// before the first entry is copied) and allocates an exactly-sized
// destination buffer immediately.
func (c *cloner) pushCopySequence(schema *Schema, src, dst unsafe.Pointer) error {
	entrySize := entryStorageSize(schema.Sequence.Entry)
	f, err := c.stack.push(stateInSequence, schema, src, dst, entrySize)
	if err != nil {
		return err
	}
	n, err := f.readCount()
	if err != nil {
		return err
	}
	if schema.Sequence.Max != 0 && n > schema.Sequence.Max {
		return newErr(SequenceEntriesMax, "sequence has %d entries, want at most %d", n, schema.Sequence.Max)
	}

	switch {
	case schema.Kind == KindSequenceFixed && schema.Flags.has(FlagPointer):
		buf := allocEntries(schema.Sequence.EntryGoType, n, entrySize)
		*(*unsafe.Pointer)(dst) = buf
		f.entriesOut = buf
	case schema.Kind == KindSequenceFixed:
		f.entriesOut = dst
	default:
		buf := allocEntries(schema.Sequence.EntryGoType, n, entrySize)
		*(*unsafe.Pointer)(dst) = buf
		f.entriesOut = buf
	}
	return nil
}

func (c *cloner) resolveUnionVariant(schema *Schema, dstBase unsafe.Pointer) (*Field, error) {
	top := c.stack.top()
	if top == nil || top.schema == nil || top.schema.Kind != KindMapping {
		return nil, newErr(UnionDiscNotFound, "union discriminant %q has no enclosing mapping", schema.Union.Discriminant)
	}
	for i := range top.fields {
		if top.fields[i].Key != schema.Union.Discriminant {
			continue
		}
		discField := &top.fields[i]
		raw, err := readInt(uint8(discField.Value.DataSize), unsafe.Add(top.dataOut, discField.DataOffset))
		if err != nil {
			return nil, err
		}
		disc := signPad(raw, uint8(discField.Value.DataSize))
		for _, ev := range discField.Value.Enum.Values {
			if ev.Value != disc {
				continue
			}
			for j := range schema.Union.Fields {
				if schema.Union.Fields[j].Key == ev.Name {
					return &schema.Union.Fields[j], nil
				}
			}
		}
		return nil, newErr(UnionDiscNotFound, "no union variant matches discriminant value %d", disc)
	}
	return nil, newErr(UnionDiscNotFound, "discriminant field %q not found in enclosing mapping", schema.Union.Discriminant)
}
