package cyaml

import "unsafe"

// writeInt writes the low entrySize little-endian bytes of value to dst
// (spec §4.1). The engine is the only place that touches raw native memory
// this way; packing is always little-endian regardless of host order so
// that a given schema + bytes produce identical layouts on every platform
// (spec §9, "Endianness").
func writeInt(value uint64, entrySize uint8, dst unsafe.Pointer) error {
	if entrySize == 0 || entrySize > 8 {
		return newErr(InvalidDataSize, "entry size %d out of range 1..8", entrySize)
	}
	out := unsafe.Slice((*byte)(dst), entrySize)
	for i := uint8(0); i < entrySize; i++ {
		out[i] = byte(value >> (8 * i))
	}
	return nil
}

// readInt is the inverse of writeInt.
func readInt(entrySize uint8, src unsafe.Pointer) (uint64, error) {
	if entrySize == 0 || entrySize > 8 {
		return 0, newErr(InvalidDataSize, "entry size %d out of range 1..8", entrySize)
	}
	in := unsafe.Slice((*byte)(src), entrySize)
	var v uint64
	for i := uint8(0); i < entrySize; i++ {
		v |= uint64(in[i]) << (8 * i)
	}
	return v, nil
}

// signPad sign-extends the top bit of a size-byte unsigned value into a
// full signed int64 (spec §4.1).
func signPad(raw uint64, size uint8) int64 {
	if size >= 8 {
		return int64(raw)
	}
	bits := size * 8
	signBit := uint64(1) << (bits - 1)
	if raw&signBit != 0 {
		raw |= ^uint64(0) << bits
	}
	return int64(raw)
}
