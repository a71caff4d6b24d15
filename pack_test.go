package cyaml

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestWriteReadIntRoundTrip(t *testing.T) {
	for size := uint8(1); size <= 8; size++ {
		var max uint64
		if size == 8 {
			max = ^uint64(0)
		} else {
			max = (uint64(1) << (size * 8)) - 1
		}
		for _, v := range []uint64{0, 1, max, max / 2} {
			buf := make([]byte, 8)
			err := writeInt(v, size, unsafe.Pointer(&buf[0]))
			require.NoError(t, err)
			got, err := readInt(size, unsafe.Pointer(&buf[0]))
			require.NoError(t, err)
			require.Equal(t, v, got, "size=%d v=%d", size, v)
		}
	}
}

func TestWriteIntInvalidSize(t *testing.T) {
	buf := make([]byte, 8)
	require.Error(t, must(writeInt(1, 0, unsafe.Pointer(&buf[0]))))
	require.Error(t, must(writeInt(1, 9, unsafe.Pointer(&buf[0]))))
	_, err := readInt(0, unsafe.Pointer(&buf[0]))
	require.Error(t, err)
	_, err = readInt(9, unsafe.Pointer(&buf[0]))
	require.Error(t, err)
}

func must(err error) error { return err }

func TestSignPadRoundTrip(t *testing.T) {
	cases := []struct {
		size uint8
		v    int64
	}{
		{1, 0}, {1, -1}, {1, 127}, {1, -128},
		{2, 32767}, {2, -32768},
		{4, 2147483647}, {4, -2147483648},
		{8, 9223372036854775807}, {8, -9223372036854775808},
	}
	for _, c := range cases {
		buf := make([]byte, 8)
		err := writeInt(uint64(c.v), c.size, unsafe.Pointer(&buf[0]))
		require.NoError(t, err)
		raw, err := readInt(c.size, unsafe.Pointer(&buf[0]))
		require.NoError(t, err)
		require.Equal(t, c.v, signPad(raw, c.size), "size=%d v=%d", c.size, c.v)
	}
}

func FuzzSignPadRoundTrip(f *testing.F) {
	f.Add(uint8(4), int64(-12345))
	f.Fuzz(func(t *testing.T, size uint8, v int64) {
		if size == 0 || size > 8 {
			t.Skip()
		}
		buf := make([]byte, 8)
		if err := writeInt(uint64(v), size, unsafe.Pointer(&buf[0])); err != nil {
			t.Fatal(err)
		}
		raw, err := readInt(size, unsafe.Pointer(&buf[0]))
		if err != nil {
			t.Fatal(err)
		}
		got := signPad(raw, size)
		// Only the low `size` bytes of v are meaningful; compare after the
		// same truncation/sign-extension round trip instead of to v itself.
		want := signPad(uint64(v), size)
		if got != want {
			t.Fatalf("size=%d v=%d got=%d want=%d", size, v, got, want)
		}
	})
}
