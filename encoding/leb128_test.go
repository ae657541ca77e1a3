package encoding

import (
	"testing"

	"github.com/arloliu/dexkit/errs"
	"github.com/stretchr/testify/require"
)

func TestUleb128(t *testing.T) {
	tests := []struct {
		name    string
		value   uint32
		encoded []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"max single byte", 0x7f, []byte{0x7f}},
		{"two bytes", 0x80, []byte{0x80, 0x01}},
		{"3fff", 0x3fff, []byte{0xff, 0x7f}},
		{"max uint32", 0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.encoded, AppendUleb128(nil, tt.value))
			require.Equal(t, len(tt.encoded), Uleb128Size(tt.value))

			v, n, err := ReadUleb128(tt.encoded)
			require.NoError(t, err)
			require.Equal(t, tt.value, v)
			require.Equal(t, len(tt.encoded), n)
		})
	}
}

func TestSleb128(t *testing.T) {
	tests := []struct {
		name    string
		value   int32
		encoded []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"minus one", -1, []byte{0x7f}},
		{"minus 128", -128, []byte{0x80, 0x7f}},
		{"63", 63, []byte{0x3f}},
		{"64 needs two bytes", 64, []byte{0xc0, 0x00}},
		{"max int32", 2147483647, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		{"min int32", -2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x78}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.encoded, AppendSleb128(nil, tt.value))

			v, n, err := ReadSleb128(tt.encoded)
			require.NoError(t, err)
			require.Equal(t, tt.value, v)
			require.Equal(t, len(tt.encoded), n)
		})
	}
}

func TestUleb128p1(t *testing.T) {
	require.Equal(t, []byte{0x00}, AppendUleb128p1(nil, 0xffffffff))
	require.Equal(t, []byte{0x01}, AppendUleb128p1(nil, 0))

	v, n, err := ReadUleb128p1([]byte{0x00})
	require.NoError(t, err)
	require.Equal(t, uint32(0xffffffff), v, "zero encodes the no-index sentinel")
	require.Equal(t, 1, n)

	v, _, err = ReadUleb128p1([]byte{0x80, 0x01})
	require.NoError(t, err)
	require.Equal(t, uint32(0x7f), v)
}

func TestLeb128_Errors(t *testing.T) {
	t.Run("five continuation bytes", func(t *testing.T) {
		data := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
		_, _, err := ReadUleb128(data)
		require.ErrorIs(t, err, errs.ErrMalformedVarint)

		_, _, err = ReadSleb128(data)
		require.ErrorIs(t, err, errs.ErrMalformedVarint)

		_, _, err = ReadUleb128p1(data)
		require.ErrorIs(t, err, errs.ErrMalformedVarint)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := ReadUleb128([]byte{0x80, 0x80})
		require.ErrorIs(t, err, errs.ErrTruncatedInput)

		_, _, err = ReadSleb128(nil)
		require.ErrorIs(t, err, errs.ErrTruncatedInput)
	})
}

func BenchmarkReadUleb128(b *testing.B) {
	data := AppendUleb128(nil, 0x0fffffff)
	for b.Loop() {
		_, _, _ = ReadUleb128(data)
	}
}
