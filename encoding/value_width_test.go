package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignedWidth(t *testing.T) {
	tests := []struct {
		value int64
		width int
	}{
		{0, 1}, {127, 1}, {-128, 1}, {128, 2}, {-129, 2},
		{32767, 2}, {-32768, 2}, {1 << 31, 5}, {math.MinInt64, 8}, {math.MaxInt64, 8},
	}
	for _, tt := range tests {
		width := SignedWidth(tt.value)
		require.Equal(t, tt.width, width, "value %d", tt.value)

		payload := AppendSigned(nil, tt.value, width)
		require.Equal(t, tt.value, ParseSigned(payload))
	}
}

func TestUnsignedWidth(t *testing.T) {
	require.Equal(t, 1, UnsignedWidth(0))
	require.Equal(t, 1, UnsignedWidth(0xff))
	require.Equal(t, 2, UnsignedWidth(0x100))
	require.Equal(t, 4, UnsignedWidth(0xffffffff))

	payload := AppendUnsigned(nil, 0xfffe, UnsignedWidth(0xfffe))
	require.Equal(t, []byte{0xfe, 0xff}, payload)
	require.Equal(t, uint64(0xfffe), ParseUnsigned(payload))
}

func TestRightZeroExtended(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		width int
	}{
		{"zero", 0, 1},
		{"double 1.0", math.Float64bits(1.0), 2},
		{"float 1.0 in high half", uint64(math.Float32bits(1.0)) << 32, 2},
		{"dense mantissa", math.Float64bits(math.Pi), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			width := RightZeroExtendedWidth(tt.value)
			require.Equal(t, tt.width, width)

			payload := AppendRightZeroExtended(nil, tt.value, width)
			require.Len(t, payload, width)
			require.Equal(t, tt.value, ParseRightZeroExtended(payload))
		})
	}
}
