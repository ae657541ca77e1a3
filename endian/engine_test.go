package endian

import (
	"encoding/binary"
	"testing"

	"github.com/arloliu/dexkit/errs"
	"github.com/stretchr/testify/require"
)

func TestEngineForTag(t *testing.T) {
	tests := []struct {
		name   string
		tag    uint32
		expect EndianEngine
	}{
		{"standard tag", EndianConstant, binary.LittleEndian},
		{"reverse tag", ReverseEndianConstant, binary.BigEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := EngineForTag(tt.tag)
			require.NoError(t, err)
			require.Equal(t, tt.expect, engine)
		})
	}

	t.Run("unknown tag", func(t *testing.T) {
		_, err := EngineForTag(0xdeadbeef)
		require.ErrorIs(t, err, errs.ErrInvalidEndianTag)
	})
}

func TestTagBytesRoundTrip(t *testing.T) {
	for _, engine := range []EndianEngine{GetLittleEndianEngine(), GetBigEndianEngine()} {
		raw := TagBytes(engine)
		require.Len(t, raw, 4)

		// the tag is always interpreted little-endian first
		got, err := EngineForTag(binary.LittleEndian.Uint32(raw))
		require.NoError(t, err)
		require.Equal(t, engine, got)
	}

	require.True(t, IsLittleEndian(GetLittleEndianEngine()))
	require.False(t, IsLittleEndian(GetBigEndianEngine()))
}
