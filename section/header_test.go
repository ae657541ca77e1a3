package section

import (
	"testing"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/stretchr/testify/require"
)

func sampleHeader(engine endian.EndianEngine) *Header {
	h := NewHeader(format.Version038, engine)
	h.Checksum = 0x01020304
	for i := range h.Signature {
		h.Signature[i] = byte(i)
	}
	h.FileSize = 0x400
	h.MapOffset = 0x3f0
	h.StringIDs = Extent{Size: 3, Offset: 0x70}
	h.TypeIDs = Extent{Size: 2, Offset: 0x7c}
	h.ClassDefs = Extent{Size: 1, Offset: 0x84}
	h.Data = Extent{Size: 0x35c, Offset: 0xa4}

	return h
}

func TestNewHeader(t *testing.T) {
	h := NewHeader(format.DefaultVersion, endian.GetLittleEndianEngine())

	require.Equal(t, format.Version035, h.Version)
	require.Equal(t, uint32(HeaderSize), h.HeaderSize)
	require.Equal(t, endian.EndianConstant, h.EndianTag)

	big := NewHeader(format.DefaultVersion, endian.GetBigEndianEngine())
	require.Equal(t, endian.ReverseEndianConstant, big.EndianTag)
	require.Equal(t, endian.GetBigEndianEngine(), big.GetEndianEngine())
}

func TestHeader_Parse(t *testing.T) {
	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		original := sampleHeader(engine)
		data := original.Bytes()
		require.Len(t, data, HeaderSize)
		require.Equal(t, "dex\n038\x00", string(data[:8]))

		parsed := &Header{}
		require.NoError(t, parsed.Parse(data))
		require.Equal(t, *original, *parsed)
	}

	t.Run("Invalid size", func(t *testing.T) {
		header := &Header{}
		err := header.Parse([]byte{1, 2, 3})
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Bad header_size field", func(t *testing.T) {
		data := sampleHeader(endian.GetLittleEndianEngine()).Bytes()
		data[36] = 0x71
		err := (&Header{}).Parse(data)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Bad endian tag", func(t *testing.T) {
		data := sampleHeader(endian.GetLittleEndianEngine()).Bytes()
		data[EndianTagOffset] = 0
		err := (&Header{}).Parse(data)
		require.ErrorIs(t, err, errs.ErrInvalidEndianTag)
	})
}

func TestParseMagic(t *testing.T) {
	tests := []struct {
		name    string
		magic   string
		version format.Version
		wantErr bool
	}{
		{"035", "dex\n035\x00", format.Version035, false},
		{"039", "dex\n039\x00", format.Version039, false},
		{"040", "dex\n040\x00", format.Version040, false},
		{"container format", "dex\n041\x00", 0, true},
		{"ancient", "dex\n009\x00", 0, true},
		{"not dex", "cafebabe", 0, true},
		{"missing nul", "dex\n035x", 0, true},
		{"letters", "dex\n0a5\x00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseMagic([]byte(tt.magic))
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.version, v)
		})
	}
}

func TestParseHeader_Truncated(t *testing.T) {
	data := sampleHeader(endian.GetLittleEndianEngine()).Bytes()
	_, err := ParseHeader(data[:HeaderSize-1])
	require.ErrorIs(t, err, errs.ErrTruncatedInput)

	h, err := ParseHeader(append(data, 0xff))
	require.NoError(t, err)
	require.Equal(t, uint32(0x400), h.FileSize)
}

func TestHeader_EmptyExtentWritesZeroOffset(t *testing.T) {
	h := sampleHeader(endian.GetLittleEndianEngine())
	h.ProtoIDs = Extent{Size: 0, Offset: 0x1234}

	parsed, err := ParseHeader(h.Bytes())
	require.NoError(t, err)
	require.Equal(t, Extent{}, parsed.ProtoIDs)
	require.Equal(t, uint64(0x70+3*StringIDSize), parsed.StringIDs.End(StringIDSize))
}
