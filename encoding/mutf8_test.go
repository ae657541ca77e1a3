package encoding

import (
	"testing"

	"github.com/arloliu/dexkit/errs"
	"github.com/stretchr/testify/require"
)

func TestMUTF8_Encode(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		encoded []byte
		units   int
	}{
		{"empty", "", nil, 0},
		{"ascii", "Lfoo;", []byte("Lfoo;"), 5},
		{"nul uses two bytes", "a\x00b", []byte{'a', 0xc0, 0x80, 'b'}, 3},
		{"two byte char", "é", []byte{0xc3, 0xa9}, 1},
		{"three byte char", "€", []byte{0xe2, 0x82, 0xac}, 1},
		{"supplementary as surrogate pair", "😀", []byte{0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.encoded, AppendMUTF8(nil, tt.text))
			require.Equal(t, tt.units, UTF16Length(tt.text))

			terminated := append(AppendMUTF8(nil, tt.text), 0)
			s, units, n, err := DecodeMUTF8(terminated)
			require.NoError(t, err)
			require.Equal(t, tt.text, s)
			require.Equal(t, tt.units, units)
			require.Equal(t, len(terminated), n)
		})
	}
}

func TestMUTF8_LoneSurrogateRoundTrip(t *testing.T) {
	raw := []byte{'x', 0xed, 0xa0, 0x80, 'y', 0}

	s, units, _, err := DecodeMUTF8(raw)
	require.NoError(t, err)
	require.Equal(t, 3, units)
	require.Equal(t, raw[:len(raw)-1], AppendMUTF8(nil, s), "unpaired surrogate re-encodes unchanged")
	require.Equal(t, 3, UTF16Length(s))
}

func TestMUTF8_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"bad second byte", []byte{0xc3, 0x41, 0}},
		{"bad third byte", []byte{0xe2, 0x82, 0x41, 0}},
		{"truncated two byte", []byte{0xc3}},
		{"truncated three byte", []byte{0xe2, 0x82}},
		{"invalid lead byte", []byte{0xf0, 0x9f, 0x98, 0x80, 0}},
		{"missing terminator", []byte("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := DecodeMUTF8(tt.data)
			require.ErrorIs(t, err, errs.ErrMalformedString)
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		valid bool
	}{
		{"ascii", "Lfoo;", true},
		{"replacement char", "\uFFFD", true},
		{"supplementary", "😀", true},
		{"lone high surrogate", "x\xed\xa0\x80y", true},
		{"lone low surrogate", "\xed\xb0\x80", true},
		{"two high surrogates", "\xed\xa0\x80\xed\xa0\x81", true},
		{"invalid byte", "\xff", false},
		{"truncated sequence", "a\xe2\x82", false},
		{"overlong form", "\xc0\x80", false},
		{"generalized surrogate pair", "\xed\xa0\xbd\xed\xb8\x80", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString(tt.text)
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errs.ErrMalformedString)
		})
	}
}

func TestStringData(t *testing.T) {
	encoded := AppendStringData(nil, "h😀")
	require.Equal(t, byte(3), encoded[0], "length prefix counts UTF-16 units")
	require.Equal(t, byte(0), encoded[len(encoded)-1])

	s, n, err := ReadStringData(encoded)
	require.NoError(t, err)
	require.Equal(t, "h😀", s)
	require.Equal(t, len(encoded), n)

	t.Run("declared length mismatch", func(t *testing.T) {
		bad := append([]byte{}, encoded...)
		bad[0] = 2
		_, _, err := ReadStringData(bad)
		require.ErrorIs(t, err, errs.ErrMalformedString)
	})
}
