package archive

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
	"github.com/stretchr/testify/require"
)

var allCompressions = []format.CompressionType{
	format.CompressionNone,
	format.CompressionZstd,
	format.CompressionS2,
	format.CompressionLZ4,
}

// buildImage encodes a container with n classes, each holding one method.
func buildImage(tb testing.TB, n int) []byte {
	tb.Helper()

	c, err := dex.New()
	require.NoError(tb, err)

	for i := range n {
		desc := fmt.Sprintf("Lcom/example/Class%d;", i)
		cls := dex.NewClassDef(c.InternType(desc), format.AccPublic)
		cls.Superclass = c.InternType("Ljava/lang/Object;")
		cls.VirtualMethods = []dex.EncodedMethod{{
			Method:      c.InternMethod(desc, "run", "V"),
			AccessFlags: format.AccPublic,
			Code:        &dex.Code{Registers: 1, Ins: 1, Insns: []uint16{0x000e}},
		}}
		require.NoError(tb, c.AddClass(cls))
	}

	image, err := dex.Encode(c)
	require.NoError(tb, err)

	return image
}

func TestWriterReader_RoundTrip(t *testing.T) {
	images := map[string][]byte{
		"classes.dex":  buildImage(t, 1),
		"classes2.dex": buildImage(t, 20),
		"empty.bin":    {},
	}
	order := []string{"classes.dex", "classes2.dex", "empty.bin"}

	for _, ct := range allCompressions {
		t.Run(ct.String(), func(t *testing.T) {
			w, err := NewWriter(WithCompression(ct))
			require.NoError(t, err)
			require.Equal(t, ct, w.Compression())

			for _, name := range order {
				require.NoError(t, w.Add(name, images[name]))
			}
			require.Equal(t, 3, w.Len())

			data, err := w.Bytes()
			require.NoError(t, err)
			require.Equal(t, Magic, string(data[:4]))

			r, err := Open(data)
			require.NoError(t, err)
			require.Equal(t, ct, r.Compression())
			require.Equal(t, 3, r.Len())
			require.Equal(t, order, r.Names())

			for _, name := range order {
				raw, err := r.Read(name)
				require.NoError(t, err)
				require.Len(t, raw, len(images[name]))
				if len(raw) > 0 {
					require.Equal(t, images[name], raw)
				}

				e, ok := r.Entry(name)
				require.True(t, ok)
				require.Equal(t, uint32(len(images[name])), e.RawSize)
			}

			c, err := r.Decode("classes2.dex", dex.WithVerifyIntegrity())
			require.NoError(t, err)
			require.Len(t, c.Classes(), 20)
		})
	}
}

func TestWriter_AddContainer(t *testing.T) {
	c, err := dex.New()
	require.NoError(t, err)
	require.NoError(t, c.AddClass(dex.NewClassDef(c.InternType("LMain;"), format.AccPublic)))

	w, err := NewWriter()
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, w.Compression())
	require.NoError(t, w.AddContainer("classes.dex", c))

	data, err := w.Bytes()
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)

	got, err := r.Decode("classes.dex")
	require.NoError(t, err)
	require.Equal(t, c.Classes(), got.Classes())

	stats, err := r.Stats("classes.dex")
	require.NoError(t, err)
	require.Equal(t, format.CompressionZstd, stats.Algorithm)
	require.Positive(t, stats.OriginalSize)
}

func TestWriter_Errors(t *testing.T) {
	_, err := NewWriter(WithCompression(format.CompressionType(0x42)))
	require.ErrorIs(t, err, errs.ErrInvalidArchive)

	w, err := NewWriter()
	require.NoError(t, err)

	require.ErrorIs(t, w.Add("", []byte{1}), errs.ErrInvalidArchive)
	require.NoError(t, w.Add("a", []byte{1}))
	require.ErrorIs(t, w.Add("a", []byte{2}), errs.ErrDuplicateEntry)

	c, err := dex.New()
	require.NoError(t, err)
	cls := dex.NewClassDef(c.InternType("LBad;"), 0)
	cls.Superclass = 99
	require.NoError(t, c.AddClass(cls))
	require.ErrorIs(t, w.AddContainer("bad.dex", c), errs.ErrIndexOutOfRange)
	require.Equal(t, 1, w.Len())
}

func TestWriter_NoneCopiesInput(t *testing.T) {
	w, err := NewWriter(WithCompression(format.CompressionNone))
	require.NoError(t, err)

	image := []byte("dex\n035\x00")
	require.NoError(t, w.Add("a", image))
	image[0] = 'X'

	data, err := w.Bytes()
	require.NoError(t, err)
	r, err := Open(data)
	require.NoError(t, err)

	raw, err := r.Read("a")
	require.NoError(t, err)
	require.Equal(t, []byte("dex\n035\x00"), raw)
}

func TestReader_Errors(t *testing.T) {
	w, err := NewWriter(WithCompression(format.CompressionNone))
	require.NoError(t, err)
	require.NoError(t, w.Add("classes.dex", []byte("payload")))
	valid, err := w.Bytes()
	require.NoError(t, err)

	// header(12) + name len(2) + name(11) + raw(4) + stored(4) + hash(8)
	payloadOff := headerSize + 2 + len("classes.dex") + 16

	mutate := func(fn func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return fn(b)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad_magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"bad_version", mutate(func(b []byte) []byte { binary.LittleEndian.PutUint16(b[4:], 9); return b })},
		{"bad_codec", mutate(func(b []byte) []byte { b[6] = 0x42; return b })},
		{"reserved_set", mutate(func(b []byte) []byte { b[7] = 1; return b })},
		{"count_too_large", mutate(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[8:], 1000); return b })},
		{"truncated_entry", valid[:len(valid)-1]},
		{"trailing_bytes", append(append([]byte(nil), valid...), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.data)
			require.ErrorIs(t, err, errs.ErrInvalidArchive)
		})
	}

	t.Run("hash_mismatch", func(t *testing.T) {
		data := mutate(func(b []byte) []byte { b[payloadOff] ^= 0xFF; return b })
		r, err := Open(data)
		require.NoError(t, err)

		_, err = r.Read("classes.dex")
		require.ErrorIs(t, err, errs.ErrHashMismatch)
	})

	t.Run("not_found", func(t *testing.T) {
		r, err := Open(valid)
		require.NoError(t, err)

		_, err = r.Read("missing.dex")
		require.ErrorIs(t, err, errs.ErrEntryNotFound)
		_, err = r.Stats("missing.dex")
		require.ErrorIs(t, err, errs.ErrEntryNotFound)
		_, ok := r.Entry("missing.dex")
		require.False(t, ok)
	})

	t.Run("not_a_dex", func(t *testing.T) {
		r, err := Open(valid)
		require.NoError(t, err)

		_, err = r.Decode("classes.dex")
		require.ErrorIs(t, err, errs.ErrTruncatedInput)
	})
}

func TestReader_Entries(t *testing.T) {
	w, err := NewWriter(WithCompression(format.CompressionS2))
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, w.Add(fmt.Sprintf("classes%d.dex", i), buildImage(t, i+1)))
	}
	data, err := w.Bytes()
	require.NoError(t, err)

	r, err := Open(data)
	require.NoError(t, err)

	seen := 0
	for i, e := range r.Entries() {
		require.Equal(t, fmt.Sprintf("classes%d.dex", i), e.Name)
		seen++
		if i == 2 {
			break
		}
	}
	require.Equal(t, 3, seen)
}

func BenchmarkReader_Read(b *testing.B) {
	image := buildImage(b, 200)

	for _, ct := range allCompressions {
		w, _ := NewWriter(WithCompression(ct))
		_ = w.Add("classes.dex", image)
		data, _ := w.Bytes()
		r, err := Open(data)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(ct.String(), func(b *testing.B) {
			b.SetBytes(int64(len(image)))
			for b.Loop() {
				_, _ = r.Read("classes.dex")
			}
		})
	}
}
