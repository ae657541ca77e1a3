package dexkit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/dexkit/dex"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

func encodeSample(t *testing.T) []byte {
	t.Helper()

	c, err := New(dex.WithVersion(format.Version039))
	require.NoError(t, err)

	cls := dex.NewClassDef(c.InternType("Lcom/example/Main;"), format.AccPublic)
	cls.Superclass = c.InternType("Ljava/lang/Object;")
	cls.DirectMethods = []dex.EncodedMethod{{
		Method:      c.InternMethod("Lcom/example/Main;", "main", "V", "[Ljava/lang/String;"),
		AccessFlags: format.AccPublic | format.AccStatic,
		Code:        &dex.Code{Registers: 1, Ins: 1, Insns: []uint16{0x000e}},
	}}
	require.NoError(t, c.AddClass(cls))

	image, err := Encode(c)
	require.NoError(t, err)

	return image
}

func TestEncodeDecode(t *testing.T) {
	image := encodeSample(t)

	c, err := Decode(image, dex.WithVerifyIntegrity())
	require.NoError(t, err)
	require.Equal(t, format.Version039, c.Version())

	cls, ok := c.FindClass("Lcom/example/Main;")
	require.True(t, ok)
	require.Len(t, cls.DirectMethods, 1)

	name, err := c.MethodString(cls.DirectMethods[0].Method)
	require.NoError(t, err)
	require.Equal(t, "Lcom/example/Main;->main([Ljava/lang/String;)V", name)
}

func TestRewrite_Idempotent(t *testing.T) {
	image := encodeSample(t)

	once, err := Rewrite(image)
	require.NoError(t, err)
	require.Equal(t, image, once)

	twice, err := Rewrite(once, dex.WithDeduplication(false))
	require.NoError(t, err)
	require.Equal(t, once, twice)

	_, err = Rewrite(image[:10])
	require.ErrorIs(t, err, errs.ErrTruncatedInput)
}

func TestVerifyAndFinalize(t *testing.T) {
	image := encodeSample(t)

	report, err := Verify(image)
	require.NoError(t, err)
	require.True(t, report.OK())

	// bytes past file_size are not hashed
	padded := append(append([]byte(nil), image...), 0xAA, 0xBB)
	_, err = Verify(padded)
	require.NoError(t, err)

	image[len(image)-1] ^= 0x01
	report, err = Verify(image)
	require.ErrorIs(t, err, errs.ErrIntegrityMismatch)
	require.False(t, report.ChecksumOK())
	require.False(t, report.SignatureOK())

	require.NoError(t, Finalize(image))
	report, err = Verify(image)
	require.NoError(t, err)
	require.True(t, report.OK())
}

func TestVerify_Errors(t *testing.T) {
	image := encodeSample(t)

	_, err := Verify(image[:0x40])
	require.ErrorIs(t, err, errs.ErrTruncatedInput)

	_, err = Verify(image[:len(image)-4])
	require.ErrorIs(t, err, errs.ErrTruncatedInput)

	require.ErrorIs(t, Finalize(image[:len(image)-4]), errs.ErrTruncatedInput)
}
