package integrity

import (
	"testing"

	"github.com/arloliu/dexkit/endian"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/section"
	"github.com/stretchr/testify/require"
)

func testImage() []byte {
	image := make([]byte, 0x100)
	copy(image, "dex\n035\x00")
	for i := section.HeaderSize; i < len(image); i++ {
		image[i] = byte(i * 7)
	}

	return image
}

func TestFinalizeThenVerify(t *testing.T) {
	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		image := testImage()
		require.NoError(t, Finalize(image, engine))

		report, err := Verify(image, engine)
		require.NoError(t, err)
		require.True(t, report.OK())
		require.Equal(t, Checksum(image), engine.Uint32(image[section.ChecksumOffset:]))
	}
}

func TestChecksumCoversSignature(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	image := testImage()
	require.NoError(t, Finalize(image, engine))

	// a stale signature byte breaks both values: the checksum covers it
	image[section.SignatureOffset] ^= 0xff
	report, err := Verify(image, engine)
	require.ErrorIs(t, err, errs.ErrIntegrityMismatch)
	require.False(t, report.SignatureOK())
	require.False(t, report.ChecksumOK())
}

func TestVerify_BodyCorruption(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	image := testImage()
	require.NoError(t, Finalize(image, engine))

	image[0xf0] ^= 0x01
	report, err := Verify(image, engine)
	require.ErrorIs(t, err, errs.ErrIntegrityMismatch)
	require.NotNil(t, report)
	require.False(t, report.ChecksumOK())
	require.False(t, report.SignatureOK())
}

func TestVerify_ChecksumFieldOnly(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	image := testImage()
	require.NoError(t, Finalize(image, engine))

	image[section.ChecksumOffset] ^= 0x01
	report, err := Verify(image, engine)
	require.ErrorIs(t, err, errs.ErrIntegrityMismatch)
	require.True(t, report.SignatureOK(), "signature does not cover the checksum")
	require.False(t, report.ChecksumOK())
}

func TestShortImage(t *testing.T) {
	engine := endian.GetLittleEndianEngine()
	require.ErrorIs(t, Finalize(make([]byte, 10), engine), errs.ErrTruncatedInput)

	_, err := Verify(make([]byte, 10), engine)
	require.ErrorIs(t, err, errs.ErrTruncatedInput)
}
