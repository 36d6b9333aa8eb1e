package imgrec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutRecordRoundTrip(t *testing.T) {
	compressed := []byte{1, 2, 3, 4, 5}
	dst := make([]byte, recordOnWireSize(len(compressed)))
	n := putRecord(dst, 42, 1.5, compressed)
	require.Equal(t, len(dst), n)

	frame, next, err := parseRecordAt(dst, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(42), frame.imageIndex)
	require.Equal(t, float32(1.5), frame.headerLabel)
	require.Equal(t, compressed, frame.compressed)
	require.Equal(t, len(dst), next)
}

func TestParseRecordAtBadMagic(t *testing.T) {
	dst := make([]byte, recordOnWireSize(3))
	putRecord(dst, 1, 0, []byte{1, 2, 3})
	dst[0] ^= 0xFF
	_, _, err := parseRecordAt(dst, 0)
	require.ErrorIs(t, err, ErrFraming)
}

func TestParseRecordAtCorruptedCRC(t *testing.T) {
	dst := make([]byte, recordOnWireSize(3))
	putRecord(dst, 1, 0, []byte{1, 2, 3})
	dst[len(dst)-1] ^= 0xFF // flip a byte in the trailing CRC
	_, _, err := parseRecordAt(dst, 0)
	require.ErrorIs(t, err, ErrFraming)
}

func TestParseRecordAtTruncated(t *testing.T) {
	dst := make([]byte, recordOnWireSize(3))
	putRecord(dst, 1, 0, []byte{1, 2, 3})
	_, _, err := parseRecordAt(dst[:len(dst)-1], 0)
	require.ErrorIs(t, err, ErrFraming)
}

func TestMultipleRecordsSequential(t *testing.T) {
	archive := buildArchive([]fixtureRecord{
		{index: 10, headerLabel: 0, compressed: []byte{1}},
		{index: 11, headerLabel: 1, compressed: []byte{2, 2}},
		{index: 12, headerLabel: 0, compressed: []byte{3, 3, 3}},
	})

	off := 0
	var indices []uint64
	for off < len(archive) {
		frame, next, err := parseRecordAt(archive, off)
		require.NoError(t, err)
		indices = append(indices, frame.imageIndex)
		off = next
	}
	require.Equal(t, []uint64{10, 11, 12}, indices)
}
