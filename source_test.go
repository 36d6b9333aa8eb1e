package imgrec

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeArchiveFile(t *testing.T, records []fixtureRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.rec")
	require.NoError(t, os.WriteFile(path, buildArchive(records), 0o644))
	return path
}

func readAllIndices(t *testing.T, src *RecordSource) []uint64 {
	t.Helper()
	var out []uint64
	for {
		chunk, err := src.NextChunk()
		if err != nil {
			require.True(t, errors.Is(err, io.EOF))
			break
		}
		for ord := 0; ord < chunk.RecordCount(); ord++ {
			frame, _, err := parseRecordAt(chunk.data, chunk.offsets[ord])
			require.NoError(t, err)
			out = append(out, frame.imageIndex)
		}
	}
	return out
}

func fiveRecordFixture() []fixtureRecord {
	return []fixtureRecord{
		{index: 10, headerLabel: 0, compressed: fakeImage(1, []byte{1, 2, 3})},
		{index: 11, headerLabel: 1, compressed: fakeImage(1, []byte{4, 5, 6})},
		{index: 12, headerLabel: 0, compressed: fakeImage(1, []byte{7, 8, 9})},
		{index: 13, headerLabel: 1, compressed: fakeImage(1, []byte{10, 11, 12})},
		{index: 14, headerLabel: 0, compressed: fakeImage(1, []byte{13, 14, 15})},
	}
}

func TestRecordSourceSinglePartReadsEverything(t *testing.T) {
	path := writeArchiveFile(t, fiveRecordFixture())
	log := NewLogger(io.Discard, false)
	src, err := OpenRecordSource(path, 0, 1, 0, log)
	require.NoError(t, err)
	defer src.Close()

	indices := readAllIndices(t, src)
	require.Equal(t, []uint64{10, 11, 12, 13, 14}, indices)
}

func TestRecordSourceShardingPartitionsArchive(t *testing.T) {
	path := writeArchiveFile(t, fiveRecordFixture())
	log := NewLogger(io.Discard, false)

	src0, err := OpenRecordSource(path, 0, 2, 0, log)
	require.NoError(t, err)
	defer src0.Close()
	part0 := readAllIndices(t, src0)

	src1, err := OpenRecordSource(path, 1, 2, 0, log)
	require.NoError(t, err)
	defer src1.Close()
	part1 := readAllIndices(t, src1)

	seen := map[uint64]bool{}
	for _, idx := range append(append([]uint64{}, part0...), part1...) {
		require.False(t, seen[idx], "index %d seen in both shards", idx)
		seen[idx] = true
	}
	require.ElementsMatch(t, []uint64{10, 11, 12, 13, 14}, append(part0, part1...))
}

func TestRecordSourceBeforeFirstRewinds(t *testing.T) {
	path := writeArchiveFile(t, fiveRecordFixture())
	log := NewLogger(io.Discard, false)
	src, err := OpenRecordSource(path, 0, 1, 0, log)
	require.NoError(t, err)
	defer src.Close()

	first := readAllIndices(t, src)
	src.BeforeFirst()
	second := readAllIndices(t, src)
	require.Equal(t, first, second)
}

func TestRecordSourceSmallChunkHintStillReturnsWholeRecords(t *testing.T) {
	path := writeArchiveFile(t, fiveRecordFixture())
	log := NewLogger(io.Discard, false)
	src, err := OpenRecordSource(path, 0, 1, 8, log) // hint smaller than a single record
	require.NoError(t, err)
	defer src.Close()

	indices := readAllIndices(t, src)
	require.Equal(t, []uint64{10, 11, 12, 13, 14}, indices)
}
