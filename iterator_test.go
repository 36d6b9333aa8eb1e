package imgrec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestIterator(t *testing.T, shuffle bool, seed int32, threads int) *Iterator {
	t.Helper()
	path := writeArchiveFile(t, fiveRecordFixture())
	cfg := ParserConfig{
		PathImageRec:      path,
		DataShape:         DataShape{Channels: 1, Height: 1, Width: 1},
		PreprocessThreads: threads,
	}
	p, err := NewParser(cfg, fakeDecoder{channels: 1, height: 1, width: 1}, nil, nil)
	require.NoError(t, err)
	pf := NewPrefetcher(p, nil)
	return NewIterator(pf, IterConfig{Shuffle: shuffle, Seed: seed})
}

func drainIterator(t *testing.T, it *Iterator) []uint64 {
	t.Helper()
	var out []uint64
	for {
		ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, it.Value().Index)
	}
	return out
}

func TestIteratorNoShuffleIsOrderStable(t *testing.T) {
	it := newTestIterator(t, false, 0, 1)
	defer it.Close()

	first := drainIterator(t, it)
	it.BeforeFirst()
	second := drainIterator(t, it)
	require.Equal(t, first, second)
	require.Equal(t, []uint64{10, 11, 12, 13, 14}, first)
}

func TestIteratorShuffleIsDeterministicForSameSeed(t *testing.T) {
	itA := newTestIterator(t, true, 42, 2)
	defer itA.Close()
	orderA := drainIterator(t, itA)

	itB := newTestIterator(t, true, 42, 2)
	defer itB.Close()
	orderB := drainIterator(t, itB)

	require.ElementsMatch(t, []uint64{10, 11, 12, 13, 14}, orderA)
	require.Equal(t, orderA, orderB)
}

func TestIteratorEmitsEveryRecordExactlyOnce(t *testing.T) {
	it := newTestIterator(t, false, 0, 2)
	defer it.Close()
	order := drainIterator(t, it)
	require.ElementsMatch(t, []uint64{10, 11, 12, 13, 14}, order)
}
