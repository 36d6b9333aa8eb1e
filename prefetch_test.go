package imgrec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPrefetcher(t *testing.T, threads int) *Prefetcher {
	t.Helper()
	path := writeArchiveFile(t, fiveRecordFixture())
	cfg := ParserConfig{
		PathImageRec:      path,
		DataShape:         DataShape{Channels: 1, Height: 1, Width: 1},
		PreprocessThreads: threads,
	}
	p, err := NewParser(cfg, fakeDecoder{channels: 1, height: 1, width: 1}, nil, nil)
	require.NoError(t, err)
	return NewPrefetcher(p, nil)
}

func TestPrefetcherNextThenEOF(t *testing.T) {
	pf := newTestPrefetcher(t, 1)
	defer pf.Close()

	slot, ok, err := pf.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, slot)
	pf.Recycle(slot)

	_, ok, err = pf.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrefetcherBeforeFirstReplaysSameData(t *testing.T) {
	pf := newTestPrefetcher(t, 1)
	defer pf.Close()

	slot, ok, err := pf.Next()
	require.NoError(t, err)
	require.True(t, ok)
	firstCount := slot.Workers[0].Len()
	pf.Recycle(slot)

	pf.BeforeFirst()

	slot2, ok, err := pf.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, firstCount, slot2.Workers[0].Len())
	pf.Recycle(slot2)
}

func TestPrefetcherFreePoolSurvivesRepeatedBeforeFirst(t *testing.T) {
	pf := newTestPrefetcher(t, 1)
	defer pf.Close()

	for i := 0; i < PrefetchCapacity*3; i++ {
		pf.BeforeFirst()
		slot, ok, err := pf.Next()
		require.NoError(t, err)
		require.True(t, ok, "iteration %d: expected a slot, the free pool must not have starved", i)
		pf.Recycle(slot)
	}
}
