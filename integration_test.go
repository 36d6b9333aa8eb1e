package imgrec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFullPipelineEndToEnd wires Source -> Parser -> Prefetcher ->
// Iterator -> Normalizer -> BatchLoader together, the full composition
// spec.md §4.5 describes, and checks the resulting batches cover every
// record exactly once with normalization applied.
func TestFullPipelineEndToEnd(t *testing.T) {
	path := writeArchiveFile(t, fiveRecordFixture())
	listPath := writeTempFile(t, "10 0\n11 1\n12 0\n13 1\n14 0\n")

	cfg := ParserConfig{
		PathImageList:     listPath,
		PathImageRec:      path,
		LabelWidth:        1,
		DataShape:         DataShape{Channels: 1, Height: 1, Width: 1},
		PreprocessThreads: 2,
	}
	parser, err := NewParser(cfg, fakeDecoder{channels: 1, height: 1, width: 1}, nil, nil)
	require.NoError(t, err)

	prefetcher := NewPrefetcher(parser, nil)
	it := NewIterator(prefetcher, IterConfig{Shuffle: false})
	norm := NewNormalizer(it, MeanStd{Mean: []float32{1}, Std: []float32{2}})
	loader := NewBatchLoader(norm, 2, 1, KeepPartial)
	defer it.Close()

	var allIndices []uint64
	var batchSizes []int
	for {
		ok, err := loader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		b := loader.Value()
		for i := 0; i < b.Size; i++ {
			raw := float32(1 + 3*(b.Index[i]-10)) // first pixel byte in fiveRecordFixture
			require.Equal(t, (raw-1)/2, b.Image.Data[i])
		}
		batchSizes = append(batchSizes, b.Size)
		allIndices = append(allIndices, b.Index...)
	}

	require.Equal(t, []int{2, 2, 1}, batchSizes)
	require.ElementsMatch(t, []uint64{10, 11, 12, 13, 14}, allIndices)
}
