package imgrec

import "fmt"

// Chunk is a contiguous byte window containing an integral number of
// records, handed from the Record Source to the Parallel Parser. Worker
// t of T reads only the records whose ordinal position within the chunk
// (0-based, counting from the start of the chunk) is congruent to t mod
// T -- this is what "self-synchronizing" means in spec.md §3: any
// worker can locate its subset without coordinating with the others,
// because record boundaries were already resolved when the chunk was
// cut.
type Chunk struct {
	data    []byte
	offsets []int // start offset of each record within data, in order
}

// recordCount returns the number of whole records contained in the
// chunk.
func (c *Chunk) recordCount() int {
	return len(c.offsets)
}

// RecordCount returns the number of whole records contained in the
// chunk. Exported for reporting tools (see cmd/imgrec's describe
// command).
func (c *Chunk) RecordCount() int { return len(c.offsets) }

// ByteLen returns the number of bytes the chunk spans.
func (c *Chunk) ByteLen() int { return len(c.data) }

// recordsForWorker returns the parsed frames of the records assigned to
// worker t of numWorkers, in ascending order.
func (c *Chunk) recordsForWorker(t, numWorkers int) []recordFrame {
	var out []recordFrame
	for ord := t; ord < len(c.offsets); ord += numWorkers {
		frame, _, err := parseRecordAt(c.data, c.offsets[ord])
		if err != nil {
			// Framing was already validated when the chunk was cut
			// (see source.go's NextChunk); a failure here means the
			// chunk's own offset table is corrupt, which is a bug in
			// this package rather than a data error.
			panic(fmt.Sprintf("imgrec: internal error re-parsing record at validated offset %d: %v", c.offsets[ord], err))
		}
		out = append(out, frame)
	}
	return out
}
