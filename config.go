package imgrec

import (
	"fmt"
	"runtime"
)

// DataShape is the target per-instance tensor shape (channels, height,
// width). Augmenters are free to produce a different height/width than
// requested here (the parser trusts the decoded+augmented result, see
// Instance); DataShape only needs to be nonzero at construction.
type DataShape struct {
	Channels int
	Height   int
	Width    int
}

func (s DataShape) nonzero() bool {
	return s.Channels > 0 && s.Height > 0 && s.Width > 0
}

// AutoThreads requests that PreprocessThreads be chosen automatically
// from the host's CPU count rather than a caller-specified value. It is
// the only negative value Validate accepts.
const AutoThreads = -1

// ParserConfig mirrors ImageRecParserParam from the original recordio
// iterator: the options that govern the Record Source Adapter and the
// Parallel Parser.
type ParserConfig struct {
	// PathImageList is the optional label list file. Empty means "use
	// the record header label" (LabelWidth is then forced to 1).
	PathImageList string
	// PathImageRec is the archive path. Required.
	PathImageRec string
	// LabelWidth is floats per label; ignored (forced to 1) when
	// PathImageList is empty.
	LabelWidth int
	// DataShape is the target instance shape; only used for validation.
	DataShape DataShape
	// PreprocessThreads is the requested worker count. Clamped to
	// max(1, NumCPU()/2 - 1), exactly as the original OpenMP-based
	// parser clamps against the physical core count. Must be >= 1 or
	// equal to AutoThreads; any other value is rejected by Validate.
	PreprocessThreads int
	// Verbose toggles diagnostic logging.
	Verbose bool
	// NumParts and PartIndex select this reader's shard.
	NumParts  int
	PartIndex int
	// ChunkHintBytes is the target chunk size hint; the source may
	// round up to keep records whole. Zero selects the 8 MiB default.
	ChunkHintBytes int64
	// PayloadCodec selects the optional compression layer applied to
	// each record's image bytes. CodecNone (the default) matches
	// spec.md §6, which names no compression at all.
	PayloadCodec PayloadCodec
}

// normalize applies defaults and thread clamping in place, returning the
// number of logical threads actually selected.
func (c *ParserConfig) normalize() int {
	if c.ChunkHintBytes <= 0 {
		c.ChunkHintBytes = 8 << 20
	}
	if c.PathImageList == "" {
		c.LabelWidth = 1
	}
	if c.NumParts <= 0 {
		c.NumParts = 1
	}
	maxThreads := runtime.NumCPU()/2 - 1
	if maxThreads < 1 {
		maxThreads = 1
	}
	threads := c.PreprocessThreads
	if threads == AutoThreads {
		threads = maxThreads
	} else if threads > maxThreads {
		threads = maxThreads
	}
	if threads < 1 {
		threads = 1
	}
	c.PreprocessThreads = threads
	return threads
}

// Validate performs the Configuration error checks from the error
// handling design: missing path_imgrec, label_width < 1 (when a list is
// supplied), zero data_shape, preprocess_threads < 1.
func (c *ParserConfig) Validate() error {
	if c.PathImageRec == "" {
		return fmt.Errorf("%w: path_imgrec is required", ErrConfig)
	}
	if c.PathImageList != "" && c.LabelWidth < 1 {
		return fmt.Errorf("%w: label_width must be >= 1 when path_imglist is set", ErrConfig)
	}
	if !c.DataShape.nonzero() {
		return fmt.Errorf("%w: data_shape must be nonzero", ErrConfig)
	}
	if c.PreprocessThreads != AutoThreads && c.PreprocessThreads < 1 {
		return fmt.Errorf("%w: preprocess_threads must be >= 1", ErrConfig)
	}
	if c.PartIndex < 0 || (c.NumParts > 0 && c.PartIndex >= c.NumParts) {
		return fmt.Errorf("%w: part_index %d out of range for num_parts %d", ErrConfig, c.PartIndex, c.NumParts)
	}
	return nil
}

// IterConfig mirrors ImageRecordParam: the iterator-level options layered
// on top of the parser.
type IterConfig struct {
	Shuffle bool
	Seed    int32
	Verbose bool
}
