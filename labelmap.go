package imgrec

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// LabelTable is the optional dense label side-table keyed by image
// index, loaded once from a text list file. The float buffer backing
// returned slices is append-only during Load and immutable afterwards;
// Find's returned slices alias directly into it, matching
// original_source's ImageLabelMap (`idx2label_` pointing into a single
// contiguous `label_` vector).
type LabelTable struct {
	width int
	store []float32          // flat, width floats per entry, append-only during load
	index map[uint64]int     // image index -> start offset into store
}

// LoadLabelTable parses path: one record per line, whitespace-separated
// fields `<index> <label_0> … <label_{width-1}> …ignored…`. A line with
// fewer than width+1 fields is a fatal format error, matching
// original_source's `CHECK(p != end) << "Bad ImageList format"`.
func LoadLabelTable(path string, width int) (*LabelTable, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: label_width must be >= 1", ErrConfig)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	t := &LabelTable{
		width: width,
		index: make(map[uint64]int),
	}

	scanner := bufio.NewScanner(f)
	// List files can carry filenames after the labels; allow generously
	// long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		fields := splitFields(line)
		if len(fields) < width+1 {
			return nil, fmt.Errorf("%w: %s:%d: expected at least %d fields, got %d",
				ErrFormat, path, lineNo, width+1, len(fields))
		}
		idx, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: bad image index %q: %v", ErrFormat, path, lineNo, fields[0], err)
		}
		if _, dup := t.index[idx]; dup {
			return nil, fmt.Errorf("%w: %s:%d: duplicate image index %d", ErrFormat, path, lineNo, idx)
		}
		start := len(t.store)
		for i := 0; i < width; i++ {
			v, err := strconv.ParseFloat(fields[1+i], 32)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("%w: %s:%d: bad label field %q: %v", ErrFormat, path, lineNo, fields[1+i], err)
			}
			// Labels are stored verbatim, including overflow/NaN --
			// original_source reads as double and truncates to
			// float32 with no special-casing, so neither do we: a value
			// beyond float32 range is kept as the ±Inf ParseFloat
			// returns with its range error.
			t.store = append(t.store, float32(v))
		}
		t.index[idx] = start
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}
	return t, nil
}

// Find returns the label slice for imageIndex, aliasing into the
// table's immutable backing store. It is a fatal error for imageIndex
// to be absent, per spec.md §4.2.
func (t *LabelTable) Find(imageIndex uint64) ([]float32, error) {
	start, ok := t.index[imageIndex]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %d", ErrFormat, ErrLabelNotFound, imageIndex)
	}
	return t.store[start : start+t.width : start+t.width], nil
}

// Width returns the configured label width.
func (t *LabelTable) Width() int { return t.width }

// splitFields splits on ASCII whitespace without allocating a regexp,
// matching the "skip space / read token" shape of original_source's
// manual parser.
func splitFields(s string) []string {
	var fields []string
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		start := i
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		fields = append(fields, s[start:i])
	}
	return fields
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\v' || b == '\f'
}
