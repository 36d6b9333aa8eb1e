package imgrec

import "fmt"

// BatchPolicy controls what BatchLoader does with a trailing group of
// instances smaller than BatchSize at end-of-stream.
type BatchPolicy int

const (
	// DropLast discards a short trailing batch entirely.
	DropLast BatchPolicy = iota
	// KeepPartial emits the trailing batch with fewer than BatchSize
	// rows; Batch.Size reports the true row count.
	KeepPartial
	// PadLast emits a full BatchSize batch, repeating the first rows of
	// the trailing group to fill it out.
	PadLast
)

// Batch is B stacked instances: a single (B, C, H, W) tensor and a
// single (B, W) label matrix, row-major over B.
type Batch struct {
	Size   int
	Image  Tensor4
	Labels []float32 // Image.Batch * LabelWidth, row-major (padded rows included)
	Index  []uint64  // Image.Batch entries (padded rows included)
}

// Tensor4 is a dense (batch, channels, height, width) pixel tensor.
type Tensor4 struct {
	Batch, Channels, Height, Width int
	Data                           []float32
}

func (t *Tensor4) rowLen() int { return t.Channels * t.Height * t.Width }

func (t *Tensor4) resize(batch, channels, height, width int) {
	t.Batch, t.Channels, t.Height, t.Width = batch, channels, height, width
	n := batch * channels * height * width
	if cap(t.Data) >= n {
		t.Data = t.Data[:n]
	} else {
		t.Data = make([]float32, n)
	}
}

func (t *Tensor4) setRow(b int, img *Tensor) {
	row := t.rowLen()
	copy(t.Data[b*row:(b+1)*row], img.Data)
}

// BatchLoader decorates an Iterable, accumulating BatchSize instances
// into a single Batch per Next/Value cycle -- spec.md §4.5's
// "accumulates B instances into a single batched tensor with stacked
// labels, handling the trailing partial batch per its own policy".
type BatchLoader struct {
	inner      Iterable
	batchSize  int
	labelWidth int
	policy     BatchPolicy

	buf     []Instance
	current Batch
}

// NewBatchLoader wraps inner, grouping its instances into batches of
// batchSize rows of labelWidth floats each.
func NewBatchLoader(inner Iterable, batchSize, labelWidth int, policy BatchPolicy) *BatchLoader {
	return &BatchLoader{
		inner:      inner,
		batchSize:  batchSize,
		labelWidth: labelWidth,
		policy:     policy,
	}
}

func (bl *BatchLoader) BeforeFirst() {
	bl.inner.BeforeFirst()
	bl.buf = bl.buf[:0]
}

// Next fills the next batch. It returns false once no batch (partial
// or full) is available under the configured policy.
func (bl *BatchLoader) Next() (bool, error) {
	bl.buf = bl.buf[:0]
	for len(bl.buf) < bl.batchSize {
		ok, err := bl.inner.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		bl.buf = append(bl.buf, bl.inner.Value())
	}

	if len(bl.buf) == 0 {
		return false, nil
	}
	if len(bl.buf) < bl.batchSize {
		switch bl.policy {
		case DropLast:
			return false, nil
		case KeepPartial, PadLast:
			// handled below
		}
	}

	bl.buildBatch()
	return true, nil
}

func (bl *BatchLoader) buildBatch() {
	rows := len(bl.buf)
	outRows := rows
	if rows < bl.batchSize && bl.policy == PadLast {
		outRows = bl.batchSize
	}

	first := bl.buf[0]
	bl.current.resizeFor(outRows, first.Image.Channels, first.Image.Height, first.Image.Width, bl.labelWidth)
	bl.current.Size = rows

	for i := 0; i < outRows; i++ {
		src := bl.buf[i%rows]
		bl.current.Image.setRow(i, &src.Image)
		copy(bl.current.Labels[i*bl.labelWidth:(i+1)*bl.labelWidth], src.Label)
		bl.current.Index[i] = src.Index
	}
}

func (b *Batch) resizeFor(rows, channels, height, width, labelWidth int) {
	b.Image.resize(rows, channels, height, width)
	need := rows * labelWidth
	if cap(b.Labels) >= need {
		b.Labels = b.Labels[:need]
	} else {
		b.Labels = make([]float32, need)
	}
	if cap(b.Index) >= rows {
		b.Index = b.Index[:rows]
	} else {
		b.Index = make([]uint64, rows)
	}
}

// Value returns the last-built batch.
func (bl *BatchLoader) Value() Batch { return bl.current }

// String renders a one-line summary.
func (b Batch) String() string {
	return fmt.Sprintf("batch(rows=%d, image=%dx%dx%d)", b.Size, b.Image.Channels, b.Image.Height, b.Image.Width)
}
