package imgrec

// MeanStd holds the per-channel mean/std pair a Normalizer subtracts
// and divides by. A zero Std leaves that channel's scale untouched
// (treated as 1) rather than dividing by zero.
type MeanStd struct {
	Mean []float32
	Std  []float32
}

// Normalizer decorates an Iterable with per-pixel mean-subtract /
// std-divide, applied over the stream rather than inside the Parallel
// Parser -- spec.md §9 is explicit that mean subtraction belongs to
// this decorator, never the core.
type Normalizer struct {
	inner Iterable
	stats MeanStd
}

// NewNormalizer wraps inner, applying stats.Mean/stats.Std per channel
// to every instance's image tensor as it is emitted.
func NewNormalizer(inner Iterable, stats MeanStd) *Normalizer {
	return &Normalizer{inner: inner, stats: stats}
}

func (n *Normalizer) BeforeFirst() { n.inner.BeforeFirst() }

func (n *Normalizer) Next() (bool, error) {
	ok, err := n.inner.Next()
	if err != nil || !ok {
		return ok, err
	}
	return true, nil
}

// Value returns the last-emitted instance with normalization applied
// in place to its image tensor.
func (n *Normalizer) Value() Instance {
	inst := n.inner.Value()
	n.apply(&inst.Image)
	return inst
}

func (n *Normalizer) apply(img *Tensor) {
	for c := 0; c < img.Channels; c++ {
		var mean, std float32
		if c < len(n.stats.Mean) {
			mean = n.stats.Mean[c]
		}
		std = 1
		if c < len(n.stats.Std) && n.stats.Std[c] != 0 {
			std = n.stats.Std[c]
		}
		if mean == 0 && std == 1 {
			continue
		}
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				img.Set(c, y, x, (img.At(c, y, x)-mean)/std)
			}
		}
	}
}
