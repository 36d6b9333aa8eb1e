package imgrec

import "math/rand"

// iterSeedMagic mirrors original_source's kRandMagic reused for the
// iterator's shuffle RNG (`rnd_.seed(kRandMagic + param_.seed)`).
const iterSeedMagic = 111

// Iterable is the {before_first, next, value} capability set (spec.md
// §9) shared by the Iterator Surface and the Normalizer decorator.
// BatchLoader has the same BeforeFirst and Next, but its Value returns a
// Batch, so it does not satisfy Iterable; neither does the Prefetcher,
// which hands out whole Slots.
type Iterable interface {
	BeforeFirst()
	Next() (bool, error)
	Value() Instance
}

// order pairs a worker index with that worker's within-vector index,
// the flattening unit spec.md §4.5 calls `(worker_index,
// within_worker_index)`.
type orderPair struct {
	worker int
	within int
}

// Iterator flattens a Prefetcher's grouped InstanceVectors into a
// per-instance stream, optionally shuffling the flattening order within
// each chunk.
type Iterator struct {
	prefetcher *Prefetcher
	cfg        IterConfig
	rng        *rand.Rand

	current *Slot
	order   []orderPair
	cursor  int
	value   Instance
}

// NewIterator wraps prefetcher with the iteration/shuffle contract.
func NewIterator(prefetcher *Prefetcher, cfg IterConfig) *Iterator {
	return &Iterator{
		prefetcher: prefetcher,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(int64(iterSeedMagic) + int64(cfg.Seed))),
	}
}

// BeforeFirst relays to the Prefetcher and clears the flattening order.
func (it *Iterator) BeforeFirst() {
	it.prefetcher.BeforeFirst()
	if it.current != nil {
		it.prefetcher.Recycle(it.current)
		it.current = nil
	}
	it.order = it.order[:0]
	it.cursor = 0
}

// Next advances to the next instance, pulling a new chunk (and
// rebuilding + possibly shuffling the flattening order) when the
// current one is exhausted. It returns false once the underlying
// source is exhausted.
func (it *Iterator) Next() (bool, error) {
	for {
		if it.cursor < len(it.order) {
			p := it.order[it.cursor]
			it.value = *it.current.Workers[p.worker].At(p.within)
			it.cursor++
			return true, nil
		}

		if it.current != nil {
			it.prefetcher.Recycle(it.current)
			it.current = nil
		}

		slot, ok, err := it.prefetcher.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		it.current = slot
		it.order = buildOrder(slot, it.order[:0])
		if it.cfg.Shuffle {
			shuffleOrder(it.order, it.rng)
		}
		it.cursor = 0
	}
}

// Value returns the last-emitted instance. It is undefined (zero value)
// before the first successful Next.
func (it *Iterator) Value() Instance {
	return it.value
}

// Close releases the underlying Prefetcher and Parser.
func (it *Iterator) Close() error {
	if it.current != nil {
		it.prefetcher.Recycle(it.current)
		it.current = nil
	}
	return it.prefetcher.Close()
}

// buildOrder enumerates all (worker, within) pairs across a slot's
// worker vectors in row-major order, matching original_source's
// `for i in workers { for j in tmp.Size() { push(i,j) } }`.
func buildOrder(slot *Slot, dst []orderPair) []orderPair {
	for w := range slot.Workers {
		n := slot.Workers[w].Len()
		for j := 0; j < n; j++ {
			dst = append(dst, orderPair{worker: w, within: j})
		}
	}
	return dst
}

// shuffleOrder permutes order in place with the iterator's own PRNG --
// never the global math/rand functions, so runs with identical seeds
// are reproducible regardless of what else in the process called into
// math/rand.
func shuffleOrder(order []orderPair, rng *rand.Rand) {
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
}
