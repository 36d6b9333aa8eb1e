package imgrec

// Tensor is a dense (channels, height, width) pixel tensor with
// `u8`-promoted-to-float elements, planar channel order. Data is laid
// out channel-major: Data[c*Height*Width + y*Width + x].
type Tensor struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// At returns the value at (channel, y, x).
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// Set assigns the value at (channel, y, x).
func (t *Tensor) Set(c, y, x int, v float32) {
	t.Data[(c*t.Height+y)*t.Width+x] = v
}

// resize reinitializes t to the given shape, reusing its backing array
// when it's already large enough (slot recycling, see Prefetcher).
func (t *Tensor) resize(channels, height, width int) {
	t.Channels, t.Height, t.Width = channels, height, width
	n := channels * height * width
	if cap(t.Data) >= n {
		t.Data = t.Data[:n]
	} else {
		t.Data = make([]float32, n)
	}
}

// Instance is one training example: an index copied from the record
// header, a decoded+augmented pixel tensor, and a label vector.
type Instance struct {
	Index  uint64
	Image  Tensor
	Label  []float32
}

// InstanceVector is the ordered sequence of Instances one worker
// produced for one chunk. Its backing storage is owned exclusively by
// the producing worker until the parser signals chunk completion (i.e.
// until the Prefetcher hands the owning Slot to the consumer).
type InstanceVector struct {
	instances []Instance
}

// reset clears the vector for reuse without releasing its backing
// array, matching the "recycling clears slots logically" contract of
// spec.md §3's Prefetch Slot.
func (v *InstanceVector) reset() {
	v.instances = v.instances[:0]
}

// grow extends the vector by one Instance and returns a pointer to it
// for the caller to fill in place. When the backing array already has a
// trailing element at this position (left over from before the vector
// was last reset), that element's fields are reused as-is -- in
// particular Image.Data's backing array survives, so Tensor.resize can
// avoid reallocating. Only Index and Label are trimmed to empty; the
// caller is responsible for overwriting every field it cares about.
func (v *InstanceVector) grow() *Instance {
	n := len(v.instances)
	if cap(v.instances) > n {
		v.instances = v.instances[:n+1]
		inst := &v.instances[n]
		inst.Index = 0
		inst.Label = inst.Label[:0]
		return inst
	}
	v.instances = append(v.instances, Instance{})
	return &v.instances[n]
}

// Len returns the number of instances in the vector.
func (v *InstanceVector) Len() int { return len(v.instances) }

// At returns the instance at position i.
func (v *InstanceVector) At(i int) *Instance { return &v.instances[i] }

// Slot is a heap-owned collection of per-worker InstanceVectors -- one
// chunk's worth of parsed output. Slots cycle between "producer fills",
// "queued", "consumer reads", "recycled back to producer"; recycling
// reuses the allocation (see Prefetcher).
type Slot struct {
	Workers []InstanceVector
}

// reset clears every worker's instance vector for reuse.
func (s *Slot) reset(numWorkers int) {
	if cap(s.Workers) >= numWorkers {
		s.Workers = s.Workers[:numWorkers]
	} else {
		grown := make([]InstanceVector, numWorkers)
		copy(grown, s.Workers)
		s.Workers = grown
	}
	for i := range s.Workers {
		s.Workers[i].reset()
	}
}
