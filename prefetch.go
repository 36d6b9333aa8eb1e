package imgrec

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// PrefetchCapacity is K, the maximum number of parsed chunks the
// Prefetcher holds at once (queued, in the free pool, or checked out to
// the consumer) -- spec.md §4.4 and §5's resource cap.
const PrefetchCapacity = 4

// Prefetcher hides parse latency behind a bounded background queue. A
// single producer goroutine repeatedly calls Parser.ParseNext with a
// recycled Slot and pushes the result onto a bounded queue; Next blocks
// until a slot is ready or the shard is exhausted, and recycle returns a
// drained slot to the producer's free pool so its allocation is reused.
//
// The K=4 cap is enforced twice over, deliberately: the free pool only
// ever holds PrefetchCapacity Slot objects (so no more than K chunks'
// worth of InstanceVectors exist at all), and a semaphore.Weighted of
// the same weight gates production explicitly -- the latter is the
// "permits" idiom from five82-reel's CalculatePermits, reimagined here
// as the in-flight-chunk bound spec.md §5 calls out, rather than
// five82-reel's memory-based worker cap.
type Prefetcher struct {
	parser *Parser
	log    Logger

	free chan *Slot
	sem  *semaphore.Weighted

	mu     sync.Mutex
	cancel context.CancelFunc
	queue  chan prefetchResult
	done   sync.WaitGroup
}

type prefetchResult struct {
	slot *Slot
	err  error
	eof  bool
}

// NewPrefetcher constructs a Prefetcher over parser with the standard
// K=4 capacity and starts its background producer.
func NewPrefetcher(parser *Parser, log Logger) *Prefetcher {
	if log == nil {
		log = nopLogger{}
	}
	pf := &Prefetcher{
		parser: parser,
		log:    log,
		free:   make(chan *Slot, PrefetchCapacity),
		sem:    semaphore.NewWeighted(PrefetchCapacity),
	}
	for i := 0; i < PrefetchCapacity; i++ {
		pf.free <- &Slot{}
	}
	pf.startProducer()
	return pf
}

func (pf *Prefetcher) startProducer() {
	ctx, cancel := context.WithCancel(context.Background())
	pf.mu.Lock()
	pf.cancel = cancel
	pf.queue = make(chan prefetchResult, PrefetchCapacity)
	queue := pf.queue
	pf.mu.Unlock()

	pf.done.Add(1)
	go pf.produce(ctx, queue)
}

func (pf *Prefetcher) produce(ctx context.Context, queue chan<- prefetchResult) {
	defer pf.done.Done()
	for {
		if err := pf.sem.Acquire(ctx, 1); err != nil {
			return // cancelled by before_first
		}

		var slot *Slot
		select {
		case slot = <-pf.free:
		case <-ctx.Done():
			pf.sem.Release(1)
			return
		}

		ok, err := pf.parser.ParseNext(slot)
		if err != nil {
			pf.sem.Release(1)
			pf.free <- slot
			select {
			case queue <- prefetchResult{err: err}:
			case <-ctx.Done():
			}
			return
		}
		if !ok {
			pf.sem.Release(1)
			pf.free <- slot
			select {
			case queue <- prefetchResult{eof: true}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case queue <- prefetchResult{slot: slot}:
		case <-ctx.Done():
			pf.sem.Release(1)
			pf.free <- slot
			return
		}
	}
}

// Next blocks until a slot is available or the shard is exhausted. On
// success it returns the slot (ownership transferred to the caller) and
// true; at end-of-stream it returns (nil, false, nil).
func (pf *Prefetcher) Next() (*Slot, bool, error) {
	pf.mu.Lock()
	queue := pf.queue
	pf.mu.Unlock()

	res, ok := <-queue
	if !ok {
		return nil, false, nil
	}
	if res.err != nil {
		return nil, false, res.err
	}
	if res.eof {
		return nil, false, nil
	}
	return res.slot, true, nil
}

// Recycle returns a drained slot to the producer's free pool.
func (pf *Prefetcher) Recycle(slot *Slot) {
	if slot == nil {
		return
	}
	pf.sem.Release(1)
	select {
	case pf.free <- slot:
	default:
		// Free pool is sized to PrefetchCapacity and every slot
		// originates from it, so this is unreachable in practice; drop
		// rather than block if it ever is.
	}
}

// BeforeFirst stops the producer, drains in-flight output, rewinds the
// Source, and restarts the producer. This is the cancellation primitive
// referenced in spec.md §5.
func (pf *Prefetcher) BeforeFirst() {
	pf.mu.Lock()
	cancel := pf.cancel
	queue := pf.queue
	pf.mu.Unlock()

	cancel()
	pf.done.Wait()

	// Drain anything left in the queue, returning slots to the free
	// pool so the next generation starts with a full pool.
	for {
		select {
		case res, ok := <-queue:
			if !ok {
				goto drained
			}
			if res.slot != nil {
				pf.sem.Release(1)
				pf.free <- res.slot
			}
		default:
			goto drained
		}
	}
drained:
	pf.parser.BeforeFirst()
	pf.startProducer()
}

// Close stops the producer and releases the underlying parser.
func (pf *Prefetcher) Close() error {
	pf.mu.Lock()
	cancel := pf.cancel
	pf.mu.Unlock()
	cancel()
	pf.done.Wait()
	return pf.parser.Close()
}
