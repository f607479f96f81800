package index

import (
	"sync"

	"indexkernel/internal/segment"
)

// NumSearchers is the fixed capacity of the searcher pool.
const NumSearchers = 12

// item is one pool slot: a Searcher tagged with the generation that
// produced it, so a lease returned after a publish_new_generation can be
// recognized as stale and dropped instead of re-enqueued.
type item struct {
	searcher   segment.Searcher
	generation uint64
}

// Pool is a bounded, generation-tagged multiset of Searchers. Acquire
// blocks until an item is available; PublishNewGeneration atomically
// replaces the whole contents and bumps the generation counter so that
// in-flight leases from the previous generation are discarded on return
// rather than recycled.
type Pool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []item
	generation uint64
	inUse      int
}

// NewPool returns an empty pool (generation 0, no items). Call
// PublishNewGeneration to populate it before any Acquire.
func NewPool() *Pool {
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Lease is a guard owning a Searcher for the duration of a query. Release
// must be called at least once (later calls are no-ops); it re-enqueues
// the searcher unless its
// generation has been superseded, in which case it is closed and dropped.
type Lease struct {
	pool       *Pool
	searcher   segment.Searcher
	generation uint64
	released   bool
}

// Searcher returns the leased searcher.
func (l *Lease) Searcher() segment.Searcher {
	return l.searcher
}

// Release returns the lease to the pool (or drops it, if stale). Safe to
// call multiple times; only the first call has effect.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.pool.release(l.searcher, l.generation)
}

// Acquire blocks until a searcher is available and returns a lease owning
// it. The lease must be released by the caller (typically via defer).
func (p *Pool) Acquire() *Lease {
	p.mu.Lock()
	for len(p.queue) == 0 {
		p.cond.Wait()
	}
	it := p.queue[0]
	p.queue = p.queue[1:]
	p.inUse++
	p.mu.Unlock()

	return &Lease{pool: p, searcher: it.searcher, generation: it.generation}
}

func (p *Pool) release(s segment.Searcher, generation uint64) {
	p.mu.Lock()
	p.inUse--
	if generation == p.generation {
		p.queue = append(p.queue, item{searcher: s, generation: generation})
		p.cond.Signal()
	} else {
		// Stale generation: close it rather than recycling into the
		// current generation's queue.
		go s.Close()
	}
	p.mu.Unlock()
}

// PublishNewGeneration atomically increments the generation counter,
// discards the current queue contents, and enqueues searchers as members
// of the new generation. Any outstanding leases from the prior generation
// are unaffected until released, at which point release() drops them.
func (p *Pool) PublishNewGeneration(searchers []segment.Searcher) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stale := p.queue
	p.generation++
	gen := p.generation

	p.queue = make([]item, 0, len(searchers))
	for _, s := range searchers {
		p.queue = append(p.queue, item{searcher: s, generation: gen})
	}

	for _, it := range stale {
		go it.searcher.Close()
	}

	p.cond.Broadcast()
}

// InUse returns the number of items currently leased out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Generation returns the current generation counter.
func (p *Pool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}
