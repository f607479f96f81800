// Package index implements the index coordinator: the aggregate root that
// owns a corpus's durable state (meta.json behind a reader/writer lock),
// the WORM directory it lives in, and the bounded searcher pool queries
// lease from. This file implements the full coordinator surface with the
// documented publication protocol (lock meta -> mutate -> unlock -> save ->
// reload searchers).
package index

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"indexkernel/internal/analysis"
	"indexkernel/internal/directory"
	"indexkernel/internal/indexing"
	"indexkernel/internal/schema"
	"indexkernel/internal/segment"
	"indexkernel/internal/storage"
)

const writerLockName = "writer.lock"

// Options configures a newly constructed Index. All fields are optional;
// zero values fall back to sane defaults (a no-op logger, a fresh private
// prometheus registry, the reference indexing.Writer).
type Options struct {
	Logger   *zap.SugaredLogger
	Registry prometheus.Registerer

	// WriterFactory builds the reference IndexWriter's inner writer. It
	// exists so the coordinator's writer-acquisition contract (the
	// FileAlreadyExists lockfile semantics) stays decoupled from the
	// concrete ingestion implementation.
	WriterFactory func(s *schema.Schema, registry *analysis.Registry) *indexing.Writer
}

func (o Options) withDefaults(name string) Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	if o.WriterFactory == nil {
		o.WriterFactory = indexing.NewWriter
	}
	_ = name
	return o
}

// Index is the coordinator aggregate root: a shared meta record protected
// by a reader/writer lock, an owned Directory, a cached schema copy, and a
// handle to the searcher pool.
type Index struct {
	// mu, meta, metaVersion and loadMu are all pointers so that Clone's
	// shallow clones share one backing record instead of each getting an
	// independent copy: a PublishSegments call on any clone mutates the
	// same *Meta every other clone reads, guarded by the same *mu, exactly
	// as a shared, interior-mutable record behind one reader/writer lock
	// should behave.
	mu   *sync.RWMutex
	meta *Meta

	// metaVersion increments every time lockedMutate installs a new value
	// into *meta. persistAndReload stamps the version it just installed
	// and compares against the live value before rolling back on a save
	// failure, so a rollback never clobbers a newer publication that
	// raced ahead and already completed (see persistAndReload).
	metaVersion *uint64

	// poisoned records that a prior holder of mu panicked mid-mutation.
	// Go's sync.RWMutex has no built-in poisoning, unlike Rust's
	// std::sync::RwLock this coordinator is modeled on, so it is tracked
	// explicitly. PublishSegments, PublishMergeSegment (via lockedMutate)
	// and WriterWithNumThreads check it first and return ErrLockPoisoned
	// rather than attempting recovery. Schema, Docstamp and Segments do
	// not check it; they take the read lock and return the current meta.
	poisoned *atomic.Bool

	// loadMu serializes load_searchers with itself: two concurrent
	// load_searchers could otherwise interleave their segment-opening and
	// leave the pool reflecting an older meta than the latest.
	loadMu *sync.Mutex

	dir  directory.Directory
	pool *Pool

	schema        schema.Schema
	log           *zap.SugaredLogger
	metrics       *metrics
	writerFactory func(s *schema.Schema, registry *analysis.Registry) *indexing.Writer
	registry      *analysis.Registry
}

// CreateInRAM constructs an index over an in-memory directory; infallible,
// intended for tests.
func CreateInRAM(s schema.Schema, opts Options) *Index {
	opts = opts.withDefaults("ram")
	dir := directory.NewRAMDirectory()
	idx := newIndex("ram", dir, newMeta(s), opts)
	if err := saveMeta(dir, *idx.meta); err != nil {
		// RAMDirectory.AtomicWrite cannot fail; this would indicate a
		// marshal bug, not an I/O problem.
		panic(fmt.Sprintf("index: create_in_ram: %v", err))
	}
	if err := idx.loadSearchers(); err != nil {
		panic(fmt.Sprintf("index: create_in_ram: %v", err))
	}
	return idx
}

// Create opens (creating as needed) the on-disk directory at path, writes
// an empty initial meta, and returns the index.
func Create(path string, s schema.Schema, opts Options) (*Index, error) {
	opts = opts.withDefaults(path)
	if err := storage.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("index: create %s: %w", path, err)
	}
	dir, err := directory.NewMmapDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("index: create %s: %w", path, err)
	}

	idx := newIndex(path, dir, newMeta(s), opts)
	if err := saveMeta(dir, *idx.meta); err != nil {
		return nil, fmt.Errorf("index: create %s: %w", path, err)
	}
	if err := idx.loadSearchers(); err != nil {
		return nil, fmt.Errorf("index: create %s: %w", path, err)
	}
	return idx, nil
}

// CreateFromTempDir behaves like Create but in a unique temporary
// directory. The directory is not removed when the Index is discarded;
// callers that want that should track and clean it up themselves.
func CreateFromTempDir(s schema.Schema, opts Options) (*Index, error) {
	dir, err := os.MkdirTemp("", "indexkernel-*")
	if err != nil {
		return nil, fmt.Errorf("index: create_from_tempdir: %w", err)
	}
	return Create(dir, s, opts)
}

// Open opens the on-disk directory at path, loads and validates meta from
// meta.json, and builds the initial searcher generation.
func Open(path string, opts Options) (*Index, error) {
	opts = opts.withDefaults(path)
	dir, err := directory.NewMmapDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}

	m, err := loadMeta(dir)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}

	idx := newIndex(path, dir, m, opts)
	if err := idx.loadSearchers(); err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	return idx, nil
}

func newIndex(name string, dir directory.Directory, m Meta, opts Options) *Index {
	return &Index{
		mu:            &sync.RWMutex{},
		metaVersion:   new(uint64),
		poisoned:      &atomic.Bool{},
		loadMu:        &sync.Mutex{},
		meta:          &m,
		dir:           dir,
		pool:          NewPool(),
		schema:        m.Schema,
		log:           opts.Logger,
		metrics:       newMetrics(opts.Registry, name),
		writerFactory: opts.WriterFactory,
		registry:      analysis.NewRegistry(),
	}
}

// Schema returns a copy of the schema. Cheap: the schema is small relative
// to the data it describes.
func (idx *Index) Schema() schema.Schema {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.schema
}

// Docstamp returns the current committed docstamp.
func (idx *Index) Docstamp() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.meta.Docstamp
}

// Segments enumerates the currently searchable segments.
func (idx *Index) Segments() []segment.Segment {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]segment.Segment, len(idx.meta.Segments))
	for i, id := range idx.meta.Segments {
		out[i] = segment.New(id)
	}
	return out
}

// NewSegment allocates a segment handle with a freshly generated random
// ID. It has no filesystem effect until a writer commits files under it.
func (idx *Index) NewSegment() segment.Segment {
	return segment.New(segment.NewID())
}

// Writer acquires the writer lockfile and returns an IndexWriter backed by
// the injected WriterFactory. Fails with FileAlreadyExists if the lockfile
// is already held.
func (idx *Index) Writer(heapBytes int) (*IndexWriter, error) {
	return idx.WriterWithNumThreads(1, heapBytes)
}

// WriterWithNumThreads is Writer with an explicit ingestion thread count.
// The reference indexing.Writer is single-threaded internally; numThreads
// is accepted and validated for interface parity but does not change
// ingestion concurrency — parallelizing segment construction is part of
// the external IndexWriter this coordinator only delegates to.
func (idx *Index) WriterWithNumThreads(numThreads int, heapBytes int) (*IndexWriter, error) {
	if idx.poisoned.Load() {
		return nil, ErrLockPoisoned
	}
	if numThreads < 1 {
		return nil, fmt.Errorf("index: num_threads must be >= 1, got %d", numThreads)
	}
	lock, err := idx.dir.OpenWrite(writerLockName)
	if err != nil {
		return nil, err
	}

	s := idx.Schema()
	inner := idx.writerFactory(&s, idx.registry)
	return &IndexWriter{idx: idx, inner: inner, lock: lock}, nil
}

// Searcher acquires a leased searcher from the pool, blocking if every
// item is currently in use.
func (idx *Index) Searcher() *Lease {
	return idx.pool.Acquire()
}

// lockedMutate runs mutate under the meta write lock and installs its
// result into *idx.meta on success, returning the pre-mutation snapshot,
// the installed value, and the version stamped on this installation (so
// persistAndReload can later tell whether anyone else has mutated meta in
// the meantime). If idx is already poisoned it fails fast with
// ErrLockPoisoned. If mutate (or anything else running with the lock held)
// panics, the panic is recovered just long enough to mark idx poisoned and
// release the lock, then re-raised: Go's sync.RWMutex does not unlock
// itself on panic the way Rust's RwLock poisons and returns an error, so
// without this every future lock attempt would block forever instead of
// observing ErrLockPoisoned.
func (idx *Index) lockedMutate(mutate func(current Meta) (Meta, error)) (prior, installed Meta, version uint64, err error) {
	if idx.poisoned.Load() {
		return Meta{}, Meta{}, 0, ErrLockPoisoned
	}

	idx.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			idx.poisoned.Store(true)
			idx.mu.Unlock()
			panic(r)
		}
	}()

	prior = idx.meta.clone()
	next, mutErr := mutate(prior)
	if mutErr != nil {
		idx.mu.Unlock()
		return Meta{}, Meta{}, 0, mutErr
	}
	*idx.meta = next
	*idx.metaVersion++
	version = *idx.metaVersion
	idx.mu.Unlock()
	return prior, next, version, nil
}

// PublishSegments appends ids to the meta's segment sequence (order
// preserved) and sets docstamp, which must be >= the current value. It
// then saves meta and reloads searchers, per the critical-path protocol:
// lock meta, mutate, unlock, save, reload.
func (idx *Index) PublishSegments(ids []segment.ID, docstamp uint64) error {
	prior, installed, version, err := idx.lockedMutate(func(current Meta) (Meta, error) {
		if docstamp < current.Docstamp {
			return Meta{}, fmt.Errorf("index: publish_segments: docstamp %d is less than current %d", docstamp, current.Docstamp)
		}
		next := current.clone()
		next.Segments = append(next.Segments, ids...)
		next.Docstamp = docstamp
		return next, nil
	})
	if err != nil {
		return err
	}
	return idx.persistAndReload(prior, installed, version)
}

// PublishMergeSegment replaces the segments named in mergedInIDs with
// resultID, preserving the relative order of untouched segments and
// placing resultID last. IDs in mergedInIDs that are not present in the
// current segment list are silently skipped rather than rejected.
func (idx *Index) PublishMergeSegment(mergedInIDs []segment.ID, resultID segment.ID) error {
	prior, installed, version, err := idx.lockedMutate(func(current Meta) (Meta, error) {
		merged := make(map[string]bool, len(mergedInIDs))
		for _, id := range mergedInIDs {
			merged[id.String()] = true
		}

		next := current.clone()
		remaining := make([]segment.ID, 0, len(next.Segments))
		for _, id := range next.Segments {
			if !merged[id.String()] {
				remaining = append(remaining, id)
			}
		}
		remaining = append(remaining, resultID)
		next.Segments = remaining
		return next, nil
	})
	if err != nil {
		return err
	}
	return idx.persistAndReload(prior, installed, version)
}

// persistAndReload implements the save -> reload half of the publication
// protocol shared by PublishSegments and PublishMergeSegment. installed is
// the value lockedMutate just wrote into *idx.meta and version is the
// metaVersion it was stamped with. On a save failure, idx.meta is rolled
// back to prior only if *idx.metaVersion still equals version — i.e. only
// if nobody else's publish has installed a newer meta (durably saved or
// not) since this call's own installation. Without that guard, a slow,
// now-stale caller's rollback could clobber a second, already-completed
// and already-persisted publication purely because its own save returned
// first, leaving memory behind disk instead of matching it.
func (idx *Index) persistAndReload(prior, installed Meta, version uint64) error {
	start := time.Now()

	if err := saveMeta(idx.dir, installed); err != nil {
		idx.mu.Lock()
		if *idx.metaVersion == version {
			*idx.meta = prior
		}
		idx.mu.Unlock()
		idx.log.Errorw("save_metas failed, rolled back in-memory meta", "error", err)
		return err
	}

	if err := idx.loadSearchers(); err != nil {
		idx.log.Errorw("load_searchers failed after publish; prior generation remains active", "error", err)
		return err
	}

	idx.metrics.recordPublish(time.Since(start).Nanoseconds())
	idx.metrics.segmentCount.Set(float64(len(installed.Segments)))
	idx.metrics.docstamp.Set(float64(installed.Docstamp))
	return nil
}

// loadSearchers constructs exactly NumSearchers identical Searchers over
// the current segment set and publishes them as a new pool generation.
// Fails if any segment cannot be opened; the prior generation remains
// active on failure.
func (idx *Index) loadSearchers() error {
	idx.loadMu.Lock()
	defer idx.loadMu.Unlock()

	idx.mu.RLock()
	ids := make([]segment.ID, len(idx.meta.Segments))
	copy(ids, idx.meta.Segments)
	idx.mu.RUnlock()

	searchers := make([]segment.Searcher, NumSearchers)
	for i := 0; i < NumSearchers; i++ {
		readers := make([]segment.SegmentReader, len(ids))

		group := new(errgroup.Group)
		for j, id := range ids {
			j, id := j, id
			group.Go(func() error {
				r, err := segment.OpenReader(idx.dir.BoxClone(), id)
				if err != nil {
					return err
				}
				readers[j] = r
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			for _, r := range readers {
				if r != nil {
					r.Close()
				}
			}
			idx.metrics.loadFailures.Inc()
			return fmt.Errorf("index: load_searchers: %w", err)
		}

		searchers[i] = segment.NewSearcher(readers)
	}

	idx.pool.PublishNewGeneration(searchers)
	idx.metrics.poolInUse.Set(float64(idx.pool.InUse()))
	return nil
}

// Clone returns a shallow clone sharing the meta lock, the meta record
// itself, the pool, and a cloned directory handle pointing at the same
// backing store. meta and metaVersion are shared pointers, not copies: a
// PublishSegments/PublishMergeSegment call made through either idx or its
// clone mutates the one backing record both see, consistent with a shared,
// interior-mutable meta protected by a single reader/writer lock.
func (idx *Index) Clone() *Index {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &Index{
		mu:            idx.mu,
		metaVersion:   idx.metaVersion,
		poisoned:      idx.poisoned,
		loadMu:        idx.loadMu,
		meta:          idx.meta,
		dir:           idx.dir.BoxClone(),
		pool:          idx.pool,
		schema:        idx.schema,
		log:           idx.log,
		metrics:       idx.metrics,
		writerFactory: idx.writerFactory,
		registry:      idx.registry,
	}
}
