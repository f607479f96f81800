// Package manager hosts a named collection of index.Index coordinators
// rooted under one data directory: one subdirectory per named index, each
// opened via index.Open/index.Create.
package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"indexkernel/internal/index"
	"indexkernel/internal/schema"
	"indexkernel/internal/storage"
)

var (
	ErrIndexExists   = errors.New("manager: index already exists")
	ErrIndexNotFound = errors.New("manager: index not found")
)

// Manager owns a set of named Indexes, each backed by its own subdirectory
// of rootDir.
type Manager struct {
	rootDir string
	log     *zap.SugaredLogger
	opts    index.Options

	mu      sync.RWMutex
	indexes map[string]*index.Index
}

// Options configures a new Manager. Logger is the manager's own logger;
// IndexOptions is passed unchanged to every index.Index the manager opens
// or creates.
type Options struct {
	Logger       *zap.SugaredLogger
	IndexOptions index.Options
}

// New constructs a Manager rooted at dataDir, eagerly opening every index
// subdirectory found there. A subdirectory that fails to open (e.g. a
// corrupted meta.json) is logged and skipped rather than failing the whole
// call.
func New(dataDir string, opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if err := storage.EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("manager: ensure root dir %s: %w", dataDir, err)
	}

	m := &Manager{
		rootDir: dataDir,
		log:     opts.Logger,
		opts:    opts.IndexOptions,
		indexes: make(map[string]*index.Index),
	}

	names, err := storage.ListSubdirs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("manager: list %s: %w", dataDir, err)
	}
	for _, name := range names {
		idx, err := index.Open(m.pathFor(name), m.opts)
		if err != nil {
			m.log.Errorw("skipping index that failed to open", "name", name, "error", err)
			continue
		}
		m.indexes[name] = idx
		m.log.Infow("index loaded", "name", name, "docstamp", idx.Docstamp(), "segments", len(idx.Segments()))
	}
	return m, nil
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.rootDir, name)
}

// CreateIndex creates and registers a new named index with the given
// schema. Returns ErrIndexExists if name is already registered.
func (m *Manager) CreateIndex(name string, s schema.Schema) (*index.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; exists {
		return nil, ErrIndexExists
	}

	idx, err := index.Create(m.pathFor(name), s, m.opts)
	if err != nil {
		return nil, fmt.Errorf("manager: create index %s: %w", name, err)
	}
	m.indexes[name] = idx
	m.log.Infow("index created", "name", name)
	return idx, nil
}

// OpenIndex returns the named index, already loaded at New time or created
// via CreateIndex. Returns ErrIndexNotFound otherwise.
func (m *Manager) OpenIndex(name string) (*index.Index, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, exists := m.indexes[name]
	if !exists {
		return nil, ErrIndexNotFound
	}
	return idx, nil
}

// DeleteIndex removes a named index's on-disk directory and unregisters it.
func (m *Manager) DeleteIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; !exists {
		return ErrIndexNotFound
	}

	if err := os.RemoveAll(m.pathFor(name)); err != nil {
		return fmt.Errorf("manager: delete index %s: %w", name, err)
	}
	delete(m.indexes, name)
	m.log.Infow("index deleted", "name", name)
	return nil
}

// ListIndexes returns the names of every currently registered index, in no
// particular order.
func (m *Manager) ListIndexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	return names
}
