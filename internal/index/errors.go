package index

import (
	"errors"
	"fmt"

	"indexkernel/internal/directory"
)

// Domain-level error kinds surfaced by the coordinator. FileAlreadyExists,
// DoesNotExist and IoError are the directory package's own sentinels,
// re-exported here so callers of this package never need to import
// internal/directory just to use errors.Is.
var (
	ErrFileAlreadyExists = directory.ErrFileAlreadyExists
	ErrDoesNotExist      = directory.ErrDoesNotExist
	ErrIoError           = directory.ErrIoError

	// ErrCorruptedFile is returned when meta.json exists but fails to parse.
	ErrCorruptedFile = errors.New("index: corrupted file")

	// ErrLockPoisoned is returned by PublishSegments, PublishMergeSegment
	// and WriterWithNumThreads once a prior holder of the meta lock has
	// panicked while holding it; the read accessors (Schema, Docstamp,
	// Segments) do not report it. Go's sync.RWMutex
	// does not poison itself the way Rust's std::sync::RwLock does, so
	// Index tracks this explicitly; no recovery is attempted.
	ErrLockPoisoned = errors.New("index: meta lock poisoned by a prior panic")
)

func corruptedFile(path string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptedFile, path, cause)
}
