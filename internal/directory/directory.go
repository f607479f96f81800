// Package directory implements the write-once-read-many (WORM) virtual
// filesystem that the index coordinator persists segments and metadata to.
//
// Two implementations are provided: RAMDirectory, an in-memory store for
// tests, and MmapDirectory, an on-disk store backed by memory-mapped reads.
// Both satisfy the same Directory contract: once open_read succeeds the
// returned bytes never change for the lifetime of the handle, even if the
// file is later deleted or rewritten via atomic_write.
package directory

import (
	"errors"
	"fmt"
	"io"
)

// Error kinds surfaced by Directory implementations. Callers should use
// errors.Is against these sentinels; concrete errors wrap them with the
// offending path via fmt.Errorf("...: %w", ...).
var (
	// ErrDoesNotExist is returned by OpenRead or Delete for a missing path.
	ErrDoesNotExist = errors.New("directory: file does not exist")

	// ErrFileAlreadyExists is returned by OpenWrite when the path is
	// already occupied, and by writer-lock acquisition built on top of it.
	ErrFileAlreadyExists = errors.New("directory: file already exists")

	// ErrIoError wraps an underlying filesystem failure, including a
	// failed atomic_write rename.
	ErrIoError = errors.New("directory: io error")
)

// ReadOnlySource is a stable, immutable view over a virtual file's bytes.
// Once returned from OpenRead, its Bytes() never change, even across a
// concurrent Delete or a later OpenWrite/atomic_write for the same path.
type ReadOnlySource interface {
	// Bytes returns the full contents of the file as of the moment
	// OpenRead returned this handle.
	Bytes() []byte

	// Close releases any resources (e.g. a memory mapping) backing this
	// source. Bytes() must not be called after Close.
	Close() error
}

// WriteCloser is the handle returned by OpenWrite. Writes may be buffered;
// callers must call Flush before relying on OpenRead observing them, and
// must not assume Close implies Flush.
type WriteCloser interface {
	io.Writer
	io.Seeker

	// Flush persists buffered writes so that subsequent OpenRead calls
	// observe them. Flush is idempotent.
	Flush() error

	// Close releases the handle. Implementations MUST NOT silently
	// drop unflushed data: RAMDirectory panics if Close observes
	// unflushed writes, to catch test-time misuse; MmapDirectory relies
	// on the OS page cache as the backstop for durability between Flush
	// and Close.
	Close() error
}

// Directory is a process-local handle to a WORM virtual filesystem keyed by
// relative, slash-separated paths. Implementations must be safe for
// concurrent use by multiple goroutines (Send + Sync in spec terms).
type Directory interface {
	// OpenRead returns a stable read-only view of path's bytes.
	// Returns ErrDoesNotExist if path has never been written (or was
	// deleted and never rewritten).
	OpenRead(path string) (ReadOnlySource, error)

	// OpenWrite creates path and returns a handle for sequential writes.
	// Returns ErrFileAlreadyExists if path already exists. path exists
	// from this call on, so an OpenRead before any Flush succeeds and may
	// return no bytes; written bytes are guaranteed visible to OpenRead
	// only after Flush.
	OpenWrite(path string) (WriteCloser, error)

	// AtomicWrite replaces path's entire contents such that no reader
	// ever observes a partial write: implementations write to a sibling
	// temp file, flush+sync it, then rename it over path. path may or
	// may not exist beforehand.
	AtomicWrite(path string, data []byte) error

	// Delete removes path. Any ReadOnlySource already opened against it
	// continues to return its original bytes. Returns ErrDoesNotExist
	// if path is absent.
	Delete(path string) error

	// BoxClone returns an independently owned handle to the same
	// underlying store (the Go analogue of tantivy's box_clone).
	BoxClone() Directory
}

func notExist(path string) error {
	return fmt.Errorf("%w: %s", ErrDoesNotExist, path)
}

func alreadyExists(path string) error {
	return fmt.Errorf("%w: %s", ErrFileAlreadyExists, path)
}

func ioErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIoError, fmt.Sprintf(format, args...))
}
