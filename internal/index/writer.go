package index

import (
	"fmt"
	"sync"

	"indexkernel/internal/directory"
	"indexkernel/internal/indexing"
	"indexkernel/internal/segment"
)

// IndexWriter is the coordinator's handle on the external ingestion
// component: it owns the writer.lock file granting mutual exclusion and
// delegates document mutation to an injected indexing.Writer. Building
// segment files is the writer's job (Commit); making them searchable is
// the coordinator's (Index.PublishSegments).
type IndexWriter struct {
	idx   *Index
	inner *indexing.Writer
	lock  directory.WriteCloser

	mu       sync.Mutex
	released bool
}

// AddDocument indexes a single document into the writer's buffer.
func (w *IndexWriter) AddDocument(doc indexing.Document) error {
	return w.inner.AddDocument(doc)
}

// AddDocuments indexes multiple documents into the writer's buffer.
func (w *IndexWriter) AddDocuments(docs []indexing.Document) error {
	return w.inner.AddDocuments(docs)
}

// DeleteDocument marks a document for deletion by external ID.
func (w *IndexWriter) DeleteDocument(externalID string) error {
	return w.inner.DeleteDocument(externalID)
}

// DocCount returns the number of documents currently buffered.
func (w *IndexWriter) DocCount() int {
	return w.inner.DocCount()
}

// IsFull returns true if the buffer has reached its memory or document limit.
func (w *IndexWriter) IsFull() bool {
	return w.inner.IsFull()
}

// Commit flushes the buffered documents into a new segment's files and
// returns its ID. It does not publish the segment; the caller passes the
// returned ID to Index.PublishSegments to make it searchable.
func (w *IndexWriter) Commit() (segment.ID, error) {
	return w.inner.Commit(w.idx.dir)
}

// Abort discards all buffered changes without releasing the writer lock.
func (w *IndexWriter) Abort() {
	w.inner.Abort()
}

// Release releases both the reference writer and the writer.lock file,
// allowing a subsequent Writer()/WriterWithNumThreads() call to succeed.
func (w *IndexWriter) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}
	w.released = true

	w.inner.Release()
	if err := w.lock.Close(); err != nil {
		return fmt.Errorf("index: release writer lock: %w", err)
	}
	if err := w.idx.dir.Delete(writerLockName); err != nil {
		return fmt.Errorf("index: delete writer lock: %w", err)
	}
	return nil
}
