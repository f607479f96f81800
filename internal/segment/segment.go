package segment

import (
	"encoding/json"

	"indexkernel/internal/storage"
)

// Segment addresses one unit of committed, immutable data within an index.
// It carries no open file handles; opening them is SegmentReader's job.
type Segment struct {
	id ID
}

// New returns a handle for id. It performs no I/O; the segment's files may
// not even exist yet (e.g. while indexing.Writer is still building them).
func New(id ID) Segment {
	return Segment{id: id}
}

// ID returns the segment's identifier.
func (s Segment) ID() ID {
	return s.id
}

// Posting is one occurrence record for a term within a single document.
type Posting struct {
	DocID     uint32   `json:"doc_id"`
	Freq      uint32   `json:"freq"`
	Positions []uint32 `json:"positions,omitempty"`
}

// TermPostings is the postings list for one term within one field.
type TermPostings struct {
	DocFreq  int       `json:"doc_freq"`
	Postings []Posting `json:"postings"`
}

// PostingsFile is the reference on-disk format written by indexing.Writer
// and read by SegmentReader: field name -> term -> postings list. There is
// no FST or compressed codec here; this is the "~15%, interface only"
// encoding concern made just concrete enough to run end to end.
type PostingsFile struct {
	SegmentID string                              `json:"segment_id"`
	DocCount  uint32                              `json:"doc_count"`
	Fields    map[string]map[string]TermPostings  `json:"fields"`
	Checksum  storage.Checksum                    `json:"checksum"`
}

// StoredFile is the reference on-disk format for stored field values,
// keyed by internal document ID.
type StoredFile struct {
	SegmentID string                                  `json:"segment_id"`
	Documents map[uint32]map[string]json.RawMessage   `json:"documents"`
	Checksum  storage.Checksum                         `json:"checksum"`
}

// SegmentReader is the open, read-only view over one segment's files.
// Constructible from a Segment; once constructed, its view is frozen
// (the WORM guarantee the directory contract provides).
type SegmentReader interface {
	// ID returns the identifier of the segment this reader views.
	ID() ID

	// DocCount returns the number of live documents in the segment.
	DocCount() uint32

	// TermPostings returns the postings for term within field, if present.
	TermPostings(field, term string) (TermPostings, bool)

	// StoredFields returns the stored field values for an internal
	// document ID, if the document is stored and present.
	StoredFields(docID uint32) (map[string]json.RawMessage, bool)

	// Close releases resources (e.g. the underlying ReadOnlySource)
	// backing this reader.
	Close() error
}

// ScoredDoc is one match returned by Searcher.Search, carrying enough to
// identify the document and rank it among others.
type ScoredDoc struct {
	SegmentID ID
	DocID     uint32
	Score     float64
}

// Searcher is an ordered, immutable collection of SegmentReaders over
// which a query executes atomically: every call sees the same fixed
// snapshot of segments for the Searcher's lifetime.
type Searcher interface {
	// Readers returns the segment readers backing this searcher, in a
	// stable order.
	Readers() []SegmentReader

	// Search runs a single-term term-frequency query across every
	// reader and returns matches ordered by descending score. This is
	// deliberately minimal: boolean queries, phrase queries, and BM25
	// are out of scope (query parsing/scoring/collection, ~10%,
	// interface only).
	Search(field, term string, limit int) ([]ScoredDoc, error)

	// Close releases every underlying SegmentReader.
	Close() error
}
