package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"indexkernel/internal/directory"
	"indexkernel/internal/storage"
)

// ErrSegmentCorrupt is returned when a postings or stored file's checksum
// does not match its contents.
var ErrSegmentCorrupt = errors.New("segment: checksum verification failed")

// MarshalPostings serializes a PostingsFile and stamps its checksum,
// following the same blank-then-hash convention as schema.MarshalSchema.
func MarshalPostings(f *PostingsFile) ([]byte, error) {
	f.Checksum = ""
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("segment: marshal postings for checksum: %w", err)
	}
	f.Checksum = storage.ComputeChecksum(data)
	return json.Marshal(f)
}

// UnmarshalPostings parses and verifies a PostingsFile.
func UnmarshalPostings(data []byte) (*PostingsFile, error) {
	var f PostingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("segment: unmarshal postings: %w", err)
	}
	want := f.Checksum
	f.Checksum = ""
	recomputed, err := json.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("segment: remarshal postings for checksum: %w", err)
	}
	got := storage.ComputeChecksum(recomputed)
	f.Checksum = want
	if got != want {
		return nil, fmt.Errorf("%w: postings for segment %s", ErrSegmentCorrupt, f.SegmentID)
	}
	return &f, nil
}

// MarshalStored serializes a StoredFile and stamps its checksum.
func MarshalStored(f *StoredFile) ([]byte, error) {
	f.Checksum = ""
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("segment: marshal stored for checksum: %w", err)
	}
	f.Checksum = storage.ComputeChecksum(data)
	return json.Marshal(f)
}

// UnmarshalStored parses and verifies a StoredFile.
func UnmarshalStored(data []byte) (*StoredFile, error) {
	var f StoredFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("segment: unmarshal stored: %w", err)
	}
	want := f.Checksum
	f.Checksum = ""
	recomputed, err := json.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("segment: remarshal stored for checksum: %w", err)
	}
	got := storage.ComputeChecksum(recomputed)
	f.Checksum = want
	if got != want {
		return nil, fmt.Errorf("%w: stored fields for segment %s", ErrSegmentCorrupt, f.SegmentID)
	}
	return &f, nil
}

// flatReader is the reference SegmentReader: both of a segment's files are
// loaded fully into memory via the Directory's WORM read handles, which is
// exactly the frozen-snapshot guarantee SegmentReader needs and nothing more.
type flatReader struct {
	id       ID
	postings *PostingsFile
	stored   *StoredFile
	sources  []directory.ReadOnlySource
}

// OpenReader opens dir and constructs a SegmentReader for id. Per the
// WORM contract, the returned reader's view is frozen even if the
// segment's files are later deleted (e.g. after a merge) out from under it.
func OpenReader(dir directory.Directory, id ID) (SegmentReader, error) {
	postingsSrc, err := dir.OpenRead(id.PostingsFileName())
	if err != nil {
		return nil, fmt.Errorf("segment: open postings for %s: %w", id, err)
	}
	postings, err := UnmarshalPostings(postingsSrc.Bytes())
	if err != nil {
		postingsSrc.Close()
		return nil, err
	}

	storedSrc, err := dir.OpenRead(id.StoredFileName())
	if err != nil {
		postingsSrc.Close()
		return nil, fmt.Errorf("segment: open stored fields for %s: %w", id, err)
	}
	stored, err := UnmarshalStored(storedSrc.Bytes())
	if err != nil {
		postingsSrc.Close()
		storedSrc.Close()
		return nil, err
	}

	return &flatReader{
		id:       id,
		postings: postings,
		stored:   stored,
		sources:  []directory.ReadOnlySource{postingsSrc, storedSrc},
	}, nil
}

func (r *flatReader) ID() ID { return r.id }

func (r *flatReader) DocCount() uint32 { return r.postings.DocCount }

func (r *flatReader) TermPostings(field, term string) (TermPostings, bool) {
	terms, ok := r.postings.Fields[field]
	if !ok {
		return TermPostings{}, false
	}
	tp, ok := terms[term]
	return tp, ok
}

func (r *flatReader) StoredFields(docID uint32) (map[string]json.RawMessage, bool) {
	fields, ok := r.stored.Documents[docID]
	return fields, ok
}

func (r *flatReader) Close() error {
	var firstErr error
	for _, s := range r.sources {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// flatSearcher is the reference Searcher: a fixed list of SegmentReaders
// queried with a simple raw-term-frequency score, summed per document
// across segments sharing the same external document identity is
// deliberately NOT attempted here — cross-segment document identity
// resolution belongs to the query engine this reference stands in for.
type flatSearcher struct {
	readers []SegmentReader
}

// NewSearcher builds a Searcher over a fixed, ordered set of readers. The
// caller (index.Index's loadSearchers) owns opening one reader per segment
// in the published meta.
func NewSearcher(readers []SegmentReader) Searcher {
	cp := make([]SegmentReader, len(readers))
	copy(cp, readers)
	return &flatSearcher{readers: cp}
}

func (s *flatSearcher) Readers() []SegmentReader {
	return s.readers
}

func (s *flatSearcher) Search(field, term string, limit int) ([]ScoredDoc, error) {
	var matches []ScoredDoc
	for _, r := range s.readers {
		tp, ok := r.TermPostings(field, term)
		if !ok {
			continue
		}
		for _, p := range tp.Postings {
			matches = append(matches, ScoredDoc{
				SegmentID: r.ID(),
				DocID:     p.DocID,
				Score:     float64(p.Freq),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *flatSearcher) Close() error {
	var firstErr error
	for _, r := range s.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
