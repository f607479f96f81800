// Package segment defines the on-disk unit of committed data (SegmentId,
// SegmentReader, Searcher) along with a deliberately modest reference
// implementation — flat JSON postings and stored-field files, no FST, a
// simple term-frequency score — sufficient to exercise the index coordinator
// end to end. Query planning, scoring refinements, and compression are out
// of scope.
package segment

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID uniquely identifies a segment within an index. It is generated once
// when a segment is created and never reused, even after the segment is
// merged away or deleted, matching tantivy's SegmentId (a random 128-bit
// UUID rather than a counter, so concurrently created segments never
// collide even across process restarts).
type ID struct {
	uuid uuid.UUID
}

// NewID generates a fresh, collision-resistant segment identifier.
func NewID() ID {
	return ID{uuid: uuid.New()}
}

// ParseID parses the textual form produced by String back into an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("segment: invalid segment id %q: %w", s, err)
	}
	return ID{uuid: u}, nil
}

// String renders the stable textual form used as a filename stem, e.g.
// "a1b2c3d4-....postings.json".
func (id ID) String() string {
	return id.uuid.String()
}

// PostingsFileName returns the reference postings file name for this segment.
func (id ID) PostingsFileName() string {
	return id.String() + ".postings.json"
}

// StoredFileName returns the reference stored-fields file name for this segment.
func (id ID) StoredFileName() string {
	return id.String() + ".stored.json"
}

// MarshalJSON renders the ID as its canonical string form, so IndexMeta's
// segment list reads as a plain JSON array of strings on disk.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.uuid.String())
}

// UnmarshalJSON parses the canonical string form produced by MarshalJSON.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("segment: unmarshal id: %w", err)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("segment: invalid segment id %q: %w", s, err)
	}
	id.uuid = u
	return nil
}
