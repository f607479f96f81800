package index

import (
	"encoding/json"
	"fmt"

	"indexkernel/internal/directory"
	"indexkernel/internal/schema"
	"indexkernel/internal/segment"
)

const metaFileName = "meta.json"

// Meta is the single source of truth for what is currently searchable: the
// ordered set of segment IDs, the schema carried verbatim, and the
// cumulative document count. It is serialized to meta.json and replaced
// wholesale via Directory.AtomicWrite — readers never observe a torn blob.
type Meta struct {
	Segments []segment.ID  `json:"segments"`
	Schema   schema.Schema `json:"schema"`
	Docstamp uint64        `json:"docstamp"`
}

// newMeta returns the initial meta written by create/create_in_ram/
// create_from_tempdir: no segments, docstamp zero.
func newMeta(s schema.Schema) Meta {
	return Meta{
		Segments: []segment.ID{},
		Schema:   s,
		Docstamp: 0,
	}
}

// clone returns a deep-enough copy for use as a pre-mutation snapshot that
// PublishSegments/PublishMergeSegment (via persistAndReload) can restore
// on a save failure.
func (m Meta) clone() Meta {
	segs := make([]segment.ID, len(m.Segments))
	copy(segs, m.Segments)
	return Meta{Segments: segs, Schema: m.Schema, Docstamp: m.Docstamp}
}

// saveMeta serializes m and writes it via dir.AtomicWrite to meta.json,
// appending a trailing newline for diff-friendliness on disk.
func saveMeta(dir directory.Directory, m Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("index: marshal meta: %w", err)
	}
	data = append(data, '\n')
	if err := dir.AtomicWrite(metaFileName, data); err != nil {
		return fmt.Errorf("index: save meta: %w", err)
	}
	return nil
}

// loadMeta reads and parses meta.json. Returns ErrCorruptedFile on a parse
// failure and ErrDoesNotExist if the file is missing.
func loadMeta(dir directory.Directory) (Meta, error) {
	src, err := dir.OpenRead(metaFileName)
	if err != nil {
		return Meta{}, err
	}
	defer src.Close()

	var m Meta
	if err := json.Unmarshal(src.Bytes(), &m); err != nil {
		return Meta{}, corruptedFile(metaFileName, err)
	}
	return m, nil
}
