package indexing

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"indexkernel/internal/analysis"
	"indexkernel/internal/directory"
	"indexkernel/internal/schema"
	"indexkernel/internal/segment"
)

var (
	ErrWriterLocked = errors.New("writer is already held by another caller")
)

// Document represents a JSON document to be indexed.
type Document struct {
	Fields map[string]interface{} `json:"fields"`
}

// Writer is the exclusive writer for a single index.
// Only one Writer may be active per index at any time.
type Writer struct {
	schema   *schema.Schema
	registry *analysis.Registry
	buffer   *WriteBuffer

	mu     sync.Mutex
	active bool
}

// NewWriter creates a new Writer for the given schema and analyzer registry.
func NewWriter(sch *schema.Schema, registry *analysis.Registry) *Writer {
	return &Writer{
		schema:   sch,
		registry: registry,
		buffer:   NewWriteBuffer(),
		active:   true,
	}
}

// AddDocument validates and indexes a single document into the write buffer.
func (w *Writer) AddDocument(doc Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}

	// Extract external ID.
	externalID, err := extractExternalID(doc)
	if err != nil {
		return err
	}

	// Allocate internal doc ID.
	docID, err := w.buffer.AllocateDocID(externalID)
	if err != nil {
		return err
	}

	// Process each field according to schema.
	for _, fieldDef := range w.schema.Fields {
		val, exists := doc.Fields[fieldDef.Name]
		if !exists {
			continue
		}

		switch fieldDef.Type {
		case schema.FieldTypeText:
			if err := w.indexTextField(fieldDef, docID, val); err != nil {
				return err
			}
		case schema.FieldTypeKeyword:
			if err := w.indexKeywordField(fieldDef, docID, val); err != nil {
				return err
			}
		case schema.FieldTypeStoredOnly:
			// Store only, no indexing.
		}

		// Store field value if configured.
		if fieldDef.Stored {
			data, err := marshalFieldValue(val)
			if err != nil {
				return err
			}
			w.buffer.StoreField(docID, fieldDef.Name, data)
		}
	}

	return nil
}

// AddDocuments validates and indexes multiple documents into the write buffer.
func (w *Writer) AddDocuments(docs []Document) error {
	for i, doc := range docs {
		if err := w.AddDocument(doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// DeleteDocument marks a document for deletion by external ID.
// The deletion is recorded in the write buffer's Deletions set. Commit does
// not read that set: a recorded deletion does not remove the document from
// the committed segment or from any earlier segment.
func (w *Writer) DeleteDocument(externalID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}

	w.buffer.MarkDeleted(externalID)
	return nil
}

// DocCount returns the number of documents currently in the write buffer.
func (w *Writer) DocCount() int {
	return w.buffer.DocCount
}

// IsFull returns true if the write buffer has reached its memory or document limit.
func (w *Writer) IsFull() bool {
	return w.buffer.IsFull()
}

// Buffer returns the current write buffer (for segment building).
func (w *Writer) Buffer() *WriteBuffer {
	return w.buffer
}

// Abort discards all buffered changes.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer.Reset()
}

// Release deactivates the writer: later AddDocument, DeleteDocument and
// Commit calls return ErrWriterNotActive. It holds no lock itself; the
// writer.lock file is owned and released by index.IndexWriter.
func (w *Writer) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
}

// Commit flushes the write buffer into a new segment's postings and
// stored-field files via dir, resets the buffer for reuse, and returns the
// new segment's ID. The caller is responsible for handing that ID to the
// index coordinator's publish_segments; Commit itself knows nothing about
// meta.json or generations.
func (w *Writer) Commit(dir directory.Directory) (segment.ID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return segment.ID{}, ErrWriterNotActive
	}
	if w.buffer.DocCount == 0 {
		return segment.ID{}, errors.New("indexing: cannot commit an empty write buffer")
	}

	id := segment.NewID()

	postings := &segment.PostingsFile{
		SegmentID: id.String(),
		DocCount:  uint32(w.buffer.DocCount),
		Fields:    make(map[string]map[string]segment.TermPostings),
	}
	for field, terms := range w.buffer.InvertedIndex {
		out := make(map[string]segment.TermPostings, len(terms))
		for term, list := range terms {
			entries := make([]segment.Posting, len(list.Entries))
			for i, e := range list.Entries {
				entries[i] = segment.Posting{DocID: e.DocID, Freq: e.Freq, Positions: e.Positions}
			}
			out[term] = segment.TermPostings{DocFreq: len(entries), Postings: entries}
		}
		postings.Fields[field] = out
	}

	stored := &segment.StoredFile{
		SegmentID: id.String(),
		Documents: make(map[uint32]map[string]json.RawMessage, len(w.buffer.StoredFields)),
	}
	for docID, fields := range w.buffer.StoredFields {
		out := make(map[string]json.RawMessage, len(fields))
		for name, raw := range fields {
			out[name] = json.RawMessage(raw)
		}
		stored.Documents[docID] = out
	}

	postingsData, err := segment.MarshalPostings(postings)
	if err != nil {
		return segment.ID{}, fmt.Errorf("indexing: marshal postings for segment %s: %w", id, err)
	}
	if err := dir.AtomicWrite(id.PostingsFileName(), postingsData); err != nil {
		return segment.ID{}, fmt.Errorf("indexing: write postings for segment %s: %w", id, err)
	}

	storedData, err := segment.MarshalStored(stored)
	if err != nil {
		return segment.ID{}, fmt.Errorf("indexing: marshal stored fields for segment %s: %w", id, err)
	}
	if err := dir.AtomicWrite(id.StoredFileName(), storedData); err != nil {
		return segment.ID{}, fmt.Errorf("indexing: write stored fields for segment %s: %w", id, err)
	}

	w.buffer.Reset()
	return id, nil
}

func (w *Writer) indexTextField(fieldDef schema.FieldDef, docID uint32, val interface{}) error {
	text, ok := val.(string)
	if !ok {
		return errors.New("text field value must be a string")
	}

	analyzerName := fieldDef.Analyzer
	if analyzerName == "" {
		analyzerName = w.schema.DefaultAnalyzer
	}
	if analyzerName == "" {
		analyzerName = "standard"
	}

	analyzer, err := w.registry.Get(analyzerName)
	if err != nil {
		return err
	}

	tokens := analyzer.Analyze(fieldDef.Name, text)

	// Build term frequencies and positions.
	termFreqs := make(map[string]uint32)
	termPositions := make(map[string][]uint32)
	for _, tok := range tokens {
		termFreqs[tok.Term]++
		if fieldDef.Positions {
			termPositions[tok.Term] = append(termPositions[tok.Term], uint32(tok.Position))
		}
	}

	for term, freq := range termFreqs {
		var positions []uint32
		if fieldDef.Positions {
			positions = termPositions[term]
		}
		w.buffer.AddPosting(fieldDef.Name, term, docID, freq, positions)
	}

	return nil
}

func (w *Writer) indexKeywordField(fieldDef schema.FieldDef, docID uint32, val interface{}) error {
	switch v := val.(type) {
	case string:
		w.buffer.AddPosting(fieldDef.Name, v, docID, 1, nil)
	case []interface{}:
		if !fieldDef.MultiValued {
			return errors.New("field is not multi-valued but received array")
		}
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return errors.New("keyword array values must be strings")
			}
			w.buffer.AddPosting(fieldDef.Name, s, docID, 1, nil)
		}
	default:
		return errors.New("keyword field value must be a string or string array")
	}
	return nil
}

func extractExternalID(doc Document) (string, error) {
	idVal, ok := doc.Fields["id"]
	if !ok {
		return "", errors.New("document missing 'id' field")
	}
	id, ok := idVal.(string)
	if !ok {
		return "", errors.New("document 'id' must be a string")
	}
	return id, nil
}

func marshalFieldValue(val interface{}) ([]byte, error) {
	return json.Marshal(val)
}
