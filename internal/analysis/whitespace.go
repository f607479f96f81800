package analysis

// WhitespaceAnalyzer splits on whitespace only, preserving case and
// punctuation — useful for fields like codes or identifiers that still
// need to be split into multiple terms but must not be case-folded.
type WhitespaceAnalyzer struct {
	*pipeline
}

// NewWhitespaceAnalyzer builds a whitespace tokenizer with no filters.
func NewWhitespaceAnalyzer() *WhitespaceAnalyzer {
	return &WhitespaceAnalyzer{pipeline: newPipeline(whitespaceTokenizer{})}
}
