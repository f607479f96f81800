package analysis

// StandardAnalyzer tokenizes on Unicode word boundaries and lowercases
// every term. It is the default analyzer for text fields that don't name
// one explicitly.
type StandardAnalyzer struct {
	*pipeline
}

// NewStandardAnalyzer builds the word-boundary tokenizer plus a lowercase
// filter.
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{pipeline: newPipeline(wordTokenizer{}, lowercaseFilter{})}
}
