package analysis

// KeywordAnalyzer emits the entire field value as a single exact-match
// term, with no tokenization or normalization.
type KeywordAnalyzer struct {
	*pipeline
}

// NewKeywordAnalyzer builds a whole-text tokenizer with no filters.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{pipeline: newPipeline(wholeTextTokenizer{})}
}
