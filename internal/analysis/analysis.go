// Package analysis turns the raw string value of a text field into the
// stream of terms a segment indexes, mirroring tantivy's split between a
// Tokenizer (cuts text into candidate tokens) and a chain of TokenFilters
// (normalize or drop them) rather than one monolithic function per analyzer.
package analysis

// Token is one unit produced while analyzing a field value: a term plus
// its position in the token stream and its byte span in the original text
// (indexing.Writer records Position in the postings of fields that keep
// positions; no other package reads StartByte/EndByte).
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int
}

// Analyzer turns a field's text into a token stream. Every built-in
// analyzer is stateless and holds no per-call buffers, so a single
// instance is shared by every goroutine indexing through the same Writer.
type Analyzer interface {
	Analyze(field string, text string) []Token
}

// Tokenizer cuts raw text into candidate tokens. It does not normalize
// terms or drop any of them — that is a Filter's job.
type Tokenizer interface {
	Tokenize(text string) []Token
}

// Filter transforms or drops tokens produced by a Tokenizer. Filters run
// in the order they're attached to a pipeline and receive the previous
// filter's output.
type Filter interface {
	Apply(tokens []Token) []Token
}

// pipeline is an Analyzer built from one Tokenizer and zero or more
// Filters, e.g. NewStandardAnalyzer's word tokenizer followed by a
// lowercase filter.
type pipeline struct {
	tokenizer Tokenizer
	filters   []Filter
}

func newPipeline(t Tokenizer, filters ...Filter) *pipeline {
	return &pipeline{tokenizer: t, filters: filters}
}

func (p *pipeline) Analyze(_ string, text string) []Token {
	tokens := p.tokenizer.Tokenize(text)
	for _, f := range p.filters {
		tokens = f.Apply(tokens)
	}
	return tokens
}
