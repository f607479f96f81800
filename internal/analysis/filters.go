package analysis

import "strings"

// lowercaseFilter folds every term to lower case so "Fox" and "fox" post
// to the same term. NewStandardAnalyzer always attaches one.
type lowercaseFilter struct{}

func (lowercaseFilter) Apply(tokens []Token) []Token {
	for i := range tokens {
		tokens[i].Term = strings.ToLower(tokens[i].Term)
	}
	return tokens
}

// StopWordFilter drops tokens whose term is in a fixed set, e.g. so a
// field's term dictionary doesn't fill up with "the"/"and"/"of". It is
// not attached to any built-in analyzer — callers register an analyzer
// that uses one via Registry.Register when a field's content calls for it.
type StopWordFilter struct {
	words map[string]struct{}
}

// NewStopWordFilter builds a StopWordFilter dropping exactly the given
// terms (matched post-lowercasing, so callers should pass lower-case
// words when chaining after a lowercaseFilter).
func NewStopWordFilter(words ...string) *StopWordFilter {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return &StopWordFilter{words: set}
}

func (f *StopWordFilter) Apply(tokens []Token) []Token {
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, drop := f.words[tok.Term]; drop {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}
