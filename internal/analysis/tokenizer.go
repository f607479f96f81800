package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordTokenizer splits on Unicode word boundaries: runs of letters,
// digits, and underscores are tokens, everything else is a separator.
// Terms keep their original case — NewStandardAnalyzer attaches a
// lowercaseFilter on top.
type wordTokenizer struct{}

func (wordTokenizer) Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	i := 0

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			i += size
			continue
		}

		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}

		tokens = append(tokens, Token{
			Term:      text[start:i],
			Position:  pos,
			StartByte: start,
			EndByte:   i,
		})
		pos++
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// whitespaceTokenizer splits on runs of whitespace only, applying no
// normalization — used for fields where casing and punctuation are part
// of the term's identity (e.g. SKUs, status codes).
type whitespaceTokenizer struct{}

func (whitespaceTokenizer) Tokenize(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))

	pos := 0
	searchFrom := 0
	for _, f := range fields {
		idx := strings.Index(text[searchFrom:], f)
		startByte := searchFrom + idx
		endByte := startByte + len(f)

		tokens = append(tokens, Token{
			Term:      f,
			Position:  pos,
			StartByte: startByte,
			EndByte:   endByte,
		})
		pos++
		searchFrom = endByte
	}

	return tokens
}

// wholeTextTokenizer emits the entire input as a single token, used for
// keyword fields that must match exactly (ids, tags, enum values).
type wholeTextTokenizer struct{}

func (wholeTextTokenizer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	return []Token{{Term: text, Position: 0, StartByte: 0, EndByte: len(text)}}
}
