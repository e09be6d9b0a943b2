package core

import (
	"io"
	"unicode"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/analysis/util"
)

// analysis/core/WhitespaceTokenizer.java

// Divides text at whitespace.
type WhitespaceTokenizer struct {
	*util.CharTokenizer
}

func NewWhitespaceTokenizer(input io.Reader) *WhitespaceTokenizer {
	return &WhitespaceTokenizer{util.NewCharTokenizer(input,
		func(r rune) bool { return !unicode.IsSpace(r) }, nil)}
}

// analysis/core/LetterTokenizer.java

// Divides text at non-letters.
type LetterTokenizer struct {
	*util.CharTokenizer
}

func NewLetterTokenizer(input io.Reader) *LetterTokenizer {
	return &LetterTokenizer{util.NewCharTokenizer(input, unicode.IsLetter, nil)}
}

// analysis/core/LowerCaseTokenizer.java

// Divides text at non-letters and lower-cases the letters.
func NewLowerCaseTokenizer(input io.Reader) *LetterTokenizer {
	return &LetterTokenizer{util.NewCharTokenizer(input, unicode.IsLetter, unicode.ToLower)}
}

// analysis/core/KeywordTokenizer.java

// Emits the entire input as a single token.
type KeywordTokenizer struct {
	*analysis.Tokenizer
	done bool
}

func NewKeywordTokenizer(input io.Reader) *KeywordTokenizer {
	return &KeywordTokenizer{Tokenizer: analysis.NewTokenizer(input)}
}

func (t *KeywordTokenizer) Reset() error {
	t.done = false
	return t.Tokenizer.Reset()
}

func (t *KeywordTokenizer) IncrementToken() (bool, error) {
	if t.done {
		return false, nil
	}
	t.done = true
	tok := t.Token()
	tok.Clear()
	for {
		r, _, err := t.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return false, err
		}
		tok.AppendRune(r)
	}
	tok.StartOffset, tok.EndOffset = 0, t.Offset()
	return true, nil
}
