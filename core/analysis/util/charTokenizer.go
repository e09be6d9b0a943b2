package util

import (
	"io"

	"github.com/navychen2003/javen-sub011/core/analysis"
)

// analysis/util/CharTokenizer.java

const DEFAULT_MAX_WORD_LEN = 255

/*
An abstract base for simple, character-oriented tokenizers. A token
is a maximal run of runes accepted by isTokenChar, each passed through
normalize before being appended. Tokens longer than maxTokenLen runes
are split.
*/
type CharTokenizer struct {
	*analysis.Tokenizer
	isTokenChar func(rune) bool
	normalize   func(rune) rune
	maxTokenLen int
}

func NewCharTokenizer(input io.Reader, isTokenChar func(rune) bool, normalize func(rune) rune) *CharTokenizer {
	if normalize == nil {
		normalize = func(r rune) rune { return r }
	}
	return &CharTokenizer{
		Tokenizer:   analysis.NewTokenizer(input),
		isTokenChar: isTokenChar,
		normalize:   normalize,
		maxTokenLen: DEFAULT_MAX_WORD_LEN,
	}
}

func (t *CharTokenizer) IncrementToken() (bool, error) {
	tok := t.Token()
	tok.Clear()
	length, start, end := 0, -1, 0
	for {
		before := t.Offset()
		r, _, err := t.ReadRune()
		if err == io.EOF {
			break
		} else if err != nil {
			return false, err
		}
		if !t.isTokenChar(r) {
			if length > 0 {
				break
			}
			continue
		}
		if length == 0 {
			start = before
		}
		tok.AppendRune(t.normalize(r))
		length++
		end = t.Offset()
		if length >= t.maxTokenLen {
			break
		}
	}
	if length == 0 {
		return false, nil
	}
	tok.StartOffset, tok.EndOffset = start, end
	return true, nil
}
