package core

import (
	"bytes"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/analysis/util"
)

// analysis/core/LowerCaseFilter.java

// Normalizes token text to lower case.
type LowerCaseFilter struct {
	*analysis.TokenFilter
}

func NewLowerCaseFilter(input analysis.TokenStream) *LowerCaseFilter {
	return &LowerCaseFilter{analysis.NewTokenFilter(input)}
}

func (f *LowerCaseFilter) IncrementToken() (bool, error) {
	ok, err := f.Input.IncrementToken()
	if !ok || err != nil {
		return ok, err
	}
	tok := f.Token()
	tok.Term = append(tok.Term[:0], bytes.ToLower(tok.Term)...)
	return true, nil
}

// analysis/core/StopFilter.java

/*
Removes stop words from a token stream. The position increments of
removed tokens are added to the next kept token.
*/
type StopFilter struct {
	*analysis.TokenFilter
	stopWords util.CharArraySet
}

func NewStopFilter(input analysis.TokenStream, stopWords util.CharArraySet) *StopFilter {
	return &StopFilter{analysis.NewTokenFilter(input), stopWords}
}

func (f *StopFilter) IncrementToken() (bool, error) {
	skipped := 0
	tok := f.Token()
	for {
		ok, err := f.Input.IncrementToken()
		if !ok || err != nil {
			return ok, err
		}
		if !f.stopWords.Contains(tok.Term) {
			tok.PositionIncrement += skipped
			return true, nil
		}
		skipped += tok.PositionIncrement
	}
}

/* An unmodifiable set containing some common English words that are not usually useful for searching. */
var ENGLISH_STOP_WORDS_SET = util.NewCharArraySet(
	"a", "an", "and", "are", "as", "at", "be", "but", "by",
	"for", "if", "in", "into", "is", "it",
	"no", "not", "of", "on", "or", "such",
	"that", "the", "their", "then", "there", "these",
	"they", "this", "to", "was", "will", "with",
)
