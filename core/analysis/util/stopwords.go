package util

import (
	"strings"
)

// analysis/util/CharArraySet.java

// A set of words compared after lower-casing.
type CharArraySet map[string]bool

func NewCharArraySet(words ...string) CharArraySet {
	set := make(CharArraySet, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

func (s CharArraySet) Contains(term []byte) bool {
	return s[string(term)]
}

// analysis/util/StopwordAnalyzerBase.java

/* Base for analyzers that need to make use of stopword sets. */
type StopwordAnalyzerBase struct {
	stopwords CharArraySet
}

func NewStopwordAnalyzerBase(stopwords CharArraySet) *StopwordAnalyzerBase {
	if stopwords == nil {
		stopwords = CharArraySet{}
	}
	return &StopwordAnalyzerBase{stopwords}
}

func (a *StopwordAnalyzerBase) StopwordSet() CharArraySet {
	return a.stopwords
}
