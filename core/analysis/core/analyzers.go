package core

import (
	"io"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/analysis/util"
)

// analysis/core/WhitespaceAnalyzer.java

// An Analyzer that uses WhitespaceTokenizer.
type WhitespaceAnalyzer struct {
	*analysis.AnalyzerImpl
}

func NewWhitespaceAnalyzer() *WhitespaceAnalyzer {
	ans := new(WhitespaceAnalyzer)
	ans.AnalyzerImpl = analysis.NewAnalyzer(ans)
	return ans
}

func (a *WhitespaceAnalyzer) CreateComponents(fieldName string, reader io.Reader) *analysis.TokenStreamComponents {
	src := NewWhitespaceTokenizer(reader)
	return analysis.NewTokenStreamComponents(src.Tokenizer, src)
}

// analysis/core/SimpleAnalyzer.java

// An Analyzer that filters LetterTokenizer with LowerCaseFilter.
type SimpleAnalyzer struct {
	*analysis.AnalyzerImpl
}

func NewSimpleAnalyzer() *SimpleAnalyzer {
	ans := new(SimpleAnalyzer)
	ans.AnalyzerImpl = analysis.NewAnalyzer(ans)
	return ans
}

func (a *SimpleAnalyzer) CreateComponents(fieldName string, reader io.Reader) *analysis.TokenStreamComponents {
	src := NewLowerCaseTokenizer(reader)
	return analysis.NewTokenStreamComponents(src.Tokenizer, src)
}

// analysis/core/StopAnalyzer.java

// Filters LetterTokenizer with LowerCaseFilter and StopFilter.
type StopAnalyzer struct {
	*analysis.AnalyzerImpl
	*util.StopwordAnalyzerBase
}

// Builds an analyzer which removes words in ENGLISH_STOP_WORDS_SET.
func NewStopAnalyzer() *StopAnalyzer {
	return NewStopAnalyzerWith(ENGLISH_STOP_WORDS_SET)
}

func NewStopAnalyzerWith(stopWords util.CharArraySet) *StopAnalyzer {
	ans := &StopAnalyzer{StopwordAnalyzerBase: util.NewStopwordAnalyzerBase(stopWords)}
	ans.AnalyzerImpl = analysis.NewAnalyzer(ans)
	return ans
}

func (a *StopAnalyzer) CreateComponents(fieldName string, reader io.Reader) *analysis.TokenStreamComponents {
	src := NewLowerCaseTokenizer(reader)
	return analysis.NewTokenStreamComponents(src.Tokenizer, NewStopFilter(src, a.StopwordSet()))
}

// analysis/core/KeywordAnalyzer.java

// "Tokenizes" the entire stream as a single token.
type KeywordAnalyzer struct {
	*analysis.AnalyzerImpl
}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	ans := new(KeywordAnalyzer)
	ans.AnalyzerImpl = analysis.NewAnalyzer(ans)
	return ans
}

func (a *KeywordAnalyzer) CreateComponents(fieldName string, reader io.Reader) *analysis.TokenStreamComponents {
	src := NewKeywordTokenizer(reader)
	return analysis.NewTokenStreamComponents(src.Tokenizer, src)
}
