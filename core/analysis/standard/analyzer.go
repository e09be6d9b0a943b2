package standard

import (
	"io"
	"unicode"

	"github.com/navychen2003/javen-sub011/core/analysis"
	. "github.com/navychen2003/javen-sub011/core/analysis/core"
	. "github.com/navychen2003/javen-sub011/core/analysis/util"
)

// standard/StandardTokenizer.java

/*
Splits text into runs of letters and digits. Apostrophes and other
punctuation break tokens.
*/
type StandardTokenizer struct {
	*CharTokenizer
}

func NewStandardTokenizer(input io.Reader) *StandardTokenizer {
	return &StandardTokenizer{NewCharTokenizer(input, isWordChar, nil)}
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// standard/StandardAnalyzer.java

/* An unmodifiable set containing some common English words that are usually not useful for searching */
var STOP_WORDS_SET = ENGLISH_STOP_WORDS_SET

/*
Filters StandardTokenizer with LowerCaseFilter and StopFilter, using a
list of English stop words.
*/
type StandardAnalyzer struct {
	*analysis.AnalyzerImpl
	*StopwordAnalyzerBase
}

/* Builds an analyzer with the given stop words. */
func NewStandardAnalyzerWithStopWords(stopWords CharArraySet) *StandardAnalyzer {
	ans := &StandardAnalyzer{StopwordAnalyzerBase: NewStopwordAnalyzerBase(stopWords)}
	ans.AnalyzerImpl = analysis.NewAnalyzer(ans)
	return ans
}

/* Buils an analyzer with the default stop words (STOP_WORDS_SET). */
func NewStandardAnalyzer() *StandardAnalyzer {
	return NewStandardAnalyzerWithStopWords(STOP_WORDS_SET)
}

func (a *StandardAnalyzer) CreateComponents(fieldName string, reader io.Reader) *analysis.TokenStreamComponents {
	src := NewStandardTokenizer(reader)
	var tok analysis.TokenStream = NewLowerCaseFilter(src)
	tok = NewStopFilter(tok, a.StopwordSet())
	return analysis.NewTokenStreamComponents(src.Tokenizer, tok)
}
