package analysis

import (
	"io"
	"strings"
)

// analysis/Analyzer.java

/*
An Analyzer builds TokenStreams, which analyze text. It thus represents
a policy for extracting index terms from text.

The indexing pipeline only depends on this contract: given a field
name and its text, produce a stream of tokens.
*/
type Analyzer interface {
	// Returns a TokenStream suitable for fieldName, tokenizing the
	// contents of reader.
	TokenStream(fieldName string, reader io.Reader) (TokenStream, error)
	/*
		Invoked before indexing a field instance if terms have already
		been added to that field. Allows custom analyzers to place an
		automatic position increment gap between field instances.
	*/
	PositionIncrementGap(fieldName string) int
}

/*
This class encapsulates the outer components of a token stream. It
provides access to the source (Tokenizer) and the outer end (sink), an
instance of TokenFilter which also serves as the TokenStream returned
by Analyzer.TokenStream().
*/
type TokenStreamComponents struct {
	// Original source of the tokens.
	source *Tokenizer
	// Sink tokenstream, such as the outer tokenfilter decorating the
	// chain. This can be the source if there are no filters.
	sink TokenStream
}

func NewTokenStreamComponents(source *Tokenizer, result TokenStream) *TokenStreamComponents {
	return &TokenStreamComponents{source, result}
}

func (cp *TokenStreamComponents) TokenStream() TokenStream {
	return cp.sink
}

func (cp *TokenStreamComponents) Tokenizer() *Tokenizer {
	return cp.source
}

// Builds the tokenizer and filter chain for one field.
type AnalyzerSPI interface {
	CreateComponents(fieldName string, reader io.Reader) *TokenStreamComponents
}

/*
AnalyzerImpl turns an AnalyzerSPI into an Analyzer. Components are
created per call: a TokenStream is owned by one consumer at a time.
*/
type AnalyzerImpl struct {
	Spi AnalyzerSPI
}

func NewAnalyzer(spi AnalyzerSPI) *AnalyzerImpl {
	return &AnalyzerImpl{spi}
}

func (a *AnalyzerImpl) TokenStream(fieldName string, reader io.Reader) (TokenStream, error) {
	components := a.Spi.CreateComponents(fieldName, reader)
	return components.TokenStream(), nil
}

func (a *AnalyzerImpl) PositionIncrementGap(fieldName string) int {
	return 0
}

// Shortcut of Analyzer.TokenStream() over a string.
func TokenStreamForString(a Analyzer, fieldName, text string) (TokenStream, error) {
	return a.TokenStream(fieldName, strings.NewReader(text))
}

/*
Runs the analyzer over text and returns the produced terms. Meant for
tools and tests; the indexing chain consumes streams directly.
*/
func Terms(a Analyzer, fieldName, text string) (terms []string, err error) {
	ts, err := TokenStreamForString(a, fieldName, text)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ts.Close(); err == nil {
			err = cerr
		}
	}()
	if err = ts.Reset(); err != nil {
		return nil, err
	}
	for {
		ok, err := ts.IncrementToken()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		terms = append(terms, string(ts.Token().Term))
	}
	return terms, ts.End()
}
