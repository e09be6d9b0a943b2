package analysis

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// analysis/Token.java

/*
The attributes of the current token: its term bytes, the position
increment relative to the previous token, and the start/end byte
offsets in the original text.

One instance is shared by a tokenizer and every filter wrapped around
it; each IncrementToken() call overwrites it.
*/
type Token struct {
	Term              []byte
	PositionIncrement int
	StartOffset       int
	EndOffset         int
}

func newToken() *Token {
	return &Token{PositionIncrement: 1}
}

// Resets the token to the state before the first IncrementToken().
func (t *Token) Clear() {
	t.Term = t.Term[:0]
	t.PositionIncrement = 1
	t.StartOffset, t.EndOffset = 0, 0
}

func (t *Token) AppendRune(r rune) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	t.Term = append(t.Term, buf[:n]...)
}

func (t *Token) SetTerm(s string) {
	t.Term = append(t.Term[:0], s...)
}

func (t *Token) String() string {
	return fmt.Sprintf("%s[%v-%v,+%v]", t.Term, t.StartOffset, t.EndOffset, t.PositionIncrement)
}

// analysis/TokenStream.java

/*
A TokenStream enumerates the sequence of tokens, either from fields of
a document or from query text. Concrete streams are Tokenizer, whose
input is a reader, and TokenFilter, whose input is another TokenStream.

The workflow of a consumer is:

	1. Reset() the stream;
	2. call IncrementToken() until it returns false, reading Token()
	after each call;
	3. End() so end-of-stream state (final offset) is set;
	4. Close() to release the input.
*/
type TokenStream interface {
	io.Closer
	// The token attributes, shared along a filter chain.
	Token() *Token
	// Advances to the next token. Returns false at end of stream.
	IncrementToken() (bool, error)
	// Called by the consumer after the last token was consumed.
	End() error
	// Prepares the stream for consumption.
	Reset() error
}

type TokenStreamImpl struct {
	token *Token
}

func NewTokenStream() *TokenStreamImpl {
	return &TokenStreamImpl{newToken()}
}

// Shares the token attributes of another stream.
func NewTokenStreamWith(token *Token) *TokenStreamImpl {
	return &TokenStreamImpl{token}
}

func (ts *TokenStreamImpl) Token() *Token {
	return ts.token
}

/*
The default end-of-stream action sets the final position increment to
zero, so trailing holes are not accounted twice.
*/
func (ts *TokenStreamImpl) End() error {
	ts.token.PositionIncrement = 0
	return nil
}

func (ts *TokenStreamImpl) Reset() error { return nil }

func (ts *TokenStreamImpl) Close() error { return nil }
