package analysis

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// analysis/Tokenizer.java

var ErrTokenStreamContract = errors.New("TokenStream contract violation: Reset()/Close() call missing")

/*
A Tokenizer is a TokenStream whose input is a reader. Implementations
read runes through ReadRune() and track the byte offset consumed so
far with Offset().
*/
type Tokenizer struct {
	*TokenStreamImpl
	// the text source, only assigned on Reset()
	input        *bufio.Reader
	source       io.Reader
	inputPending io.Reader
	offset       int
}

/* Constructs a token stream processing the given input. */
func NewTokenizer(input io.Reader) *Tokenizer {
	assert2(input != nil, "input must not be nil")
	return &Tokenizer{
		TokenStreamImpl: NewTokenStream(),
		inputPending:    input,
	}
}

func (t *Tokenizer) Reset() error {
	if t.inputPending == nil {
		return ErrTokenStreamContract
	}
	t.source = t.inputPending
	t.input = bufio.NewReader(t.source)
	t.inputPending = nil
	t.offset = 0
	return nil
}

/*
Reads the next rune from the input, returning io.EOF at the end of
it. Invalid UTF-8 is decoded as utf8.RuneError.
*/
func (t *Tokenizer) ReadRune() (rune, int, error) {
	if t.input == nil {
		return 0, 0, ErrTokenStreamContract
	}
	r, size, err := t.input.ReadRune()
	if err != nil {
		return 0, 0, err
	}
	t.offset += size
	return r, size, nil
}

// Byte offset of the input consumed so far.
func (t *Tokenizer) Offset() int {
	return t.offset
}

// Sets the final offset of the stream.
func (t *Tokenizer) End() error {
	tok := t.Token()
	tok.PositionIncrement = 0
	tok.StartOffset, tok.EndOffset = t.offset, t.offset
	return nil
}

/*
Releases the input. Readers implementing io.Closer are closed; the
tokenizer may be reused by SetReader().
*/
func (t *Tokenizer) Close() (err error) {
	src := t.source
	if src == nil {
		src = t.inputPending
	}
	if c, ok := src.(io.Closer); ok {
		err = c.Close()
	}
	t.input, t.source, t.inputPending = nil, nil, nil
	return
}

/*
Expert: Set a new reader on the Tokenizer. Typically, an analyzer (in
its TokenStream method) will use this to re-use a previously created
tokenizer.
*/
func (t *Tokenizer) SetReader(input io.Reader) error {
	assert2(input != nil, "input must not be nil")
	if t.input != nil {
		return errors.Wrap(ErrTokenStreamContract, "SetReader() called before Close()")
	}
	t.inputPending = input
	return nil
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(errors.Errorf(msg, args...))
	}
}
