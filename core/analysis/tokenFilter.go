package analysis

// analysis/TokenFilter.java

/*
A TokenFilter is a TokenStream whose input is another TokenStream.
Implementations embed it and override IncrementToken().
*/
type TokenFilter struct {
	*TokenStreamImpl
	Input TokenStream
}

/* Construct a token stream filtering the given input. */
func NewTokenFilter(input TokenStream) *TokenFilter {
	return &TokenFilter{
		TokenStreamImpl: NewTokenStreamWith(input.Token()),
		Input:           input,
	}
}

func (f *TokenFilter) End() error {
	return f.Input.End()
}

func (f *TokenFilter) Close() error {
	return f.Input.Close()
}

func (f *TokenFilter) Reset() error {
	return f.Input.Reset()
}
