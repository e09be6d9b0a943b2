package util

import (
	"errors"
	"testing"

	tassert "github.com/stretchr/testify/assert"
)

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestCloseAggregatesErrors(t *testing.T) {
	e1, e2 := errors.New("first"), errors.New("second")
	a, b, c := &closer{err: e1}, &closer{}, &closer{err: e2}

	err := Close(a, nil, b, c)
	tassert.True(t, a.closed && b.closed && c.closed)
	tassert.Error(t, err)
	tassert.True(t, errors.Is(err, e1))
	tassert.True(t, errors.Is(err, e2))

	tassert.NoError(t, Close(&closer{}))
}

func TestCloseWhileHandlingErrorKeepsPrior(t *testing.T) {
	prior := errors.New("prior")
	c := &closer{err: errors.New("close")}
	tassert.Equal(t, prior, CloseWhileHandlingError(prior, c))
	tassert.True(t, c.closed)
	tassert.EqualError(t, CloseWhileHandlingError(nil, &closer{err: errors.New("close")}),
		Close(&closer{err: errors.New("close")}).Error())
}

func TestNoOutputInfoStream(t *testing.T) {
	is := DefaultInfoStream()
	tassert.False(t, is.IsEnabled("IW"))
	tassert.Panics(t, func() { is.Message("IW", "boom") })

	logging := NewLoggingInfoStream("golucene-test", "IW")
	tassert.False(t, logging.IsEnabled("DW"))
}
