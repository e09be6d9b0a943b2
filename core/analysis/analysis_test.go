package analysis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/analysis/core"
	"github.com/navychen2003/javen-sub011/core/analysis/standard"
)

func TestWhitespaceAnalyzer(t *testing.T) {
	terms, err := analysis.Terms(core.NewWhitespaceAnalyzer(), "f", "  Hello, World\tfoo-bar \n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello,", "World", "foo-bar"}, terms)
}

func TestSimpleAnalyzer(t *testing.T) {
	terms, err := analysis.Terms(core.NewSimpleAnalyzer(), "f", "The QUICK brown-fox 42x")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "quick", "brown", "fox", "x"}, terms)
}

func TestStandardAnalyzer(t *testing.T) {
	terms, err := analysis.Terms(standard.NewStandardAnalyzer(), "f", "The quick fox is in 2 holes")
	require.NoError(t, err)
	assert.Equal(t, []string{"quick", "fox", "2", "holes"}, terms)
}

func TestKeywordAnalyzer(t *testing.T) {
	terms, err := analysis.Terms(core.NewKeywordAnalyzer(), "id", "doc 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc 1"}, terms)
}

func TestOffsetsAndPositions(t *testing.T) {
	ts, err := core.NewStopAnalyzer().TokenStream("f", strings.NewReader("über the café"))
	require.NoError(t, err)
	require.NoError(t, ts.Reset())

	type tok struct {
		term       string
		start, end int
		posInc     int
	}
	var got []tok
	for {
		ok, err := ts.IncrementToken()
		require.NoError(t, err)
		if !ok {
			break
		}
		tk := ts.Token()
		got = append(got, tok{string(tk.Term), tk.StartOffset, tk.EndOffset, tk.PositionIncrement})
	}
	require.NoError(t, ts.End())
	assert.Equal(t, len("über the café"), ts.Token().EndOffset)
	require.NoError(t, ts.Close())

	assert.Equal(t, []tok{
		{"über", 0, 5, 1},
		{"café", 10, 15, 2},
	}, got)
}

func TestTokenizerContract(t *testing.T) {
	ts := core.NewWhitespaceTokenizer(strings.NewReader("a b"))
	_, err := ts.IncrementToken()
	assert.ErrorIs(t, err, analysis.ErrTokenStreamContract)
}
