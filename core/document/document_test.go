package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/analysis"
	"github.com/navychen2003/javen-sub011/core/analysis/core"
)

func drain(t *testing.T, ts analysis.TokenStream) []string {
	require.NoError(t, ts.Reset())
	var terms []string
	for {
		ok, err := ts.IncrementToken()
		require.NoError(t, err)
		if !ok {
			break
		}
		terms = append(terms, string(ts.Token().Term))
	}
	require.NoError(t, ts.End())
	require.NoError(t, ts.Close())
	return terms
}

func TestDocumentAccessors(t *testing.T) {
	doc := NewDocument().
		Add(NewStringField("id", "42", STORE_YES)).
		Add(NewTextFieldFromString("body", "hello world", STORE_NO)).
		Add(NewStoredFieldFromBytes("blob", []byte{1, 2})).
		Add(NewStoredFieldFromInt64("n", 7)).
		Add(NewStringField("tag", "a", STORE_YES)).
		Add(NewStringField("tag", "b", STORE_YES))

	assert.Equal(t, "42", doc.Get("id"))
	assert.Equal(t, "", doc.Get("missing"))
	assert.Equal(t, []string{"a", "b"}, doc.Values("tag"))
	assert.Equal(t, []byte{1, 2}, doc.Binary("blob"))
	assert.Equal(t, "7", doc.Get("n"))
	assert.Equal(t, int64(7), doc.Field("n").NumericValue())

	doc.RemoveFields("tag")
	assert.Nil(t, doc.Field("tag"))
	assert.Len(t, doc.Fields(), 4)
}

func TestFieldTokenStreams(t *testing.T) {
	a := core.NewSimpleAnalyzer()

	ts, err := NewStringField("id", "Doc-1", STORE_NO).TokenStream(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doc-1"}, drain(t, ts))

	ts, err = NewTextFieldFromString("body", "Hello World", STORE_YES).TokenStream(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, drain(t, ts))

	ts, err = NewStoredFieldFromString("title", "Not Indexed").TokenStream(a)
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestFrozenFieldType(t *testing.T) {
	assert.Panics(t, func() { TEXT_FIELD_TYPE_STORED.SetStored(false) })

	ft := NewFieldTypeFrom(TEXT_FIELD_TYPE_STORED)
	ft.SetIndexOptions(INDEX_OPT_DOCS_ONLY)
	assert.Equal(t, "stored,indexed,tokenized,indexOptions=DOCS_ONLY", ft.String())
	ft.Freeze()
	assert.Panics(t, func() { ft.SetIndexed(false) })
}
