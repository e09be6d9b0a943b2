package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navychen2003/javen-sub011/core/search"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleJSONL = `{"id":"1","fields":{"title":"Bat recycling","body":"bat cave recycling"}}
{"id":"2","fields":{"title":"Cat food","body":"cat food reviews"}}

{"id":"3","fields":{"title":"Bat houses","body":"build a bat house"}}
`

func TestIndexSearchDelete(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, "docs.jsonl", sampleJSONL)

	out, err := run(t, "index", dir, "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "3 docs")

	out, err = run(t, "search", dir, "body:bat")
	require.NoError(t, err)
	assert.Contains(t, out, "2 hit(s)")
	assert.Contains(t, out, `title="Bat recycling"`)
	assert.Contains(t, out, `title="Bat houses"`)

	// re-indexing updates by id instead of adding
	_, err = run(t, "index", dir, "--input", input)
	require.NoError(t, err)
	out, err = run(t, "search", "--count", dir, "*:*")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	out, err = run(t, "delete", dir, "--term", "id:2")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 doc(s), 2 left")

	out, err = run(t, "search", "--count", dir, "+body:bat", "-body:house")
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))

	out, err = run(t, "merge", dir, "--max-segments", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "-> 1")

	out, err = run(t, "stats", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 docs")
	assert.Contains(t, out, "1 segment(s)")
}

func TestDeleteRequiresTerm(t *testing.T) {
	_, err := run(t, "delete", t.TempDir())
	assert.Error(t, err)

	_, err = run(t, "delete", t.TempDir(), "--term", "novalue")
	assert.Error(t, err)
}

func TestParseQuery(t *testing.T) {
	q, err := parseQuery([]string{"body:bat"})
	require.NoError(t, err)
	assert.IsType(t, &search.TermQuery{}, q)

	q, err = parseQuery([]string{"body:ba*"})
	require.NoError(t, err)
	assert.Equal(t, "body:ba*", q.String())

	q, err = parseQuery([]string{"id:2..4"})
	require.NoError(t, err)
	assert.Equal(t, "id:[2 TO 4]", q.String())

	q, err = parseQuery([]string{"+body:bat", "-body:house", "title:x"})
	require.NoError(t, err)
	assert.Equal(t, "+body:bat -body:house title:x", q.String())

	_, err = parseQuery([]string{"nofield"})
	assert.Error(t, err)
}

func TestFSTCommands(t *testing.T) {
	input := writeFile(t, "words.txt", "cat\ncar\ncard\n\ncat\n")

	out, err := run(t, "fst", "build", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "3 words")

	out, err = run(t, "fst", "get", "--input", input, "car", "card", "cat", "dog")
	require.NoError(t, err)
	assert.Contains(t, out, "car\t0\n")
	assert.Contains(t, out, "card\t1\n")
	assert.Contains(t, out, "cat\t2\n")
	assert.Contains(t, out, "dog\tnot found\n")
}

func TestScanWords(t *testing.T) {
	words, err := scanWords(strings.NewReader("b\n a \n\nb\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, words)
}
