package store

import (
	"testing"

	"github.com/pkg/errors"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompoundFileRoundTrip(t *testing.T) {
	dir := NewRAMDirectory()
	writeFile(t, dir, "_3.fnm", []byte("field infos"))
	writeFile(t, dir, "_3.tim", []byte("terms"))
	writeFile(t, dir, "_3.doc", []byte{})

	written, err := WriteCompoundFile(dir, "_3.cfs", []string{"_3.tim", "_3.fnm", "_3.doc"}, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	tassert.Equal(t, []string{"_3.cfs", "_3.cfe"}, written)

	cfs, err := NewCompoundFileDirectory(dir, "_3.cfs", IO_CONTEXT_READ)
	require.NoError(t, err)
	defer cfs.Close()

	names, err := cfs.ListAll()
	require.NoError(t, err)
	tassert.Equal(t, []string{"_3.doc", "_3.fnm", "_3.tim"}, names)

	n, err := cfs.FileLength("_3.tim")
	require.NoError(t, err)
	tassert.Equal(t, int64(5), n)

	in, err := cfs.OpenInput("_3.fnm", IO_CONTEXT_READ)
	require.NoError(t, err)
	buf := make([]byte, len("field infos"))
	require.NoError(t, in.ReadBytes(buf))
	tassert.Equal(t, "field infos", string(buf))

	_, err = cfs.OpenInput("_3.liv", IO_CONTEXT_READ)
	tassert.True(t, errors.Is(err, ErrFileNotFound))
	_, err = cfs.CreateOutput("_3.x", IO_CONTEXT_DEFAULT)
	tassert.Equal(t, ErrReadOnly, err)
}

func TestCompoundFileDetectsCorruption(t *testing.T) {
	dir := NewRAMDirectory()
	writeFile(t, dir, "_4.tim", []byte("terms"))
	_, err := WriteCompoundFile(dir, "_4.cfs", []string{"_4.tim"}, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)

	// truncate the entry table
	in, err := dir.OpenInput("_4.cfe", IO_CONTEXT_READ)
	require.NoError(t, err)
	data := make([]byte, in.Length()-1)
	require.NoError(t, in.ReadBytes(data))
	in.Close()
	writeFile(t, dir, "_4.cfe", data)

	_, err = NewCompoundFileDirectory(dir, "_4.cfs", IO_CONTEXT_READ)
	tassert.Error(t, err)
}
