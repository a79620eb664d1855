package ngram

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCorpus_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	_, err := ReadCorpus(path, "")
	require.Error(t, err)

	var corpusErr *CorpusError
	require.True(t, errors.As(err, &corpusErr))
	assert.Equal(t, "read", corpusErr.Op)
	assert.Equal(t, path, corpusErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadCorpus_UTF8StripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alice.txt")
	require.NoError(t, os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, "Alice’s"...), 0644))

	content, err := ReadCorpus(path, "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "Alice’s", string(content))
}

func TestDecodeCorpus_Windows1252(t *testing.T) {
	// “hi”—it’s in windows-1252
	raw := []byte{0x93, 'h', 'i', 0x94, 0x97, 'i', 't', 0x92, 's'}

	content, err := DecodeCorpus("legacy.txt", raw, "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "“hi”—it’s", string(content))
}

func TestDecodeCorpus_UnknownEncoding(t *testing.T) {
	_, err := DecodeCorpus("x.txt", []byte("x"), "klingon-8")

	var corpusErr *CorpusError
	require.True(t, errors.As(err, &corpusErr))
	assert.Equal(t, "decode", corpusErr.Op)
	assert.Contains(t, err.Error(), "corpus decode x.txt")
}
