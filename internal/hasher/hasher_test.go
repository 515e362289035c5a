package hasher

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"media-catalog/internal/filesystem"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileKnownDigest(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/media/hello.txt", []byte("hello world"), 0o644))

	digest, err := NewMD5(fs, filesystem.DefaultRetryConfig()).HashFile("/media/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", digest)
}

func TestHashFileEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/media/empty.jpg", nil, 0o644))

	digest, err := NewMD5(fs, filesystem.DefaultRetryConfig()).HashFile("/media/empty.jpg")
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", digest)
}

func TestHashFileSpansManyChunks(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := bytes.Repeat([]byte("0123456789abcdef"), ChunkSize) // 16 chunks
	require.NoError(t, afero.WriteFile(fs, "/media/big.mp4", content, 0o644))

	fromFile, err := NewMD5(fs, filesystem.DefaultRetryConfig()).HashFile("/media/big.mp4")
	require.NoError(t, err)

	fromReader, err := HashReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, fromReader, fromFile)
}

func TestHashFileMissingIsHashFailure(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := NewMD5(fs, filesystem.DefaultRetryConfig()).HashFile("/media/gone.jpg")
	require.Error(t, err)
	assert.True(t, IsHashFailure(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var hf *HashFailure
	require.ErrorAs(t, err, &hf)
	assert.Equal(t, "/media/gone.jpg", hf.Path)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device error") }

func TestHashReaderError(t *testing.T) {
	_, err := HashReader(failingReader{})
	assert.EqualError(t, err, "device error")
}

func TestDeriveIDDeterministic(t *testing.T) {
	a := DeriveID("photos/a.jpg", 500, "5eb63bbbe01eeed093cb22bb8f5acdc3")
	b := DeriveID("photos/a.jpg", 500, "5eb63bbbe01eeed093cb22bb8f5acdc3")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.Equal(t, strings.ToLower(a), a)
}

func TestDeriveIDChangesWithEachInput(t *testing.T) {
	base := DeriveID("photos/a.jpg", 500, "d1")

	assert.NotEqual(t, base, DeriveID("photos/b.jpg", 500, "d1"), "path")
	assert.NotEqual(t, base, DeriveID("photos/a.jpg", 501, "d1"), "size")
	assert.NotEqual(t, base, DeriveID("photos/a.jpg", 500, "d2"), "digest")
}
