// Package hasher computes content digests and the stable catalog
// identifiers derived from them.
package hasher

import (
	"crypto/md5" //nolint:gosec // MD5 identifies content for change detection, not security
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"media-catalog/internal/filesystem"

	"github.com/spf13/afero"
)

// ChunkSize is the read buffer used while streaming a file through the digest.
const ChunkSize = 4 * 1024

// HashFailure reports that a file could not be read while hashing. The
// scanner skips such files instead of aborting the scan.
type HashFailure struct {
	Path string
	Err  error
}

func (e *HashFailure) Error() string {
	return fmt.Sprintf("hash %s: %v", e.Path, e.Err)
}

func (e *HashFailure) Unwrap() error { return e.Err }

// IsHashFailure reports whether err is, or wraps, a *HashFailure.
func IsHashFailure(err error) bool {
	var e *HashFailure
	return errors.As(err, &e)
}

// Hasher computes the hex content digest of a file.
type Hasher interface {
	HashFile(path string) (string, error)
}

// MD5 streams files from an afero.Fs through MD5.
type MD5 struct {
	fs    afero.Fs
	retry filesystem.RetryConfig
}

// NewMD5 returns an MD5 hasher reading from fsys.
func NewMD5(fsys afero.Fs, retry filesystem.RetryConfig) *MD5 {
	return &MD5{fs: fsys, retry: retry}
}

// HashFile returns the hex MD5 of the file at path. Any open or read error
// is returned as a *HashFailure.
func (h *MD5) HashFile(path string) (string, error) {
	f, err := filesystem.OpenWithRetry(h.fs, path, h.retry)
	if err != nil {
		return "", &HashFailure{Path: path, Err: err}
	}
	defer f.Close()

	digest, err := HashReader(f)
	if err != nil {
		return "", &HashFailure{Path: path, Err: err}
	}
	return digest, nil
}

// HashReader streams r through MD5 in ChunkSize reads and returns the hex digest.
func HashReader(r io.Reader) (string, error) {
	sum := md5.New() //nolint:gosec // see import
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(sum, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// DeriveID returns the catalog identifier for a file. It is a pure function
// of its inputs, so an unchanged file keeps its id across scans.
func DeriveID(relPath string, size int64, digest string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", relPath, size, digest))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
