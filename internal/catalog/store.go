package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"media-catalog/internal/filesystem"

	"github.com/spf13/afero"
)

// SnapshotWriteError means the new catalog could not be persisted. The
// previous snapshot on disk is left as it was.
type SnapshotWriteError struct {
	Path string
	Err  error
}

func (e *SnapshotWriteError) Error() string {
	return fmt.Sprintf("write snapshot %s: %v", e.Path, e.Err)
}

func (e *SnapshotWriteError) Unwrap() error { return e.Err }

// IsSnapshotWriteError reports whether err is, or wraps, a *SnapshotWriteError.
func IsSnapshotWriteError(err error) bool {
	var e *SnapshotWriteError
	return errors.As(err, &e)
}

// Store reads and writes the snapshot file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a Store for the snapshot at path on fsys.
func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a snapshot has been written.
func (s *Store) Exists() bool {
	ok, err := afero.Exists(s.fs, s.path)
	return err == nil && ok
}

// Load returns the current snapshot. A missing file yields an empty
// snapshot and no error; an unreadable or invalid file yields an empty
// snapshot and the error, so callers can log it and keep serving.
func (s *Store) Load() (*Snapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return Empty(), fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Empty(), fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.MediaFiles == nil {
		snap.MediaFiles = []FileRecord{}
	}
	if snap.Version == "" {
		snap.Version = Version
	}
	return &snap, nil
}

// Write replaces the snapshot atomically. Failures are *SnapshotWriteError.
func (s *Store) Write(snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return &SnapshotWriteError{Path: s.path, Err: err}
	}
	if err := filesystem.WriteFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return &SnapshotWriteError{Path: s.path, Err: err}
	}
	return nil
}

// Encode renders v as indented JSON without HTML escaping.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
