// Package upload writes uploaded media files into the media tree.
//
// Uploads never touch the catalog: a new file becomes visible in the
// catalog after the next scan.
package upload

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"

	"github.com/spf13/afero"
)

// DefaultSubdir is used when the caller names no subdirectory.
const DefaultSubdir = "uploads"

// Rejection reasons. Each maps to its own HTTP status.
var (
	ErrBadRequest      = errors.New("bad upload request")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// StorageError means a valid upload could not be written.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store upload %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is, or wraps, a *StorageError.
func IsStorageError(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}

// Result describes a stored upload.
type Result struct {
	Success  bool                `json:"success"`
	Filename string              `json:"filename"`
	URL      string              `json:"url"`
	Path     string              `json:"path"`
	Size     int64               `json:"size"`
	MimeType string              `json:"mime_type"`
	Type     mediatypes.FileType `json:"type"`
	Message  string              `json:"message"`
}

// Config configures a Service.
type Config struct {
	Root     string
	BaseURL  string
	IndexDir string
	// MaxSize is the largest accepted upload in bytes.
	MaxSize    int64
	Classifier *mediatypes.Classifier
	Sniffer    mediatypes.Sniffer
}

// Service stores uploads under Root.
type Service struct {
	fs     afero.Fs
	config Config

	// mu serialises name selection so concurrent uploads of the same
	// name never pick the same target.
	mu sync.Mutex
}

// NewService creates an upload Service.
func NewService(fsys afero.Fs, config Config) *Service {
	if config.Classifier == nil {
		config.Classifier = mediatypes.DefaultClassifier()
	}
	if config.Sniffer == nil {
		config.Sniffer = mediatypes.ContentSniffer{}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Service{fs: fsys, config: config}
}

// MaxSize returns the upload ceiling in bytes.
func (s *Service) MaxSize() int64 {
	return s.config.MaxSize
}

// SanitizeSubdir removes ".." sequences and surrounding slashes.
func SanitizeSubdir(subdir string) string {
	cleaned := strings.ReplaceAll(subdir, "\\", "/")
	cleaned = strings.ReplaceAll(cleaned, "..", "")
	cleaned = path.Clean("/" + cleaned)
	return strings.Trim(cleaned, "/")
}

// SanitizeFilename keeps only the final element of a client-supplied name.
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

// Save validates r and writes it as subdir/filename, adding _1, _2...
// before the extension until the name is unused.
func (s *Service) Save(subdir, filename string, r io.Reader) (*Result, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: missing filename", ErrBadRequest)
	}
	if strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: hidden file name %q", ErrBadRequest, name)
	}

	if subdir == "" {
		subdir = DefaultSubdir
	}
	dir := SanitizeSubdir(subdir)
	if s.isReserved(dir) {
		return nil, fmt.Errorf("%w: %q is reserved", ErrBadRequest, dir)
	}
	if hasHiddenSegment(dir) {
		return nil, fmt.Errorf("%w: hidden directory %q", ErrBadRequest, dir)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.config.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	if int64(len(data)) > s.config.MaxSize {
		return nil, fmt.Errorf("%w: limit is %d MB", ErrTooLarge, s.config.MaxSize/(1024*1024))
	}

	head := data
	if len(head) > mediatypes.SniffLength {
		head = head[:mediatypes.SniffLength]
	}
	mimeType := s.config.Sniffer.Sniff(head)

	if !s.config.Classifier.AcceptUpload(name, mimeType) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, mimeType)
	}

	relPath, err := s.store(dir, name, data)
	if err != nil {
		return nil, err
	}

	logging.Info("Uploaded %s (%d bytes, %s)", relPath, len(data), mimeType)

	stored := path.Base(relPath)
	return &Result{
		Success:  true,
		Filename: stored,
		URL:      catalog.PublicURL(s.config.BaseURL, relPath),
		Path:     catalog.CatalogPath(relPath),
		Size:     int64(len(data)),
		MimeType: mimeType,
		Type:     mediatypes.DetectType(stored, mimeType),
		Message:  "File uploaded successfully",
	}, nil
}

// isReserved reports whether dir lies inside the bookkeeping directory,
// where files would never be scanned.
func (s *Service) isReserved(dir string) bool {
	if s.config.IndexDir == "" {
		return false
	}
	first, _, _ := strings.Cut(dir, "/")
	return first == s.config.IndexDir
}

// hasHiddenSegment reports whether any element of dir starts with a dot.
// Scans skip such entries, so files stored there would never be cataloged.
func hasHiddenSegment(dir string) bool {
	for _, segment := range strings.Split(dir, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

// store picks a free name and writes data atomically. It returns the
// root-relative slash path.
func (s *Service) store(dir, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	absDir := filepath.Join(s.config.Root, filepath.FromSlash(dir))
	if err := s.fs.MkdirAll(absDir, 0o755); err != nil {
		return "", &StorageError{Path: dir, Err: err}
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for counter := 1; ; counter++ {
		exists, err := afero.Exists(s.fs, filepath.Join(absDir, candidate))
		if err != nil {
			return "", &StorageError{Path: path.Join(dir, candidate), Err: err}
		}
		if !exists {
			break
		}
		candidate = stem + "_" + strconv.Itoa(counter) + ext
	}

	target := filepath.Join(absDir, candidate)
	if err := filesystem.WriteFileAtomic(s.fs, target, data, 0o644); err != nil {
		return "", &StorageError{Path: path.Join(dir, candidate), Err: err}
	}

	return path.Join(dir, candidate), nil
}
