package mediatypes

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"media-catalog/internal/filesystem"

	"github.com/spf13/afero"
)

// SniffLength is the number of leading bytes handed to a Sniffer.
const SniffLength = 512

// Sniffer guesses a MIME type from the head of a file. An empty result
// means the type could not be determined.
type Sniffer interface {
	Sniff(head []byte) string
}

// SnifferFunc adapts a function to the Sniffer interface.
type SnifferFunc func(head []byte) string

// Sniff calls f(head).
func (f SnifferFunc) Sniff(head []byte) string {
	return f(head)
}

// ContentSniffer detects MIME types from magic numbers using the WHATWG
// algorithm implemented by net/http.
type ContentSniffer struct{}

// Sniff returns the detected media type without parameters.
func (ContentSniffer) Sniff(head []byte) string {
	if len(head) == 0 {
		return ""
	}
	detected := http.DetectContentType(head)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return detected
	}
	return mediaType
}

// SniffFile reads the head of path and sniffs it.
func SniffFile(fsys afero.Fs, path string, s Sniffer, retry filesystem.RetryConfig) (string, error) {
	f, err := filesystem.OpenWithRetry(fsys, path, retry)
	if err != nil {
		return "", fmt.Errorf("open for sniffing: %w", err)
	}
	defer f.Close()

	head := make([]byte, SniffLength)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read for sniffing: %w", err)
	}
	return s.Sniff(head[:n]), nil
}
