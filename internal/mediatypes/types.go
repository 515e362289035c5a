package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// FileType represents the coarse type of a media file.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypeOther represents anything not recognised as media.
	FileTypeOther FileType = "other"
)

// DefaultAllowedExtensions is the allowlist used when none is configured.
const DefaultAllowedExtensions = "jpg,jpeg,png,gif,webp,svg,mp4,webm,mkv,avi,mp3,wav,ogg,flac,aac"

// ImageExtensions maps lowercase extensions (with dot) to the image type.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
}

// VideoExtensions maps lowercase extensions (with dot) to the video type.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".mkv":  true,
}

// AudioExtensions maps lowercase extensions (with dot) to the audio type.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
	".m4a":  true,
}

// AllTypes lists every FileType in display order.
var AllTypes = []FileType{FileTypeImage, FileTypeVideo, FileTypeAudio, FileTypeOther}

// Valid reports whether t is one of the known types.
func (t FileType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Extension returns the lowercase extension of name without the dot.
// Leading dots are part of the stem, so ".jpg" has no extension.
func Extension(name string) string {
	base := strings.TrimLeft(filepath.Base(name), ".")
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
}

// TypeFromExtension returns the FileType for a lowercase extension without
// the dot, or FileTypeOther.
func TypeFromExtension(ext string) FileType {
	ext = "." + ext
	switch {
	case ImageExtensions[ext]:
		return FileTypeImage
	case VideoExtensions[ext]:
		return FileTypeVideo
	case AudioExtensions[ext]:
		return FileTypeAudio
	default:
		return FileTypeOther
	}
}

// TypeFromMIME maps a MIME type to a FileType by its prefix.
func TypeFromMIME(mimeType string) (FileType, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileTypeImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return FileTypeVideo, true
	case strings.HasPrefix(mimeType, "audio/"):
		return FileTypeAudio, true
	default:
		return "", false
	}
}

// ParseExtensions splits a comma-separated extension list, normalising each
// entry to lowercase without a leading dot and dropping empty entries.
func ParseExtensions(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// Classification is the result of classifying one file.
type Classification struct {
	Eligible bool
	Type     FileType
}

// Classifier holds the configured extension allowlist. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	allowed map[string]struct{}
}

// NewClassifier builds a Classifier from extensions in any case, with or
// without a leading dot.
func NewClassifier(extensions []string) *Classifier {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range ParseExtensions(strings.Join(extensions, ",")) {
		allowed[ext] = struct{}{}
	}
	return &Classifier{allowed: allowed}
}

// DefaultClassifier returns a Classifier for DefaultAllowedExtensions.
func DefaultClassifier() *Classifier {
	return NewClassifier(ParseExtensions(DefaultAllowedExtensions))
}

// IsEligible reports whether name's extension is in the allowlist.
func (c *Classifier) IsEligible(name string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	_, ok := c.allowed[ext]
	return ok
}

// Classify decides eligibility and type for name. sniffedMIME may be empty;
// it influences the type but never eligibility.
func (c *Classifier) Classify(name, sniffedMIME string) Classification {
	return Classification{
		Eligible: c.IsEligible(name),
		Type:     DetectType(name, sniffedMIME),
	}
}

// DetectType prefers the sniffed MIME prefix and falls back to the
// extension table.
func DetectType(name, sniffedMIME string) FileType {
	if t, ok := TypeFromMIME(sniffedMIME); ok {
		return t
	}
	return TypeFromExtension(Extension(name))
}

// Extensions returns the allowlist, sorted.
func (c *Classifier) Extensions() []string {
	out := make([]string, 0, len(c.allowed))
	for ext := range c.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// genericMIMETypes are sniffer answers that say nothing about the content
// being media or not.
var genericMIMETypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"text/plain":               true,
	"text/xml":                 true,
	"application/xml":          true,
	"application/ogg":          true,
}

// AcceptUpload reports whether an uploaded file may be written into the
// tree: its extension must be allowed and its content must either sniff as
// media or be inconclusive. A .jpg whose bytes sniff as HTML or PDF is
// rejected.
func (c *Classifier) AcceptUpload(name, sniffedMIME string) bool {
	if !c.IsEligible(name) {
		return false
	}
	if _, ok := TypeFromMIME(sniffedMIME); ok {
		return true
	}
	return genericMIMETypes[sniffedMIME]
}
