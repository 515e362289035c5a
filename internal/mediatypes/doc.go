// Package mediatypes decides which files belong in the catalog and what
// coarse media type they are.
//
// # Eligibility
//
// A Classifier is built from an extension allowlist (case-insensitive,
// without the dot). Indexing eligibility depends on the extension alone;
// content sniffing never makes a file eligible for the scanner.
//
// # Type classification
//
// Classify prefers the sniffed MIME prefix (image/, video/, audio/) and falls
// back to a fixed extension table:
//
//	mediatypes.FileTypeImage // jpg, jpeg, png, gif, webp, svg, bmp
//	mediatypes.FileTypeVideo // mp4, avi, mov, wmv, flv, webm, mkv
//	mediatypes.FileTypeAudio // mp3, wav, flac, aac, ogg, m4a
//	mediatypes.FileTypeOther // anything else
//
// # Sniffing
//
// Sniffer is the narrow capability used to guess a MIME type from the first
// SniffLength bytes of a file. ContentSniffer is the default backend.
//
// # Uploads
//
// AcceptUpload is stricter than eligibility: the extension must be allowed
// and the sniffed content must not be a recognised non-media format.
package mediatypes
