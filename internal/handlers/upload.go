package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/upload"
)

const (
	uploadFormField = "file"
	// multipartOverhead covers boundaries and part headers on top of the
	// file body itself.
	multipartOverhead = 1 << 20
	// uploadMemory is the part of a multipart form kept in memory; the
	// rest spills to temporary files.
	uploadMemory = 8 << 20
)

// Upload stores a multipart file under MEDIA_ROOT. The target
// subdirectory comes from the subdir query parameter and defaults to
// upload.DefaultSubdir.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.uploads.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadFailed(w, "too_large", tooLargeMessage(maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		h.uploadFailed(w, "bad_request", "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logging.Warn("failed to remove multipart temp files: %v", err)
			}
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		h.uploadFailed(w, "bad_request", "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.uploads.Save(r.URL.Query().Get("subdir"), header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrTooLarge):
		h.uploadFailed(w, "too_large", tooLargeMessage(maxSize), http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, upload.ErrUnsupportedType):
		h.uploadFailed(w, "unsupported_type", "Unsupported file type", http.StatusUnsupportedMediaType)
		return
	case errors.Is(err, upload.ErrBadRequest):
		h.uploadFailed(w, "bad_request", err.Error(), http.StatusBadRequest)
		return
	default:
		logging.Error("Upload of %q failed: %v", header.Filename, err)
		h.uploadFailed(w, "storage_error", "Failed to store file", http.StatusInternalServerError)
		return
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytesTotal.Add(float64(result.Size))

	writeJSONResponse(w, result, http.StatusOK)
}

func (h *Handlers) uploadFailed(w http.ResponseWriter, status, message string, statusCode int) {
	metrics.UploadsTotal.WithLabelValues(status).Inc()
	writeJSONError(w, message, statusCode)
}

func tooLargeMessage(maxSize int64) string {
	return fmt.Sprintf("File too large. Maximum: %d MB", maxSize/(1024*1024))
}
