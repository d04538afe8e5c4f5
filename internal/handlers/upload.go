package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"safework-backend/internal/storage"
)

// Certificate documents are the only uploads the system accepts: PDF scans or
// photos of the physical certificate, capped at 10 MB.
const maxUploadSize = 10 << 20

var allowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

// Upload categories map to storage key prefixes. Anything else collapses to
// "certificates" so clients cannot write arbitrary prefixes.
var uploadCategories = map[string]bool{
	"certificates": true,
	"forms":        true,
}

// UploadHandler accepts certificate document uploads and serves stored files.
// It depends on the storage.Store interface, not a specific implementation.
type UploadHandler struct {
	store storage.Store
}

func NewUploadHandler(store storage.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload accepts a multipart "file" field, sniffs its real content type, and
// persists it under a collision-free key. The returned URL is what submission
// requests carry as fileUrl.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		JSONError(w, http.StatusBadRequest, "File too large. Maximum size is 10MB.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		JSONError(w, http.StatusBadRequest, "Missing 'file' field in form data.")
		return
	}
	defer file.Close()

	// Sniff the real content type; the client-supplied header is not trusted.
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		JSONError(w, http.StatusBadRequest, "Could not read file.")
		return
	}
	contentType := http.DetectContentType(buffer[:n])

	if !allowedUploadTypes[contentType] {
		JSONError(w, http.StatusBadRequest, fmt.Sprintf(
			"File type '%s' not allowed. Accepted: PDF, JPG, PNG.", contentType,
		))
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to process file.")
		return
	}

	category := r.FormValue("category")
	if !uploadCategories[category] {
		category = "certificates"
	}

	// Key layout: category/uuid_filename. The uuid prevents collisions and
	// stops one user's upload from overwriting another's.
	safeName := sanitizeFilename(header.Filename)
	key := fmt.Sprintf("%s/%s_%s", category, uuid.NewString(), safeName)

	info, err := h.store.Save(r.Context(), key, file, contentType)
	if err != nil {
		log.Printf("Upload of %q failed: %v", safeName, err)
		JSONError(w, http.StatusInternalServerError, "Failed to save file.")
		return
	}

	JSON(w, http.StatusOK, info)
}

// ServeFile serves stored files: a redirect to the public CDN URL when the
// store is R2, the file itself when storage is local disk.
func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if key == "" {
		JSONError(w, http.StatusBadRequest, "File path required.")
		return
	}

	if url := h.store.URL(key); strings.HasPrefix(url, "https://") {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	http.ServeFile(w, r, filepath.Join("uploads", filepath.Clean(key)))
}

// sanitizeFilename strips directory components and replaces spaces so the
// name is safe inside a storage key and a URL.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.ReplaceAll(name, " ", "_")
}
