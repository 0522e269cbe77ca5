package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mediashare/backend/internal/logging"
)

const maxUploadBytes = 256 << 20

// UploadHandler accepts media binaries and hands them to the blob store.
// Thumbnail generation happens elsewhere; this endpoint only owns the
// upload/delete contract of the object store.
type UploadHandler struct {
	Blobs    BlobStore
	Sessions SessionManager
	Limiter  RateLimiter
}

// Upload handles POST /api/v1/files multipart uploads.
func (h UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Blobs == nil {
		logger.Error("blob store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "upload service unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "upload") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many uploads"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("invalid upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "a file field is required"})
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s%s", identity.UserID, uuid.NewString(), filepath.Ext(header.Filename))

	location, err := h.Blobs.Save(ctx, key, file)
	if err != nil {
		logger.Error("store upload failed", "error", err, "key", key)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, uploadResponse{Filename: key, Location: location})
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}
