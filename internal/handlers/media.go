package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediashare/backend/internal/logging"
	"github.com/mediashare/backend/internal/media"
	"github.com/mediashare/backend/internal/models"
	"github.com/mediashare/backend/internal/repositories"
)

// MediaHandler exposes media metadata, likes, tags, and the deletion saga
// over HTTP.
type MediaHandler struct {
	Media    MediaStore
	Deleter  MediaDeleter
	Sessions SessionManager
	BaseURL  string
	NowFunc  func() time.Time
}

// Handle routes /api/v1/media by method: POST creates a media item, GET
// fetches one by id, PUT updates title and description, DELETE runs the
// deletion saga.
func (h MediaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h MediaHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req createMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid media payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Filename = strings.TrimSpace(req.Filename)
	req.Title = strings.TrimSpace(req.Title)
	if req.Filename == "" || req.Title == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "filename and title are required"})
		return
	}

	item := models.MediaItem{
		ID:          uuid.NewString(),
		OwnerID:     identity.UserID,
		Filename:    req.Filename,
		MediaType:   req.MediaType,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   h.now(),
	}

	if err := h.Media.Create(ctx, item); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "media item already exists"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "owner not found"})
		default:
			logger.Error("create media failed", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create media item"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, mediaResponse{Media: h.newMediaPayload(item)})
}

func (h MediaHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	item, err := h.Media.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "media not found"})
			return
		}
		logger.Error("fetch media failed", "error", err, "mediaId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch media item"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, mediaResponse{Media: h.newMediaPayload(item)})
}

func (h MediaHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req updateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid media payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ID == "" || req.Title == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id and title are required"})
		return
	}

	item, err := h.Media.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "media not found"})
			return
		}
		logger.Error("fetch media failed", "error", err, "mediaId", req.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update media item"})
		return
	}

	if item.OwnerID != identity.UserID && !strings.EqualFold(identity.Level, models.LevelAdmin) {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you do not own this media item"})
		return
	}

	if err := h.Media.UpdateDetails(ctx, req.ID, req.Title, req.Description); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "media not found"})
			return
		}
		logger.Error("update media failed", "error", err, "mediaId", req.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update media item"})
		return
	}

	item.Title = req.Title
	item.Description = req.Description
	respondJSON(ctx, w, http.StatusOK, mediaResponse{Media: h.newMediaPayload(item)})
}

func (h MediaHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Deleter == nil {
		logger.Error("media deleter unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	outcome, err := h.Deleter.DeleteMedia(ctx, id, identity.UserID, identity.Level)
	switch outcome {
	case media.OutcomeCompleted:
		respondJSON(ctx, w, http.StatusOK, deleteResponse{Outcome: outcome.String()})
	case media.OutcomeNotFound:
		respondJSON(ctx, w, http.StatusNotFound, deleteResponse{Outcome: outcome.String(), Error: "media not found"})
	case media.OutcomeForbidden:
		respondJSON(ctx, w, http.StatusForbidden, deleteResponse{Outcome: outcome.String(), Error: "you do not own this media item"})
	case media.OutcomePartial:
		// The rows are gone but the blob may be orphaned. Deliberately not
		// reported as plain success so operators can track it.
		logger.Error("media deletion partial", "mediaId", id, "error", err)
		respondJSON(ctx, w, http.StatusMultiStatus, deleteResponse{Outcome: outcome.String(), Error: "media removed but stored file cleanup failed"})
	default:
		logger.Error("media deletion aborted", "mediaId", id, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, deleteResponse{Outcome: outcome.String(), Error: "failed to delete media item"})
	}
}

// Mine handles GET /api/v1/media/mine.
func (h MediaHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.listWith(w, r, false)
}

// Feed handles GET /api/v1/media/feed: own media plus accepted friends' media.
func (h MediaHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.listWith(w, r, true)
}

func (h MediaHandler) listWith(w http.ResponseWriter, r *http.Request, feed bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	query := h.Media.ListByOwner
	if feed {
		query = h.Media.ListFeed
	}

	items, err := query(ctx, identity.UserID)
	if err != nil {
		logger.Error("list media failed", "error", err, "userId", identity.UserID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list media"})
		return
	}

	payload := mediaListResponse{Media: make([]mediaPayload, 0, len(items))}
	for _, item := range items {
		payload.Media = append(payload.Media, h.newMediaPayload(item))
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

// Like routes /api/v1/media/like by method: POST likes, DELETE unlikes, GET
// returns the like count for ?id=.
func (h MediaHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	if r.Method == http.MethodGet {
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id is required"})
			return
		}
		count, err := h.Media.CountLikes(ctx, id)
		if err != nil {
			logger.Error("count likes failed", "error", err, "mediaId", id)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to count likes"})
			return
		}
		respondJSON(ctx, w, http.StatusOK, likeCountResponse{MediaID: id, Count: count})
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid like payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.MediaID = strings.TrimSpace(req.MediaID)
	if req.MediaID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "mediaId is required"})
		return
	}

	if r.Method == http.MethodPost {
		err := h.Media.AddLike(ctx, req.MediaID, identity.UserID)
		switch {
		case err == nil:
			respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": "like added"})
		case errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "already liked"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "media not found"})
		default:
			logger.Error("add like failed", "error", err, "mediaId", req.MediaID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to add like"})
		}
		return
	}

	if err := h.Media.RemoveLike(ctx, req.MediaID, identity.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "like not found"})
			return
		}
		logger.Error("remove like failed", "error", err, "mediaId", req.MediaID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to remove like"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "like removed"})
}

// Tag routes /api/v1/media/tag by method: POST attaches a named tag to a
// media item, GET lists media carrying ?name=.
func (h MediaHandler) Tag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Media == nil {
		logger.Error("media store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media service unavailable"})
		return
	}

	if r.Method == http.MethodGet {
		h.listByTag(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid tag payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.MediaID = strings.TrimSpace(req.MediaID)
	req.Tag = strings.TrimSpace(strings.ToLower(req.Tag))
	if req.MediaID == "" || req.Tag == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "mediaId and tag are required"})
		return
	}

	if err := h.Media.AttachTag(ctx, req.MediaID, req.Tag); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "media not found"})
			return
		}
		logger.Error("attach tag failed", "error", err, "mediaId", req.MediaID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to attach tag"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": "tag attached"})
}

func (h MediaHandler) listByTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireIdentity(w, r, h.Sessions); !ok {
		return
	}

	name := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("name")))
	if name == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	items, err := h.Media.ListByTag(ctx, name)
	if err != nil {
		logger.Error("list media by tag failed", "error", err, "tag", name)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list media"})
		return
	}

	payload := mediaListResponse{Media: make([]mediaPayload, 0, len(items))}
	for _, item := range items {
		payload.Media = append(payload.Media, h.newMediaPayload(item))
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

type createMediaRequest struct {
	Filename    string `json:"filename"`
	MediaType   string `json:"mediaType"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateMediaRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type likeRequest struct {
	MediaID string `json:"mediaId"`
}

type tagRequest struct {
	MediaID string `json:"mediaId"`
	Tag     string `json:"tag"`
}

type mediaPayload struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Filename     string    `json:"filename"`
	FileURL      string    `json:"fileUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	MediaType    string    `json:"mediaType"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
}

type mediaResponse struct {
	Media mediaPayload `json:"media"`
}

type mediaListResponse struct {
	Media []mediaPayload `json:"media"`
}

type likeCountResponse struct {
	MediaID string `json:"mediaId"`
	Count   int64  `json:"count"`
}

type deleteResponse struct {
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func (h MediaHandler) newMediaPayload(item models.MediaItem) mediaPayload {
	fileURL := item.Filename
	if base := strings.TrimSuffix(h.BaseURL, "/"); base != "" {
		fileURL = fmt.Sprintf("%s/%s", base, path.Clean(item.Filename))
	}

	return mediaPayload{
		ID:           item.ID,
		OwnerID:      item.OwnerID,
		Filename:     item.Filename,
		FileURL:      fileURL,
		ThumbnailURL: fileURL + "-thumb.png",
		MediaType:    item.MediaType,
		Title:        item.Title,
		Description:  item.Description,
		CreatedAt:    item.CreatedAt,
	}
}

func (h MediaHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
