package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mediashare/backend/internal/logging"
	"github.com/mediashare/backend/internal/models"
	"github.com/mediashare/backend/internal/repositories"
)

// FriendHandler exposes the relationship store over HTTP.
type FriendHandler struct {
	Friends  FriendStore
	Sessions SessionManager
}

// Invite handles POST /api/v1/friends/invite.
func (h FriendHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid invite payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.TargetID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "targetId is required"})
		return
	}

	edge, err := h.Friends.SendRequest(ctx, identity.UserID, req.TargetID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvalidArgument):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot befriend yourself"})
		case errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "a friend request already exists"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no such user"})
		default:
			logger.Error("send friend request failed", "error", err, "targetId", req.TargetID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to send friend request"})
		}
		return
	}

	// A mutual pending request resolves directly to accepted; tell the
	// caller which one happened.
	status := http.StatusCreated
	if edge.Status == models.FriendStatusAccepted {
		status = http.StatusOK
	}
	respondJSON(ctx, w, status, edgeResponse{Edge: newEdgePayload(edge)})
}

// Respond handles POST /api/v1/friends/respond: the recipient accepts or
// rejects a pending request.
func (h FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid respond payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.InitiatorID = strings.TrimSpace(req.InitiatorID)
	if req.InitiatorID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "initiatorId is required"})
		return
	}

	switch req.Action {
	case "accept":
		edge, err := h.Friends.Accept(ctx, identity.UserID, req.InitiatorID)
		if err != nil {
			switch {
			case errors.Is(err, repositories.ErrNotFound):
				respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no pending request from that user"})
			case errors.Is(err, repositories.ErrForbidden):
				respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "only the recipient can accept a request"})
			case errors.Is(err, repositories.ErrInvalidArgument):
				respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid initiator"})
			default:
				logger.Error("accept friend request failed", "error", err, "initiatorId", req.InitiatorID)
				respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to accept friend request"})
			}
			return
		}
		respondJSON(ctx, w, http.StatusOK, edgeResponse{Edge: newEdgePayload(edge)})
	case "reject":
		if err := h.Friends.Remove(ctx, identity.UserID, req.InitiatorID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no request from that user"})
				return
			}
			logger.Error("reject friend request failed", "error", err, "initiatorId", req.InitiatorID)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to reject friend request"})
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "request rejected"})
	default:
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "action must be accept or reject"})
	}
}

// Remove handles POST /api/v1/friends/remove: unfriending in either direction.
func (h FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid remove payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	if err := h.Friends.Remove(ctx, identity.UserID, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no friendship with that user"})
			return
		}
		logger.Error("remove friendship failed", "error", err, "userId", req.UserID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to remove friendship"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "friendship removed"})
}

// List handles GET /api/v1/friends: the caller's accepted friends.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.list(w, r, false)
}

// Pending handles GET /api/v1/friends/pending: requests awaiting the
// caller's response. Requests the caller sent are not included.
func (h FriendHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.list(w, r, true)
}

func (h FriendHandler) list(w http.ResponseWriter, r *http.Request, pending bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Friends == nil {
		logger.Error("friend store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "friend service unavailable"})
		return
	}

	identity, ok := requireIdentity(w, r, h.Sessions)
	if !ok {
		return
	}

	query := h.Friends.ListAccepted
	if pending {
		query = h.Friends.ListPending
	}

	friends, err := query(ctx, identity.UserID)
	if err != nil {
		logger.Error("list friends failed", "error", err, "userId", identity.UserID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list friends"})
		return
	}

	payload := friendListResponse{Friends: make([]friendPayload, 0, len(friends))}
	for _, f := range friends {
		payload.Friends = append(payload.Friends, friendPayload{
			UserID:   f.UserID,
			Username: f.Username,
			Email:    f.Email,
			Since:    f.Since,
		})
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

type inviteRequest struct {
	TargetID string `json:"targetId"`
}

type respondRequest struct {
	InitiatorID string `json:"initiatorId"`
	Action      string `json:"action"`
}

type removeRequest struct {
	UserID string `json:"userId"`
}

type edgePayload struct {
	InitiatorID string    `json:"initiatorId"`
	RecipientID string    `json:"recipientId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type edgeResponse struct {
	Edge edgePayload `json:"edge"`
}

type friendListResponse struct {
	Friends []friendPayload `json:"friends"`
}

type friendPayload struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Since    time.Time `json:"since"`
}

func newEdgePayload(edge models.FriendEdge) edgePayload {
	return edgePayload{
		InitiatorID: edge.UserA,
		RecipientID: edge.UserB,
		Status:      edge.Status,
		CreatedAt:   edge.CreatedAt,
	}
}
