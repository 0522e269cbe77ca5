package handlers

import (
	"net/http"
	"strings"

	"github.com/mediashare/backend/internal/logging"
	"github.com/mediashare/backend/internal/models"
)

// requireIdentity resolves the caller behind the request's bearer token. On
// failure it writes the error response and reports ok=false.
func requireIdentity(w http.ResponseWriter, r *http.Request, sessions SessionManager) (models.Identity, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return models.Identity{}, false
	}

	token := bearerToken(r)
	if token == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		return models.Identity{}, false
	}

	identity, err := sessions.Validate(ctx, token)
	if err != nil {
		logger.Warn("bearer token rejected", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return models.Identity{}, false
	}

	return identity, true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
