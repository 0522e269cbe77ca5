package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediashare/backend/internal/models"
)

func TestManagerIssueAndValidate(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelAdmin)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens populated, got %+v", tokens)
	}
	if tokens.AccessToken == tokens.RefreshToken {
		t.Fatal("expected distinct access and refresh tokens")
	}
	if !store.Has(tokens.AccessToken) || !store.Has(tokens.RefreshToken) {
		t.Fatal("expected both sessions persisted")
	}

	identity, err := manager.Validate(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if identity.UserID != "user-1" || identity.Level != models.LevelAdmin {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestManagerIssueRequiresUser(t *testing.T) {
	manager := NewManager(time.Minute, time.Hour, NewInMemorySessionStore())

	if _, err := manager.Issue(context.Background(), "", models.LevelUser); err == nil {
		t.Fatal("expected error issuing tokens without a user id")
	}
}

func TestManagerValidateRejectsRefreshToken(t *testing.T) {
	manager := NewManager(time.Minute, time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelUser)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if _, err := manager.Validate(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound validating a refresh token, got %v", err)
	}
}

func TestManagerValidateExpiredTokenIsRemoved(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(-time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelUser)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if _, err := manager.Validate(context.Background(), tokens.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if store.Has(tokens.AccessToken) {
		t.Fatal("expected expired access session removed from store")
	}
}

func TestManagerRefreshRotatesTokens(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelAdmin)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh tokens: %v", err)
	}

	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expected consumed refresh token removed")
	}

	// Level survives rotation without a user lookup.
	identity, err := manager.Validate(context.Background(), rotated.AccessToken)
	if err != nil {
		t.Fatalf("validate rotated access token: %v", err)
	}
	if identity.Level != models.LevelAdmin {
		t.Fatalf("expected admin level preserved, got %q", identity.Level)
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound reusing consumed token, got %v", err)
	}
}

func TestManagerRefreshRejectsAccessToken(t *testing.T) {
	manager := NewManager(time.Minute, time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelUser)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound refreshing with an access token, got %v", err)
	}
}

func TestManagerRefreshExpiredToken(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Minute, -time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelUser)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expected expired refresh session removed from store")
	}
}

func TestManagerRevoke(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1", models.LevelUser)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	manager.Revoke(context.Background(), tokens.AccessToken)

	if _, err := manager.Validate(context.Background(), tokens.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
}
