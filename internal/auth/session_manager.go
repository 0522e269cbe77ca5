package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/mediashare/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenExpired indicates the token has expired and cannot be used.
	ErrTokenExpired = errors.New("token expired")
)

// Session kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// SessionStore persists issued tokens so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Session represents a token issued to a user. Level travels with the
// session so authorization decisions (owner vs. admin) do not need a user
// lookup on every request.
type Session struct {
	Token     string
	Kind      string
	UserID    string
	Level     string
	ExpiresAt time.Time
}

// Manager manages the lifecycle of issued session tokens backed by a persistent store.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration

	store SessionStore
}

// NewManager constructs a Manager that issues access and refresh tokens with the provided TTLs.
func NewManager(accessTTL, refreshTTL time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
	}
}

// Issue creates a new pair of access and refresh tokens for the provided user.
func (m *Manager) Issue(ctx context.Context, userID, level string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}
	if level == "" {
		level = models.LevelUser
	}

	now := time.Now().UTC()
	accessToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	sessions := []Session{
		{Token: accessToken, Kind: KindAccess, UserID: userID, Level: level, ExpiresAt: tokens.AccessExpiresAt},
		{Token: refreshToken, Kind: KindRefresh, UserID: userID, Level: level, ExpiresAt: tokens.RefreshExpiresAt},
	}
	for _, session := range sessions {
		if err := m.store.Save(ctx, session); err != nil {
			return models.SessionTokens{}, err
		}
	}

	return tokens, nil
}

// Validate resolves an access token to the identity behind it.
func (m *Manager) Validate(ctx context.Context, accessToken string) (models.Identity, error) {
	if accessToken == "" {
		return models.Identity{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, accessToken)
	if err != nil {
		return models.Identity{}, err
	}

	if session.Kind != KindAccess {
		return models.Identity{}, ErrSessionNotFound
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, accessToken)
		return models.Identity{}, ErrTokenExpired
	}

	return models.Identity{UserID: session.UserID, Level: session.Level}, nil
}

// Refresh exchanges a refresh token for a new session token pair.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if session.Kind != KindRefresh {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		return models.SessionTokens{}, ErrTokenExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, session.UserID, session.Level)
}

// Revoke removes the provided token from the active session store.
func (m *Manager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	_ = m.store.Delete(ctx, token)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
