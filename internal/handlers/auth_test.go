package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mediashare/backend/internal/auth"
	"github.com/mediashare/backend/internal/models"
	"github.com/mediashare/backend/internal/repositories"
)

type inMemoryUserStore struct {
	users map[string]models.User

	deleteErr error
	deleted   string
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)
	s.deleted = id
	return nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func testSessionManager() *auth.Manager {
	return auth.NewManager(15*time.Minute, 24*time.Hour, auth.NewInMemorySessionStore())
}

func TestAuthHandlerSignUpAndLogin(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Sessions: testSessionManager()}

	body := []byte(`{"username":"alice","email":"alice@example.com","password":"supersecret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens issued, got %+v", resp.Tokens)
	}

	stored, err := store.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("expected user stored: %v", err)
	}
	if stored.Password == "supersecret" {
		t.Fatal("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersecret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if stored.Level != models.LevelUser {
		t.Fatalf("expected default user level, got %q", stored.Level)
	}

	loginBody := []byte(`{"email":"alice@example.com","password":"supersecret"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	rec = httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerSignUpFailures(t *testing.T) {
	sessions := testSessionManager()

	cases := []struct {
		name       string
		handler    AuthHandler
		method     string
		body       []byte
		wantStatus int
	}{
		{"wrongMethod", AuthHandler{Users: newInMemoryUserStore(), Sessions: sessions}, http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"missingDeps", AuthHandler{}, http.MethodPost, []byte(`{}`), http.StatusInternalServerError},
		{"badJSON", AuthHandler{Users: newInMemoryUserStore(), Sessions: sessions}, http.MethodPost, []byte("{"), http.StatusBadRequest},
		{"missingFields", AuthHandler{Users: newInMemoryUserStore(), Sessions: sessions}, http.MethodPost, []byte(`{"username":"","email":"","password":""}`), http.StatusBadRequest},
		{"invalidEmail", AuthHandler{Users: newInMemoryUserStore(), Sessions: sessions}, http.MethodPost, []byte(`{"username":"a","email":"not-an-email","password":"supersecret"}`), http.StatusBadRequest},
		{"shortPassword", AuthHandler{Users: newInMemoryUserStore(), Sessions: sessions}, http.MethodPost, []byte(`{"username":"a","email":"a@example.com","password":"short"}`), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/auth/signup", bytes.NewReader(tc.body))
			rec := httptest.NewRecorder()

			tc.handler.SignUp(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthHandlerSignUpConflict(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Sessions: testSessionManager()}

	body := []byte(`{"username":"alice","email":"alice@example.com","password":"supersecret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.SignUp(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected first signup to succeed, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.SignUp(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected conflict on duplicate signup, got %d", rec.Code)
	}
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	store := newInMemoryUserStore()
	hashed, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := store.Create(context.Background(), models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		Password: string(hashed),
		Level:    models.LevelUser,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	sessions := testSessionManager()

	cases := []struct {
		name       string
		handler    AuthHandler
		body       []byte
		wantStatus int
	}{
		{"unknownUser", AuthHandler{Users: store, Sessions: sessions}, []byte(`{"email":"ghost@example.com","password":"supersecret"}`), http.StatusUnauthorized},
		{"wrongPassword", AuthHandler{Users: store, Sessions: sessions}, []byte(`{"email":"alice@example.com","password":"wrong-password"}`), http.StatusUnauthorized},
		{"missingFields", AuthHandler{Users: store, Sessions: sessions}, []byte(`{"email":"","password":""}`), http.StatusBadRequest},
		{"rateLimited", AuthHandler{Users: store, Sessions: sessions, Limiter: denyAllLimiter{}}, []byte(`{"email":"alice@example.com","password":"supersecret"}`), http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(tc.body))
			rec := httptest.NewRecorder()

			tc.handler.Login(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthHandlerRefresh(t *testing.T) {
	sessions := testSessionManager()
	handler := AuthHandler{Users: newInMemoryUserStore(), Sessions: sessions}

	tokens, err := sessions.Issue(context.Background(), "user-1", models.LevelUser)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Tokens.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}

	// Consumed token cannot be replayed.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.Refresh(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized replaying refresh token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader([]byte(`{"refreshToken":""}`)))
	rec = httptest.NewRecorder()
	handler.Refresh(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for empty token, got %d", rec.Code)
	}
}

func TestAuthHandlerDeleteAccount(t *testing.T) {
	store := newInMemoryUserStore()
	store.users["user-1"] = models.User{ID: "user-1", Email: "alice@example.com"}
	handler := AuthHandler{Users: store, Sessions: sessionsFor("user-1")}

	req := authorize(httptest.NewRequest(http.MethodDelete, "/api/v1/users", nil))
	rec := httptest.NewRecorder()
	handler.DeleteAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if store.deleted != "user-1" {
		t.Fatalf("expected account deleted, got %q", store.deleted)
	}
}

func TestAuthHandlerDeleteAccountFailures(t *testing.T) {
	req := authorize(httptest.NewRequest(http.MethodDelete, "/api/v1/users", nil))
	rec := httptest.NewRecorder()
	handler := AuthHandler{Sessions: sessionsFor("user-1")}
	handler.DeleteAccount(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error without store got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/users", nil)
	rec = httptest.NewRecorder()
	handler = AuthHandler{Users: newInMemoryUserStore(), Sessions: sessionsFor("user-1")}
	handler.DeleteAccount(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized without token got %d", rec.Code)
	}

	req = authorize(httptest.NewRequest(http.MethodDelete, "/api/v1/users", nil))
	rec = httptest.NewRecorder()
	handler = AuthHandler{Users: newInMemoryUserStore(), Sessions: sessionsFor("user-1")}
	handler.DeleteAccount(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found for missing account got %d", rec.Code)
	}

	req = authorize(httptest.NewRequest(http.MethodDelete, "/api/v1/users", nil))
	rec = httptest.NewRecorder()
	handler = AuthHandler{Users: &inMemoryUserStore{users: map[string]models.User{"user-1": {}}, deleteErr: errors.New("db down")}, Sessions: sessionsFor("user-1")}
	handler.DeleteAccount(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}
