package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordingBlobStore struct {
	key      string
	contents string
	err      error
}

func (s *recordingBlobStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.key = name
	s.contents = string(data)
	return "https://cdn.example.com/uploads/" + name, nil
}

func multipartBody(t *testing.T, filename, contents string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, contents); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	store := &recordingBlobStore{}
	handler := UploadHandler{Blobs: store, Sessions: sessionsFor("user-1")}

	body, contentType := multipartBody(t, "clip.mp4", "binary-data")
	req := authorize(httptest.NewRequest(http.MethodPost, "/api/v1/files", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	if !strings.HasPrefix(store.key, "user-1/") || !strings.HasSuffix(store.key, ".mp4") {
		t.Fatalf("unexpected storage key: %q", store.key)
	}
	if store.contents != "binary-data" {
		t.Fatalf("unexpected stored contents: %q", store.contents)
	}
}

func TestUploadHandlerFailures(t *testing.T) {
	body, contentType := multipartBody(t, "clip.mp4", "binary-data")

	req := authorize(httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	rec := httptest.NewRecorder()
	handler := UploadHandler{Blobs: &recordingBlobStore{}, Sessions: sessionsFor("user-1")}
	handler.Upload(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}

	req = authorize(httptest.NewRequest(http.MethodPost, "/api/v1/files", bytes.NewReader(body.Bytes())))
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	handler = UploadHandler{Sessions: sessionsFor("user-1")}
	handler.Upload(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error without blob store got %d", rec.Code)
	}

	req = authorize(httptest.NewRequest(http.MethodPost, "/api/v1/files", bytes.NewReader(body.Bytes())))
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	handler = UploadHandler{Blobs: &recordingBlobStore{}, Sessions: sessionsFor("user-1"), Limiter: denyAllLimiter{}}
	handler.Upload(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected too many requests got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/files", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	handler = UploadHandler{Blobs: &recordingBlobStore{}, Sessions: sessionsFor("user-1")}
	handler.Upload(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized got %d", rec.Code)
	}

	req = authorize(httptest.NewRequest(http.MethodPost, "/api/v1/files", strings.NewReader("not multipart")))
	rec = httptest.NewRecorder()
	handler = UploadHandler{Blobs: &recordingBlobStore{}, Sessions: sessionsFor("user-1")}
	handler.Upload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request got %d", rec.Code)
	}

	req = authorize(httptest.NewRequest(http.MethodPost, "/api/v1/files", bytes.NewReader(body.Bytes())))
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	handler = UploadHandler{Blobs: &recordingBlobStore{err: errors.New("s3 down")}, Sessions: sessionsFor("user-1")}
	handler.Upload(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}
