package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := Config{
		Port:      0,
		DBPath:    filepath.Join(dir, "test.db"),
		JWTSecret: "test-secret-at-least-16-chars",
		UploadDir: filepath.Join(dir, "uploads"),
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	srv, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// doJSON sends a JSON request through the full middleware chain.
func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates an account and returns a valid bearer token.
func registerAndLogin(t *testing.T, srv *Server, email string) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	token, ok := decodeBody(t, rec)["token"].(string)
	require.True(t, ok, "login response must carry a token")
	return token
}

func TestLiveness(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "API is running")
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	token := registerAndLogin(t, srv, "alice@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, body, "passwordHash")

	// Duplicate registration is a conflict, reported as 400.
	rec = doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decodeBody(t, rec)["error"])

	// Wrong password and unknown email both yield the same 401.
	rec = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongBody := rec.Body.String()

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "s3cret",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrongBody, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/categories"},
		{http.MethodGet, "/api/resources"},
		{http.MethodPost, "/api/resources"},
	}
	for _, p := range paths {
		rec := doJSON(t, srv, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/resources", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/categories", token, map[string]string{"name": "Work"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/categories", token, map[string]string{"name": "Work"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decodeBody(t, rec)["error"])

	// Categories are shared: another user sees them.
	other := registerAndLogin(t, srv, "bob@example.com")
	rec = doJSON(t, srv, http.MethodGet, "/api/categories", other, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var categories []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "Work", categories[0]["name"])
}

func TestResourceLifecycle(t *testing.T) {
	srv := newTestServer(t)
	alice := registerAndLogin(t, srv, "alice@example.com")
	bob := registerAndLogin(t, srv, "bob@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/resources", alice, map[string]any{
		"title":   "Book",
		"type":    "link",
		"content": map[string]any{"url": "example.com"},
		"tags":    []string{"reading"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	id := int64(created["id"].(float64))
	require.NotZero(t, id)

	// Owner sees it with tags expanded; another user does not.
	rec = doJSON(t, srv, http.MethodGet, "/api/resources", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Book", list[0]["title"])

	rec = doJSON(t, srv, http.MethodGet, "/api/resources", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/resources/%d", id), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/resources/%d", id), alice, map[string]any{
		"title": "Book (2nd edition)",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody(t, rec)
	assert.Equal(t, "Book (2nd edition)", updated["title"])
	// Untouched content survives a title-only update.
	content, ok := updated["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "example.com", content["url"])

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/resources/%d", id), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/resources/%d", id), alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resource deleted", decodeBody(t, rec)["message"])

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/resources/%d", id), alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResourceMultipartUpload(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("title", "Report"))
	require.NoError(t, form.WriteField("type", "FILE"))
	require.NoError(t, form.WriteField("content", `{"description":"quarterly numbers"}`))
	require.NoError(t, form.WriteField("tags", "work, finance"))
	part, err := form.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resources", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.Equal(t, "file", created["type"], "type is lowercased")

	content, ok := created["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "quarterly numbers", content["description"])
	assert.Equal(t, "report.pdf", content["originalName"])
	fileURL, ok := content["fileUrl"].(string)
	require.True(t, ok)
	require.NotEmpty(t, fileURL)

	tags, ok := created["tags"].([]any)
	require.True(t, ok)
	assert.Len(t, tags, 2)

	// The stored file is served back under its public URL.
	rec = doJSON(t, srv, http.MethodGet, fileURL, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())
}

func TestResourceCreatedAtOverride(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/resources", token, map[string]any{
		"title":     "backdated",
		"type":      "note",
		"createdAt": "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.Contains(t, created["createdAt"], "2024-06-01")

	// An unparsable override is discarded, never an error.
	rec = doJSON(t, srv, http.MethodPost, "/api/resources", token, map[string]any{
		"title":     "current",
		"type":      "note",
		"createdAt": "not-a-date",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created = decodeBody(t, rec)
	assert.NotContains(t, created["createdAt"], "not-a-date")
}

func TestResourceValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/resources", token, map[string]any{
		"type": "note",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeBody(t, rec)["error"])

	// A body the JSON parser cannot recover from is a 500.
	req := httptest.NewRequest(http.MethodPost, "/api/resources", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
