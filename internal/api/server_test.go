package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gitporter/gitporter/internal/auth"
	"github.com/gitporter/gitporter/internal/config"
	"github.com/gitporter/gitporter/internal/creator"
	"github.com/gitporter/gitporter/internal/session"
	"github.com/gitporter/gitporter/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.New(config.DatabaseConfig{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("storage.New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewStore(time.Hour)
	t.Cleanup(sessions.Close)
	jwtManager, err := auth.NewJWTManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:8080"
	return NewServer(cfg, db, logger, sessions, jwtManager, creator.New(db, logger))
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("GET /health body = %s", rec.Body.String())
	}
}

func TestImportRoutesRequireAuth(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	paths := []struct{ method, path string }{
		{http.MethodGet, "/import/github/new"},
		{http.MethodGet, "/import/github/status"},
		{http.MethodPost, "/import/gitea/configure"},
		{http.MethodDelete, "/import/github/authorization"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}
