package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error: %v", err)
	}

	token, err := m.GenerateToken(42, "alice", "sess-1")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if claims.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", claims.SessionID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m, _ := NewJWTManager("test-secret", time.Hour)
	if _, err := m.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m1, _ := NewJWTManager("secret-one", time.Hour)
	m2, _ := NewJWTManager("secret-two", time.Hour)

	token, err := m1.GenerateToken(1, "alice", "sess")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if _, err := m2.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	m, _ := NewJWTManager("test-secret", time.Millisecond)
	token, err := m.GenerateToken(1, "alice", "sess")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager("", time.Hour); err == nil {
		t.Fatal("NewJWTManager() accepted empty secret")
	}
}

func TestRequireAuth(t *testing.T) {
	m, _ := NewJWTManager("test-secret", time.Hour)
	mw := NewMiddleware(m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var gotUserID int64
	var gotSession string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		gotSession, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/import/github/status", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/import/github/status", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "bogus"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := m.GenerateToken(7, "alice", "sess-7")
		if err != nil {
			t.Fatalf("GenerateToken() error: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/import/github/status", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if gotUserID != 7 {
			t.Errorf("context user ID = %d, want 7", gotUserID)
		}
		if gotSession != "sess-7" {
			t.Errorf("context session = %q, want sess-7", gotSession)
		}
	})
}
