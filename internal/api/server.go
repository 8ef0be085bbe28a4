// Package api wires the HTTP surface: routing, session middleware and the
// handler set.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gitporter/gitporter/internal/api/handlers"
	"github.com/gitporter/gitporter/internal/auth"
	"github.com/gitporter/gitporter/internal/config"
	"github.com/gitporter/gitporter/internal/creator"
	"github.com/gitporter/gitporter/internal/session"
	"github.com/gitporter/gitporter/internal/storage"
)

type Server struct {
	config     *config.Config
	logger     *slog.Logger
	handler    *handlers.Handler
	middleware *auth.Middleware
}

func NewServer(cfg *config.Config, db *storage.Database, logger *slog.Logger, sessions *session.Store, jwtManager *auth.JWTManager, projectCreator *creator.Creator) *Server {
	return &Server{
		config:     cfg,
		logger:     logger,
		handler:    handlers.NewHandler(db, logger, cfg, sessions, jwtManager, projectCreator, nil),
		middleware: auth.NewMiddleware(jwtManager, logger),
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handler.Health)
	mux.HandleFunc("POST /api/v1/login", s.handler.Login)
	mux.Handle("POST /api/v1/logout", s.protect(s.handler.Logout))

	mux.Handle("GET /import/{provider}/new", s.protect(s.handler.NewImport))
	mux.Handle("GET /import/{provider}/callback", s.protect(s.handler.Callback))
	mux.Handle("POST /import/{provider}/configure", s.protect(s.handler.Configure))
	mux.Handle("POST /import/{provider}/upload", s.protect(s.handler.Upload))
	mux.Handle("GET /import/{provider}/user_map", s.protect(s.handler.GetUserMap))
	mux.Handle("PUT /import/{provider}/user_map", s.protect(s.handler.PutUserMap))
	mux.Handle("GET /import/{provider}/status", s.protect(s.handler.Status))
	mux.Handle("GET /import/{provider}/jobs", s.protect(s.handler.Jobs))
	mux.Handle("POST /import/{provider}/create", s.protect(s.handler.CreateImport))
	mux.Handle("DELETE /import/{provider}/authorization", s.protect(s.handler.RevokeAuthorization))

	return mux
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return s.middleware.RequireAuth(h)
}
