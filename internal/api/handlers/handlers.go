// Package handlers contains the HTTP handlers for the import API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gitporter/gitporter/internal/auth"
	"github.com/gitporter/gitporter/internal/config"
	"github.com/gitporter/gitporter/internal/creator"
	"github.com/gitporter/gitporter/internal/models"
	"github.com/gitporter/gitporter/internal/namespace"
	"github.com/gitporter/gitporter/internal/provider"
	"github.com/gitporter/gitporter/internal/session"
	"github.com/gitporter/gitporter/internal/storage"
)

// AdapterFactory builds the provider adapter for a kind. Injectable so tests
// can substitute a fake provider.
type AdapterFactory func(kind provider.Kind, opts provider.Options) (provider.Adapter, error)

// Handler contains all HTTP handlers.
type Handler struct {
	db         *storage.Database
	logger     *slog.Logger
	cfg        *config.Config
	sessions   *session.Store
	jwtManager *auth.JWTManager
	creator    *creator.Creator
	resolver   *namespace.Resolver
	newAdapter AdapterFactory
}

// NewHandler creates a new Handler instance. adapterFactory may be nil, in
// which case the real provider constructors are used.
func NewHandler(db *storage.Database, logger *slog.Logger, cfg *config.Config, sessions *session.Store, jwtManager *auth.JWTManager, projectCreator *creator.Creator, adapterFactory AdapterFactory) *Handler {
	if adapterFactory == nil {
		adapterFactory = provider.New
	}
	return &Handler{
		db:         db,
		logger:     logger,
		cfg:        cfg,
		sessions:   sessions,
		jwtManager: jwtManager,
		creator:    projectCreator,
		resolver:   namespace.NewResolver(db),
		newAdapter: adapterFactory,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// currentSession resolves the authenticated user and their import session from
// the request context. A missing or expired session yields a 401.
func (h *Handler) currentSession(r *http.Request) (*session.ImportSession, *models.User, error) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		return nil, nil, ErrUnauthorized
	}
	sess := h.sessions.Get(sessionID)
	if sess == nil {
		return nil, nil, ErrUnauthorized.WithMessage("Session expired, sign in again")
	}

	user, err := h.db.GetUser(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("failed to load session user", "user_id", sess.UserID, "error", err)
		return nil, nil, ErrInternal
	}
	if user == nil {
		return nil, nil, ErrUnauthorized
	}
	return sess, user, nil
}

// kindFromRequest parses the {provider} path segment.
func kindFromRequest(r *http.Request) (provider.Kind, error) {
	kind, err := provider.ParseKind(r.PathValue("provider"))
	if err != nil {
		return "", ErrUnknownProvider
	}
	return kind, nil
}

// adapterFor builds the adapter for a kind with the session's host, the
// deployment's OAuth registration and any uploaded catalog.
func (h *Handler) adapterFor(kind provider.Kind, sess *session.ImportSession) (provider.Adapter, error) {
	opts := provider.Options{Seeds: sess.Seeds(kind), Authors: sess.SeedAuthors(kind)}

	if cred := sess.Credential(kind); cred != nil {
		opts.Host = cred.HostURL
	}

	switch kind {
	case provider.KindGitHub:
		opts.OAuth = h.oauthConfig(kind, h.cfg.Providers.GitHub)
		if opts.Host == "" {
			opts.Host = h.cfg.Providers.GitHub.Host
		}
	case provider.KindGitLab:
		opts.OAuth = h.oauthConfig(kind, h.cfg.Providers.GitLab)
		if opts.Host == "" {
			opts.Host = h.cfg.Providers.GitLab.Host
		}
	case provider.KindBitbucket:
		opts.OAuth = h.oauthConfig(kind, h.cfg.Providers.Bitbucket)
	case provider.KindGitorious:
		if opts.Host == "" {
			opts.Host = h.cfg.Providers.GitoriousHost
		}
	}

	adapter, err := h.newAdapter(kind, opts)
	if err != nil {
		h.logger.Error("failed to build adapter", "provider", kind, "error", err)
		return nil, ErrInternal
	}
	return adapter, nil
}

func (h *Handler) oauthConfig(kind provider.Kind, pc config.OAuthProviderConfig) provider.OAuthConfig {
	return provider.OAuthConfig{
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		RedirectURL:  h.cfg.CallbackURL(string(kind)),
	}
}

// sendJSON sends a JSON response.
func (h *Handler) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}
