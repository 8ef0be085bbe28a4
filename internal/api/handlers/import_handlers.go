package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gitporter/gitporter/internal/creator"
	"github.com/gitporter/gitporter/internal/models"
	"github.com/gitporter/gitporter/internal/namespace"
	"github.com/gitporter/gitporter/internal/provider"
	"github.com/gitporter/gitporter/internal/reconcile"
	"github.com/gitporter/gitporter/internal/session"
)

// maxUploadBytes bounds offline catalog uploads.
const maxUploadBytes = 10 << 20

// listPageSize is the per-page size requested from providers during status.
const listPageSize = 100

// maxListPages caps the status listing loop against a provider that keeps
// returning cursors.
const maxListPages = 200

// NewImport handles GET /import/{provider}/new. It is the entry point of
// every provider flow: with a usable credential it forwards to status,
// otherwise it starts whichever acquisition step the kind needs.
func (h *Handler) NewImport(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, _, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	caps := provider.CapabilitiesFor(kind)
	cred := sess.Credential(kind)

	if caps.Offline {
		if len(sess.Seeds(kind)) > 0 {
			http.Redirect(w, r, fmt.Sprintf("/import/%s/status", kind), http.StatusFound)
			return
		}
		h.sendJSON(w, http.StatusOK, map[string]string{
			"step":       "upload",
			"upload_url": fmt.Sprintf("/import/%s/upload", kind),
		})
		return
	}

	if cred.Configured(caps) {
		http.Redirect(w, r, fmt.Sprintf("/import/%s/status", kind), http.StatusFound)
		return
	}

	if caps.SupportsOAuth {
		adapter, err := h.adapterFor(kind, sess)
		if err != nil {
			WriteErrorFromErr(w, err)
			return
		}
		flow, ok := adapter.(provider.OAuthFlow)
		if !ok {
			h.logger.Error("provider reports OAuth but implements no flow", "provider", kind)
			WriteError(w, ErrInternal)
			return
		}
		state := sess.BeginOAuth(kind)
		http.Redirect(w, r, flow.BeginAuthorization(state), http.StatusFound)
		return
	}

	if kind == provider.KindGitorious {
		// Anonymous listing, nothing to acquire.
		http.Redirect(w, r, fmt.Sprintf("/import/%s/status", kind), http.StatusFound)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]string{
		"step":          "configure",
		"configure_url": fmt.Sprintf("/import/%s/configure", kind),
	})
}

// Callback handles GET /import/{provider}/callback completing the OAuth
// handshake. The state nonce is single-use; any mismatch invalidates it.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, _, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	if !provider.CapabilitiesFor(kind).SupportsOAuth {
		WriteError(w, ErrBadRequest.WithMessage("Provider does not use the authorization flow"))
		return
	}

	if !sess.ConsumeOAuthState(kind, r.URL.Query().Get("state")) {
		WriteError(w, ErrInvalidOrExpiredRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, ErrInvalidOrExpiredRequest)
		return
	}

	adapter, err := h.adapterFor(kind, sess)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	flow, ok := adapter.(provider.OAuthFlow)
	if !ok {
		WriteError(w, ErrInternal)
		return
	}

	cred, err := flow.CompleteAuthorization(r.Context(), code)
	if err != nil {
		h.logger.Warn("authorization exchange failed", "provider", kind, "error", err)
		h.writeProviderError(w, kind, sess, err)
		return
	}
	sess.SetCredential(cred)

	h.logger.Info("provider authorized", "provider", kind, "remote_user", cred.Username)
	http.Redirect(w, r, fmt.Sprintf("/import/%s/status", kind), http.StatusFound)
}

type configureRequest struct {
	Token       string `json:"personal_access_token"`
	TokenSecret string `json:"token_secret"`
	Host        string `json:"host_url"`
	Username    string `json:"username"`
}

// Configure handles POST /import/{provider}/configure for token-based kinds.
func (h *Handler) Configure(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, _, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	caps := provider.CapabilitiesFor(kind)
	if caps.Offline {
		WriteError(w, ErrBadRequest.WithMessage("Provider takes an uploaded file, not a token"))
		return
	}

	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidJSON)
		return
	}

	var problems []string
	req.Token = strings.TrimSpace(req.Token)
	req.Host = strings.TrimSuffix(strings.TrimSpace(req.Host), "/")
	if req.Token == "" {
		problems = append(problems, "personal_access_token can't be blank")
	}
	if caps.RequiresHost {
		if req.Host == "" {
			problems = append(problems, "host_url can't be blank")
		} else if !strings.HasPrefix(req.Host, "http://") && !strings.HasPrefix(req.Host, "https://") {
			problems = append(problems, "host_url must start with http:// or https://")
		}
	}
	if len(problems) > 0 {
		WriteError(w, NewValidationError(problems...))
		return
	}

	sess.SetCredential(&provider.Credential{
		Kind:        kind,
		AccessToken: req.Token,
		TokenSecret: req.TokenSecret,
		HostURL:     req.Host,
		Username:    strings.TrimSpace(req.Username),
	})

	h.logger.Info("provider configured", "provider", kind, "host", req.Host)
	h.sendJSON(w, http.StatusOK, map[string]string{
		"status":     "configured",
		"status_url": fmt.Sprintf("/import/%s/status", kind),
	})
}

// Upload handles POST /import/{provider}/upload for offline kinds. The file
// is parsed immediately; a catalog that yields nothing is rejected so the
// mistake surfaces at upload time.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, _, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	if !provider.CapabilitiesFor(kind).Offline {
		WriteError(w, ErrBadRequest.WithMessage("Provider does not take an uploaded file"))
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	defer func() { _ = body.Close() }()

	var seeds []provider.RemoteRepository
	var authors []provider.RemoteAuthor
	switch kind {
	case provider.KindManifest:
		seeds, err = provider.ParseManifest(body)
	case provider.KindGoogleCode:
		seeds, authors, err = provider.ParseGoogleCodeDump(body)
	default:
		WriteError(w, ErrBadRequest)
		return
	}
	if err != nil {
		WriteError(w, NewValidationError(err.Error()))
		return
	}

	sess.SetSeeds(kind, seeds, authors)

	importable := 0
	for _, seed := range seeds {
		if !seed.Incompatible {
			importable++
		}
	}
	h.logger.Info("offline catalog uploaded", "provider", kind, "repositories", len(seeds), "importable", importable)
	h.sendJSON(w, http.StatusOK, map[string]any{
		"repository_count": len(seeds),
		"importable_count": importable,
		"status_url":       fmt.Sprintf("/import/%s/status", kind),
	})
}

type userMapEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaskedEmail string `json:"masked_email,omitempty"`
	UserID      int64  `json:"user_id"`
}

// GetUserMap handles GET /import/{provider}/user_map. When nothing was stored
// yet, a default map is synthesized from the provider's author listing with
// every author assigned to the importing user.
func (h *Handler) GetUserMap(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, user, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	if stored := sess.UserMap(kind); stored != nil {
		h.sendJSON(w, http.StatusOK, map[string]any{"user_map": stored})
		return
	}

	entries := []userMapEntry{}
	cred := sess.Credential(kind)
	if cred.Configured(provider.CapabilitiesFor(kind)) {
		adapter, aerr := h.adapterFor(kind, sess)
		if aerr != nil {
			WriteErrorFromErr(w, aerr)
			return
		}
		if lister, ok := adapter.(provider.AuthorLister); ok {
			authors, lerr := lister.ListAuthors(r.Context(), cred)
			if lerr != nil {
				h.writeProviderError(w, kind, sess, lerr)
				return
			}
			for _, author := range authors {
				entries = append(entries, userMapEntry{
					ID:          author.ID,
					Name:        author.Name,
					MaskedEmail: author.MaskedEmail,
					UserID:      user.ID,
				})
			}
		}
	}

	h.sendJSON(w, http.StatusOK, map[string]any{"suggestions": entries})
}

type putUserMapRequest struct {
	UserMap map[string]int64 `json:"user_map"`
}

// PutUserMap handles PUT /import/{provider}/user_map.
func (h *Handler) PutUserMap(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, _, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	var req putUserMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidJSON)
		return
	}
	if req.UserMap == nil {
		WriteError(w, NewValidationError("user_map can't be blank"))
		return
	}

	for remoteID, userID := range req.UserMap {
		mapped, uerr := h.db.GetUser(r.Context(), userID)
		if uerr != nil {
			WriteError(w, ErrInternal)
			return
		}
		if mapped == nil {
			WriteError(w, NewValidationError(fmt.Sprintf("user %d mapped from %q does not exist", userID, remoteID)))
			return
		}
	}

	sess.SetUserMap(kind, req.UserMap)
	h.sendJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type statusResponse struct {
	Importable   []provider.RemoteRepository `json:"importable"`
	Incompatible []provider.RemoteRepository `json:"incompatible"`
}

// Status handles GET /import/{provider}/status. The remote catalog is fetched
// fresh and reduced against the projects already imported by this user from
// this provider.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, user, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	caps := provider.CapabilitiesFor(kind)
	cred := sess.Credential(kind)

	if caps.Offline {
		if len(sess.Seeds(kind)) == 0 {
			WriteError(w, ErrBadRequest.WithMessage("Upload a repository list first"))
			return
		}
	} else if kind != provider.KindGitorious && !cred.Configured(caps) {
		WriteError(w, ErrProviderNotConfigured)
		return
	}

	adapter, err := h.adapterFor(kind, sess)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	if caps.RequiresUserMap && sess.UserMap(kind) == nil {
		if err := h.synthesizeUserMap(r.Context(), kind, sess, user, adapter, cred); err != nil {
			h.writeProviderError(w, kind, sess, err)
			return
		}
	}

	remote, err := h.listAll(r, adapter, cred)
	if err != nil {
		h.writeProviderError(w, kind, sess, err)
		return
	}

	existing, err := h.db.ListImportSources(r.Context(), user.ID, string(kind))
	if err != nil {
		h.logger.Error("failed to list import sources", "provider", kind, "error", err)
		WriteError(w, ErrInternal)
		return
	}

	result := reconcile.ComputeImportable(remote, existing)
	h.sendJSON(w, http.StatusOK, statusResponse{
		Importable:   result.Importable,
		Incompatible: result.Incompatible,
	})
}

// synthesizeUserMap stores the default author mapping: every remote identity
// assigned to the importing user. A later PUT overrides it.
func (h *Handler) synthesizeUserMap(ctx context.Context, kind provider.Kind, sess *session.ImportSession, user *models.User, adapter provider.Adapter, cred *provider.Credential) error {
	userMap := map[string]int64{}
	if lister, ok := adapter.(provider.AuthorLister); ok {
		authors, err := lister.ListAuthors(ctx, cred)
		if err != nil {
			return err
		}
		for _, author := range authors {
			userMap[author.ID] = user.ID
		}
	}
	sess.SetUserMap(kind, userMap)
	h.logger.Info("default user map synthesized", "provider", kind, "authors", len(userMap))
	return nil
}

func (h *Handler) listAll(r *http.Request, adapter provider.Adapter, cred *provider.Credential) ([]provider.RemoteRepository, error) {
	var all []provider.RemoteRepository
	page := provider.Page{PerPage: listPageSize}
	for range maxListPages {
		repos, err := adapter.ListRepositories(r.Context(), cred, page)
		if err != nil {
			return nil, err
		}
		all = append(all, repos.Repositories...)
		if repos.NextCursor == "" {
			return all, nil
		}
		page.Cursor = repos.NextCursor
	}
	return nil, fmt.Errorf("%s: listing did not terminate: %w", adapter.Kind(), provider.ErrNetwork)
}

type jobEntry struct {
	ID           int64               `json:"id"`
	ImportStatus models.ImportStatus `json:"import_status"`
	ImportError  string              `json:"import_error,omitempty"`
	ImportSource string              `json:"import_source"`
}

// Jobs handles GET /import/{provider}/jobs, the polling endpoint behind the
// status page's progress column.
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	_, user, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	projects, err := h.db.ListProjectsByImportType(r.Context(), user.ID, string(kind))
	if err != nil {
		h.logger.Error("failed to list import jobs", "provider", kind, "error", err)
		WriteError(w, ErrInternal)
		return
	}

	jobs := make([]jobEntry, 0, len(projects))
	for _, p := range projects {
		jobs = append(jobs, jobEntry{
			ID:           p.ID,
			ImportStatus: p.ImportStatus,
			ImportError:  p.ImportError,
			ImportSource: p.ImportSource,
		})
	}
	h.sendJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

type createRequest struct {
	RepositoryID    string `json:"repository_id"`
	NewName         string `json:"new_name"`
	TargetNamespace string `json:"target_namespace"`
}

// CreateImport handles POST /import/{provider}/create. The repository is
// re-fetched from the provider so a stale selection cannot import something
// the credential no longer reaches.
func (h *Handler) CreateImport(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, user, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	caps := provider.CapabilitiesFor(kind)
	cred := sess.Credential(kind)
	if !caps.Offline && kind != provider.KindGitorious && !cred.Configured(caps) {
		WriteError(w, ErrProviderNotConfigured)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidJSON)
		return
	}
	if strings.TrimSpace(req.RepositoryID) == "" {
		WriteError(w, NewValidationError("repository_id can't be blank"))
		return
	}

	adapter, err := h.adapterFor(kind, sess)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	repo, err := adapter.FetchRepository(r.Context(), cred, req.RepositoryID)
	if err != nil {
		h.writeProviderError(w, kind, sess, err)
		return
	}
	if repo.Incompatible {
		reason := repo.IncompatibleReason
		if reason == "" {
			reason = "repository type is not supported"
		}
		WriteError(w, NewValidationError(reason))
		return
	}

	remoteLogin := ""
	if cred != nil {
		remoteLogin = cred.Username
	}
	ns, err := h.resolver.Resolve(r.Context(), namespace.Request{
		PathHint:    repo.Owner,
		RemoteLogin: remoteLogin,
		Override:    strings.TrimSpace(req.TargetNamespace),
	}, user)
	if err != nil {
		if errors.Is(err, namespace.ErrPermission) {
			WriteError(w, NewValidationError(namespace.ErrPermission.Error()))
			return
		}
		if errors.Is(err, namespace.ErrInvalidPath) {
			WriteError(w, NewValidationError(err.Error()))
			return
		}
		h.logger.Error("namespace resolution failed", "provider", kind, "error", err)
		WriteError(w, ErrInternal)
		return
	}

	cloneURL, err := adapter.AuthenticatedCloneURL(cred, repo)
	if err != nil {
		h.logger.Error("failed to build clone URL", "provider", kind, "repo", repo.FullName, "error", err)
		WriteError(w, ErrInternal)
		return
	}

	project, err := h.creator.Create(r.Context(), creator.Request{
		Kind:       kind,
		Repository: *repo,
		CloneURL:   cloneURL,
		Namespace:  ns,
		User:       user,
		Name:       strings.TrimSpace(req.NewName),
	})
	if err != nil {
		h.writeCreateError(w, kind, project, err)
		return
	}

	h.sendJSON(w, http.StatusCreated, project)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, kind provider.Kind, existing *models.Project, err error) {
	switch {
	case errors.Is(err, creator.ErrDuplicateImport):
		if existing != nil {
			h.sendJSON(w, http.StatusConflict, map[string]any{
				"error":   "Repository was already imported",
				"project": existing,
			})
			return
		}
		WriteError(w, NewConflictError("Repository was already imported"))
	case errors.Is(err, provider.ErrIncompatible):
		WriteError(w, NewValidationError(err.Error()))
	case errors.Is(err, creator.ErrNotPermitted):
		WriteError(w, NewValidationError(creator.ErrNotPermitted.Error()))
	default:
		var validation *creator.ValidationErrors
		if errors.As(err, &validation) {
			WriteError(w, NewValidationError(validation.Messages...))
			return
		}
		h.logger.Error("project creation failed", "provider", kind, "error", err)
		WriteError(w, ErrInternal)
	}
}

// RevokeAuthorization handles DELETE /import/{provider}/authorization. Every
// trace of the provider leaves the session; durable projects are untouched.
func (h *Handler) RevokeAuthorization(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}
	sess, _, err := h.currentSession(r)
	if err != nil {
		WriteErrorFromErr(w, err)
		return
	}

	sess.Revoke(kind)
	h.logger.Info("provider authorization revoked", "provider", kind)
	h.sendJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// writeProviderError maps the provider error taxonomy onto HTTP responses. A
// rejected credential is also dropped from the session so the next entry-point
// visit restarts authentication.
func (h *Handler) writeProviderError(w http.ResponseWriter, kind provider.Kind, sess *session.ImportSession, err error) {
	switch {
	case errors.Is(err, provider.ErrUnauthorized), errors.Is(err, provider.ErrInvalidOrExpiredRequest):
		sess.ClearCredential(kind)
		WriteError(w, ErrInvalidOrExpiredRequest)
	case errors.Is(err, provider.ErrNotFound):
		WriteError(w, ErrNotFound.WithMessage("Repository not found on the import source"))
	case errors.Is(err, provider.ErrIncompatible):
		WriteError(w, NewValidationError(err.Error()))
	case errors.Is(err, provider.ErrNetwork):
		WriteError(w, ErrProviderUnreachable)
	default:
		h.logger.Error("provider call failed", "provider", kind, "error", err)
		WriteError(w, ErrInternal)
	}
}
