// Package creator performs the idempotent project creation step that turns a
// selected remote repository into a durable project record and hands the copy
// off to the worker.
package creator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gitporter/gitporter/internal/models"
	"github.com/gitporter/gitporter/internal/provider"
	"github.com/gitporter/gitporter/internal/storage"
)

// ErrDuplicateImport is returned alongside the existing record when the same
// (creator, provider, source) import is submitted again.
var ErrDuplicateImport = errors.New("repository was already imported")

// ErrNotPermitted means the requesting user may not create projects in the
// resolved namespace. User-correctable, same as a validation failure.
var ErrNotPermitted = errors.New("you are not allowed to create projects in this namespace")

// ValidationErrors carries the field-level messages of a rejected creation.
type ValidationErrors struct {
	Messages []string
}

func (e *ValidationErrors) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Request is one import submission, already resolved to a namespace.
type Request struct {
	Kind       provider.Kind
	Repository provider.RemoteRepository
	// CloneURL is the authenticated URL the worker will copy from. Empty for
	// sources with no repository content.
	CloneURL  string
	Namespace *models.Namespace
	User      *models.User
	// Name overrides the project name; defaults to the repository name.
	Name string
}

type Creator struct {
	db     *storage.Database
	logger *slog.Logger
}

func New(db *storage.Database, logger *slog.Logger) *Creator {
	return &Creator{db: db, logger: logger}
}

// Create records the import. Safe to call twice for the same repository and
// user: the duplicate returns the first record with ErrDuplicateImport, both
// via the pre-query and, for concurrent submissions that slip past it, via
// the unique index on (creator_id, import_type, import_source).
func (c *Creator) Create(ctx context.Context, req Request) (*models.Project, error) {
	if req.User == nil || req.Namespace == nil {
		return nil, fmt.Errorf("creator: user and namespace are required")
	}
	if req.Repository.Incompatible {
		reason := req.Repository.IncompatibleReason
		if reason == "" {
			reason = "unsupported repository type"
		}
		return nil, fmt.Errorf("%s: %s: %w", req.Repository.FullName, reason, provider.ErrIncompatible)
	}

	// Re-verify permission against current state; the namespace may have
	// changed hands since the status page was rendered.
	if err := c.checkPermission(ctx, req.Namespace, req.User); err != nil {
		return nil, err
	}

	importSource := req.Repository.CanonicalKey()
	existing, err := c.db.FindProjectByImportSource(ctx, req.User.ID, string(req.Kind), importSource)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrDuplicateImport
	}

	name := req.Name
	if name == "" {
		name = repositoryName(req.Repository.FullName)
	}

	status := models.ImportStatusScheduled
	if req.CloneURL == "" {
		// Nothing to copy; the record is complete as created.
		status = models.ImportStatusNone
	}

	project := &models.Project{
		Name:         name,
		NamespaceID:  req.Namespace.ID,
		CreatorID:    req.User.ID,
		ImportType:   string(req.Kind),
		ImportSource: importSource,
		ImportURL:    req.CloneURL,
		ImportStatus: status,
	}

	if err := c.db.CreateProject(ctx, project); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Lost the race to a concurrent submission.
			winner, findErr := c.db.FindProjectByImportSource(ctx, req.User.ID, string(req.Kind), importSource)
			if findErr == nil && winner != nil {
				return winner, ErrDuplicateImport
			}
			return nil, ErrDuplicateImport
		}
		if isValidation(err) {
			return nil, &ValidationErrors{Messages: []string{err.Error()}}
		}
		return nil, err
	}

	c.logger.Info("project created",
		"project_id", project.ID,
		"import_type", project.ImportType,
		"import_source", project.ImportSource,
		"import_status", project.ImportStatus,
		"creator_id", project.CreatorID)
	return project, nil
}

func (c *Creator) checkPermission(ctx context.Context, ns *models.Namespace, user *models.User) error {
	current, err := c.db.GetNamespace(ctx, ns.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("namespace %d no longer exists: %w", ns.ID, ErrNotPermitted)
	}
	if current.OwnerID != user.ID {
		return fmt.Errorf("namespace %q: %w", current.FullPath, ErrNotPermitted)
	}
	return nil
}

func isValidation(err error) bool {
	switch {
	case errors.Is(err, models.ErrProjectNameRequired),
		errors.Is(err, models.ErrProjectPathRequired),
		errors.Is(err, models.ErrProjectPathInvalid),
		errors.Is(err, models.ErrImportTypeRequired),
		errors.Is(err, models.ErrImportSourceRequired),
		errors.Is(err, models.ErrImportStatusUnknown),
		errors.Is(err, models.ErrProjectCreatorMissing):
		return true
	}
	return false
}

func repositoryName(fullName string) string {
	if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}
