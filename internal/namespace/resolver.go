// Package namespace maps a source-side owner path to a destination namespace,
// creating missing groups on demand.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gitporter/gitporter/internal/models"
	"github.com/gitporter/gitporter/internal/storage"
)

// ErrPermission means the target path collides with a namespace owned by
// someone else. Surfaced from the creation attempt, never pre-checked.
var ErrPermission = errors.New("namespace has already been taken, choose another one")

// ErrInvalidPath means the requested namespace path cannot be persisted even
// after normalization.
var ErrInvalidPath = errors.New("namespace path is not valid")

// Store is the namespace persistence the resolver needs.
type Store interface {
	FindNamespaceByFullPath(ctx context.Context, fullPath string) (*models.Namespace, error)
	PersonalNamespace(ctx context.Context, userID int64) (*models.Namespace, error)
	CreateGroup(ctx context.Context, path string, ownerID int64) (*models.Namespace, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Request carries one resolution.
type Request struct {
	// PathHint is the source-side owner of the repository.
	PathHint string
	// RemoteLogin is the user's own account name on the source; a hint equal
	// to it means "this was my repository over there".
	RemoteLogin string
	// Override is an explicit target chosen in the import form. It wins
	// unconditionally when set.
	Override string
}

// Resolve picks the destination namespace, in strict precedence order:
// explicit override, the user's personal namespace when the hint is their own
// remote login, an existing namespace at the hinted path, and finally a fresh
// group. Hints are slugified first; a repository with no usable owner hint
// lands in the user's personal namespace, matching sources that have no
// notion of an owner path. Only the creation step can fail with
// ErrPermission; whether the user may create projects in a namespace someone
// else owns is the project creator's check, not this one's.
func (r *Resolver) Resolve(ctx context.Context, req Request, user *models.User) (*models.Namespace, error) {
	path := strings.TrimSpace(req.Override)
	if path == "" {
		if req.RemoteLogin != "" && req.PathHint == req.RemoteLogin {
			return r.personal(ctx, user)
		}
		path = models.Slugify(req.PathHint)
		if path == "" {
			return r.personal(ctx, user)
		}
	}

	existing, err := r.store.FindNamespaceByFullPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := r.store.CreateGroup(ctx, path, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, fmt.Errorf("%q: %w", path, ErrPermission)
		case errors.Is(err, models.ErrNamespacePathInvalid), errors.Is(err, models.ErrNamespacePathRequired):
			return nil, fmt.Errorf("%q: %w", path, ErrInvalidPath)
		}
		return nil, err
	}
	return created, nil
}

func (r *Resolver) personal(ctx context.Context, user *models.User) (*models.Namespace, error) {
	personal, err := r.store.PersonalNamespace(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if personal == nil {
		return nil, fmt.Errorf("user %d has no personal namespace", user.ID)
	}
	return personal, nil
}
