package provider

import (
	"context"
	"fmt"
)

// OfflineAdapter serves a repository catalog that came from an uploaded file
// instead of a network listing. It satisfies the same contract as the network
// adapters so reconciliation and creation need no special path, but there is
// no pagination and nothing to authenticate.
type OfflineAdapter struct {
	kind    Kind
	seeds   []RemoteRepository
	authors []RemoteAuthor
}

// NewOfflineAdapter wraps an uploaded catalog for kind. Seeds and authors
// come from the session, parsed once at upload time.
func NewOfflineAdapter(kind Kind, seeds []RemoteRepository, authors []RemoteAuthor) *OfflineAdapter {
	return &OfflineAdapter{kind: kind, seeds: seeds, authors: authors}
}

func (a *OfflineAdapter) Kind() Kind                 { return a.kind }
func (a *OfflineAdapter) Capabilities() Capabilities { return CapabilitiesFor(a.kind) }

func (a *OfflineAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	out := &RepositoryPage{Repositories: make([]RemoteRepository, len(a.seeds))}
	copy(out.Repositories, a.seeds)
	return out, nil
}

func (a *OfflineAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	for i := range a.seeds {
		if a.seeds[i].ID == id {
			repo := a.seeds[i]
			return &repo, nil
		}
	}
	return nil, fmt.Errorf("%s repository %s: %w", a.kind, id, ErrNotFound)
}

// ListAuthors returns the author identities found in the uploaded catalog.
func (a *OfflineAdapter) ListAuthors(ctx context.Context, cred *Credential) ([]RemoteAuthor, error) {
	out := make([]RemoteAuthor, len(a.authors))
	copy(out, a.authors)
	return out, nil
}

func (a *OfflineAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	if repo.CloneURL == "" {
		return "", nil
	}
	if err := ValidateCloneURL(repo.CloneURL); err != nil {
		return "", err
	}
	return repo.CloneURL, nil
}
