package provider

import (
	"context"
	"fmt"
	"strings"

	gogs "github.com/gogits/go-gogs-client"
)

// GogsAdapter imports from a self-hosted Gogs instance. The Gogs API exposes
// no pagination on the my-repos listing, so the whole catalog comes back in
// one page.
type GogsAdapter struct{}

func NewGogsAdapter() *GogsAdapter { return &GogsAdapter{} }

func (a *GogsAdapter) Kind() Kind                 { return KindGogs }
func (a *GogsAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindGogs) }

func (a *GogsAdapter) client(cred *Credential) *gogs.Client {
	return gogs.NewClient(trimHost(cred.HostURL), cred.AccessToken)
}

func (a *GogsAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	repos, err := a.client(cred).ListMyRepos()
	if err != nil {
		return nil, translateGogsError(err)
	}

	out := &RepositoryPage{}
	for _, r := range repos {
		out.Repositories = append(out.Repositories, gogsRepository(r))
	}
	return out, nil
}

func (a *GogsAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	owner, name, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("gogs repository id %q: %w", id, ErrNotFound)
	}
	repo, err := a.client(cred).GetRepo(owner, name)
	if err != nil {
		return nil, translateGogsError(err)
	}
	r := gogsRepository(repo)
	return &r, nil
}

func (a *GogsAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, "oauth2", cred.AccessToken)
}

func gogsRepository(repo *gogs.Repository) RemoteRepository {
	owner := ""
	if repo.Owner != nil {
		owner = repo.Owner.UserName
	}
	return RemoteRepository{
		// Gogs exposes a numeric id but no lookup by it; the full name is the
		// stable identifier on both sides.
		ID:       repo.FullName,
		FullName: repo.FullName,
		Owner:    owner,
		CloneURL: repo.CloneURL,
		Private:  repo.Private,
	}
}

func translateGogsError(err error) error {
	switch {
	case err == nil:
		return nil
	case containsStatus(err, "401"), containsStatus(err, "403"),
		strings.Contains(err.Error(), "token"):
		return fmt.Errorf("gogs: %w", ErrUnauthorized)
	case containsStatus(err, "404"):
		return fmt.Errorf("gogs: %w", ErrNotFound)
	}
	return translateTransport(KindGogs, err)
}
