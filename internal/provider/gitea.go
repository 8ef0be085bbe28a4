package provider

import (
	"context"
	"fmt"
	"strconv"

	"code.gitea.io/sdk/gitea"
)

// GiteaAdapter imports from a self-hosted Gitea instance. Gitea never goes
// through the redirect flow; a personal access token plus host URL is the
// only supported authentication, which CapabilitiesFor encodes.
type GiteaAdapter struct{}

func NewGiteaAdapter() *GiteaAdapter { return &GiteaAdapter{} }

func (a *GiteaAdapter) Kind() Kind                 { return KindGitea }
func (a *GiteaAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindGitea) }

func (a *GiteaAdapter) client(ctx context.Context, cred *Credential) (*gitea.Client, error) {
	client, err := gitea.NewClient(trimHost(cred.HostURL), gitea.SetToken(cred.AccessToken), gitea.SetContext(ctx))
	if err != nil {
		return nil, translateTransport(KindGitea, err)
	}
	return client, nil
}

func (a *GiteaAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	client, err := a.client(ctx, cred)
	if err != nil {
		return nil, err
	}

	pageNum := 1
	if page.Cursor != "" {
		if n, err := strconv.Atoi(page.Cursor); err == nil {
			pageNum = n
		}
	}
	perPage := page.PerPage
	if perPage <= 0 || perPage > 50 {
		perPage = 50
	}

	repos, resp, err := client.ListMyRepos(gitea.ListReposOptions{
		ListOptions: gitea.ListOptions{Page: pageNum, PageSize: perPage},
	})
	if err != nil {
		return nil, translateGiteaError(resp, err)
	}

	out := &RepositoryPage{}
	for _, r := range repos {
		out.Repositories = append(out.Repositories, giteaRepository(r))
	}
	if len(repos) == perPage {
		out.NextCursor = strconv.Itoa(pageNum + 1)
	}
	return out, nil
}

func (a *GiteaAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	client, err := a.client(ctx, cred)
	if err != nil {
		return nil, err
	}
	repoID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gitea repository id %q: %w", id, ErrNotFound)
	}
	repo, resp, err := client.GetRepoByID(repoID)
	if err != nil {
		return nil, translateGiteaError(resp, err)
	}
	r := giteaRepository(repo)
	return &r, nil
}

func (a *GiteaAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, "oauth2", cred.AccessToken)
}

func giteaRepository(repo *gitea.Repository) RemoteRepository {
	owner := ""
	if repo.Owner != nil {
		owner = repo.Owner.UserName
	}
	return RemoteRepository{
		ID:       strconv.FormatInt(repo.ID, 10),
		FullName: repo.FullName,
		Owner:    owner,
		CloneURL: repo.CloneURL,
		Private:  repo.Private,
	}
}

func translateGiteaError(resp *gitea.Response, err error) error {
	if resp != nil && resp.Response != nil {
		return translateStatus(KindGitea, resp.StatusCode, err)
	}
	return translateTransport(KindGitea, err)
}
