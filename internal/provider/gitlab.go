package provider

import (
	"context"
	"fmt"
	"strconv"

	gitlab "github.com/xanzy/go-gitlab"
	"golang.org/x/oauth2"
	oauth2gitlab "golang.org/x/oauth2/gitlab"
)

// GitLabAdapter imports from GitLab.com or a self-hosted GitLab instance.
type GitLabAdapter struct {
	host  string
	oauth oauth2.Config
}

// NewGitLabAdapter creates a GitLab adapter. An empty host means GitLab.com.
func NewGitLabAdapter(host string, oauth OAuthConfig) *GitLabAdapter {
	endpoint := oauth2gitlab.Endpoint
	if host != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  host + "/oauth/authorize",
			TokenURL: host + "/oauth/token",
		}
	}
	return &GitLabAdapter{
		host: host,
		oauth: oauth2.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"read_user", "api"},
		},
	}
}

func (a *GitLabAdapter) Kind() Kind                 { return KindGitLab }
func (a *GitLabAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindGitLab) }

func (a *GitLabAdapter) BeginAuthorization(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (a *GitLabAdapter) CompleteAuthorization(ctx context.Context, code string) (*Credential, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("gitlab code exchange: %w", ErrInvalidOrExpiredRequest)
	}
	cred := &Credential{Kind: KindGitLab, AccessToken: token.AccessToken, HostURL: a.host}

	client, err := a.client(cred)
	if err != nil {
		return nil, err
	}
	user, resp, err := client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return nil, translateGitLabError(resp, err)
	}
	cred.Username = user.Username
	return cred, nil
}

func (a *GitLabAdapter) client(cred *Credential) (*gitlab.Client, error) {
	opts := []gitlab.ClientOptionFunc{}
	host := a.host
	if cred.HostURL != "" {
		host = cred.HostURL
	}
	if host != "" {
		opts = append(opts, gitlab.WithBaseURL(host))
	}
	client, err := gitlab.NewOAuthClient(cred.AccessToken, opts...)
	if err != nil {
		return nil, translateTransport(KindGitLab, err)
	}
	return client, nil
}

func (a *GitLabAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	client, err := a.client(cred)
	if err != nil {
		return nil, err
	}

	pageNum := 1
	if page.Cursor != "" {
		pageNum, err = strconv.Atoi(page.Cursor)
		if err != nil {
			pageNum = 1
		}
	}
	perPage := page.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}

	projects, resp, err := client.Projects.ListProjects(&gitlab.ListProjectsOptions{
		ListOptions: gitlab.ListOptions{Page: pageNum, PerPage: perPage},
		Membership:  gitlab.Ptr(true),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, translateGitLabError(resp, err)
	}

	out := &RepositoryPage{}
	for _, p := range projects {
		out.Repositories = append(out.Repositories, RemoteRepository{
			ID:       strconv.Itoa(p.ID),
			FullName: p.PathWithNamespace,
			Owner:    ownerPath(p),
			CloneURL: p.HTTPURLToRepo,
			Private:  p.Visibility == gitlab.PrivateVisibility,
		})
	}
	if resp != nil && resp.NextPage > 0 {
		out.NextCursor = strconv.Itoa(resp.NextPage)
	}
	return out, nil
}

func (a *GitLabAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	client, err := a.client(cred)
	if err != nil {
		return nil, err
	}
	projectID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("gitlab project id %q: %w", id, ErrNotFound)
	}
	p, resp, err := client.Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, translateGitLabError(resp, err)
	}
	return &RemoteRepository{
		ID:       strconv.Itoa(p.ID),
		FullName: p.PathWithNamespace,
		Owner:    ownerPath(p),
		CloneURL: p.HTTPURLToRepo,
		Private:  p.Visibility == gitlab.PrivateVisibility,
	}, nil
}

func (a *GitLabAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, "oauth2", cred.AccessToken)
}

func ownerPath(p *gitlab.Project) string {
	if p.Namespace != nil {
		return p.Namespace.Path
	}
	return ""
}

func translateGitLabError(resp *gitlab.Response, err error) error {
	if resp != nil {
		return translateStatus(KindGitLab, resp.StatusCode, err)
	}
	return translateTransport(KindGitLab, err)
}
