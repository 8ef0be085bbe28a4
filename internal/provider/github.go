package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"
)

// GitHubAdapter imports from GitHub.com or GitHub Enterprise Server. Listing
// goes through the GraphQL API so the page cursor survives restarts; single
// fetches use the REST API, which resolves numeric ids directly.
type GitHubAdapter struct {
	host  string
	oauth oauth2.Config
}

// NewGitHubAdapter creates a GitHub adapter. An empty host means GitHub.com.
func NewGitHubAdapter(host string, oauth OAuthConfig) *GitHubAdapter {
	return &GitHubAdapter{
		host: host,
		oauth: oauth2.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Endpoint:     oauth2github.Endpoint,
			Scopes:       []string{"repo", "read:user"},
		},
	}
}

func (a *GitHubAdapter) Kind() Kind                 { return KindGitHub }
func (a *GitHubAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindGitHub) }

func (a *GitHubAdapter) BeginAuthorization(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (a *GitHubAdapter) CompleteAuthorization(ctx context.Context, code string) (*Credential, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github code exchange: %w", ErrInvalidOrExpiredRequest)
	}
	cred := &Credential{Kind: KindGitHub, AccessToken: token.AccessToken, HostURL: a.host}

	// Resolve the login now; the namespace resolver needs it to recognize the
	// user's own repositories.
	client, err := a.restClient(ctx, cred)
	if err != nil {
		return nil, err
	}
	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, translateStatus(KindGitHub, status, err)
	}
	cred.Username = user.GetLogin()
	return cred, nil
}

func (a *GitHubAdapter) restClient(ctx context.Context, cred *Credential) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	if a.host != "" {
		var err error
		client, err = client.WithEnterpriseURLs(a.host, a.host)
		if err != nil {
			return nil, fmt.Errorf("invalid enterprise URL: %w", err)
		}
	}
	return client, nil
}

func (a *GitHubAdapter) graphqlClient(ctx context.Context, cred *Credential) *githubv4.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken})
	tc := oauth2.NewClient(ctx, ts)
	if a.host != "" {
		return githubv4.NewEnterpriseClient(a.host+"/api/graphql", tc)
	}
	return githubv4.NewClient(tc)
}

func (a *GitHubAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	perPage := page.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}

	var q struct {
		Viewer struct {
			Repositories struct {
				Nodes []struct {
					DatabaseID    int    `graphql:"databaseId"`
					NameWithOwner string `graphql:"nameWithOwner"`
					IsPrivate     bool   `graphql:"isPrivate"`
					URL           string `graphql:"url"`
					Owner         struct {
						Login string `graphql:"login"`
					} `graphql:"owner"`
				} `graphql:"nodes"`
				PageInfo struct {
					EndCursor   githubv4.String
					HasNextPage bool
				} `graphql:"pageInfo"`
			} `graphql:"repositories(first: $perPage, after: $cursor, ownerAffiliations: $affiliations)"`
		} `graphql:"viewer"`
	}

	variables := map[string]interface{}{
		"perPage": githubv4.Int(perPage),
		"cursor":  (*githubv4.String)(nil),
		"affiliations": []githubv4.RepositoryAffiliation{
			githubv4.RepositoryAffiliationOwner,
			githubv4.RepositoryAffiliationCollaborator,
			githubv4.RepositoryAffiliationOrganizationMember,
		},
	}
	if page.Cursor != "" {
		variables["cursor"] = githubv4.NewString(githubv4.String(page.Cursor))
	}

	if err := a.graphqlClient(ctx, cred).Query(ctx, &q, variables); err != nil {
		return nil, translateGitHubError(err)
	}

	out := &RepositoryPage{}
	for _, node := range q.Viewer.Repositories.Nodes {
		out.Repositories = append(out.Repositories, RemoteRepository{
			ID:       strconv.Itoa(node.DatabaseID),
			FullName: node.NameWithOwner,
			Owner:    node.Owner.Login,
			CloneURL: node.URL + ".git",
			Private:  node.IsPrivate,
		})
	}
	if q.Viewer.Repositories.PageInfo.HasNextPage {
		out.NextCursor = string(q.Viewer.Repositories.PageInfo.EndCursor)
	}
	return out, nil
}

func (a *GitHubAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	repoID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("github repository id %q: %w", id, ErrNotFound)
	}
	client, err := a.restClient(ctx, cred)
	if err != nil {
		return nil, err
	}
	repo, resp, err := client.Repositories.GetByID(ctx, repoID)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, translateStatus(KindGitHub, status, err)
	}
	return &RemoteRepository{
		ID:       strconv.FormatInt(repo.GetID(), 10),
		FullName: repo.GetFullName(),
		Owner:    repo.GetOwner().GetLogin(),
		CloneURL: repo.GetCloneURL(),
		Private:  repo.GetPrivate(),
	}, nil
}

func (a *GitHubAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, cred.AccessToken, "x-oauth-basic")
}

// translateGitHubError handles both REST (*github.ErrorResponse) and GraphQL
// transport failures, which surface the status only in the error text.
func translateGitHubError(err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return translateStatus(KindGitHub, errResp.Response.StatusCode, err)
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("github rate limited: %w", ErrNetwork)
	}
	if err != nil && (containsStatus(err, "401") || containsStatus(err, "403")) {
		return fmt.Errorf("github: %w", ErrUnauthorized)
	}
	return translateTransport(KindGitHub, err)
}
