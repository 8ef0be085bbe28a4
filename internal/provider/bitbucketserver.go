package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// BitbucketServerAdapter imports from a self-hosted Bitbucket Server (Stash)
// instance over its REST API with an HTTP access token.
type BitbucketServerAdapter struct {
	httpClient *http.Client
}

func NewBitbucketServerAdapter(httpClient *http.Client) *BitbucketServerAdapter {
	if httpClient == nil {
		httpClient = newRetryingClient()
	}
	return &BitbucketServerAdapter{httpClient: httpClient}
}

func (a *BitbucketServerAdapter) Kind() Kind { return KindBitbucketServer }
func (a *BitbucketServerAdapter) Capabilities() Capabilities {
	return CapabilitiesFor(KindBitbucketServer)
}

type bitbucketServerRepo struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	ScmID string `json:"scmId"`
	Project struct {
		Key string `json:"key"`
	} `json:"project"`
	Public bool `json:"public"`
	Links  struct {
		Clone []struct {
			Href string `json:"href"`
			Name string `json:"name"`
		} `json:"clone"`
	} `json:"links"`
}

type bitbucketServerPage struct {
	Values        []bitbucketServerRepo `json:"values"`
	IsLastPage    bool                  `json:"isLastPage"`
	NextPageStart int                   `json:"nextPageStart"`
}

func (a *BitbucketServerAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	start := 0
	if page.Cursor != "" {
		if n, err := strconv.Atoi(page.Cursor); err == nil {
			start = n
		}
	}
	limit := page.PerPage
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	endpoint := fmt.Sprintf("%s/rest/api/1.0/repos?permission=REPO_READ&start=%d&limit=%d",
		strings.TrimSuffix(cred.HostURL, "/"), start, limit)
	var body bitbucketServerPage
	if err := a.getJSON(ctx, cred, endpoint, &body); err != nil {
		return nil, err
	}

	out := &RepositoryPage{}
	for i := range body.Values {
		out.Repositories = append(out.Repositories, a.repository(cred, &body.Values[i]))
	}
	if !body.IsLastPage {
		out.NextCursor = strconv.Itoa(body.NextPageStart)
	}
	return out, nil
}

func (a *BitbucketServerAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	projectKey, slug, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("bitbucket server repository id %q: %w", id, ErrNotFound)
	}
	endpoint := fmt.Sprintf("%s/rest/api/1.0/projects/%s/repos/%s",
		strings.TrimSuffix(cred.HostURL, "/"), url.PathEscape(projectKey), url.PathEscape(slug))
	var body bitbucketServerRepo
	if err := a.getJSON(ctx, cred, endpoint, &body); err != nil {
		return nil, err
	}
	r := a.repository(cred, &body)
	return &r, nil
}

func (a *BitbucketServerAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, cred.Username, cred.AccessToken)
}

func (a *BitbucketServerAdapter) repository(cred *Credential, repo *bitbucketServerRepo) RemoteRepository {
	fullName := fmt.Sprintf("%s/%s", strings.ToLower(repo.Project.Key), repo.Slug)
	r := RemoteRepository{
		ID:       fullName,
		FullName: fullName,
		Owner:    strings.ToLower(repo.Project.Key),
		Private:  !repo.Public,
	}
	for _, link := range repo.Links.Clone {
		if link.Name == "http" || link.Name == "https" {
			r.CloneURL = link.Href
			break
		}
	}
	if !strings.EqualFold(repo.ScmID, "git") {
		r.Incompatible = true
		r.IncompatibleReason = fmt.Sprintf("unsupported version control system %q", repo.ScmID)
	}
	return r
}

func (a *BitbucketServerAdapter) getJSON(ctx context.Context, cred *Credential, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return translateTransport(KindBitbucketServer, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return translateTransport(KindBitbucketServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return translateStatus(KindBitbucketServer, resp.StatusCode, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bitbucket server: decoding response: %w", err)
	}
	return nil
}
