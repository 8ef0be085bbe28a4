package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const gitoriousDefaultHost = "https://gitorious.org"

// GitoriousAdapter lists public repositories from a Gitorious instance. The
// listing endpoint is unauthenticated, so the adapter works without any
// credential at all.
type GitoriousAdapter struct {
	host       string
	httpClient *http.Client
}

func NewGitoriousAdapter(host string, httpClient *http.Client) *GitoriousAdapter {
	if host == "" {
		host = gitoriousDefaultHost
	}
	if httpClient == nil {
		httpClient = newRetryingClient()
	}
	return &GitoriousAdapter{host: trimHost(host), httpClient: httpClient}
}

func (a *GitoriousAdapter) Kind() Kind                 { return KindGitorious }
func (a *GitoriousAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindGitorious) }

type gitoriousListing struct {
	Repositories []struct {
		ID           int    `json:"id"`
		FullPath     string `json:"full_repository_path"`
		Owner        string `json:"owner"`
		CloneURL     string `json:"clone_url"`
	} `json:"repositories"`
	NextPage int `json:"next_page"`
}

func (a *GitoriousAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	pageNum := 1
	if page.Cursor != "" {
		if n, err := strconv.Atoi(page.Cursor); err == nil {
			pageNum = n
		}
	}

	endpoint := fmt.Sprintf("%s/search.json?%s", a.host, url.Values{
		"page": {strconv.Itoa(pageNum)},
	}.Encode())
	var body gitoriousListing
	if err := a.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	out := &RepositoryPage{}
	for _, r := range body.Repositories {
		out.Repositories = append(out.Repositories, RemoteRepository{
			ID:       strconv.Itoa(r.ID),
			FullName: r.FullPath,
			Owner:    r.Owner,
			CloneURL: r.CloneURL,
		})
	}
	if body.NextPage > 0 {
		out.NextCursor = strconv.Itoa(body.NextPage)
	}
	return out, nil
}

func (a *GitoriousAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	// No single-repository endpoint; walk the listing until the id shows up.
	page := Page{}
	for {
		listed, err := a.ListRepositories(ctx, cred, page)
		if err != nil {
			return nil, err
		}
		for i := range listed.Repositories {
			if listed.Repositories[i].ID == id {
				return &listed.Repositories[i], nil
			}
		}
		if listed.NextCursor == "" {
			return nil, fmt.Errorf("gitorious repository %s: %w", id, ErrNotFound)
		}
		page.Cursor = listed.NextCursor
	}
}

func (a *GitoriousAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	// Public repositories clone anonymously.
	if err := ValidateCloneURL(repo.CloneURL); err != nil {
		return "", err
	}
	return repo.CloneURL, nil
}

func (a *GitoriousAdapter) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return translateTransport(KindGitorious, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return translateTransport(KindGitorious, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return translateStatus(KindGitorious, resp.StatusCode, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gitorious: decoding response: %w", err)
	}
	return nil
}
