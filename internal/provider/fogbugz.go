package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// FogBugzAdapter imports projects from a FogBugz (Manuscript) instance via
// its XML API. FogBugz projects carry no git repository, so the catalog is
// compatible but produces nothing for the copy worker; the interesting part
// is the author identity mapping required before listing proceeds.
type FogBugzAdapter struct {
	httpClient *http.Client
}

func NewFogBugzAdapter(httpClient *http.Client) *FogBugzAdapter {
	if httpClient == nil {
		httpClient = newRetryingClient()
	}
	return &FogBugzAdapter{httpClient: httpClient}
}

func (a *FogBugzAdapter) Kind() Kind                 { return KindFogBugz }
func (a *FogBugzAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindFogBugz) }

type fogbugzProjectsResponse struct {
	XMLName  xml.Name `xml:"response"`
	Error    string   `xml:"error"`
	Projects []struct {
		ID    string `xml:"ixProject"`
		Name  string `xml:"sProject"`
		Owner string `xml:"sPersonOwner"`
	} `xml:"projects>project"`
}

type fogbugzPeopleResponse struct {
	XMLName xml.Name `xml:"response"`
	Error   string   `xml:"error"`
	People  []struct {
		ID    string `xml:"ixPerson"`
		Name  string `xml:"sFullName"`
		Email string `xml:"sEmail"`
	} `xml:"people>person"`
}

func (a *FogBugzAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	var body fogbugzProjectsResponse
	if err := a.call(ctx, cred, "listProjects", nil, &body); err != nil {
		return nil, err
	}

	out := &RepositoryPage{}
	for _, p := range body.Projects {
		out.Repositories = append(out.Repositories, RemoteRepository{
			ID:       p.ID,
			FullName: fogbugzFullName(p.Owner, p.Name),
			Owner:    p.Owner,
		})
	}
	return out, nil
}

func (a *FogBugzAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	var body fogbugzProjectsResponse
	if err := a.call(ctx, cred, "listProjects", url.Values{"ixProject": {id}}, &body); err != nil {
		return nil, err
	}
	for _, p := range body.Projects {
		if p.ID == id {
			return &RemoteRepository{
				ID:       p.ID,
				FullName: fogbugzFullName(p.Owner, p.Name),
				Owner:    p.Owner,
			}, nil
		}
	}
	return nil, fmt.Errorf("fogbugz project %s: %w", id, ErrNotFound)
}

// AuthenticatedCloneURL returns nothing: FogBugz has no repository content to
// copy, so imports finish at creation.
func (a *FogBugzAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return "", nil
}

// ListAuthors returns the instance's people for the user-map step, with
// addresses masked for display.
func (a *FogBugzAdapter) ListAuthors(ctx context.Context, cred *Credential) ([]RemoteAuthor, error) {
	var body fogbugzPeopleResponse
	if err := a.call(ctx, cred, "listPeople", nil, &body); err != nil {
		return nil, err
	}
	authors := make([]RemoteAuthor, 0, len(body.People))
	for _, p := range body.People {
		authors = append(authors, RemoteAuthor{
			ID:          p.ID,
			Name:        p.Name,
			MaskedEmail: maskEmail(p.Email),
		})
	}
	return authors, nil
}

func (a *FogBugzAdapter) call(ctx context.Context, cred *Credential, cmd string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("cmd", cmd)
	params.Set("token", cred.AccessToken)

	endpoint := fmt.Sprintf("%s/api.asp?%s", trimHost(cred.HostURL), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return translateTransport(KindFogBugz, err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return translateTransport(KindFogBugz, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return translateStatus(KindFogBugz, resp.StatusCode, nil)
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fogbugz: decoding response: %w", err)
	}
	// FogBugz reports auth failures inside a 200 response.
	if msg := fogbugzError(out); msg != "" {
		if strings.Contains(strings.ToLower(msg), "token") || strings.Contains(strings.ToLower(msg), "log on") {
			return fmt.Errorf("fogbugz: %s: %w", msg, ErrUnauthorized)
		}
		return fmt.Errorf("fogbugz: %s: %w", msg, ErrNetwork)
	}
	return nil
}

func fogbugzError(out interface{}) string {
	switch v := out.(type) {
	case *fogbugzProjectsResponse:
		return v.Error
	case *fogbugzPeopleResponse:
		return v.Error
	}
	return ""
}

func fogbugzFullName(owner, name string) string {
	if owner == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", owner, name)
}
