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

// PhabricatorAdapter imports from a Phabricator instance via the Conduit API.
// Diffusion hosts git, mercurial and subversion repositories; only the git
// ones are importable.
type PhabricatorAdapter struct {
	httpClient *http.Client
}

func NewPhabricatorAdapter(httpClient *http.Client) *PhabricatorAdapter {
	if httpClient == nil {
		httpClient = newRetryingClient()
	}
	return &PhabricatorAdapter{httpClient: httpClient}
}

func (a *PhabricatorAdapter) Kind() Kind                 { return KindPhabricator }
func (a *PhabricatorAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindPhabricator) }

type conduitRepositorySearch struct {
	Result struct {
		Data []struct {
			ID     int `json:"id"`
			Fields struct {
				Name      string `json:"name"`
				ShortName string `json:"shortName"`
				VCS       string `json:"vcs"`
			} `json:"fields"`
		} `json:"data"`
		Cursor struct {
			After string `json:"after"`
		} `json:"cursor"`
	} `json:"result"`
	ErrorCode string `json:"error_code"`
	ErrorInfo string `json:"error_info"`
}

func (a *PhabricatorAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	params := url.Values{}
	if page.Cursor != "" {
		params.Set("after", page.Cursor)
	}
	var body conduitRepositorySearch
	if err := a.call(ctx, cred, "diffusion.repository.search", params, &body); err != nil {
		return nil, err
	}

	out := &RepositoryPage{}
	for _, d := range body.Result.Data {
		out.Repositories = append(out.Repositories, a.repository(cred, d.ID, d.Fields.Name, d.Fields.ShortName, d.Fields.VCS))
	}
	out.NextCursor = body.Result.Cursor.After
	return out, nil
}

func (a *PhabricatorAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	params := url.Values{"constraints[ids][0]": {id}}
	var body conduitRepositorySearch
	if err := a.call(ctx, cred, "diffusion.repository.search", params, &body); err != nil {
		return nil, err
	}
	if len(body.Result.Data) == 0 {
		return nil, fmt.Errorf("phabricator repository %s: %w", id, ErrNotFound)
	}
	d := body.Result.Data[0]
	r := a.repository(cred, d.ID, d.Fields.Name, d.Fields.ShortName, d.Fields.VCS)
	return &r, nil
}

func (a *PhabricatorAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, cred.Username, cred.AccessToken)
}

func (a *PhabricatorAdapter) repository(cred *Credential, id int, _, shortName, vcs string) RemoteRepository {
	slug := shortName
	if slug == "" {
		slug = fmt.Sprintf("R%d", id)
	}
	r := RemoteRepository{
		ID:       strconv.Itoa(id),
		FullName: slug,
		CloneURL: fmt.Sprintf("%s/source/%s.git", trimHost(cred.HostURL), slug),
		Private:  true,
	}
	if !strings.EqualFold(vcs, "git") {
		r.Incompatible = true
		r.IncompatibleReason = fmt.Sprintf("unsupported version control system %q", vcs)
	}
	return r
}

func (a *PhabricatorAdapter) call(ctx context.Context, cred *Credential, method string, params url.Values, out *conduitRepositorySearch) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api.token", cred.AccessToken)

	endpoint := fmt.Sprintf("%s/api/%s", trimHost(cred.HostURL), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return translateTransport(KindPhabricator, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return translateTransport(KindPhabricator, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return translateStatus(KindPhabricator, resp.StatusCode, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("phabricator: decoding response: %w", err)
	}
	// Conduit reports failures inside a 200 response.
	if out.ErrorCode != "" {
		if out.ErrorCode == "ERR-INVALID-AUTH" || out.ErrorCode == "ERR-INVALID-TOKEN" {
			return fmt.Errorf("phabricator: %s: %w", out.ErrorInfo, ErrUnauthorized)
		}
		return fmt.Errorf("phabricator: %s %s: %w", out.ErrorCode, out.ErrorInfo, ErrNetwork)
	}
	return nil
}
