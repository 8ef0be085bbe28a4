package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/ktrysmt/go-bitbucket"
	"golang.org/x/oauth2"
	oauth2bitbucket "golang.org/x/oauth2/bitbucket"
)

// BitbucketAdapter imports from Bitbucket Cloud. Mercurial repositories are
// reported as incompatible rather than dropped; Bitbucket still returns them
// for long-lived accounts even though new ones cannot be created.
type BitbucketAdapter struct {
	oauth oauth2.Config
}

func NewBitbucketAdapter(oauth OAuthConfig) *BitbucketAdapter {
	return &BitbucketAdapter{
		oauth: oauth2.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Endpoint:     oauth2bitbucket.Endpoint,
		},
	}
}

func (a *BitbucketAdapter) Kind() Kind                 { return KindBitbucket }
func (a *BitbucketAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindBitbucket) }

func (a *BitbucketAdapter) BeginAuthorization(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (a *BitbucketAdapter) CompleteAuthorization(ctx context.Context, code string) (*Credential, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("bitbucket code exchange: %w", ErrInvalidOrExpiredRequest)
	}
	cred := &Credential{Kind: KindBitbucket, AccessToken: token.AccessToken}

	profile, err := a.client(cred).User.Profile()
	if err != nil {
		return nil, translateBitbucketError(err)
	}
	cred.Username = profile.Username
	return cred, nil
}

func (a *BitbucketAdapter) client(cred *Credential) *bitbucket.Client {
	return bitbucket.NewOAuthbearerToken(cred.AccessToken)
}

func (a *BitbucketAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	// The client walks Bitbucket's paged API itself, so one call returns the
	// whole catalog and no cursor is handed back.
	res, err := a.client(cred).Repositories.ListForAccount(&bitbucket.RepositoriesOptions{
		Owner: cred.Username,
		Role:  "member",
	})
	if err != nil {
		return nil, translateBitbucketError(err)
	}

	out := &RepositoryPage{}
	for i := range res.Items {
		out.Repositories = append(out.Repositories, bitbucketRepository(&res.Items[i]))
	}
	return out, nil
}

func (a *BitbucketAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	owner, slug, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("bitbucket repository id %q: %w", id, ErrNotFound)
	}
	repo, err := a.client(cred).Repositories.Repository.Get(&bitbucket.RepositoryOptions{
		Owner:    owner,
		RepoSlug: slug,
	})
	if err != nil {
		return nil, translateBitbucketError(err)
	}
	r := bitbucketRepository(repo)
	return &r, nil
}

func (a *BitbucketAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, "x-token-auth", cred.AccessToken)
}

func bitbucketRepository(repo *bitbucket.Repository) RemoteRepository {
	owner, _, _ := strings.Cut(repo.Full_name, "/")
	r := RemoteRepository{
		ID:       repo.Full_name,
		FullName: repo.Full_name,
		Owner:    owner,
		CloneURL: fmt.Sprintf("https://bitbucket.org/%s.git", repo.Full_name),
		Private:  repo.Is_private,
	}
	if !strings.EqualFold(repo.Scm, "git") {
		r.Incompatible = true
		r.IncompatibleReason = fmt.Sprintf("unsupported version control system %q", repo.Scm)
	}
	return r
}

func translateBitbucketError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return fmt.Errorf("bitbucket: %w", ErrUnauthorized)
	case strings.Contains(msg, "404"):
		return fmt.Errorf("bitbucket: %w", ErrNotFound)
	}
	return translateTransport(KindBitbucket, err)
}
