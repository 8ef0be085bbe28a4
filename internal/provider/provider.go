// Package provider implements the uniform client contract over the remote
// hosting services repositories are imported from. Each adapter translates its
// service's native API and errors into the shared types here; nothing above an
// adapter sees a provider-native response or transport error.
package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies a remote hosting service.
type Kind string

const (
	KindGitHub          Kind = "github"
	KindGitLab          Kind = "gitlab"
	KindBitbucket       Kind = "bitbucket"
	KindBitbucketServer Kind = "bitbucket_server"
	KindGitea           Kind = "gitea"
	KindGogs            Kind = "gogs"
	KindAzureDevOps     Kind = "azure_devops"
	KindFogBugz         Kind = "fogbugz"
	KindGitorious       Kind = "gitorious"
	KindGoogleCode      Kind = "google_code"
	KindManifest        Kind = "manifest"
	KindPhabricator     Kind = "phabricator"
)

// Kinds lists every supported provider kind.
func Kinds() []Kind {
	return []Kind{
		KindGitHub, KindGitLab, KindBitbucket, KindBitbucketServer,
		KindGitea, KindGogs, KindAzureDevOps, KindFogBugz,
		KindGitorious, KindGoogleCode, KindManifest, KindPhabricator,
	}
}

// ParseKind validates a provider name from a URL path.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Capabilities describes what a provider kind supports. The flags replace
// per-provider special casing in the callers: a kind either has a flag or it
// does not, decided here once.
type Capabilities struct {
	// SupportsOAuth enables the redirect/callback handshake. Kinds without it
	// authenticate with a personal access token, never the redirect flow.
	SupportsOAuth bool
	// RequiresHost means both token and host URL must be configured before any
	// listing call is attempted.
	RequiresHost bool
	// RequiresUserMap means an author-identity mapping must exist in the
	// session before status/listing can proceed.
	RequiresUserMap bool
	// Offline means the repository catalog comes from an uploaded file rather
	// than a network listing.
	Offline bool
}

// CapabilitiesFor returns the capability record for a kind.
func CapabilitiesFor(kind Kind) Capabilities {
	switch kind {
	case KindGitHub, KindGitLab, KindBitbucket:
		return Capabilities{SupportsOAuth: true}
	case KindBitbucketServer, KindGitea, KindGogs, KindAzureDevOps, KindPhabricator:
		return Capabilities{RequiresHost: true}
	case KindFogBugz:
		return Capabilities{RequiresHost: true, RequiresUserMap: true}
	case KindGoogleCode:
		return Capabilities{Offline: true, RequiresUserMap: true}
	case KindManifest:
		return Capabilities{Offline: true}
	case KindGitorious:
		return Capabilities{}
	default:
		return Capabilities{}
	}
}

// Credential is session-scoped authentication material for one provider. It is
// held in memory for the life of a browser session and never persisted.
type Credential struct {
	Kind        Kind   `json:"-"`
	AccessToken string `json:"-"`
	// TokenSecret carries the secondary secret of two-part schemes, e.g. a
	// FogBugz login password before token exchange.
	TokenSecret string `json:"-"`
	HostURL     string `json:"host_url,omitempty"`
	Username    string `json:"username,omitempty"`
}

// Configured reports whether the credential satisfies the kind's capability
// requirements. Real validation is deferred to the first listing call.
func (c *Credential) Configured(caps Capabilities) bool {
	if c == nil {
		return false
	}
	if caps.Offline {
		return true
	}
	if c.AccessToken == "" {
		return false
	}
	if caps.RequiresHost && c.HostURL == "" {
		return false
	}
	return true
}

// RemoteRepository is one repository as reported by a provider. Fetched fresh
// on each status view, never cached beyond the request.
type RemoteRepository struct {
	// ID is the provider-native identifier, numeric or composite.
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Owner    string `json:"owner,omitempty"`
	CloneURL string `json:"-"`
	Private  bool   `json:"private,omitempty"`
	// Incompatible marks repository types the importer cannot handle, e.g. a
	// non-git VCS. Surfaced to the user separately, never silently dropped.
	Incompatible       bool   `json:"-"`
	IncompatibleReason string `json:"incompatible_reason,omitempty"`
}

// CanonicalKey is the string recorded as a project's import_source. Listing
// and creation must agree on it exactly or repositories are re-offered
// forever, so both go through this one function.
func (r *RemoteRepository) CanonicalKey() string {
	return r.FullName
}

// RemoteAuthor is one remote identity offered for the user-map step. The
// email is masked before it ever leaves the adapter.
type RemoteAuthor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MaskedEmail string `json:"masked_email,omitempty"`
}

// Page is a pagination cursor for ListRepositories. A zero Page starts from
// the beginning; passing back NextCursor resumes.
type Page struct {
	Cursor  string
	PerPage int
}

// RepositoryPage is one page of a listing. An empty NextCursor means the
// sequence is exhausted.
type RepositoryPage struct {
	Repositories []RemoteRepository
	NextCursor   string
}

// Adapter is the uniform contract every provider implements.
type Adapter interface {
	Kind() Kind
	Capabilities() Capabilities

	// ListRepositories returns one page of repositories visible to the
	// credential. Returns ErrUnauthorized when the provider rejects the
	// credential, distinctly from ErrNetwork, so the caller can choose
	// between re-authentication and a retry-later message.
	ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error)

	// FetchRepository returns a single repository by its provider-native id.
	// Returns ErrNotFound when the id no longer exists or access was revoked
	// between listing and selection.
	FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error)

	// AuthenticatedCloneURL embeds the credential into the repository's clone
	// URL for the copy worker. Offline kinds may return an empty URL.
	AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error)
}

// AuthorLister is implemented by kinds that can enumerate remote author
// identities for the user-map step.
type AuthorLister interface {
	ListAuthors(ctx context.Context, cred *Credential) ([]RemoteAuthor, error)
}

// OAuthFlow is the two-phase handshake implemented by kinds whose
// Capabilities report SupportsOAuth.
type OAuthFlow interface {
	// BeginAuthorization returns the provider URL to redirect the user to.
	// The state nonce is round-tripped and verified by the caller.
	BeginAuthorization(state string) string

	// CompleteAuthorization exchanges the callback code for a credential.
	CompleteAuthorization(ctx context.Context, code string) (*Credential, error)
}

// ValidateCloneURL rejects clone URLs that are malformed or could smuggle
// shell metacharacters into the git command line.
func ValidateCloneURL(cloneURL string) error {
	if cloneURL == "" {
		return fmt.Errorf("clone URL cannot be empty")
	}
	parsed, err := url.Parse(cloneURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "https" && scheme != "http" && scheme != "ssh" && scheme != "git" {
		return fmt.Errorf("unsupported URL scheme: %s", scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	for _, c := range []string{"\n", "\r", "\x00", "`", "$", ";", "|", "&", "<", ">"} {
		if strings.Contains(cloneURL, c) {
			return fmt.Errorf("URL contains potentially dangerous character")
		}
	}
	return nil
}

// embedUserInfo inserts credentials into an https clone URL.
func embedUserInfo(cloneURL, user, secret string) (string, error) {
	if err := ValidateCloneURL(cloneURL); err != nil {
		return "", err
	}
	parsed, err := url.Parse(cloneURL)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return cloneURL, nil
	}
	parsed.User = url.UserPassword(user, secret)
	return parsed.String(), nil
}
