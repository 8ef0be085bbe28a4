package provider

import (
	"fmt"
	"net/http"
)

// OAuthConfig holds the application registration for a redirect-flow kind.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Options parameterizes adapter construction with the per-session and
// per-deployment pieces that vary: the configured host for self-hosted
// providers, the OAuth registration, uploaded catalogs for offline kinds, and
// an HTTP client override for tests.
type Options struct {
	Host       string
	OAuth      OAuthConfig
	Seeds      []RemoteRepository
	Authors    []RemoteAuthor
	HTTPClient *http.Client
}

// New builds the adapter for kind.
func New(kind Kind, opts Options) (Adapter, error) {
	switch kind {
	case KindGitHub:
		return NewGitHubAdapter(opts.Host, opts.OAuth), nil
	case KindGitLab:
		return NewGitLabAdapter(opts.Host, opts.OAuth), nil
	case KindBitbucket:
		return NewBitbucketAdapter(opts.OAuth), nil
	case KindBitbucketServer:
		return NewBitbucketServerAdapter(opts.HTTPClient), nil
	case KindGitea:
		return NewGiteaAdapter(), nil
	case KindGogs:
		return NewGogsAdapter(), nil
	case KindAzureDevOps:
		return NewAzureDevOpsAdapter(), nil
	case KindFogBugz:
		return NewFogBugzAdapter(opts.HTTPClient), nil
	case KindGitorious:
		return NewGitoriousAdapter(opts.Host, opts.HTTPClient), nil
	case KindGoogleCode, KindManifest:
		return NewOfflineAdapter(kind, opts.Seeds, opts.Authors), nil
	case KindPhabricator:
		return NewPhabricatorAdapter(opts.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}
