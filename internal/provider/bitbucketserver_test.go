package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBitbucketServerListRepositories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/rest/api/1.0/repos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"values": [
				{"id": 1, "slug": "backend", "scmId": "git", "public": false,
				 "project": {"key": "CORE"},
				 "links": {"clone": [{"href": "https://stash.example.com/scm/core/backend.git", "name": "http"}]}},
				{"id": 2, "slug": "legacy", "scmId": "hg", "public": true,
				 "project": {"key": "CORE"}, "links": {"clone": []}}
			],
			"isLastPage": false,
			"nextPageStart": 2
		}`))
	}))
	defer server.Close()

	adapter := NewBitbucketServerAdapter(server.Client())
	cred := &Credential{Kind: KindBitbucketServer, AccessToken: "test-token", HostURL: server.URL}

	page, err := adapter.ListRepositories(context.Background(), cred, Page{})
	if err != nil {
		t.Fatalf("ListRepositories() error: %v", err)
	}
	if len(page.Repositories) != 2 {
		t.Fatalf("got %d repositories, want 2", len(page.Repositories))
	}
	if page.Repositories[0].FullName != "core/backend" {
		t.Errorf("FullName = %q, want core/backend", page.Repositories[0].FullName)
	}
	if page.Repositories[0].CloneURL != "https://stash.example.com/scm/core/backend.git" {
		t.Errorf("CloneURL = %q", page.Repositories[0].CloneURL)
	}
	if !page.Repositories[0].Private {
		t.Error("non-public repository not marked private")
	}
	if !page.Repositories[1].Incompatible {
		t.Error("mercurial repository not marked incompatible")
	}
	if page.NextCursor != "2" {
		t.Errorf("NextCursor = %q, want 2", page.NextCursor)
	}
}

func TestBitbucketServerUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewBitbucketServerAdapter(server.Client())
	cred := &Credential{Kind: KindBitbucketServer, AccessToken: "stale", HostURL: server.URL}

	_, err := adapter.ListRepositories(context.Background(), cred, Page{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ListRepositories() = %v, want ErrUnauthorized", err)
	}
}

func TestBitbucketServerFetchRepositoryNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewBitbucketServerAdapter(server.Client())
	cred := &Credential{Kind: KindBitbucketServer, AccessToken: "tok", HostURL: server.URL}

	_, err := adapter.FetchRepository(context.Background(), cred, "core/gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchRepository() = %v, want ErrNotFound", err)
	}
}

func TestBitbucketServerNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	adapter := NewBitbucketServerAdapter(&http.Client{})
	cred := &Credential{Kind: KindBitbucketServer, AccessToken: "tok", HostURL: server.URL}

	_, err := adapter.ListRepositories(context.Background(), cred, Page{})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("ListRepositories() = %v, want ErrNetwork", err)
	}
}
