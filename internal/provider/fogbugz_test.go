package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fogbugzServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "valid" {
			_, _ = w.Write([]byte(`<response><error code="3">Not logged on</error></response>`))
			return
		}
		switch r.URL.Query().Get("cmd") {
		case "listProjects":
			_, _ = w.Write([]byte(`<response><projects>
				<project><ixProject>21</ixProject><sProject>Widgets</sProject><sPersonOwner>mary</sPersonOwner></project>
				<project><ixProject>22</ixProject><sProject>Gadgets</sProject><sPersonOwner>mary</sPersonOwner></project>
			</projects></response>`))
		case "listPeople":
			_, _ = w.Write([]byte(`<response><people>
				<person><ixPerson>2</ixPerson><sFullName>Mary Major</sFullName><sEmail>mary@example.com</sEmail></person>
			</people></response>`))
		default:
			t.Errorf("unexpected cmd %q", r.URL.Query().Get("cmd"))
		}
	}))
}

func TestFogBugzListRepositories(t *testing.T) {
	server := fogbugzServer(t)
	defer server.Close()

	adapter := NewFogBugzAdapter(server.Client())
	cred := &Credential{Kind: KindFogBugz, AccessToken: "valid", HostURL: server.URL}

	page, err := adapter.ListRepositories(context.Background(), cred, Page{})
	if err != nil {
		t.Fatalf("ListRepositories() error: %v", err)
	}
	if len(page.Repositories) != 2 {
		t.Fatalf("got %d projects, want 2", len(page.Repositories))
	}
	if page.Repositories[0].ID != "21" || page.Repositories[0].FullName != "mary/Widgets" {
		t.Errorf("unexpected first project: %+v", page.Repositories[0])
	}
	if page.Repositories[0].CloneURL != "" {
		t.Error("fogbugz project has a clone URL")
	}
}

func TestFogBugzAuthErrorInside200(t *testing.T) {
	server := fogbugzServer(t)
	defer server.Close()

	adapter := NewFogBugzAdapter(server.Client())
	cred := &Credential{Kind: KindFogBugz, AccessToken: "stale", HostURL: server.URL}

	_, err := adapter.ListRepositories(context.Background(), cred, Page{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ListRepositories() = %v, want ErrUnauthorized", err)
	}
}

func TestFogBugzListAuthorsMasksEmails(t *testing.T) {
	server := fogbugzServer(t)
	defer server.Close()

	adapter := NewFogBugzAdapter(server.Client())
	cred := &Credential{Kind: KindFogBugz, AccessToken: "valid", HostURL: server.URL}

	authors, err := adapter.ListAuthors(context.Background(), cred)
	if err != nil {
		t.Fatalf("ListAuthors() error: %v", err)
	}
	if len(authors) != 1 {
		t.Fatalf("got %d authors, want 1", len(authors))
	}
	if authors[0].MaskedEmail != "m*****@example.com" {
		t.Errorf("MaskedEmail = %q", authors[0].MaskedEmail)
	}
}

func TestFogBugzFetchRepositoryNotFound(t *testing.T) {
	server := fogbugzServer(t)
	defer server.Close()

	adapter := NewFogBugzAdapter(server.Client())
	cred := &Credential{Kind: KindFogBugz, AccessToken: "valid", HostURL: server.URL}

	_, err := adapter.FetchRepository(context.Background(), cred, "99")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchRepository() = %v, want ErrNotFound", err)
	}
}
