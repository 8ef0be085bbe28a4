package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseManifest(t *testing.T) {
	manifest := `<manifest>
		<remote name="aosp" fetch="https://android.googlesource.com/"/>
		<default remote="aosp"/>
		<project name="platform/build" path="build"/>
		<project name="platform/art" path="art" remote="aosp"/>
		<project name="vendor/private" path="vendor" remote="vendor-remote"/>
	</manifest>`

	repos, err := ParseManifest(strings.NewReader(manifest))
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	if len(repos) != 3 {
		t.Fatalf("got %d projects, want 3", len(repos))
	}
	if repos[0].CloneURL != "https://android.googlesource.com/platform/build.git" {
		t.Errorf("CloneURL = %q", repos[0].CloneURL)
	}
	if repos[0].Owner != "platform" {
		t.Errorf("Owner = %q, want platform", repos[0].Owner)
	}
	if !repos[2].Incompatible {
		t.Error("project with unknown remote not marked incompatible")
	}

	if _, err := ParseManifest(strings.NewReader("<manifest></manifest>")); err == nil {
		t.Error("ParseManifest() accepted empty manifest")
	}
	if _, err := ParseManifest(strings.NewReader("not xml")); err == nil {
		t.Error("ParseManifest() accepted garbage")
	}
}

func TestParseGoogleCodeDump(t *testing.T) {
	dump := `{"projects": [
		{"name": "good-project", "repositoryType": "GIT",
		 "repositoryUrls": ["https://code.google.com/p/good-project/"],
		 "members": ["alice@gmail.com", "bob@gmail.com"]},
		{"name": "old-project", "repositoryType": "SUBVERSION", "repositoryUrls": [],
		 "members": ["alice@gmail.com"]}
	]}`

	repos, authors, err := ParseGoogleCodeDump(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("ParseGoogleCodeDump() error: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("got %d projects, want 2", len(repos))
	}
	if repos[0].Incompatible {
		t.Error("git project marked incompatible")
	}
	if !repos[1].Incompatible {
		t.Error("subversion project not marked incompatible")
	}

	// Members deduplicated across projects, addresses masked.
	if len(authors) != 2 {
		t.Fatalf("got %d authors, want 2: %+v", len(authors), authors)
	}
	if authors[0].ID != "alice@gmail.com" || authors[0].Name != "alice" {
		t.Errorf("authors[0] = %+v", authors[0])
	}
	if authors[0].MaskedEmail != "a*****@gmail.com" {
		t.Errorf("MaskedEmail = %q", authors[0].MaskedEmail)
	}

	if _, _, err := ParseGoogleCodeDump(strings.NewReader(`{"projects": []}`)); err == nil {
		t.Error("ParseGoogleCodeDump() accepted empty dump")
	}
}

func TestOfflineAdapter(t *testing.T) {
	seeds := []RemoteRepository{
		{ID: "platform/build", FullName: "platform/build", CloneURL: "https://example.com/platform/build.git"},
		{ID: "platform/art", FullName: "platform/art"},
	}
	adapter := NewOfflineAdapter(KindManifest, seeds, nil)

	page, err := adapter.ListRepositories(context.Background(), nil, Page{})
	if err != nil {
		t.Fatalf("ListRepositories() error: %v", err)
	}
	if len(page.Repositories) != 2 || page.NextCursor != "" {
		t.Fatalf("unexpected page: %+v", page)
	}

	repo, err := adapter.FetchRepository(context.Background(), nil, "platform/build")
	if err != nil {
		t.Fatalf("FetchRepository() error: %v", err)
	}
	if repo.FullName != "platform/build" {
		t.Errorf("FullName = %q", repo.FullName)
	}

	if _, err := adapter.FetchRepository(context.Background(), nil, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchRepository(missing) = %v, want ErrNotFound", err)
	}

	url, err := adapter.AuthenticatedCloneURL(nil, repo)
	if err != nil || url != repo.CloneURL {
		t.Errorf("AuthenticatedCloneURL() = %q, %v", url, err)
	}
}

func TestOfflineAdapterListAuthors(t *testing.T) {
	authors := []RemoteAuthor{{ID: "alice@gmail.com", Name: "alice", MaskedEmail: "a*****@gmail.com"}}
	adapter := NewOfflineAdapter(KindGoogleCode, nil, authors)

	got, err := adapter.ListAuthors(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListAuthors() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "alice@gmail.com" {
		t.Errorf("ListAuthors() = %+v", got)
	}
}
