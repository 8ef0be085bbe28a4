package provider

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Android-style repo manifest:
//
//	<manifest>
//	  <remote name="origin" fetch="https://android.googlesource.com"/>
//	  <default remote="origin"/>
//	  <project name="platform/build" path="build"/>
//	</manifest>
type repoManifest struct {
	XMLName xml.Name `xml:"manifest"`
	Remotes []struct {
		Name  string `xml:"name,attr"`
		Fetch string `xml:"fetch,attr"`
	} `xml:"remote"`
	Default struct {
		Remote string `xml:"remote,attr"`
	} `xml:"default"`
	Projects []struct {
		Name   string `xml:"name,attr"`
		Path   string `xml:"path,attr"`
		Remote string `xml:"remote,attr"`
	} `xml:"project"`
}

// ParseManifest reads an uploaded repo manifest into a repository catalog.
// Projects referencing an unknown remote are flagged incompatible instead of
// failing the whole upload.
func ParseManifest(r io.Reader) ([]RemoteRepository, error) {
	var m repoManifest
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Projects) == 0 {
		return nil, fmt.Errorf("manifest contains no projects")
	}

	remotes := make(map[string]string, len(m.Remotes))
	for _, remote := range m.Remotes {
		remotes[remote.Name] = trimHost(remote.Fetch)
	}

	repos := make([]RemoteRepository, 0, len(m.Projects))
	for _, p := range m.Projects {
		if p.Name == "" {
			continue
		}
		remoteName := p.Remote
		if remoteName == "" {
			remoteName = m.Default.Remote
		}
		repo := RemoteRepository{
			ID:       p.Name,
			FullName: p.Name,
			Owner:    manifestOwner(p.Name),
		}
		fetch, ok := remotes[remoteName]
		if !ok {
			repo.Incompatible = true
			repo.IncompatibleReason = fmt.Sprintf("project references unknown remote %q", remoteName)
		} else {
			repo.CloneURL = fmt.Sprintf("%s/%s.git", fetch, p.Name)
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func manifestOwner(name string) string {
	if owner, _, ok := strings.Cut(name, "/"); ok {
		return owner
	}
	return ""
}
