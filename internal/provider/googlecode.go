package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Google Takeout dump of a Google Code account:
//
//	{"projects": [{"name": "my-project", "repositoryType": "GIT",
//	               "repositoryUrls": ["https://..."],
//	               "members": ["alice@gmail.com"], ...}]}
type googleCodeDump struct {
	Projects []struct {
		Name           string   `json:"name"`
		RepositoryType string   `json:"repositoryType"`
		RepositoryURLs []string `json:"repositoryUrls"`
		Members        []string `json:"members"`
	} `json:"projects"`
}

// ParseGoogleCodeDump reads an uploaded takeout file into a repository
// catalog plus the author identities found in it. Subversion and mercurial
// projects survive as incompatible entries so the user sees why they cannot
// be imported. The authors seed the default user map; the dump is the only
// place they can come from since the service no longer exists.
func ParseGoogleCodeDump(r io.Reader) ([]RemoteRepository, []RemoteAuthor, error) {
	var dump googleCodeDump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, nil, fmt.Errorf("parsing google code dump: %w", err)
	}
	if len(dump.Projects) == 0 {
		return nil, nil, fmt.Errorf("dump contains no projects")
	}

	repos := make([]RemoteRepository, 0, len(dump.Projects))
	var authors []RemoteAuthor
	seen := make(map[string]bool)
	for _, p := range dump.Projects {
		if p.Name == "" {
			continue
		}
		repo := RemoteRepository{
			ID:       p.Name,
			FullName: p.Name,
		}
		if len(p.RepositoryURLs) > 0 {
			repo.CloneURL = p.RepositoryURLs[0]
		}
		if !strings.EqualFold(p.RepositoryType, "git") {
			repo.Incompatible = true
			repo.IncompatibleReason = fmt.Sprintf("unsupported version control system %q", p.RepositoryType)
		}
		repos = append(repos, repo)

		for _, member := range p.Members {
			member = strings.TrimSpace(member)
			if member == "" || seen[member] {
				continue
			}
			seen[member] = true
			name := member
			if local, _, ok := strings.Cut(member, "@"); ok && local != "" {
				name = local
			}
			authors = append(authors, RemoteAuthor{
				ID:          member,
				Name:        name,
				MaskedEmail: maskEmail(member),
			})
		}
	}
	return repos, authors, nil
}
