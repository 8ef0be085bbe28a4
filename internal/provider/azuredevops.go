package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/git"
)

// AzureDevOpsAdapter imports from an Azure DevOps organization. The host URL
// is the organization URL and the credential is a personal access token.
type AzureDevOpsAdapter struct{}

func NewAzureDevOpsAdapter() *AzureDevOpsAdapter { return &AzureDevOpsAdapter{} }

func (a *AzureDevOpsAdapter) Kind() Kind                 { return KindAzureDevOps }
func (a *AzureDevOpsAdapter) Capabilities() Capabilities { return CapabilitiesFor(KindAzureDevOps) }

func (a *AzureDevOpsAdapter) client(ctx context.Context, cred *Credential) (git.Client, error) {
	connection := azuredevops.NewPatConnection(trimHost(cred.HostURL), cred.AccessToken)
	gitClient, err := git.NewClient(ctx, connection)
	if err != nil {
		return nil, translateAzureDevOpsError(err)
	}
	return gitClient, nil
}

func (a *AzureDevOpsAdapter) ListRepositories(ctx context.Context, cred *Credential, page Page) (*RepositoryPage, error) {
	client, err := a.client(ctx, cred)
	if err != nil {
		return nil, err
	}
	repos, err := client.GetRepositories(ctx, git.GetRepositoriesArgs{})
	if err != nil {
		return nil, translateAzureDevOpsError(err)
	}

	out := &RepositoryPage{}
	if repos == nil {
		return out, nil
	}
	for i := range *repos {
		out.Repositories = append(out.Repositories, azureDevOpsRepository(&(*repos)[i]))
	}
	return out, nil
}

func (a *AzureDevOpsAdapter) FetchRepository(ctx context.Context, cred *Credential, id string) (*RemoteRepository, error) {
	project, name, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("azure devops repository id %q: %w", id, ErrNotFound)
	}
	client, err := a.client(ctx, cred)
	if err != nil {
		return nil, err
	}
	repo, err := client.GetRepository(ctx, git.GetRepositoryArgs{
		RepositoryId: &name,
		Project:      &project,
	})
	if err != nil {
		return nil, translateAzureDevOpsError(err)
	}
	r := azureDevOpsRepository(repo)
	return &r, nil
}

func (a *AzureDevOpsAdapter) AuthenticatedCloneURL(cred *Credential, repo *RemoteRepository) (string, error) {
	return embedUserInfo(repo.CloneURL, "pat", cred.AccessToken)
}

func azureDevOpsRepository(repo *git.GitRepository) RemoteRepository {
	project := ""
	if repo.Project != nil && repo.Project.Name != nil {
		project = *repo.Project.Name
	}
	name := ""
	if repo.Name != nil {
		name = *repo.Name
	}
	cloneURL := ""
	if repo.RemoteUrl != nil {
		cloneURL = *repo.RemoteUrl
	}
	r := RemoteRepository{
		ID:       fmt.Sprintf("%s/%s", project, name),
		FullName: fmt.Sprintf("%s/%s", project, name),
		Owner:    project,
		CloneURL: cloneURL,
		Private:  true,
	}
	if repo.IsDisabled != nil && *repo.IsDisabled {
		r.Incompatible = true
		r.IncompatibleReason = "repository is disabled"
	}
	return r
}

func translateAzureDevOpsError(err error) error {
	switch {
	case err == nil:
		return nil
	case containsStatus(err, "401"), containsStatus(err, "403"),
		strings.Contains(err.Error(), "TF400813"):
		return fmt.Errorf("azure devops: %w", ErrUnauthorized)
	case containsStatus(err, "404"), strings.Contains(err.Error(), "TF401019"):
		return fmt.Errorf("azure devops: %w", ErrNotFound)
	}
	return translateTransport(KindAzureDevOps, err)
}
