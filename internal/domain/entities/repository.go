package entities

import (
	"strings"
)

// RepoType identifies the Git hosting provider behind a repository.
type RepoType string

const (
	RepoTypeGitlab      RepoType = "Gitlab"
	RepoTypeGithub      RepoType = "Github"
	RepoTypeBitbucket   RepoType = "Bitbucket"
	RepoTypeAzureDevOps RepoType = "Azuredevops"
)

// ParseRepoType accepts the stored spelling as well as lower-case CLI input.
func ParseRepoType(raw string) (RepoType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gitlab":
		return RepoTypeGitlab, true
	case "github":
		return RepoTypeGithub, true
	case "bitbucket":
		return RepoTypeBitbucket, true
	case "azuredevops", "azure_devops", "azure-devops":
		return RepoTypeAzureDevOps, true
	}
	return "", false
}

// AccessCategory tells the resolver whether per-repository credentials apply.
type AccessCategory string

const (
	AccessCategoryPublic  AccessCategory = "Public"
	AccessCategoryPrivate AccessCategory = "Private"
)

// RepoStatus is the persisted repo_status column.
type RepoStatus string

const (
	RepoStatusEnabled  RepoStatus = "Enabled"
	RepoStatusDisabled RepoStatus = "Disabled"
)

// Repository is a registered Git repository as owned by the persistence layer.
// Username and Password hold either plain values or "vault:<key>" references.
type Repository struct {
	ID             string
	ProjectID      string
	URL            string
	Username       string
	Password       string
	Name           string
	Type           RepoType
	AccessCategory AccessCategory
	BaseFolder     string
	DefaultBranch  string
	Status         RepoStatus
	Proxy          *ProxyDetails
}

// Redacted returns a copy safe to hand to outer layers.
func (r Repository) Redacted() Repository {
	r.Password = ""
	if r.Proxy != nil {
		proxy := *r.Proxy
		proxy.Password = ""
		r.Proxy = &proxy
	}
	return r
}

// IsPrivate reports whether per-repository credentials must be resolved.
func (r Repository) IsPrivate() bool {
	return r.AccessCategory != AccessCategoryPublic
}

// CreatedRepo is the provider answer to a create or rename request.
type CreatedRepo struct {
	Name string
	URL  string
}
