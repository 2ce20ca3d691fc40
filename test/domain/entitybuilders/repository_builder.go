//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// RepositoryBuilder helps create test repositories with a fluent interface.
type RepositoryBuilder struct {
	*testkit.BaseBuilder
	id             string
	projectID      string
	url            string
	username       string
	password       string
	name           string
	repoType       entities.RepoType
	accessCategory entities.AccessCategory
	baseFolder     string
	defaultBranch  string
	status         entities.RepoStatus
	proxy          *entities.ProxyDetails
}

// NewRepositoryBuilder creates a private GitLab repository with sensible defaults.
func NewRepositoryBuilder() *RepositoryBuilder {
	b := &RepositoryBuilder{BaseBuilder: testkit.NewBaseBuilder()}
	b.defaults()
	return b
}

func (b *RepositoryBuilder) defaults() {
	b.id = "repo-1"
	b.projectID = "project-1"
	b.url = "https://gitlab.com/acme/notebooks.git"
	b.username = "jdoe"
	b.password = "s3cret"
	b.name = "notebooks"
	b.repoType = entities.RepoTypeGitlab
	b.accessCategory = entities.AccessCategoryPrivate
	b.baseFolder = ""
	b.defaultBranch = "main"
	b.status = entities.RepoStatusEnabled
	b.proxy = nil
}

// WithID sets the repository id.
func (b *RepositoryBuilder) WithID(id string) *RepositoryBuilder {
	b.id = id
	return b
}

// WithProjectID sets the owning project.
func (b *RepositoryBuilder) WithProjectID(projectID string) *RepositoryBuilder {
	b.projectID = projectID
	return b
}

// WithURL sets the remote URL.
func (b *RepositoryBuilder) WithURL(url string) *RepositoryBuilder {
	b.url = url
	return b
}

// WithCredentials sets the stored username and password (plain or "vault:" references).
func (b *RepositoryBuilder) WithCredentials(username, password string) *RepositoryBuilder {
	b.username = username
	b.password = password
	return b
}

// WithName sets the repository name.
func (b *RepositoryBuilder) WithName(name string) *RepositoryBuilder {
	b.name = name
	return b
}

// WithType sets the provider type.
func (b *RepositoryBuilder) WithType(repoType entities.RepoType) *RepositoryBuilder {
	b.repoType = repoType
	return b
}

// AsPublic marks the repository as public.
func (b *RepositoryBuilder) AsPublic() *RepositoryBuilder {
	b.accessCategory = entities.AccessCategoryPublic
	return b
}

// WithBaseFolder sets the base folder.
func (b *RepositoryBuilder) WithBaseFolder(folder string) *RepositoryBuilder {
	b.baseFolder = folder
	return b
}

// WithDefaultBranch sets the default branch name.
func (b *RepositoryBuilder) WithDefaultBranch(branch string) *RepositoryBuilder {
	b.defaultBranch = branch
	return b
}

// WithStatus sets the repository status.
func (b *RepositoryBuilder) WithStatus(status entities.RepoStatus) *RepositoryBuilder {
	b.status = status
	return b
}

// WithProxy sets the proxy details.
func (b *RepositoryBuilder) WithProxy(proxy *entities.ProxyDetails) *RepositoryBuilder {
	b.proxy = proxy
	return b
}

// Build creates the repository (satisfies testkit.Builder interface).
func (b *RepositoryBuilder) Build() interface{} {
	return b.BuildRepository()
}

// BuildRepository creates the repository with a concrete return type.
func (b *RepositoryBuilder) BuildRepository() entities.Repository {
	var proxy *entities.ProxyDetails
	if b.proxy != nil {
		copied := *b.proxy
		proxy = &copied
	}
	return entities.Repository{
		ID:             b.id,
		ProjectID:      b.projectID,
		URL:            b.url,
		Username:       b.username,
		Password:       b.password,
		Name:           b.name,
		Type:           b.repoType,
		AccessCategory: b.accessCategory,
		BaseFolder:     b.baseFolder,
		DefaultBranch:  b.defaultBranch,
		Status:         b.status,
		Proxy:          proxy,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *RepositoryBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.defaults()
	return b
}

// Clone creates a deep copy of the RepositoryBuilder.
func (b *RepositoryBuilder) Clone() testkit.Builder {
	clone := *b
	clone.BaseBuilder = b.BaseBuilder.Clone().(*testkit.BaseBuilder)
	return &clone
}
