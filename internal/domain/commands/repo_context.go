package commands

import (
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

// RepoContext is everything an operation needs to act on one repository:
// the stored descriptor, the call-scoped credentials and proxy, the provider
// client built from them and the acting user.
type RepoContext struct {
	Repository  entities.Repository
	Branch      *entities.Branch
	Credentials entities.Credentials
	Proxy       *entities.ResolvedProxy
	Provider    repositories.ProviderRepository
	Identity    entities.Identity
}

// BranchName is the active branch, or the repository default when none is selected.
func (c *RepoContext) BranchName() string {
	if c.Branch != nil {
		return c.Branch.Name
	}
	return c.Repository.DefaultBranch
}

// Remote describes the repository for working-copy operations.
func (c *RepoContext) Remote() entities.Remote {
	return entities.Remote{URL: c.Repository.URL, Credentials: c.Credentials, Proxy: c.Proxy}
}
