package repositories

import (
	"context"
	"time"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// ProviderRepository abstracts a Git hosting service (GitHub, GitLab, Bitbucket Server,
// Azure DevOps). An instance is bound to one repository and one set of resolved
// credentials; every error it returns is an *entities.VCSError.
type ProviderRepository interface {
	// Name returns the provider identifier (e.g. "github", "gitlab").
	Name() string

	// CreateRepo creates a remote repository in the configured namespace.
	// A name clash yields entities.ErrRepoAlreadyExists.
	CreateRepo(ctx context.Context, name string) (*entities.CreatedRepo, error)

	// RenameRepo renames a repository of the configured namespace.
	RenameRepo(ctx context.Context, oldName, newName string) (*entities.CreatedRepo, error)

	// FetchBranches enumerates every branch of the repository.
	FetchBranches(ctx context.Context) ([]entities.RemoteBranch, error)

	// CreateBranch branches from startPoint, or from the default branch when it is empty.
	CreateBranch(ctx context.Context, name, startPoint string) error

	// ListFiles returns one level of the tree at dirPath, at most limit entries when limit > 0.
	ListFiles(ctx context.Context, dirPath, branch string, limit int) ([]entities.FileEntry, error)

	// ReadFile returns a file at a branch or commit.
	ReadFile(ctx context.Context, input entities.ReadFileInput) (*entities.FileContent, error)

	// UpdateFile creates or replaces a single file with one commit.
	UpdateFile(ctx context.Context, input entities.UpdateFileInput) (*entities.UpdatedFile, error)

	// GetCommits lists history of a branch. It never fails: errors degrade to Found=false.
	GetCommits(ctx context.Context, branch string, page entities.PageRequest) entities.CommitPage

	// GetFiles lists the paths changed by a commit. It never fails: errors degrade to Found=false.
	GetFiles(ctx context.Context, commitID string) entities.ChangedFiles

	// LatestCommitID returns the head commit of a branch.
	LatestCommitID(ctx context.Context, branch string) (string, error)

	// ValidateRepoAccess checks for write permission without mutating remote state.
	ValidateRepoAccess(ctx context.Context) error
}

// ProviderSettings is everything a provider factory needs to build a client.
type ProviderSettings struct {
	Repository  entities.Repository
	BaseURL     string // API root; derived from Repository.URL when empty
	Namespace   string // Owner, group, project key or organization/project
	Credentials entities.Credentials
	Proxy       *entities.ResolvedProxy
	Timeout     time.Duration
	WorkingCopy WorkingCopyRepository
}
