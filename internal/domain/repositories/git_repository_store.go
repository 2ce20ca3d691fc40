package repositories

import (
	"context"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// GitRepositoryStore is the persistence of repository, branch and active-repo rows.
type GitRepositoryStore interface {
	// GetGitRepo returns entities.ErrRepoNotFound when no row matches.
	GetGitRepo(ctx context.Context, repoID string) (*entities.Repository, error)
	// ListGitRepos lists a project's repositories; an empty status matches every row.
	ListGitRepos(ctx context.Context, projectID string, status entities.RepoStatus) ([]entities.Repository, error)
	// AddGitRepo inserts a repository, assigning its ID when empty.
	AddGitRepo(ctx context.Context, repo *entities.Repository) error
	UpdateGitRepo(ctx context.Context, repo *entities.Repository) error
	// DeleteGitRepo removes a repository and its cached branches.
	DeleteGitRepo(ctx context.Context, repoID string) error

	ListBranches(ctx context.Context, repoID string) ([]entities.Branch, error)
	// AddBranch inserts a branch, assigning its ID when empty.
	AddBranch(ctx context.Context, branch *entities.Branch) error
	// SetDefaultBranch flags branchID as default and clears every other flag in one transaction.
	SetDefaultBranch(ctx context.Context, repoID, branchID string) error

	// GetActiveRepo returns entities.ErrNoActiveRepo when the pair has no record.
	GetActiveRepo(ctx context.Context, projectID, username string) (*entities.ActiveRepo, error)
	// UpsertActiveRepo inserts or switches the record of (ProjectID, Username) atomically.
	UpsertActiveRepo(ctx context.Context, record *entities.ActiveRepo) error
	DeleteActiveRepo(ctx context.Context, projectID, username string) error
}
