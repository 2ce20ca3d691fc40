//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"slices"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

// FakeGitRepositoryStore is an in-memory GitRepositoryStore with sequential IDs.
type FakeGitRepositoryStore struct {
	Repos    []entities.Repository
	Branches []entities.Branch
	Active   []entities.ActiveRepo

	AddRepoErr   error
	AddBranchErr error
	nextID       int
}

var _ repositories.GitRepositoryStore = (*FakeGitRepositoryStore)(nil)

func (s *FakeGitRepositoryStore) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *FakeGitRepositoryStore) GetGitRepo(_ context.Context, repoID string) (*entities.Repository, error) {
	for _, repo := range s.Repos {
		if repo.ID == repoID {
			return &repo, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", entities.ErrRepoNotFound, repoID)
}

func (s *FakeGitRepositoryStore) ListGitRepos(
	_ context.Context, projectID string, status entities.RepoStatus,
) ([]entities.Repository, error) {
	var repos []entities.Repository
	for _, repo := range s.Repos {
		if repo.ProjectID == projectID && (status == "" || repo.Status == status) {
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

func (s *FakeGitRepositoryStore) AddGitRepo(_ context.Context, repo *entities.Repository) error {
	if s.AddRepoErr != nil {
		return s.AddRepoErr
	}
	if repo.ID == "" {
		repo.ID = s.newID("repo")
	}
	s.Repos = append(s.Repos, *repo)
	return nil
}

func (s *FakeGitRepositoryStore) UpdateGitRepo(_ context.Context, repo *entities.Repository) error {
	for i := range s.Repos {
		if s.Repos[i].ID == repo.ID {
			s.Repos[i] = *repo
			return nil
		}
	}
	return fmt.Errorf("%w: %s", entities.ErrRepoNotFound, repo.ID)
}

func (s *FakeGitRepositoryStore) DeleteGitRepo(_ context.Context, repoID string) error {
	s.Repos = slices.DeleteFunc(s.Repos, func(repo entities.Repository) bool { return repo.ID == repoID })
	s.Branches = slices.DeleteFunc(s.Branches, func(branch entities.Branch) bool { return branch.RepoID == repoID })
	return nil
}

func (s *FakeGitRepositoryStore) ListBranches(_ context.Context, repoID string) ([]entities.Branch, error) {
	var branches []entities.Branch
	for _, branch := range s.Branches {
		if branch.RepoID == repoID {
			branches = append(branches, branch)
		}
	}
	return branches, nil
}

func (s *FakeGitRepositoryStore) AddBranch(_ context.Context, branch *entities.Branch) error {
	if s.AddBranchErr != nil {
		return s.AddBranchErr
	}
	if branch.ID == "" {
		branch.ID = s.newID("branch")
	}
	s.Branches = append(s.Branches, *branch)
	return nil
}

func (s *FakeGitRepositoryStore) SetDefaultBranch(_ context.Context, repoID, branchID string) error {
	found := false
	for i := range s.Branches {
		if s.Branches[i].RepoID == repoID {
			s.Branches[i].Default = s.Branches[i].ID == branchID
			found = found || s.Branches[i].ID == branchID
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", entities.ErrBranchNotFound, branchID)
	}
	return nil
}

func (s *FakeGitRepositoryStore) GetActiveRepo(
	_ context.Context, projectID, username string,
) (*entities.ActiveRepo, error) {
	for _, record := range s.Active {
		if record.ProjectID == projectID && record.Username == username {
			return &record, nil
		}
	}
	return nil, entities.ErrNoActiveRepo
}

func (s *FakeGitRepositoryStore) UpsertActiveRepo(_ context.Context, record *entities.ActiveRepo) error {
	for i := range s.Active {
		if s.Active[i].ProjectID == record.ProjectID && s.Active[i].Username == record.Username {
			record.ID = s.Active[i].ID
			s.Active[i] = *record
			return nil
		}
	}
	if record.ID == "" {
		record.ID = s.newID("active")
	}
	s.Active = append(s.Active, *record)
	return nil
}

func (s *FakeGitRepositoryStore) DeleteActiveRepo(_ context.Context, projectID, username string) error {
	kept := s.Active[:0]
	for _, record := range s.Active {
		if record.ProjectID != projectID || record.Username != username {
			kept = append(kept, record)
		}
	}
	s.Active = kept
	return nil
}
