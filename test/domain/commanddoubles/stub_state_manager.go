//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// StubStateManager is a stub implementation of commands.StateManager.
type StubStateManager struct {
	Context     *commands.RepoContext
	ContextErr  error
	Views       []entities.RepoView
	ActivateErr error

	LastIdentity     entities.Identity
	LastStatus       entities.RepoStatus
	Activated        [][2]string
	DeactivateCount  int
	DefaultBranchIDs []string
}

var _ commands.StateManager = (*StubStateManager)(nil)

func (s *StubStateManager) Activate(
	_ context.Context,
	identity entities.Identity,
	repoID, branchName string,
) (*entities.ActiveRepo, error) {
	s.LastIdentity = identity
	if s.ActivateErr != nil {
		return nil, s.ActivateErr
	}
	s.Activated = append(s.Activated, [2]string{repoID, branchName})
	return &entities.ActiveRepo{
		ProjectID: identity.ProjectID, Username: identity.Username, RepoID: repoID, BranchID: branchName,
	}, nil
}

func (s *StubStateManager) Deactivate(_ context.Context, _, _ string) error {
	s.DeactivateCount++
	return nil
}

func (s *StubStateManager) ListGitRepo(
	_ context.Context,
	identity entities.Identity,
	status entities.RepoStatus,
) ([]entities.RepoView, error) {
	s.LastIdentity = identity
	s.LastStatus = status
	return s.Views, nil
}

func (s *StubStateManager) SetDefaultBranch(_ context.Context, _, branchID string) error {
	s.DefaultBranchIDs = append(s.DefaultBranchIDs, branchID)
	return nil
}

func (s *StubStateManager) ActiveContext(_ context.Context, identity entities.Identity) (*commands.RepoContext, error) {
	s.LastIdentity = identity
	return s.Context, s.ContextErr
}

func (s *StubStateManager) Connect(
	_ context.Context,
	repo entities.Repository,
	identity entities.Identity,
) (*commands.RepoContext, error) {
	s.LastIdentity = identity
	return &commands.RepoContext{Repository: repo, Identity: identity}, s.ContextErr
}
