package commands

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories"
)

// StateManager tracks the active repository and branch of each user within a project.
type StateManager interface {
	Activate(ctx context.Context, identity entities.Identity, repoID, branchName string) (*entities.ActiveRepo, error)
	Deactivate(ctx context.Context, projectID, username string) error
	ListGitRepo(ctx context.Context, identity entities.Identity, status entities.RepoStatus) ([]entities.RepoView, error)
	SetDefaultBranch(ctx context.Context, repoID, branchID string) error
	ActiveContext(ctx context.Context, identity entities.Identity) (*RepoContext, error)
	Connect(ctx context.Context, repo entities.Repository, identity entities.Identity) (*RepoContext, error)
}

// StateManagerCommand implements StateManager over the repository store.
type StateManagerCommand struct {
	store            repositories.GitRepositoryStore
	resolver         *CredentialResolver
	providerRegistry *infraRepos.ProviderRegistry
}

// NewStateManagerCommand creates a new StateManagerCommand.
func NewStateManagerCommand(
	store repositories.GitRepositoryStore,
	resolver *CredentialResolver,
	providerRegistry *infraRepos.ProviderRegistry,
) *StateManagerCommand {
	return &StateManagerCommand{store: store, resolver: resolver, providerRegistry: providerRegistry}
}

// Activate selects repoID for the user, switching any previous selection in place.
// Without a branch name the repository default is used. A branch unknown locally is
// registered as a non-default branch first, and created remotely from the default
// branch when the provider does not have it either.
func (it *StateManagerCommand) Activate(
	ctx context.Context,
	identity entities.Identity,
	repoID, branchName string,
) (*entities.ActiveRepo, error) {
	repo, err := it.projectRepo(ctx, identity.ProjectID, repoID)
	if err != nil {
		return nil, err
	}
	branches, err := it.store.ListBranches(ctx, repoID)
	if err != nil {
		return nil, err
	}

	branch, err := it.selectBranch(ctx, *repo, identity, branches, branchName)
	if err != nil {
		return nil, err
	}

	record := &entities.ActiveRepo{
		ProjectID: identity.ProjectID,
		Username:  identity.Username,
		RepoID:    repoID,
		BranchID:  branch.ID,
	}
	if err = it.store.UpsertActiveRepo(ctx, record); err != nil {
		return nil, err
	}
	logger.Infof("Activated %q (branch %q) for %q in project %q", repo.Name, branch.Name, identity.Username, identity.ProjectID)
	return record, nil
}

func (it *StateManagerCommand) selectBranch(
	ctx context.Context,
	repo entities.Repository,
	identity entities.Identity,
	branches []entities.Branch,
	branchName string,
) (*entities.Branch, error) {
	if branchName == "" {
		if branch := entities.DefaultBranchOf(branches); branch != nil {
			return branch, nil
		}
		branchName = repo.DefaultBranch
		if branchName == "" {
			return nil, fmt.Errorf("%w: repository %q has no default branch", entities.ErrBranchNotFound, repo.ID)
		}
	}
	if branch := entities.FindBranch(branches, branchName); branch != nil {
		return branch, nil
	}

	repoCtx, err := it.Connect(ctx, repo, identity)
	if err != nil {
		return nil, err
	}
	remote, err := repoCtx.Provider.FetchBranches(ctx)
	if err != nil {
		return nil, err
	}
	if !containsRemoteBranch(remote, branchName) {
		logger.Infof("Branch %q does not exist on %q, creating it from the default branch", branchName, repo.Name)
		if err = repoCtx.Provider.CreateBranch(ctx, branchName, ""); err != nil {
			return nil, err
		}
	}

	branch := &entities.Branch{RepoID: repo.ID, Name: branchName}
	if err = it.store.AddBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// Deactivate drops the user's selection. It is a no-op when nothing is active.
func (it *StateManagerCommand) Deactivate(ctx context.Context, projectID, username string) error {
	if err := it.store.DeleteActiveRepo(ctx, projectID, username); err != nil {
		return err
	}
	logger.Infof("Deactivated repository of %q in project %q", username, projectID)
	return nil
}

// ListGitRepo returns the project's repositories with their local branches merged
// with the provider's live branch list. Local rows win on a name match; remote-only
// branches come last with no ID and every flag cleared. Only the user's active branch
// is Enabled. A repository whose provider cannot be reached lists its local branches only.
func (it *StateManagerCommand) ListGitRepo(
	ctx context.Context,
	identity entities.Identity,
	status entities.RepoStatus,
) ([]entities.RepoView, error) {
	repos, err := it.store.ListGitRepos(ctx, identity.ProjectID, status)
	if err != nil {
		return nil, err
	}

	active, err := it.store.GetActiveRepo(ctx, identity.ProjectID, identity.Username)
	if err != nil && !errors.Is(err, entities.ErrNoActiveRepo) {
		return nil, err
	}

	views := make([]entities.RepoView, 0, len(repos))
	for _, repo := range repos {
		local, listErr := it.store.ListBranches(ctx, repo.ID)
		if listErr != nil {
			return nil, listErr
		}

		var remote []entities.RemoteBranch
		repoCtx, connectErr := it.Connect(ctx, repo, identity)
		if connectErr == nil {
			remote, connectErr = repoCtx.Provider.FetchBranches(ctx)
		}
		if connectErr != nil {
			logger.Warnf("Listing only cached branches of %q: %v", repo.Name, connectErr)
		}

		activeBranchID := ""
		if active != nil && active.RepoID == repo.ID {
			activeBranchID = active.BranchID
		}
		views = append(views, entities.RepoView{
			Repository: repo.Redacted(),
			Branches:   mergeBranches(repo.ID, local, remote, activeBranchID),
		})
	}
	return views, nil
}

func mergeBranches(
	repoID string,
	local []entities.Branch,
	remote []entities.RemoteBranch,
	activeBranchID string,
) []entities.Branch {
	merged := make([]entities.Branch, 0, len(local)+len(remote))
	known := make(map[string]bool, len(local))
	for _, branch := range local {
		known[branch.Name] = true
		merged = append(merged, branch)
	}
	for _, branch := range remote {
		if known[branch.Name] {
			continue
		}
		known[branch.Name] = true
		merged = append(merged, entities.Branch{RepoID: repoID, Name: branch.Name})
	}

	for i := range merged {
		merged[i].Status = entities.BranchStatusDisabled
		if activeBranchID != "" && merged[i].ID == activeBranchID {
			merged[i].Status = entities.BranchStatusEnabled
		}
	}
	return merged
}

func (it *StateManagerCommand) SetDefaultBranch(ctx context.Context, repoID, branchID string) error {
	return it.store.SetDefaultBranch(ctx, repoID, branchID)
}

// ActiveContext resolves the user's active repository into a ready-to-use RepoContext.
func (it *StateManagerCommand) ActiveContext(ctx context.Context, identity entities.Identity) (*RepoContext, error) {
	active, err := it.store.GetActiveRepo(ctx, identity.ProjectID, identity.Username)
	if err != nil {
		return nil, err
	}
	repo, err := it.projectRepo(ctx, identity.ProjectID, active.RepoID)
	if err != nil {
		return nil, err
	}

	repoCtx, err := it.Connect(ctx, *repo, identity)
	if err != nil {
		return nil, err
	}
	if active.BranchID != "" {
		branches, listErr := it.store.ListBranches(ctx, repo.ID)
		if listErr != nil {
			return nil, listErr
		}
		for i := range branches {
			if branches[i].ID == active.BranchID {
				repoCtx.Branch = &branches[i]
				break
			}
		}
	}
	return repoCtx, nil
}

// Connect resolves credentials and proxy for repo and builds its provider client.
// The validator policy is applied by the resolver before any secret lookup.
func (it *StateManagerCommand) Connect(
	ctx context.Context,
	repo entities.Repository,
	identity entities.Identity,
) (*RepoContext, error) {
	credentials, err := it.resolver.ResolveCredentials(ctx, repo, identity)
	if err != nil {
		return nil, err
	}
	proxy, err := it.resolver.ResolveProxy(ctx, repo)
	if err != nil {
		return nil, err
	}

	provider := it.providerRegistry.Get(repo, credentials, proxy)
	if provider == nil {
		return nil, fmt.Errorf("%w: repository %q (%s)", entities.ErrProviderNotConfigured, repo.ID, repo.Type)
	}
	return &RepoContext{
		Repository:  repo,
		Credentials: credentials,
		Proxy:       proxy,
		Provider:    provider,
		Identity:    identity,
	}, nil
}

func (it *StateManagerCommand) projectRepo(ctx context.Context, projectID, repoID string) (*entities.Repository, error) {
	repo, err := it.store.GetGitRepo(ctx, repoID)
	if err != nil {
		return nil, err
	}
	if repo.ProjectID != projectID {
		return nil, fmt.Errorf("%w: %s", entities.ErrRepoNotFound, repoID)
	}
	return repo, nil
}

func containsRemoteBranch(branches []entities.RemoteBranch, name string) bool {
	for _, branch := range branches {
		if branch.Name == name {
			return true
		}
	}
	return false
}
