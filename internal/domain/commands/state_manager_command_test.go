//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/test/domain/entitybuilders"
)

func twoBranchRepo(h *harness) entities.Repository {
	repo := entitybuilders.NewRepositoryBuilder().BuildRepository()
	h.addRepo(repo,
		entities.Branch{ID: "b-main", RepoID: repo.ID, Name: "main", Default: true},
		entities.Branch{ID: "b-feature", RepoID: repo.ID, Name: "feature", Share: true},
	)
	return repo
}

func TestActivate(t *testing.T) {
	t.Parallel()

	t.Run("should activate the default branch when none is named", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()

		// when
		record, err := h.state.Activate(context.Background(), identity, repo.ID, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, "b-main", record.BranchID)
		assert.Empty(t, h.built, "no provider call is needed for a cached branch")
	})

	t.Run("should switch the existing record in place", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "main")
		require.NoError(t, err)

		// when
		_, err = h.state.Activate(context.Background(), identity, repo.ID, "feature")

		// then
		require.NoError(t, err)
		require.Len(t, h.store.Active, 1)
		assert.Equal(t, "b-feature", h.store.Active[0].BranchID)
	})

	t.Run("should register a remote branch unknown locally", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		h.provider.Branches = []entities.RemoteBranch{{Name: "main"}, {Name: "hotfix"}}
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()

		// when
		record, err := h.state.Activate(context.Background(), identity, repo.ID, "hotfix")

		// then
		require.NoError(t, err)
		branch := entities.FindBranch(h.store.Branches, "hotfix")
		require.NotNil(t, branch)
		assert.False(t, branch.Default)
		assert.Equal(t, branch.ID, record.BranchID)
		assert.Empty(t, h.provider.BranchCreations)
	})

	t.Run("should create a branch missing both locally and remotely", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		h.provider.Branches = []entities.RemoteBranch{{Name: "main"}}
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()

		// when
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "experiment")

		// then
		require.NoError(t, err)
		assert.Equal(t, [][2]string{{"experiment", ""}}, h.provider.BranchCreations)
		assert.NotNil(t, entities.FindBranch(h.store.Branches, "experiment"))
	})

	t.Run("should refuse a repository of another project", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := entitybuilders.NewRepositoryBuilder().WithProjectID("project-2").BuildRepository()
		h.addRepo(repo)
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()

		// when
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "main")

		// then
		require.ErrorIs(t, err, entities.ErrRepoNotFound)
		assert.Empty(t, h.store.Active)
	})
}

func TestDeactivate(t *testing.T) {
	t.Parallel()

	t.Run("should leave the user without an active repository", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "")
		require.NoError(t, err)

		// when
		err = h.state.Deactivate(context.Background(), identity.ProjectID, identity.Username)

		// then
		require.NoError(t, err)
		_, ctxErr := h.state.ActiveContext(context.Background(), identity)
		require.ErrorIs(t, ctxErr, entities.ErrNoActiveRepo)
	})
}

func TestListGitRepo(t *testing.T) {
	t.Parallel()

	t.Run("should enable only the active branch after a switch", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		h.provider.Branches = []entities.RemoteBranch{{Name: "main"}, {Name: "feature"}}
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "feature")
		require.NoError(t, err)

		// when
		views, err := h.state.ListGitRepo(context.Background(), identity, "")

		// then
		require.NoError(t, err)
		require.Len(t, views, 1)
		main := entities.FindBranch(views[0].Branches, "main")
		feature := entities.FindBranch(views[0].Branches, "feature")
		require.NotNil(t, main)
		require.NotNil(t, feature)
		assert.Equal(t, entities.BranchStatusDisabled, main.Status)
		assert.Equal(t, entities.BranchStatusEnabled, feature.Status)
	})

	t.Run("should let local rows win and append remote-only branches", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)
		h.provider.Branches = []entities.RemoteBranch{{Name: "feature", SHA: "abc"}, {Name: "release"}}
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()

		// when
		views, err := h.state.ListGitRepo(context.Background(), identity, entities.RepoStatusEnabled)

		// then
		require.NoError(t, err)
		branches := views[0].Branches
		require.Len(t, branches, 3)
		assert.Equal(t, "b-feature", branches[1].ID)
		assert.True(t, branches[1].Share)
		assert.Equal(t, entities.Branch{RepoID: repo.ID, Name: "release", Status: entities.BranchStatusDisabled}, branches[2])
		assert.Empty(t, views[0].Repository.Password)
	})

	t.Run("should fall back to cached branches when the provider fails", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		twoBranchRepo(h)
		h.provider.FetchBranchesErr = entities.NewVCSError(entities.ErrRepoAuthentication, "gitlab", "", errors.New("401"))
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()

		// when
		views, err := h.state.ListGitRepo(context.Background(), identity, "")

		// then
		require.NoError(t, err)
		assert.Len(t, views[0].Branches, 2)
	})
}

func TestSetDefaultBranch(t *testing.T) {
	t.Parallel()

	t.Run("should move the default flag", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		repo := twoBranchRepo(h)

		// when
		err := h.state.SetDefaultBranch(context.Background(), repo.ID, "b-feature")

		// then
		require.NoError(t, err)
		assert.Equal(t, "feature", entities.DefaultBranchOf(h.store.Branches).Name)
	})
}

func TestActiveContext(t *testing.T) {
	t.Parallel()

	t.Run("should resolve the active repository into a connected context", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		h.secrets.Secrets = map[string]string{"git_repository_repo-1_password": "pat"}
		repo := entitybuilders.NewRepositoryBuilder().
			WithCredentials("jdoe", "vault:git_repository_repo-1_password").
			BuildRepository()
		h.addRepo(repo, entities.Branch{ID: "b-dev", RepoID: repo.ID, Name: "develop"})
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "develop")
		require.NoError(t, err)

		// when
		repoCtx, err := h.state.ActiveContext(context.Background(), identity)

		// then
		require.NoError(t, err)
		assert.Equal(t, "develop", repoCtx.BranchName())
		assert.Equal(t, entities.Credentials{Username: "jdoe", Password: "pat"}, repoCtx.Credentials)
		assert.Same(t, h.provider, repoCtx.Provider)
		require.Len(t, h.built, 1)
		assert.Equal(t, "pat", h.built[0].Credentials.Password)
	})

	t.Run("should report an unregistered provider type without a default provider", func(t *testing.T) {
		t.Parallel()

		// given
		h := newHarness()
		h.settings.DefaultProvider = nil
		repo := entitybuilders.NewRepositoryBuilder().WithType(entities.RepoTypeBitbucket).BuildRepository()
		h.addRepo(repo, entities.Branch{ID: "b-main", RepoID: repo.ID, Name: "main", Default: true})
		identity := entitybuilders.NewIdentityBuilder().BuildIdentity()
		_, err := h.state.Activate(context.Background(), identity, repo.ID, "")
		require.NoError(t, err)

		// when
		_, err = h.state.ActiveContext(context.Background(), identity)

		// then
		require.ErrorIs(t, err, entities.ErrProviderNotConfigured)
	})
}
