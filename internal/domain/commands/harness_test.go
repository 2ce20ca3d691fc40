//go:build unit

package commands_test

import (
	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitbridge/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories"
	"github.com/rios0rios0/gitbridge/test/infrastructure/repositorydoubles"
)

type harness struct {
	settings    *entities.Settings
	store       *repositorydoubles.FakeGitRepositoryStore
	secrets     *repositorydoubles.SpySecretRepository
	provider    *repositorydoubles.SpyProviderRepository
	workingCopy *repositorydoubles.SpyWorkingCopyRepository
	built       []domainRepos.ProviderSettings
	state       *commands.StateManagerCommand
	vcs         *commands.VersionControlCommand
}

// newHarness wires the commands over in-memory doubles; every GitLab repository
// and the default provider resolve to the same spy.
func newHarness() *harness {
	h := &harness{
		settings:    serviceSettings(),
		store:       &repositorydoubles.FakeGitRepositoryStore{},
		secrets:     &repositorydoubles.SpySecretRepository{},
		provider:    &repositorydoubles.SpyProviderRepository{ProviderName: "gitlab"},
		workingCopy: &repositorydoubles.SpyWorkingCopyRepository{},
	}
	h.settings.DefaultProvider = &entities.DefaultProviderSettings{
		Type: "gitlab", BaseURL: "https://gitlab.example.com", Namespace: "acme", Token: "tok",
	}

	registry := infraRepos.NewProviderRegistry(h.settings, h.workingCopy)
	registry.Register(entities.RepoTypeGitlab, func(settings domainRepos.ProviderSettings) (domainRepos.ProviderRepository, error) {
		h.built = append(h.built, settings)
		return h.provider, nil
	})

	resolver := commands.NewCredentialResolver(h.settings, h.secrets)
	h.state = commands.NewStateManagerCommand(h.store, resolver, registry)
	h.vcs = commands.NewVersionControlCommand(h.state, h.store, h.secrets, h.workingCopy, registry)
	return h
}

func (h *harness) addRepo(repo entities.Repository, branches ...entities.Branch) {
	h.store.Repos = append(h.store.Repos, repo)
	h.store.Branches = append(h.store.Branches, branches...)
}
