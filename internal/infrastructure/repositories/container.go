package repositories

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitbridge/internal/domain/repositories"
	adoRepo "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/azuredevops"
	bbRepo "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/bitbucket"
	ghRepo "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/gitlab"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/gormstore"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/keyring"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/workingcopy"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(func(settings *entities.Settings) domainRepos.WorkingCopyRepository {
		return workingcopy.NewGitWorkingCopyRepository(settings)
	}); err != nil {
		return err
	}

	// Register provider registry with all provider factories
	if err := container.Provide(func(
		settings *entities.Settings,
		workingCopy domainRepos.WorkingCopyRepository,
	) *ProviderRegistry {
		reg := NewProviderRegistry(settings, workingCopy)
		reg.Register(entities.RepoTypeGithub, ghRepo.NewProviderRepository)
		reg.Register(entities.RepoTypeGitlab, glRepo.NewProviderRepository)
		reg.Register(entities.RepoTypeBitbucket, bbRepo.NewProviderRepository)
		reg.Register(entities.RepoTypeAzureDevOps, adoRepo.NewProviderRepository)
		return reg
	}); err != nil {
		return err
	}

	if err := container.Provide(func(settings *entities.Settings) (domainRepos.GitRepositoryStore, error) {
		db, err := gormstore.Open(settings)
		if err != nil {
			return nil, err
		}
		store := gormstore.NewGormGitRepositoryStore(db)
		// local sqlite databases are created on first use
		if settings.Database.Driver == entities.DefaultDatabaseDriver {
			if err = store.AutoMigrate(); err != nil {
				return nil, err
			}
		}
		return store, nil
	}); err != nil {
		return err
	}

	return container.Provide(func(settings *entities.Settings) domainRepos.SecretRepository {
		return keyring.NewKeyringSecretRepository(settings)
	})
}
