package repositories

import (
	"slices"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

// ProviderFactory is a constructor function that creates a ProviderRepository bound to one repository.
type ProviderFactory func(settings domainRepos.ProviderSettings) (domainRepos.ProviderRepository, error)

// ProviderRegistry manages all registered Git provider implementations.
type ProviderRegistry struct {
	providers   map[entities.RepoType]ProviderFactory
	settings    *entities.Settings
	workingCopy domainRepos.WorkingCopyRepository
}

// NewProviderRegistry creates an empty provider registry.
func NewProviderRegistry(
	settings *entities.Settings,
	workingCopy domainRepos.WorkingCopyRepository,
) *ProviderRegistry {
	return &ProviderRegistry{
		providers:   make(map[entities.RepoType]ProviderFactory),
		settings:    settings,
		workingCopy: workingCopy,
	}
}

// Register adds a provider factory under the given repository type.
func (r *ProviderRegistry) Register(repoType entities.RepoType, factory ProviderFactory) {
	r.providers[repoType] = factory
}

// Get returns a provider bound to repo. The stored type is normalised first; a
// repository whose type has no registered factory falls back to the configured
// default provider and its platform-wide credentials. Malformed configuration
// yields nil; callers report entities.ErrProviderNotConfigured.
func (r *ProviderRegistry) Get(
	repo entities.Repository,
	credentials entities.Credentials,
	proxy *entities.ResolvedProxy,
) domainRepos.ProviderRepository {
	providerSettings := domainRepos.ProviderSettings{
		Repository:  repo,
		Credentials: credentials,
		Proxy:       proxy,
		Timeout:     r.settings.HTTP.Timeout,
		WorkingCopy: r.workingCopy,
	}

	repoType, known := entities.ParseRepoType(string(repo.Type))
	factory, registered := r.providers[repoType]
	if !known || !registered {
		fallback := r.settings.DefaultProvider
		if fallback == nil {
			logger.Warnf("Repository %q has type %q and no default provider is configured", repo.ID, repo.Type)
			return nil
		}
		parsed, ok := entities.ParseRepoType(fallback.Type)
		if !ok {
			logger.Warnf("Default provider type %q is not a known provider", fallback.Type)
			return nil
		}
		if factory, registered = r.providers[parsed]; !registered {
			logger.Warnf("Default provider type %q is not registered", parsed)
			return nil
		}
		repoType = parsed
		providerSettings.BaseURL = fallback.BaseURL
		providerSettings.Namespace = fallback.Namespace
		providerSettings.Credentials = entities.Credentials{Username: fallback.Username, Password: fallback.Token}
	}
	providerSettings.Repository.Type = repoType

	provider, err := factory(providerSettings)
	if err != nil {
		logger.Warnf("Failed to initialize provider %q: %v", repoType, err)
		return nil
	}
	return provider
}

// Names returns the sorted list of registered provider types.
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for repoType := range r.providers {
		names = append(names, string(repoType))
	}
	slices.Sort(names)
	return names
}
