package commands

import (
	"context"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

const defaultProxyScheme = "http"

// CredentialResolver turns stored repository fields into call-scoped credentials and proxies.
type CredentialResolver struct {
	settings *entities.Settings
	secrets  repositories.SecretRepository
}

// NewCredentialResolver creates a resolver reading "vault:" references from secrets.
func NewCredentialResolver(
	settings *entities.Settings,
	secrets repositories.SecretRepository,
) *CredentialResolver {
	return &CredentialResolver{settings: settings, secrets: secrets}
}

// ResolveCredentials returns the platform service account for public repositories
// and, when substitution is enabled, for validators. Otherwise the stored username
// and password are used, looking up "vault:" references in the secret store.
func (it *CredentialResolver) ResolveCredentials(
	ctx context.Context,
	repo entities.Repository,
	identity entities.Identity,
) (entities.Credentials, error) {
	if !repo.IsPrivate() {
		return it.settings.ServiceCredentials(), nil
	}
	if identity.AccessLevel == entities.AccessLevelValidator && it.settings.Validator.SubstituteCredentials {
		logger.Debugf("Substituting service credentials for validator %q on repository %q", identity.Username, repo.ID)
		return it.settings.ServiceCredentials(), nil
	}

	var failed []string
	var cause error
	username, err := it.resolveValue(ctx, repo.Username)
	if err != nil {
		failed = append(failed, "username")
		cause = err
	}
	password, err := it.resolveValue(ctx, repo.Password)
	if err != nil {
		failed = append(failed, "password")
		cause = err
	}
	if len(failed) > 0 {
		logger.Warnf("Could not resolve %s of repository %q", strings.Join(failed, " and "), repo.ID)
		return entities.Credentials{}, &entities.CredentialResolutionError{Fields: failed, Err: cause}
	}
	return entities.Credentials{Username: username, Password: password}, nil
}

// ResolveProxy returns nil when the repository has no proxy or its provider is not
// on the proxy allow-list. The scheme is pinned to http unless proxy.honor_protocol is set.
func (it *CredentialResolver) ResolveProxy(
	ctx context.Context,
	repo entities.Repository,
) (*entities.ResolvedProxy, error) {
	details := repo.Proxy
	if details == nil || details.IPAddress == "" {
		return nil, nil //nolint:nilnil // no proxy configured
	}
	if !it.settings.ProxyEnabledFor(repo.Type) {
		logger.Debugf("Ignoring proxy of repository %q: %s is not proxy-enabled", repo.ID, repo.Type)
		return nil, nil //nolint:nilnil // proxy disabled for this provider
	}

	var failed []string
	var cause error
	username, err := it.resolveValue(ctx, details.Username)
	if err != nil {
		failed = append(failed, "proxy_username")
		cause = err
	}
	password, err := it.resolveValue(ctx, details.Password)
	if err != nil {
		failed = append(failed, "proxy_password")
		cause = err
	}
	if len(failed) > 0 {
		return nil, &entities.CredentialResolutionError{Fields: failed, Err: cause}
	}

	scheme := defaultProxyScheme
	if it.settings.Proxy.HonorProtocol && details.Protocol != "" {
		scheme = strings.ToLower(details.Protocol)
	}
	return &entities.ResolvedProxy{
		Host:      details.IPAddress,
		Scheme:    scheme,
		SSLVerify: details.SSLVerify,
		Username:  username,
		Password:  password,
	}, nil
}

func (it *CredentialResolver) resolveValue(ctx context.Context, value string) (string, error) {
	key, ok := entities.ParseSecretReference(value)
	if !ok {
		return value, nil
	}
	return it.secrets.Retrieve(ctx, key)
}
