package keyring

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// ErrSecretNotFound is returned by Retrieve when the key holds no secret.
var ErrSecretNotFound = errors.New("secret not found")

// KeyringSecretRepository stores repository secrets in the OS credential store.
type KeyringSecretRepository struct {
	service string
}

// NewKeyringSecretRepository uses the keyring service named in the settings.
func NewKeyringSecretRepository(settings *entities.Settings) *KeyringSecretRepository {
	service := settings.Keyring.Service
	if service == "" {
		service = entities.DefaultKeyringService
	}
	return &KeyringSecretRepository{service: service}
}

func (it *KeyringSecretRepository) Store(_ context.Context, key, value string) error {
	if err := gokeyring.Set(it.service, key, value); err != nil {
		return fmt.Errorf("failed to store secret %q in credential store: %w", key, err)
	}
	logger.Debugf("[keyring] Stored secret %q", key)
	return nil
}

func (it *KeyringSecretRepository) Retrieve(_ context.Context, key string) (string, error) {
	value, err := gokeyring.Get(it.service, key)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret %q from credential store: %w", key, err)
	}
	return value, nil
}

// Delete is idempotent; a missing key is not an error.
func (it *KeyringSecretRepository) Delete(_ context.Context, key string) error {
	err := gokeyring.Delete(it.service, key)
	if err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return fmt.Errorf("failed to delete secret %q from credential store: %w", key, err)
	}
	return nil
}
