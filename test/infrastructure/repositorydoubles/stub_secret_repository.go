//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"errors"

	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

// ErrSecretMissing is returned by SpySecretRepository for unknown keys.
var ErrSecretMissing = errors.New("secret not found")

// SpySecretRepository is an in-memory secret store recording every call.
type SpySecretRepository struct {
	Secrets     map[string]string
	StoreErr    error
	RetrieveErr error
	Retrieved   []string
	Deleted     []string
}

var _ repositories.SecretRepository = (*SpySecretRepository)(nil)

func (s *SpySecretRepository) Store(_ context.Context, key, value string) error {
	if s.StoreErr != nil {
		return s.StoreErr
	}
	if s.Secrets == nil {
		s.Secrets = make(map[string]string)
	}
	s.Secrets[key] = value
	return nil
}

func (s *SpySecretRepository) Retrieve(_ context.Context, key string) (string, error) {
	s.Retrieved = append(s.Retrieved, key)
	if s.RetrieveErr != nil {
		return "", s.RetrieveErr
	}
	value, ok := s.Secrets[key]
	if !ok {
		return "", ErrSecretMissing
	}
	return value, nil
}

func (s *SpySecretRepository) Delete(_ context.Context, key string) error {
	s.Deleted = append(s.Deleted, key)
	delete(s.Secrets, key)
	return nil
}
