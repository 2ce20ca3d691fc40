package repositories

import "context"

// SecretRepository is a keyed secret store.
type SecretRepository interface {
	Store(ctx context.Context, key, value string) error
	Retrieve(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
