//go:build unit

package entities_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

func TestVCSError(t *testing.T) {
	t.Parallel()

	t.Run("should match both its kind and its cause", func(t *testing.T) {
		t.Parallel()

		// given
		cause := errors.New("dial tcp: timeout")

		// when
		err := fmt.Errorf("wrapped: %w",
			entities.NewVCSError(entities.ErrInvalidRepoURL, "gitlab", "project not found", cause))

		// then
		assert.ErrorIs(t, err, entities.ErrInvalidRepoURL)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, entities.ErrRepoAuthentication)
		assert.Contains(t, err.Error(), "[gitlab] invalid repository url: project not found")
	})
}

func TestCredentialResolutionError(t *testing.T) {
	t.Parallel()

	t.Run("should name every unresolved field", func(t *testing.T) {
		t.Parallel()

		// when
		err := &entities.CredentialResolutionError{Fields: []string{"username", "password"}}

		// then
		assert.ErrorIs(t, err, entities.ErrCredentialResolution)
		assert.Contains(t, err.Error(), "username and password")
	})
}

func TestHTTPStatusFor(t *testing.T) {
	t.Parallel()

	t.Run("should map the taxonomy onto HTTP statuses", func(t *testing.T) {
		t.Parallel()

		// given
		cases := map[error]int{
			nil:                                  http.StatusOK,
			entities.ErrRepoAuthentication:       http.StatusUnauthorized,
			entities.ErrRepoAccess:               http.StatusForbidden,
			entities.ErrAPIAuthorization:         http.StatusForbidden,
			entities.ErrInvalidRepoURL:           http.StatusNotFound,
			entities.ErrRepoAlreadyExists:        http.StatusConflict,
			entities.ErrBranchOperationFailure:   http.StatusConflict,
			entities.ErrInvalidBranchOrBaseDir:   http.StatusBadRequest,
			entities.ErrProviderNotConfigured:    http.StatusBadRequest,
			entities.ErrVCS:                      http.StatusInternalServerError,
			errors.New("something unclassified"): http.StatusInternalServerError,
		}

		for err, expected := range cases {
			// when
			status := entities.HTTPStatusFor(err)

			// then
			assert.Equal(t, expected, status, "%v", err)
		}
	})
}
