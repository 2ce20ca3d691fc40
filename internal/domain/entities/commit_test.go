//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

func TestParsePage(t *testing.T) {
	t.Parallel()

	t.Run("should default to the first page", func(t *testing.T) {
		t.Parallel()

		// when
		page, err := entities.ParsePage("", 0)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.PageRequest{Number: 1, PerPage: entities.DefaultPerPage}, page)
	})

	t.Run("should request the full history for all", func(t *testing.T) {
		t.Parallel()

		// when
		page, err := entities.ParsePage("ALL", 10)

		// then
		require.NoError(t, err)
		assert.True(t, page.All)
		assert.Equal(t, entities.MaxPerPage, page.PerPage)
	})

	t.Run("should compute the offset and cap the page size", func(t *testing.T) {
		t.Parallel()

		// when
		page, err := entities.ParsePage("3", 500)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.MaxPerPage, page.PerPage)
		assert.Equal(t, 200, page.Offset())
	})

	t.Run("should reject a non-numeric page", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := entities.ParsePage("first", 10)

		// then
		require.Error(t, err)
	})
}

func TestCommitsFound(t *testing.T) {
	t.Parallel()

	t.Run("should report not found for an empty listing", func(t *testing.T) {
		t.Parallel()

		// when
		page := entities.CommitsFound(nil)

		// then
		assert.False(t, page.Found)
		assert.NotNil(t, page.Commits)
		assert.NotEmpty(t, page.Message)
	})
}
