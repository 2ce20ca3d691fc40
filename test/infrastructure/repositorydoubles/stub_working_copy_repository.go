//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

// SpyWorkingCopyRepository records every working-copy call and answers with canned results.
type SpyWorkingCopyRepository struct {
	Clones     []entities.CloneInput
	CloneErr   error
	CloneFiles map[string]string // written into Dir on Clone

	Commits   []entities.CommitInput
	CommitID  string
	CommitErr error

	Pushes  []entities.CloneAndPushInput
	PushID  string
	PushErr error

	TagInputs []entities.TagInput
	TagErr    error

	Tags       []string
	ListTagErr error
}

var _ repositories.WorkingCopyRepository = (*SpyWorkingCopyRepository)(nil)

func (s *SpyWorkingCopyRepository) Clone(_ context.Context, input entities.CloneInput) error {
	s.Clones = append(s.Clones, input)
	if s.CloneErr != nil {
		return s.CloneErr
	}
	return writeFiles(input.Dir, s.CloneFiles)
}

func (s *SpyWorkingCopyRepository) CommitAndPush(_ context.Context, input entities.CommitInput) (string, error) {
	s.Commits = append(s.Commits, input)
	return s.CommitID, s.CommitErr
}

func (s *SpyWorkingCopyRepository) CloneAndPush(_ context.Context, input entities.CloneAndPushInput) (string, error) {
	s.Pushes = append(s.Pushes, input)
	return s.PushID, s.PushErr
}

func (s *SpyWorkingCopyRepository) CreateTag(_ context.Context, input entities.TagInput) error {
	s.TagInputs = append(s.TagInputs, input)
	return s.TagErr
}

func (s *SpyWorkingCopyRepository) ListTags(_ context.Context, _ entities.Remote) ([]string, error) {
	return s.Tags, s.ListTagErr
}
