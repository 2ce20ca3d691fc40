//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/gitbridge/internal/domain/commands"
	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// StubVersionControl is a stub implementation of commands.VersionControl that
// records the arguments of the calls controllers make.
type StubVersionControl struct {
	Err      error
	Tags     []string
	Branches []entities.RemoteBranch
	Download *entities.Download

	Created        []string
	Renamed        [][2]string
	BranchInputs   []entities.BranchInput
	ReadInputs     []entities.ReadFileInput
	Updates        [][3]string
	Validated      []commands.ValidateRepoInput
	AccessChecks   int
	Registered     []commands.ValidateRepoInput
	CreatedTags    [][2]string
	CommitRequests [][2]string
	FolderRequests []string
}

var _ commands.VersionControl = (*StubVersionControl)(nil)

func (s *StubVersionControl) CreateRepo(_ context.Context, _ entities.Identity, name string) (*entities.CreatedRepo, error) {
	s.Created = append(s.Created, name)
	return &entities.CreatedRepo{Name: name}, s.Err
}

func (s *StubVersionControl) RenameRepo(
	_ context.Context,
	_ *commands.RepoContext,
	oldName, newName string,
) (*entities.CreatedRepo, error) {
	s.Renamed = append(s.Renamed, [2]string{oldName, newName})
	return &entities.CreatedRepo{Name: newName}, s.Err
}

func (s *StubVersionControl) ListBranches(_ context.Context, _ *commands.RepoContext) ([]entities.RemoteBranch, error) {
	return s.Branches, s.Err
}

func (s *StubVersionControl) CreateBranch(
	_ context.Context,
	_ *commands.RepoContext,
	input entities.BranchInput,
) (*entities.Branch, error) {
	s.BranchInputs = append(s.BranchInputs, input)
	return &entities.Branch{Name: input.Name, Freeze: input.Freeze, Share: input.Share}, s.Err
}

func (s *StubVersionControl) ReadFile(
	_ context.Context,
	_ *commands.RepoContext,
	input entities.ReadFileInput,
) (*entities.FileContent, error) {
	s.ReadInputs = append(s.ReadInputs, input)
	return &entities.FileContent{}, s.Err
}

func (s *StubVersionControl) UpdateFile(
	_ context.Context,
	_ *commands.RepoContext,
	filePath, content, message string,
) (*entities.UpdatedFile, error) {
	s.Updates = append(s.Updates, [3]string{filePath, content, message})
	return &entities.UpdatedFile{}, s.Err
}

func (s *StubVersionControl) ListRepo(
	_ context.Context,
	_ *commands.RepoContext,
	_ string,
	_ int,
) ([]entities.FileEntry, error) {
	return nil, s.Err
}

func (s *StubVersionControl) GetLatestCommitID(_ context.Context, _ *commands.RepoContext) (string, error) {
	return "abc123", s.Err
}

func (s *StubVersionControl) GetCommits(
	_ context.Context,
	_ *commands.RepoContext,
	branch, pageNo string,
	_ int,
) entities.CommitPage {
	s.CommitRequests = append(s.CommitRequests, [2]string{branch, pageNo})
	return entities.CommitPage{}
}

func (s *StubVersionControl) GetChangeFilenames(
	_ context.Context,
	_ *commands.RepoContext,
	_ string,
) entities.ChangedFiles {
	return entities.ChangedFiles{}
}

func (s *StubVersionControl) ValidateRepo(
	_ context.Context,
	_ entities.Identity,
	input commands.ValidateRepoInput,
) error {
	s.Validated = append(s.Validated, input)
	return s.Err
}

func (s *StubVersionControl) ValidateRepoAccess(_ context.Context, _ *commands.RepoContext) error {
	s.AccessChecks++
	return s.Err
}

func (s *StubVersionControl) DownloadFile(
	_ context.Context,
	_ *commands.RepoContext,
	_, _ string,
) (*entities.Download, error) {
	return s.Download, s.Err
}

func (s *StubVersionControl) DownloadFolder(
	_ context.Context,
	_ *commands.RepoContext,
	dirPath, _ string,
) (*entities.Download, error) {
	s.FolderRequests = append(s.FolderRequests, dirPath)
	return s.Download, s.Err
}

func (s *StubVersionControl) AddGitRepo(
	_ context.Context,
	_ entities.Identity,
	input commands.ValidateRepoInput,
) (*entities.Repository, error) {
	s.Registered = append(s.Registered, input)
	repo := input.Repository
	return &repo, s.Err
}

func (s *StubVersionControl) DeleteRepoSecrets(_ context.Context, _ entities.Repository) error {
	return s.Err
}

func (s *StubVersionControl) CreateTag(_ context.Context, _ *commands.RepoContext, name, message string) error {
	s.CreatedTags = append(s.CreatedTags, [2]string{name, message})
	return s.Err
}

func (s *StubVersionControl) ListTags(_ context.Context, _ *commands.RepoContext) ([]string, error) {
	return s.Tags, s.Err
}
