//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations — no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

// SpyProviderRepository implements repositories.ProviderRepository as a configurable spy.
type SpyProviderRepository struct {
	// --- identity ---
	ProviderName string

	// --- CreateRepo / RenameRepo ---
	CreatedRepo   *entities.CreatedRepo
	CreateRepoErr error
	CreatedNames  []string
	RenameErr     error
	Renames       [][2]string

	// --- FetchBranches ---
	Branches         []entities.RemoteBranch
	FetchBranchesErr error

	// --- CreateBranch ---
	CreateBranchErr error
	BranchCreations [][2]string

	// --- ListFiles ---
	Files        []entities.FileEntry
	FilesByDir   map[string][]entities.FileEntry // takes precedence over Files
	ListFilesErr error
	ListedDirs   []string

	// --- ReadFile ---
	FileContents map[string]string
	ReadFileErr  error
	Reads        []entities.ReadFileInput

	// --- UpdateFile ---
	UpdatedFile   *entities.UpdatedFile
	UpdateFileErr error
	Updates       []entities.UpdateFileInput

	// --- GetCommits / GetFiles ---
	CommitPage   entities.CommitPage
	ChangedFiles entities.ChangedFiles

	// --- LatestCommitID ---
	LatestCommit    string
	LatestCommitErr error

	// --- ValidateRepoAccess ---
	AccessErr   error
	AccessCalls int
}

var _ repositories.ProviderRepository = (*SpyProviderRepository)(nil)

func (p *SpyProviderRepository) Name() string { return p.ProviderName }

func (p *SpyProviderRepository) CreateRepo(_ context.Context, name string) (*entities.CreatedRepo, error) {
	p.CreatedNames = append(p.CreatedNames, name)
	if p.CreateRepoErr != nil {
		return nil, p.CreateRepoErr
	}
	if p.CreatedRepo != nil {
		return p.CreatedRepo, nil
	}
	return &entities.CreatedRepo{Name: name, URL: fmt.Sprintf("https://example.com/acme/%s.git", name)}, nil
}

func (p *SpyProviderRepository) RenameRepo(_ context.Context, oldName, newName string) (*entities.CreatedRepo, error) {
	p.Renames = append(p.Renames, [2]string{oldName, newName})
	if p.RenameErr != nil {
		return nil, p.RenameErr
	}
	return &entities.CreatedRepo{Name: newName, URL: fmt.Sprintf("https://example.com/acme/%s.git", newName)}, nil
}

func (p *SpyProviderRepository) FetchBranches(_ context.Context) ([]entities.RemoteBranch, error) {
	return p.Branches, p.FetchBranchesErr
}

func (p *SpyProviderRepository) CreateBranch(_ context.Context, name, startPoint string) error {
	p.BranchCreations = append(p.BranchCreations, [2]string{name, startPoint})
	return p.CreateBranchErr
}

func (p *SpyProviderRepository) ListFiles(
	_ context.Context, dirPath, _ string, limit int,
) ([]entities.FileEntry, error) {
	p.ListedDirs = append(p.ListedDirs, dirPath)
	if p.ListFilesErr != nil {
		return nil, p.ListFilesErr
	}
	if entries, ok := p.FilesByDir[dirPath]; ok {
		return entries, nil
	}
	if limit > 0 && len(p.Files) > limit {
		return p.Files[:limit], nil
	}
	return p.Files, nil
}

func (p *SpyProviderRepository) ReadFile(
	_ context.Context, input entities.ReadFileInput,
) (*entities.FileContent, error) {
	p.Reads = append(p.Reads, input)
	if p.ReadFileErr != nil {
		return nil, p.ReadFileErr
	}
	content, ok := p.FileContents[input.Path]
	if !ok {
		return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, p.ProviderName,
			fmt.Sprintf("file not found: %s", input.Path), nil)
	}
	return entities.NewFileContent(input.Path, "https://example.com/"+input.Path, "sha-"+input.Path,
		[]byte(content), input.Raw)
}

func (p *SpyProviderRepository) UpdateFile(
	_ context.Context, input entities.UpdateFileInput,
) (*entities.UpdatedFile, error) {
	p.Updates = append(p.Updates, input)
	if p.UpdateFileErr != nil {
		return nil, p.UpdateFileErr
	}
	if p.UpdatedFile != nil {
		return p.UpdatedFile, nil
	}
	return &entities.UpdatedFile{SHA: "updated-sha", URL: "https://example.com/" + input.Path}, nil
}

func (p *SpyProviderRepository) GetCommits(
	_ context.Context, _ string, _ entities.PageRequest,
) entities.CommitPage {
	return p.CommitPage
}

func (p *SpyProviderRepository) GetFiles(_ context.Context, _ string) entities.ChangedFiles {
	return p.ChangedFiles
}

func (p *SpyProviderRepository) LatestCommitID(_ context.Context, _ string) (string, error) {
	return p.LatestCommit, p.LatestCommitErr
}

func (p *SpyProviderRepository) ValidateRepoAccess(_ context.Context) error {
	p.AccessCalls++
	return p.AccessErr
}

// DummyProviderRepository is a no-op implementation of repositories.ProviderRepository.
type DummyProviderRepository struct{}

var _ repositories.ProviderRepository = (*DummyProviderRepository)(nil)

func (d *DummyProviderRepository) Name() string { return "dummy" }
func (d *DummyProviderRepository) CreateRepo(_ context.Context, _ string) (*entities.CreatedRepo, error) {
	return &entities.CreatedRepo{}, nil
}
func (d *DummyProviderRepository) RenameRepo(_ context.Context, _, _ string) (*entities.CreatedRepo, error) {
	return &entities.CreatedRepo{}, nil
}
func (d *DummyProviderRepository) FetchBranches(_ context.Context) ([]entities.RemoteBranch, error) {
	return nil, nil
}
func (d *DummyProviderRepository) CreateBranch(_ context.Context, _, _ string) error { return nil }
func (d *DummyProviderRepository) ListFiles(_ context.Context, _, _ string, _ int) ([]entities.FileEntry, error) {
	return nil, nil
}
func (d *DummyProviderRepository) ReadFile(_ context.Context, _ entities.ReadFileInput) (*entities.FileContent, error) {
	return &entities.FileContent{}, nil
}
func (d *DummyProviderRepository) UpdateFile(_ context.Context, _ entities.UpdateFileInput) (*entities.UpdatedFile, error) {
	return &entities.UpdatedFile{}, nil
}
func (d *DummyProviderRepository) GetCommits(_ context.Context, _ string, _ entities.PageRequest) entities.CommitPage {
	return entities.CommitsNotFound("dummy")
}
func (d *DummyProviderRepository) GetFiles(_ context.Context, _ string) entities.ChangedFiles {
	return entities.ChangedFilesNotFound("dummy")
}
func (d *DummyProviderRepository) LatestCommitID(_ context.Context, _ string) (string, error) {
	return "", nil
}
func (d *DummyProviderRepository) ValidateRepoAccess(_ context.Context) error { return nil }
