package commands

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitbridge/internal/infrastructure/repositories"
)

const (
	contentTypeOctetStream = "application/octet-stream"
	contentTypeZip         = "application/zip"

	usernameField      = "username"
	passwordField      = "password"
	proxyUsernameField = "proxy_username"
	proxyPasswordField = "proxy_password"
)

// ErrFrozenBranch is returned when writing to a branch flagged as frozen.
var ErrFrozenBranch = errors.New("branch is frozen")

// ValidateRepoInput is a repository about to be registered and the branch it will use.
type ValidateRepoInput struct {
	Repository entities.Repository
	Branch     string
}

// VersionControl is every repository operation exposed to the outer layers.
type VersionControl interface {
	CreateRepo(ctx context.Context, identity entities.Identity, name string) (*entities.CreatedRepo, error)
	RenameRepo(ctx context.Context, repoCtx *RepoContext, oldName, newName string) (*entities.CreatedRepo, error)
	ListBranches(ctx context.Context, repoCtx *RepoContext) ([]entities.RemoteBranch, error)
	CreateBranch(ctx context.Context, repoCtx *RepoContext, input entities.BranchInput) (*entities.Branch, error)
	ReadFile(ctx context.Context, repoCtx *RepoContext, input entities.ReadFileInput) (*entities.FileContent, error)
	UpdateFile(ctx context.Context, repoCtx *RepoContext, filePath, content, message string) (*entities.UpdatedFile, error)
	ListRepo(ctx context.Context, repoCtx *RepoContext, dirPath string, limit int) ([]entities.FileEntry, error)
	GetLatestCommitID(ctx context.Context, repoCtx *RepoContext) (string, error)
	GetCommits(ctx context.Context, repoCtx *RepoContext, branch, pageNo string, perPage int) entities.CommitPage
	GetChangeFilenames(ctx context.Context, repoCtx *RepoContext, commitID string) entities.ChangedFiles
	ValidateRepo(ctx context.Context, identity entities.Identity, input ValidateRepoInput) error
	ValidateRepoAccess(ctx context.Context, repoCtx *RepoContext) error
	DownloadFile(ctx context.Context, repoCtx *RepoContext, filePath, branch string) (*entities.Download, error)
	DownloadFolder(ctx context.Context, repoCtx *RepoContext, dirPath, branch string) (*entities.Download, error)
	AddGitRepo(ctx context.Context, identity entities.Identity, input ValidateRepoInput) (*entities.Repository, error)
	DeleteRepoSecrets(ctx context.Context, repo entities.Repository) error
	CreateTag(ctx context.Context, repoCtx *RepoContext, name, message string) error
	ListTags(ctx context.Context, repoCtx *RepoContext) ([]string, error)
}

// VersionControlCommand delegates repository operations to the provider of a RepoContext.
type VersionControlCommand struct {
	state            StateManager
	store            repositories.GitRepositoryStore
	secrets          repositories.SecretRepository
	workingCopy      repositories.WorkingCopyRepository
	providerRegistry *infraRepos.ProviderRegistry
}

// NewVersionControlCommand creates a new VersionControlCommand.
func NewVersionControlCommand(
	state StateManager,
	store repositories.GitRepositoryStore,
	secrets repositories.SecretRepository,
	workingCopy repositories.WorkingCopyRepository,
	providerRegistry *infraRepos.ProviderRegistry,
) *VersionControlCommand {
	return &VersionControlCommand{
		state:            state,
		store:            store,
		secrets:          secrets,
		workingCopy:      workingCopy,
		providerRegistry: providerRegistry,
	}
}

// CreateRepo creates a repository through the configured default provider.
func (it *VersionControlCommand) CreateRepo(
	ctx context.Context,
	identity entities.Identity,
	name string,
) (*entities.CreatedRepo, error) {
	provider := it.providerRegistry.Get(
		entities.Repository{ProjectID: identity.ProjectID, Name: name}, entities.Credentials{}, nil,
	)
	if provider == nil {
		return nil, fmt.Errorf("%w: no default provider", entities.ErrProviderNotConfigured)
	}
	created, err := provider.CreateRepo(ctx, name)
	if err != nil {
		return nil, err
	}
	logger.Infof("Created repository %q at %s", created.Name, created.URL)
	return created, nil
}

// RenameRepo renames the remote repository and keeps the stored descriptor in sync.
func (it *VersionControlCommand) RenameRepo(
	ctx context.Context,
	repoCtx *RepoContext,
	oldName, newName string,
) (*entities.CreatedRepo, error) {
	renamed, err := repoCtx.Provider.RenameRepo(ctx, oldName, newName)
	if err != nil {
		return nil, err
	}

	repo := repoCtx.Repository
	repo.Name = renamed.Name
	if renamed.URL != "" {
		repo.URL = renamed.URL
	}
	if err = it.store.UpdateGitRepo(ctx, &repo); err != nil {
		return nil, err
	}
	repoCtx.Repository = repo
	return renamed, nil
}

func (it *VersionControlCommand) ListBranches(
	ctx context.Context,
	repoCtx *RepoContext,
) ([]entities.RemoteBranch, error) {
	return repoCtx.Provider.FetchBranches(ctx)
}

// CreateBranch creates the branch remotely and caches it as a non-default branch.
func (it *VersionControlCommand) CreateBranch(
	ctx context.Context,
	repoCtx *RepoContext,
	input entities.BranchInput,
) (*entities.Branch, error) {
	if err := repoCtx.Provider.CreateBranch(ctx, input.Name, input.StartPoint); err != nil {
		return nil, err
	}
	branch := &entities.Branch{
		RepoID: repoCtx.Repository.ID,
		Name:   input.Name,
		Freeze: input.Freeze,
		Share:  input.Share,
	}
	if err := it.store.AddBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// ReadFile reads at the active branch when the input names no ref.
func (it *VersionControlCommand) ReadFile(
	ctx context.Context,
	repoCtx *RepoContext,
	input entities.ReadFileInput,
) (*entities.FileContent, error) {
	if input.Ref == "" {
		input.Ref = repoCtx.BranchName()
		input.RefType = entities.RefTypeBranch
	}
	return repoCtx.Provider.ReadFile(ctx, input)
}

// UpdateFile commits content to the active branch as the acting user.
func (it *VersionControlCommand) UpdateFile(
	ctx context.Context,
	repoCtx *RepoContext,
	filePath, content, message string,
) (*entities.UpdatedFile, error) {
	if repoCtx.Branch != nil && repoCtx.Branch.Freeze {
		return nil, fmt.Errorf("%w: %s", ErrFrozenBranch, repoCtx.Branch.Name)
	}
	if message == "" {
		message = "Update " + path.Base(filePath)
	}
	return repoCtx.Provider.UpdateFile(ctx, entities.UpdateFileInput{
		Path:    filePath,
		Content: content,
		Message: message,
		Branch:  repoCtx.BranchName(),
		Author:  repoCtx.Identity,
	})
}

// ListRepo lists one level of the active branch; an empty path lists the base folder.
func (it *VersionControlCommand) ListRepo(
	ctx context.Context,
	repoCtx *RepoContext,
	dirPath string,
	limit int,
) ([]entities.FileEntry, error) {
	if dirPath == "" {
		dirPath = repoCtx.Repository.BaseFolder
	}
	return repoCtx.Provider.ListFiles(ctx, dirPath, repoCtx.BranchName(), limit)
}

func (it *VersionControlCommand) GetLatestCommitID(ctx context.Context, repoCtx *RepoContext) (string, error) {
	return repoCtx.Provider.LatestCommitID(ctx, repoCtx.BranchName())
}

// GetCommits never fails; an invalid page request is reported as not found.
func (it *VersionControlCommand) GetCommits(
	ctx context.Context,
	repoCtx *RepoContext,
	branch, pageNo string,
	perPage int,
) entities.CommitPage {
	page, err := entities.ParsePage(pageNo, perPage)
	if err != nil {
		return entities.CommitsNotFound(err.Error())
	}
	if branch == "" {
		branch = repoCtx.BranchName()
	}
	return repoCtx.Provider.GetCommits(ctx, branch, page)
}

func (it *VersionControlCommand) GetChangeFilenames(
	ctx context.Context,
	repoCtx *RepoContext,
	commitID string,
) entities.ChangedFiles {
	return repoCtx.Provider.GetFiles(ctx, commitID)
}

// ValidateRepo checks a repository before registration: credentials resolve, the
// provider answers, the branch exists and the user may write to it.
func (it *VersionControlCommand) ValidateRepo(
	ctx context.Context,
	identity entities.Identity,
	input ValidateRepoInput,
) error {
	repoCtx, err := it.state.Connect(ctx, input.Repository, identity)
	if err != nil {
		return err
	}
	branches, err := repoCtx.Provider.FetchBranches(ctx)
	if err != nil {
		return err
	}
	if input.Branch != "" && !slices.ContainsFunc(branches, func(branch entities.RemoteBranch) bool {
		return branch.Name == input.Branch
	}) {
		return entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, repoCtx.Provider.Name(),
			fmt.Sprintf("branch %q does not exist", input.Branch), nil)
	}
	return repoCtx.Provider.ValidateRepoAccess(ctx)
}

func (it *VersionControlCommand) ValidateRepoAccess(ctx context.Context, repoCtx *RepoContext) error {
	return repoCtx.Provider.ValidateRepoAccess(ctx)
}

// DownloadFile returns the decoded bytes of one file.
func (it *VersionControlCommand) DownloadFile(
	ctx context.Context,
	repoCtx *RepoContext,
	filePath, branch string,
) (*entities.Download, error) {
	data, err := it.readBytes(ctx, repoCtx, filePath, branch)
	if err != nil {
		return nil, err
	}
	return &entities.Download{Name: path.Base(filePath), ContentType: contentTypeOctetStream, Data: data}, nil
}

// DownloadFolder zips a folder recursively. The archive is built in memory, so
// nothing is left on disk whatever the outcome.
func (it *VersionControlCommand) DownloadFolder(
	ctx context.Context,
	repoCtx *RepoContext,
	dirPath, branch string,
) (*entities.Download, error) {
	if branch == "" {
		branch = repoCtx.BranchName()
	}
	root := strings.Trim(dirPath, "/")

	var buffer bytes.Buffer
	archive := zip.NewWriter(&buffer)
	if err := it.zipFolder(ctx, repoCtx, archive, root, root, branch); err != nil {
		_ = archive.Close()
		return nil, err
	}
	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive of %q: %w", dirPath, err)
	}

	name := path.Base(root)
	if root == "" {
		name = repoCtx.Repository.Name
	}
	return &entities.Download{Name: name + ".zip", ContentType: contentTypeZip, Data: buffer.Bytes()}, nil
}

func (it *VersionControlCommand) zipFolder(
	ctx context.Context,
	repoCtx *RepoContext,
	archive *zip.Writer,
	root, dir, branch string,
) error {
	entries, err := repoCtx.Provider.ListFiles(ctx, dir, branch, 0)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Type == entities.FileTypeTree {
			if err = it.zipFolder(ctx, repoCtx, archive, root, entry.Path, branch); err != nil {
				return err
			}
			continue
		}

		data, readErr := it.readBytes(ctx, repoCtx, entry.Path, branch)
		if readErr != nil {
			return readErr
		}
		name := strings.Trim(entry.Path, "/")
		if root != "" {
			name = strings.TrimPrefix(name, root+"/")
		}
		writer, createErr := archive.Create(name)
		if createErr != nil {
			return fmt.Errorf("failed to add %q to archive: %w", entry.Path, createErr)
		}
		if _, writeErr := writer.Write(data); writeErr != nil {
			return fmt.Errorf("failed to add %q to archive: %w", entry.Path, writeErr)
		}
	}
	return nil
}

func (it *VersionControlCommand) readBytes(
	ctx context.Context,
	repoCtx *RepoContext,
	filePath, branch string,
) ([]byte, error) {
	content, err := it.ReadFile(ctx, repoCtx, entities.ReadFileInput{
		Path: filePath, Ref: branch, RefType: entities.RefTypeBranch,
	})
	if err != nil {
		return nil, err
	}
	return content.Bytes()
}

// AddGitRepo validates and registers a repository. Private credentials and proxy
// credentials are written to the secret store; only "vault:" references are persisted.
func (it *VersionControlCommand) AddGitRepo(
	ctx context.Context,
	identity entities.Identity,
	input ValidateRepoInput,
) (*entities.Repository, error) {
	repo := input.Repository
	repo.ProjectID = identity.ProjectID
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = input.Branch
	}
	if repo.Status == "" {
		repo.Status = entities.RepoStatusEnabled
	}
	if err := it.ValidateRepo(ctx, identity, ValidateRepoInput{Repository: repo, Branch: repo.DefaultBranch}); err != nil {
		return nil, err
	}

	repo.ID = uuid.NewString()
	stored, err := it.storeSecrets(ctx, repo)
	if err != nil {
		return nil, err
	}
	if err = it.store.AddGitRepo(ctx, &stored); err != nil {
		if cleanupErr := it.DeleteRepoSecrets(ctx, stored); cleanupErr != nil {
			logger.Warnf("Failed to remove secrets of unregistered repository %q: %v", stored.Name, cleanupErr)
		}
		return nil, err
	}
	if repo.DefaultBranch != "" {
		branch := &entities.Branch{RepoID: stored.ID, Name: repo.DefaultBranch, Default: true}
		if err = it.store.AddBranch(ctx, branch); err != nil {
			it.rollbackRegistration(ctx, stored)
			return nil, err
		}
	}

	logger.Infof("Registered repository %q (%s) in project %q", stored.Name, stored.Type, stored.ProjectID)
	redacted := stored.Redacted()
	return &redacted, nil
}

// rollbackRegistration removes a repository row whose default branch could not be stored.
func (it *VersionControlCommand) rollbackRegistration(ctx context.Context, repo entities.Repository) {
	if err := it.store.DeleteGitRepo(ctx, repo.ID); err != nil {
		logger.Warnf("Failed to remove partially registered repository %q: %v", repo.Name, err)
	}
	if err := it.DeleteRepoSecrets(ctx, repo); err != nil {
		logger.Warnf("Failed to remove secrets of unregistered repository %q: %v", repo.Name, err)
	}
}

func (it *VersionControlCommand) storeSecrets(ctx context.Context, repo entities.Repository) (entities.Repository, error) {
	toVault := func(field, value string) (string, error) {
		if value == "" {
			return "", nil
		}
		if _, isRef := entities.ParseSecretReference(value); isRef {
			return value, nil
		}
		key := entities.SecretKey(repo.ID, field)
		if err := it.secrets.Store(ctx, key, value); err != nil {
			return "", err
		}
		return entities.SecretReference(key), nil
	}

	var err error
	if repo.IsPrivate() {
		if repo.Username, err = toVault(usernameField, repo.Username); err != nil {
			return repo, err
		}
		if repo.Password, err = toVault(passwordField, repo.Password); err != nil {
			return repo, err
		}
	}
	if repo.Proxy != nil {
		proxy := *repo.Proxy
		if proxy.Username, err = toVault(proxyUsernameField, proxy.Username); err != nil {
			return repo, err
		}
		if proxy.Password, err = toVault(proxyPasswordField, proxy.Password); err != nil {
			return repo, err
		}
		repo.Proxy = &proxy
	}
	return repo, nil
}

// DeleteRepoSecrets removes every secret owned by the repository.
func (it *VersionControlCommand) DeleteRepoSecrets(ctx context.Context, repo entities.Repository) error {
	var errs []error
	for _, field := range []string{usernameField, passwordField, proxyUsernameField, proxyPasswordField} {
		if err := it.secrets.Delete(ctx, entities.SecretKey(repo.ID, field)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateTag tags the head of the active branch.
func (it *VersionControlCommand) CreateTag(ctx context.Context, repoCtx *RepoContext, name, message string) error {
	return it.workingCopy.CreateTag(ctx, entities.TagInput{
		Remote:  repoCtx.Remote(),
		Branch:  repoCtx.BranchName(),
		Name:    name,
		Message: message,
		Author:  repoCtx.Identity,
	})
}

func (it *VersionControlCommand) ListTags(ctx context.Context, repoCtx *RepoContext) ([]string, error) {
	return it.workingCopy.ListTags(ctx, repoCtx.Remote())
}
