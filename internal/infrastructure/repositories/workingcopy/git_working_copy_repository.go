// Package workingcopy runs git operations against temporary local clones with go-git.
package workingcopy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	gitforgeGit "github.com/rios0rios0/gitforge/pkg/git/infrastructure"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
)

const (
	componentName = "workingcopy"
	remoteName    = "origin"
	tempPattern   = "gitbridge-*"
)

// defaultRejectionPatterns are server-side policy messages that mean the push was
// refused on purpose rather than broken.
//
//nolint:gochecknoglobals // read-only defaults
var defaultRejectionPatterns = []string{
	"pre-receive hook declined",
	"protected branch",
	"GH006",
	"You are not allowed to push code to protected branches",
	"TF402455",
	"issue key",
	"JIRA issue",
	"push declined",
}

// GitWorkingCopyRepository implements repositories.WorkingCopyRepository with go-git.
type GitWorkingCopyRepository struct {
	workDir           string
	rejectionPatterns []string
}

var _ repositories.WorkingCopyRepository = (*GitWorkingCopyRepository)(nil)

// NewGitWorkingCopyRepository creates a working-copy repository whose rejection
// patterns are the defaults plus the configured ones.
func NewGitWorkingCopyRepository(settings *entities.Settings) *GitWorkingCopyRepository {
	patterns := append([]string{}, defaultRejectionPatterns...)
	patterns = append(patterns, settings.Push.RejectionPatterns...)
	return &GitWorkingCopyRepository{workDir: settings.WorkDir, rejectionPatterns: patterns}
}

func (it *GitWorkingCopyRepository) Clone(ctx context.Context, input entities.CloneInput) error {
	_, err := it.clone(ctx, input.Dir, input.Remote, input.Branch)
	return err
}

func (it *GitWorkingCopyRepository) clone(
	ctx context.Context,
	dir string,
	remote entities.Remote,
	branch string,
) (*git.Repository, error) {
	options := &git.CloneOptions{
		URL:          remote.URL,
		RemoteName:   remoteName,
		SingleBranch: true,
		Auth:         authFor(remote),
	}
	if branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	if remote.Proxy != nil {
		options.ProxyOptions = proxyFor(remote.Proxy)
		options.InsecureSkipTLS = !remote.Proxy.SSLVerify
	}

	logger.Debugf("[%s] Cloning %q (branch %q) into %s", componentName, redact(remote.URL), branch, dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, options)
	if err != nil {
		return nil, classifyClone(remote.URL, branch, err)
	}
	return repo, nil
}

func (it *GitWorkingCopyRepository) CommitAndPush(ctx context.Context, input entities.CommitInput) (string, error) {
	repo, err := git.PlainOpen(input.Dir)
	if err != nil {
		return "", entities.NewVCSError(entities.ErrVCS, componentName,
			fmt.Sprintf("opening working copy %s", input.Dir), err)
	}
	return it.commitAndPush(ctx, repo, input)
}

func (it *GitWorkingCopyRepository) commitAndPush(
	ctx context.Context,
	repo *git.Repository,
	input entities.CommitInput,
) (string, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return "", entities.NewVCSError(entities.ErrVCS, componentName, "opening worktree", err)
	}
	if err = gitforgeGit.StageAll(worktree); err != nil {
		return "", entities.NewVCSError(entities.ErrVCS, componentName, "staging changes", err)
	}

	previous, err := repo.Head()
	if err != nil {
		return "", entities.NewVCSError(entities.ErrVCS, componentName, "resolving HEAD", err)
	}

	commit, err := gitforgeGit.CommitChanges(repo, worktree, input.Message, nil, input.Author.AuthorName(), input.Author.Email)
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", entities.NewVCSError(entities.ErrVCS, componentName, "nothing to commit", err)
		}
		return "", entities.NewVCSError(entities.ErrVCS, componentName, "committing changes", err)
	}

	refSpec := config.RefSpec(fmt.Sprintf("HEAD:refs/heads/%s", input.Branch))
	if pushErr := it.push(ctx, repo, input.Remote, refSpec); pushErr != nil {
		var vcsErr *entities.VCSError
		if errors.As(pushErr, &vcsErr) && errors.Is(vcsErr.Kind, entities.ErrPushRejected) {
			// keep the changes staged so the caller can amend and retry
			resetErr := worktree.Reset(&git.ResetOptions{Commit: previous.Hash(), Mode: git.SoftReset})
			if resetErr != nil {
				logger.Errorf("[%s] Failed to soft reset %s after rejected push: %v", componentName, commit, resetErr)
			}
		}
		return "", pushErr
	}

	logger.Infof("[%s] Pushed %s to %q", componentName, commit.String()[:7], input.Branch)
	return commit.String(), nil
}

func (it *GitWorkingCopyRepository) push(
	ctx context.Context,
	repo *git.Repository,
	remote entities.Remote,
	refSpecs ...config.RefSpec,
) error {
	var progress bytes.Buffer
	options := &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   refSpecs,
		Auth:       authFor(remote),
		Progress:   &progress,
	}
	if remote.Proxy != nil {
		options.ProxyOptions = proxyFor(remote.Proxy)
		options.InsecureSkipTLS = !remote.Proxy.SSLVerify
	}

	err := repo.PushContext(ctx, options)
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}

	// hooks report through the sideband, so the progress output is searched as well
	output := err.Error() + "\n" + progress.String()
	if pattern, ok := it.matchRejection(output); ok {
		logger.Warnf("[%s] Push rejected by server policy (%q)", componentName, pattern)
		return entities.NewVCSError(entities.ErrPushRejected, componentName, pattern, err)
	}

	if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
		return entities.NewVCSError(entities.ErrRepoAuthentication, componentName, "pushing", err)
	}
	logger.Errorf("[%s] Push failed: %v", componentName, err)
	return entities.NewVCSError(entities.ErrPushFailure, componentName, err.Error(), err)
}

func (it *GitWorkingCopyRepository) matchRejection(output string) (string, bool) {
	lowered := strings.ToLower(output)
	for _, pattern := range it.rejectionPatterns {
		if pattern != "" && strings.Contains(lowered, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}

// CloneAndPush owns a temporary directory that is removed on every exit path.
func (it *GitWorkingCopyRepository) CloneAndPush(
	ctx context.Context,
	input entities.CloneAndPushInput,
) (string, error) {
	var commitID string
	err := it.withTempDir(func(dir string) error {
		repo, err := it.clone(ctx, dir, input.Remote, input.Branch)
		if err != nil {
			return err
		}
		if err = applyChanges(dir, input.Changes); err != nil {
			return err
		}

		commitID, err = it.commitAndPush(ctx, repo, entities.CommitInput{
			Dir:     dir,
			Remote:  input.Remote,
			Branch:  input.Branch,
			Message: input.Message,
			Author:  input.Author,
		})
		return err
	})
	return commitID, err
}

func (it *GitWorkingCopyRepository) CreateTag(ctx context.Context, input entities.TagInput) error {
	return it.withTempDir(func(dir string) error {
		repo, err := it.clone(ctx, dir, input.Remote, input.Branch)
		if err != nil {
			return err
		}

		head, err := repo.Head()
		if err != nil {
			return entities.NewVCSError(entities.ErrVCS, componentName, "resolving HEAD", err)
		}

		var options *git.CreateTagOptions
		if input.Message != "" {
			options = &git.CreateTagOptions{Tagger: signature(input.Author), Message: input.Message}
		}
		if _, err = repo.CreateTag(input.Name, head.Hash(), options); err != nil {
			return entities.NewVCSError(entities.ErrVCS, componentName, fmt.Sprintf("creating tag %q", input.Name), err)
		}

		refSpec := config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", input.Name, input.Name))
		if err = it.push(ctx, repo, input.Remote, refSpec); err != nil {
			return err
		}

		logger.Infof("[%s] Tagged %s as %q", componentName, head.Hash().String()[:7], input.Name)
		return nil
	})
}

// ListTags queries the remote without cloning it.
func (it *GitWorkingCopyRepository) ListTags(ctx context.Context, remote entities.Remote) ([]string, error) {
	lister := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{Name: remoteName, URLs: []string{remote.URL}})

	options := &git.ListOptions{Auth: authFor(remote)}
	if remote.Proxy != nil {
		options.ProxyOptions = proxyFor(remote.Proxy)
		options.InsecureSkipTLS = !remote.Proxy.SSLVerify
	}

	refs, err := lister.ListContext(ctx, options)
	if err != nil {
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return []string{}, nil
		}
		return nil, classifyClone(remote.URL, "", err)
	}

	tags := []string{}
	for _, ref := range refs {
		if ref.Name().IsTag() && !strings.HasSuffix(ref.Name().String(), "^{}") {
			tags = append(tags, ref.Name().Short())
		}
	}
	sortVersionsDescending(tags)
	return tags, nil
}

func (it *GitWorkingCopyRepository) withTempDir(fn func(dir string) error) error {
	dir, err := os.MkdirTemp(it.workDir, tempPattern)
	if err != nil {
		return entities.NewVCSError(entities.ErrVCS, componentName, "creating temporary directory", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			logger.Errorf("[%s] Failed to remove %s: %v", componentName, dir, removeErr)
		}
	}()
	return fn(dir)
}

func applyChanges(dir string, changes []entities.FileChange) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return entities.NewVCSError(entities.ErrVCS, componentName, "resolving working copy", err)
	}

	for _, change := range changes {
		target := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(change.Path, "/")))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, componentName,
				fmt.Sprintf("path %q escapes the repository", change.Path), nil)
		}

		switch change.ChangeType {
		case entities.FileChangeDelete:
			if err = os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
				return entities.NewVCSError(entities.ErrVCS, componentName, fmt.Sprintf("deleting %q", change.Path), err)
			}
		default:
			if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return entities.NewVCSError(entities.ErrVCS, componentName, fmt.Sprintf("writing %q", change.Path), err)
			}
			if err = os.WriteFile(target, change.Content, 0o644); err != nil { //nolint:gosec // repository files are world-readable
				return entities.NewVCSError(entities.ErrVCS, componentName, fmt.Sprintf("writing %q", change.Path), err)
			}
		}
	}
	return nil
}

func authFor(remote entities.Remote) transport.AuthMethod {
	if remote.Credentials.IsZero() || !strings.HasPrefix(remote.URL, "http") {
		return nil
	}
	username := remote.Credentials.Username
	if username == "" {
		// token-only remotes accept any non-empty username
		username = "git"
	}
	return &githttp.BasicAuth{Username: username, Password: remote.Credentials.Password}
}

func proxyFor(proxy *entities.ResolvedProxy) transport.ProxyOptions {
	return transport.ProxyOptions{URL: proxy.Address(), Username: proxy.Username, Password: proxy.Password}
}

func signature(author entities.Identity) *object.Signature {
	return &object.Signature{Name: author.AuthorName(), Email: author.Email, When: time.Now()}
}

func classifyClone(url, branch string, err error) error {
	message := fmt.Sprintf("cloning %q", redact(url))
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return entities.NewVCSError(entities.ErrRepoAuthentication, componentName, message, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return entities.NewVCSError(entities.ErrInvalidRepoURL, componentName, message, err)
	case errors.Is(err, git.NoMatchingRefSpecError{}), errors.Is(err, plumbing.ErrReferenceNotFound):
		return entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, componentName,
			fmt.Sprintf("branch %q does not exist", branch), err)
	default:
		logger.Errorf("[%s] %s: %v", componentName, message, err)
		return entities.NewVCSError(entities.ErrCloneFailure, componentName, message, err)
	}
}

// redact drops userinfo from a remote URL before it is logged.
func redact(raw string) string {
	if at := strings.Index(raw, "@"); at >= 0 {
		if scheme := strings.Index(raw, "://"); scheme >= 0 && scheme < at {
			return raw[:scheme+3] + raw[at+1:]
		}
	}
	return raw
}
