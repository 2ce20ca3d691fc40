package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/httpclient"
)

const (
	providerName = "github"
	publicHost   = "github.com"
	perPage      = 100
)

var commitSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// GitHubProviderRepository implements repositories.ProviderRepository for GitHub and GitHub Enterprise.
type GitHubProviderRepository struct {
	client    *gh.Client
	owner     string
	name      string
	namespace string
}

// NewProviderRepository creates a GitHub provider bound to the repository in settings.
func NewProviderRepository(settings repositories.ProviderSettings) (repositories.ProviderRepository, error) {
	client := gh.NewClient(httpclient.New(settings.Timeout, settings.Proxy))
	if token := settings.Credentials.Password; token != "" {
		client = client.WithAuthToken(token)
	}

	p := &GitHubProviderRepository{namespace: settings.Namespace}
	baseURL := settings.BaseURL

	if settings.Repository.URL != "" {
		remote, err := httpclient.ParseRepoURL(providerName, settings.Repository.URL)
		if err != nil {
			return nil, err
		}
		if len(remote.Segments) < 2 {
			return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName,
				fmt.Sprintf("expected owner/repository in %q", settings.Repository.URL), nil)
		}
		p.owner = remote.Segments[0]
		p.name = remote.Segments[1]
		if baseURL == "" && remote.Hostname() != publicHost {
			baseURL = remote.Origin()
		}
	}

	if baseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName,
				fmt.Sprintf("malformed base url %q", baseURL), err)
		}
		client = enterprise
	}

	if p.namespace == "" {
		p.namespace = p.owner
	}
	p.client = client
	return p, nil
}

func (p *GitHubProviderRepository) Name() string { return providerName }

func (p *GitHubProviderRepository) CreateRepo(ctx context.Context, name string) (*entities.CreatedRepo, error) {
	private := true
	input := &gh.Repository{Name: &name, Private: &private}

	repo, resp, err := p.client.Repositories.Create(ctx, p.namespace, input)
	if err != nil && resp != nil && resp.StatusCode == http.StatusNotFound && p.namespace != "" {
		// Fall back to the authenticated user when the namespace is not an organization
		logger.Debugf("[%s] %q is not an organization, creating %q for the user", providerName, p.namespace, name)
		repo, resp, err = p.client.Repositories.Create(ctx, "", input)
	}
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeRepoCreate, fmt.Sprintf("creating repository %q", name))
	}

	logger.Infof("[%s] Created repository %s", providerName, repo.GetFullName())
	return &entities.CreatedRepo{Name: repo.GetName(), URL: repo.GetCloneURL()}, nil
}

func (p *GitHubProviderRepository) RenameRepo(
	ctx context.Context,
	oldName, newName string,
) (*entities.CreatedRepo, error) {
	repo, resp, err := p.client.Repositories.Edit(ctx, p.namespace, oldName, &gh.Repository{Name: &newName})
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeRepoCreate,
			fmt.Sprintf("renaming repository %q to %q", oldName, newName))
	}
	return &entities.CreatedRepo{Name: repo.GetName(), URL: repo.GetCloneURL()}, nil
}

func (p *GitHubProviderRepository) FetchBranches(ctx context.Context) ([]entities.RemoteBranch, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	var branches []entities.RemoteBranch
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}

	for {
		page, resp, err := p.client.Repositories.ListBranches(ctx, p.owner, p.name, opts)
		if err != nil {
			return nil, classify(resp, err, httpclient.ScopeRepo, "fetching branches")
		}

		for _, branch := range page {
			branches = append(branches, entities.RemoteBranch{
				Name: branch.GetName(),
				SHA:  branch.GetCommit().GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return branches, nil
}

func (p *GitHubProviderRepository) CreateBranch(ctx context.Context, name, startPoint string) error {
	if err := p.requireRepo(); err != nil {
		return err
	}

	if startPoint == "" {
		repo, resp, err := p.client.Repositories.Get(ctx, p.owner, p.name)
		if err != nil {
			return classify(resp, err, httpclient.ScopeRepo, "resolving the default branch")
		}
		startPoint = repo.GetDefaultBranch()
	}

	sha := startPoint
	if !commitSHAPattern.MatchString(startPoint) {
		ref, resp, err := p.client.Git.GetRef(ctx, p.owner, p.name, "refs/heads/"+startPoint)
		if err != nil {
			return classify(resp, err, httpclient.ScopeBranchCreate,
				fmt.Sprintf("start point %q does not resolve", startPoint))
		}
		sha = ref.GetObject().GetSHA()
	}

	refName := "refs/heads/" + name
	_, resp, err := p.client.Git.CreateRef(ctx, p.owner, p.name, &gh.Reference{
		Ref:    &refName,
		Object: &gh.GitObject{SHA: &sha},
	})
	if err != nil {
		return classify(resp, err, httpclient.ScopeBranchCreate, fmt.Sprintf("creating branch %q", name))
	}

	logger.Infof("[%s] Created branch %q from %q", providerName, name, startPoint)
	return nil
}

func (p *GitHubProviderRepository) ListFiles(
	ctx context.Context,
	dirPath, branch string,
	limit int,
) ([]entities.FileEntry, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	dirPath = strings.Trim(dirPath, "/")
	file, entries, resp, err := p.client.Repositories.GetContents(
		ctx, p.owner, p.name, dirPath, &gh.RepositoryContentGetOptions{Ref: branch},
	)
	if err != nil {
		return nil, p.contentError(ctx, resp, err, fmt.Sprintf("listing %q at %q", dirPath, branch))
	}
	if file != nil {
		return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("%q is a file, not a directory", dirPath), nil)
	}

	files := make([]entities.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if limit > 0 && len(files) >= limit {
			break
		}
		fileType := entities.FileTypeBlob
		if entry.GetType() == "dir" {
			fileType = entities.FileTypeTree
		}
		files = append(files, entities.NewFileEntry(entry.GetPath(), fileType))
	}
	return files, nil
}

func (p *GitHubProviderRepository) ReadFile(
	ctx context.Context,
	input entities.ReadFileInput,
) (*entities.FileContent, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	filePath := strings.Trim(input.Path, "/")
	opts := &gh.RepositoryContentGetOptions{Ref: input.Ref}
	file, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.name, filePath, opts)
	if err != nil {
		return nil, p.contentError(ctx, resp, err, fmt.Sprintf("reading %q at %q", filePath, input.Ref))
	}
	if file == nil {
		return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("%q is a directory, not a file", filePath), nil)
	}

	data, err := p.fileBytes(ctx, file, filePath, opts)
	if err != nil {
		return nil, err
	}

	content, err := entities.NewFileContent(filePath, file.GetHTMLURL(), file.GetSHA(), data, input.Raw)
	if err != nil {
		return nil, entities.NewVCSError(entities.ErrVCS, providerName, err.Error(), err)
	}
	return content, nil
}

// fileBytes decodes inline content and falls back to the download API for files
// too large to be inlined.
func (p *GitHubProviderRepository) fileBytes(
	ctx context.Context,
	file *gh.RepositoryContent,
	filePath string,
	opts *gh.RepositoryContentGetOptions,
) ([]byte, error) {
	if file.Content != nil && file.GetEncoding() != "none" {
		decoded, err := file.GetContent()
		if err != nil {
			return nil, entities.NewVCSError(entities.ErrVCS, providerName,
				fmt.Sprintf("decoding %q", filePath), err)
		}
		return []byte(decoded), nil
	}
	if file.GetSize() == 0 {
		return []byte{}, nil
	}

	reader, resp, err := p.client.Repositories.DownloadContents(ctx, p.owner, p.name, filePath, opts)
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeContent, fmt.Sprintf("downloading %q", filePath))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, entities.NewVCSError(entities.ErrVCS, providerName,
			fmt.Sprintf("downloading %q", filePath), err)
	}
	return data, nil
}

func (p *GitHubProviderRepository) UpdateFile(
	ctx context.Context,
	input entities.UpdateFileInput,
) (*entities.UpdatedFile, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	filePath := strings.Trim(input.Path, "/")
	author := &gh.CommitAuthor{Name: gh.String(input.Author.AuthorName()), Email: gh.String(input.Author.Email)}
	opts := &gh.RepositoryContentFileOptions{
		Message:   gh.String(input.Message),
		Content:   []byte(input.Content),
		Branch:    gh.String(input.Branch),
		Author:    author,
		Committer: author,
	}

	existing, _, resp, err := p.client.Repositories.GetContents(
		ctx, p.owner, p.name, filePath, &gh.RepositoryContentGetOptions{Ref: input.Branch},
	)

	var result *gh.RepositoryContentResponse
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		result, resp, err = p.client.Repositories.UpdateFile(ctx, p.owner, p.name, filePath, opts)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		result, resp, err = p.client.Repositories.CreateFile(ctx, p.owner, p.name, filePath, opts)
	case err == nil:
		return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("%q is a directory, not a file", filePath), nil)
	}
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeContent, fmt.Sprintf("updating %q", filePath))
	}

	logger.Infof("[%s] Committed %q on %q", providerName, filePath, input.Branch)
	return &entities.UpdatedFile{
		SHA: result.GetContent().GetSHA(),
		URL: result.GetContent().GetHTMLURL(),
	}, nil
}

func (p *GitHubProviderRepository) GetCommits(
	ctx context.Context,
	branch string,
	page entities.PageRequest,
) entities.CommitPage {
	if err := p.requireRepo(); err != nil {
		return entities.CommitsNotFound(err.Error())
	}

	opts := &gh.CommitsListOptions{
		SHA:         branch,
		ListOptions: gh.ListOptions{Page: page.Number, PerPage: page.PerPage},
	}

	var commits []entities.Commit
	for {
		listed, resp, err := p.client.Repositories.ListCommits(ctx, p.owner, p.name, opts)
		if err != nil {
			wrapped := classify(resp, err, httpclient.ScopeRepo, fmt.Sprintf("listing commits of %q", branch))
			logger.Warnf("[%s] %v", providerName, wrapped)
			return entities.CommitsNotFound(wrapped.Error())
		}

		for _, commit := range listed {
			commits = append(commits, entities.Commit{
				ID:            commit.GetSHA(),
				Date:          commit.GetCommit().GetCommitter().GetDate().Time,
				Message:       commit.GetCommit().GetMessage(),
				IsMergeCommit: len(commit.Parents) > 1,
			})
		}

		if !page.All || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities.CommitsFound(commits)
}

func (p *GitHubProviderRepository) GetFiles(ctx context.Context, commitID string) entities.ChangedFiles {
	if err := p.requireRepo(); err != nil {
		return entities.ChangedFilesNotFound(err.Error())
	}

	var paths []string
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		commit, resp, err := p.client.Repositories.GetCommit(ctx, p.owner, p.name, commitID, opts)
		if err != nil {
			wrapped := classify(resp, err, httpclient.ScopeRepo, fmt.Sprintf("reading commit %q", commitID))
			logger.Warnf("[%s] %v", providerName, wrapped)
			return entities.ChangedFilesNotFound(wrapped.Error())
		}

		for _, file := range commit.Files {
			paths = append(paths, file.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities.ChangedFilesFound(paths)
}

func (p *GitHubProviderRepository) LatestCommitID(ctx context.Context, branch string) (string, error) {
	if err := p.requireRepo(); err != nil {
		return "", err
	}

	found, resp, err := p.client.Repositories.GetBranch(ctx, p.owner, p.name, branch, 1)
	if err != nil {
		return "", p.contentError(ctx, resp, err, fmt.Sprintf("reading branch %q", branch))
	}
	return found.GetCommit().GetSHA(), nil
}

func (p *GitHubProviderRepository) ValidateRepoAccess(ctx context.Context) error {
	if err := p.requireRepo(); err != nil {
		return err
	}

	repo, resp, err := p.client.Repositories.Get(ctx, p.owner, p.name)
	if err != nil {
		return classify(resp, err, httpclient.ScopeAccess, "checking repository permissions")
	}

	permissions := repo.GetPermissions()
	if permissions["admin"] || permissions["maintain"] || permissions["push"] {
		return nil
	}
	return entities.NewVCSError(entities.ErrRepoAccess, providerName,
		fmt.Sprintf("write permission is required on %s/%s", p.owner, p.name), nil)
}

func (p *GitHubProviderRepository) requireRepo() error {
	if p.owner == "" || p.name == "" {
		return entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no repository configured", nil)
	}
	return nil
}

// contentError tells a missing repository from a missing branch or path.
func (p *GitHubProviderRepository) contentError(ctx context.Context, resp *gh.Response, err error, message string) error {
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return classify(resp, err, httpclient.ScopeContent, message)
	}
	if _, repoResp, repoErr := p.client.Repositories.Get(ctx, p.owner, p.name); repoErr != nil {
		return classify(repoResp, repoErr, httpclient.ScopeRepo, message)
	}
	return classify(resp, err, httpclient.ScopeContent, message)
}

// classify maps a go-github failure onto the error taxonomy.
func classify(resp *gh.Response, err error, scope httpclient.Scope, action string) error {
	var ghErr *gh.ErrorResponse
	message := action
	if errors.As(err, &ghErr) && ghErr.Message != "" {
		message = fmt.Sprintf("%s: %s", action, ghErr.Message)
	}

	if resp == nil || resp.Response == nil {
		return httpclient.Wrap(providerName, err, scope, message)
	}

	classified := httpclient.Classify(providerName, resp.StatusCode, scope, message)
	classified.Err = err
	return classified
}
