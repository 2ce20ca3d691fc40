package gitlab

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/httpclient"
)

const (
	providerName = "gitlab"
	publicOrigin = "https://gitlab.com"
	perPage      = 100
)

// GitLabProviderRepository implements repositories.ProviderRepository for GitLab.
type GitLabProviderRepository struct {
	client    *gl.Client
	webURL    string
	pid       string
	namespace string
}

// NewProviderRepository creates a GitLab provider bound to the project in settings.
func NewProviderRepository(settings repositories.ProviderSettings) (repositories.ProviderRepository, error) {
	p := &GitLabProviderRepository{namespace: settings.Namespace, webURL: publicOrigin}
	baseURL := settings.BaseURL

	if settings.Repository.URL != "" {
		remote, err := httpclient.ParseRepoURL(providerName, settings.Repository.URL)
		if err != nil {
			return nil, err
		}

		segments := remote.Segments
		for i, segment := range segments {
			if segment == "-" {
				segments = segments[:i]
				break
			}
		}
		if len(segments) < 2 {
			return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName,
				fmt.Sprintf("expected group/project in %q", settings.Repository.URL), nil)
		}

		p.pid = strings.Join(segments, "/")
		p.webURL = remote.Origin()
		if p.namespace == "" {
			p.namespace = strings.Join(segments[:len(segments)-1], "/")
		}
		if baseURL == "" {
			baseURL = remote.Origin()
		}
	}
	if baseURL == "" {
		baseURL = publicOrigin
	}

	client, err := gl.NewClient(
		settings.Credentials.Password,
		gl.WithBaseURL(baseURL),
		gl.WithHTTPClient(httpclient.New(settings.Timeout, settings.Proxy)),
	)
	if err != nil {
		return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName,
			fmt.Sprintf("malformed base url %q", baseURL), err)
	}
	p.client = client
	return p, nil
}

func (p *GitLabProviderRepository) Name() string { return providerName }

func (p *GitLabProviderRepository) CreateRepo(ctx context.Context, name string) (*entities.CreatedRepo, error) {
	opts := &gl.CreateProjectOptions{
		Name:       gl.Ptr(name),
		Path:       gl.Ptr(name),
		Visibility: gl.Ptr(gl.PrivateVisibility),
	}

	if p.namespace != "" {
		group, resp, err := p.client.Groups.GetGroup(p.namespace, nil, gl.WithContext(ctx))
		if err != nil {
			return nil, classify(resp, err, httpclient.ScopeRepo, fmt.Sprintf("resolving group %q", p.namespace))
		}
		opts.NamespaceID = gl.Ptr(group.ID)
	}

	project, resp, err := p.client.Projects.CreateProject(opts, gl.WithContext(ctx))
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeRepoCreate, fmt.Sprintf("creating project %q", name))
	}

	logger.Infof("[%s] Created project %s", providerName, project.PathWithNamespace)
	return &entities.CreatedRepo{Name: project.Name, URL: project.HTTPURLToRepo}, nil
}

func (p *GitLabProviderRepository) RenameRepo(
	ctx context.Context,
	oldName, newName string,
) (*entities.CreatedRepo, error) {
	pid := oldName
	if p.namespace != "" {
		pid = p.namespace + "/" + oldName
	}

	project, resp, err := p.client.Projects.EditProject(pid, &gl.EditProjectOptions{
		Name: gl.Ptr(newName),
		Path: gl.Ptr(newName),
	}, gl.WithContext(ctx))
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeRepoCreate,
			fmt.Sprintf("renaming project %q to %q", oldName, newName))
	}
	return &entities.CreatedRepo{Name: project.Name, URL: project.HTTPURLToRepo}, nil
}

func (p *GitLabProviderRepository) FetchBranches(ctx context.Context) ([]entities.RemoteBranch, error) {
	if err := p.requireProject(); err != nil {
		return nil, err
	}

	var branches []entities.RemoteBranch
	opts := &gl.ListBranchesOptions{ListOptions: gl.ListOptions{PerPage: perPage}}

	for {
		page, resp, err := p.client.Branches.ListBranches(p.pid, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, classify(resp, err, httpclient.ScopeRepo, "fetching branches")
		}

		for _, branch := range page {
			sha := ""
			if branch.Commit != nil {
				sha = branch.Commit.ID
			}
			branches = append(branches, entities.RemoteBranch{Name: branch.Name, SHA: sha})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return branches, nil
}

func (p *GitLabProviderRepository) CreateBranch(ctx context.Context, name, startPoint string) error {
	if err := p.requireProject(); err != nil {
		return err
	}

	if startPoint == "" {
		project, resp, err := p.client.Projects.GetProject(p.pid, nil, gl.WithContext(ctx))
		if err != nil {
			return classify(resp, err, httpclient.ScopeRepo, "resolving the default branch")
		}
		startPoint = project.DefaultBranch
	}

	_, resp, err := p.client.Branches.CreateBranch(p.pid, &gl.CreateBranchOptions{
		Branch: gl.Ptr(name),
		Ref:    gl.Ptr(startPoint),
	}, gl.WithContext(ctx))
	if err != nil {
		return classify(resp, err, httpclient.ScopeBranchCreate,
			fmt.Sprintf("creating branch %q from %q", name, startPoint))
	}

	logger.Infof("[%s] Created branch %q from %q", providerName, name, startPoint)
	return nil
}

func (p *GitLabProviderRepository) ListFiles(
	ctx context.Context,
	dirPath, branch string,
	limit int,
) ([]entities.FileEntry, error) {
	if err := p.requireProject(); err != nil {
		return nil, err
	}

	dirPath = strings.Trim(dirPath, "/")
	opts := &gl.ListTreeOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		Ref:         gl.Ptr(branch),
	}
	if dirPath != "" {
		opts.Path = gl.Ptr(dirPath)
	}

	var files []entities.FileEntry
	for {
		nodes, resp, err := p.client.Repositories.ListTree(p.pid, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, p.contentError(ctx, resp, err, fmt.Sprintf("listing %q at %q", dirPath, branch))
		}

		for _, node := range nodes {
			if limit > 0 && len(files) >= limit {
				return files, nil
			}
			fileType := entities.FileTypeBlob
			if node.Type == string(entities.FileTypeTree) {
				fileType = entities.FileTypeTree
			}
			files = append(files, entities.NewFileEntry(node.Path, fileType))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if len(files) == 0 && dirPath != "" {
		return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("%q is empty or missing at %q", dirPath, branch), nil)
	}
	return files, nil
}

func (p *GitLabProviderRepository) ReadFile(
	ctx context.Context,
	input entities.ReadFileInput,
) (*entities.FileContent, error) {
	if err := p.requireProject(); err != nil {
		return nil, err
	}

	filePath := strings.Trim(input.Path, "/")
	file, resp, err := p.client.RepositoryFiles.GetFile(
		p.pid, filePath, &gl.GetFileOptions{Ref: gl.Ptr(input.Ref)}, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, p.contentError(ctx, resp, err, fmt.Sprintf("reading %q at %q", filePath, input.Ref))
	}

	data := []byte(file.Content)
	if file.Encoding == entities.EncodingBase64 {
		data, err = base64.StdEncoding.DecodeString(file.Content)
		if err != nil {
			return nil, entities.NewVCSError(entities.ErrVCS, providerName, fmt.Sprintf("decoding %q", filePath), err)
		}
	}

	webURL := fmt.Sprintf("%s/%s/-/blob/%s/%s", p.webURL, p.pid, input.Ref, filePath)
	content, err := entities.NewFileContent(filePath, webURL, file.BlobID, data, input.Raw)
	if err != nil {
		return nil, entities.NewVCSError(entities.ErrVCS, providerName, err.Error(), err)
	}
	return content, nil
}

func (p *GitLabProviderRepository) UpdateFile(
	ctx context.Context,
	input entities.UpdateFileInput,
) (*entities.UpdatedFile, error) {
	if err := p.requireProject(); err != nil {
		return nil, err
	}

	filePath := strings.Trim(input.Path, "/")
	_, resp, err := p.client.RepositoryFiles.GetFile(
		p.pid, filePath, &gl.GetFileOptions{Ref: gl.Ptr(input.Branch)}, gl.WithContext(ctx),
	)

	switch {
	case err == nil:
		_, resp, err = p.client.RepositoryFiles.UpdateFile(p.pid, filePath, &gl.UpdateFileOptions{
			Branch:        gl.Ptr(input.Branch),
			Content:       gl.Ptr(input.Content),
			CommitMessage: gl.Ptr(input.Message),
			AuthorName:    gl.Ptr(input.Author.AuthorName()),
			AuthorEmail:   gl.Ptr(input.Author.Email),
		}, gl.WithContext(ctx))
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		_, resp, err = p.client.RepositoryFiles.CreateFile(p.pid, filePath, &gl.CreateFileOptions{
			Branch:        gl.Ptr(input.Branch),
			Content:       gl.Ptr(input.Content),
			CommitMessage: gl.Ptr(input.Message),
			AuthorName:    gl.Ptr(input.Author.AuthorName()),
			AuthorEmail:   gl.Ptr(input.Author.Email),
		}, gl.WithContext(ctx))
	}
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeContent, fmt.Sprintf("updating %q", filePath))
	}

	// The files API answers with the path only, so the blob id comes from a re-read
	file, resp, err := p.client.RepositoryFiles.GetFile(
		p.pid, filePath, &gl.GetFileOptions{Ref: gl.Ptr(input.Branch)}, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, classify(resp, err, httpclient.ScopeContent, fmt.Sprintf("reading back %q", filePath))
	}

	logger.Infof("[%s] Committed %q on %q", providerName, filePath, input.Branch)
	return &entities.UpdatedFile{
		SHA: file.BlobID,
		URL: fmt.Sprintf("%s/%s/-/blob/%s/%s", p.webURL, p.pid, input.Branch, filePath),
	}, nil
}

func (p *GitLabProviderRepository) GetCommits(
	ctx context.Context,
	branch string,
	page entities.PageRequest,
) entities.CommitPage {
	if err := p.requireProject(); err != nil {
		return entities.CommitsNotFound(err.Error())
	}

	opts := &gl.ListCommitsOptions{
		ListOptions: gl.ListOptions{Page: int64(page.Number), PerPage: int64(page.PerPage)},
		RefName:     gl.Ptr(branch),
	}

	var commits []entities.Commit
	for {
		listed, resp, err := p.client.Commits.ListCommits(p.pid, opts, gl.WithContext(ctx))
		if err != nil {
			wrapped := classify(resp, err, httpclient.ScopeRepo, fmt.Sprintf("listing commits of %q", branch))
			logger.Warnf("[%s] %v", providerName, wrapped)
			return entities.CommitsNotFound(wrapped.Error())
		}

		for _, commit := range listed {
			converted := entities.Commit{
				ID:            commit.ID,
				Message:       commit.Message,
				IsMergeCommit: len(commit.ParentIDs) > 1,
			}
			if commit.CommittedDate != nil {
				converted.Date = *commit.CommittedDate
			}
			commits = append(commits, converted)
		}

		if !page.All || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities.CommitsFound(commits)
}

func (p *GitLabProviderRepository) GetFiles(ctx context.Context, commitID string) entities.ChangedFiles {
	if err := p.requireProject(); err != nil {
		return entities.ChangedFilesNotFound(err.Error())
	}

	var paths []string
	opts := &gl.GetCommitDiffOptions{ListOptions: gl.ListOptions{PerPage: perPage}}
	for {
		diffs, resp, err := p.client.Commits.GetCommitDiff(p.pid, commitID, opts, gl.WithContext(ctx))
		if err != nil {
			wrapped := classify(resp, err, httpclient.ScopeRepo, fmt.Sprintf("reading commit %q", commitID))
			logger.Warnf("[%s] %v", providerName, wrapped)
			return entities.ChangedFilesNotFound(wrapped.Error())
		}

		for _, diff := range diffs {
			path := diff.NewPath
			if diff.DeletedFile {
				path = diff.OldPath
			}
			paths = append(paths, path)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entities.ChangedFilesFound(paths)
}

func (p *GitLabProviderRepository) LatestCommitID(ctx context.Context, branch string) (string, error) {
	if err := p.requireProject(); err != nil {
		return "", err
	}

	found, resp, err := p.client.Branches.GetBranch(p.pid, branch, gl.WithContext(ctx))
	if err != nil {
		return "", p.contentError(ctx, resp, err, fmt.Sprintf("reading branch %q", branch))
	}
	if found.Commit == nil {
		return "", entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("branch %q has no commits", branch), nil)
	}
	return found.Commit.ID, nil
}

func (p *GitLabProviderRepository) ValidateRepoAccess(ctx context.Context) error {
	if err := p.requireProject(); err != nil {
		return err
	}

	project, resp, err := p.client.Projects.GetProject(p.pid, nil, gl.WithContext(ctx))
	if err != nil {
		return classify(resp, err, httpclient.ScopeAccess, "checking project permissions")
	}

	level := gl.NoPermissions
	if project.Permissions != nil {
		if access := project.Permissions.ProjectAccess; access != nil && access.AccessLevel > level {
			level = access.AccessLevel
		}
		if access := project.Permissions.GroupAccess; access != nil && access.AccessLevel > level {
			level = access.AccessLevel
		}
	}

	if level < gl.DeveloperPermissions {
		return entities.NewVCSError(entities.ErrRepoAccess, providerName,
			fmt.Sprintf("developer access or higher is required on %s", p.pid), nil)
	}
	return nil
}

func (p *GitLabProviderRepository) requireProject() error {
	if p.pid == "" {
		return entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no project configured", nil)
	}
	return nil
}

// contentError tells a missing project from a missing branch or path.
func (p *GitLabProviderRepository) contentError(ctx context.Context, resp *gl.Response, err error, message string) error {
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return classify(resp, err, httpclient.ScopeContent, message)
	}
	if _, projectResp, projectErr := p.client.Projects.GetProject(p.pid, nil, gl.WithContext(ctx)); projectErr != nil {
		return classify(projectResp, projectErr, httpclient.ScopeRepo, message)
	}
	return classify(resp, err, httpclient.ScopeContent, message)
}

// classify maps a client-go failure onto the error taxonomy.
func classify(resp *gl.Response, err error, scope httpclient.Scope, action string) error {
	var glErr *gl.ErrorResponse
	message := action
	if errors.As(err, &glErr) && glErr.Message != "" {
		message = fmt.Sprintf("%s: %s", action, glErr.Message)
	}

	if resp == nil || resp.Response == nil {
		return httpclient.Wrap(providerName, err, scope, message)
	}

	classified := httpclient.Classify(providerName, resp.StatusCode, scope, message)
	classified.Err = err
	return classified
}
