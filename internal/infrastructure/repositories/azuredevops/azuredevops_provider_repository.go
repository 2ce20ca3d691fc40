package azuredevops

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	gitforgeGit "github.com/rios0rios0/gitforge/pkg/git/infrastructure"
	gitforgeEntities "github.com/rios0rios0/gitforge/pkg/global/domain/entities"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/httpclient"
)

const (
	providerName  = "azuredevops"
	cloudHost     = "dev.azure.com"
	cloudSSHHost  = "ssh.dev.azure.com"
	mergedPR      = "Merged PR "
	branchVersion = "branch"
	commitVersion = "commit"
)

var commitSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// AzureDevOpsProviderRepository implements repositories.ProviderRepository for Azure DevOps Services and Server.
type AzureDevOpsProviderRepository struct {
	client  *Client
	project string
	repo    string
}

// NewProviderRepository creates an Azure DevOps provider bound to the repository in settings.
// Without a repository URL, BaseURL must point at the organization and Namespace names the project.
func NewProviderRepository(settings repositories.ProviderSettings) (repositories.ProviderRepository, error) {
	p := &AzureDevOpsProviderRepository{project: settings.Namespace}
	baseURL := settings.BaseURL

	if settings.Repository.URL != "" {
		organization, project, repo, err := splitRepoURL(settings.Repository.URL)
		if err != nil {
			return nil, err
		}
		p.project = project
		p.repo = repo
		if baseURL == "" {
			baseURL = organization
		}
	}
	if baseURL == "" {
		return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no organization url configured", nil)
	}

	p.client = NewClient(baseURL, httpclient.New(settings.Timeout, settings.Proxy), settings.Credentials.Password)
	return p, nil
}

// splitRepoURL returns the organization root, the project and the repository of a remote.
// It understands .../{project}/_git/{repo} over https and v3/{org}/{project}/{repo} over ssh.
func splitRepoURL(raw string) (string, string, string, error) {
	if organization, project, repo, ok := splitCloudURL(raw); ok {
		return organization, project, repo, nil
	}

	remote, err := httpclient.ParseRepoURL(providerName, raw)
	if err != nil {
		return "", "", "", err
	}
	segments := remote.Segments

	if remote.Hostname() == cloudSSHHost && len(segments) == 4 && segments[0] == "v3" {
		return "https://" + cloudHost + "/" + segments[1], segments[2], segments[3], nil
	}

	i := slices.Index(segments, "_git")
	if i < 1 || len(segments) <= i+1 {
		return "", "", "", entities.NewVCSError(entities.ErrInvalidRepoURL, providerName,
			fmt.Sprintf("expected <project>/_git/<repository> in %q", raw), nil)
	}

	project := segments[i-1]
	organization := remote.Origin() + joinContext(segments[:i-1])
	// dev.azure.com/{org}/_git/{repo} addresses the project named after the repository
	if remote.Hostname() == cloudHost && i == 1 {
		organization = remote.Origin() + "/" + segments[0]
		project = segments[i+1]
	}
	return organization, project, segments[i+1], nil
}

// splitCloudURL handles the dev.azure.com remote shapes gitforge knows about.
// Server collections and the project-less form are left to splitRepoURL.
func splitCloudURL(raw string) (string, string, string, bool) {
	if !strings.Contains(raw, cloudHost) || (strings.Contains(raw, "://") && !strings.Contains(raw, "/_git/")) {
		return "", "", "", false
	}
	info, err := gitforgeGit.ParseRemoteURL(strings.TrimSpace(raw))
	if err != nil || info.ServiceType != gitforgeEntities.AZUREDEVOPS ||
		info.Organization == "" || info.Project == "" || info.RepoName == "" || info.Project == "_git" {
		return "", "", "", false
	}
	if strings.Contains(raw, "://") && !strings.Contains(raw, "/"+info.Project+"/_git/"+info.RepoName) {
		return "", "", "", false
	}
	return "https://" + cloudHost + "/" + info.Organization, info.Project, info.RepoName, true
}

func joinContext(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

func (p *AzureDevOpsProviderRepository) Name() string { return providerName }

func (p *AzureDevOpsProviderRepository) CreateRepo(ctx context.Context, name string) (*entities.CreatedRepo, error) {
	if p.project == "" {
		return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no project configured", nil)
	}

	repo, err := p.client.CreateRepository(ctx, p.project, name)
	if err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepoCreate, fmt.Sprintf("creating repository %q", name))
	}

	logger.Infof("[%s] Created repository %s/%s", providerName, p.project, repo.Name)
	return &entities.CreatedRepo{Name: repo.Name, URL: repo.RemoteURL}, nil
}

func (p *AzureDevOpsProviderRepository) RenameRepo(
	ctx context.Context,
	oldName, newName string,
) (*entities.CreatedRepo, error) {
	message := fmt.Sprintf("renaming repository %q to %q", oldName, newName)
	current, err := p.client.GetRepository(ctx, p.project, oldName)
	if err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepo, message)
	}

	repo, err := p.client.RenameRepository(ctx, p.project, current.ID, newName)
	if err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepoCreate, message)
	}
	return &entities.CreatedRepo{Name: repo.Name, URL: repo.RemoteURL}, nil
}

func (p *AzureDevOpsProviderRepository) FetchBranches(ctx context.Context) ([]entities.RemoteBranch, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	refs, err := p.client.GetRefs(ctx, p.project, p.repo, "heads/")
	if err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepo, "fetching branches")
	}

	branches := make([]entities.RemoteBranch, 0, len(refs))
	for _, ref := range refs {
		branches = append(branches, entities.RemoteBranch{
			Name: strings.TrimPrefix(ref.Name, "refs/heads/"),
			SHA:  ref.ObjectID,
		})
	}
	return branches, nil
}

func (p *AzureDevOpsProviderRepository) CreateBranch(ctx context.Context, name, startPoint string) error {
	if err := p.requireRepo(); err != nil {
		return err
	}

	if startPoint == "" {
		repo, err := p.client.GetRepository(ctx, p.project, p.repo)
		if err != nil {
			return httpclient.Wrap(providerName, err, httpclient.ScopeRepo, "resolving the default branch")
		}
		startPoint = strings.TrimPrefix(repo.DefaultBranch, "refs/heads/")
	}

	objectID := startPoint
	if !commitSHAPattern.MatchString(startPoint) {
		sha, err := p.headOf(ctx, startPoint)
		if err != nil {
			return httpclient.Wrap(providerName, err, httpclient.ScopeBranchCreate,
				fmt.Sprintf("resolving start point %q", startPoint))
		}
		if sha == "" {
			return entities.NewVCSError(entities.ErrBranchOperationFailure, providerName,
				fmt.Sprintf("start point %q does not exist", startPoint), nil)
		}
		objectID = sha
	}

	update := RefUpdate{Name: "refs/heads/" + name, OldObjectID: zeroObject, NewObjectID: objectID}
	if err := p.client.UpdateRefs(ctx, p.project, p.repo, []RefUpdate{update}); err != nil {
		return httpclient.Wrap(providerName, err, httpclient.ScopeBranchCreate,
			fmt.Sprintf("creating branch %q from %q", name, startPoint))
	}

	logger.Infof("[%s] Created branch %q from %q", providerName, name, startPoint)
	return nil
}

// headOf returns the commit a branch points at, or "" when the branch does not exist.
func (p *AzureDevOpsProviderRepository) headOf(ctx context.Context, branch string) (string, error) {
	refs, err := p.client.GetRefs(ctx, p.project, p.repo, "heads/"+branch)
	if err != nil {
		return "", err
	}
	// the filter is a prefix match
	for _, ref := range refs {
		if ref.Name == "refs/heads/"+branch {
			return ref.ObjectID, nil
		}
	}
	return "", nil
}

func (p *AzureDevOpsProviderRepository) ListFiles(
	ctx context.Context,
	dirPath, branch string,
	limit int,
) ([]entities.FileEntry, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	scope := "/" + strings.Trim(dirPath, "/")
	items, err := p.client.GetRepositoryItems(ctx, p.project, p.repo, scope, branch, branchVersion)
	if err != nil {
		return nil, p.contentError(ctx, err, fmt.Sprintf("listing %q at %q", scope, branch))
	}

	var files []entities.FileEntry
	for _, item := range items {
		if strings.TrimSuffix(item.Path, "/") == strings.TrimSuffix(scope, "/") {
			if !item.IsFolder {
				return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
					fmt.Sprintf("%q is a file, not a directory", scope), nil)
			}
			continue
		}
		if limit > 0 && len(files) >= limit {
			break
		}
		fileType := entities.FileTypeBlob
		if item.IsFolder || item.GitObjectType == "tree" {
			fileType = entities.FileTypeTree
		}
		files = append(files, entities.NewFileEntry(item.Path, fileType))
	}
	return files, nil
}

func (p *AzureDevOpsProviderRepository) ReadFile(
	ctx context.Context,
	input entities.ReadFileInput,
) (*entities.FileContent, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	versionType := branchVersion
	if input.RefType == entities.RefTypeCommit {
		versionType = commitVersion
	}
	filePath := "/" + strings.Trim(input.Path, "/")
	message := fmt.Sprintf("reading %q at %q", filePath, input.Ref)

	item, err := p.client.GetItem(ctx, p.project, p.repo, filePath, input.Ref, versionType)
	if err != nil {
		return nil, p.contentError(ctx, err, message)
	}
	data, err := p.client.GetFileContent(ctx, p.project, p.repo, filePath, input.Ref, versionType)
	if err != nil {
		return nil, p.contentError(ctx, err, message)
	}

	content, err := entities.NewFileContent(
		strings.TrimPrefix(filePath, "/"), p.webURL(filePath, input.Ref, versionType), item.ObjectID, data, input.Raw,
	)
	if err != nil {
		return nil, entities.NewVCSError(entities.ErrVCS, providerName, err.Error(), err)
	}
	return content, nil
}

// UpdateFile pushes a single-change commit on top of the branch head.
func (p *AzureDevOpsProviderRepository) UpdateFile(
	ctx context.Context,
	input entities.UpdateFileInput,
) (*entities.UpdatedFile, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	filePath := "/" + strings.Trim(input.Path, "/")
	message := fmt.Sprintf("updating %q on %q", filePath, input.Branch)

	head, err := p.LatestCommitID(ctx, input.Branch)
	if err != nil {
		return nil, err
	}

	changeType := "edit"
	if _, itemErr := p.client.GetItem(ctx, p.project, p.repo, filePath, input.Branch, branchVersion); itemErr != nil {
		if !isNotFound(itemErr) {
			return nil, httpclient.Wrap(providerName, itemErr, httpclient.ScopeContent, message)
		}
		changeType = "add"
	}

	result, err := p.client.Push(ctx, p.project, p.repo, input.Branch, head, input.Message,
		Author{Name: input.Author.AuthorName(), Email: input.Author.Email},
		[]FileChange{{Path: filePath, Content: []byte(input.Content), ChangeType: changeType}},
	)
	if err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeContent, message)
	}

	commitID := head
	if len(result.Commits) > 0 {
		commitID = result.Commits[0].CommitID
	}
	sha := commitID
	if item, itemErr := p.client.GetItem(ctx, p.project, p.repo, filePath, commitID, commitVersion); itemErr == nil {
		sha = item.ObjectID
	}

	logger.Infof("[%s] Pushed %s of %q to %q (%s)", providerName, changeType, filePath, input.Branch, commitID)
	return &entities.UpdatedFile{SHA: sha, URL: p.webURL(filePath, commitID, commitVersion)}, nil
}

func (p *AzureDevOpsProviderRepository) GetCommits(
	ctx context.Context,
	branch string,
	page entities.PageRequest,
) entities.CommitPage {
	if err := p.requireRepo(); err != nil {
		return entities.CommitsNotFound(err.Error())
	}

	var entries []Commit
	var err error
	if page.All {
		entries, err = p.allCommits(ctx, branch)
	} else {
		entries, err = p.client.GetCommits(ctx, p.project, p.repo, branch, page.Offset(), page.PerPage)
	}
	if err != nil {
		wrapped := httpclient.Wrap(providerName, err, httpclient.ScopeRepo, fmt.Sprintf("listing commits of %q", branch))
		logger.Warnf("[%s] %v", providerName, wrapped)
		return entities.CommitsNotFound(wrapped.Error())
	}

	commits := make([]entities.Commit, 0, len(entries))
	for _, entry := range entries {
		date, _ := time.Parse(time.RFC3339, entry.Committer.Date)
		commits = append(commits, entities.Commit{
			ID:      entry.CommitID,
			Date:    date,
			Message: entry.Comment,
			// the listing omits parents unless the server was asked for them
			IsMergeCommit: len(entry.Parents) > 1 || strings.HasPrefix(entry.Comment, mergedPR),
		})
	}
	return entities.CommitsFound(commits)
}

func (p *AzureDevOpsProviderRepository) allCommits(ctx context.Context, branch string) ([]Commit, error) {
	var all []Commit
	for skip := 0; ; skip += entities.MaxPerPage {
		page, err := p.client.GetCommits(ctx, p.project, p.repo, branch, skip, entities.MaxPerPage)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < entities.MaxPerPage {
			return all, nil
		}
	}
}

func (p *AzureDevOpsProviderRepository) GetFiles(ctx context.Context, commitID string) entities.ChangedFiles {
	if err := p.requireRepo(); err != nil {
		return entities.ChangedFilesNotFound(err.Error())
	}

	paths, err := p.client.GetCommitChanges(ctx, p.project, p.repo, commitID)
	if err != nil {
		wrapped := httpclient.Wrap(providerName, err, httpclient.ScopeRepo, fmt.Sprintf("reading commit %q", commitID))
		logger.Warnf("[%s] %v", providerName, wrapped)
		return entities.ChangedFilesNotFound(wrapped.Error())
	}
	return entities.ChangedFilesFound(paths)
}

func (p *AzureDevOpsProviderRepository) LatestCommitID(ctx context.Context, branch string) (string, error) {
	if err := p.requireRepo(); err != nil {
		return "", err
	}

	sha, err := p.headOf(ctx, branch)
	if err != nil {
		return "", httpclient.Wrap(providerName, err, httpclient.ScopeRepo, fmt.Sprintf("reading branch %q", branch))
	}
	if sha == "" {
		return "", entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("branch %q does not exist", branch), nil)
	}
	return sha, nil
}

func (p *AzureDevOpsProviderRepository) ValidateRepoAccess(ctx context.Context) error {
	if err := p.requireRepo(); err != nil {
		return err
	}

	repo, err := p.client.GetRepository(ctx, p.project, p.repo)
	if err != nil {
		return httpclient.Wrap(providerName, err, httpclient.ScopeAccess, "reading repository")
	}

	allowed, err := p.client.HasContributePermission(ctx, repo.Project.ID, repo.ID)
	if err != nil {
		return httpclient.Wrap(providerName, err, httpclient.ScopeAccess, "checking repository permissions")
	}
	if !allowed {
		return entities.NewVCSError(entities.ErrRepoAccess, providerName,
			fmt.Sprintf("contribute permission is required on %s/%s", p.project, p.repo), nil)
	}
	return nil
}

func (p *AzureDevOpsProviderRepository) requireRepo() error {
	if p.project == "" || p.repo == "" {
		return entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no repository configured", nil)
	}
	return nil
}

// contentError tells a missing repository from a missing branch or path.
func (p *AzureDevOpsProviderRepository) contentError(ctx context.Context, err error, message string) error {
	if !isNotFound(err) {
		return httpclient.Wrap(providerName, err, httpclient.ScopeContent, message)
	}
	if _, repoErr := p.client.GetRepository(ctx, p.project, p.repo); repoErr != nil {
		return httpclient.Wrap(providerName, repoErr, httpclient.ScopeRepo, message)
	}
	return httpclient.Wrap(providerName, err, httpclient.ScopeContent, message)
}

func (p *AzureDevOpsProviderRepository) webURL(filePath, version, versionType string) string {
	prefix := "GB"
	if versionType == commitVersion {
		prefix = "GC"
	}
	query := url.Values{"path": {filePath}, "version": {prefix + version}}
	return fmt.Sprintf("%s/%s/_git/%s?%s", p.client.BaseURL(), url.PathEscape(p.project), url.PathEscape(p.repo),
		query.Encode())
}
