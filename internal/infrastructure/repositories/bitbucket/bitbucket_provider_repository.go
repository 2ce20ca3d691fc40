package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/httpclient"
)

const (
	providerName = "bitbucket"
	apiPrefix    = "/rest/api/1.0"
	pageLimit    = 100
)

// BitbucketProviderRepository implements repositories.ProviderRepository for Bitbucket Server / Data Center.
type BitbucketProviderRepository struct {
	client      *httpclient.Client
	projectKey  string
	slug        string
	origin      string
	remote      entities.Remote
	workingCopy repositories.WorkingCopyRepository
}

// NewProviderRepository creates a Bitbucket Server provider bound to the repository in settings.
func NewProviderRepository(settings repositories.ProviderSettings) (repositories.ProviderRepository, error) {
	p := &BitbucketProviderRepository{
		projectKey:  settings.Namespace,
		workingCopy: settings.WorkingCopy,
		remote: entities.Remote{
			URL:         settings.Repository.URL,
			Credentials: settings.Credentials,
			Proxy:       settings.Proxy,
		},
	}
	baseURL := settings.BaseURL

	if settings.Repository.URL != "" {
		remote, err := httpclient.ParseRepoURL(providerName, settings.Repository.URL)
		if err != nil {
			return nil, err
		}
		contextPath, key, slug, ok := splitRepoPath(remote.Segments)
		if !ok {
			return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName,
				fmt.Sprintf("expected /scm/<project>/<repository> in %q", settings.Repository.URL), nil)
		}
		p.projectKey = key
		p.slug = slug
		p.origin = remote.Origin() + contextPath
		p.remote.URL = fmt.Sprintf("%s/scm/%s/%s.git", p.origin, strings.ToLower(key), slug)
		if baseURL == "" {
			baseURL = p.origin
		}
	}
	if baseURL == "" {
		return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no server url configured", nil)
	}
	if p.origin == "" {
		p.origin = strings.TrimSuffix(baseURL, "/")
	}

	authorize := httpclient.BearerAuth(settings.Credentials.Password)
	if settings.Credentials.Username != "" {
		authorize = httpclient.BasicAuth(settings.Credentials.Username, settings.Credentials.Password)
	}
	p.client = httpclient.NewClient(baseURL, httpclient.New(settings.Timeout, settings.Proxy), authorize)
	return p, nil
}

// splitRepoPath understands /scm/KEY/slug, /projects/KEY/repos/slug and ssh KEY/slug remotes,
// keeping any context path the server is mounted under.
func splitRepoPath(segments []string) (string, string, string, bool) {
	if i := slices.Index(segments, "scm"); i >= 0 && len(segments) > i+2 {
		return joinContext(segments[:i]), segments[i+1], segments[i+2], true
	}
	if i := slices.Index(segments, "projects"); i >= 0 && len(segments) > i+3 && segments[i+2] == "repos" {
		return joinContext(segments[:i]), segments[i+1], segments[i+3], true
	}
	if len(segments) == 2 {
		return "", segments[0], segments[1], true
	}
	return "", "", "", false
}

func joinContext(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

func (p *BitbucketProviderRepository) Name() string { return providerName }

type linkedRepository struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Links struct {
		Clone []struct {
			Href string `json:"href"`
			Name string `json:"name"`
		} `json:"clone"`
	} `json:"links"`
}

func (r linkedRepository) created() *entities.CreatedRepo {
	for _, link := range r.Links.Clone {
		if link.Name == "http" || link.Name == "https" {
			return &entities.CreatedRepo{Name: r.Name, URL: link.Href}
		}
	}
	return &entities.CreatedRepo{Name: r.Name}
}

func (p *BitbucketProviderRepository) CreateRepo(ctx context.Context, name string) (*entities.CreatedRepo, error) {
	if p.projectKey == "" {
		return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no project key configured", nil)
	}

	var repo linkedRepository
	endpoint := fmt.Sprintf("%s/projects/%s/repos", apiPrefix, url.PathEscape(p.projectKey))
	body := map[string]any{"name": name, "scmId": "git", "forkable": false}
	if _, err := p.client.DoJSON(ctx, http.MethodPost, endpoint, body, &repo); err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepoCreate,
			fmt.Sprintf("creating repository %q", name))
	}

	logger.Infof("[%s] Created repository %s/%s", providerName, p.projectKey, repo.Slug)
	return repo.created(), nil
}

func (p *BitbucketProviderRepository) RenameRepo(
	ctx context.Context,
	oldName, newName string,
) (*entities.CreatedRepo, error) {
	var repo linkedRepository
	endpoint := fmt.Sprintf("%s/projects/%s/repos/%s",
		apiPrefix, url.PathEscape(p.projectKey), url.PathEscape(oldName))
	if _, err := p.client.DoJSON(ctx, http.MethodPut, endpoint, map[string]string{"name": newName}, &repo); err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepoCreate,
			fmt.Sprintf("renaming repository %q to %q", oldName, newName))
	}
	return repo.created(), nil
}

type branchRef struct {
	DisplayID    string `json:"displayId"`
	LatestCommit string `json:"latestCommit"`
	IsDefault    bool   `json:"isDefault"`
}

func (p *BitbucketProviderRepository) FetchBranches(ctx context.Context) ([]entities.RemoteBranch, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	refs, err := collect[branchRef](ctx, p.client, p.repoEndpoint("/branches"), 0)
	if err != nil {
		return nil, httpclient.Wrap(providerName, err, httpclient.ScopeRepo, "fetching branches")
	}

	branches := make([]entities.RemoteBranch, 0, len(refs))
	for _, ref := range refs {
		branches = append(branches, entities.RemoteBranch{Name: ref.DisplayID, SHA: ref.LatestCommit})
	}
	return branches, nil
}

func (p *BitbucketProviderRepository) CreateBranch(ctx context.Context, name, startPoint string) error {
	if err := p.requireRepo(); err != nil {
		return err
	}

	if startPoint == "" {
		var def branchRef
		if _, err := p.client.DoJSON(ctx, http.MethodGet, p.repoEndpoint("/branches/default"), nil, &def); err != nil {
			return httpclient.Wrap(providerName, err, httpclient.ScopeRepo, "resolving the default branch")
		}
		startPoint = def.DisplayID
	}

	body := map[string]string{"name": name, "startPoint": startPoint}
	if _, err := p.client.DoJSON(ctx, http.MethodPost, p.repoEndpoint("/branches"), body, nil); err != nil {
		return httpclient.Wrap(providerName, err, httpclient.ScopeBranchCreate,
			fmt.Sprintf("creating branch %q from %q", name, startPoint))
	}

	logger.Infof("[%s] Created branch %q from %q", providerName, name, startPoint)
	return nil
}

type browseChild struct {
	Path struct {
		ToString string `json:"toString"`
	} `json:"path"`
	Type string `json:"type"`
}

func (p *BitbucketProviderRepository) ListFiles(
	ctx context.Context,
	dirPath, branch string,
	limit int,
) ([]entities.FileEntry, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	dirPath = strings.Trim(dirPath, "/")
	start := 0
	var files []entities.FileEntry

	for {
		var result struct {
			Children *struct {
				Values        []browseChild `json:"values"`
				IsLastPage    bool          `json:"isLastPage"`
				NextPageStart int           `json:"nextPageStart"`
			} `json:"children"`
		}

		endpoint := p.repoEndpoint(strings.TrimSuffix("/browse/"+escapePath(dirPath), "/")) +
			fmt.Sprintf("?at=%s&start=%d&limit=%d", url.QueryEscape(branch), start, pageLimit)
		if _, err := p.client.DoJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
			return nil, p.contentError(ctx, err, fmt.Sprintf("listing %q at %q", dirPath, branch))
		}
		if result.Children == nil {
			return nil, entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
				fmt.Sprintf("%q is a file, not a directory", dirPath), nil)
		}

		for _, child := range result.Children.Values {
			if limit > 0 && len(files) >= limit {
				return files, nil
			}
			fileType := entities.FileTypeBlob
			if child.Type == "DIRECTORY" {
				fileType = entities.FileTypeTree
			}
			files = append(files, entities.NewFileEntry(joinPath(dirPath, child.Path.ToString), fileType))
		}

		next, more := advance(start, result.Children.IsLastPage, result.Children.NextPageStart,
			len(result.Children.Values))
		if !more {
			break
		}
		start = next
	}

	return files, nil
}

func (p *BitbucketProviderRepository) ReadFile(
	ctx context.Context,
	input entities.ReadFileInput,
) (*entities.FileContent, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}

	filePath := strings.Trim(input.Path, "/")
	endpoint := p.repoEndpoint("/raw/"+escapePath(filePath)) + "?at=" + url.QueryEscape(input.Ref)
	data, _, err := p.client.Do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, p.contentError(ctx, err, fmt.Sprintf("reading %q at %q", filePath, input.Ref))
	}

	sha := input.Ref
	if input.RefType != entities.RefTypeCommit {
		if commits, commitsErr := p.listCommits(ctx, input.Ref, filePath, 0, 1); commitsErr == nil && len(commits) > 0 {
			sha = commits[0].ID
		}
	}

	webURL := fmt.Sprintf("%s/projects/%s/repos/%s/browse/%s?at=%s",
		p.origin, p.projectKey, p.slug, filePath, url.QueryEscape(input.Ref))
	content, err := entities.NewFileContent(filePath, webURL, sha, data, input.Raw)
	if err != nil {
		return nil, entities.NewVCSError(entities.ErrVCS, providerName, err.Error(), err)
	}
	return content, nil
}

// UpdateFile commits through a temporary working copy.
func (p *BitbucketProviderRepository) UpdateFile(
	ctx context.Context,
	input entities.UpdateFileInput,
) (*entities.UpdatedFile, error) {
	if err := p.requireRepo(); err != nil {
		return nil, err
	}
	if p.workingCopy == nil {
		return nil, entities.NewVCSError(entities.ErrVCS, providerName, "no working copy configured", nil)
	}

	filePath := strings.Trim(input.Path, "/")
	commitID, err := p.workingCopy.CloneAndPush(ctx, entities.CloneAndPushInput{
		Remote:  p.remote,
		Branch:  input.Branch,
		Message: input.Message,
		Author:  input.Author,
		Changes: []entities.FileChange{{
			Path:       filePath,
			Content:    []byte(input.Content),
			ChangeType: entities.FileChangeEdit,
		}},
	})
	if err != nil {
		return nil, err
	}

	return &entities.UpdatedFile{
		SHA: commitID,
		URL: fmt.Sprintf("%s/projects/%s/repos/%s/browse/%s?at=%s",
			p.origin, p.projectKey, p.slug, filePath, commitID),
	}, nil
}

type commitEntry struct {
	ID                 string `json:"id"`
	Message            string `json:"message"`
	CommitterTimestamp int64  `json:"committerTimestamp"`
	Parents            []struct {
		ID string `json:"id"`
	} `json:"parents"`
}

func (p *BitbucketProviderRepository) listCommits(
	ctx context.Context,
	until, filePath string,
	start, limit int,
) ([]commitEntry, error) {
	query := url.Values{}
	query.Set("until", until)
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))
	if filePath != "" {
		query.Set("path", filePath)
	}

	var result pagedResult[commitEntry]
	if _, err := p.client.DoJSON(ctx, http.MethodGet, p.repoEndpoint("/commits")+"?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Values, nil
}

func (p *BitbucketProviderRepository) GetCommits(
	ctx context.Context,
	branch string,
	page entities.PageRequest,
) entities.CommitPage {
	if err := p.requireRepo(); err != nil {
		return entities.CommitsNotFound(err.Error())
	}

	var entries []commitEntry
	var err error
	if page.All {
		query := "?until=" + url.QueryEscape(branch)
		entries, err = collect[commitEntry](ctx, p.client, p.repoEndpoint("/commits")+query, 0)
	} else {
		entries, err = p.listCommits(ctx, branch, "", page.Offset(), page.PerPage)
	}
	if err != nil {
		wrapped := httpclient.Wrap(providerName, err, httpclient.ScopeRepo, fmt.Sprintf("listing commits of %q", branch))
		logger.Warnf("[%s] %v", providerName, wrapped)
		return entities.CommitsNotFound(wrapped.Error())
	}

	commits := make([]entities.Commit, 0, len(entries))
	for _, entry := range entries {
		commits = append(commits, entities.Commit{
			ID:            entry.ID,
			Date:          time.UnixMilli(entry.CommitterTimestamp).UTC(),
			Message:       entry.Message,
			IsMergeCommit: len(entry.Parents) > 1,
		})
	}
	return entities.CommitsFound(commits)
}

func (p *BitbucketProviderRepository) GetFiles(ctx context.Context, commitID string) entities.ChangedFiles {
	if err := p.requireRepo(); err != nil {
		return entities.ChangedFilesNotFound(err.Error())
	}

	type change struct {
		Path struct {
			ToString string `json:"toString"`
		} `json:"path"`
	}

	changes, err := collect[change](ctx, p.client, p.repoEndpoint("/commits/"+url.PathEscape(commitID)+"/changes"), 0)
	if err != nil {
		wrapped := httpclient.Wrap(providerName, err, httpclient.ScopeRepo, fmt.Sprintf("reading commit %q", commitID))
		logger.Warnf("[%s] %v", providerName, wrapped)
		return entities.ChangedFilesNotFound(wrapped.Error())
	}

	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path.ToString)
	}
	return entities.ChangedFilesFound(paths)
}

func (p *BitbucketProviderRepository) LatestCommitID(ctx context.Context, branch string) (string, error) {
	if err := p.requireRepo(); err != nil {
		return "", err
	}

	commits, err := p.listCommits(ctx, branch, "", 0, 1)
	if err != nil {
		return "", p.contentError(ctx, err, fmt.Sprintf("reading branch %q", branch))
	}
	if len(commits) == 0 {
		return "", entities.NewVCSError(entities.ErrInvalidBranchOrBaseDir, providerName,
			fmt.Sprintf("branch %q has no commits", branch), nil)
	}
	return commits[0].ID, nil
}

func (p *BitbucketProviderRepository) ValidateRepoAccess(ctx context.Context) error {
	if err := p.requireRepo(); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("projectkey", p.projectKey)
	query.Set("name", p.slug)
	query.Set("permission", "REPO_WRITE")

	var result pagedResult[linkedRepository]
	if _, err := p.client.DoJSON(ctx, http.MethodGet, apiPrefix+"/repos?"+query.Encode(), nil, &result); err != nil {
		return httpclient.Wrap(providerName, err, httpclient.ScopeAccess, "checking repository permissions")
	}

	for _, repo := range result.Values {
		if strings.EqualFold(repo.Slug, p.slug) {
			return nil
		}
	}
	return entities.NewVCSError(entities.ErrRepoAccess, providerName,
		fmt.Sprintf("REPO_WRITE permission is required on %s/%s", p.projectKey, p.slug), nil)
}

func (p *BitbucketProviderRepository) repoEndpoint(suffix string) string {
	return fmt.Sprintf("%s/projects/%s/repos/%s%s",
		apiPrefix, url.PathEscape(p.projectKey), url.PathEscape(p.slug), suffix)
}

func (p *BitbucketProviderRepository) requireRepo() error {
	if p.projectKey == "" || p.slug == "" {
		return entities.NewVCSError(entities.ErrInvalidRepoURL, providerName, "no repository configured", nil)
	}
	return nil
}

// contentError tells a missing repository from a missing branch or path.
func (p *BitbucketProviderRepository) contentError(ctx context.Context, err error, message string) error {
	if !isNotFound(err) {
		return httpclient.Wrap(providerName, err, httpclient.ScopeContent, message)
	}
	if _, repoErr := p.client.DoJSON(ctx, http.MethodGet, p.repoEndpoint(""), nil, nil); repoErr != nil {
		return httpclient.Wrap(providerName, repoErr, httpclient.ScopeRepo, message)
	}
	return httpclient.Wrap(providerName, err, httpclient.ScopeContent, message)
}

func escapePath(filePath string) string {
	parts := strings.Split(filePath, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
