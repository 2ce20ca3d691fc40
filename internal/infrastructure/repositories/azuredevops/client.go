package azuredevops

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/httpclient"
)

const (
	apiVersion = "7.0"
	zeroObject = "0000000000000000000000000000000000000000"

	// gitRepositoriesNamespace is the security namespace holding Git repository ACLs.
	gitRepositoriesNamespace = "2e9eb7ed-3c0a-47d4-87c1-0ffdd275fd87"
	// genericContributePermission is the "Contribute" bit of that namespace.
	genericContributePermission = 4
)

// Client represents an Azure DevOps API client bound to one organization
type Client struct {
	rest *httpclient.Client
}

// NewClient creates a new Azure DevOps client for an organization root such as
// https://dev.azure.com/acme
func NewClient(baseURL string, httpClient *http.Client, pat string) *Client {
	return &Client{rest: httpclient.NewClient(baseURL, httpClient, httpclient.BasicAuth("", pat))}
}

// BaseURL returns the base URL of the Azure DevOps organization
func (c *Client) BaseURL() string {
	return c.rest.BaseURL()
}

// Project represents an Azure DevOps project
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	State string `json:"state"`
}

// Repository represents an Azure DevOps Git repository
type Repository struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	RemoteURL     string  `json:"remoteUrl"`
	WebURL        string  `json:"webUrl"`
	SSHURL        string  `json:"sshUrl"`
	DefaultBranch string  `json:"defaultBranch"`
	Project       Project `json:"project"`
}

// RepositoryItem represents a file or folder in a repository
type RepositoryItem struct {
	ObjectID      string `json:"objectId"`
	GitObjectType string `json:"gitObjectType"`
	CommitID      string `json:"commitId"`
	Path          string `json:"path"`
	IsFolder      bool   `json:"isFolder"`
	URL           string `json:"url"`
}

// Ref is a branch or tag reference
type Ref struct {
	Name     string `json:"name"`
	ObjectID string `json:"objectId"`
}

// RefUpdate is one entry of a refs update request
type RefUpdate struct {
	Name        string `json:"name"`
	OldObjectID string `json:"oldObjectId"`
	NewObjectID string `json:"newObjectId,omitempty"`
}

type refUpdateResult struct {
	Name         string `json:"name"`
	Success      bool   `json:"success"`
	UpdateStatus string `json:"updateStatus"`
	CustomMsg    string `json:"customMessage"`
}

// Commit is a commit reference as listed by the commits endpoint
type Commit struct {
	CommitID  string   `json:"commitId"`
	Comment   string   `json:"comment"`
	Parents   []string `json:"parents"`
	Committer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Date  string `json:"date"`
	} `json:"committer"`
}

// FileChange represents a file modification for a push
type FileChange struct {
	Path       string
	Content    []byte
	ChangeType string // "add", "edit", "delete"
}

// Author is the identity recorded on a pushed commit
type Author struct {
	Name  string
	Email string
}

// PushResult is the answer of a push
type PushResult struct {
	Commits []struct {
		CommitID string `json:"commitId"`
	} `json:"commits"`
	RefUpdates []struct {
		Name        string `json:"name"`
		NewObjectID string `json:"newObjectId"`
	} `json:"refUpdates"`
}

type listResult[T any] struct {
	Value []T `json:"value"`
	Count int `json:"count"`
}

// GetProject returns a project by name or ID
func (c *Client) GetProject(ctx context.Context, project string) (*Project, error) {
	var result Project
	endpoint := fmt.Sprintf("/_apis/projects/%s?api-version=%s", url.PathEscape(project), apiVersion)
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRepository returns a repository by name or ID
func (c *Client) GetRepository(ctx context.Context, project, repo string) (*Repository, error) {
	var result Repository
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, c.repoEndpoint(project, repo, "", nil), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRepository creates a repository in a project
func (c *Client) CreateRepository(ctx context.Context, project, name string) (*Repository, error) {
	target, err := c.GetProject(ctx, project)
	if err != nil {
		return nil, err
	}

	var result Repository
	endpoint := fmt.Sprintf("/%s/_apis/git/repositories?api-version=%s", url.PathEscape(project), apiVersion)
	body := map[string]any{"name": name, "project": map[string]string{"id": target.ID}}
	if _, err = c.rest.DoJSON(ctx, http.MethodPost, endpoint, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RenameRepository renames a repository by ID
func (c *Client) RenameRepository(ctx context.Context, project, repoID, name string) (*Repository, error) {
	var result Repository
	body := map[string]string{"name": name}
	if _, err := c.rest.DoJSON(ctx, http.MethodPatch, c.repoEndpoint(project, repoID, "", nil), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRefs returns every ref matching filter, following continuation tokens
func (c *Client) GetRefs(ctx context.Context, project, repo, filter string) ([]Ref, error) {
	var allRefs []Ref
	continuationToken := ""

	for {
		query := url.Values{"filter": {filter}}
		if continuationToken != "" {
			query.Set("continuationToken", continuationToken)
		}

		var result listResult[Ref]
		headers, err := c.rest.DoJSON(ctx, http.MethodGet, c.repoEndpoint(project, repo, "/refs", query), nil, &result)
		if err != nil {
			return nil, err
		}
		allRefs = append(allRefs, result.Value...)

		continuationToken = headers.Get("x-ms-continuationtoken")
		if continuationToken == "" {
			break
		}
	}

	return allRefs, nil
}

// UpdateRefs applies ref updates; a rejected entry is reported as an error
func (c *Client) UpdateRefs(ctx context.Context, project, repo string, updates []RefUpdate) error {
	var result listResult[refUpdateResult]
	if _, err := c.rest.DoJSON(ctx, http.MethodPost, c.repoEndpoint(project, repo, "/refs", nil), updates, &result); err != nil {
		return err
	}
	for _, update := range result.Value {
		if !update.Success {
			return &httpclient.StatusError{
				StatusCode: http.StatusConflict,
				Body:       fmt.Sprintf("ref %s not updated: %s %s", update.Name, update.UpdateStatus, update.CustomMsg),
			}
		}
	}
	return nil
}

// GetRepositoryItems returns items (files/folders) one level under path at a version
func (c *Client) GetRepositoryItems(
	ctx context.Context,
	project, repo, path, version, versionType string,
) ([]RepositoryItem, error) {
	query := versionQuery(version, versionType)
	query.Set("scopePath", path)
	query.Set("recursionLevel", "OneLevel")

	var result listResult[RepositoryItem]
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, c.repoEndpoint(project, repo, "/items", query), nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetItem returns the metadata of a single item at a version
func (c *Client) GetItem(ctx context.Context, project, repo, path, version, versionType string) (*RepositoryItem, error) {
	query := versionQuery(version, versionType)
	query.Set("path", path)

	var result RepositoryItem
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, c.repoEndpoint(project, repo, "/items", query), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetFileContent returns the raw bytes of a file at a version
func (c *Client) GetFileContent(ctx context.Context, project, repo, path, version, versionType string) ([]byte, error) {
	query := versionQuery(version, versionType)
	query.Set("path", path)
	query.Set("$format", "octetStream")

	data, _, err := c.rest.Do(ctx, http.MethodGet, c.repoEndpoint(project, repo, "/items", query), nil, "")
	return data, err
}

// Push commits changes on top of oldObjectID of branch
func (c *Client) Push(
	ctx context.Context,
	project, repo, branch, oldObjectID, message string,
	author Author,
	changes []FileChange,
) (*PushResult, error) {
	var fileChanges []map[string]any
	for _, change := range changes {
		changeEntry := map[string]any{
			"changeType": change.ChangeType,
			"item": map[string]string{
				"path": "/" + strings.TrimPrefix(change.Path, "/"),
			},
		}
		if change.ChangeType != "delete" {
			changeEntry["newContent"] = map[string]string{
				"content":     base64.StdEncoding.EncodeToString(change.Content),
				"contentType": "base64encoded",
			}
		}
		fileChanges = append(fileChanges, changeEntry)
	}

	commit := map[string]any{
		"comment": message,
		"changes": fileChanges,
	}
	if author.Name != "" || author.Email != "" {
		commit["author"] = map[string]string{"name": author.Name, "email": author.Email}
	}

	pushBody := map[string]any{
		"refUpdates": []RefUpdate{{Name: "refs/heads/" + branch, OldObjectID: oldObjectID}},
		"commits":    []map[string]any{commit},
	}

	var result PushResult
	if _, err := c.rest.DoJSON(ctx, http.MethodPost, c.repoEndpoint(project, repo, "/pushes", nil), pushBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCommits returns a page of commits reachable from branch
func (c *Client) GetCommits(ctx context.Context, project, repo, branch string, skip, top int) ([]Commit, error) {
	query := url.Values{}
	query.Set("searchCriteria.itemVersion.version", branch)
	query.Set("searchCriteria.itemVersion.versionType", "branch")
	query.Set("searchCriteria.$skip", strconv.Itoa(skip))
	query.Set("searchCriteria.$top", strconv.Itoa(top))

	var result listResult[Commit]
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, c.repoEndpoint(project, repo, "/commits", query), nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetCommitChanges returns the paths touched by a commit
func (c *Client) GetCommitChanges(ctx context.Context, project, repo, commitID string) ([]string, error) {
	var result struct {
		Changes []struct {
			Item struct {
				Path     string `json:"path"`
				IsFolder bool   `json:"isFolder"`
			} `json:"item"`
			ChangeType string `json:"changeType"`
		} `json:"changes"`
	}

	endpoint := c.repoEndpoint(project, repo, "/commits/"+url.PathEscape(commitID)+"/changes", nil)
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(result.Changes))
	for _, change := range result.Changes {
		if change.Item.IsFolder {
			continue
		}
		paths = append(paths, strings.TrimPrefix(change.Item.Path, "/"))
	}
	return paths, nil
}

// HasContributePermission asks the security service whether the caller may push to a repository
func (c *Client) HasContributePermission(ctx context.Context, projectID, repoID string) (bool, error) {
	query := url.Values{"tokens": {fmt.Sprintf("repoV2/%s/%s", projectID, repoID)}, "api-version": {apiVersion}}
	endpoint := fmt.Sprintf("/_apis/permissions/%s/%d?%s",
		gitRepositoriesNamespace, genericContributePermission, query.Encode())

	var result listResult[bool]
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return false, err
	}
	return len(result.Value) > 0 && result.Value[0], nil
}

func (c *Client) repoEndpoint(project, repo, suffix string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)
	return fmt.Sprintf("/%s/_apis/git/repositories/%s%s?%s",
		url.PathEscape(project), url.PathEscape(repo), suffix, query.Encode())
}

func versionQuery(version, versionType string) url.Values {
	query := url.Values{}
	if version != "" {
		query.Set("versionDescriptor.version", version)
		query.Set("versionDescriptor.versionType", versionType)
	}
	return query
}

func isNotFound(err error) bool {
	var statusErr *httpclient.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
