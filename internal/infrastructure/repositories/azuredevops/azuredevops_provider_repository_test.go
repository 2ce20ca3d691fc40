//go:build unit

package azuredevops_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/azuredevops"
)

const repoPath = "/acme/data/_apis/git/repositories/notebooks"

func newProvider(t *testing.T, mux *http.ServeMux) repositories.ProviderRepository {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider, err := azuredevops.NewProviderRepository(repositories.ProviderSettings{
		Repository:  entities.Repository{URL: server.URL + "/acme/data/_git/notebooks"},
		Credentials: entities.Credentials{Password: "ado-pat"},
	})
	require.NoError(t, err)
	return provider
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func repoHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id": "repo-id", "name": "notebooks", "defaultBranch": "refs/heads/main",
		"project": map[string]any{"id": "project-id", "name": "data"},
	})
}

func TestSplitRepoURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		organization string
		project      string
		repo         string
	}{
		{
			name:         "should split a cloud https remote",
			raw:          "https://acme@dev.azure.com/acme/data/_git/notebooks",
			organization: "https://dev.azure.com/acme", project: "data", repo: "notebooks",
		},
		{
			name:         "should drop the .git suffix of a cloud remote",
			raw:          "https://dev.azure.com/acme/data/_git/notebooks.git",
			organization: "https://dev.azure.com/acme", project: "data", repo: "notebooks",
		},
		{
			name:         "should split a cloud ssh remote",
			raw:          "git@ssh.dev.azure.com:v3/acme/data/notebooks",
			organization: "https://dev.azure.com/acme", project: "data", repo: "notebooks",
		},
		{
			name:         "should keep the collection of a server remote",
			raw:          "https://tfs.example.com/tfs/DefaultCollection/data/_git/notebooks",
			organization: "https://tfs.example.com/tfs/DefaultCollection", project: "data", repo: "notebooks",
		},
		{
			name:         "should split a legacy visualstudio remote",
			raw:          "https://acme.visualstudio.com/data/_git/notebooks",
			organization: "https://acme.visualstudio.com", project: "data", repo: "notebooks",
		},
		{
			name:         "should use the repository as project when the project is omitted",
			raw:          "https://dev.azure.com/acme/_git/notebooks",
			organization: "https://dev.azure.com/acme", project: "notebooks", repo: "notebooks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// when
			organization, project, repo, err := azuredevops.SplitRepoURL(tt.raw)

			// then
			require.NoError(t, err)
			assert.Equal(t, tt.organization, organization)
			assert.Equal(t, tt.project, project)
			assert.Equal(t, tt.repo, repo)
		})
	}

	t.Run("should reject a remote without _git", func(t *testing.T) {
		t.Parallel()

		// when
		_, _, _, err := azuredevops.SplitRepoURL("https://dev.azure.com/acme/data/notebooks")

		// then
		require.ErrorIs(t, err, entities.ErrInvalidRepoURL)
	})
}

func TestAzureDevOpsFetchBranches(t *testing.T) {
	t.Parallel()

	t.Run("should follow continuation tokens with the PAT as basic auth", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/refs", func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Empty(t, username)
			assert.Equal(t, "ado-pat", password)
			assert.Equal(t, "heads/", r.URL.Query().Get("filter"))

			if r.URL.Query().Get("continuationToken") == "" {
				w.Header().Set("x-ms-continuationtoken", "next")
				writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
					{"name": "refs/heads/main", "objectId": "a1"},
				}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"name": "refs/heads/dev", "objectId": "b2"},
			}})
		})
		provider := newProvider(t, mux)

		// when
		branches, err := provider.FetchBranches(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.RemoteBranch{{Name: "main", SHA: "a1"}, {Name: "dev", SHA: "b2"}}, branches)
	})

	t.Run("should map a sign-in page to an authentication error", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/refs", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNonAuthoritativeInfo)
			_, _ = w.Write([]byte("<html>sign in</html>"))
		})
		provider := newProvider(t, mux)

		// when
		_, err := provider.FetchBranches(context.Background())

		// then
		require.ErrorIs(t, err, entities.ErrRepoAuthentication)
	})
}

func TestAzureDevOpsCreateBranch(t *testing.T) {
	t.Parallel()

	t.Run("should branch from the default branch head", func(t *testing.T) {
		t.Parallel()

		// given
		var updates []map[string]string
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath, repoHandler)
		mux.HandleFunc("GET "+repoPath+"/refs", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "heads/main", r.URL.Query().Get("filter"))
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"name": "refs/heads/main", "objectId": "1111111111111111111111111111111111111111"},
				{"name": "refs/heads/main-old", "objectId": "2222222222222222222222222222222222222222"},
			}})
		})
		mux.HandleFunc("POST "+repoPath+"/refs", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&updates)
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"name": "refs/heads/feature", "success": true},
			}})
		})
		provider := newProvider(t, mux)

		// when
		err := provider.CreateBranch(context.Background(), "feature", "")

		// then
		require.NoError(t, err)
		require.Len(t, updates, 1)
		assert.Equal(t, "refs/heads/feature", updates[0]["name"])
		assert.Equal(t, "0000000000000000000000000000000000000000", updates[0]["oldObjectId"])
		assert.Equal(t, "1111111111111111111111111111111111111111", updates[0]["newObjectId"])
	})

	t.Run("should fail when the server rejects the ref update", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("POST "+repoPath+"/refs", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"name": "refs/heads/feature", "success": false, "updateStatus": "failedToCreate"},
			}})
		})
		provider := newProvider(t, mux)

		// when
		err := provider.CreateBranch(context.Background(), "feature", "3333333333333333333333333333333333333333")

		// then
		require.ErrorIs(t, err, entities.ErrBranchOperationFailure)
	})

	t.Run("should fail when the start point does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/refs", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{}})
		})
		provider := newProvider(t, mux)

		// when
		err := provider.CreateBranch(context.Background(), "feature", "nope")

		// then
		require.ErrorIs(t, err, entities.ErrBranchOperationFailure)
	})
}

func TestAzureDevOpsListFiles(t *testing.T) {
	t.Parallel()

	t.Run("should skip the folder itself and honor the limit", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/items", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/notebooks", r.URL.Query().Get("scopePath"))
			assert.Equal(t, "dev", r.URL.Query().Get("versionDescriptor.version"))
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"path": "/notebooks", "isFolder": true, "gitObjectType": "tree"},
				{"path": "/notebooks/eda", "isFolder": true, "gitObjectType": "tree"},
				{"path": "/notebooks/a.ipynb", "gitObjectType": "blob"},
				{"path": "/notebooks/b.ipynb", "gitObjectType": "blob"},
			}})
		})
		provider := newProvider(t, mux)

		// when
		files, err := provider.ListFiles(context.Background(), "notebooks/", "dev", 2)

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.FileEntry{
			{Name: "eda", Path: "notebooks/eda", Type: entities.FileTypeTree},
			{Name: "a.ipynb", Path: "notebooks/a.ipynb", Type: entities.FileTypeBlob},
		}, files)
	})

	t.Run("should reject a file as base directory", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/items", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"path": "/README.md", "gitObjectType": "blob"},
			}})
		})
		provider := newProvider(t, mux)

		// when
		_, err := provider.ListFiles(context.Background(), "README.md", "main", 0)

		// then
		require.ErrorIs(t, err, entities.ErrInvalidBranchOrBaseDir)
	})

	t.Run("should tell a missing path from a missing repository", func(t *testing.T) {
		t.Parallel()

		// given
		withRepo := http.NewServeMux()
		withRepo.HandleFunc("GET "+repoPath, repoHandler)
		withoutRepo := http.NewServeMux()

		// when
		_, pathErr := newProvider(t, withRepo).ListFiles(context.Background(), "missing", "main", 0)
		_, repoErr := newProvider(t, withoutRepo).ListFiles(context.Background(), "missing", "main", 0)

		// then
		require.ErrorIs(t, pathErr, entities.ErrInvalidBranchOrBaseDir)
		require.ErrorIs(t, repoErr, entities.ErrInvalidRepoURL)
	})
}

func TestAzureDevOpsReadAndUpdateFile(t *testing.T) {
	t.Parallel()

	t.Run("should read a notebook as a parsed document", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/items", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "commit", r.URL.Query().Get("versionDescriptor.versionType"))
			if r.URL.Query().Get("$format") == "octetStream" {
				_, _ = w.Write([]byte(`{"cells": []}`))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"path": "/eda.ipynb", "objectId": "blob7"})
		})
		provider := newProvider(t, mux)

		// when
		file, err := provider.ReadFile(context.Background(), entities.ReadFileInput{
			Path: "eda.ipynb", Ref: "c0ffee", RefType: entities.RefTypeCommit, Raw: true,
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "eda.ipynb", file.Path)
		assert.Equal(t, "blob7", file.SHA)
		assert.Equal(t, map[string]any{"cells": []any{}}, file.Document)
	})

	t.Run("should push an add when the file does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		var push struct {
			RefUpdates []map[string]string `json:"refUpdates"`
			Commits    []struct {
				Comment string            `json:"comment"`
				Author  map[string]string `json:"author"`
				Changes []struct {
					ChangeType string            `json:"changeType"`
					Item       map[string]string `json:"item"`
					NewContent map[string]string `json:"newContent"`
				} `json:"changes"`
			} `json:"commits"`
		}
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/refs", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"name": "refs/heads/main", "objectId": "head1"},
			}})
		})
		mux.HandleFunc("GET "+repoPath+"/items", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("versionDescriptor.versionType") == "branch" {
				writeJSON(w, http.StatusNotFound, map[string]string{"message": "TF401174: item not found"})
				return
			}
			assert.Equal(t, "head2", r.URL.Query().Get("versionDescriptor.version"))
			writeJSON(w, http.StatusOK, map[string]any{"path": "/src/query.sql", "objectId": "blob9"})
		})
		mux.HandleFunc("POST "+repoPath+"/pushes", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&push)
			writeJSON(w, http.StatusCreated, map[string]any{"commits": []map[string]any{{"commitId": "head2"}}})
		})
		provider := newProvider(t, mux)

		// when
		updated, err := provider.UpdateFile(context.Background(), entities.UpdateFileInput{
			Path: "src/query.sql", Content: "SELECT 1;", Message: "add query", Branch: "main",
			Author: entities.Identity{Username: "jdoe", Email: "jane@example.com"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "blob9", updated.SHA)
		assert.Contains(t, updated.URL, "version=GChead2")
		require.Len(t, push.RefUpdates, 1)
		assert.Equal(t, "head1", push.RefUpdates[0]["oldObjectId"])
		require.Len(t, push.Commits, 1)
		assert.Equal(t, "add query", push.Commits[0].Comment)
		assert.Equal(t, "jdoe", push.Commits[0].Author["name"])
		require.Len(t, push.Commits[0].Changes, 1)
		assert.Equal(t, "add", push.Commits[0].Changes[0].ChangeType)
		assert.Equal(t, "/src/query.sql", push.Commits[0].Changes[0].Item["path"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("SELECT 1;")),
			push.Commits[0].Changes[0].NewContent["content"])
	})

	t.Run("should fail on a missing branch before pushing", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/refs", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{}})
		})
		provider := newProvider(t, mux)

		// when
		_, err := provider.UpdateFile(context.Background(), entities.UpdateFileInput{
			Path: "a.sql", Content: "x", Message: "m", Branch: "nope",
		})

		// then
		require.ErrorIs(t, err, entities.ErrInvalidBranchOrBaseDir)
	})
}

func TestAzureDevOpsGetCommits(t *testing.T) {
	t.Parallel()

	t.Run("should flag merged pull requests", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/commits", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "main", r.URL.Query().Get("searchCriteria.itemVersion.version"))
			assert.Equal(t, "20", r.URL.Query().Get("searchCriteria.$skip"))
			assert.Equal(t, "20", r.URL.Query().Get("searchCriteria.$top"))
			writeJSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
				{"commitId": "c2", "comment": "Merged PR 42: add eda", "committer": map[string]any{"date": "2024-05-01T10:00:00Z"}},
				{"commitId": "c1", "comment": "init"},
			}})
		})
		provider := newProvider(t, mux)

		// when
		page := provider.GetCommits(context.Background(), "main", entities.PageRequest{Number: 2, PerPage: 20})

		// then
		require.True(t, page.Found)
		require.Len(t, page.Commits, 2)
		assert.True(t, page.Commits[0].IsMergeCommit)
		assert.Equal(t, 2024, page.Commits[0].Date.Year())
		assert.False(t, page.Commits[1].IsMergeCommit)
	})

	t.Run("should soft-fail when the repository is missing", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, http.NewServeMux())

		// when
		page := provider.GetCommits(context.Background(), "main", entities.PageRequest{Number: 1, PerPage: 20})
		files := provider.GetFiles(context.Background(), "c1")

		// then
		assert.False(t, page.Found)
		assert.Empty(t, page.Commits)
		assert.False(t, files.Found)
		assert.Empty(t, files.Paths)
	})
}

func TestAzureDevOpsGetFiles(t *testing.T) {
	t.Parallel()

	t.Run("should list changed files without folders", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/commits/c1/changes", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"changes": []map[string]any{
				{"item": map[string]any{"path": "/src", "isFolder": true}, "changeType": "edit"},
				{"item": map[string]any{"path": "/src/a.py"}, "changeType": "add"},
			}})
		})
		provider := newProvider(t, mux)

		// when
		files := provider.GetFiles(context.Background(), "c1")

		// then
		assert.True(t, files.Found)
		assert.Equal(t, []string{"src/a.py"}, files.Paths)
	})
}

func TestAzureDevOpsValidateRepoAccess(t *testing.T) {
	t.Parallel()

	for _, allowed := range []bool{true, false} {
		t.Run("should follow the contribute permission", func(t *testing.T) {
			t.Parallel()

			// given
			mux := http.NewServeMux()
			mux.HandleFunc("GET "+repoPath, repoHandler)
			mux.HandleFunc("GET /acme/_apis/permissions/2e9eb7ed-3c0a-47d4-87c1-0ffdd275fd87/4",
				func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "repoV2/project-id/repo-id", r.URL.Query().Get("tokens"))
					writeJSON(w, http.StatusOK, map[string]any{"value": []bool{allowed}})
				})
			provider := newProvider(t, mux)

			// when
			err := provider.ValidateRepoAccess(context.Background())

			// then
			if allowed {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, entities.ErrRepoAccess)
			}
		})
	}
}
