//go:build unit

package gitlab_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/gitlab"
)

const projectPath = "/api/v4/projects/acme/data"

type route func(w http.ResponseWriter, r *http.Request)

// newProvider serves routes keyed by "METHOD /suffix" relative to the project path.
func newProvider(t *testing.T, routes map[string]route) repositories.ProviderRepository {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, projectPath)
		if handler, ok := routes[key]; ok {
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Not Found"})
	}))
	t.Cleanup(server.Close)

	provider, err := gitlab.NewProviderRepository(repositories.ProviderSettings{
		Repository:  entities.Repository{URL: "https://gitlab.example.com/acme/data.git"},
		BaseURL:     server.URL,
		Credentials: entities.Credentials{Username: "oauth2", Password: "glpat-token"},
	})
	require.NoError(t, err)
	return provider
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGitLabFetchBranches(t *testing.T) {
	t.Parallel()

	t.Run("should list branches with the private token", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /repository/branches": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "glpat-token", r.Header.Get("Private-Token"))
				writeJSON(w, http.StatusOK, []map[string]any{
					{"name": "main", "commit": map[string]any{"id": "a1"}},
					{"name": "dev", "commit": map[string]any{"id": "b2"}},
				})
			},
		})

		// when
		branches, err := provider.FetchBranches(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.RemoteBranch{{Name: "main", SHA: "a1"}, {Name: "dev", SHA: "b2"}}, branches)
	})

	t.Run("should map 401 to an authentication error", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /repository/branches": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401 Unauthorized"})
			},
		})

		// when
		_, err := provider.FetchBranches(context.Background())

		// then
		require.ErrorIs(t, err, entities.ErrRepoAuthentication)
	})

	t.Run("should map 404 to an invalid repository url", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{})

		// when
		_, err := provider.FetchBranches(context.Background())

		// then
		require.ErrorIs(t, err, entities.ErrInvalidRepoURL)
	})
}

func TestGitLabCreateBranch(t *testing.T) {
	t.Parallel()

	t.Run("should fail when the branch already exists", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"POST /repository/branches": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Branch already exists"})
			},
		})

		// when
		err := provider.CreateBranch(context.Background(), "feature", "main")

		// then
		require.ErrorIs(t, err, entities.ErrBranchOperationFailure)
	})

	t.Run("should start from the default branch when no start point is given", func(t *testing.T) {
		t.Parallel()

		// given
		var ref string
		provider := newProvider(t, map[string]route{
			"GET ": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"id": 7, "default_branch": "develop"})
			},
			"POST /repository/branches": func(w http.ResponseWriter, r *http.Request) {
				ref = r.URL.Query().Get("ref")
				if ref == "" {
					var body map[string]string
					_ = json.NewDecoder(r.Body).Decode(&body)
					ref = body["ref"]
				}
				writeJSON(w, http.StatusCreated, map[string]any{"name": "feature"})
			},
		})

		// when
		err := provider.CreateBranch(context.Background(), "feature", "")

		// then
		require.NoError(t, err)
		assert.Equal(t, "develop", ref)
	})
}

func TestGitLabListFiles(t *testing.T) {
	t.Parallel()

	t.Run("should normalize tree nodes", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /repository/tree": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "notebooks", r.URL.Query().Get("path"))
				writeJSON(w, http.StatusOK, []map[string]any{
					{"name": "eda", "path": "notebooks/eda", "type": "tree"},
					{"name": "a.ipynb", "path": "notebooks/a.ipynb", "type": "blob"},
				})
			},
		})

		// when
		files, err := provider.ListFiles(context.Background(), "notebooks", "main", 0)

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.FileEntry{
			{Name: "eda", Path: "notebooks/eda", Type: entities.FileTypeTree},
			{Name: "a.ipynb", Path: "notebooks/a.ipynb", Type: entities.FileTypeBlob},
		}, files)
	})

	t.Run("should treat an empty subdirectory listing as an invalid base dir", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /repository/tree": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, []map[string]any{})
			},
		})

		// when
		_, err := provider.ListFiles(context.Background(), "missing", "main", 0)

		// then
		require.ErrorIs(t, err, entities.ErrInvalidBranchOrBaseDir)
	})

	t.Run("should tell a missing branch from a missing project", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET ": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"id": 7})
			},
		})

		// when
		_, err := provider.ListFiles(context.Background(), "", "nope", 0)

		// then
		require.ErrorIs(t, err, entities.ErrInvalidBranchOrBaseDir)
	})
}

func TestGitLabReadAndUpdateFile(t *testing.T) {
	t.Parallel()

	t.Run("should create a missing file and read it back", func(t *testing.T) {
		t.Parallel()

		// given
		var stored string
		created := false
		provider := newProvider(t, map[string]route{
			"GET /repository/files/src/query.sql": func(w http.ResponseWriter, _ *http.Request) {
				if !created {
					writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 File Not Found"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"file_path": "src/query.sql", "encoding": "base64", "blob_id": "blob9",
					"content": base64.StdEncoding.EncodeToString([]byte(stored)),
				})
			},
			"POST /repository/files/src/query.sql": func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				_ = json.NewDecoder(r.Body).Decode(&body)
				assert.Equal(t, "Jane Doe", body["author_name"])
				stored = body["content"]
				created = true
				writeJSON(w, http.StatusCreated, map[string]any{"file_path": "src/query.sql", "branch": "main"})
			},
		})

		// when
		updated, updateErr := provider.UpdateFile(context.Background(), entities.UpdateFileInput{
			Path: "src/query.sql", Content: "SELECT 1;", Message: "add query", Branch: "main",
			Author: entities.Identity{DisplayName: "Jane Doe", Email: "jane@example.com"},
		})
		read, readErr := provider.ReadFile(context.Background(), entities.ReadFileInput{
			Path: "src/query.sql", Ref: "main", Raw: true,
		})

		// then
		require.NoError(t, updateErr)
		require.NoError(t, readErr)
		assert.Equal(t, "blob9", updated.SHA)
		assert.Equal(t, "SELECT 1;", read.Content)
		assert.Nil(t, read.Encoding)
	})
}

func TestGitLabGetCommits(t *testing.T) {
	t.Parallel()

	t.Run("should flag merge commits", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /repository/commits": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "main", r.URL.Query().Get("ref_name"))
				writeJSON(w, http.StatusOK, []map[string]any{
					{"id": "c2", "message": "Merge branch", "parent_ids": []string{"a", "b"}, "committed_date": "2024-05-01T10:00:00Z"},
					{"id": "c1", "message": "init", "parent_ids": []string{}},
				})
			},
		})

		// when
		page := provider.GetCommits(context.Background(), "main", entities.PageRequest{Number: 1, PerPage: 20})

		// then
		require.True(t, page.Found)
		require.Len(t, page.Commits, 2)
		assert.True(t, page.Commits[0].IsMergeCommit)
		assert.False(t, page.Commits[1].IsMergeCommit)
	})

	t.Run("should soft-fail when the project is missing", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{})

		// when
		page := provider.GetCommits(context.Background(), "main", entities.PageRequest{Number: 1, PerPage: 20})
		files := provider.GetFiles(context.Background(), "c1")

		// then
		assert.False(t, page.Found)
		assert.Empty(t, page.Commits)
		assert.False(t, files.Found)
	})
}

func TestGitLabGetFiles(t *testing.T) {
	t.Parallel()

	t.Run("should list new and deleted paths", func(t *testing.T) {
		t.Parallel()

		// given
		provider := newProvider(t, map[string]route{
			"GET /repository/commits/c1/diff": func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, []map[string]any{
					{"old_path": "a.py", "new_path": "b.py"},
					{"old_path": "gone.py", "new_path": "gone.py", "deleted_file": true},
				})
			},
		})

		// when
		files := provider.GetFiles(context.Background(), "c1")

		// then
		assert.True(t, files.Found)
		assert.Equal(t, []string{"b.py", "gone.py"}, files.Paths)
	})
}

func TestGitLabValidateRepoAccess(t *testing.T) {
	t.Parallel()

	t.Run("should require developer access", func(t *testing.T) {
		t.Parallel()

		// given
		levels := map[int]bool{20: false, 30: true, 40: true}

		for level, allowed := range levels {
			provider := newProvider(t, map[string]route{
				"GET ": func(w http.ResponseWriter, _ *http.Request) {
					writeJSON(w, http.StatusOK, map[string]any{
						"id":          7,
						"permissions": map[string]any{"project_access": map[string]any{"access_level": level}},
					})
				},
			})

			// when
			err := provider.ValidateRepoAccess(context.Background())

			// then
			if allowed {
				require.NoError(t, err, "level %d", level)
			} else {
				require.ErrorIs(t, err, entities.ErrRepoAccess, "level %d", level)
			}
		}
	})
}
