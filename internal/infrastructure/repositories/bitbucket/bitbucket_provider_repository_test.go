//go:build unit

package bitbucket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
	"github.com/rios0rios0/gitbridge/internal/domain/repositories"
	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/bitbucket"
	"github.com/rios0rios0/gitbridge/test/infrastructure/repositorydoubles"
)

const repoPath = "/bitbucket/rest/api/1.0/projects/DATA/repos/notebooks"

func newProvider(
	t *testing.T,
	mux *http.ServeMux,
	workingCopy repositories.WorkingCopyRepository,
) (repositories.ProviderRepository, string) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider, err := bitbucket.NewProviderRepository(repositories.ProviderSettings{
		Repository:  entities.Repository{URL: server.URL + "/bitbucket/scm/DATA/notebooks.git"},
		Credentials: entities.Credentials{Username: "jdoe", Password: "secret"},
		WorkingCopy: workingCopy,
	})
	require.NoError(t, err)
	return provider, server.URL
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func repoHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"slug": "notebooks", "name": "notebooks"})
}

func TestNewProviderRepository(t *testing.T) {
	t.Parallel()

	t.Run("should reject a url without project and repository", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := bitbucket.NewProviderRepository(repositories.ProviderSettings{
			Repository: entities.Repository{URL: "https://bitbucket.example.com/scm/DATA"},
		})

		// then
		require.ErrorIs(t, err, entities.ErrInvalidRepoURL)
	})
}

func TestBitbucketFetchBranches(t *testing.T) {
	t.Parallel()

	t.Run("should page through branches with basic auth", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/branches", func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "jdoe", username)
			assert.Equal(t, "secret", password)

			if r.URL.Query().Get("start") == "0" {
				writeJSON(w, http.StatusOK, map[string]any{
					"values":     []map[string]any{{"displayId": "main", "latestCommit": "a1"}},
					"isLastPage": false, "nextPageStart": 1,
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"values":     []map[string]any{{"displayId": "dev", "latestCommit": "b2"}},
				"isLastPage": true,
			})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		branches, err := provider.FetchBranches(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.RemoteBranch{{Name: "main", SHA: "a1"}, {Name: "dev", SHA: "b2"}}, branches)
	})

	t.Run("should map 401 to an authentication error", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/branches", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"errors": []map[string]string{{"message": "denied"}}})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		_, err := provider.FetchBranches(context.Background())

		// then
		require.ErrorIs(t, err, entities.ErrRepoAuthentication)
	})
}

func TestBitbucketCreateBranch(t *testing.T) {
	t.Parallel()

	t.Run("should start from the default branch when no start point is given", func(t *testing.T) {
		t.Parallel()

		// given
		var body map[string]string
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/branches/default", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"displayId": "develop", "isDefault": true})
		})
		mux.HandleFunc("POST "+repoPath+"/branches", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, http.StatusOK, map[string]any{"displayId": "feature"})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		err := provider.CreateBranch(context.Background(), "feature", "")

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "feature", "startPoint": "develop"}, body)
	})

	t.Run("should fail when the branch already exists", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("POST "+repoPath+"/branches", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]any{"errors": []map[string]string{{"message": "exists"}}})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		err := provider.CreateBranch(context.Background(), "feature", "main")

		// then
		require.ErrorIs(t, err, entities.ErrBranchOperationFailure)
	})
}

func TestBitbucketListFiles(t *testing.T) {
	t.Parallel()

	t.Run("should join child names with the directory", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/browse/notebooks", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "main", r.URL.Query().Get("at"))
			writeJSON(w, http.StatusOK, map[string]any{"children": map[string]any{
				"values": []map[string]any{
					{"path": map[string]any{"toString": "eda"}, "type": "DIRECTORY"},
					{"path": map[string]any{"toString": "a.ipynb"}, "type": "FILE"},
				},
				"isLastPage": true,
			}})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		files, err := provider.ListFiles(context.Background(), "/notebooks/", "main", 0)

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.FileEntry{
			{Name: "eda", Path: "notebooks/eda", Type: entities.FileTypeTree},
			{Name: "a.ipynb", Path: "notebooks/a.ipynb", Type: entities.FileTypeBlob},
		}, files)
	})

	t.Run("should stop paging when the next page does not move forward", func(t *testing.T) {
		t.Parallel()

		// given
		requests := 0
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/browse/notebooks", func(w http.ResponseWriter, _ *http.Request) {
			requests++
			writeJSON(w, http.StatusOK, map[string]any{"children": map[string]any{
				"values":        []map[string]any{{"path": map[string]any{"toString": "a.sql"}, "type": "FILE"}},
				"isLastPage":    false,
				"nextPageStart": 0,
			}})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		files, err := provider.ListFiles(context.Background(), "notebooks", "main", 0)

		// then
		require.NoError(t, err)
		assert.Len(t, files, 1)
		assert.Equal(t, 1, requests)
	})

	t.Run("should browse the root without a trailing slash", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/browse", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"children": map[string]any{
				"values": []map[string]any{
					{"path": map[string]any{"toString": "README.md"}, "type": "FILE"},
					{"path": map[string]any{"toString": "setup.py"}, "type": "FILE"},
				},
				"isLastPage": true,
			}})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		files, err := provider.ListFiles(context.Background(), "", "main", 1)

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.FileEntry{{Name: "README.md", Path: "README.md", Type: entities.FileTypeBlob}}, files)
	})

	t.Run("should tell a missing path from a missing repository", func(t *testing.T) {
		t.Parallel()

		// given
		withRepo := http.NewServeMux()
		withRepo.HandleFunc("GET "+repoPath, repoHandler)
		pathProvider, _ := newProvider(t, withRepo, nil)
		repoProvider, _ := newProvider(t, http.NewServeMux(), nil)

		// when
		_, pathErr := pathProvider.ListFiles(context.Background(), "missing", "main", 0)
		_, repoErr := repoProvider.ListFiles(context.Background(), "missing", "main", 0)

		// then
		require.ErrorIs(t, pathErr, entities.ErrInvalidBranchOrBaseDir)
		require.ErrorIs(t, repoErr, entities.ErrInvalidRepoURL)
	})
}

func TestBitbucketReadFile(t *testing.T) {
	t.Parallel()

	t.Run("should read raw content with the last commit touching the file", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/raw/src/query.sql", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "main", r.URL.Query().Get("at"))
			_, _ = w.Write([]byte("SELECT 1;"))
		})
		mux.HandleFunc("GET "+repoPath+"/commits", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "src/query.sql", r.URL.Query().Get("path"))
			writeJSON(w, http.StatusOK, map[string]any{"values": []map[string]any{{"id": "c9"}}, "isLastPage": true})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		file, err := provider.ReadFile(context.Background(), entities.ReadFileInput{
			Path: "src/query.sql", Ref: "main", RefType: entities.RefTypeBranch, Raw: true,
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1;", file.Content)
		assert.Equal(t, "c9", file.SHA)
		assert.Nil(t, file.Encoding)
	})
}

func TestBitbucketUpdateFile(t *testing.T) {
	t.Parallel()

	t.Run("should commit through a working copy of the scm remote", func(t *testing.T) {
		t.Parallel()

		// given
		workingCopy := &repositorydoubles.SpyWorkingCopyRepository{PushID: "c10"}
		provider, serverURL := newProvider(t, http.NewServeMux(), workingCopy)

		// when
		updated, err := provider.UpdateFile(context.Background(), entities.UpdateFileInput{
			Path: "/src/query.sql", Content: "SELECT 2;", Message: "tweak", Branch: "dev",
			Author: entities.Identity{DisplayName: "Jane Doe", Email: "jane@example.com"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "c10", updated.SHA)
		require.Len(t, workingCopy.Pushes, 1)
		push := workingCopy.Pushes[0]
		assert.Equal(t, serverURL+"/bitbucket/scm/data/notebooks.git", push.Remote.URL)
		assert.Equal(t, entities.Credentials{Username: "jdoe", Password: "secret"}, push.Remote.Credentials)
		assert.Equal(t, "dev", push.Branch)
		assert.Equal(t, []entities.FileChange{{
			Path: "src/query.sql", Content: []byte("SELECT 2;"), ChangeType: entities.FileChangeEdit,
		}}, push.Changes)
	})

	t.Run("should surface a rejected push", func(t *testing.T) {
		t.Parallel()

		// given
		rejected := entities.NewVCSError(entities.ErrPushRejected, "git", "pre-receive hook declined", nil)
		workingCopy := &repositorydoubles.SpyWorkingCopyRepository{PushErr: rejected}
		provider, _ := newProvider(t, http.NewServeMux(), workingCopy)

		// when
		_, err := provider.UpdateFile(context.Background(), entities.UpdateFileInput{
			Path: "a.sql", Content: "x", Message: "m", Branch: "main",
		})

		// then
		require.ErrorIs(t, err, entities.ErrPushRejected)
	})
}

func TestBitbucketGetCommits(t *testing.T) {
	t.Parallel()

	t.Run("should convert millisecond timestamps and flag merges", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/commits", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "main", r.URL.Query().Get("until"))
			assert.Equal(t, "20", r.URL.Query().Get("start"))
			writeJSON(w, http.StatusOK, map[string]any{"values": []map[string]any{
				{
					"id": "c2", "message": "Merge pull request #4", "committerTimestamp": 1714557600000,
					"parents": []map[string]string{{"id": "a"}, {"id": "b"}},
				},
				{"id": "c1", "message": "init", "parents": []map[string]string{}},
			}, "isLastPage": true})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		page := provider.GetCommits(context.Background(), "main", entities.PageRequest{Number: 2, PerPage: 20})

		// then
		require.True(t, page.Found)
		require.Len(t, page.Commits, 2)
		assert.True(t, page.Commits[0].IsMergeCommit)
		assert.Equal(t, int64(1714557600), page.Commits[0].Date.Unix())
		assert.False(t, page.Commits[1].IsMergeCommit)
	})

	t.Run("should soft-fail when the repository is missing", func(t *testing.T) {
		t.Parallel()

		// given
		provider, _ := newProvider(t, http.NewServeMux(), nil)

		// when
		page := provider.GetCommits(context.Background(), "main", entities.PageRequest{Number: 1, PerPage: 20})
		files := provider.GetFiles(context.Background(), "c1")

		// then
		assert.False(t, page.Found)
		assert.False(t, files.Found)
	})
}

func TestBitbucketGetFiles(t *testing.T) {
	t.Parallel()

	t.Run("should list changed paths", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET "+repoPath+"/commits/c1/changes", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"values": []map[string]any{
				{"path": map[string]any{"toString": "src/a.py"}},
				{"path": map[string]any{"toString": "src/b.py"}},
			}, "isLastPage": true})
		})
		provider, _ := newProvider(t, mux, nil)

		// when
		files := provider.GetFiles(context.Background(), "c1")

		// then
		assert.True(t, files.Found)
		assert.Equal(t, []string{"src/a.py", "src/b.py"}, files.Paths)
	})
}

func TestBitbucketValidateRepoAccess(t *testing.T) {
	t.Parallel()

	t.Run("should require the repository in the REPO_WRITE listing", func(t *testing.T) {
		t.Parallel()

		// given
		listing := map[string][]map[string]any{
			"notebooks": {{"slug": "notebooks"}},
			"":          {},
		}

		for slug, values := range listing {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /bitbucket/rest/api/1.0/repos", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "REPO_WRITE", r.URL.Query().Get("permission"))
				assert.Equal(t, "DATA", r.URL.Query().Get("projectkey"))
				writeJSON(w, http.StatusOK, map[string]any{"values": values, "isLastPage": true})
			})
			provider, _ := newProvider(t, mux, nil)

			// when
			err := provider.ValidateRepoAccess(context.Background())

			// then
			if slug != "" {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, entities.ErrRepoAccess)
			}
		}
	})
}
