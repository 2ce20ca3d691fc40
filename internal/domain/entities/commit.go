package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// PageAll requests the whole history instead of a single page.
	PageAll = "all"

	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Commit is provider-sourced history; it is never persisted.
type Commit struct {
	ID            string
	Date          time.Time
	Message       string
	IsMergeCommit bool
}

// PageRequest is a normalized history page.
type PageRequest struct {
	Number  int
	PerPage int
	All     bool
}

// ParsePage accepts a 1-based page number or "all".
func ParsePage(pageNo string, perPage int) (PageRequest, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	raw := strings.TrimSpace(pageNo)
	if raw == "" {
		return PageRequest{Number: 1, PerPage: perPage}, nil
	}
	if strings.EqualFold(raw, PageAll) {
		return PageRequest{Number: 1, PerPage: MaxPerPage, All: true}, nil
	}

	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return PageRequest{}, fmt.Errorf("invalid page number %q", pageNo)
	}
	return PageRequest{Number: number, PerPage: perPage}, nil
}

// Offset is the zero-based index of the first item on the page.
func (p PageRequest) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// CommitPage is the soft-fail answer of a history listing.
type CommitPage struct {
	Commits []Commit
	Found   bool
	Message string
}

// CommitsFound wraps a successful listing.
func CommitsFound(commits []Commit) CommitPage {
	if len(commits) == 0 {
		return CommitPage{Commits: []Commit{}, Found: false, Message: "no commits found"}
	}
	return CommitPage{Commits: commits, Found: true}
}

// CommitsNotFound wraps a failed listing without raising.
func CommitsNotFound(message string) CommitPage {
	return CommitPage{Commits: []Commit{}, Found: false, Message: message}
}

// ChangedFiles is the soft-fail answer of a per-commit diff listing.
type ChangedFiles struct {
	Paths   []string
	Found   bool
	Message string
}

// ChangedFilesFound wraps a successful diff listing.
func ChangedFilesFound(paths []string) ChangedFiles {
	if len(paths) == 0 {
		return ChangedFiles{Paths: []string{}, Found: false, Message: "no changed files found"}
	}
	return ChangedFiles{Paths: paths, Found: true}
}

// ChangedFilesNotFound wraps a failed diff listing without raising.
func ChangedFilesNotFound(message string) ChangedFiles {
	return ChangedFiles{Paths: []string{}, Found: false, Message: message}
}
