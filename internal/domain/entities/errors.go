package entities

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds shared by every provider. Callers branch on them with errors.Is.
var (
	ErrRepoAuthentication     = errors.New("repository authentication failed")
	ErrInvalidRepoURL         = errors.New("invalid repository url")
	ErrInvalidBranchOrBaseDir = errors.New("invalid branch or base directory")
	ErrAPIAuthorization       = errors.New("api authorization denied")
	ErrRepoAccess             = errors.New("insufficient repository access")
	ErrBranchOperationFailure = errors.New("branch operation failed")
	ErrRepoAlreadyExists      = errors.New("repository already exists")
	ErrPushRejected           = errors.New("push rejected by server policy")
	ErrPushFailure            = errors.New("push failed")
	ErrCloneFailure           = errors.New("clone failed")
	ErrVCS                    = errors.New("version control error")

	ErrProviderNotConfigured = errors.New("version control provider is not configured")
	ErrCredentialResolution  = errors.New("unable to resolve repository credentials")
	ErrNoActiveRepo          = errors.New("no active repository for user in project")
	ErrRepoNotFound          = errors.New("repository not found")
	ErrBranchNotFound        = errors.New("branch not found")
)

// VCSError is the only error type that crosses the provider boundary.
type VCSError struct {
	Kind     error
	Provider string
	Message  string
	Err      error
}

// NewVCSError builds a taxonomy error; cause may be nil.
func NewVCSError(kind error, provider, message string, cause error) *VCSError {
	return &VCSError{Kind: kind, Provider: provider, Message: message, Err: cause}
}

func (e *VCSError) Error() string {
	var sb strings.Builder
	if e.Provider != "" {
		sb.WriteString("[" + e.Provider + "] ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	return sb.String()
}

func (e *VCSError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CredentialResolutionError names the fields that could not be resolved.
type CredentialResolutionError struct {
	Fields []string
	Err    error
}

func (e *CredentialResolutionError) Error() string {
	return fmt.Sprintf(
		"%s: could not resolve %s, please update the repository credentials",
		ErrCredentialResolution, strings.Join(e.Fields, " and "),
	)
}

func (e *CredentialResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCredentialResolution}
	}
	return []error{ErrCredentialResolution, e.Err}
}

// HTTPStatusFor maps an error onto the status an outer HTTP layer should answer with.
func HTTPStatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRepoAuthentication), errors.Is(err, ErrCredentialResolution):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAPIAuthorization), errors.Is(err, ErrRepoAccess), errors.Is(err, ErrPushRejected):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidRepoURL), errors.Is(err, ErrRepoNotFound), errors.Is(err, ErrBranchNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRepoAlreadyExists), errors.Is(err, ErrBranchOperationFailure):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidBranchOrBaseDir), errors.Is(err, ErrProviderNotConfigured),
		errors.Is(err, ErrNoActiveRepo):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
