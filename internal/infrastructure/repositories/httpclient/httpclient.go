// Package httpclient holds the outbound HTTP plumbing shared by every provider:
// proxy-aware transports, a small JSON REST client and the status classifier
// that maps provider responses onto the error taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

const maxErrorBody = 512

// New builds an HTTP client with an explicit timeout. When proxy is set every
// request goes through it and TLS verification follows proxy.SSLVerify.
func New(timeout time.Duration, proxy *entities.ResolvedProxy) *http.Client {
	if timeout <= 0 {
		timeout = entities.DefaultHTTPTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib guarantees the type
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy.URL())
		if !proxy.SSLVerify {
			//nolint:gosec // explicitly requested per repository
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

// Authorizer decorates a request with provider credentials.
type Authorizer func(req *http.Request)

// BasicAuth authorizes with HTTP basic authentication. An empty username sends ":"+password,
// which is how Azure DevOps expects personal access tokens.
func BasicAuth(username, password string) Authorizer {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Basic "+encoded)
	}
}

// BearerAuth authorizes with a bearer token.
func BearerAuth(token string) Authorizer {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// StatusError is a non-2xx provider answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, body)
}

// Client is a minimal REST client bound to one API root.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authorize  Authorizer
}

// NewClient creates a REST client for baseURL.
func NewClient(baseURL string, httpClient *http.Client, authorize Authorizer) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		authorize:  authorize,
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DoJSON sends body as JSON and decodes the answer into out when out is not nil.
func (c *Client) DoJSON(ctx context.Context, method, endpoint string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, headers, err := c.Do(ctx, method, endpoint, reader, "application/json")
	if err != nil {
		return nil, err
	}

	if out != nil && len(resp) > 0 {
		if unmarshalErr := json.Unmarshal(resp, out); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to parse response of %s: %w", endpoint, unmarshalErr)
		}
	}
	return headers, nil
}

// Do sends a request and returns the body of a 2xx answer. Azure DevOps answers
// 203 with a sign-in page on a bad token, so 203 is treated as an error.
func (c *Client) Do(
	ctx context.Context,
	method, endpoint string,
	body io.Reader,
	contentType string,
) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.authorize != nil {
		c.authorize(req)
	}
	if contentType != "" && body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.StatusCode == http.StatusNonAuthoritativeInfo {
		return nil, nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, resp.Header, nil
}

// Scope tells the classifier what kind of endpoint produced a status.
type Scope int

const (
	// ScopeRepo covers repository-level endpoints (metadata, branches, history).
	ScopeRepo Scope = iota
	// ScopeContent covers tree and file endpoints.
	ScopeContent
	// ScopeBranchCreate covers branch creation.
	ScopeBranchCreate
	// ScopeRepoCreate covers repository creation and rename.
	ScopeRepoCreate
	// ScopeAccess covers permission checks.
	ScopeAccess
)

// Classify maps an HTTP status onto the error taxonomy. Every provider goes
// through it so the same status always yields the same kind.
func Classify(provider string, status int, scope Scope, message string) *entities.VCSError {
	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusNonAuthoritativeInfo:
		kind = entities.ErrRepoAuthentication
	case status == http.StatusForbidden && scope == ScopeAccess:
		kind = entities.ErrRepoAccess
	case status == http.StatusForbidden:
		kind = entities.ErrAPIAuthorization
	case status == http.StatusNotFound && scope == ScopeContent:
		kind = entities.ErrInvalidBranchOrBaseDir
	case status == http.StatusNotFound && scope == ScopeBranchCreate:
		kind = entities.ErrBranchOperationFailure
	case status == http.StatusNotFound:
		kind = entities.ErrInvalidRepoURL
	case (status == http.StatusConflict || status == http.StatusUnprocessableEntity ||
		status == http.StatusBadRequest) && scope == ScopeBranchCreate:
		kind = entities.ErrBranchOperationFailure
	case (status == http.StatusConflict || status == http.StatusUnprocessableEntity) && scope == ScopeRepoCreate:
		kind = entities.ErrRepoAlreadyExists
	default:
		kind = entities.ErrVCS
	}

	if errors.Is(kind, entities.ErrVCS) {
		logger.Errorf("[%s] unclassified provider answer (status %d): %s", provider, status, message)
	}
	return entities.NewVCSError(kind, provider, message, nil)
}

// Wrap turns any error raised inside an adapter into a taxonomy error.
func Wrap(provider string, err error, scope Scope, message string) error {
	if err == nil {
		return nil
	}

	var vcsErr *entities.VCSError
	if errors.As(err, &vcsErr) {
		return vcsErr
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		classified := Classify(provider, statusErr.StatusCode, scope, message)
		classified.Err = statusErr
		return classified
	}

	logger.Errorf("[%s] %s: %v", provider, message, err)
	return entities.NewVCSError(entities.ErrVCS, provider, message, err)
}
