package httpclient

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rios0rios0/gitbridge/internal/domain/entities"
)

// RepoURL is a parsed remote address.
type RepoURL struct {
	Scheme   string
	Host     string
	Segments []string // path segments without the ".git" suffix
}

// ParseRepoURL accepts https remotes (with or without userinfo) and scp-like ssh remotes.
func ParseRepoURL(provider, raw string) (*RepoURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, entities.NewVCSError(entities.ErrInvalidRepoURL, provider, "repository url is empty", nil)
	}

	// git@host:owner/repo.git
	if !strings.Contains(trimmed, "://") {
		if at := strings.Index(trimmed, "@"); at >= 0 {
			trimmed = trimmed[at+1:]
		}
		trimmed = "ssh://" + strings.Replace(trimmed, ":", "/", 1)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return nil, entities.NewVCSError(
			entities.ErrInvalidRepoURL, provider, fmt.Sprintf("malformed repository url %q", raw), err,
		)
	}

	var segments []string
	for _, segment := range strings.Split(strings.Trim(parsed.Path, "/"), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) > 0 {
		segments[len(segments)-1] = strings.TrimSuffix(segments[len(segments)-1], ".git")
	}

	scheme, host := parsed.Scheme, parsed.Host
	if scheme != "http" && scheme != "https" {
		// the ssh daemon port says nothing about where the API listens
		scheme, host = "https", parsed.Hostname()
	}
	return &RepoURL{Scheme: scheme, Host: host, Segments: segments}, nil
}

// Origin returns scheme://host.
func (u *RepoURL) Origin() string {
	return u.Scheme + "://" + u.Host
}

// Hostname returns the host without port.
func (u *RepoURL) Hostname() string {
	return strings.Split(u.Host, ":")[0]
}
