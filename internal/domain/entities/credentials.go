package entities

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// SecretReferencePrefix marks a stored value that lives in the secret store.
	SecretReferencePrefix = "vault:"
	// RepositoryTable prefixes every secret key owned by a git_repository row.
	RepositoryTable = "git_repository"
)

// SecretKey builds the table-name-prefixed key of a repository secret.
func SecretKey(repoID, field string) string {
	return fmt.Sprintf("%s_%s_%s", RepositoryTable, repoID, field)
}

// SecretReference turns a secret key into the value persisted in place of the secret.
func SecretReference(key string) string {
	return SecretReferencePrefix + key
}

// ParseSecretReference returns the secret key when value is a "vault:<key>" reference.
func ParseSecretReference(value string) (string, bool) {
	if !strings.HasPrefix(value, SecretReferencePrefix) {
		return "", false
	}
	key := strings.TrimPrefix(value, SecretReferencePrefix)
	return key, key != ""
}

// Credentials are resolved, plaintext credentials scoped to a single call.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credential was resolved.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: <redacted>}", c.Username)
}

// ProxyDetails is the optional per-repository proxy column.
type ProxyDetails struct {
	IPAddress string `json:"IPaddress" yaml:"ip_address"`
	Protocol  string `json:"Protocol" yaml:"protocol"`
	SSLVerify bool   `json:"SSLVerify" yaml:"ssl_verify"`
	Username  string `json:"ProxyUsername,omitempty" yaml:"proxy_username"`
	Password  string `json:"ProxyPassword,omitempty" yaml:"proxy_password"`
}

// ResolvedProxy is a proxy ready to be handed to an HTTP transport or a git remote.
type ResolvedProxy struct {
	Host      string
	Scheme    string
	SSLVerify bool
	Username  string
	Password  string
}

// URL renders the proxy address including basic-auth userinfo when present.
func (p ResolvedProxy) URL() *url.URL {
	u := &url.URL{Scheme: p.Scheme, Host: p.Host}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Address renders the proxy address without userinfo.
func (p ResolvedProxy) Address() string {
	return (&url.URL{Scheme: p.Scheme, Host: p.Host}).String()
}
