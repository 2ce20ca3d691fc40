package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathEnv points at an explicit settings file.
	ConfigPathEnv = "GITBRIDGE_CONFIG"
	// PushRejectionPatternsEnv extends the push-rejection list (comma-separated).
	PushRejectionPatternsEnv = "GITBRIDGE_PUSH_REJECTION_PATTERNS"

	DefaultHTTPTimeout    = 30 * time.Second
	DefaultKeyringService = "gitbridge"
	DefaultDatabaseDriver = "sqlite"
	DefaultDatabaseDSN    = "gitbridge.db"
)

// Settings is the top-level configuration for gitbridge.
type Settings struct {
	Database        DatabaseSettings         `yaml:"database"`
	ServiceAccount  ServiceAccountSettings   `yaml:"service_account"`
	DefaultProvider *DefaultProviderSettings `yaml:"default_provider"`
	Proxy           ProxySettings            `yaml:"proxy"`
	Validator       ValidatorSettings        `yaml:"validator"`
	HTTP            HTTPSettings             `yaml:"http"`
	Push            PushSettings             `yaml:"push"`
	Keyring         KeyringSettings          `yaml:"keyring"`
	WorkDir         string                   `yaml:"work_dir"` // Root for temporary working copies
}

// DatabaseSettings selects the gorm dialector.
type DatabaseSettings struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres", "mysql"
	DSN    string `yaml:"dsn"`    // Inline, ${ENV_VAR}, or file path
}

// ServiceAccountSettings are the platform-wide credentials used for public
// repositories and validator substitution.
type ServiceAccountSettings struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"` // Inline, ${ENV_VAR}, or file path
}

// DefaultProviderSettings configures the fallback provider for descriptors without a type.
type DefaultProviderSettings struct {
	Type      string `yaml:"type"`
	BaseURL   string `yaml:"base_url"`
	Namespace string `yaml:"namespace"` // Owner, group, project key or organization/project
	Username  string `yaml:"username"`
	Token     string `yaml:"token"` // Inline, ${ENV_VAR}, or file path
}

// ProxySettings controls which providers honour per-repository proxies.
type ProxySettings struct {
	EnabledProviders []string `yaml:"enabled_providers"`
	HonorProtocol    bool     `yaml:"honor_protocol"`
}

// ValidatorSettings toggles service-account substitution for validators.
type ValidatorSettings struct {
	SubstituteCredentials bool `yaml:"substitute_credentials"`
}

// HTTPSettings holds outbound HTTP tuning.
type HTTPSettings struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PushSettings holds the server-side policy messages that mark a push as rejected.
type PushSettings struct {
	RejectionPatterns []string `yaml:"rejection_patterns"`
}

// KeyringSettings names the OS keyring service holding repository secrets.
type KeyringSettings struct {
	Service string `yaml:"service"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads and parses a settings file, expanding environment variables
// and resolving secret file paths. A ".env" file next to the working directory
// is loaded first when present.
func NewSettings(path string) (*Settings, error) {
	loadDotEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	settings := NewDefaultSettings()
	if unmarshalErr := yaml.Unmarshal(data, settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.resolve()
	if validateErr := settings.validate(); validateErr != nil {
		return nil, validateErr
	}
	return settings, nil
}

// NewDefaultSettings returns the settings used when no file is found.
func NewDefaultSettings() *Settings {
	return &Settings{
		Database: DatabaseSettings{Driver: DefaultDatabaseDriver, DSN: DefaultDatabaseDSN},
		HTTP:     HTTPSettings{Timeout: DefaultHTTPTimeout},
		Keyring:  KeyringSettings{Service: DefaultKeyringService},
	}
}

// LoadSettings resolves the settings file from GITBRIDGE_CONFIG or the default
// locations and falls back to defaults when none exists.
func LoadSettings() (*Settings, error) {
	path := os.Getenv(ConfigPathEnv)
	if path == "" {
		found, err := FindConfigFile()
		if err != nil {
			logger.Debugf("No config file found, using defaults: %v", err)
			loadDotEnv()
			settings := NewDefaultSettings()
			settings.resolve()
			return settings, nil
		}
		path = found
	}

	logger.Debugf("Using config file: %s", path)
	return NewSettings(path)
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".gitbridge.yaml",
		".gitbridge.yml",
		"gitbridge.yaml",
		"gitbridge.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// ProxyEnabledFor reports whether per-repository proxies apply to the provider.
func (it *Settings) ProxyEnabledFor(repoType RepoType) bool {
	return slices.ContainsFunc(it.Proxy.EnabledProviders, func(name string) bool {
		parsed, ok := ParseRepoType(name)
		return ok && parsed == repoType
	})
}

// ServiceCredentials returns the platform service account.
func (it *Settings) ServiceCredentials() Credentials {
	return Credentials{Username: it.ServiceAccount.Username, Password: it.ServiceAccount.Password}
}

// ResolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the value from the file.
func ResolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	// Expand ${ENV_VAR} references
	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	// If the resolved value is a path to an existing file, read the value from it
	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Debugf("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("Failed to load .env file: %v", err)
	}
}

func (it *Settings) resolve() {
	it.Database.DSN = ResolveToken(it.Database.DSN)
	it.ServiceAccount.Password = ResolveToken(it.ServiceAccount.Password)
	if it.DefaultProvider != nil {
		it.DefaultProvider.Token = ResolveToken(it.DefaultProvider.Token)
	}

	if it.HTTP.Timeout == 0 {
		it.HTTP.Timeout = DefaultHTTPTimeout
	}
	if it.Keyring.Service == "" {
		it.Keyring.Service = DefaultKeyringService
	}
	if it.Database.Driver == "" {
		it.Database.Driver = DefaultDatabaseDriver
	}

	for _, pattern := range strings.Split(os.Getenv(PushRejectionPatternsEnv), ",") {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			it.Push.RejectionPatterns = append(it.Push.RejectionPatterns, trimmed)
		}
	}
}

// validate checks for required configuration values.
func (it *Settings) validate() error {
	switch it.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("database.driver %q is not supported (sqlite, postgres, mysql)", it.Database.Driver)
	}
	if it.Database.DSN == "" {
		return errors.New("database.dsn is required (set inline, via ${ENV_VAR}, or as file path)")
	}
	if it.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", it.HTTP.Timeout)
	}

	for i, name := range it.Proxy.EnabledProviders {
		if _, ok := ParseRepoType(name); !ok {
			return fmt.Errorf("proxy.enabled_providers[%d] %q is not a known provider", i, name)
		}
	}

	if it.DefaultProvider != nil {
		if _, ok := ParseRepoType(it.DefaultProvider.Type); !ok {
			return fmt.Errorf("default_provider.type %q is not a known provider", it.DefaultProvider.Type)
		}
		if it.DefaultProvider.Token == "" {
			return errors.New(
				"default_provider.token is required (set inline, via ${ENV_VAR}, or as file path)",
			)
		}
	}

	return nil
}
