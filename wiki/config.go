package wiki

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds MediaWiki connection settings
type Config struct {
	// BaseURL is the wiki root (e.g., http://localhost:8080/w); the action
	// API lives at BaseURL + "/api.php"
	BaseURL string

	// Username for bot password authentication
	Username string

	// Password for bot password authentication
	Password string

	// Timeout for API requests
	Timeout time.Duration

	// UserAgent identifies the client to the wiki
	UserAgent string

	// MaxRetries for failed requests. Zero sends every request exactly once.
	MaxRetries int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	baseURL := NormalizeBaseURL(os.Getenv("MEDIAWIKI_URL"))
	if baseURL == "" {
		return nil, errors.New("MEDIAWIKI_URL environment variable is required")
	}

	timeout := 30 * time.Second
	if t := os.Getenv("MEDIAWIKI_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d > 0 {
			timeout = d
		}
	}

	maxRetries := 0
	if r := os.Getenv("MEDIAWIKI_MAX_RETRIES"); r != "" {
		if n, err := strconv.Atoi(r); err == nil && n >= 0 {
			maxRetries = n
		}
	}

	userAgent := os.Getenv("MEDIAWIKI_USER_AGENT")
	if userAgent == "" {
		userAgent = "WikibaseAPIMCPServer/1.0 (https://github.com/olgasafonova/wikibase-api-mcp-server)"
	}

	return &Config{
		BaseURL:    baseURL,
		Username:   os.Getenv("MEDIAWIKI_USERNAME"),
		Password:   os.Getenv("MEDIAWIKI_PASSWORD"),
		Timeout:    timeout,
		UserAgent:  userAgent,
		MaxRetries: maxRetries,
	}, nil
}

// NormalizeBaseURL trims whitespace, trailing slashes and a trailing
// "/api.php" so both the wiki root and the API endpoint are accepted.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, "/api.php")
	return strings.TrimRight(u, "/")
}

// APIURL returns the action API endpoint for the wiki
func (c *Config) APIURL() string {
	return c.BaseURL + "/api.php"
}

// HasCredentials returns true if authentication credentials are configured
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
