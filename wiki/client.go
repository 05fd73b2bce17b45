// Package wiki is a MediaWiki bot client: it logs in with a bot password,
// holds the session cookies and edit token, and sends action API requests.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/olgasafonova/wikibase-api-mcp-server/internal/base"
	"github.com/olgasafonova/wikibase-api-mcp-server/metrics"
)

// Client handles communication with the MediaWiki action API
type Client struct {
	*base.Client
	config *Config

	mu        sync.RWMutex
	loggedIn  bool
	editToken string
}

// NewClient creates a new MediaWiki API client with an empty cookie jar
func NewClient(config *Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Client: base.NewClient(
			base.WithLogger(logger),
			base.WithTimeout(config.Timeout),
		),
		config: config,
	}
}

// APIURL returns the endpoint requests are sent to
func (c *Client) APIURL() string {
	return c.config.APIURL()
}

// SetCookie seeds the cookie jar with name=value scoped to the wiki base URL
func (c *Client) SetCookie(name, value string) error {
	return c.Client.SetCookie(c.config.BaseURL, &http.Cookie{Name: name, Value: value})
}

// Request sends params to the action API and returns the decoded response.
// An "error" object in the response becomes an *APIError, a non-2xx
// status an *HTTPError.
func (c *Client) Request(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	form.Set("format", "json")
	action := form.Get("action")

	start := time.Now()
	result, err := c.send(ctx, form)

	code := ""
	if apiErr, ok := err.(*APIError); ok {
		code = apiErr.Code
	}
	metrics.RecordAPICall(action, time.Since(start).Seconds(), err == nil, code)

	if err != nil {
		c.Logger.Debug("API request failed", "action", action, "error", err)
	}
	return result, err
}

func (c *Client) send(ctx context.Context, form url.Values) (map[string]interface{}, error) {
	body, status, err := c.DoRequest(ctx, base.RequestConfig{
		URL:       c.APIURL(),
		Form:      form,
		UserAgent: c.config.UserAgent,
		Retries:   c.config.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		return nil, &HTTPError{StatusCode: status, Body: truncateBody(string(body))}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if errObj, ok := result["error"].(map[string]interface{}); ok {
		code, _ := errObj["code"].(string)
		info, _ := errObj["info"].(string)
		return nil, &APIError{Code: code, Info: info}
	}

	return result, nil
}

// LoginGetEditToken logs in with the configured bot password and fetches a
// CSRF token in one call. Every failure is an *AuthenticationError.
func (c *Client) LoginGetEditToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.HasCredentials() {
		return c.authFailure("login", "no credentials configured. Set MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD environment variables", nil)
	}

	loginToken, err := c.fetchToken(ctx, "login")
	if err != nil {
		return c.authFailure("login", "failed to get login token", err)
	}

	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", c.config.Username)
	params.Set("lgpassword", c.config.Password)
	params.Set("lgtoken", loginToken)

	resp, err := c.Request(ctx, params)
	if err != nil {
		return c.authFailure("login", "login request failed", err)
	}

	login, ok := resp["login"].(map[string]interface{})
	if !ok {
		return c.authFailure("login", "unexpected login response", nil)
	}
	if result, _ := login["result"].(string); result != "Success" {
		reason := fmt.Sprintf("login rejected: %s", result)
		if r, ok := login["reason"]; ok && r != nil {
			reason = fmt.Sprintf("%s - %v (check credentials)", reason, r)
		}
		return c.authFailure("login", reason, nil)
	}
	c.loggedIn = true

	editToken, err := c.fetchToken(ctx, "csrf")
	if err != nil {
		return c.authFailure("edit token", "failed to get csrf token", err)
	}
	c.editToken = editToken

	c.Logger.Info("Successfully logged in", "username", c.config.Username)
	return nil
}

// fetchToken requests a token of the given type (login, csrf)
func (c *Client) fetchToken(ctx context.Context, tokenType string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", tokenType)

	resp, err := c.Request(ctx, params)
	if err != nil {
		return "", err
	}

	query, ok := resp["query"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected response format")
	}
	tokens, ok := query["tokens"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("no tokens in response")
	}
	token, ok := tokens[tokenType+"token"].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("no %s token in response", tokenType)
	}
	return token, nil
}

func (c *Client) authFailure(operation, reason string, err error) error {
	metrics.AuthFailures.WithLabelValues(operation).Inc()
	authErr := &AuthenticationError{Operation: operation, Reason: reason, Err: err}
	if httpErr, ok := err.(*HTTPError); ok {
		authErr.StatusCode = httpErr.StatusCode
	}
	return authErr
}

// EditToken returns the CSRF token obtained at login
func (c *Client) EditToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.editToken
}

// LoggedIn reports whether the login step succeeded
func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

func truncateBody(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
