package wiki

import (
	"fmt"
	"strings"
)

// AuthenticationError indicates the login or edit-token exchange failed
type AuthenticationError struct {
	Operation  string
	Reason     string
	StatusCode int
	Err        error
}

func (e *AuthenticationError) Error() string {
	var suggestion string
	switch {
	case strings.Contains(e.Reason, "credentials"):
		suggestion = `Check your credentials:
1. Verify MEDIAWIKI_USERNAME is in format "YourUser@BotName"
2. Verify MEDIAWIKI_PASSWORD is the bot password (not your user password)
3. Create a bot password at Special:BotPasswords on your wiki`

	case strings.Contains(e.Reason, "token"):
		suggestion = `The wiki did not hand out a usable token.
1. Check that the wiki session cookies are accepted
2. Verify your bot password hasn't been revoked`

	default:
		suggestion = `Check your wiki connection and credentials.
1. Verify MEDIAWIKI_URL points to the wiki root (the directory holding api.php)
2. Test the URL in a browser: <URL>/api.php?action=query&meta=siteinfo&format=json`
	}

	msg := fmt.Sprintf("Authentication failed for %s: %s", e.Operation, e.Reason)
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg + "\n\n" + suggestion
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// APIError is an error object returned by the MediaWiki action API
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%s]: %s", e.Code, e.Info)
}

// HTTPError is a non-2xx response from the API endpoint
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}
