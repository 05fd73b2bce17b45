package wikibase

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/olgasafonova/wikibase-api-mcp-server/wiki"
)

// Session is an authenticated connection to the wiki. *wiki.Client
// implements it.
type Session interface {
	Request(ctx context.Context, params url.Values) (map[string]interface{}, error)
	EditToken() string
}

// Initializer opens a new Session. cpPosIndex is the chronology protection
// cookie value and may be empty.
type Initializer func(ctx context.Context, cpPosIndex string) (Session, error)

// WikiInitializer logs a fresh wiki.Client in against cfg. A non-empty
// cpPosIndex is stored as a cookie for the wiki base URL before login.
func WikiInitializer(cfg *wiki.Config, logger *slog.Logger) Initializer {
	return func(ctx context.Context, cpPosIndex string) (Session, error) {
		client := wiki.NewClient(cfg, logger)
		if cpPosIndex != "" {
			if err := client.SetCookie("cpPosIndex", cpPosIndex); err != nil {
				return nil, &wiki.AuthenticationError{Operation: "login", Reason: "invalid base URL for cpPosIndex cookie", Err: err}
			}
		}
		if err := client.LoginGetEditToken(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}
