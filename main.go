// Wikibase API MCP Server - A Model Context Protocol server that creates and
// queries Wikibase entities for end-to-end browser tests
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olgasafonova/wikibase-api-mcp-server/tools"
	"github.com/olgasafonova/wikibase-api-mcp-server/tracing"
	"github.com/olgasafonova/wikibase-api-mcp-server/wiki"
	"github.com/olgasafonova/wikibase-api-mcp-server/wikibase"
)

const (
	ServerName    = "wikibase-api-mcp-server"
	ServerVersion = "1.0.0"
)

// recoverPanic logs a panic instead of crashing
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

func main() {
	// A missing .env is fine; the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	// stdout carries the MCP protocol, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := wiki.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	storeKind := os.Getenv("WIKIBASE_PROPERTY_STORE")
	store, closeStore, err := newPropertyStore(ctx, storeKind, os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("Failed to create property store: %v", err)
	}
	defer func() { _ = closeStore() }()

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		srv := newMetricsServer(addr)
		go func() {
			defer recoverPanic(logger, "metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
		logger.Info("Serving metrics", "addr", addr)
	}

	api := wikibase.NewAPI(config, logger,
		wikibase.WithPropertyStore(store),
		wikibase.WithImplicitInitHook(func(ctx context.Context) {
			logger.WarnContext(ctx, "WikibaseApi not initialized",
				"hint", "call wikibase_initialize with the browser's cpPosIndex cookie for chronology protection")
		}),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger: logger,
		Instructions: `Wikibase API MCP Server creates and queries Wikibase entities for end-to-end tests.

Available tools:
- wikibase_initialize: Log in, optionally with the browser's cpPosIndex cookie
- wikibase_create_item: Create an item with labels and extra entity data
- wikibase_create_property: Create a property of a datatype
- wikibase_get_entity: Fetch an entity's JSON by id
- wikibase_protect_entity: Restrict an entity page to sysop edits
- wikibase_get_property: Reuse or create a property for a datatype

Configure via environment variables:
- MEDIAWIKI_URL: Wiki root holding api.php (e.g., http://localhost:8080/w)
- MEDIAWIKI_USERNAME / MEDIAWIKI_PASSWORD: Bot password credentials
- WIKIBASE_PROPERTY_STORE: env (default), memory or redis (with REDIS_URL)`,
	})

	tools.NewHandlerRegistry(api, logger).RegisterAll(server)

	logger.Info("Starting Wikibase API MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"wiki_url", config.BaseURL,
		"property_store", storeName(storeKind),
	)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server error: %v", err)
	}
}

// parseLogLevel maps LOG_LEVEL to a slog level, defaulting to info
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func storeName(kind string) string {
	if kind == "" {
		return "env"
	}
	return strings.ToLower(kind)
}

// newPropertyStore builds the property store named by kind. The returned
// close function releases its connections.
func newPropertyStore(ctx context.Context, kind, redisURL string) (wikibase.PropertyStore, func() error, error) {
	noop := func() error { return nil }

	switch storeName(kind) {
	case "env":
		return wikibase.EnvStore{}, noop, nil
	case "memory":
		return wikibase.NewMemoryStore(), noop, nil
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := wikibase.NewRedisStore(pingCtx, redisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown WIKIBASE_PROPERTY_STORE %q (want env, memory or redis)", kind)
	}
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
