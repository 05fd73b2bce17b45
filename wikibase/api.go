// Package wikibase creates and queries Wikibase entities for end-to-end
// tests: items, properties, entity lookups, page protection and a
// resolve-or-create property id per datatype.
package wikibase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/olgasafonova/wikibase-api-mcp-server/internal/errors"
	"github.com/olgasafonova/wikibase-api-mcp-server/internal/infra"
	"github.com/olgasafonova/wikibase-api-mcp-server/metrics"
	"github.com/olgasafonova/wikibase-api-mcp-server/tracing"
	"github.com/olgasafonova/wikibase-api-mcp-server/wiki"
)

// API mediates entity calls through one lazily created session
type API struct {
	logger         *slog.Logger
	initializer    Initializer
	store          PropertyStore
	onImplicitInit func(ctx context.Context)

	mu      sync.Mutex
	session Session

	sessionFlight  *infra.Group[Session]
	propertyFlight *infra.Group[string]
}

// Option configures the API
type Option func(*API)

// WithInitializer replaces the wiki login used to open sessions
func WithInitializer(init Initializer) Option {
	return func(a *API) {
		a.initializer = init
	}
}

// WithPropertyStore sets where resolved property ids are kept (default EnvStore)
func WithPropertyStore(s PropertyStore) Option {
	return func(a *API) {
		a.store = s
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.logger = l
	}
}

// WithImplicitInitHook sets the function called when an operation has to
// open a session on its own. Passing nil disables the default warning.
func WithImplicitInitHook(fn func(ctx context.Context)) Option {
	return func(a *API) {
		a.onImplicitInit = fn
	}
}

// NewAPI creates an API that logs in against cfg on first use
func NewAPI(cfg *wiki.Config, logger *slog.Logger, opts ...Option) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		logger:         logger,
		store:          EnvStore{},
		sessionFlight:  infra.NewGroup[Session](),
		propertyFlight: infra.NewGroup[string](),
	}
	if cfg != nil {
		a.initializer = WikiInitializer(cfg, logger)
	}
	a.onImplicitInit = func(ctx context.Context) {
		a.logger.WarnContext(ctx, "WikibaseApi not initialized")
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize opens a new session, seeding the cpPosIndex cookie when given,
// and replaces any session already held.
func (a *API) Initialize(ctx context.Context, cpPosIndex string) (Session, error) {
	ctx, span := tracing.StartSpan(ctx, "wikibase.initialize")
	defer span.End()

	s, err := a.initialize(ctx, cpPosIndex, false)
	tracing.RecordError(span, err)
	return s, err
}

func (a *API) initialize(ctx context.Context, cpPosIndex string, implicit bool) (Session, error) {
	if a.initializer == nil {
		return nil, &wiki.AuthenticationError{Operation: "login", Reason: "no wiki configured"}
	}

	s, err := a.initializer(ctx, cpPosIndex)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	metrics.RecordSessionInit(implicit)
	return s, nil
}

// HasSession reports whether a session is held
func (a *API) HasSession() bool {
	return a.current() != nil
}

func (a *API) current() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Session returns the held session, opening one without a cookie if there
// is none. Concurrent callers share a single implicit login.
func (a *API) Session(ctx context.Context) (Session, error) {
	if s := a.current(); s != nil {
		return s, nil
	}

	s, _, err := a.sessionFlight.Do(ctx, "session", func(ctx context.Context) (Session, error) {
		if s := a.current(); s != nil {
			return s, nil
		}
		if a.onImplicitInit != nil {
			a.onImplicitInit(ctx)
		}
		return a.initialize(ctx, "", true)
	})
	return s, err
}

// CreateItem creates an item labelled by label with data merged on top and
// returns its id.
func (a *API) CreateItem(ctx context.Context, label Label, data map[string]interface{}) (id string, err error) {
	ctx, span := a.start(ctx, "create_item", "wbeditentity", "")
	defer func() { a.finish(span, "create_item", err) }()

	return a.createEntity(ctx, "item", NewItemDraft(label, data))
}

// CreateProperty creates a property of the given datatype with data merged
// on top and returns its id.
func (a *API) CreateProperty(ctx context.Context, datatype string, data map[string]interface{}) (id string, err error) {
	ctx, span := a.start(ctx, "create_property", "wbeditentity", "")
	defer func() { a.finish(span, "create_property", err) }()

	if datatype == "" {
		return "", errors.NewValidationError("datatype", "", "datatype is required")
	}
	return a.createEntity(ctx, "property", NewPropertyDraft(datatype, data))
}

func (a *API) createEntity(ctx context.Context, kind string, draft Draft) (string, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s draft: %w", kind, err)
	}

	session, err := a.Session(ctx)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("action", "wbeditentity")
	params.Set("new", kind)
	params.Set("data", string(payload))
	params.Set("token", session.EditToken())

	resp, err := session.Request(ctx, params)
	if err != nil {
		return "", &RemoteRequestError{Action: "wbeditentity", Err: err}
	}

	entity, _ := resp["entity"].(map[string]interface{})
	id, _ := entity["id"].(string)
	if id == "" {
		return "", &RemoteRequestError{Action: "wbeditentity", Err: fmt.Errorf("response has no entity id")}
	}

	a.logger.Debug("Entity created", "type", kind, "id", id)
	return id, nil
}

// GetEntity returns entities[id] from wbgetentities. It returns nil and no
// error when the response does not contain id.
func (a *API) GetEntity(ctx context.Context, id string) (entity Entity, err error) {
	ctx, span := a.start(ctx, "get_entity", "wbgetentities", id)
	defer func() { a.finish(span, "get_entity", err) }()

	if id == "" {
		return nil, errors.NewValidationError("id", "", "entity id is required")
	}

	session, err := a.Session(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", id)
	params.Set("token", session.EditToken())

	return a.lookup(ctx, session, params, id)
}

func (a *API) lookup(ctx context.Context, session Session, params url.Values, id string) (Entity, error) {
	resp, err := session.Request(ctx, params)
	if err != nil {
		return nil, &RemoteRequestError{Action: "wbgetentities", Err: err}
	}

	entities, ok := resp["entities"].(map[string]interface{})
	if !ok {
		return nil, &RemoteRequestError{Action: "wbgetentities", Err: fmt.Errorf("response has no entities")}
	}

	entity, ok := entities[id].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	return Entity(entity), nil
}

// ProtectEntity restricts editing of the entity's page to sysops. The page
// title is looked up first; when it cannot be resolved no protect request
// is sent.
func (a *API) ProtectEntity(ctx context.Context, id string) (result *ProtectionResult, err error) {
	ctx, span := a.start(ctx, "protect_entity", "protect", id)
	defer func() { a.finish(span, "protect_entity", err) }()

	if id == "" {
		return nil, errors.NewValidationError("id", "", "entity id is required")
	}

	session, err := a.Session(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", id)
	params.Set("props", "info")

	entity, err := a.lookup(ctx, session, params, id)
	if err != nil {
		return nil, err
	}
	title := entity.Title()
	if title == "" {
		return nil, &errors.NotFoundError{EntityType: "entity", Identifier: id, Detail: "title"}
	}

	params = url.Values{}
	params.Set("action", "protect")
	params.Set("title", title)
	params.Set("protections", "edit=sysop")
	params.Set("token", session.EditToken())

	resp, err := session.Request(ctx, params)
	if err != nil {
		return nil, &RemoteRequestError{Action: "protect", Err: err}
	}

	a.logger.Info("Entity protected", "id", id, "title", title)
	return parseProtection(id, title, resp), nil
}

// GetProperty returns the property id stored for datatype, creating and
// storing a new property on a miss. Callers in this process asking for the
// same datatype at once share one create request.
func (a *API) GetProperty(ctx context.Context, datatype string) (id string, err error) {
	ctx, span := a.start(ctx, "get_property", "wbeditentity", "")
	defer func() { a.finish(span, "get_property", err) }()

	if datatype == "" {
		return "", errors.NewValidationError("datatype", "", "datatype is required")
	}
	key := PropertyCacheKey(datatype)

	if id, ok, err := a.store.Get(ctx, key); err != nil {
		return "", fmt.Errorf("property store: %w", err)
	} else if ok {
		metrics.RecordPropertyCacheAccess(true)
		return id, nil
	}

	id, _, err = a.propertyFlight.Do(ctx, key, func(ctx context.Context) (string, error) {
		if id, ok, err := a.store.Get(ctx, key); err != nil {
			return "", fmt.Errorf("property store: %w", err)
		} else if ok {
			metrics.RecordPropertyCacheAccess(true)
			return id, nil
		}

		metrics.RecordPropertyCacheAccess(false)
		id, err := a.CreateProperty(ctx, datatype, nil)
		if err != nil {
			return "", err
		}
		if err := a.store.Set(ctx, key, id); err != nil {
			return "", fmt.Errorf("property store: %w", err)
		}
		a.logger.Info("Property created", "datatype", datatype, "id", id, "key", key)
		return id, nil
	})
	return id, err
}

func (a *API) start(ctx context.Context, operation, action, entityID string) (context.Context, trace.Span) {
	ctx, span := tracing.StartSpan(ctx, "wikibase."+operation)
	tracing.AddWikibaseAttributes(span, action, entityID)
	return ctx, span
}

func (a *API) finish(span trace.Span, operation string, err error) {
	tracing.RecordError(span, err)
	metrics.RecordOperation(operation, err == nil)
	span.End()
}
