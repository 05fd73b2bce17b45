package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/olgasafonova/wikibase-api-mcp-server/metrics"
	"github.com/olgasafonova/wikibase-api-mcp-server/tracing"
	"github.com/olgasafonova/wikibase-api-mcp-server/wikibase"
)

// HandlerRegistry binds tool specs to the wikibase.API methods that serve them.
type HandlerRegistry struct {
	api    *wikibase.API
	logger *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(api *wikibase.API, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		api:    api,
		logger: logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "Initialize":
		register(h, server, tool, spec, h.api.InitializeMCP)
	case "CreateItem":
		register(h, server, tool, spec, h.api.CreateItemMCP)
	case "CreateProperty":
		register(h, server, tool, spec, h.api.CreatePropertyMCP)
	case "GetEntity":
		register(h, server, tool, spec, h.api.GetEntityMCP)
	case "ProtectEntity":
		register(h, server, tool, spec, h.api.ProtectEntityMCP)
	case "GetProperty":
		register(h, server, tool, spec, h.api.GetPropertyMCP)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	// DestructiveHint defaults to true in MCP; state it either way for non-read tools
	if !spec.ReadOnly {
		annotations.DestructiveHint = ptr(spec.Destructive)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register wraps an API method with panic recovery, metrics, tracing, and
// logging, and adds it to the server.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (res *mcp.CallToolResult, out Result, err error) {
		defer h.recoverPanic(spec.Name, &err)

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		result, err := method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			tracing.RecordError(span, err)
			metrics.RecordRequest(spec.Name, duration, false)
			h.logger.Warn("Tool failed", "tool", spec.Name, "error", err)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return nil, result, nil
	})
}

// recoverPanic turns a panic in a tool handler into a tool error.
func (h *HandlerRegistry) recoverPanic(toolName string, err *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if err != nil {
			*err = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	switch a := args.(type) {
	case wikibase.InitializeArgs:
		attrs = append(attrs, "has_cookie", a.CPPosIndex != "")
	case wikibase.CreateItemArgs:
		attrs = append(attrs, "label", a.Label, "languages", len(a.Labels), "data_keys", len(a.Data))
	case wikibase.CreatePropertyArgs:
		attrs = append(attrs, "datatype", a.Datatype, "data_keys", len(a.Data))
	case wikibase.GetEntityArgs:
		attrs = append(attrs, "id", a.ID)
	case wikibase.ProtectEntityArgs:
		attrs = append(attrs, "id", a.ID)
	case wikibase.GetPropertyArgs:
		attrs = append(attrs, "datatype", a.Datatype)
	}

	switch r := result.(type) {
	case wikibase.CreateEntityResult:
		attrs = append(attrs, "entity_id", r.ID)
	case wikibase.GetEntityResult:
		attrs = append(attrs, "found", r.Found)
	case wikibase.ProtectionResult:
		attrs = append(attrs, "title", r.Title, "protections", len(r.Protections))
	case wikibase.GetPropertyResult:
		attrs = append(attrs, "entity_id", r.ID, "key", r.Key)
	}

	h.logger.Info("Tool executed", attrs...)
}
