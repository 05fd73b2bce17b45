package wikibase

import (
	"context"

	"github.com/olgasafonova/wikibase-api-mcp-server/internal/errors"
)

// MCP Tool wrapper methods
// These methods wrap the API methods with Args/Result types for MCP integration.

// InitializeMCP is the MCP wrapper for Initialize
func (a *API) InitializeMCP(ctx context.Context, args InitializeArgs) (InitializeResult, error) {
	if _, err := a.Initialize(ctx, args.CPPosIndex); err != nil {
		return InitializeResult{}, err
	}
	return InitializeResult{Initialized: true, HasCookie: args.CPPosIndex != ""}, nil
}

// CreateItemMCP is the MCP wrapper for CreateItem
func (a *API) CreateItemMCP(ctx context.Context, args CreateItemArgs) (CreateEntityResult, error) {
	var label Label
	switch {
	case args.Label != "" && len(args.Labels) > 0:
		return CreateEntityResult{}, errors.NewValidationError("labels", "", "give either label or labels, not both")
	case len(args.Labels) > 0:
		label = LabelsFromValues(args.Labels)
	case args.Label != "":
		label = PlainLabel(args.Label)
	}

	id, err := a.CreateItem(ctx, label, args.Data)
	if err != nil {
		return CreateEntityResult{}, err
	}
	return CreateEntityResult{ID: id}, nil
}

// CreatePropertyMCP is the MCP wrapper for CreateProperty
func (a *API) CreatePropertyMCP(ctx context.Context, args CreatePropertyArgs) (CreateEntityResult, error) {
	id, err := a.CreateProperty(ctx, args.Datatype, args.Data)
	if err != nil {
		return CreateEntityResult{}, err
	}
	return CreateEntityResult{ID: id}, nil
}

// GetEntityMCP is the MCP wrapper for GetEntity
func (a *API) GetEntityMCP(ctx context.Context, args GetEntityArgs) (GetEntityResult, error) {
	entity, err := a.GetEntity(ctx, args.ID)
	if err != nil {
		return GetEntityResult{}, err
	}
	return GetEntityResult{ID: args.ID, Found: entity != nil, Entity: entity}, nil
}

// ProtectEntityMCP is the MCP wrapper for ProtectEntity
func (a *API) ProtectEntityMCP(ctx context.Context, args ProtectEntityArgs) (ProtectionResult, error) {
	result, err := a.ProtectEntity(ctx, args.ID)
	if err != nil {
		return ProtectionResult{}, err
	}
	return *result, nil
}

// GetPropertyMCP is the MCP wrapper for GetProperty
func (a *API) GetPropertyMCP(ctx context.Context, args GetPropertyArgs) (GetPropertyResult, error) {
	id, err := a.GetProperty(ctx, args.Datatype)
	if err != nil {
		return GetPropertyResult{}, err
	}
	return GetPropertyResult{ID: id, Key: PropertyCacheKey(args.Datatype)}, nil
}
