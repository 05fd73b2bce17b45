package wikibase

// InitializeArgs contains parameters for opening a session
type InitializeArgs struct {
	CPPosIndex string `json:"cp_pos_index,omitempty" jsonschema:"Value of the browser's cpPosIndex cookie, for chronology protection"`
}

// InitializeResult reports the new session
type InitializeResult struct {
	Initialized bool `json:"initialized"`
	HasCookie   bool `json:"has_cookie"`
}

// CreateItemArgs contains parameters for creating an item
type CreateItemArgs struct {
	Label  string                 `json:"label,omitempty" jsonschema:"English label of the item"`
	Labels map[string]string      `json:"labels,omitempty" jsonschema:"Labels by language code, e.g. {\"en\": \"foo\", \"de\": \"bar\"}. Mutually exclusive with label"`
	Data   map[string]interface{} `json:"data,omitempty" jsonschema:"Additional entity JSON merged on top of the labels (claims, descriptions, aliases...)"`
}

// CreateEntityResult is the id of a created entity
type CreateEntityResult struct {
	ID string `json:"id"`
}

// CreatePropertyArgs contains parameters for creating a property
type CreatePropertyArgs struct {
	Datatype string                 `json:"datatype" jsonschema:"Property datatype, e.g. string, wikibase-item, external-id"`
	Data     map[string]interface{} `json:"data,omitempty" jsonschema:"Additional entity JSON merged on top of the datatype"`
}

// GetEntityArgs contains parameters for fetching an entity
type GetEntityArgs struct {
	ID string `json:"id" jsonschema:"Entity id, e.g. Q42 or P31"`
}

// GetEntityResult is the entity, absent when the wiki did not return it
type GetEntityResult struct {
	ID     string `json:"id"`
	Found  bool   `json:"found"`
	Entity Entity `json:"entity,omitempty"`
}

// ProtectEntityArgs contains parameters for protecting an entity page
type ProtectEntityArgs struct {
	ID string `json:"id" jsonschema:"Entity id whose page is restricted to sysop edits"`
}

// GetPropertyArgs contains parameters for resolving a property per datatype
type GetPropertyArgs struct {
	Datatype string `json:"datatype" jsonschema:"Property datatype; an existing property id for it is reused"`
}

// GetPropertyResult is the resolved property id and its store key
type GetPropertyResult struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}
