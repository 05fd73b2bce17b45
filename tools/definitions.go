package tools

// AllTools contains all tool specifications for the Wikibase API server.
// Descriptions follow a structured format for tool selection:
// - USE WHEN: Natural language triggers
// - PARAMETERS: Key arguments
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	{
		Name:     "wikibase_initialize",
		Method:   "Initialize",
		Title:    "Initialize Wikibase Session",
		Category: "session",
		Description: `Log the bot in and fetch an edit token, replacing any existing session.

USE WHEN: A browser test has just written to the wiki and later API reads must see that write. Pass the browser's cpPosIndex cookie.

PARAMETERS:
- cp_pos_index: Value of the cpPosIndex cookie (optional)

RETURNS: Whether a session was opened. Other tools log in on their own when no session exists.`,
		Idempotent: false,
		OpenWorld:  true,
	},
	{
		Name:     "wikibase_create_item",
		Method:   "CreateItem",
		Title:    "Create Item",
		Category: "create",
		Description: `Create a new Wikibase item.

USE WHEN: A test needs a fresh item to act on.

PARAMETERS:
- label: English label (optional)
- labels: Labels keyed by language code (optional, instead of label)
- data: Extra entity JSON merged on top, e.g. descriptions or claims (optional)

RETURNS: The new item id (e.g. Q42).`,
		OpenWorld: true,
	},
	{
		Name:     "wikibase_create_property",
		Method:   "CreateProperty",
		Title:    "Create Property",
		Category: "create",
		Description: `Create a new Wikibase property, even if one with the datatype exists.

USE WHEN: A test needs its own property. Prefer wikibase_get_property to reuse one per datatype.

PARAMETERS:
- datatype: Property datatype, e.g. string, wikibase-item (required)
- data: Extra entity JSON merged on top (optional)

RETURNS: The new property id (e.g. P31).`,
		OpenWorld: true,
	},
	{
		Name:     "wikibase_get_entity",
		Method:   "GetEntity",
		Title:    "Get Entity",
		Category: "read",
		Description: `Fetch an entity's JSON by id.

USE WHEN: A test checks what the wiki stored for an item or property.

PARAMETERS:
- id: Entity id (required)

RETURNS: The entity object, and found=false when the wiki did not return it.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "wikibase_protect_entity",
		Method:   "ProtectEntity",
		Title:    "Protect Entity",
		Category: "protect",
		Description: `Restrict editing of an entity page to sysops (edit=sysop).

USE WHEN: A test covers the protected-page experience.

PARAMETERS:
- id: Entity id (required)

RETURNS: The page title and the protections applied.`,
		Destructive: true,
		Idempotent:  true,
		OpenWorld:   true,
	},
	{
		Name:     "wikibase_get_property",
		Method:   "GetProperty",
		Title:    "Get Property For Datatype",
		Category: "read",
		Description: `Return a property id for a datatype, creating the property only the first time.

USE WHEN: A test needs any property of a datatype, e.g. to add a statement.

PARAMETERS:
- datatype: Property datatype (required)

RETURNS: The property id and the WIKIBASE_PROPERTY_* key it is stored under.`,
		Idempotent: true,
		OpenWorld:  true,
	},
}
