package wikibase

// Entity is the raw entity object returned by wbgetentities
type Entity map[string]interface{}

// Title returns the entity's page title, empty when props=info was not requested
func (e Entity) Title() string {
	title, _ := e["title"].(string)
	return title
}

// Protection is one restriction applied by the protect action
type Protection struct {
	Type   string `json:"type"`
	Level  string `json:"level"`
	Expiry string `json:"expiry,omitempty"`
}

// ProtectionResult describes a protected entity page
type ProtectionResult struct {
	EntityID    string                 `json:"entity_id"`
	Title       string                 `json:"title"`
	Protections []Protection           `json:"protections"`
	Response    map[string]interface{} `json:"-"`
}

// parseProtection reads the "protect" object of a protect response:
// {"protect": {"title": ..., "protections": [{"edit": "sysop", "expiry": "infinite"}]}}
func parseProtection(entityID, title string, resp map[string]interface{}) *ProtectionResult {
	result := &ProtectionResult{
		EntityID: entityID,
		Title:    title,
		Response: resp,
	}

	protect, ok := resp["protect"].(map[string]interface{})
	if !ok {
		return result
	}
	if t, ok := protect["title"].(string); ok && t != "" {
		result.Title = t
	}

	items, _ := protect["protections"].([]interface{})
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p := Protection{}
		p.Expiry, _ = entry["expiry"].(string)
		for k, v := range entry {
			if k == "expiry" {
				continue
			}
			if level, ok := v.(string); ok {
				p.Type, p.Level = k, level
			}
		}
		if p.Type != "" {
			result.Protections = append(result.Protections, p)
		}
	}
	return result
}
