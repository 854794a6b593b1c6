package condition

import "strings"

// Context is the bag of sub-dictionaries a condition tree is evaluated
// against. The first segment of a field path selects the scope, the rest
// walks nested maps.
type Context struct {
	User       map[string]interface{} `json:"user"`
	Compliance map[string]interface{} `json:"compliance"`
	Quality    map[string]interface{} `json:"quality"`
	Training   map[string]interface{} `json:"training"`
	System     map[string]interface{} `json:"system"`
	Custom     map[string]interface{} `json:"custom"`
}

func NewContext() *Context {
	return &Context{
		User:       map[string]interface{}{},
		Compliance: map[string]interface{}{},
		Quality:    map[string]interface{}{},
		Training:   map[string]interface{}{},
		System:     map[string]interface{}{},
		Custom:     map[string]interface{}{},
	}
}

// Scopes returns the context as plain maps, keyed by scope name. Used by
// script sandboxes that cannot see Go structs.
func (c *Context) Scopes() map[string]interface{} {
	return map[string]interface{}{
		"user":       c.User,
		"compliance": c.Compliance,
		"quality":    c.Quality,
		"training":   c.Training,
		"system":     c.System,
		"custom":     c.Custom,
	}
}

// Lookup resolves a dotted field path, e.g. "compliance.overall_score" or
// "user.department.name". The second return is false when any segment is
// missing or a non-map is dereferenced.
func (c *Context) Lookup(path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil, false
	}

	var current interface{}
	switch segments[0] {
	case "user":
		current = c.User
	case "compliance":
		current = c.Compliance
	case "quality":
		current = c.Quality
	case "training":
		current = c.Training
	case "system":
		current = c.System
	case "custom":
		current = c.Custom
	default:
		return nil, false
	}

	for _, seg := range segments[1:] {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
