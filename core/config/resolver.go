package config

// ProjectScoped is the part of a document the resolver needs.
type ProjectScoped interface {
	ProjectData() map[string]any
}

// Resolver looks a key up in the document's project block, then in the global
// settings, then falls back to the caller's default.
type Resolver struct {
	global *Settings
}

// NewResolver creates a Resolver over global settings. A nil Settings
// resolves every key to its default unless a project overrides it.
func NewResolver(global *Settings) *Resolver {
	return &Resolver{global: global}
}

// Resolve returns the effective value of key for doc.
func (r *Resolver) Resolve(doc ProjectScoped, key string, def any) any {
	if v, ok := projectValue(doc, key); ok {
		return v
	}
	if v, ok := r.global.Get(key); ok {
		return v
	}
	return def
}

// Bool resolves key as a boolean. Non-boolean values yield def.
func (r *Resolver) Bool(doc ProjectScoped, key string, def bool) bool {
	if b, ok := r.Resolve(doc, key, def).(bool); ok {
		return b
	}
	return def
}

// String resolves key as a string. Non-string values yield def.
func (r *Resolver) String(doc ProjectScoped, key, def string) string {
	if s, ok := r.Resolve(doc, key, def).(string); ok {
		return s
	}
	return def
}

// Strings resolves key as a list of strings. JSON arrays decode as []any;
// non-string members are skipped. Anything else yields nil.
func (r *Resolver) Strings(doc ProjectScoped, key string) []string {
	switch v := r.Resolve(doc, key, nil).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func projectValue(doc ProjectScoped, key string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	data := doc.ProjectData()
	if data == nil {
		return nil, false
	}
	settings, ok := data["settings"].(map[string]any)
	if !ok {
		return nil, false
	}
	block, ok := settings[Namespace].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := block[key]
	return v, ok
}
