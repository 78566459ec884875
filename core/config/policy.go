package config

import (
	"path/filepath"

	"github.com/FocuswithJustin/mdliaison/core/transform"
)

// Document is what activation needs to know about a document.
type Document interface {
	ProjectScoped
	Path() string
}

// Activation is the per-document view of the recognized settings.
type Activation struct {
	Active          bool
	Extensions      []string
	Selector        string
	ToDiskCommand   string
	FromDiskCommand string
}

// Activation resolves every recognized key for doc.
func (r *Resolver) Activation(doc ProjectScoped) Activation {
	return Activation{
		Active:          r.Bool(doc, KeyActive, false),
		Extensions:      r.Strings(doc, KeyExtensions),
		Selector:        r.String(doc, KeySelector, ""),
		ToDiskCommand:   r.String(doc, KeyToDiskCommand, transform.InsertNewlines),
		FromDiskCommand: r.String(doc, KeyFromDiskCommand, transform.RemoveNewlines),
	}
}

// Policy decides whether the sentence newline transform applies to a document.
// It holds no per-document state; every call re-reads settings and path.
type Policy struct {
	resolver *Resolver
}

// NewPolicy creates a Policy backed by resolver.
func NewPolicy(resolver *Resolver) *Policy {
	return &Policy{resolver: resolver}
}

// IsActive reports whether doc is active: "active" resolves true and the
// path's extension ("" without a path) is listed in "extensions".
func (p *Policy) IsActive(doc Document) bool {
	if !p.resolver.Bool(doc, KeyActive, false) {
		return false
	}
	ext := ""
	if path := doc.Path(); path != "" {
		ext = filepath.Ext(path)
	}
	for _, allowed := range p.resolver.Strings(doc, KeyExtensions) {
		if allowed == ext {
			return true
		}
	}
	return false
}
