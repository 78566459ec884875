// Package selector parses and evaluates scope selectors such as
//
//	text.html.markdown - markup.raw - meta.table
//
// A scope stack (outermost first) matches a path when every scope of the path
// prefixes some stack element, in order. Terms combine paths with "-"
// (exclusion) and "&" (intersection); "," or "|" separate alternatives and
// parentheses group.
package selector

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/mdliaison/core/cache"
	"github.com/FocuswithJustin/mdliaison/core/errors"
)

// expression is a list of alternatives.
type expression struct {
	Terms []*term `@@ ( ( "," | "|" ) @@ )*`
}

// term is a factor narrowed by exclusions and intersections, left to right.
type term struct {
	Head *factor     `@@`
	Ops  []*operator `@@*`
}

type operator struct {
	Op     string  `@( "-" | "&" )`
	Factor *factor `@@`
}

type factor struct {
	Group *expression `  "(" @@ ")"`
	Path  *path       `| @@`
}

// path is a descendant sequence of scope names.
type path struct {
	Scopes []string `@Scope+`
}

var selectorLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Dotted scope names; inner hyphens belong to the name ("code-fence"),
	// a free-standing "-" is the exclusion operator.
	{Name: "Scope", Pattern: `[A-Za-z0-9_+][A-Za-z0-9_+\-]*(?:\.[A-Za-z0-9_+][A-Za-z0-9_+\-]*)*`},
	{Name: "Punct", Pattern: `[-,|&()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var selectorParser = participle.MustBuild[expression](
	participle.Lexer(selectorLexer),
	participle.Elide("Whitespace"),
)

// Selector is a compiled scope selector. The zero value and the selector
// parsed from an empty string match every stack.
type Selector struct {
	source string
	expr   *expression
}

// Parse compiles a selector string.
func Parse(s string) (*Selector, error) {
	if strings.TrimSpace(s) == "" {
		return &Selector{source: s}, nil
	}
	expr, err := selectorParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ParseError{Format: "selector", Message: err.Error()}
	}
	return &Selector{source: s, expr: expr}, nil
}

// compiled holds selectors parsed through Compile, keyed by source text.
var compiled = cache.NewLRU[string, *Selector](64)

// Compile is like Parse but reuses previously compiled selectors. Parse
// errors are not cached.
func Compile(s string) (*Selector, error) {
	return compiled.GetOrCreate(s, func() (*Selector, error) { return Parse(s) })
}

// CacheStats reports hits and misses of the Compile cache.
func CacheStats() cache.Stats {
	return compiled.Stats()
}

// MustParse is like Parse but panics on error. It is intended for
// package-level defaults and tests.
func MustParse(s string) *Selector {
	sel, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// String returns the source text of the selector.
func (s *Selector) String() string {
	return s.source
}

// Match reports whether the scope stack satisfies the selector.
func (s *Selector) Match(stack []string) bool {
	if s == nil || s.expr == nil {
		return true
	}
	return s.expr.match(stack)
}

func (e *expression) match(stack []string) bool {
	for _, t := range e.Terms {
		if t.match(stack) {
			return true
		}
	}
	return false
}

func (t *term) match(stack []string) bool {
	ok := t.Head.match(stack)
	for _, op := range t.Ops {
		switch op.Op {
		case "-":
			ok = ok && !op.Factor.match(stack)
		case "&":
			ok = ok && op.Factor.match(stack)
		}
	}
	return ok
}

func (f *factor) match(stack []string) bool {
	if f.Group != nil {
		return f.Group.match(stack)
	}
	return f.Path.match(stack)
}

func (p *path) match(stack []string) bool {
	i := 0
	for _, scope := range p.Scopes {
		for i < len(stack) && !scopeMatches(scope, stack[i]) {
			i++
		}
		if i == len(stack) {
			return false
		}
		i++
	}
	return true
}

// scopeMatches reports whether name selects element: equal, or a prefix
// ending on a dot boundary ("markup.raw" selects "markup.raw.block").
func scopeMatches(name, element string) bool {
	if !strings.HasPrefix(element, name) {
		return false
	}
	return len(element) == len(name) || element[len(name)] == '.'
}
