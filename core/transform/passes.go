// Package transform rewrites sentence-ending newlines inside prose regions.
//
// ToDisk splits sentences onto their own lines for the on-disk form; FromDisk
// joins them back into flowing paragraphs for the editing surface. Each
// direction is an ordered list of regular-expression passes whose order is
// part of its contract.
//
// Text is expected with LF line endings; hosts convert CRLF files on read and
// restore their endings on write.
package transform

import (
	"fmt"
	"regexp"
)

// Direction selects which convention a rewrite produces.
type Direction int

const (
	// ToDisk produces the one-sentence-per-line form.
	ToDisk Direction = iota
	// FromDisk produces the flowing paragraph form.
	FromDisk
)

func (d Direction) String() string {
	switch d {
	case ToDisk:
		return "to-disk"
	case FromDisk:
		return "from-disk"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "to-disk" or "from-disk".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "to-disk":
		return ToDisk, true
	case "from-disk":
		return FromDisk, true
	}
	return 0, false
}

// maxSettle bounds how often a single pass is re-applied. Every pass strictly
// reduces the whitespace following periods, so real text settles long before.
const maxSettle = 64

// Pass is one (pattern, replacement) rewrite step. When Unless is set, a
// match is left alone if Unless matches the text starting at the match.
type Pass struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
	Unless      *regexp.Regexp
}

// Apply rewrites text until the pass no longer matches anything new.
// RE2 has no lookahead, so a match can consume the period that starts the
// next candidate (". ."); re-applying settles those overlaps.
func (p Pass) Apply(text string) string {
	for i := 0; i < maxSettle; i++ {
		next := p.replace(text)
		if next == text {
			return next
		}
		text = next
	}
	return text
}

func (p Pass) replace(text string) string {
	if p.Unless == nil {
		return p.Pattern.ReplaceAllString(text, p.Replacement)
	}
	var out []byte
	last := 0
	for _, m := range p.Pattern.FindAllStringSubmatchIndex(text, -1) {
		if p.Unless.MatchString(text[m[0]:]) {
			continue
		}
		out = append(out, text[last:m[0]]...)
		out = p.Pattern.ExpandString(out, p.Replacement, text, m)
		last = m[1]
	}
	if last == 0 {
		return text
	}
	return string(append(out, text[last:]...))
}

// blockStart matches text that would open a Markdown block when it begins a
// line: list items, ATX headings, quotes, fences, HTML blocks, setext
// underlines and thematic breaks. A sentence starting this way is never
// moved to (or joined from) the start of a line, so a rewrite cannot change
// the document's block structure.
const blockStart = `(?:[-+*](?:[ \t\n]|$)` +
	`|#{1,6}(?:[ \t\n]|$)` +
	`|>` +
	`|\d{1,9}[.)](?:[ \t\n]|$)` +
	"|```|~~~" +
	`|<[A-Za-z/!?]` +
	`|(?:=+|-+|(?:[*_][ \t]*){3,})[ \t]*(?:\n|$))`

var toDiskPasses = []Pass{
	{
		// FromDisk encodes a paragraph break as "period, space, newline".
		Name:        "restore-paragraph",
		Pattern:     regexp.MustCompile(`\. \n`),
		Replacement: ".\n\n",
	},
	{
		Name:        "keep-split",
		Pattern:     regexp.MustCompile(`\.(\n+)`),
		Replacement: ".$1",
	},
	{
		Name:        "split-sentence",
		Pattern:     regexp.MustCompile(`\. ([^\n])`),
		Replacement: ".\n$1",
		Unless:      regexp.MustCompile(`^\. ` + blockStart),
	},
}

var fromDiskPasses = []Pass{
	{
		// One newline of the run is traded for the space.
		Name:        "mark-paragraph",
		Pattern:     regexp.MustCompile(`\.\n(\n+)`),
		Replacement: ". $1",
	},
	{
		Name:        "join-sentence",
		Pattern:     regexp.MustCompile(`\.\n([^\n])`),
		Replacement: ". $1",
		Unless:      regexp.MustCompile(`^\.\n` + blockStart),
	},
}

// Passes returns the ordered passes of d. The slice must not be modified.
func (d Direction) Passes() []Pass {
	if d == FromDisk {
		return fromDiskPasses
	}
	return toDiskPasses
}

// Rewrite applies every pass of d to text, in order.
func Rewrite(d Direction, text string) string {
	for _, p := range d.Passes() {
		text = p.Apply(text)
	}
	return text
}
