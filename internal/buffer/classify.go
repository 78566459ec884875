package buffer

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Scope names assigned to Markdown lines. Every line carries ScopeRoot
// first; selectors match against the whole stack.
const (
	ScopeRoot        = "text.html.markdown"
	ScopeParagraph   = "meta.paragraph.markdown"
	ScopeList        = "markup.list.markdown"
	ScopeQuote       = "markup.quote.markdown"
	ScopeHeading     = "markup.heading.markdown"
	ScopeFenced      = "markup.raw.block.fenced.markdown"
	ScopeIndented    = "markup.raw.block.markdown"
	ScopeTable       = "meta.table.markdown"
	ScopeFrontmatter = "meta.frontmatter.markdown"
	ScopeHTML        = "meta.html.block.markdown"

	// ScopeStructure marks non-blank lines that hold only block syntax:
	// thematic breaks, link reference definitions, empty list markers and
	// fences the parser reports no position for.
	ScopeStructure = "meta.structure.markdown"
)

var (
	rootScopes        = []string{ScopeRoot}
	structureScopes   = []string{ScopeRoot, ScopeStructure}
	frontmatterScopes = []string{ScopeRoot, ScopeFrontmatter}
)

// markdown parses CommonMark plus GFM tables.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Line is one classified line of a buffer.
type Line struct {
	Begin  int // offset of the first byte
	End    int // offset of the line terminator, or the end of the text
	Scopes []string

	// Group numbers blocks that may be rewritten as one flowing span.
	// Sibling paragraphs share a group; every list item, quote and
	// structural block starts a new one. Blank lines have group 0.
	Group int

	blank bool
}

// Blank reports whether the line holds only whitespace outside any block.
func (l Line) Blank() bool {
	return l.blank
}

type classifier struct {
	src     string
	lines   []Line
	covered []bool
	group   int
	groups  map[ast.Node]int
}

// Classify splits text into lines and assigns each a scope stack and group
// from the Markdown block structure.
func Classify(src string) []Line {
	c := &classifier{src: src, groups: make(map[ast.Node]int)}
	offset := 0
	for _, raw := range strings.Split(src, "\n") {
		c.lines = append(c.lines, Line{
			Begin:  offset,
			End:    offset + len(raw),
			Scopes: rootScopes,
			blank:  strings.TrimSpace(raw) == "",
		})
		offset += len(raw) + 1
	}
	c.covered = make([]bool, len(c.lines))

	if body := c.frontmatter(); body < len(c.lines) {
		base := c.lines[body].Begin
		source := []byte(src[base:])
		doc := markdown.Parser().Parse(text.NewReader(source))
		c.walk(doc, base)
	}

	for i := range c.lines {
		if !c.covered[i] && !c.lines[i].blank {
			c.mark([]int{i}, structureScopes, c.next())
		}
	}
	return c.lines
}

// frontmatter marks a leading "---" block closed by "---" or "..." and
// returns the index of the first line after it.
func (c *classifier) frontmatter() int {
	if len(c.lines) == 0 || c.line(0) != "---" {
		return 0
	}
	for j := 1; j < len(c.lines); j++ {
		if t := c.line(j); t == "---" || t == "..." {
			c.mark(span(0, j), frontmatterScopes, c.next())
			return j + 1
		}
	}
	return 0
}

func (c *classifier) walk(doc ast.Node, base int) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			c.mark(c.segmentLines(n.Lines(), base), c.stack(n, ScopeParagraph), c.paragraphGroup(n))
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			lines := c.segmentLines(n.Lines(), base)
			if len(lines) > 0 {
				// A setext underline follows its text directly.
				if next := lines[len(lines)-1] + 1; c.uncovered(next) && isUnderline(c.line(next)) {
					lines = append(lines, next)
				}
			}
			c.mark(lines, c.stack(n, ScopeHeading), c.next())
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			c.mark(c.segmentLines(n.Lines(), base), c.stack(n, ScopeIndented), c.next())
		case *ast.FencedCodeBlock:
			c.mark(c.fencedLines(n, base), c.stack(n, ScopeFenced), c.next())
		case *ast.HTMLBlock:
			lines := c.segmentLines(n.Lines(), base)
			if n.HasClosure() {
				lines = append(lines, c.lineOf(n.ClosureLine.Start+base))
			}
			c.mark(lines, c.stack(n, ScopeHTML), c.next())
		case *extast.Table:
			c.mark(c.tableLines(n, base), c.stack(n, ScopeTable), c.next())
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

// fencedLines returns the content lines of a fenced block plus its fence
// lines. The opening fence directly precedes the content or carries the
// info string; the closing fence directly follows the content.
func (c *classifier) fencedLines(n *ast.FencedCodeBlock, base int) []int {
	lines := c.segmentLines(n.Lines(), base)
	open := -1
	switch {
	case len(lines) > 0:
		open = lines[0] - 1
	case n.Info != nil:
		open = c.lineOf(n.Info.Segment.Start + base)
	}
	if open < 0 {
		return lines
	}
	lines = append([]int{open}, lines...)
	if next := lines[len(lines)-1] + 1; c.uncovered(next) && isFence(c.line(next)) {
		lines = append(lines, next)
	}
	return lines
}

// tableLines spans a table from its header row through its last row,
// including the delimiter row, which has no node of its own.
func (c *classifier) tableLines(n ast.Node, base int) []int {
	first, last := -1, -1
	_ = ast.Walk(n, func(cell ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || cell.Kind() != extast.KindTableCell {
			return ast.WalkContinue, nil
		}
		for _, i := range c.segmentLines(cell.Lines(), base) {
			if first < 0 || i < first {
				first = i
			}
			if i > last {
				last = i
			}
		}
		return ast.WalkSkipChildren, nil
	})
	if first < 0 {
		return nil
	}
	return span(first, max(last, first+1))
}

// stack builds the scope stack of a block from its containers.
func (c *classifier) stack(n ast.Node, leaf string) []string {
	var containers []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case ast.KindBlockquote:
			containers = append(containers, ScopeQuote)
		case ast.KindListItem:
			containers = append(containers, ScopeList)
		}
	}
	scopes := make([]string, 0, len(containers)+2)
	scopes = append(scopes, ScopeRoot)
	for i := len(containers) - 1; i >= 0; i-- {
		scopes = append(scopes, containers[i])
	}
	return append(scopes, leaf)
}

// paragraphGroup reuses the group of a directly preceding sibling
// paragraph, so paragraphs separated only by blank lines flow together.
func (c *classifier) paragraphGroup(n ast.Node) int {
	if prev := n.PreviousSibling(); prev != nil && (prev.Kind() == ast.KindParagraph || prev.Kind() == ast.KindTextBlock) {
		if g, ok := c.groups[prev]; ok {
			c.groups[n] = g
			return g
		}
	}
	g := c.next()
	c.groups[n] = g
	return g
}

func (c *classifier) next() int {
	c.group++
	return c.group
}

func (c *classifier) mark(lines []int, scopes []string, group int) {
	for _, i := range lines {
		if i < 0 || i >= len(c.lines) {
			continue
		}
		c.lines[i].Scopes = scopes
		c.lines[i].Group = group
		c.lines[i].blank = false
		c.covered[i] = true
	}
}

// segmentLines maps segments to the distinct lines they start on.
func (c *classifier) segmentLines(segs *text.Segments, base int) []int {
	var out []int
	for i := 0; i < segs.Len(); i++ {
		line := c.lineOf(segs.At(i).Start + base)
		if len(out) == 0 || out[len(out)-1] != line {
			out = append(out, line)
		}
	}
	return out
}

// lineOf returns the index of the line holding offset.
func (c *classifier) lineOf(offset int) int {
	i := sort.Search(len(c.lines), func(i int) bool { return c.lines[i].Begin > offset })
	return max(i-1, 0)
}

func (c *classifier) uncovered(i int) bool {
	return i >= 0 && i < len(c.lines) && !c.covered[i]
}

func (c *classifier) line(i int) string {
	return strings.TrimRight(c.src[c.lines[i].Begin:c.lines[i].End], "\r")
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// isUnderline reports a setext underline, ignoring quote markers.
func isUnderline(line string) bool {
	t := strings.Trim(line, " \t>")
	return t != "" && (strings.Trim(t, "=") == "" || strings.Trim(t, "-") == "")
}

func isFence(line string) bool {
	return strings.Contains(line, "```") || strings.Contains(line, "~~~")
}
