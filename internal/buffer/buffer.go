// Package buffer is an in-memory Markdown document implementing host.Document.
// Lines are classified into scope stacks from the goldmark block tree so
// scope selectors can pick out prose regions.
package buffer

import (
	"fmt"

	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/host"
	"github.com/FocuswithJustin/mdliaison/core/selector"
)

// Buffer holds the text of one open document.
type Buffer struct {
	id      string
	path    string
	text    string
	clean   bool
	crlf    bool
	project map[string]any
}

var _ host.Document = (*Buffer)(nil)

// New creates a Buffer. A new buffer reports clean until SetClean says
// otherwise.
func New(id, path, text string) *Buffer {
	return &Buffer{
		id:    id,
		path:  path,
		text:  text,
		clean: true,
	}
}

// ID returns the identity of the open instance.
func (b *Buffer) ID() string { return b.id }

// Path returns the backing file, or "" for an unsaved buffer.
func (b *Buffer) Path() string { return b.path }

// SetPath changes the backing file.
func (b *Buffer) SetPath(path string) { b.path = path }

// CRLF reports whether the backing file ends its lines with CRLF. The
// text itself always uses LF.
func (b *Buffer) CRLF() bool { return b.crlf }

// SetCRLF records the line ending of the backing file.
func (b *Buffer) SetCRLF(crlf bool) { b.crlf = crlf }

// Content returns the full text.
func (b *Buffer) Content() string { return b.text }

// SetContent replaces the full text.
func (b *Buffer) SetContent(text string) { b.text = text }

// Size returns the length of the text in bytes.
func (b *Buffer) Size() int { return len(b.text) }

// SetClean sets the clean/dirty display flag.
func (b *Buffer) SetClean(clean bool) { b.clean = clean }

// Clean returns the clean/dirty display flag.
func (b *Buffer) Clean() bool { return b.clean }

// ProjectData returns the project data attached with SetProjectData.
func (b *Buffer) ProjectData() map[string]any { return b.project }

// SetProjectData attaches project data, typically a decoded project file.
func (b *Buffer) SetProjectData(data map[string]any) { b.project = data }

// Lines classifies the current text.
func (b *Buffer) Lines() []Line {
	return Classify(b.text)
}

// SelectRegions returns the prose regions whose lines match sel.
//
// A region is a maximal run of matching lines that share a group, with
// leading and trailing blank lines dropped. It spans from the start of its
// first line to the end of its last line, excluding the final terminator.
func (b *Buffer) SelectRegions(sel string) ([]host.Region, error) {
	compiled, err := selector.Compile(sel)
	if err != nil {
		return nil, err
	}

	var regions []host.Region
	var run []Line
	group := 0 // group of the last non-blank line in run
	flushRun := func() {
		for len(run) > 0 && run[0].Blank() {
			run = run[1:]
		}
		for len(run) > 0 && run[len(run)-1].Blank() {
			run = run[:len(run)-1]
		}
		if len(run) > 0 {
			regions = append(regions, host.Region{Begin: run[0].Begin, End: run[len(run)-1].End})
		}
		run = nil
		group = 0
	}

	for _, line := range Classify(b.text) {
		if !compiled.Match(line.Scopes) {
			flushRun()
			continue
		}
		if !line.Blank() {
			if group != 0 && group != line.Group {
				flushRun()
			}
			group = line.Group
		}
		run = append(run, line)
	}
	flushRun()
	return regions, nil
}

// Read returns the text of r, clamped to the buffer.
func (b *Buffer) Read(r host.Region) string {
	begin, end := max(r.Begin, 0), min(r.End, len(b.text))
	if begin >= end {
		return ""
	}
	return b.text[begin:end]
}

// Replace substitutes text for the bytes covered by r.
func (b *Buffer) Replace(r host.Region, text string) error {
	if r.Begin < 0 || r.End < r.Begin || r.End > len(b.text) {
		return &errors.ValidationError{
			Field:   "region",
			Message: fmt.Sprintf("[%d,%d) out of bounds for buffer of %d bytes", r.Begin, r.End, len(b.text)),
		}
	}
	b.text = b.text[:r.Begin] + text + b.text[r.End:]
	return nil
}
