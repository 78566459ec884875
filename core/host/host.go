// Package host defines the capabilities mdliaison consumes from an editing
// surface: documents with selectable regions, a clean/dirty display flag,
// and an ordered stream of lifecycle events.
package host

// Region is a half-open byte span [Begin, End) of a document's content.
type Region struct {
	Begin int
	End   int
}

// Len returns the number of bytes covered by r.
func (r Region) Len() int {
	return r.End - r.Begin
}

// Empty reports whether r covers no bytes.
func (r Region) Empty() bool {
	return r.End <= r.Begin
}

// Shift returns r moved by delta bytes.
func (r Region) Shift(delta int) Region {
	return Region{Begin: r.Begin + delta, End: r.End + delta}
}

// Document is an open document instance.
//
// ID is stable for the lifetime of the open instance only; reopening the same
// file yields a new ID. Path is empty for documents without a backing file.
type Document interface {
	ID() string
	Path() string
	Content() string
	Size() int

	// SelectRegions returns the regions whose scope matches selector, ordered
	// by position and non-overlapping.
	SelectRegions(selector string) ([]Region, error)
	Read(r Region) string
	Replace(r Region, text string) error

	// SetClean drives the display flag meaning "matches the last synced disk
	// content". It is independent of the host's own modification history.
	SetClean(clean bool)

	// ProjectData returns the data of the project the document belongs to,
	// or nil when there is none.
	ProjectData() map[string]any
}
