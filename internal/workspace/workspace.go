// Package workspace is a file-backed editing host. It opens Markdown files
// into buffers, applies edits, saves and closes them, and emits the host
// lifecycle events around each step.
package workspace

import (
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/host"
	"github.com/FocuswithJustin/mdliaison/internal/buffer"
	"github.com/FocuswithJustin/mdliaison/internal/fileutil"
	"github.com/FocuswithJustin/mdliaison/internal/logging"
)

// Workspace tracks the open buffers of one editing session.
// Like the bus it emits on, it is meant for a single event goroutine.
type Workspace struct {
	bus     *host.Bus
	newID   func() string
	project map[string]any
	logger  *slog.Logger

	docs map[string]*buffer.Buffer
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithIDGenerator overrides the identity source. Identities default to
// random UUIDs so a reopened file never reuses an old identity.
func WithIDGenerator(gen func() string) Option {
	return func(w *Workspace) { w.newID = gen }
}

// WithProjectData attaches project data to every buffer the workspace opens.
func WithProjectData(data map[string]any) Option {
	return func(w *Workspace) { w.project = data }
}

// WithLogger sets the logger for document events.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) { w.logger = logger }
}

// New creates a Workspace emitting on bus. A nil bus gets a private one.
func New(bus *host.Bus, opts ...Option) *Workspace {
	if bus == nil {
		bus = host.NewBus()
	}
	w := &Workspace{
		bus:   bus,
		newID: uuid.NewString,
		docs:  make(map[string]*buffer.Buffer),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.GetLogger()
	}
	return w
}

// Bus returns the bus lifecycle events are emitted on.
func (w *Workspace) Bus() *host.Bus {
	return w.bus
}

// Open reads path into a new buffer and emits Loaded. CRLF endings are
// converted to LF in the buffer and restored on save.
func (w *Workspace) Open(path string) (*buffer.Buffer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewIO("resolve", path, err)
	}
	raw, err := fileutil.ReadText(abs)
	if err != nil {
		return nil, err
	}
	text, crlf := fileutil.ToLF(raw)

	doc := w.add(abs, text)
	doc.SetCRLF(crlf)
	w.emit(host.Loaded, doc)
	return doc, nil
}

// Scratch creates an unsaved buffer without a path. No event is emitted
// because nothing was loaded from disk.
func (w *Workspace) Scratch(text string) *buffer.Buffer {
	text, _ = fileutil.ToLF(text)
	return w.add("", text)
}

func (w *Workspace) add(path, text string) *buffer.Buffer {
	doc := buffer.New(w.newID(), path, text)
	doc.SetProjectData(w.project)
	w.docs[doc.ID()] = doc
	return doc
}

// Edit replaces the content of doc and emits Modified.
func (w *Workspace) Edit(doc *buffer.Buffer, text string) error {
	if err := w.check(doc); err != nil {
		return err
	}
	text, _ = fileutil.ToLF(text)
	if doc.Content() == text {
		return nil
	}
	doc.SetContent(text)
	w.emit(host.Modified, doc)
	return nil
}

// Save writes doc to its path, emitting PreSave before the write and
// PostSave after it. Handlers may change the content on either side.
func (w *Workspace) Save(doc *buffer.Buffer) error {
	if err := w.check(doc); err != nil {
		return err
	}
	if doc.Path() == "" {
		return errors.NewValidation("path", "buffer has no path, use SaveAs")
	}

	w.emit(host.PreSave, doc)
	data := fileutil.RestoreEndings(doc.Content(), doc.CRLF())
	if err := fileutil.WriteAtomic(doc.Path(), []byte(data), 0644); err != nil {
		return err
	}
	w.emit(host.PostSave, doc)
	return nil
}

// SaveAs points doc at path and saves it.
func (w *Workspace) SaveAs(doc *buffer.Buffer, path string) error {
	if err := w.check(doc); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.NewIO("resolve", path, err)
	}
	doc.SetPath(abs)
	return w.Save(doc)
}

// Close emits Closed and forgets doc.
func (w *Workspace) Close(doc *buffer.Buffer) error {
	if err := w.check(doc); err != nil {
		return err
	}
	w.emit(host.Closed, doc)
	delete(w.docs, doc.ID())
	return nil
}

// Get returns the open buffer with identity id.
func (w *Workspace) Get(id string) (*buffer.Buffer, bool) {
	doc, ok := w.docs[id]
	return doc, ok
}

// Documents returns the open buffers ordered by path, then identity.
func (w *Workspace) Documents() []*buffer.Buffer {
	out := make([]*buffer.Buffer, 0, len(w.docs))
	for _, doc := range w.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path() != out[j].Path() {
			return out[i].Path() < out[j].Path()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (w *Workspace) check(doc *buffer.Buffer) error {
	if doc == nil {
		return errors.NewValidation("document", "nil buffer")
	}
	if open, ok := w.docs[doc.ID()]; !ok || open != doc {
		return errors.NewNotFound("open document", doc.ID())
	}
	return nil
}

func (w *Workspace) emit(event host.Event, doc *buffer.Buffer) {
	logging.DocumentEvent(w.logger, event.String(), doc.ID(), doc.Path())
	w.bus.Emit(event, doc)
}
