// Package liaison coordinates the sentence newline transform with a host's
// document lifecycle.
//
// Buffers hold the flowing form; files hold one sentence per line. On load
// and after every save the buffer is converted to the flowing form and its
// fingerprint recorded; just before a save it is converted back. Content
// changes compare the buffer against the recorded fingerprint and drive the
// document's clean/dirty flag.
//
// Handlers never return errors. Transform and persistence failures are
// logged and leave the document as it was or its tracking reset.
package liaison

import (
	"log/slog"

	"github.com/FocuswithJustin/mdliaison/core/config"
	"github.com/FocuswithJustin/mdliaison/core/fingerprint"
	"github.com/FocuswithJustin/mdliaison/core/host"
	"github.com/FocuswithJustin/mdliaison/core/state"
	"github.com/FocuswithJustin/mdliaison/core/transform"
	"github.com/FocuswithJustin/mdliaison/internal/logging"
)

// Coordinator reacts to host lifecycle events.
type Coordinator struct {
	resolver *config.Resolver
	policy   *config.Policy
	store    *state.Store
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for events, transforms and persistence errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// New creates a Coordinator over resolver and store.
func New(resolver *config.Resolver, store *state.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver: resolver,
		policy:   config.NewPolicy(resolver),
		store:    store,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetLogger()
	}
	return c
}

// Attach subscribes every handler to its event on sub.
func (c *Coordinator) Attach(sub host.Subscriber) {
	sub.Subscribe(host.Loaded, c.OnLoad)
	sub.Subscribe(host.PreSave, c.OnPreSave)
	sub.Subscribe(host.PostSave, c.OnPostSave)
	sub.Subscribe(host.Modified, c.OnModified)
	sub.Subscribe(host.Closed, c.OnClose)
}

// OnLoad converts a freshly loaded document to the flowing form and starts
// tracking it as clean.
func (c *Coordinator) OnLoad(doc host.Document) {
	c.sync(doc, host.Loaded)
}

// OnPreSave converts the document to the on-disk form.
func (c *Coordinator) OnPreSave(doc host.Document) {
	if !c.policy.IsActive(doc) {
		return
	}
	act := c.resolver.Activation(doc)
	c.run(doc, act.ToDiskCommand, act.Selector)
}

// OnPostSave restores the flowing form after a save and records it as clean.
func (c *Coordinator) OnPostSave(doc host.Document) {
	c.sync(doc, host.PostSave)
}

func (c *Coordinator) sync(doc host.Document, event host.Event) {
	if !c.policy.IsActive(doc) {
		return
	}
	logging.DocumentEvent(c.logger, event.String(), doc.ID(), doc.Path())

	act := c.resolver.Activation(doc)
	c.run(doc, act.FromDiskCommand, act.Selector)
	if err := c.store.Record(doc.ID(), doc.Content(), doc.Path()); err != nil {
		logging.PersistError(c.logger, "record", err, "doc_id", doc.ID())
	}
	doc.SetClean(true)
}

// OnModified pushes the clean/dirty flag for a tracked document.
//
// A document reopened under a new identity has no entry of its own; the
// entry recorded for the same path is adopted first. An entry whose path no
// longer matches the document is stale and is dropped.
func (c *Coordinator) OnModified(doc host.Document) {
	if !c.policy.IsActive(doc) {
		return
	}
	id, path := doc.ID(), doc.Path()

	if !c.store.Tracked(id) && path != "" {
		if prev, ok := c.store.FindByPath(path); ok {
			if err := c.store.Adopt(prev, id); err != nil {
				logging.PersistError(c.logger, "adopt", err, "doc_id", id, "from", prev)
			}
		}
	}

	stored, ok := c.store.Fingerprint(id)
	if !ok {
		return
	}
	if storedPath, _ := c.store.Path(id); storedPath != path {
		logging.TrackingReset(c.logger, id, "path changed", "stored_path", storedPath, "path", path)
		if err := c.store.Forget(id); err != nil {
			logging.PersistError(c.logger, "forget", err, "doc_id", id)
		}
		return
	}

	doc.SetClean(fingerprint.Of(doc.Content()) == stored)
}

// OnClose stops tracking the document.
func (c *Coordinator) OnClose(doc host.Document) {
	if !c.policy.IsActive(doc) || !c.store.Tracked(doc.ID()) {
		return
	}
	if err := c.store.Forget(doc.ID()); err != nil {
		logging.PersistError(c.logger, "forget", err, "doc_id", doc.ID())
	}
}

// Status is the tracking state of a document relative to the last sync.
type Status int

const (
	// Inactive documents are not handled at all.
	Inactive Status = iota
	// Untracked documents have no recorded fingerprint.
	Untracked
	// Clean documents match their recorded fingerprint.
	Clean
	// Dirty documents differ from their recorded fingerprint.
	Dirty
)

func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Untracked:
		return "untracked"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Status reports how doc compares with the recorded state without changing
// the store. An entry recorded for the same path under another identity is
// used when doc has none of its own.
func (c *Coordinator) Status(doc host.Document) Status {
	if !c.policy.IsActive(doc) {
		return Inactive
	}
	id := doc.ID()
	if !c.store.Tracked(id) && doc.Path() != "" {
		if prev, ok := c.store.FindByPath(doc.Path()); ok {
			id = prev
		}
	}
	stored, ok := c.store.Fingerprint(id)
	if !ok {
		return Untracked
	}
	if storedPath, _ := c.store.Path(id); storedPath != doc.Path() {
		return Untracked
	}
	if fingerprint.Of(doc.Content()) == stored {
		return Clean
	}
	return Dirty
}

func (c *Coordinator) run(doc host.Document, command, selector string) {
	res, err := transform.Run(doc, command, selector)
	if err != nil {
		c.logger.Error("transform failed", "command", command, "doc_id", doc.ID(), "error", err)
		return
	}
	logging.TransformApplied(c.logger, command, doc.ID(), res.Regions, res.Changed)
}
