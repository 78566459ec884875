// Package state tracks, per open document identity, the fingerprint and path
// of the content last synced with disk. The mapping is persisted as a single
// named blob after every mutation and loaded lazily, so it survives restarts
// of the host even though identities do not.
package state

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/fingerprint"
	"github.com/FocuswithJustin/mdliaison/internal/logging"
)

// DefaultBlobName is the name the state blob is persisted under.
const DefaultBlobName = "markdown_liaison_state"

// BlobStore persists named blobs. LoadBlob returns an error matching
// errors.ErrNotFound when nothing was saved under name yet.
type BlobStore interface {
	LoadBlob(name string) ([]byte, error)
	SaveBlob(name string, data []byte) error
}

// Entry is one tracked document.
type Entry struct {
	ID   string
	Sum  fingerprint.Sum
	Path string
}

// persisted is the on-disk layout: identity to decimal fingerprint, and
// identity to path (null for documents without a path).
type persisted struct {
	Hashes    map[string]string  `json:"hashes"`
	Filenames map[string]*string `json:"filenames"`
}

// Store is the process-wide identity to (fingerprint, path) mapping.
// It is not safe for concurrent use; hosts call it from their event thread.
type Store struct {
	blobs  BlobStore
	name   string
	logger *slog.Logger

	loaded    bool
	warned    bool
	hashes    map[string]fingerprint.Sum
	filenames map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithBlobName overrides DefaultBlobName.
func WithBlobName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithLogger sets the logger used for load repairs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over blobs. Nothing is read until first access.
func New(blobs BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:     blobs,
		name:      DefaultBlobName,
		hashes:    make(map[string]fingerprint.Sum),
		filenames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetLogger()
	}
	return s
}

// EnsureLoaded reads the persisted blob until one has been read or the
// store has been changed. Hosts may not have their settings available when
// the store is constructed, so every accessor calls this first and a missing
// blob is retried on the next access. A blob that cannot be read or decoded
// leaves the store empty; the failure is logged once.
func (s *Store) EnsureLoaded() {
	if s.loaded {
		return
	}

	data, err := s.blobs.LoadBlob(s.name)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.warn("state load failed, starting empty", err)
		}
		return
	}
	hashes, filenames, err := decode(data, s.logger)
	if err != nil {
		s.warn("state blob unreadable, starting empty", err)
		return
	}
	s.loaded = true
	s.hashes, s.filenames = hashes, filenames
}

func (s *Store) warn(msg string, err error) {
	if s.warned {
		return
	}
	s.warned = true
	s.logger.Warn(msg, "blob", s.name, "error", err)
}

// mutate loads the store and pins the in-memory maps as authoritative, so
// a failed flush never lets a later load resurrect what was just changed.
func (s *Store) mutate() {
	s.EnsureLoaded()
	s.loaded = true
}

// Fingerprint returns the stored fingerprint for id.
func (s *Store) Fingerprint(id string) (fingerprint.Sum, bool) {
	s.EnsureLoaded()
	sum, ok := s.hashes[id]
	return sum, ok
}

// Path returns the stored path for id. A tracked document without a path
// yields ("", true).
func (s *Store) Path(id string) (string, bool) {
	s.EnsureLoaded()
	p, ok := s.filenames[id]
	return p, ok
}

// Tracked reports whether id has an entry.
func (s *Store) Tracked(id string) bool {
	s.EnsureLoaded()
	_, ok := s.hashes[id]
	return ok
}

// Record stores the fingerprint of content and path for id, then flushes.
func (s *Store) Record(id, content, path string) error {
	s.mutate()
	s.hashes[id] = fingerprint.Of(content)
	s.filenames[id] = path
	return s.flush()
}

// Forget drops id, then flushes. Forgetting an untracked id still flushes.
func (s *Store) Forget(id string) error {
	s.mutate()
	delete(s.hashes, id)
	delete(s.filenames, id)
	return s.flush()
}

// FindByPath returns an identity tracked under path. When several match,
// the lexically smallest identity wins so the answer is stable.
func (s *Store) FindByPath(path string) (string, bool) {
	s.EnsureLoaded()
	found := ""
	ok := false
	for id, p := range s.filenames {
		if p != path {
			continue
		}
		if !ok || id < found {
			found, ok = id, true
		}
	}
	return found, ok
}

// Adopt moves the entry of from to to, replacing any entry to had, and
// flushes once. It is how tracking continues after a document reopens under
// a new identity.
func (s *Store) Adopt(from, to string) error {
	s.EnsureLoaded()
	sum, ok := s.hashes[from]
	if !ok {
		return errors.NewNotFound("state entry", from)
	}
	s.loaded = true
	s.hashes[to] = sum
	s.filenames[to] = s.filenames[from]
	if from != to {
		delete(s.hashes, from)
		delete(s.filenames, from)
	}
	return s.flush()
}

// Paths returns the set of tracked paths, sorted, without the empty path.
func (s *Store) Paths() []string {
	s.EnsureLoaded()
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.filenames {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Entries returns every entry sorted by identity.
func (s *Store) Entries() []Entry {
	s.EnsureLoaded()
	out := make([]Entry, 0, len(s.hashes))
	for id, sum := range s.hashes {
		out = append(out, Entry{ID: id, Sum: sum, Path: s.filenames[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of tracked identities.
func (s *Store) Len() int {
	s.EnsureLoaded()
	return len(s.hashes)
}

// Prune forgets every entry whose path is empty or for which exists reports
// false, flushing once. It returns the identities removed.
func (s *Store) Prune(exists func(path string) bool) ([]string, error) {
	s.EnsureLoaded()
	var removed []string
	for id, p := range s.filenames {
		if p == "" || !exists(p) {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	s.loaded = true
	for _, id := range removed {
		delete(s.hashes, id)
		delete(s.filenames, id)
	}
	sort.Strings(removed)
	return removed, s.flush()
}

// Export returns the persisted form of the store.
func (s *Store) Export() ([]byte, error) {
	s.EnsureLoaded()
	return encode(s.hashes, s.filenames)
}

// Import replaces the store's contents with a persisted form and flushes.
func (s *Store) Import(data []byte) error {
	hashes, filenames, err := decode(data, s.logger)
	if err != nil {
		return err
	}
	s.loaded = true
	s.hashes, s.filenames = hashes, filenames
	return s.flush()
}

func (s *Store) flush() error {
	data, err := encode(s.hashes, s.filenames)
	if err != nil {
		return err
	}
	if err := s.blobs.SaveBlob(s.name, data); err != nil {
		return errors.NewIO("flush", s.name, err)
	}
	return nil
}

func encode(hashes map[string]fingerprint.Sum, filenames map[string]string) ([]byte, error) {
	p := persisted{
		Hashes:    make(map[string]string, len(hashes)),
		Filenames: make(map[string]*string, len(filenames)),
	}
	for id, sum := range hashes {
		p.Hashes[id] = sum.String()
	}
	for id, path := range filenames {
		if path == "" {
			p.Filenames[id] = nil
			continue
		}
		path := path
		p.Filenames[id] = &path
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "encode state")
	}
	return data, nil
}

// decode parses the persisted form and repairs key parity: entries present
// in only one of the two mappings, or with an unparsable fingerprint, are
// dropped.
func decode(data []byte, logger *slog.Logger) (map[string]fingerprint.Sum, map[string]string, error) {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil, &errors.ParseError{Format: "state", Message: err.Error(), Err: err}
	}

	hashes := make(map[string]fingerprint.Sum, len(p.Hashes))
	filenames := make(map[string]string, len(p.Filenames))
	for id, raw := range p.Hashes {
		path, ok := p.Filenames[id]
		if !ok {
			logger.Warn("dropping state entry without path", "doc_id", id)
			continue
		}
		sum, err := fingerprint.Parse(raw)
		if err != nil {
			logger.Warn("dropping state entry with bad fingerprint", "doc_id", id, "error", err)
			continue
		}
		hashes[id] = sum
		if path != nil {
			filenames[id] = *path
		} else {
			filenames[id] = ""
		}
	}
	for id := range p.Filenames {
		if _, ok := hashes[id]; !ok {
			if _, had := p.Hashes[id]; !had {
				logger.Warn("dropping state entry without fingerprint", "doc_id", id)
			}
		}
	}
	return hashes, filenames, nil
}
