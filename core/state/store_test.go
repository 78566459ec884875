package state_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/FocuswithJustin/mdliaison/core/blobstore"
	liaisonerrors "github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/fingerprint"
	"github.com/FocuswithJustin/mdliaison/core/state"
)

func persistedOf(t *testing.T, blobs *blobstore.Memory) map[string]map[string]any {
	t.Helper()
	data, err := blobs.LoadBlob(state.DefaultBlobName)
	if err != nil {
		t.Fatalf("LoadBlob() error: %v", err)
	}
	var out map[string]map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("blob is not JSON: %v", err)
	}
	return out
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestRecordAndLookup(t *testing.T) {
	blobs := blobstore.NewMemory()
	s := state.New(blobs)

	if _, ok := s.Fingerprint("42"); ok {
		t.Fatal("empty store should not know 42")
	}
	if _, ok := s.Path("42"); ok {
		t.Fatal("empty store should not know 42's path")
	}

	if err := s.Record("42", "x", "/notes/a.md"); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if sum, ok := s.Fingerprint("42"); !ok || sum != fingerprint.Of("x") {
		t.Errorf("Fingerprint(42) = %d, %v", sum, ok)
	}
	if p, ok := s.Path("42"); !ok || p != "/notes/a.md" {
		t.Errorf("Path(42) = %q, %v", p, ok)
	}
	if !s.Tracked("42") || s.Len() != 1 {
		t.Error("42 should be tracked")
	}
	if blobs.Saves != 1 {
		t.Errorf("Saves = %d, want 1 flush per mutation", blobs.Saves)
	}
}

func TestPersistedLayout(t *testing.T) {
	blobs := blobstore.NewMemory()
	s := state.New(blobs)

	if err := s.Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}
	if err := s.Record("7", "y", ""); err != nil {
		t.Fatal(err)
	}

	p := persistedOf(t, blobs)
	if p["hashes"]["42"] != fingerprint.Of("x").String() {
		t.Errorf("hashes[42] = %v, want decimal string", p["hashes"]["42"])
	}
	if p["filenames"]["42"] != "/a.md" {
		t.Errorf("filenames[42] = %v", p["filenames"]["42"])
	}
	if v, ok := p["filenames"]["7"]; !ok || v != nil {
		t.Errorf("filenames[7] = %v (present=%v), want null", v, ok)
	}
}

func TestKeyParity(t *testing.T) {
	blobs := blobstore.NewMemory()
	s := state.New(blobs)

	ops := []struct {
		record bool
		id     string
	}{
		{true, "1"}, {true, "2"}, {false, "1"}, {true, "3"}, {false, "9"}, {true, "2"}, {false, "3"}, {true, "4"},
	}
	for _, op := range ops {
		var err error
		if op.record {
			err = s.Record(op.id, "content "+op.id, "/"+op.id+".md")
		} else {
			err = s.Forget(op.id)
		}
		if err != nil {
			t.Fatal(err)
		}

		p := persistedOf(t, blobs)
		if !reflect.DeepEqual(keys(p["hashes"]), keys(p["filenames"])) {
			t.Fatalf("key sets diverged: %v vs %v", keys(p["hashes"]), keys(p["filenames"]))
		}
	}

	entries := s.Entries()
	if len(entries) != 2 || entries[0].ID != "2" || entries[1].ID != "4" {
		t.Errorf("Entries() = %+v", entries)
	}
}

func TestForget(t *testing.T) {
	s := state.New(blobstore.NewMemory())
	if err := s.Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}
	if err := s.Forget("42"); err != nil {
		t.Fatal(err)
	}
	if s.Tracked("42") {
		t.Error("42 still tracked after Forget")
	}
	if _, ok := s.Path("42"); ok {
		t.Error("42 still has a path after Forget")
	}
}

func TestSurvivesRestart(t *testing.T) {
	blobs := blobstore.NewMemory()
	first := state.New(blobs)
	if err := first.Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}

	second := state.New(blobs)
	if sum, ok := second.Fingerprint("42"); !ok || sum != fingerprint.Of("x") {
		t.Errorf("reloaded Fingerprint(42) = %d, %v", sum, ok)
	}
	if !reflect.DeepEqual(first.Entries(), second.Entries()) {
		t.Errorf("reloaded entries differ: %+v vs %+v", first.Entries(), second.Entries())
	}
}

// lateBlobs reports not-found until ready is set, like host settings that
// become available only after the store was constructed.
type lateBlobs struct {
	*blobstore.Memory
	ready bool
}

func (l *lateBlobs) LoadBlob(name string) ([]byte, error) {
	if !l.ready {
		return nil, liaisonerrors.NewNotFound("blob", name)
	}
	return l.Memory.LoadBlob(name)
}

func TestLazyLoadRetriesWhileEmpty(t *testing.T) {
	mem := blobstore.NewMemory()
	if err := state.New(mem).Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}

	late := &lateBlobs{Memory: mem}
	s := state.New(late)
	if s.Tracked("42") {
		t.Fatal("settings not ready yet, store should be empty")
	}

	late.ready = true
	if !s.Tracked("42") {
		t.Error("store should reload once settings are available")
	}
}

// countingBlobs counts LoadBlob calls.
type countingBlobs struct {
	*blobstore.Memory
	loads int
}

func (c *countingBlobs) LoadBlob(name string) ([]byte, error) {
	c.loads++
	return c.Memory.LoadBlob(name)
}

func TestLoadedStoreDoesNotReload(t *testing.T) {
	mem := blobstore.NewMemory()
	if err := state.New(mem).Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}
	if err := state.New(mem).Forget("42"); err != nil {
		t.Fatal(err)
	}

	// The blob exists but holds no entries.
	blobs := &countingBlobs{Memory: mem}
	s := state.New(blobs)
	for i := 0; i < 5; i++ {
		s.Tracked("9")
		s.FindByPath("/b.md")
	}
	if blobs.loads != 1 {
		t.Errorf("LoadBlob called %d times, want 1", blobs.loads)
	}
}

func TestUnreadableBlobWarnsOnce(t *testing.T) {
	blobs := &countingBlobs{Memory: blobstore.NewMemory()}
	if err := blobs.SaveBlob(state.DefaultBlobName, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	logs := &bytes.Buffer{}
	s := state.New(blobs, state.WithLogger(slog.New(slog.NewJSONHandler(logs, nil))))

	for i := 0; i < 3; i++ {
		if s.Tracked("42") {
			t.Fatal("unreadable blob should leave the store empty")
		}
	}
	if n := strings.Count(logs.String(), "state blob unreadable"); n != 1 {
		t.Errorf("warning logged %d times, want 1", n)
	}
}

func TestFailedForgetIsNotUndoneByReload(t *testing.T) {
	blobs := blobstore.NewMemory()
	s := state.New(blobs)
	if err := s.Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}

	blobs.SaveErr = errors.New("disk full")
	if err := s.Forget("42"); err == nil {
		t.Fatal("Forget() should report the flush failure")
	}
	if s.Tracked("42") || s.Len() != 0 {
		t.Error("forgotten entry came back from the stale blob")
	}
}

func TestFindByPath(t *testing.T) {
	s := state.New(blobstore.NewMemory())
	for _, r := range []struct{ id, path string }{{"42", "/a.md"}, {"13", "/a.md"}, {"7", "/b.md"}} {
		if err := s.Record(r.id, "x", r.path); err != nil {
			t.Fatal(err)
		}
	}

	if id, ok := s.FindByPath("/a.md"); !ok || id != "13" {
		t.Errorf("FindByPath(/a.md) = %q, %v, want smallest id 13", id, ok)
	}
	if id, ok := s.FindByPath("/b.md"); !ok || id != "7" {
		t.Errorf("FindByPath(/b.md) = %q, %v", id, ok)
	}
	if _, ok := s.FindByPath("/c.md"); ok {
		t.Error("FindByPath(/c.md) should miss")
	}
	if got := s.Paths(); !reflect.DeepEqual(got, []string{"/a.md", "/b.md"}) {
		t.Errorf("Paths() = %v", got)
	}
}

func TestAdopt(t *testing.T) {
	blobs := blobstore.NewMemory()
	s := state.New(blobs)
	if err := s.Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}
	saves := blobs.Saves

	if err := s.Adopt("42", "57"); err != nil {
		t.Fatalf("Adopt() error: %v", err)
	}
	if blobs.Saves != saves+1 {
		t.Errorf("Adopt flushed %d times, want 1", blobs.Saves-saves)
	}
	if s.Tracked("42") {
		t.Error("old identity should be dropped")
	}
	if sum, ok := s.Fingerprint("57"); !ok || sum != fingerprint.Of("x") {
		t.Errorf("Fingerprint(57) = %d, %v", sum, ok)
	}
	if p, _ := s.Path("57"); p != "/a.md" {
		t.Errorf("Path(57) = %q", p)
	}

	if err := s.Adopt("missing", "58"); !errors.Is(err, liaisonerrors.ErrNotFound) {
		t.Errorf("Adopt(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFlushFailureKeepsMemory(t *testing.T) {
	blobs := blobstore.NewMemory()
	blobs.SaveErr = errors.New("disk full")
	s := state.New(blobs)

	err := s.Record("42", "x", "/a.md")
	var ioErr *liaisonerrors.IOError
	if !errors.As(err, &ioErr) || ioErr.Operation != "flush" {
		t.Fatalf("Record() error = %v, want flush IOError", err)
	}
	if !s.Tracked("42") {
		t.Error("in-memory entry should survive a failed flush")
	}
}

func TestLoadRepairsParity(t *testing.T) {
	blobs := blobstore.NewMemory()
	raw := `{"hashes":{"1":"10","2":"20","3":"oops"},"filenames":{"1":"/a.md","3":"/c.md","4":"/d.md"}}`
	if err := blobs.SaveBlob(state.DefaultBlobName, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	s := state.New(blobs)
	entries := s.Entries()
	if len(entries) != 1 || entries[0] != (state.Entry{ID: "1", Sum: 10, Path: "/a.md"}) {
		t.Errorf("Entries() = %+v, want only entry 1", entries)
	}
}

func TestUnreadableBlobStartsEmpty(t *testing.T) {
	blobs := blobstore.NewMemory()
	if err := blobs.SaveBlob(state.DefaultBlobName, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	s := state.New(blobs)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if err := s.Record("1", "x", "/a.md"); err != nil {
		t.Fatalf("Record() after bad blob error: %v", err)
	}
}

func TestPrune(t *testing.T) {
	s := state.New(blobstore.NewMemory())
	for _, r := range []struct{ id, path string }{{"1", "/keep.md"}, {"2", "/gone.md"}, {"3", ""}} {
		if err := s.Record(r.id, "x", r.path); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Prune(func(p string) bool { return p == "/keep.md" })
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(removed, []string{"2", "3"}) {
		t.Errorf("Prune() removed %v", removed)
	}
	if s.Len() != 1 || !s.Tracked("1") {
		t.Errorf("Entries() after prune = %+v", s.Entries())
	}

	removed, err = s.Prune(func(string) bool { return true })
	if err != nil || removed != nil {
		t.Errorf("Prune() with nothing to remove = %v, %v", removed, err)
	}
}

func TestExportImport(t *testing.T) {
	src := state.New(blobstore.NewMemory())
	if err := src.Record("42", "x", "/a.md"); err != nil {
		t.Fatal(err)
	}
	if err := src.Record("7", "y", ""); err != nil {
		t.Fatal(err)
	}
	data, err := src.Export()
	if err != nil {
		t.Fatal(err)
	}

	dstBlobs := blobstore.NewMemory()
	dst := state.New(dstBlobs, state.WithBlobName("imported"))
	if err := dst.Import(data); err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if !reflect.DeepEqual(src.Entries(), dst.Entries()) {
		t.Errorf("imported entries %+v, want %+v", dst.Entries(), src.Entries())
	}
	if _, err := dstBlobs.LoadBlob("imported"); err != nil {
		t.Errorf("Import should flush under the configured name: %v", err)
	}

	if err := dst.Import([]byte("{")); !errors.Is(err, liaisonerrors.ErrInvalidInput) {
		t.Errorf("Import(bad) error = %v", err)
	}
}
