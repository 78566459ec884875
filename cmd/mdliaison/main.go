// Command mdliaison keeps Markdown prose one sentence per line on disk and
// flowing while it is edited.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/mdliaison/core/blobstore"
	"github.com/FocuswithJustin/mdliaison/core/config"
	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/fingerprint"
	"github.com/FocuswithJustin/mdliaison/core/host"
	"github.com/FocuswithJustin/mdliaison/core/liaison"
	"github.com/FocuswithJustin/mdliaison/core/state"
	"github.com/FocuswithJustin/mdliaison/core/transform"
	"github.com/FocuswithJustin/mdliaison/internal/buffer"
	"github.com/FocuswithJustin/mdliaison/internal/fileutil"
	"github.com/FocuswithJustin/mdliaison/internal/logging"
	"github.com/FocuswithJustin/mdliaison/internal/workspace"
)

const version = "0.1.0"

// stdout is where commands print results.
var stdout io.Writer = os.Stdout

// logger carries the session ID of this invocation once startSession runs.
var logger = logging.GetLogger()

// startSession tags every record of this invocation with a fresh session
// ID and returns it.
func startSession() string {
	id := uuid.NewString()
	logger = logging.LoggerFromContext(logging.WithSessionID(context.Background(), id))
	logger.Debug("session started", "version", version)
	return id
}

// runEditor opens path in editor and waits for it to exit.
var runEditor = func(editor, path string) error {
	args := strings.Fields(editor)
	if len(args) == 0 {
		return errors.NewValidation("editor", "empty command")
	}
	cmd := exec.Command(args[0], append(args[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// CLI defines the command-line interface for mdliaison.
var CLI struct {
	// Global flags
	Settings  string          `help:"Global settings file" type:"path" default:"${settings_path}" env:"MDLIAISON_SETTINGS"`
	Project   string          `help:"Project file whose settings.markdown_liaison block overrides global settings" type:"path" env:"MDLIAISON_PROJECT"`
	State     string          `help:"Tracking state: a .db/.sqlite file or a directory" type:"path" default:"${state_path}" env:"MDLIAISON_STATE"`
	LogLevel  string          `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info" env:"MDLIAISON_LOG_LEVEL"`
	LogFormat string          `name:"log-format" help:"Log format" enum:"text,json" default:"text" env:"MDLIAISON_LOG_FORMAT"`
	Config    kong.ConfigFlag `help:"JSON file with flag defaults"`

	Convert     ConvertCmd     `cmd:"" help:"Rewrite prose regions of files in one direction"`
	Check       CheckCmd       `cmd:"" help:"Fail when files are not in one-sentence-per-line form"`
	Fingerprint FingerprintCmd `cmd:"" help:"Print Adler-32 fingerprints"`
	Edit        EditCmd        `cmd:"" help:"Edit a file in its flowing form"`
	Status      StatusCmd      `cmd:"" help:"Compare files with the recorded tracking state"`
	StateCmd    StateGroup     `cmd:"" name:"state" help:"Tracking state operations"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

// StateGroup contains tracking state operations.
type StateGroup struct {
	List   StateListCmd   `cmd:"" help:"List tracked documents"`
	Forget StateForgetCmd `cmd:"" help:"Forget a tracked document"`
	Prune  StatePruneCmd  `cmd:"" help:"Forget documents whose files are gone"`
	Export StateExportCmd `cmd:"" help:"Write the state to a file (.xz compresses)"`
	Import StateImportCmd `cmd:"" help:"Replace the state with an exported file"`
}

// env is what a command needs, built from the global flags.
type env struct {
	project  map[string]any
	resolver *config.Resolver
	policy   *config.Policy
	blobs    blobstore.Backend
	store    *state.Store
}

func openEnv() (*env, error) {
	settings, err := config.LoadSettings(CLI.Settings)
	if err != nil {
		return nil, err
	}
	var project map[string]any
	if CLI.Project != "" {
		if project, err = config.LoadProject(CLI.Project); err != nil {
			return nil, err
		}
	}
	resolver := config.NewResolver(settings)
	e := &env{
		project:  project,
		resolver: resolver,
		policy:   config.NewPolicy(resolver),
	}
	return e, nil
}

// openState opens the state store on top of an env for reading and
// writing, creating the state location if needed.
func openState() (*env, error) {
	e, err := openEnv()
	if err != nil {
		return nil, err
	}
	if CLI.State == "" {
		return nil, errors.NewValidation("state", "no state location configured")
	}
	dir := CLI.State
	if ext := strings.ToLower(filepath.Ext(CLI.State)); ext == ".db" || ext == ".sqlite" || ext == ".sqlite3" {
		dir = filepath.Dir(CLI.State)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("create directory", dir, err)
	}
	if e.blobs, err = blobstore.Open(CLI.State); err != nil {
		return nil, err
	}
	e.store = state.New(e.blobs, state.WithLogger(logger))
	return e, nil
}

// inspectState opens the state store without creating or writing anything.
func inspectState() (*env, error) {
	e, err := openEnv()
	if err != nil {
		return nil, err
	}
	if CLI.State == "" {
		return nil, errors.NewValidation("state", "no state location configured")
	}
	if e.blobs, err = blobstore.OpenReadOnly(CLI.State); err != nil {
		return nil, err
	}
	e.store = state.New(e.blobs, state.WithLogger(logger))
	return e, nil
}

func (e *env) Close() error {
	if e.blobs == nil {
		return nil
	}
	return e.blobs.Close()
}

// load reads path into a buffer carrying the project data. The identity is
// empty: these buffers never reach the state store. CRLF endings become LF
// and the buffer remembers them for write.
func (e *env) load(path string) (*buffer.Buffer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewIO("resolve", path, err)
	}
	raw, err := fileutil.ReadText(abs)
	if err != nil {
		return nil, err
	}
	text, crlf := fileutil.ToLF(raw)
	doc := buffer.New("", abs, text)
	doc.SetCRLF(crlf)
	doc.SetProjectData(e.project)
	return doc, nil
}

// diskContent is doc's text with the line endings of its file.
func diskContent(doc *buffer.Buffer) string {
	return fileutil.RestoreEndings(doc.Content(), doc.CRLF())
}

// ConvertCmd rewrites the prose regions of files.
type ConvertCmd struct {
	Direction string   `help:"Target form" enum:"to-disk,from-disk" default:"to-disk"`
	Write     bool     `short:"w" help:"Write results back instead of printing them"`
	Force     bool     `help:"Convert files the settings leave inactive"`
	Files     []string `arg:"" help:"Markdown files" type:"existingfile"`
}

func (c *ConvertCmd) Run() error {
	dir, ok := transform.ParseDirection(c.Direction)
	if !ok {
		return errors.NewUnsupported("direction", c.Direction)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}

	for _, path := range c.Files {
		doc, err := e.load(path)
		if err != nil {
			return err
		}
		if !c.Force && !e.policy.IsActive(doc) {
			logger.Info("skipping inactive file", "path", doc.Path())
			continue
		}
		act := e.resolver.Activation(doc)
		res, err := transform.Apply(doc, act.Selector, dir)
		if err != nil {
			return errors.Wrapf(err, "convert %s", path)
		}
		logging.TransformApplied(logger, dir.String(), "", res.Regions, res.Changed, "path", doc.Path())

		if !c.Write {
			fmt.Fprint(stdout, diskContent(doc))
			continue
		}
		if res.Changed == 0 {
			continue
		}
		if err := fileutil.WriteAtomic(doc.Path(), []byte(diskContent(doc)), 0644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "converted %s\n", path)
	}
	return nil
}

// CheckCmd reports files whose prose is not split one sentence per line.
type CheckCmd struct {
	Files []string `arg:"" help:"Markdown files" type:"existingfile"`
}

func (c *CheckCmd) Run() error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range c.Files {
		doc, err := e.load(path)
		if err != nil {
			return err
		}
		if !e.policy.IsActive(doc) {
			continue
		}
		act := e.resolver.Activation(doc)
		before := doc.Content()
		if _, err := transform.Apply(doc, act.Selector, transform.ToDisk); err != nil {
			return errors.Wrapf(err, "check %s", path)
		}
		if doc.Content() != before {
			failed++
			fmt.Fprintf(stdout, "%s: not one sentence per line\n", path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) need conversion", failed)
	}
	return nil
}

// FingerprintCmd prints the Adler-32 fingerprint of files.
type FingerprintCmd struct {
	Flowing bool     `help:"Fingerprint the flowing form, as the state store records it"`
	Files   []string `arg:"" help:"Files" type:"existingfile"`
}

func (c *FingerprintCmd) Run() error {
	if !c.Flowing {
		for _, path := range c.Files {
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.NewIO("read", path, err)
			}
			fmt.Fprintf(stdout, "%s  %s\n", fingerprint.OfBytes(data), path)
		}
		return nil
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	for _, path := range c.Files {
		doc, err := e.load(path)
		if err != nil {
			return err
		}
		act := e.resolver.Activation(doc)
		if _, err := transform.Apply(doc, act.Selector, transform.FromDisk); err != nil {
			return errors.Wrapf(err, "fingerprint %s", path)
		}
		fmt.Fprintf(stdout, "%s  %s\n", fingerprint.Of(doc.Content()), path)
	}
	return nil
}

// EditCmd runs a full editing session on one file.
type EditCmd struct {
	Editor string `help:"Editor command" env:"VISUAL,EDITOR" default:"vi"`
	Close  bool   `help:"Close the document when done, which forgets its tracking entry" default:"true" negatable:""`
	File   string `arg:"" help:"Markdown file" type:"existingfile"`
}

func (c *EditCmd) Run() error {
	e, err := openState()
	if err != nil {
		return err
	}
	defer e.Close()

	bus := host.NewBus()
	liaison.New(e.resolver, e.store, liaison.WithLogger(logger)).Attach(bus)
	w := workspace.New(bus, workspace.WithProjectData(e.project), workspace.WithLogger(logger))

	doc, err := w.Open(c.File)
	if err != nil {
		return err
	}

	scratch, err := os.CreateTemp("", "mdliaison-*"+filepath.Ext(doc.Path()))
	if err != nil {
		return errors.NewIO("create temp file", "", err)
	}
	scratchPath := scratch.Name()
	defer os.Remove(scratchPath)
	if _, err := scratch.WriteString(doc.Content()); err != nil {
		scratch.Close()
		return errors.NewIO("write", scratchPath, err)
	}
	if err := scratch.Close(); err != nil {
		return errors.NewIO("close", scratchPath, err)
	}

	if err := runEditor(c.Editor, scratchPath); err != nil {
		return errors.Wrapf(err, "run editor %q", c.Editor)
	}
	edited, err := os.ReadFile(scratchPath)
	if err != nil {
		return errors.NewIO("read", scratchPath, err)
	}
	if err := w.Edit(doc, string(edited)); err != nil {
		return err
	}

	if doc.Clean() {
		fmt.Fprintf(stdout, "%s: clean, nothing to save\n", c.File)
	} else {
		if err := w.Save(doc); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: saved\n", c.File)
	}

	if c.Close {
		return w.Close(doc)
	}
	return nil
}

// StatusCmd compares files with the tracking state.
type StatusCmd struct {
	Files []string `arg:"" help:"Markdown files" type:"existingfile"`
}

func (c *StatusCmd) Run() error {
	e, err := inspectState()
	if err != nil {
		return err
	}
	defer e.Close()

	coord := liaison.New(e.resolver, e.store, liaison.WithLogger(logger))
	for _, path := range c.Files {
		doc, err := e.load(path)
		if err != nil {
			return err
		}
		if e.policy.IsActive(doc) {
			act := e.resolver.Activation(doc)
			if _, err := transform.Run(doc, act.FromDiskCommand, act.Selector); err != nil {
				return errors.Wrapf(err, "status %s", path)
			}
		}
		fmt.Fprintf(stdout, "%s\t%s\n", coord.Status(doc), path)
	}
	return nil
}

// StateListCmd lists tracked documents.
type StateListCmd struct{}

func (c *StateListCmd) Run() error {
	e, err := inspectState()
	if err != nil {
		return err
	}
	defer e.Close()

	for _, entry := range e.store.Entries() {
		path := entry.Path
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", entry.ID, entry.Sum, path)
	}
	return nil
}

// StateForgetCmd forgets one identity.
type StateForgetCmd struct {
	ID string `arg:"" help:"Document identity"`
}

func (c *StateForgetCmd) Run() error {
	e, err := openState()
	if err != nil {
		return err
	}
	defer e.Close()

	if !e.store.Tracked(c.ID) {
		return errors.NewNotFound("state entry", c.ID)
	}
	return e.store.Forget(c.ID)
}

// StatePruneCmd forgets entries whose files no longer exist.
type StatePruneCmd struct{}

func (c *StatePruneCmd) Run() error {
	e, err := openState()
	if err != nil {
		return err
	}
	defer e.Close()

	removed, err := e.store.Prune(fileutil.Exists)
	if err != nil {
		return err
	}
	for _, id := range removed {
		fmt.Fprintf(stdout, "pruned %s\n", id)
	}
	return nil
}

// StateExportCmd writes the persisted state to a file.
type StateExportCmd struct {
	Out string `required:"" help:"Output file; a .xz suffix compresses" type:"path"`
}

func (c *StateExportCmd) Run() error {
	e, err := inspectState()
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := e.store.Export()
	if err != nil {
		return err
	}
	if strings.HasSuffix(c.Out, ".xz") {
		var buf bytes.Buffer
		zw, err := xz.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to compress state: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress state: %w", err)
		}
		data = buf.Bytes()
	}
	return fileutil.WriteAtomic(c.Out, data, 0644)
}

// StateImportCmd replaces the state with an exported file.
type StateImportCmd struct {
	File string `arg:"" help:"Exported state; a .xz suffix is decompressed" type:"existingfile"`
}

func (c *StateImportCmd) Run() error {
	e, err := openState()
	if err != nil {
		return err
	}
	defer e.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return errors.NewIO("open", c.File, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(c.File, ".xz") {
		zr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.NewIO("read", c.File, err)
	}
	if err := e.store.Import(data); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d entries\n", e.store.Len())
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "mdliaison version %s\n", version)
	return nil
}

// Helper functions

func defaultPaths() (settingsPath, statePath string) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", ""
	}
	base := filepath.Join(dir, "mdliaison")
	return filepath.Join(base, "settings.json"), filepath.Join(base, "state")
}

func main() {
	settingsPath, statePath := defaultPaths()
	ctx := kong.Parse(&CLI,
		kong.Name("mdliaison"),
		kong.Description("Markdown sentence newline liaison"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(kong.JSON, "~/.config/mdliaison/flags.json", ".mdliaison.json"),
		kong.Vars{
			"settings_path": settingsPath,
			"state_path":    statePath,
		},
	)
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))
	startSession()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
