// Package config resolves mdliaison settings from a document's project and
// the global settings file, and decides whether a document is active.
package config

import (
	_ "embed"
	"encoding/json"
	"os"

	"github.com/FocuswithJustin/mdliaison/core/errors"
)

// Namespace is the key of the settings block inside a project's "settings".
const Namespace = "markdown_liaison"

// Recognized keys.
const (
	KeyActive          = "active"
	KeyExtensions      = "extensions"
	KeySelector        = "sentence_newline_selector"
	KeyToDiskCommand   = "to_disk_command"
	KeyFromDiskCommand = "from_disk_command"
)

//go:embed defaults.json
var defaultsJSON []byte

// Settings is the global settings store: a flat key/value object decoded
// from JSON.
type Settings struct {
	values map[string]any
}

// NewSettings wraps values as global settings. A nil map is treated as empty.
func NewSettings(values map[string]any) *Settings {
	if values == nil {
		values = map[string]any{}
	}
	return &Settings{values: values}
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	var values map[string]any
	if err := json.Unmarshal(defaultsJSON, &values); err != nil {
		panic("config: invalid embedded defaults: " + err.Error())
	}
	return NewSettings(values)
}

// LoadSettings reads a JSON settings file and layers it over the built-in
// defaults. A missing file yields the defaults alone.
func LoadSettings(path string) (*Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.NewIO("read", path, err)
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, &errors.ParseError{Format: "settings", Path: path, Message: err.Error(), Err: err}
	}
	for k, v := range values {
		s.values[k] = v
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *Settings) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Settings) Set(key string, value any) {
	s.values[key] = value
}

// LoadProject reads a JSON project file. Its "settings" object may carry a
// Namespace block overriding global settings for documents in the project.
func LoadProject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	var project map[string]any
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, &errors.ParseError{Format: "project", Path: path, Message: err.Error(), Err: err}
	}
	return project, nil
}
