package blobstore

import (
	"github.com/FocuswithJustin/mdliaison/core/errors"
)

// Memory keeps blobs in a map. SaveErr, when set, is returned by SaveBlob
// so callers can exercise flush failures.
type Memory struct {
	blobs   map[string][]byte
	SaveErr error
	Saves   int
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// LoadBlob returns a copy of the blob saved under name.
func (m *Memory) LoadBlob(name string) ([]byte, error) {
	data, ok := m.blobs[name]
	if !ok {
		return nil, errors.NewNotFound("blob", name)
	}
	return append([]byte(nil), data...), nil
}

// SaveBlob stores a copy of data under name.
func (m *Memory) SaveBlob(name string, data []byte) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.blobs[name] = append([]byte(nil), data...)
	m.Saves++
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
