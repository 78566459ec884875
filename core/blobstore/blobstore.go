// Package blobstore persists named blobs for the state store. Backends:
// Memory for tests, File for a directory of checksummed files, and SQLite
// for a single database file. Persisted backends record a BLAKE3 checksum
// next to every payload and refuse to return a payload that does not match.
package blobstore

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/mdliaison/core/state"
	"github.com/FocuswithJustin/mdliaison/internal/fileutil"
)

var (
	_ state.BlobStore = (*Memory)(nil)
	_ state.BlobStore = (*File)(nil)
	_ state.BlobStore = (*SQLite)(nil)
)

// Checksum returns the hex BLAKE3 digest of data.
func Checksum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Backend is a BlobStore that holds resources.
type Backend interface {
	state.BlobStore
	Close() error
}

// Open picks a backend from location: a path ending in .db, .sqlite or
// .sqlite3 opens a SQLite database, anything else is a directory for the
// File backend.
func Open(location string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(location)
	default:
		return NewFile(location)
	}
}

// OpenReadOnly opens location for reading only. Nothing is created: a
// missing database or directory yields an empty Memory store, and a SQLite
// database is opened in read-only mode.
func OpenReadOnly(location string) (Backend, error) {
	if !fileutil.Exists(location) {
		return NewMemory(), nil
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLiteReadOnly(location)
	default:
		return &File{dir: location}, nil
	}
}
