package blobstore

import (
	"database/sql"
	"time"

	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS liaison_blobs (
	name       TEXT PRIMARY KEY,
	data       BLOB,
	blake3     TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLite stores blobs as rows of a single table.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create schema in", path, err)
	}
	return &SQLite{db: db, path: path}, nil
}

// OpenSQLiteReadOnly opens the existing database at path in read-only
// mode. The schema is not created; SaveBlob fails.
func OpenSQLiteReadOnly(path string) (*SQLite, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &SQLite{db: db, path: path}, nil
}

// LoadBlob reads and verifies the blob saved under name.
func (s *SQLite) LoadBlob(name string) ([]byte, error) {
	var data []byte
	var sum string
	err := s.db.QueryRow(`SELECT data, blake3 FROM liaison_blobs WHERE name = ?`, name).Scan(&data, &sum)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("blob", name)
	}
	if err != nil {
		return nil, errors.NewIO("read", s.path, err)
	}
	if got := Checksum(data); got != sum {
		return nil, &errors.IntegrityError{Name: name, Expected: sum, Actual: got}
	}
	return data, nil
}

// SaveBlob upserts the blob saved under name.
func (s *SQLite) SaveBlob(name string, data []byte) error {
	_, err := s.db.Exec(`INSERT INTO liaison_blobs (name, data, blake3, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			blake3 = excluded.blake3,
			updated_at = excluded.updated_at`,
		name, data, Checksum(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.NewIO("write", s.path, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
