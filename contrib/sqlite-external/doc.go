// Package sqliteexternal registers the CGO SQLite driver
// (github.com/mattn/go-sqlite3) for builds that opt into it.
//
// Build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/mdliaison
//
// Without the tag, core/sqlite uses the pure Go modernc.org/sqlite driver and
// this package compiles to nothing. The CGO driver is worth it when the state
// database is shared with other tools that already link libsqlite3.
package sqliteexternal
