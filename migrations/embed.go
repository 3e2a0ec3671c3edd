// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
// Each SQL backend has its own directory because column types differ.
package migrations

import (
	"embed"
	"io/fs"
)

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Postgres returns the migrations for the Postgres backend.
// Pass this to goose.NewProvider instead of relying on a filesystem path
// at runtime.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the migrations for the SQLite backend.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(FS, dir)
	if err != nil {
		// Only possible if dir is not a valid path, which is a programming error.
		panic("migrations: " + err.Error())
	}
	return f
}
