// Package db stores sweep runs and reward allocations in SQLite. The schema
// is managed by embedded golang-migrate migrations.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/kappa/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsEmbed embed.FS

// Migrations returns the embedded migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsEmbed, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// SetClock replaces the clock that stamps runs stored without a CreatedAt.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// OpenDB opens (creating if needed) the database at path, applies pragmas
// and brings the schema up to the latest migration.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Pragmas are per connection; one connection keeps foreign_keys in force.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(Migrations()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}
