// Package database opens the SQLite databases of the API and of the local field tools.
package database

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
)

// Open opens the SQLite database at path, pings it and applies the given migration set.
// Pass ":memory:" for a throwaway database in tests.
func Open(l log.Logger, path string, set string) (*sqlx.DB, error) {
	dsn := path
	if path != ":memory:" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// SQLite only has one writer, and an in-memory database only lives as long as its connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	if err := migrations.Up(l, db.DB, set); err != nil {
		db.Close()
		return nil, err
	}

	level.Debug(l).Log("msg", "database ready", "path", path, "migrations", set)
	return db, nil
}

// LocalFile is the name of the database shared by the field agent and panelctl
const LocalFile = "drone-panel-local.db"

// DefaultLocalPath is where the field agent and panelctl keep their shared local database,
// so the agent's scheduled prune covers the cache panelctl writes. It falls back to the
// working directory when there is no user config directory.
func DefaultLocalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return LocalFile
	}
	dir = filepath.Join(dir, "drone-panel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return LocalFile
	}
	return filepath.Join(dir, LocalFile)
}
