package cache

import (
	"database/sql"

	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type repository struct {
	l  log.Logger
	db *sqlx.DB
}

// NewRepository initializes a new SQLite backed cache repository
func NewRepository(l log.Logger, db *sqlx.DB) *repository {
	return &repository{
		l:  l,
		db: db,
	}
}

// Get returns the stored value for a given key
func (s *repository) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM kv_store WHERE key = $1", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading kv_store")
	}
	return value, true, nil
}

// Set stores or overwrites the value of a key
func (s *repository) Set(key string, value string) error {
	_, err := s.db.NamedExec(`INSERT INTO kv_store (key, value) VALUES (:key, :value)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		map[string]interface{}{
			"key":   key,
			"value": value,
		})
	return errors.Wrap(err, "writing kv_store")
}

// Remove deletes a key, it is not an error if the key doesn't exist
func (s *repository) Remove(key string) error {
	_, err := s.db.Exec("DELETE FROM kv_store WHERE key = $1", key)
	return errors.Wrap(err, "deleting from kv_store")
}

// Keys lists every stored key
func (s *repository) Keys() ([]string, error) {
	var keys []string
	if err := s.db.Select(&keys, "SELECT key FROM kv_store ORDER BY key"); err != nil {
		return nil, errors.Wrap(err, "listing kv_store")
	}
	return keys, nil
}
