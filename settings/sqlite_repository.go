package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type repository struct {
	l  log.Logger
	db *sqlx.DB
}

// NewRepository initializes a new SQLite settings repository
func NewRepository(l log.Logger, db *sqlx.DB) *repository {
	return &repository{
		l:  l,
		db: db,
	}
}

// Get decodes the stored value of key into dst, reporting false if it was never saved
func (s *repository) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = $1", key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrapf(err, "reading setting %s", key)
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, errors.Wrapf(err, "decoding setting %s", key)
	}
	return true, nil
}

// Put stores value under key as JSON
func (s *repository) Put(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding setting %s", key)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(b), time.Now().UTC())
	return errors.Wrapf(err, "writing setting %s", key)
}
