package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type sqliteStorage struct {
	l  log.Logger
	db *sqlx.DB
}

// NewSQLiteStorage initializes a storage on the agent database, it survives restarts
func NewSQLiteStorage(l log.Logger, db *sqlx.DB) *sqliteStorage {
	return &sqliteStorage{
		l:  l,
		db: db,
	}
}

type responseRow struct {
	Status   int    `db:"status"`
	Header   string `db:"header"`
	Body     []byte `db:"body"`
	StoredAt int64  `db:"stored_at"`
}

func (s *sqliteStorage) Open(ctx context.Context, bucket string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO offline_buckets (name, created_at) VALUES ($1, $2)",
		bucket, time.Now().UnixNano())
	return errors.Wrap(err, "opening bucket")
}

func (s *sqliteStorage) Names(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.SelectContext(ctx, &names, "SELECT name FROM offline_buckets ORDER BY created_at, rowid")
	return names, errors.Wrap(err, "listing buckets")
}

func (s *sqliteStorage) Delete(ctx context.Context, bucket string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM offline_buckets WHERE name = $1", bucket)
	return errors.Wrap(err, "deleting bucket")
}

func (s *sqliteStorage) Put(ctx context.Context, bucket string, key string, r *Response) error {
	header, err := json.Marshal(r.Header)
	if err != nil {
		return errors.Wrap(err, "encoding response header")
	}
	if err := s.Open(ctx, bucket); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO offline_responses (bucket, key, status, header, body, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bucket, key) DO UPDATE SET status = excluded.status, header = excluded.header,
			body = excluded.body, stored_at = excluded.stored_at`,
		bucket, key, r.Status, string(header), r.Body, r.StoredAt.UnixMilli())
	return errors.Wrap(err, "storing response")
}

func (s *sqliteStorage) Match(ctx context.Context, bucket string, key string) (*Response, bool, error) {
	return s.get(ctx, `SELECT status, header, body, stored_at FROM offline_responses
		WHERE bucket = $1 AND key = $2`, bucket, key)
}

func (s *sqliteStorage) MatchAny(ctx context.Context, key string) (*Response, bool, error) {
	return s.get(ctx, `SELECT r.status, r.header, r.body, r.stored_at FROM offline_responses r
		JOIN offline_buckets b ON b.name = r.bucket
		WHERE r.key = $1 ORDER BY b.created_at, b.rowid LIMIT 1`, key)
}

func (s *sqliteStorage) get(ctx context.Context, query string, args ...interface{}) (*Response, bool, error) {
	var row responseRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "matching response")
	}
	r := &Response{
		Status:   row.Status,
		Body:     row.Body,
		StoredAt: time.UnixMilli(row.StoredAt),
	}
	if err := json.Unmarshal([]byte(row.Header), &r.Header); err != nil {
		return nil, false, errors.Wrap(err, "decoding response header")
	}
	return r, true, nil
}
