package servicerequest

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const selectWithClient = `SELECT r.id, r.user_id, r.service_type, r.scheduled_date, r.scheduled_time,
	r.location, r.area, r.notes, r.status, r.created_at, r.updated_at,
	u.name AS client_name, u.email AS client_email, u.phone AS client_phone
	FROM service_requests r JOIN users u ON u.id = r.user_id`

type repository struct {
	l  log.Logger
	db *sqlx.DB
}

// NewRepository initializes a new SQLite service request repository
func NewRepository(l log.Logger, db *sqlx.DB) *repository {
	return &repository{
		l:  l,
		db: db,
	}
}

// Create inserts a request, new requests always start as pending
func (s *repository) Create(ctx context.Context, r *Request) error {
	now := time.Now().UTC()
	r.Status = StatusPending
	r.CreatedAt = now
	r.UpdatedAt = now
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO service_requests
		(user_id, service_type, scheduled_date, scheduled_time, location, area, notes, status, created_at, updated_at)
		VALUES (:user_id, :service_type, :scheduled_date, :scheduled_time, :location, :area, :notes, :status, :created_at, :updated_at)`, r)
	if err != nil {
		return errors.Wrap(err, "inserting service request")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "reading service request id")
	}
	r.ID = id
	return nil
}

// Get returns a request together with its client details
func (s *repository) Get(ctx context.Context, id int64) (*Request, error) {
	var r Request
	if err := s.db.GetContext(ctx, &r, selectWithClient+" WHERE r.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "selecting service request")
	}
	return &r, nil
}

// ListByUser returns the requests of one client, upcoming first
func (s *repository) ListByUser(ctx context.Context, userID int64) ([]Request, error) {
	requests := []Request{}
	err := s.db.SelectContext(ctx, &requests, selectWithClient+" WHERE r.user_id = $1 ORDER BY r.scheduled_date DESC, r.id DESC", userID)
	return requests, errors.Wrap(err, "listing service requests of user")
}

// ListAll returns every request with client details for the admin panel
func (s *repository) ListAll(ctx context.Context) ([]Request, error) {
	requests := []Request{}
	err := s.db.SelectContext(ctx, &requests, selectWithClient+" ORDER BY r.created_at DESC, r.id DESC")
	return requests, errors.Wrap(err, "listing service requests")
}

// UpdateStatus moves a request to a new status
func (s *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	res, err := s.db.ExecContext(ctx, "UPDATE service_requests SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating service request status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
