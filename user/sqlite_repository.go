package user

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const columns = `id, email, password_hash, name, phone, company, address, role,
	reset_token, reset_expires_at, created_at, updated_at`

type repository struct {
	l  log.Logger
	db *sqlx.DB
}

// NewRepository initializes a new SQLite user repository
func NewRepository(l log.Logger, db *sqlx.DB) *repository {
	return &repository{
		l:  l,
		db: db,
	}
}

// Create inserts a user and fills in its id and timestamps
func (s *repository) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleClient
	}
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO users
		(email, password_hash, name, phone, company, address, role, created_at, updated_at)
		VALUES (:email, :password_hash, :name, :phone, :company, :address, :role, :created_at, :updated_at)`,
		map[string]interface{}{
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"name":          u.Name,
			"phone":         u.Phone,
			"company":       u.Company,
			"address":       u.Address,
			"role":          u.Role,
			"created_at":    now,
			"updated_at":    now,
		})
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrEmailTaken
		}
		return errors.Wrap(err, "inserting user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "reading user id")
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// Get returns the user with the given id
func (s *repository) Get(ctx context.Context, id int64) (*User, error) {
	return s.getBy(ctx, "SELECT "+columns+" FROM users WHERE id = $1", id)
}

// GetByEmail returns the user registered with email, matched case-insensitively
func (s *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "SELECT "+columns+" FROM users WHERE email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// GetByResetToken returns the user holding a password reset token
func (s *repository) GetByResetToken(ctx context.Context, token string) (*User, error) {
	return s.getBy(ctx, "SELECT "+columns+" FROM users WHERE reset_token = $1", token)
}

func (s *repository) getBy(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "selecting user")
	}
	return &u, nil
}

// List returns all users, newest first
func (s *repository) List(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := s.db.SelectContext(ctx, &users, "SELECT "+columns+" FROM users ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	return users, nil
}

// UpdateProfile stores the editable profile fields
func (s *repository) UpdateProfile(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.NamedExecContext(ctx, `UPDATE users
		SET name = :name, phone = :phone, company = :company, address = :address, updated_at = :updated_at
		WHERE id = :id`, u)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return expectOne(res)
}

// UpdatePassword replaces the password hash and invalidates any pending reset token
func (s *repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET password_hash = $1, reset_token = NULL, reset_expires_at = NULL, updated_at = $2
		WHERE id = $3`, hash, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	return expectOne(res)
}

// SetResetToken stores a password reset token valid until expiresAt
func (s *repository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users
		SET reset_token = $1, reset_expires_at = $2, updated_at = $3
		WHERE id = $4`, token, expiresAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "storing reset token")
	}
	return expectOne(res)
}

// Delete removes a user together with their service requests
func (s *repository) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
