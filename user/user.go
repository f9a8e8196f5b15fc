package user

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no user matches the lookup
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already registered")
)

// Role decides which part of the panel a user can reach
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// User is a panel account, either a client or an administrator
type User struct {
	ID             int64          `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	Name           string         `db:"name" json:"name"`
	Phone          string         `db:"phone" json:"phone"`
	Company        string         `db:"company" json:"company"`
	Address        string         `db:"address" json:"address"`
	Role           Role           `db:"role" json:"role"`
	ResetToken     sql.NullString `db:"reset_token" json:"-"`
	ResetExpiresAt sql.NullTime   `db:"reset_expires_at" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user manages the panel
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository is an interface for the user store
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	Delete(ctx context.Context, id int64) error
}
