package servicerequest

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no service request matches the lookup
var ErrNotFound = errors.New("service request not found")

// Status is the lifecycle state of a request
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ServiceTypes are the services a client can book
var ServiceTypes = []string{
	"fumigation",
	"mapping",
	"aerial-painting",
	"photovoltaic-cleaning",
	"equipment-rental",
	"training",
	"repair",
}

// ValidServiceType reports whether t is one of ServiceTypes
func ValidServiceType(t string) bool {
	for _, s := range ServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Request is a scheduled drone service booked by a client. The client fields are only
// filled for listings that join the owning account.
type Request struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	ServiceType   string    `db:"service_type" json:"service_type"`
	ScheduledDate string    `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime string    `db:"scheduled_time" json:"scheduled_time"`
	Location      string    `db:"location" json:"location"`
	Area          *float64  `db:"area" json:"area,omitempty"`
	Notes         string    `db:"notes" json:"notes"`
	Status        Status    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	ClientName    string    `db:"client_name" json:"client_name,omitempty"`
	ClientEmail   string    `db:"client_email" json:"client_email,omitempty"`
	ClientPhone   string    `db:"client_phone" json:"client_phone,omitempty"`
}

// Repository is an interface for the service request store
type Repository interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id int64) (*Request, error)
	ListByUser(ctx context.Context, userID int64) ([]Request, error)
	ListAll(ctx context.Context) ([]Request, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
