package requests

import (
	"context"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
)

var (
	ErrInvalidServiceType = errors.New("unknown service type")
	ErrInvalidDate        = errors.New("scheduled date must be YYYY-MM-DD")
	ErrInvalidTime        = errors.New("scheduled time must be HH:MM")
	ErrMissingLocation    = errors.New("location is required")
	ErrInvalidArea        = errors.New("area must be a positive number of hectares")
	ErrInvalidStatus      = errors.New("unknown status")
)

// Service is an interface for booking and managing service requests
type Service interface {
	Create(ctx context.Context, userID int64, in Input) (*servicerequest.Request, error)
	ListOwn(ctx context.Context, userID int64) ([]servicerequest.Request, error)
	ListAll(ctx context.Context) ([]servicerequest.Request, error)
	SetStatus(ctx context.Context, id int64, status servicerequest.Status) (*servicerequest.Request, error)
}

// Input is what a client submits to book a service
type Input struct {
	ServiceType   string   `json:"service_type"`
	ScheduledDate string   `json:"scheduled_date"`
	ScheduledTime string   `json:"scheduled_time"`
	Location      string   `json:"location"`
	Area          *float64 `json:"area"`
	Notes         string   `json:"notes"`
}

// Validate checks the input before it is stored
func (in Input) Validate() error {
	if !servicerequest.ValidServiceType(in.ServiceType) {
		return ErrInvalidServiceType
	}
	if _, err := time.Parse("2006-01-02", in.ScheduledDate); err != nil {
		return ErrInvalidDate
	}
	if in.ScheduledTime != "" {
		if _, err := time.Parse("15:04", in.ScheduledTime); err != nil {
			return ErrInvalidTime
		}
	}
	if strings.TrimSpace(in.Location) == "" {
		return ErrMissingLocation
	}
	if in.Area != nil && *in.Area <= 0 {
		return ErrInvalidArea
	}
	return nil
}

type service struct {
	l        log.Logger
	requests servicerequest.Repository
}

// NewService initializes a new service request service
func NewService(l log.Logger, requests servicerequest.Repository) *service {
	return &service{
		l:        l,
		requests: requests,
	}
}

func (s *service) Create(ctx context.Context, userID int64, in Input) (*servicerequest.Request, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := &servicerequest.Request{
		UserID:        userID,
		ServiceType:   in.ServiceType,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		Location:      strings.TrimSpace(in.Location),
		Area:          in.Area,
		Notes:         strings.TrimSpace(in.Notes),
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, err
	}
	level.Info(s.l).Log("msg", "service request created", "request_id", r.ID, "user_id", userID, "service_type", r.ServiceType)
	return r, nil
}

func (s *service) ListOwn(ctx context.Context, userID int64) ([]servicerequest.Request, error) {
	return s.requests.ListByUser(ctx, userID)
}

func (s *service) ListAll(ctx context.Context) ([]servicerequest.Request, error) {
	return s.requests.ListAll(ctx)
}

// SetStatus returns the updated request with client details, ready for notifying the client
func (s *service) SetStatus(ctx context.Context, id int64, status servicerequest.Status) (*servicerequest.Request, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.requests.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	level.Info(s.l).Log("msg", "service request status changed", "request_id", id, "status", status)
	return s.requests.Get(ctx, id)
}
