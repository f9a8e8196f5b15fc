package profile

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

// ErrMissingName is returned when an update would blank the name
var ErrMissingName = errors.New("name is required")

// Service is an interface for the profile service
type Service interface {
	Get(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, id int64, in Input) (*user.User, error)
}

// Input holds the fields a user may edit on their own profile
type Input struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
}

type service struct {
	l     log.Logger
	users user.Repository
}

// NewService initializes a new profile service
func NewService(l log.Logger, users user.Repository) *service {
	return &service{
		l:     l,
		users: users,
	}
}

func (s *service) Get(ctx context.Context, id int64) (*user.User, error) {
	return s.users.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id int64, in Input) (*user.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrMissingName
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(in.Name)
	u.Phone = strings.TrimSpace(in.Phone)
	u.Company = strings.TrimSpace(in.Company)
	u.Address = strings.TrimSpace(in.Address)
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	level.Info(s.l).Log("msg", "profile updated", "user_id", id)
	return u, nil
}
