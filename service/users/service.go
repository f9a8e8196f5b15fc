package users

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

var (
	// ErrSelfDelete is returned when an administrator tries to remove their own account
	ErrSelfDelete  = errors.New("you cannot delete your own account")
	// ErrInvalidRole is returned for roles other than client and admin
	ErrInvalidRole = errors.New("unknown role")
)

// ResetSender sends a password reset link to an existing account
type ResetSender interface {
	SendReset(ctx context.Context, id int64) error
}

// Service is an interface for the account administration service
type Service interface {
	List(ctx context.Context) ([]user.User, error)
	Create(ctx context.Context, in Input) (*user.User, error)
	Delete(ctx context.Context, actorID int64, id int64) error
	SetPassword(ctx context.Context, id int64, password string) error
	SendReset(ctx context.Context, id int64) error
	EnsureAdmin(ctx context.Context, email string, password string) (*user.User, error)
}

// Input is an account created by an administrator
type Input struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Phone    string    `json:"phone"`
	Company  string    `json:"company"`
	Address  string    `json:"address"`
	Role     user.Role `json:"role"`
}

type service struct {
	l      log.Logger
	users  user.Repository
	resets ResetSender
	cost   int
}

// NewService initializes a new account administration service
func NewService(l log.Logger, users user.Repository, resets ResetSender) *service {
	return &service{
		l:      l,
		users:  users,
		resets: resets,
		cost:   bcrypt.DefaultCost,
	}
}

func (s *service) List(ctx context.Context) ([]user.User, error) {
	return s.users.List(ctx)
}

func (s *service) Create(ctx context.Context, in Input) (*user.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, auth.ErrMissingName
	}
	if !auth.ValidEmail(in.Email) {
		return nil, auth.ErrInvalidEmail
	}
	switch in.Role {
	case "":
		in.Role = user.RoleClient
	case user.RoleClient, user.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}
	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Company:      strings.TrimSpace(in.Company),
		Address:      strings.TrimSpace(in.Address),
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	level.Info(s.l).Log("msg", "account created by admin", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Delete removes an account together with its service requests
func (s *service) Delete(ctx context.Context, actorID int64, id int64) error {
	if actorID == id {
		return ErrSelfDelete
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	level.Info(s.l).Log("msg", "account deleted", "user_id", id, "by", actorID)
	return nil
}

func (s *service) SetPassword(ctx context.Context, id int64, password string) error {
	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	level.Info(s.l).Log("msg", "password set by admin", "user_id", id)
	return nil
}

func (s *service) SendReset(ctx context.Context, id int64) error {
	return s.resets.SendReset(ctx, id)
}

// EnsureAdmin creates the bootstrap administrator unless the email is already registered
func (s *service) EnsureAdmin(ctx context.Context, email string, password string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !u.IsAdmin() {
			level.Warn(s.l).Log("msg", "bootstrap admin email belongs to a client account", "user_id", u.ID)
		}
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}
	return s.Create(ctx, Input{Name: "Administrator", Email: email, Password: password, Role: user.RoleAdmin})
}
