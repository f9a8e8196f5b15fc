package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

// MinPasswordLength is the shortest password accepted anywhere in the panel
const MinPasswordLength = 6

// ResetTokenTTL is how long a password reset link stays valid
const ResetTokenTTL = time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrMissingName        = errors.New("name is required")
	ErrInvalidResetToken  = errors.New("reset link is invalid or has expired")
)

// Service is an interface for the account and session service
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email string, password string) (*Session, error)
	Me(ctx context.Context, id int64) (*user.User, error)
	ChangePassword(ctx context.Context, id int64, current string, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, password string) error
	SendReset(ctx context.Context, id int64) error
}

// RegisterInput is what a client fills in to create an account
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Address  string `json:"address"`
}

// Session is returned on login and registration
type Session struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type service struct {
	l        log.Logger
	users    user.Repository
	tokens   *Tokens
	mailer   notification.Provider
	resetURL string
	cost     int
	now      func() time.Time
}

// NewService initializes a new auth service. resetURL is the panel page that receives the reset token.
func NewService(l log.Logger, users user.Repository, tokens *Tokens, mailer notification.Provider, resetURL string) *service {
	return &service{
		l:        l,
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		resetURL: resetURL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// HashPassword validates and hashes a password
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(h), nil
}

// ValidEmail reports whether email is a bare address
func ValidEmail(email string) bool {
	a, err := mail.ParseAddress(email)
	return err == nil && a.Address == strings.TrimSpace(email)
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrMissingName
	}
	if !ValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	hash, err := HashPassword(in.Password, s.cost)
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
		Role:         user.RoleClient,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	level.Info(s.l).Log("msg", "client registered", "user_id", u.ID)
	return s.session(u)
}

func (s *service) Login(ctx context.Context, email string, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		level.Info(s.l).Log("msg", "failed login", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *service) session(u *user.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func (s *service) Me(ctx context.Context, id int64) (*user.User, error) {
	return s.users.Get(ctx, id)
}

func (s *service) ChangePassword(ctx context.Context, id int64, current string, next string) error {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next, s.cost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

// ForgotPassword never tells the caller whether the email exists
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			level.Info(s.l).Log("msg", "password reset requested for unknown email")
			return nil
		}
		return err
	}
	if err := s.sendReset(ctx, u); err != nil {
		level.Error(s.l).Log("msg", "error sending password reset", "user_id", u.ID, "err", err)
	}
	return nil
}

func (s *service) SendReset(ctx context.Context, id int64) error {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.sendReset(ctx, u)
}

func (s *service) sendReset(ctx context.Context, u *user.User) error {
	token := uuid.NewString()
	if err := s.users.SetResetToken(ctx, u.ID, token, s.now().Add(ResetTokenTTL)); err != nil {
		return err
	}
	mailer, err := s.mailer.Email(ctx)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s?token=%s", s.resetURL, token)
	_, err = mailer.Post(ctx, notification.Message{
		To:      u.Email,
		Subject: "Restablecer contraseña",
		Body: fmt.Sprintf("Hola %s,\n\nPara restablecer su contraseña abra el siguiente enlace:\n%s\n\nEl enlace caduca en una hora. Si no lo ha solicitado, ignore este mensaje.\n",
			u.Name, link),
	})
	if err != nil {
		return err
	}
	level.Info(s.l).Log("msg", "password reset sent", "user_id", u.ID)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token string, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	u, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !u.ResetExpiresAt.Valid || s.now().After(u.ResetExpiresAt.Time) {
		return ErrInvalidResetToken
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	level.Info(s.l).Log("msg", "password reset completed", "user_id", u.ID)
	return nil
}
