package providers

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

var (
	ErrMissingRecipient = errors.New("recipient is required")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
)

// Service is an interface for managing the outbound provider credentials
type Service interface {
	Config(ctx context.Context) (settings.Config, error)
	UpdateVonage(ctx context.Context, v settings.Vonage) (settings.Config, error)
	UpdateSMTP(ctx context.Context, m settings.SMTP) (settings.Config, error)
	TestVonage(ctx context.Context, phone string) (string, error)
	TestSMTP(ctx context.Context, email string) (string, error)
}

type service struct {
	l        log.Logger
	store    *settings.Store
	provider notification.Provider
}

// NewService initializes a new provider settings service
func NewService(l log.Logger, store *settings.Store, provider notification.Provider) *service {
	return &service{
		l:        l,
		store:    store,
		provider: provider,
	}
}

// Config returns the settings with secrets masked
func (s *service) Config(ctx context.Context) (settings.Config, error) {
	cfg, err := s.store.Current(ctx)
	if err != nil {
		return settings.Config{}, err
	}
	return cfg.Masked(), nil
}

func (s *service) UpdateVonage(ctx context.Context, v settings.Vonage) (settings.Config, error) {
	v.APIKey = strings.TrimSpace(v.APIKey)
	v.From = strings.TrimSpace(v.From)
	cfg, err := s.store.UpdateVonage(ctx, v)
	if err != nil {
		return settings.Config{}, err
	}
	return cfg.Masked(), nil
}

func (s *service) UpdateSMTP(ctx context.Context, m settings.SMTP) (settings.Config, error) {
	if m.Port < 0 || m.Port > 65535 {
		return settings.Config{}, ErrInvalidPort
	}
	m.Host = strings.TrimSpace(m.Host)
	m.FromEmail = strings.TrimSpace(m.FromEmail)
	cfg, err := s.store.UpdateSMTP(ctx, m)
	if err != nil {
		return settings.Config{}, err
	}
	return cfg.Masked(), nil
}

func (s *service) TestVonage(ctx context.Context, phone string) (string, error) {
	if notification.NormalizePhone(phone) == "" {
		return "", ErrMissingRecipient
	}
	r, err := s.provider.SMS(ctx)
	if err != nil {
		return "", err
	}
	id, err := r.Post(ctx, notification.Message{
		To:   phone,
		Body: "Mensaje de prueba del panel de servicios con drones. La configuración SMS funciona.",
	})
	if err != nil {
		return "", err
	}
	level.Info(s.l).Log("msg", "test sms sent", "id", id)
	return id, nil
}

func (s *service) TestSMTP(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", ErrMissingRecipient
	}
	r, err := s.provider.Email(ctx)
	if err != nil {
		return "", err
	}
	id, err := r.Post(ctx, notification.Message{
		To:      email,
		Subject: "Correo de prueba",
		Body:    "Este es un correo de prueba del panel de servicios con drones. La configuración SMTP funciona.",
	})
	if err != nil {
		return "", err
	}
	level.Info(s.l).Log("msg", "test email sent", "id", id)
	return id, nil
}
