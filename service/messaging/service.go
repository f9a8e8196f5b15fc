package messaging

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
)

var (
	ErrMissingRecipient = errors.New("recipient is required")
	ErrMissingMessage   = errors.New("message is required")
)

// Channel is the medium a notification travels on
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Service is an interface for sending client notifications through the configured providers
type Service interface {
	SendSMS(ctx context.Context, to string, text string) (string, error)
	ConfirmService(ctx context.Context, ch Channel, p dispatch.ConfirmationParams) (string, error)
	CompleteService(ctx context.Context, ch Channel, p dispatch.CompletionParams) (string, error)
}

type service struct {
	l         log.Logger
	provider  notification.Provider
	templates templates
}

// NewService initializes a new messaging service
func NewService(l log.Logger, provider notification.Provider) (*service, error) {
	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &service{
		l:         l,
		provider:  provider,
		templates: t,
	}, nil
}

func (s *service) SendSMS(ctx context.Context, to string, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrMissingMessage
	}
	return s.deliver(ctx, ChannelSMS, notification.Message{To: to, Body: text})
}

func (s *service) ConfirmService(ctx context.Context, ch Channel, p dispatch.ConfirmationParams) (string, error) {
	return s.send(ctx, ch, "confirm", recipient(ch, p.Phone, p.Email), p.Language, p)
}

func (s *service) CompleteService(ctx context.Context, ch Channel, p dispatch.CompletionParams) (string, error) {
	return s.send(ctx, ch, "complete", recipient(ch, p.Phone, p.Email), p.Language, p)
}

func recipient(ch Channel, phone string, email string) string {
	if ch == ChannelSMS {
		return phone
	}
	return email
}

func (s *service) send(ctx context.Context, ch Channel, event string, to string, lang string, data interface{}) (string, error) {
	var m notification.Message
	m.To = to
	body, err := s.templates.render(lang, string(ch)+"_"+event, data)
	if err != nil {
		return "", err
	}
	m.Body = body
	if ch == ChannelEmail {
		subject, err := s.templates.render(lang, "email_"+event+"_subject", data)
		if err != nil {
			return "", err
		}
		m.Subject = subject
	}
	return s.deliver(ctx, ch, m)
}

func (s *service) deliver(ctx context.Context, ch Channel, m notification.Message) (string, error) {
	if ch == ChannelSMS && notification.NormalizePhone(m.To) == "" {
		return "", ErrMissingRecipient
	}
	if ch == ChannelEmail && strings.TrimSpace(m.To) == "" {
		return "", ErrMissingRecipient
	}

	var (
		r   notification.Repository
		err error
	)
	if ch == ChannelSMS {
		r, err = s.provider.SMS(ctx)
	} else {
		r, err = s.provider.Email(ctx)
	}
	if err != nil {
		return "", err
	}

	id, err := r.Post(ctx, m)
	if err != nil {
		return "", errors.Wrapf(err, "sending %s via %s", ch, r.String())
	}
	level.Info(s.l).Log("msg", "notification sent", "channel", ch, "notification_service", r.String(), "id", id)
	return id, nil
}
