package notification

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

var configuredSMTP = settings.SMTP{
	Host:      "smtp.example.com",
	Port:      587,
	Username:  "panel",
	Password:  "secret",
	FromEmail: "avisos@example.com",
	FromName:  "Drones Agrícolas",
	Enabled:   true,
}

func TestSMTPRepositoryPost(t *testing.T) {
	s := NewSMTPRepository(log.NewNopLogger(), configuredSMTP)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	s.send = func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		if a == nil {
			t.Error("expected plain auth when a username is configured")
		}
		return nil
	}

	id, err := s.Post(context.Background(), Message{
		To:      "Ana López <ana@example.com>",
		Subject: "Confirmación de servicio",
		Body:    "Hola Ana,\nsu servicio está confirmado.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@smtp.example.com>") {
		t.Errorf("unexpected message id %q", id)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "avisos@example.com" {
		t.Errorf("got addr %q from %q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ana@example.com" {
		t.Errorf("got recipients %v", gotTo)
	}
	for _, want := range []string{
		"Message-ID: " + id + "\r\n",
		"Subject: =?utf-8?q?Confirmaci=C3=B3n_de_servicio?=\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"Hola Ana,\r\nsu servicio está confirmado.",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message is missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestSMTPRepositoryErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  settings.SMTP
		to   string
		send error
	}{
		{"disabled", settings.SMTP{Host: "smtp.example.com", Port: 25, FromEmail: "a@example.com"}, "b@example.com", nil},
		{"bad recipient", configuredSMTP, "not an address", nil},
		{"relay failure", configuredSMTP, "b@example.com", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSMTPRepository(log.NewNopLogger(), tt.cfg)
			s.send = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
				return tt.send
			}
			if _, err := s.Post(context.Background(), Message{To: tt.to, Subject: "x", Body: "y"}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
