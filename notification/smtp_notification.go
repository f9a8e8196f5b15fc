package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpRepository struct {
	l    log.Logger
	cfg  settings.SMTP
	send sendFunc
	now  func() time.Time
}

// NewSMTPRepository initializes a new SMTP email notifier repository
func NewSMTPRepository(l log.Logger, cfg settings.SMTP) *smtpRepository {
	s := &smtpRepository{
		l:   l,
		cfg: cfg,
		now: time.Now,
	}
	s.send = sendSTARTTLS
	if cfg.Secure {
		s.send = sendImplicitTLS
	}
	return s
}

func (s *smtpRepository) String() string {
	return "smtp"
}

func (s *smtpRepository) Post(ctx context.Context, m Message) (string, error) {
	if !s.cfg.Configured() {
		return "", ErrNotConfigured
	}
	to, err := mail.ParseAddress(m.To)
	if err != nil {
		return "", errors.Wrap(err, "invalid recipient")
	}

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)
	msg := s.compose(id, to, m)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(ctx, s.cfg.Addr(), auth, s.cfg.FromEmail, []string{to.Address}, msg); err != nil {
		return "", errors.Wrap(err, "sending email")
	}
	level.Info(s.l).Log("msg", "email successfully sent", "id", id, "to", to.Address)
	return id, nil
}

func (s *smtpRepository) compose(id string, to *mail.Address, m Message) []byte {
	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromEmail}
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", id)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.Write(bytes.ReplaceAll([]byte(m.Body), []byte("\n"), []byte("\r\n")))
	b.WriteString("\r\n")
	return b.Bytes()
}

// sendSTARTTLS upgrades the connection when the relay offers it
func sendSTARTTLS(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(addr, a, from, to, msg)
}

// sendImplicitTLS talks to relays that expect TLS from the first byte, usually on port 465
func sendImplicitTLS(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	d := tls.Dialer{Config: &tls.Config{ServerName: host}}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "dialing smtp relay")
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "starting smtp session")
	}
	defer c.Close()

	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return errors.Wrap(err, "authenticating")
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
