package notification

import (
	"context"
	"net/http"

	"github.com/go-kit/log"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

type settingsProvider struct {
	l        log.Logger
	c        *http.Client
	endpoint string
	st       *settings.Store
}

// NewSettingsProvider builds notifiers from the credentials currently saved in the panel,
// so updates take effect on the next message without a restart
func NewSettingsProvider(l log.Logger, c *http.Client, vonageEndpoint string, st *settings.Store) *settingsProvider {
	return &settingsProvider{
		l:        l,
		c:        c,
		endpoint: vonageEndpoint,
		st:       st,
	}
}

func (p *settingsProvider) SMS(ctx context.Context) (Repository, error) {
	cfg, err := p.st.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Vonage.Configured() {
		return nil, ErrNotConfigured
	}
	return NewVonageRepository(p.l, p.c, p.endpoint, cfg.Vonage), nil
}

func (p *settingsProvider) Email(ctx context.Context) (Repository, error) {
	cfg, err := p.st.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.SMTP.Configured() {
		return nil, ErrNotConfigured
	}
	return NewSMTPRepository(p.l, cfg.SMTP), nil
}

type staticProvider struct {
	sms   Repository
	email Repository
}

// NewStaticProvider always hands out the given notifiers, used for local development with mocks
func NewStaticProvider(sms Repository, email Repository) *staticProvider {
	return &staticProvider{
		sms:   sms,
		email: email,
	}
}

func (p *staticProvider) SMS(ctx context.Context) (Repository, error) {
	if p.sms == nil {
		return nil, ErrNotConfigured
	}
	return p.sms, nil
}

func (p *staticProvider) Email(ctx context.Context) (Repository, error) {
	if p.email == nil {
		return nil, ErrNotConfigured
	}
	return p.email, nil
}
