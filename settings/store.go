package settings

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Store keeps the provider configuration in memory in front of the repository.
// It is loaded lazily and dropped with Reset.
type Store struct {
	l      log.Logger
	r      Repository
	mu     sync.Mutex
	cfg    Config
	loaded bool
}

// NewStore initializes a store on top of the given repository
func NewStore(l log.Logger, r Repository) *Store {
	return &Store{
		l: l,
		r: r,
	}
}

// Load reads the configuration from the repository, replacing what is in memory
func (s *Store) Load(ctx context.Context) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (Config, error) {
	var cfg Config
	if _, err := s.r.Get(ctx, keyVonage, &cfg.Vonage); err != nil {
		return Config{}, err
	}
	if _, err := s.r.Get(ctx, keySMTP, &cfg.SMTP); err != nil {
		return Config{}, err
	}
	s.cfg = cfg
	s.loaded = true
	return cfg, nil
}

// Current returns the configuration, loading it on first use
func (s *Store) Current(ctx context.Context) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx)
}

// Reset forgets the in-memory copy, the next read goes to the repository
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = Config{}
	s.loaded = false
}

// UpdateVonage saves SMS credentials. An empty secret keeps the stored one.
func (s *Store) UpdateVonage(ctx context.Context, v Vonage) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.current(ctx)
	if err != nil {
		return Config{}, err
	}
	if v.APISecret == "" || v.APISecret == mask {
		v.APISecret = cur.Vonage.APISecret
	}
	if err := s.r.Put(ctx, keyVonage, v); err != nil {
		return Config{}, errors.Wrap(err, "saving vonage settings")
	}
	s.cfg.Vonage = v
	level.Info(s.l).Log("msg", "vonage settings updated", "enabled", v.Enabled, "from", v.From)
	return s.cfg, nil
}

// UpdateSMTP saves mail relay credentials. An empty password keeps the stored one.
func (s *Store) UpdateSMTP(ctx context.Context, m SMTP) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.current(ctx)
	if err != nil {
		return Config{}, err
	}
	if m.Password == "" || m.Password == mask {
		m.Password = cur.SMTP.Password
	}
	if err := s.r.Put(ctx, keySMTP, m); err != nil {
		return Config{}, errors.Wrap(err, "saving smtp settings")
	}
	s.cfg.SMTP = m
	level.Info(s.l).Log("msg", "smtp settings updated", "enabled", m.Enabled, "host", m.Host)
	return s.cfg, nil
}

func (s *Store) current(ctx context.Context) (Config, error) {
	if s.loaded {
		return s.cfg, nil
	}
	return s.load(ctx)
}
