package network

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DefaultProbeTimeout bounds a single health check
const DefaultProbeTimeout = 5 * time.Second

// Prober checks whether the backend is reachable and feeds the result into a Monitor
type Prober struct {
	l       log.Logger
	c       *http.Client
	url     string
	m       *Monitor
	timeout time.Duration
}

// NewProber initializes a prober that requests <baseURL>/health
func NewProber(l log.Logger, c *http.Client, baseURL string, m *Monitor) *Prober {
	return &Prober{
		l:       l,
		c:       c,
		url:     strings.TrimRight(baseURL, "/") + "/health",
		m:       m,
		timeout: DefaultProbeTimeout,
	}
}

// Probe performs one check. Any HTTP response means the network is there, only a
// transport failure counts as offline.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		level.Error(p.l).Log("msg", "error building probe request", "err", err)
		return p.m.IsOnline()
	}
	resp, err := p.c.Do(req)
	if err != nil {
		level.Debug(p.l).Log("msg", "probe failed", "url", p.url, "err", err)
		p.m.Handle(EventOffline)
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	level.Debug(p.l).Log("msg", "probe succeeded", "url", p.url, "status_code", resp.StatusCode)
	p.m.Handle(EventOnline)
	return true
}
