// Package geocode resolves service locations to coordinates for the map view using
// Nominatim, with results kept in the persistent cache.
package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
)

const (
	// DefaultEndpoint is the public Nominatim instance
	DefaultEndpoint = "https://nominatim.openstreetmap.org"
	// DefaultInterval keeps within the public instance's one request per second policy
	DefaultInterval = time.Second
	CachePrefix     = "geo_"
	CacheTTL        = 30 * 24 * time.Hour
)

// ErrNotFound is returned when Nominatim knows no place for the address
var ErrNotFound = errors.New("address not found")

// Point is a resolved location
type Point struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name,omitempty"`
}

// Geocoder looks up addresses one at a time, never faster than its interval
type Geocoder struct {
	l         log.Logger
	c         *http.Client
	endpoint  string
	userAgent string
	cache     *cache.Cache
	interval  time.Duration

	mu   sync.Mutex
	last time.Time
}

// Option configures a Geocoder
type Option func(*Geocoder)

// WithInterval sets the minimum gap between two uncached lookups
func WithInterval(d time.Duration) Option {
	return func(g *Geocoder) {
		g.interval = d
	}
}

// New initializes a geocoder. Nominatim requires an identifying userAgent.
func New(l log.Logger, c *http.Client, endpoint string, userAgent string, r cache.Repository, opts ...Option) *Geocoder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	g := &Geocoder{
		l:         l,
		c:         c,
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: userAgent,
		cache:     NewCache(l, r),
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewCache returns the geocoding namespace of r, the field agent prunes it on a schedule
func NewCache(l log.Logger, r cache.Repository) *cache.Cache {
	return cache.New(l, r, cache.WithPrefix(CachePrefix), cache.WithTTL(CacheTTL))
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Lookup resolves one address
func (g *Geocoder) Lookup(ctx context.Context, address string) (Point, error) {
	key := cacheKey(address)
	if key == "" {
		return Point{}, ErrNotFound
	}
	var p Point
	if g.cache.Get(key, &p) {
		return p, nil
	}
	if err := g.wait(ctx); err != nil {
		return Point{}, err
	}
	p, err := g.search(ctx, address)
	if err != nil {
		return Point{}, err
	}
	g.cache.Set(key, p)
	return p, nil
}

// Batch resolves many addresses. Duplicates are looked up once, addresses that fail are left out.
func (g *Geocoder) Batch(ctx context.Context, addresses []string) map[string]Point {
	points := make(map[string]Point, len(addresses))
	resolved := make(map[string]Point, len(addresses))
	failed := make(map[string]bool)
	for _, a := range addresses {
		key := cacheKey(a)
		if key == "" || failed[key] {
			continue
		}
		if p, ok := resolved[key]; ok {
			points[a] = p
			continue
		}
		p, err := g.Lookup(ctx, a)
		if err != nil {
			if ctx.Err() != nil {
				level.Info(g.l).Log("msg", "geocoding batch cancelled", "resolved", len(resolved))
				return points
			}
			level.Warn(g.l).Log("msg", "skipping address", "address", a, "err", err)
			failed[key] = true
			continue
		}
		resolved[key] = p
		points[a] = p
	}
	return points
}

// wait blocks until the next lookup is allowed
func (g *Geocoder) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.interval > 0 && !g.last.IsZero() {
		if d := g.interval - time.Since(g.last); d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	g.last = time.Now()
	return nil
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *Geocoder) search(ctx context.Context, address string) (Point, error) {
	q := url.Values{
		"format": {"json"},
		"limit":  {"1"},
		"q":      {address},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return Point{}, errors.Wrap(err, "building geocoding request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.c.Do(req)
	if err != nil {
		return Point{}, errors.Wrap(err, "geocoding request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Point{}, errors.Errorf("unexpected status code from nominatim: %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Point{}, errors.Wrap(err, "decoding geocoding response")
	}
	if len(places) == 0 {
		return Point{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Point{}, errors.Wrap(err, "parsing latitude")
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Point{}, errors.Wrap(err, "parsing longitude")
	}
	level.Debug(g.l).Log("msg", "address geocoded", "address", address, "lat", lat, "lon", lon)
	return Point{Lat: lat, Lon: lon, DisplayName: places[0].DisplayName}, nil
}
