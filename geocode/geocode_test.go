package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
)

func newNominatim(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/search" || r.URL.Query().Get("format") != "json" || r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("q") {
		case "Sevilla", "sevilla":
			w.Write([]byte(`[{"lat":"37.3886","lon":"-5.9823","display_name":"Sevilla, Andalucía, España"}]`))
		case "Córdoba":
			w.Write([]byte(`[{"lat":"37.8845","lon":"-4.7796","display_name":"Córdoba, Andalucía, España"}]`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	var hits int32
	srv := newNominatim(t, &hits)
	g := New(log.NewNopLogger(), srv.Client(), srv.URL, "drone-panel-test", cache.NewMemoryRepository(0), WithInterval(0))

	tests := []struct {
		name    string
		address string
		wantLat float64
		wantErr error
	}{
		{name: "found", address: "Sevilla", wantLat: 37.3886},
		{name: "unknown", address: "Atlantis", wantErr: ErrNotFound},
		{name: "blank", address: "   ", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := g.Lookup(context.Background(), tt.address)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if p.Lat != tt.wantLat {
				t.Errorf("Lookup() lat = %v, want %v", p.Lat, tt.wantLat)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	var hits int32
	srv := newNominatim(t, &hits)
	repo := cache.NewMemoryRepository(0)
	g := New(log.NewNopLogger(), srv.Client(), srv.URL, "drone-panel-test", repo, WithInterval(0))

	points := g.Batch(context.Background(), []string{"Sevilla", " sevilla ", "Córdoba", "broken", "Atlantis", ""})
	if len(points) != 3 {
		t.Fatalf("Batch() = %v, want both spellings of Sevilla and Córdoba", points)
	}
	if points[" sevilla "] != points["Sevilla"] {
		t.Errorf("duplicate spellings resolved differently: %+v", points)
	}
	if points["Córdoba"].Lon != -4.7796 {
		t.Errorf("Córdoba = %+v", points["Córdoba"])
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Errorf("nominatim hit %d times, want 4", n)
	}

	// a second geocoder on the same storage is served from the cache
	again := New(log.NewNopLogger(), srv.Client(), srv.URL, "drone-panel-test", repo, WithInterval(0))
	if _, err := again.Lookup(context.Background(), "SEVILLA"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Errorf("cached lookup hit nominatim, %d hits", n)
	}
}

func TestThrottle(t *testing.T) {
	var hits int32
	srv := newNominatim(t, &hits)
	g := New(log.NewNopLogger(), srv.Client(), srv.URL, "drone-panel-test", cache.NewMemoryRepository(0), WithInterval(50*time.Millisecond))

	start := time.Now()
	g.Batch(context.Background(), []string{"Sevilla", "Córdoba", "Atlantis"})
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three lookups took %v, want at least two intervals", elapsed)
	}
}

func TestThrottleCancelled(t *testing.T) {
	var hits int32
	srv := newNominatim(t, &hits)
	g := New(log.NewNopLogger(), srv.Client(), srv.URL, "drone-panel-test", cache.NewMemoryRepository(0), WithInterval(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	points := g.Batch(ctx, []string{"Sevilla", "Córdoba"})
	if len(points) != 1 {
		t.Errorf("Batch() = %v, want only the first address", points)
	}
}
