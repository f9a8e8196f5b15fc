package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

func newTestService(t *testing.T, vonage *httptest.Server) *service {
	t.Helper()
	l := log.NewNopLogger()
	db, err := database.Open(l, ":memory:", migrations.API)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := settings.NewStore(l, settings.NewRepository(l, db))
	return NewService(l, store, notification.NewSettingsProvider(l, vonage.Client(), vonage.URL, store))
}

func newVonageServer(t *testing.T, gotSecret *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		*gotSecret = r.PostForm.Get("api_secret")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message-count":"1","messages":[{"to":"34600000000","message-id":"abc-123","status":"0"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfigIsMasked(t *testing.T) {
	var secret string
	s := newTestService(t, newVonageServer(t, &secret))
	ctx := context.Background()

	cfg, err := s.UpdateVonage(ctx, settings.Vonage{APIKey: " key ", APISecret: "s3cret", From: "Drones", Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vonage.APISecret == "s3cret" {
		t.Error("UpdateVonage() leaked the secret")
	}
	if cfg.Vonage.APIKey != "key" {
		t.Errorf("api key = %q, want trimmed", cfg.Vonage.APIKey)
	}
	got, err := s.Config(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Vonage.APISecret == "s3cret" {
		t.Error("Config() leaked the secret")
	}
}

func TestTestVonage(t *testing.T) {
	var secret string
	s := newTestService(t, newVonageServer(t, &secret))
	ctx := context.Background()

	if _, err := s.TestVonage(ctx, "+34600000000"); !errors.Is(err, notification.ErrNotConfigured) {
		t.Fatalf("TestVonage() before configuring error = %v", err)
	}
	if _, err := s.UpdateVonage(ctx, settings.Vonage{APIKey: "key", APISecret: "s3cret", From: "Drones", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	// the panel sends the masked secret back when only other fields change
	masked, _ := s.Config(ctx)
	if _, err := s.UpdateVonage(ctx, masked.Vonage); err != nil {
		t.Fatal(err)
	}

	id, err := s.TestVonage(ctx, "+34600000000")
	if err != nil {
		t.Fatalf("TestVonage() error = %v", err)
	}
	if id != "abc-123" || secret != "s3cret" {
		t.Errorf("id = %q, secret sent = %q", id, secret)
	}
	if _, err := s.TestVonage(ctx, "  "); !errors.Is(err, ErrMissingRecipient) {
		t.Errorf("TestVonage() without phone error = %v", err)
	}
}

func TestHandler(t *testing.T) {
	var secret string
	s := newTestService(t, newVonageServer(t, &secret))
	srv := httptest.NewServer(NewHandler(log.NewNopLogger(), s))
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{name: "bad port", method: http.MethodPut, path: "/smtp", body: settings.SMTP{Host: "smtp.example.com", Port: 70000}, wantStatus: http.StatusBadRequest},
		{name: "save smtp", method: http.MethodPut, path: "/smtp", body: settings.SMTP{Host: "smtp.example.com", Port: 587, Password: "pw"}, wantStatus: http.StatusOK},
		{name: "test unconfigured smtp", method: http.MethodPost, path: "/test-smtp", body: map[string]string{"email": "ana@example.com"}, wantStatus: http.StatusBadRequest},
		{name: "save vonage", method: http.MethodPut, path: "/vonage", body: settings.Vonage{APIKey: "key", APISecret: "s3cret", From: "Drones", Enabled: true}, wantStatus: http.StatusOK},
		{name: "test vonage", method: http.MethodPost, path: "/test-vonage", body: map[string]string{"phone": "600000000"}, wantStatus: http.StatusOK},
		{name: "read config", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := json.Marshal(tt.body)
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, bytes.NewReader(b))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.wantStatus)
			}
			if tt.path == "/test-vonage" {
				var res dispatch.Result
				json.NewDecoder(resp.Body).Decode(&res)
				if !res.Success || res.MessageID != "abc-123" {
					t.Errorf("test-vonage result = %+v", res)
				}
			}
		})
	}
}
