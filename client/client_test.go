package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/network"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

type backend struct {
	fail    atomic.Bool
	gotAuth atomic.Value
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.gotAuth.Store(r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")
	if b.fail.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database is locked"}`))
		return
	}
	switch r.URL.Path {
	case "/api/auth/login":
		w.Write([]byte(`{"token":"tok-1","user":{"id":1,"email":"ana@example.com","name":"Ana","role":"client"}}`))
	case "/api/auth/me":
		w.Write([]byte(`{"id":1,"email":"ana@example.com","name":"Ana","role":"client"}`))
	case "/api/service-requests":
		w.Write([]byte(`[{"id":7,"user_id":1,"service_type":"mapping","scheduled_date":"2026-06-01","location":"Olivar","status":"pending"}]`))
	case "/api/auth/logout":
		w.Write([]byte(`{"message":"Logged out"}`))
	case "/api/sms/confirm-service":
		w.Write([]byte(`{"success":true,"messageId":"sms-1"}`))
	case "/api/email/confirm-service":
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"success":false,"error":"Notification provider is not configured"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fixture struct {
	b     *backend
	srv   *httptest.Server
	store cache.Repository
	mon   *network.Monitor
	c     *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := log.NewNopLogger()
	b := &backend{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	store := cache.NewMemoryRepository(0)
	mon := network.NewMonitor(l, true)
	return &fixture{
		b:     b,
		srv:   srv,
		store: store,
		mon:   mon,
		c:     New(l, srv.Client(), srv.URL+"/api/", store, cache.New(l, store), mon),
	}
}

func TestTokenIsAttached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.c.Login(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if f.c.Token() != "tok-1" {
		t.Fatalf("Token() = %q", f.c.Token())
	}
	if _, err := f.c.Me(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.b.gotAuth.Load(); got != "Bearer tok-1" {
		t.Errorf("Authorization = %v", got)
	}
}

func TestCacheFallback(t *testing.T) {
	tests := []struct {
		name      string
		warm      bool
		online    bool
		down      bool
		wantErr   bool
		wantCode  int
		wantFound bool
	}{
		{name: "offline with cached copy", warm: true, online: false, down: true, wantFound: true},
		{name: "offline without cached copy", warm: false, online: false, down: true, wantErr: true, wantCode: 0},
		{name: "online server error ignores cache", warm: true, online: true, wantErr: true, wantCode: http.StatusInternalServerError},
		{name: "online network error ignores cache", warm: true, online: true, down: true, wantErr: true, wantCode: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if tt.warm {
				if _, err := f.c.ServiceRequests(ctx); err != nil {
					t.Fatal(err)
				}
			}
			if tt.down {
				f.srv.Close()
			} else {
				f.b.fail.Store(true)
			}
			if !tt.online {
				f.mon.Handle(network.EventOffline)
			}

			list, err := f.c.ServiceRequests(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ServiceRequests() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ce *Error
				if !errors.As(err, &ce) {
					t.Fatalf("error %T is not a *client.Error", err)
				}
				if ce.StatusCode != tt.wantCode {
					t.Errorf("StatusCode = %d, want %d", ce.StatusCode, tt.wantCode)
				}
				return
			}
			if tt.wantFound && (len(list) != 1 || list[0].ID != 7 || list[0].Status != servicerequest.StatusPending) {
				t.Errorf("cached list = %+v", list)
			}
		})
	}
}

func TestCachedAt(t *testing.T) {
	f := newFixture(t)
	if _, ok := f.c.CachedAt(KeyUser); ok {
		t.Fatal("CachedAt() reports an entry before any request")
	}
	if _, err := f.c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.c.CachedAt(KeyUser); !ok {
		t.Error("CachedAt() has no entry after a successful read")
	}
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "error field", status: http.StatusBadRequest, body: `{"error":"Invalid request body"}`, wantMessage: "Invalid request body"},
		{name: "message field", status: http.StatusForbidden, body: `{"message":"Forbidden"}`, wantMessage: "Forbidden"},
		{name: "no body", status: http.StatusBadGateway, body: ``, wantMessage: "Request failed with status 502"},
		{name: "html body", status: http.StatusInternalServerError, body: `<html>oops</html>`, wantMessage: "Request failed with status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			l := log.NewNopLogger()
			store := cache.NewMemoryRepository(0)
			c := New(l, srv.Client(), srv.URL, store, cache.New(l, store), network.NewMonitor(l, true))

			err := c.Do(context.Background(), http.MethodGet, "/anything", nil, nil)
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("Do() error = %v", err)
			}
			if ce.StatusCode != tt.status || ce.Message != tt.wantMessage {
				t.Errorf("Error = %+v", ce)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	f := newFixture(t)
	f.srv.Close()
	err := f.c.Health(context.Background())
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("Health() error = %v", err)
	}
	if ce.StatusCode != 0 || ce.Message != NetworkErrorMessage || ce.Unwrap() == nil {
		t.Errorf("Error = %+v", ce)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.Set("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.Login(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.c.ServiceRequests(ctx); err != nil {
		t.Fatal(err)
	}

	f.c.Logout(ctx)

	if f.c.Token() != "" {
		t.Error("token survived logout")
	}
	f.mon.Handle(network.EventOffline)
	f.srv.Close()
	if _, err := f.c.ServiceRequests(ctx); err == nil {
		t.Error("cached requests survived logout")
	}
	if v, ok, _ := f.store.Get("theme"); !ok || v != "dark" {
		t.Error("logout removed a key outside the cache namespace")
	}
}

func TestDispatchThroughClient(t *testing.T) {
	f := newFixture(t)
	o := dispatch.NewService(log.NewNopLogger(), f.c).SendConfirmation(context.Background(), dispatch.ConfirmationParams{
		Phone: "600000000", Email: "ana@example.com", ClientName: "Ana", ServiceName: "mapping",
	})
	if !o.SMS.Success || o.SMS.MessageID != "sms-1" {
		t.Errorf("sms = %+v", o.SMS)
	}
	if o.Email.Success || o.Email.Error != "Notification provider is not configured (status 503)" {
		t.Errorf("email = %+v", o.Email)
	}
	if !o.Success() {
		t.Error("Success() = false with one channel delivered")
	}
}

func TestMeDecodes(t *testing.T) {
	f := newFixture(t)
	u, err := f.c.Me(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := user.User{ID: 1, Email: "ana@example.com", Name: "Ana", Role: user.RoleClient}
	got, _ := json.Marshal(u)
	exp, _ := json.Marshal(want)
	if string(got) != string(exp) {
		t.Errorf("Me() = %s, want %s", got, exp)
	}
}
