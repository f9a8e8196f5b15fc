package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
)

var transitionTests = []struct {
	name   string
	start  bool
	events []Event
	want   Status
}{
	{"starts online", true, nil, Status{IsOnline: true}},
	{"starts offline without latch", false, nil, Status{IsOnline: false}},
	{"goes offline", true, []Event{EventOffline}, Status{IsOnline: false, WasOffline: true}},
	{"offline then online keeps latch", true, []Event{EventOffline, EventOnline}, Status{IsOnline: true, WasOffline: true}},
	{"online from initial offline latches", false, []Event{EventOnline}, Status{IsOnline: true, WasOffline: true}},
	{"repeated online without outage", true, []Event{EventOnline, EventOnline}, Status{IsOnline: true}},
	{"flapping", true, []Event{EventOffline, EventOnline, EventOffline, EventOnline}, Status{IsOnline: true, WasOffline: true}},
}

func TestMonitorTransitions(t *testing.T) {
	for _, tt := range transitionTests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(log.NewNopLogger(), tt.start)
			for _, e := range tt.events {
				m.Handle(e)
			}
			if got := m.Status(); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResetWasOffline(t *testing.T) {
	m := NewMonitor(log.NewNopLogger(), true)
	m.Handle(EventOffline)

	m.ResetWasOffline()
	if got := m.Status(); got != (Status{IsOnline: false, WasOffline: false}) {
		t.Errorf("reset while offline: got %+v", got)
	}

	m.Handle(EventOffline)
	m.Handle(EventOnline)
	if !m.Status().WasOffline {
		t.Fatal("latch should survive the online event")
	}
	m.ResetWasOffline()
	if got := m.Status(); got != (Status{IsOnline: true}) {
		t.Errorf("reset after reconnect: got %+v", got)
	}
}

func TestAcknowledgeAfter(t *testing.T) {
	m := NewMonitor(log.NewNopLogger(), true)
	m.Handle(EventOffline)
	m.Handle(EventOnline)

	done := make(chan struct{})
	m.AcknowledgeAfter(10 * time.Millisecond)
	go func() {
		for m.Status().WasOffline {
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("latch was not cleared by the acknowledgement")
	}
}

func TestSubscribe(t *testing.T) {
	m := NewMonitor(log.NewNopLogger(), true)

	var got []Event
	sub := m.Subscribe(func(e Event, s Status) {
		got = append(got, e)
		if e == EventOnline && !s.WasOffline {
			t.Error("subscriber should see the latched flag on reconnect")
		}
	})

	m.Handle(EventOffline)
	m.Handle(EventOnline)
	sub.Close()
	sub.Close()
	m.Handle(EventOffline)

	if len(got) != 2 || got[0] != EventOffline || got[1] != EventOnline {
		t.Errorf("got events %v, want [offline online]", got)
	}
}

func TestProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	m := NewMonitor(log.NewNopLogger(), false)
	p := NewProber(log.NewNopLogger(), srv.Client(), srv.URL+"/api/", m)

	if !p.Probe(context.Background()) {
		t.Fatal("a server answering with 503 is still reachable")
	}
	if got := m.Status(); got != (Status{IsOnline: true, WasOffline: true}) {
		t.Errorf("got %+v after first successful probe", got)
	}

	srv.Close()
	if p.Probe(context.Background()) {
		t.Fatal("probe against a closed server should fail")
	}
	if m.IsOnline() {
		t.Error("monitor should be offline after a failed probe")
	}
}
