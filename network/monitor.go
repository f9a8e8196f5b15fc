// Package network tracks connectivity to the backend and tells interested parties
// when it goes away or comes back.
package network

import (
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Event is a connectivity transition reported by the platform or a probe
type Event int

const (
	// EventOffline means the network became unreachable
	EventOffline Event = iota
	// EventOnline means the network is reachable
	EventOnline
)

func (e Event) String() string {
	if e == EventOnline {
		return "online"
	}
	return "offline"
}

// Status is the observable connectivity state. WasOffline is latched: it is set by any
// offline transition and only cleared through ResetWasOffline.
type Status struct {
	IsOnline   bool `json:"isOnline"`
	WasOffline bool `json:"wasOffline"`
}

// Monitor folds online/offline events into a Status and fans them out to subscribers
type Monitor struct {
	l      log.Logger
	mu     sync.Mutex
	status Status
	nextID int
	subs   map[int]func(Event, Status)
}

// NewMonitor initializes a monitor with the given starting connectivity
func NewMonitor(l log.Logger, online bool) *Monitor {
	return &Monitor{
		l:      l,
		status: Status{IsOnline: online},
		subs:   make(map[int]func(Event, Status)),
	}
}

// Status returns a snapshot of the current state
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsOnline reports the current connectivity
func (m *Monitor) IsOnline() bool {
	return m.Status().IsOnline
}

// Handle applies a connectivity event and notifies subscribers
func (m *Monitor) Handle(e Event) {
	m.mu.Lock()
	prev := m.status
	switch e {
	case EventOffline:
		m.status = Status{IsOnline: false, WasOffline: true}
	case EventOnline:
		m.status = Status{IsOnline: true, WasOffline: prev.WasOffline || !prev.IsOnline}
	}
	status := m.status
	subs := make([]func(Event, Status), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if prev.IsOnline != status.IsOnline {
		level.Info(m.l).Log("msg", "connectivity changed", "event", e, "was_offline", status.WasOffline)
	}
	for _, fn := range subs {
		fn(e, status)
	}
}

// ResetWasOffline acknowledges a reconnect. It never touches IsOnline.
func (m *Monitor) ResetWasOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.WasOffline = false
}

// AcknowledgeAfter clears the latch once the reconnect notice has been shown for d.
// Stopping the returned timer cancels the acknowledgement.
func (m *Monitor) AcknowledgeAfter(d time.Duration) *time.Timer {
	return time.AfterFunc(d, m.ResetWasOffline)
}

// Subscribe registers fn for every future event until the subscription is closed
func (m *Monitor) Subscribe(fn func(Event, Status)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return &Subscription{m: m, id: id}
}

// Subscription is a registration on a Monitor
type Subscription struct {
	m    *Monitor
	id   int
	once sync.Once
}

// Close releases the registration, calling it more than once is a no-op
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.m.mu.Lock()
		defer s.m.mu.Unlock()
		delete(s.m.subs, s.id)
	})
}
