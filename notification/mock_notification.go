package notification

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

type mockRepository struct {
	l    log.Logger
	name string
	mu   sync.Mutex
	sent []Message
}

// NewMockRepository initializes a new mock notifier repository to test notifications locally
func NewMockRepository(l log.Logger, serviceName string) *mockRepository {
	return &mockRepository{
		l:    l,
		name: serviceName,
	}
}

func (s *mockRepository) String() string {
	return s.name
}

func (s *mockRepository) Post(ctx context.Context, m Message) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, m)
	s.mu.Unlock()
	id := "mock-" + uuid.NewString()
	level.Info(s.l).Log("msg", "mocked notification successfully sent", "notification_service", s.String(), "to", m.To, "id", id)
	return id, nil
}

// Sent returns the messages posted so far
func (s *mockRepository) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
