package chat

import (
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeSession records delivered events in order, standing in for one
// transport connection.
type fakeSession struct {
	mu     sync.Mutex
	events []Event
}

func (s *fakeSession) Deliver(ev Event) bool {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return true
}

func (s *fakeSession) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *fakeSession) types() []EventType {
	events := s.snapshot()
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Event
	}
	return out
}

func (s *fakeSession) count(t EventType) int {
	n := 0
	for _, ev := range s.snapshot() {
		if ev.Event == t {
			n++
		}
	}
	return n
}

func (s *fakeSession) clear() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// testTypingTimeout is short so expiry tests run quickly; tests that assert
// "no expiry yet" stay well inside it.
const testTypingTimeout = 100 * time.Millisecond

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(Options{
		Logger:        slog.New(slog.DiscardHandler),
		TypingTimeout: testTypingTimeout,
		RoomIdleTTL:   200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = h.Shutdown(2 * time.Second) })
	return h
}

// join is a shorthand that fails the test on error.
func join(t *testing.T, h *Hub, s *fakeSession, username, room string) string {
	t.Helper()
	id := h.Connect(s)
	if err := h.Join(id, username, room); err != nil {
		t.Fatalf("join %s to %s: %v", username, room, err)
	}
	return id
}
