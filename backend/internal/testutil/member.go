package testutil

import (
	"sync"

	"github.com/BioHazard786/Warpcall/backend/internal/signaling"
)

// MockMember implements signaling.Member for testing.
type MockMember struct {
	Name string

	mu       sync.Mutex
	messages []*signaling.Message
	full     bool
}

// NewMockMember creates a new MockMember with the given id.
func NewMockMember(name string) *MockMember {
	return &MockMember{Name: name}
}

// ID returns the mock member's name.
func (m *MockMember) ID() string { return m.Name }

// Send records msg unless the member has been marked full.
func (m *MockMember) Send(msg *signaling.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return false
	}
	cp := *msg
	m.messages = append(m.messages, &cp)
	return true
}

// SetFull makes every later Send report a drop.
func (m *MockMember) SetFull(full bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.full = full
}

// Messages returns a copy of all messages received so far.
func (m *MockMember) Messages() []*signaling.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*signaling.Message, len(m.messages))
	copy(cp, m.messages)
	return cp
}

// OfType returns the received messages with the given type.
func (m *MockMember) OfType(t string) []*signaling.Message {
	var out []*signaling.Message
	for _, msg := range m.Messages() {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

// MemoryJournal implements signaling.Journal in memory.
type MemoryJournal struct {
	mu     sync.Mutex
	events []signaling.Event
}

// Record appends ev.
func (j *MemoryJournal) Record(ev signaling.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

// Kinds returns the recorded event kinds in order.
func (j *MemoryJournal) Kinds() []signaling.EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	kinds := make([]signaling.EventKind, len(j.events))
	for i, ev := range j.events {
		kinds[i] = ev.Kind
	}
	return kinds
}
