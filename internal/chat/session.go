package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ledger-chat/internal/history"
	"ledger-chat/internal/llm"
)

var ErrSessionNotFound = errors.New("session not found")

// Session owns one conversation. mu serializes turns so a user turn and its
// reply are never interleaved with another request of the same session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	store    *history.Store
	lastSeen atomic.Int64 // unix nanos
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// History returns a copy of the session's turns, instruction turn first.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.History()
}

// Manager owns the lifecycle of sessions: create, look up, tear down.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	instruction string
	now         func() time.Time
}

func NewManager(instruction string) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		instruction: instruction,
		now:         time.Now,
	}
}

func (m *Manager) Instruction() string { return m.instruction }

// Create starts a session seeded with the instruction turn.
func (m *Manager) Create() *Session {
	return m.CreateWithID(uuid.NewString())
}

// CreateWithID starts a session under a caller-chosen id, replacing any
// session already stored under it.
func (m *Manager) CreateWithID(id string) *Session {
	now := m.now()
	s := &Session{
		ID:        id,
		CreatedAt: now.UTC(),
		store:     history.New(m.instruction),
	}
	s.touch(now)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// GetOrCreate returns the session under id, creating it when missing.
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if s, err := m.Get(id); err == nil {
			return s
		}
		return m.CreateWithID(id)
	}
	return m.Create()
}

// Teardown forgets the session.
func (m *Manager) Teardown(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep forgets sessions not looked up for longer than idle and returns how
// many were dropped.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle).UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, s := range m.sessions {
		if s.lastSeen.Load() < cutoff {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}

// RunJanitor sweeps idle sessions until ctx is done. A non-positive idle
// keeps sessions forever.
func (m *Manager) RunJanitor(ctx context.Context, idle time.Duration) {
	runEvery(ctx, idle, func() {
		if n := m.Sweep(idle); n > 0 {
			log.Printf("🧹 dropped %d idle sessions", n)
		}
	})
}

// runEvery calls fn every half of idle until ctx is done.
func runEvery(ctx context.Context, idle time.Duration, fn func()) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
