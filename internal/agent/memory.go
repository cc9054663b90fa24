// ABOUTME: Thread-safe session memory store with time-based eviction
// ABOUTME: One append-only conversation history per session, swept on idle timeout

package agent

import (
	"log/slog"
	"sync"
	"time"
)

// Turn is one recorded message in a conversation history.
type Turn struct {
	Role    string
	Content string
}

// Memory is the append-only conversation history of a single session.
// The store owns it; agents hold a handle to read and append only.
type Memory struct {
	mu          sync.Mutex
	turns       []Turn
	lastTouched time.Time
}

// Append records a turn and refreshes the last-touched timestamp.
func (m *Memory) Append(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Role: role, Content: content})
	m.lastTouched = time.Now()
}

// Turns returns a copy of the recorded history.
func (m *Memory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTouched = time.Now()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of recorded turns.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

func (m *Memory) touch() {
	m.mu.Lock()
	m.lastTouched = time.Now()
	m.mu.Unlock()
}

func (m *Memory) lastAccess() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTouched
}

// MemoryStore tracks per-session conversation histories and evicts sessions
// that have been idle longer than the configured timeout. A background
// goroutine runs the sweep periodically; Close stops it.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Memory
	timeout  time.Duration
	done     chan struct{}
	closed   bool
	logger   *slog.Logger
}

// NewMemoryStore creates a memory store sweeping at the given interval.
// Sessions idle longer than timeout are evicted by the sweep.
func NewMemoryStore(timeout, sweepInterval time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MemoryStore{
		sessions: make(map[string]*Memory),
		timeout:  timeout,
		done:     make(chan struct{}),
		logger:   logger.With("component", "memory"),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

// GetOrCreate returns the memory for a session, allocating it on first use.
// Repeated calls for the same id return the same handle; every call counts
// as an access for eviction purposes.
func (s *MemoryStore) GetOrCreate(sessionID string) *Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mem, ok := s.sessions[sessionID]; ok {
		mem.touch()
		return mem
	}

	mem := &Memory{lastTouched: time.Now()}
	s.sessions[sessionID] = mem
	s.logger.Debug("session memory created", "session_id", sessionID)
	return mem
}

// Clear removes a session's history. A later GetOrCreate for the same id
// starts from an empty history.
func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.logger.Debug("session memory cleared", "session_id", sessionID)
	}
}

// Sweep evicts every session whose last access is older than the timeout
// relative to now. Returns the number of evicted sessions.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for sessionID, mem := range s.sessions {
		if now.Sub(mem.lastAccess()) > s.timeout {
			delete(s.sessions, sessionID)
			evicted++
			s.logger.Info("expired session evicted", "session_id", sessionID)
		}
	}
	return evicted
}

// ActiveSessions returns the number of sessions currently held.
func (s *MemoryStore) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the background sweeper. It is safe to call multiple times.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}

// sweepLoop runs in a background goroutine, periodically evicting idle sessions.
func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(time.Now()); n > 0 {
				s.logger.Info("sweep complete", "evicted", n)
			}
		case <-s.done:
			return
		}
	}
}
