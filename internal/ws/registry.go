// ABOUTME: Registry of live websocket connections keyed by session ID
// ABOUTME: Two-stage membership check; writes never hold the registry lock

package ws

import (
	"log/slog"
	"sync"
)

// Conn is the write side of one websocket connection.
// *websocket.Conn satisfies it via the lockedConn wrapper.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Registry tracks live connections so any part of the gateway can push a
// frame to a session. Membership is two-stage: a session counts as
// connected only while its ID is in the active set AND its connection is
// registered. Unregister removes both, so a late send to a closing session
// is a clean no-op.
type Registry struct {
	mu     sync.RWMutex
	active map[string]struct{}
	conns  map[string]Conn
	logger *slog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		active: make(map[string]struct{}),
		conns:  make(map[string]Conn),
		logger: logger.With("component", "registry"),
	}
}

// Register adds a connection under the session ID. Registering an ID that
// is already present replaces the old connection without closing it; the
// previous owner's read loop handles its own teardown.
func (r *Registry) Register(sessionID string, conn Conn) {
	r.mu.Lock()
	r.active[sessionID] = struct{}{}
	r.conns[sessionID] = conn
	count := len(r.conns)
	r.mu.Unlock()

	r.logger.Info("connection registered", "session_id", sessionID, "active", count)
}

// Unregister removes the session. It is idempotent: unregistering an
// unknown or already-removed session does nothing.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	_, existed := r.conns[sessionID]
	delete(r.active, sessionID)
	delete(r.conns, sessionID)
	count := len(r.conns)
	r.mu.Unlock()

	if existed {
		r.logger.Info("connection unregistered", "session_id", sessionID, "active", count)
	}
}

// Send delivers one frame to the session. It reports false when the
// session is not connected or the write fails; a failed write also
// unregisters the session, since the connection is no longer usable.
func (r *Registry) Send(sessionID string, v any) bool {
	r.mu.RLock()
	_, isActive := r.active[sessionID]
	conn, hasConn := r.conns[sessionID]
	r.mu.RUnlock()

	if !isActive || !hasConn {
		return false
	}

	if err := conn.WriteJSON(v); err != nil {
		r.logger.Warn("send failed, dropping connection", "session_id", sessionID, "error", err)
		r.Unregister(sessionID)
		return false
	}
	return true
}

// Broadcast delivers one frame to every connected session except exclude
// (pass "" to reach everyone) and returns the number of successful
// deliveries. Sessions whose write fails are unregistered after the pass.
func (r *Registry) Broadcast(v any, exclude string) int {
	r.mu.RLock()
	targets := make(map[string]Conn, len(r.conns))
	for id, conn := range r.conns {
		if id == exclude {
			continue
		}
		if _, ok := r.active[id]; ok {
			targets[id] = conn
		}
	}
	r.mu.RUnlock()

	var failed []string
	delivered := 0
	for id, conn := range targets {
		if err := conn.WriteJSON(v); err != nil {
			failed = append(failed, id)
			continue
		}
		delivered++
	}

	for _, id := range failed {
		r.logger.Warn("broadcast send failed, dropping connection", "session_id", id)
		r.Unregister(id)
	}
	return delivered
}

// Connected reports whether the session currently has a live connection.
func (r *Registry) Connected(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, isActive := r.active[sessionID]
	_, hasConn := r.conns[sessionID]
	return isActive && hasConn
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every connection and empties the registry. Used at
// shutdown; close errors are ignored, the sockets are going away anyway.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.active = make(map[string]struct{})
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	for id, conn := range conns {
		_ = conn.Close()
		r.logger.Debug("connection closed", "session_id", id)
	}
}
