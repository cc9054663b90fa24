// ABOUTME: Websocket session handler: upgrade, init routing, turn dispatch
// ABOUTME: Protocol violations answer with error frames; the channel stays open

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/pharma-gateway/internal/agent"
	"github.com/2389/pharma-gateway/internal/pharmacy"
)

// AgentRouter selects the agent for a session from its phone number.
type AgentRouter interface {
	Route(ctx context.Context, phone, sessionID string) (agent.Agent, error)
}

// SessionMemory is the slice of the memory store the handler needs:
// clearing a session's history when its connection goes away.
type SessionMemory interface {
	Clear(sessionID string)
}

// RecordStore persists pharmacy records completed by the collection flow.
type RecordStore interface {
	Insert(ctx context.Context, p pharmacy.Pharmacy) (pharmacy.Pharmacy, error)
}

// Handler runs the websocket session protocol. Each connection gets a
// fresh session ID, is announced with connection_established, and is
// routed to an agent on its init frame. Turns within a session are
// processed in arrival order on the connection's read loop.
type Handler struct {
	router   AgentRouter
	memory   SessionMemory
	registry *Registry
	records  RecordStore // nil disables persistence of completed registrations
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// HandlerParams configures a Handler.
type HandlerParams struct {
	Router   AgentRouter
	Memory   SessionMemory
	Registry *Registry
	Records  RecordStore
	Logger   *slog.Logger
}

// NewHandler creates a websocket session handler.
func NewHandler(params HandlerParams) *Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		router:   params.Router,
		memory:   params.Memory,
		registry: params.Registry,
		records:  params.Records,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger.With("component", "ws"),
	}
}

// lockedConn serializes writes to one websocket connection. The read loop
// and the registry may both write frames; gorilla allows one writer at a
// time.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *lockedConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *lockedConn) Close() error {
	return c.conn.Close()
}

// ServeHTTP upgrades the request and runs the session until the client
// closes or the connection drops.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	conn := &lockedConn{conn: raw}

	h.registry.Register(sessionID, conn)
	defer func() {
		h.registry.Unregister(sessionID)
		h.memory.Clear(sessionID)
		conn.Close()
		h.logger.Info("session ended", "session_id", sessionID)
	}()

	if !h.registry.Send(sessionID, establishedFrame(sessionID)) {
		return
	}

	h.logger.Info("session started", "session_id", sessionID)
	h.readLoop(r.Context(), sessionID, raw)
}

// session holds the per-connection routing state.
type session struct {
	agent     agent.Agent
	persisted bool // completed registration already stored
}

func (h *Handler) readLoop(ctx context.Context, sessionID string, raw *websocket.Conn) {
	var state session

	for {
		var frame ClientFrame
		if err := raw.ReadJSON(&frame); err != nil {
			// Malformed JSON consumes the message but leaves the
			// connection usable; anything else ends the session.
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.registry.Send(sessionID, errorFrame("invalid message: expected a JSON object"))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("connection dropped", "session_id", sessionID, "error", err)
			}
			return
		}

		switch frame.Type {
		case FrameInit:
			h.handleInit(ctx, sessionID, &state, frame.Phone)
		case FrameMessage:
			h.handleMessage(ctx, sessionID, &state, frame.Content)
		case FrameClose:
			return
		default:
			h.registry.Send(sessionID, errorFrame("unknown message type: "+frame.Type))
		}
	}
}

// handleInit routes the session. A failed init leaves the session
// un-routed so the client can send another init frame.
func (h *Handler) handleInit(ctx context.Context, sessionID string, state *session, phone string) {
	if state.agent != nil {
		h.registry.Send(sessionID, errorFrame("session already initialized"))
		return
	}

	ag, err := h.router.Route(ctx, phone, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, agent.ErrInvalidPhone):
		h.registry.Send(sessionID, errorFrame("invalid phone number"))
		return
	case errors.Is(err, agent.ErrLookupUnavailable):
		h.registry.Send(sessionID, errorFrame("pharmacy lookup is temporarily unavailable, please try again"))
		return
	default:
		h.logger.Error("routing failed", "session_id", sessionID, "error", err)
		h.registry.Send(sessionID, errorFrame("unable to start session"))
		return
	}

	state.agent = ag
	h.logger.Info("session routed", "session_id", sessionID, "agent", ag.Kind().String())

	var pharmacyName string
	if q, ok := ag.(*agent.QueryAgent); ok {
		pharmacyName = q.Record().Name
	}
	h.registry.Send(sessionID, agentReadyFrame(ag.Kind().String(), pharmacyName))
}

// handleMessage runs one turn. Query turns answer with a response frame;
// collection turns answer with exactly one frame carrying both the
// response text and the collection state: collection_progress while
// fields are missing, collection_complete once the set is full (and on
// every turn after).
func (h *Handler) handleMessage(ctx context.Context, sessionID string, state *session, content string) {
	if state.agent == nil {
		h.registry.Send(sessionID, errorFrame("session not initialized: send an init frame first"))
		return
	}

	response, err := state.agent.ProcessTurn(ctx, content)
	if err != nil {
		// Agents absorb their own failures; reaching here means something
		// unexpected. Keep the conversation alive regardless.
		h.logger.Error("turn processing failed", "session_id", sessionID, "error", err)
		response = "I apologize, but I encountered an error. Could you please repeat that?"
	}

	collector, ok := state.agent.(*agent.CollectionAgent)
	if !ok {
		h.registry.Send(sessionID, responseFrame(response))
		return
	}

	status := collector.CollectionStatus()
	if !status.Complete {
		h.registry.Send(sessionID, progressFrame(response, status.Collected, status.Missing))
		return
	}

	record, _ := collector.Collected()
	h.registry.Send(sessionID, completeFrame(response, record))

	if !state.persisted {
		state.persisted = true
		h.persist(ctx, sessionID, record)
	}
}

// persist stores a completed registration. Best effort: a failure is
// logged, the session is unaffected.
func (h *Handler) persist(ctx context.Context, sessionID string, record pharmacy.Pharmacy) {
	if h.records == nil {
		return
	}
	saved, err := h.records.Insert(ctx, record)
	if err != nil {
		h.logger.Error("persisting registration failed", "session_id", sessionID, "error", err)
		return
	}
	h.logger.Info("registration persisted", "session_id", sessionID, "pharmacy_id", saved.ID)
}
