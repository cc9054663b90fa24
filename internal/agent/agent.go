// ABOUTME: Conversation agent variants and shared contract
// ABOUTME: A session binds exactly one agent, selected once at routing time

package agent

import (
	"context"
	"errors"
)

// ErrInvalidPhone indicates the caller-supplied phone number could not be
// normalized into a comparison key.
var ErrInvalidPhone = errors.New("invalid phone number")

// ErrLookupUnavailable indicates the pharmacy catalog could not answer the
// lookup. It is distinct from a clean not-found: callers may retry init.
var ErrLookupUnavailable = errors.New("pharmacy lookup unavailable")

// Kind identifies which conversation flow an agent runs.
// The set is closed: routing selects exactly one of these and call sites
// switch exhaustively on the value.
type Kind int

const (
	// KindQuery answers questions about one known pharmacy record.
	KindQuery Kind = iota
	// KindCollection gathers registration fields for an unknown pharmacy.
	KindCollection
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Agent is one session's conversation state machine.
// ProcessTurn handles a single user message and returns the response text;
// turns within a session are processed strictly in arrival order by the
// protocol handler, so implementations need not tolerate reordering.
type Agent interface {
	ProcessTurn(ctx context.Context, text string) (string, error)
	Kind() Kind
}

// apologyResponse is returned when turn processing fails unexpectedly.
// The conversation continues; failures never close the channel.
const apologyResponse = "I apologize, but I encountered an error. Could you please repeat that?"
