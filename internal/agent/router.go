// ABOUTME: Routes a new session to the correct conversation agent
// ABOUTME: Known phone numbers get the query flow, unknown ones the collection flow

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/pharma-gateway/internal/llm"
	"github.com/2389/pharma-gateway/internal/pharmacy"
)

// PharmacyLookup defines what the router needs from the catalog layer.
type PharmacyLookup interface {
	SearchByPhone(ctx context.Context, phone string) (*pharmacy.Pharmacy, error)
}

// Router constructs the conversation agent for a new session based on a
// phone number lookup. An agent, once constructed, is bound to its session
// for the session's lifetime.
type Router struct {
	lookup    PharmacyLookup
	memory    *MemoryStore
	extractor llm.Extractor
	generator llm.Generator
	logger    *slog.Logger
}

// RouterParams configures a Router.
type RouterParams struct {
	Lookup    PharmacyLookup
	Memory    *MemoryStore
	Extractor llm.Extractor
	Generator llm.Generator
	Logger    *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(params RouterParams) *Router {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		lookup:    params.Lookup,
		memory:    params.Memory,
		extractor: params.Extractor,
		generator: params.Generator,
		logger:    logger.With("component", "router"),
	}
}

// Route validates the phone number, performs exactly one catalog lookup,
// and returns the agent for this session.
//
// Errors: ErrInvalidPhone when the number has no digits to compare;
// ErrLookupUnavailable when the catalog cannot answer — deliberately
// distinct from not-found, which routes to the collection flow.
func (r *Router) Route(ctx context.Context, phone, sessionID string) (Agent, error) {
	if _, ok := pharmacy.NormalizePhone(phone); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}

	record, err := r.lookup.SearchByPhone(ctx, phone)
	switch {
	case err == nil:
		r.logger.Info("routing to query agent",
			"session_id", sessionID,
			"pharmacy_id", record.ID,
			"name", record.Name,
		)
		mem := r.memory.GetOrCreate(sessionID)
		return NewQueryAgent(sessionID, *record, mem, r.generator, r.logger), nil

	case errors.Is(err, pharmacy.ErrNotFound):
		r.logger.Info("routing to collection agent", "session_id", sessionID, "phone", phone)
		mem := r.memory.GetOrCreate(sessionID)
		return NewCollectionAgent(sessionID, phone, mem, r.extractor, r.generator, r.logger), nil

	default:
		r.logger.Error("pharmacy lookup failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLookupUnavailable, err)
	}
}
