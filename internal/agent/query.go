// ABOUTME: Query agent answering questions about one known pharmacy record
// ABOUTME: The bound record is read-only; answers come from a fixed capability set

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/pharma-gateway/internal/llm"
	"github.com/2389/pharma-gateway/internal/pharmacy"
)

// QueryAgent answers questions about a single pharmacy record.
// It is stateless beyond the shared conversation memory: each turn consults
// the bound record through Attribute, Prescriptions, and Summary and hands
// the facts to the generation engine.
type QueryAgent struct {
	sessionID string
	record    pharmacy.Pharmacy
	memory    *Memory
	generator llm.Generator
	logger    *slog.Logger
}

// NewQueryAgent binds a query agent to a pharmacy record.
func NewQueryAgent(sessionID string, record pharmacy.Pharmacy, memory *Memory, generator llm.Generator, logger *slog.Logger) *QueryAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryAgent{
		sessionID: sessionID,
		record:    record,
		memory:    memory,
		generator: generator,
		logger:    logger.With("component", "query-agent", "session_id", sessionID),
	}
}

// Kind reports the query flow.
func (a *QueryAgent) Kind() Kind {
	return KindQuery
}

// Record returns the bound pharmacy record.
func (a *QueryAgent) Record() pharmacy.Pharmacy {
	return a.record
}

// ProcessTurn answers one user message using the bound record.
// Generation failures produce an apology response; the conversation
// always continues.
func (a *QueryAgent) ProcessTurn(ctx context.Context, text string) (string, error) {
	history := toLLMTurns(a.memory.Turns())
	a.memory.Append("user", text)

	response, err := a.generator.Generate(ctx, a.systemPrompt(), history, text)
	if err != nil {
		a.logger.Error("generation failed", "error", err)
		response = apologyResponse
	}

	a.memory.Append("assistant", response)
	return response, nil
}

// Attribute returns a named scalar attribute of the bound record.
func (a *QueryAgent) Attribute(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "name":
		return a.record.Name, true
	case "phone":
		return a.record.Phone, true
	case "email":
		return a.record.Email, true
	case "city":
		return a.record.City, true
	case "state":
		return a.record.State, true
	case "id":
		return fmt.Sprintf("%d", a.record.ID), true
	default:
		return "", false
	}
}

// Prescriptions lists the record's prescriptions as display text.
func (a *QueryAgent) Prescriptions() string {
	if len(a.record.Prescriptions) == 0 {
		return "No prescriptions found for this pharmacy."
	}

	lines := make([]string, 0, len(a.record.Prescriptions))
	for i, p := range a.record.Prescriptions {
		lines = append(lines, fmt.Sprintf("%d. %s - Quantity: %d", i+1, p.Drug, p.Count))
	}
	return strings.Join(lines, "\n")
}

// Summary returns a display summary of the whole record.
func (a *QueryAgent) Summary() string {
	lines := []string{
		fmt.Sprintf("Pharmacy: %s", a.record.Name),
		fmt.Sprintf("Phone: %s", a.record.Phone),
		fmt.Sprintf("Email: %s", a.record.Email),
		fmt.Sprintf("Location: %s, %s", a.record.City, a.record.State),
	}
	if len(a.record.Prescriptions) > 0 {
		lines = append(lines, fmt.Sprintf("Total Prescriptions: %d", len(a.record.Prescriptions)))
	}
	return strings.Join(lines, "\n")
}

// systemPrompt gives the generator the record facts for this turn.
func (a *QueryAgent) systemPrompt() string {
	return fmt.Sprintf(`You are a helpful pharmacy assistant with access to information about %s.

%s

Prescriptions:
%s

Answer questions about this pharmacy using only the details above.
Be helpful and concise.`, a.record.Name, a.Summary(), a.Prescriptions())
}

// toLLMTurns converts memory turns into generator history.
func toLLMTurns(turns []Turn) []llm.Turn {
	out := make([]llm.Turn, len(turns))
	for i, t := range turns {
		out[i] = llm.Turn{Role: t.Role, Content: t.Content}
	}
	return out
}
