// ABOUTME: Collection agent gathering pharmacy registration fields turn by turn
// ABOUTME: Scalar fields are last-write-wins, prescriptions accumulate, completion is one-way

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/2389/pharma-gateway/internal/llm"
	"github.com/2389/pharma-gateway/internal/pharmacy"
)

// requiredFields are the fields a registration must collect, in the order
// they are reported back to the caller.
var requiredFields = []string{"name", "email", "city", "state"}

// fieldPrescriptions is the one multi-valued optional field; extracted
// values append to it instead of overwriting.
const fieldPrescriptions = "prescriptions"

// emailPattern is a deliberately loose check. The rest of the system
// accepts addresses matched this way; tightening it here would reject
// values accepted elsewhere.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Status describes collection progress at a point in time.
type Status struct {
	Collected []string
	Missing   []string
	Complete  bool
}

// CollectionAgent gathers new pharmacy information through conversation.
//
// Each turn runs the extraction engine over the raw text, merges the result
// into the collected-fields set, and asks the generation engine for the next
// response with a note of what is collected and what is still missing.
// Once every required field holds a non-empty value the agent transitions to
// complete; the flag never reverts, and later turns are still processed.
type CollectionAgent struct {
	sessionID string
	memory    *Memory
	extractor llm.Extractor
	generator llm.Generator
	logger    *slog.Logger

	mu            sync.Mutex
	phone         string
	scalars       map[string]string
	prescriptions []string
	order         []string // field names in first-collected order
	complete      bool
}

// NewCollectionAgent creates a collection agent seeded with the caller's
// phone number, which counts as already collected.
func NewCollectionAgent(sessionID, phone string, memory *Memory, extractor llm.Extractor, generator llm.Generator, logger *slog.Logger) *CollectionAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectionAgent{
		sessionID: sessionID,
		memory:    memory,
		extractor: extractor,
		generator: generator,
		logger:    logger.With("component", "collection-agent", "session_id", sessionID),
		phone:     phone,
		scalars:   make(map[string]string),
		order:     []string{"phone"},
	}
}

// Kind reports the collection flow.
func (a *CollectionAgent) Kind() Kind {
	return KindCollection
}

// ProcessTurn handles one user message: extract, merge, respond.
// Extraction and generation failures are absorbed: a failed extraction
// contributes zero fields, a failed generation yields an apology. Neither
// ends the conversation.
func (a *CollectionAgent) ProcessTurn(ctx context.Context, text string) (string, error) {
	extracted, err := a.extractor.Extract(ctx, text)
	if err != nil {
		a.logger.Warn("extraction failed, continuing with zero fields", "error", err)
		extracted = nil
	}

	becameComplete := a.merge(extracted)
	status := a.CollectionStatus()

	// Give the generator a structured note of progress alongside the raw text
	enhanced := text + a.contextNote(status)

	history := toLLMTurns(a.memory.Turns())
	a.memory.Append("user", text)

	response, err := a.generator.Generate(ctx, collectionSystemPrompt, history, enhanced)
	if err != nil {
		a.logger.Error("generation failed", "error", err)
		response = apologyResponse
	}

	if becameComplete {
		response += "\n\nGreat! I have all the required information. The pharmacy registration is complete."
	}

	a.memory.Append("assistant", response)
	return response, nil
}

// merge folds extracted fields into the collected set and reports whether
// this merge completed the required set. Scalar fields overwrite, the
// prescriptions list appends. The completion flag is one-way.
func (a *CollectionAgent) merge(extracted map[string]any) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, value := range extracted {
		switch key {
		case fieldPrescriptions:
			for _, drug := range coerceStringList(value) {
				a.prescriptions = append(a.prescriptions, drug)
			}
			if len(a.prescriptions) > 0 {
				a.recordOrderLocked(fieldPrescriptions)
			}
		case "name", "city", "state":
			if s, ok := coerceString(value); ok {
				a.scalars[key] = s
				a.recordOrderLocked(key)
			}
		case "email":
			if s, ok := coerceString(value); ok && emailPattern.MatchString(s) {
				a.scalars[key] = s
				a.recordOrderLocked(key)
			}
		default:
			a.logger.Debug("ignoring unknown extracted field", "field", key)
		}
	}

	if a.complete {
		return false
	}
	if a.missingLocked() == nil {
		a.complete = true
		a.logger.Info("collection complete", "fields", a.order)
		return true
	}
	return false
}

// recordOrderLocked notes the first time a field is collected.
func (a *CollectionAgent) recordOrderLocked(field string) {
	for _, f := range a.order {
		if f == field {
			return
		}
	}
	a.order = append(a.order, field)
}

// missingLocked returns required fields that still lack a non-empty value.
func (a *CollectionAgent) missingLocked() []string {
	var missing []string
	for _, field := range requiredFields {
		if a.scalars[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// CollectionStatus reports collected fields (in first-collected order),
// missing required fields, and whether the set is complete.
func (a *CollectionAgent) CollectionStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	collected := make([]string, len(a.order))
	copy(collected, a.order)

	return Status{
		Collected: collected,
		Missing:   a.missingLocked(),
		Complete:  a.complete,
	}
}

// Collected returns the gathered data as a pharmacy record. The second
// return value is false until collection is complete.
func (a *CollectionAgent) Collected() (pharmacy.Pharmacy, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.complete {
		return pharmacy.Pharmacy{}, false
	}

	prescriptions := make([]pharmacy.Prescription, 0, len(a.prescriptions))
	for _, drug := range a.prescriptions {
		prescriptions = append(prescriptions, pharmacy.Prescription{Drug: drug})
	}

	return pharmacy.Pharmacy{
		Name:          a.scalars["name"],
		Phone:         a.phone,
		Email:         a.scalars["email"],
		City:          a.scalars["city"],
		State:         a.scalars["state"],
		Prescriptions: prescriptions,
	}, true
}

// contextNote renders the progress note appended to the generator input.
func (a *CollectionAgent) contextNote(status Status) string {
	collected := "none yet"

	// The phone is seeded, not conversationally collected; leave it out
	var conversational []string
	for _, f := range status.Collected {
		if f != "phone" {
			conversational = append(conversational, f)
		}
	}
	if len(conversational) > 0 {
		collected = strings.Join(conversational, ", ")
	}

	missing := "all required fields collected"
	if len(status.Missing) > 0 {
		missing = strings.Join(status.Missing, ", ")
	}

	return fmt.Sprintf("\n[Context: Collected: %s. Still need: %s]", collected, missing)
}

// coerceString accepts a non-empty string value from the extraction map.
func coerceString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// coerceStringList accepts either a list of strings or a single string.
func coerceStringList(value any) []string {
	switch v := value.(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := coerceString(item); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if s, ok := coerceString(v); ok {
			return []string{s}
		}
	}
	return nil
}

const collectionSystemPrompt = `You are a friendly pharmacy registration assistant.
Your task is to naturally collect the following information:
- Company name (required)
- Email address (required)
- City (required)
- State (required)
- Prescription information (optional - can be multiple)

Guide the conversation naturally. Ask for one or two pieces of information at a time.
If the user provides multiple pieces of information, acknowledge all of them.
Be friendly and professional. If they don't have prescription information yet, that's okay.
Remember what the user has already told you and don't ask for the same information twice.`
