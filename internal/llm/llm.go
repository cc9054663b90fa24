// ABOUTME: Collaborator interfaces for the language-model engines
// ABOUTME: Agents depend on these, never on a concrete provider

package llm

import "context"

// Turn is one prior exchange in a conversation, as given to the generator.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Generator produces the next conversational response.
type Generator interface {
	Generate(ctx context.Context, system string, history []Turn, input string) (string, error)
}

// Extractor pulls structured field:value pairs out of free-form text.
// A turn that yields nothing extractable returns an empty map, not an error.
type Extractor interface {
	Extract(ctx context.Context, text string) (map[string]any, error)
}
