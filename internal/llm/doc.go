// Package llm provides the language-model collaborators used by the
// conversation agents: a generation engine and a structured-field
// extraction engine, both served by one OpenAI-compatible client.
package llm
