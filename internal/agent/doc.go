// Package agent implements the per-session conversation machinery.
//
// # Routing
//
// Router.Route selects the flow for a new session from a single phone
// lookup against the pharmacy catalog:
//
//   - record found: a QueryAgent bound to that record
//   - not found: a CollectionAgent seeded with the phone number
//   - catalog unreachable: ErrLookupUnavailable (the session stays
//     un-routed and the client may retry)
//
// The two agent kinds form a closed set; the protocol handler switches
// exhaustively on Agent.Kind().
//
// # Query flow
//
// QueryAgent answers questions about one immutable pharmacy record through
// a fixed capability set (Attribute, Prescriptions, Summary) surfaced to
// the generation engine. The record is never mutated.
//
// # Collection flow
//
// CollectionAgent incrementally fills a registration form from free-form
// turns. Per turn it extracts field:value pairs, merges them (scalars
// last-write-wins, prescriptions append), and responds with the generation
// engine. When name, email, city, and state all hold values the agent
// transitions to complete; the transition is one-way.
//
// # Session memory
//
// MemoryStore owns every session's conversation history and evicts idle
// sessions on a periodic sweep. Agents hold a *Memory handle to read and
// append; eviction is a full reset, a recreated session starts empty.
//
// # Thread safety
//
// MemoryStore, Memory, and CollectionAgent's collected-fields set are all
// mutex-guarded. No lock is held across an extraction, generation, or
// catalog call.
package agent
