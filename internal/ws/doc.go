// Package ws implements the websocket session protocol.
//
// A connection's lifecycle: upgrade, connection_established with a fresh
// session ID, then an init frame carrying the caller's phone number routes
// the session to an agent (agent_ready). message frames run one agent turn
// each and answer with a response frame; collection sessions additionally
// get a collection_progress frame per turn and a single
// collection_complete frame when the required fields are all gathered.
//
// Protocol violations (message before init, re-init, unknown frame types,
// malformed JSON) answer with an error frame and leave the channel open.
// Only a close frame, a dropped connection, or server shutdown ends a
// session; teardown unregisters the connection and clears the session's
// memory.
//
// The Registry tracks live connections so other components can push
// frames; writes to a connection are serialized and never performed while
// holding the registry lock.
package ws
