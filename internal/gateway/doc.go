// Package gateway assembles and runs the pharmacy call-assistant server.
//
// New wires the components from configuration: the pharmacy catalog
// (remote directory API or local SQLite database), the phone-number search
// service, the session memory store, the chat model client, the agent
// router, and the websocket connection registry. Run serves
// /ws/pharmacy-agent for caller sessions plus a small HTTP API (/health,
// /pharmacies, /pharmacies/search) and shuts everything down cleanly when
// its context is canceled.
package gateway
