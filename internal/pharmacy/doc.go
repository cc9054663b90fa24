// Package pharmacy models the external pharmacy catalog: record types,
// phone number normalization, and two interchangeable catalog sources
// (the remote HTTP API and a local SQLite database).
package pharmacy
