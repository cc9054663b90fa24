// ABOUTME: Wire frame types for the websocket session protocol
// ABOUTME: Client frames carry type+payload; server frames are type-tagged JSON

package ws

import (
	"fmt"

	"github.com/2389/pharma-gateway/internal/pharmacy"
)

// Client frame types.
const (
	FrameInit    = "init"
	FrameMessage = "message"
	FrameClose   = "close"
)

// Server frame types.
const (
	FrameConnectionEstablished = "connection_established"
	FrameAgentReady            = "agent_ready"
	FrameResponse              = "response"
	FrameCollectionProgress    = "collection_progress"
	FrameCollectionComplete    = "collection_complete"
	FrameError                 = "error"
)

// ClientFrame is a message from the caller. Type selects which payload
// fields are meaningful: init carries Phone, message carries Content,
// close carries nothing.
type ClientFrame struct {
	Type    string `json:"type"`
	Phone   string `json:"phone,omitempty"`
	Content string `json:"content,omitempty"`
}

// ServerFrame is a message to the caller. Only the fields relevant to the
// frame type are populated; the rest are omitted from the encoding.
type ServerFrame struct {
	Type            string             `json:"type"`
	SessionID       string             `json:"session_id,omitempty"`
	AgentType       string             `json:"agent_type,omitempty"`
	Content         string             `json:"content,omitempty"`
	Message         string             `json:"message,omitempty"`
	FieldsCollected []string           `json:"fields_collected,omitempty"`
	FieldsRemaining []string           `json:"fields_remaining,omitempty"`
	PharmacyData    *pharmacy.Pharmacy `json:"pharmacy_data,omitempty"`
}

func establishedFrame(sessionID string) ServerFrame {
	return ServerFrame{
		Type:      FrameConnectionEstablished,
		SessionID: sessionID,
		Message:   "Connected. Please provide your phone number to begin.",
	}
}

// agentReadyFrame announces the routed flow. The query flow greets with
// the matched pharmacy's name; pharmacyName is ignored for collection.
func agentReadyFrame(agentType, pharmacyName string) ServerFrame {
	message := "I don't have your pharmacy on file yet. Let's get you registered."
	if agentType == "query" {
		message = fmt.Sprintf("I can help you with information about %s. What would you like to know?", pharmacyName)
	}
	return ServerFrame{Type: FrameAgentReady, AgentType: agentType, Message: message}
}

func responseFrame(content string) ServerFrame {
	return ServerFrame{Type: FrameResponse, Content: content}
}

// progressFrame is the single reply to a collection turn while required
// fields are still missing. The response text rides inside it.
func progressFrame(content string, collected, remaining []string) ServerFrame {
	if collected == nil {
		collected = []string{}
	}
	if remaining == nil {
		remaining = []string{}
	}
	return ServerFrame{
		Type:            FrameCollectionProgress,
		Content:         content,
		FieldsCollected: collected,
		FieldsRemaining: remaining,
	}
}

// completeFrame replaces progressFrame once the required set is full.
func completeFrame(content string, record pharmacy.Pharmacy) ServerFrame {
	return ServerFrame{Type: FrameCollectionComplete, Content: content, PharmacyData: &record}
}

func errorFrame(message string) ServerFrame {
	return ServerFrame{Type: FrameError, Message: message}
}
