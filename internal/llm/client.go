// ABOUTME: Chat-completions client for OpenAI-compatible APIs
// ABOUTME: Implements both the Generator and Extractor collaborator interfaces

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiBase     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// ClientParams configures a Client.
type ClientParams struct {
	APIBase     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewClient constructs a chat completions client.
func NewClient(params ClientParams) *Client {
	apiBase := params.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	timeout := params.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiBase:     apiBase,
		apiKey:      params.APIKey,
		model:       params.Model,
		temperature: params.Temperature,
		maxTokens:   params.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate produces the next response for a conversation.
func (c *Client) Generate(ctx context.Context, system string, history []Turn, input string) (string, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: input})

	return c.complete(ctx, messages)
}

// Extract asks the model for field:value pairs found in the text.
// The raw model output is parsed best-effort; unparseable output yields an
// empty map, never an error.
func (c *Client) Extract(ctx context.Context, text string) (map[string]any, error) {
	messages := []chatMessage{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: text},
	}

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return ParseExtraction(raw), nil
}

// complete performs one chat completion round trip.
func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// extractionSystemPrompt instructs the model to answer with a bare JSON
// object of pharmacy registration fields.
const extractionSystemPrompt = `You are an information extraction assistant. Extract pharmacy company information from the user's message.

Extract the following fields if present:
- name: company/pharmacy name
- email: email address
- city: city name from any location mention
- state: state name or abbreviation (CA, California, NY, New York, etc.)
- prescriptions: list of prescription/medication names

Location parsing rules:
- "San Francisco, California" extracts both city and state
- "located in Boston, MA" extracts city: Boston and state: MA
- "We're in Boston" extracts city: Boston

Respond with ONLY a valid JSON object, nothing else.
If nothing is found, respond with: {}`
