package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one completion per call. Implementations translate
// Request into their SDK and normalise the reply; schema conformance is
// enforced by the validation wrapper, never by a provider.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Normalised stop reasons carried in Response.StopReason.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Request is a single-turn generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the backend for native JSON output shaped by
	// the definition. Without it Content is whatever text came back.
	Schema *Schema

	// MaxTokens caps the reply. Zero means the provider default.
	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the backend default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema document. Name is kebab-case (for example
// "diagnostic-exam") and keys the compiled-schema cache.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the raw reply of a backend. Content is untrusted until
// ValidateResponse accepts it.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string // model that actually served the call
	StopReason string // StopEnd or StopMaxTokens
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
