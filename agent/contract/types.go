package contract

import (
	"time"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

type ParamSpec struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Desc     string    `json:"description,omitempty"`
	Required bool      `json:"required"`

	// Bound parameters are filled by the tool's binder from resolved context
	// and are never offered to the model.
	Bound bool `json:"-"`
}

type ToolSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// Exposed returns the parameters the model may fill.
func (s ToolSchema) Exposed() []ParamSpec {
	out := make([]ParamSpec, 0, len(s.Params))
	for _, p := range s.Params {
		if !p.Bound {
			out = append(out, p)
		}
	}
	return out
}

func (s ToolSchema) Required() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

type ModelRequest struct {
	SystemPrompt string           `json:"system_prompt"`
	History      []statex.Message `json:"history"`
	Tools        []ToolSchema     `json:"tools,omitempty"`
}

// ModelResponse is either plain text or a single tool invocation.
// Exactly one of Text or ToolCall is meaningful.
type ModelResponse struct {
	Text     string           `json:"text,omitempty"`
	ToolCall *statex.ToolCall `json:"tool_call,omitempty"`
}

func TextResponse(text string) ModelResponse {
	return ModelResponse{Text: text}
}

func ToolInvocation(call statex.ToolCall) ModelResponse {
	return ModelResponse{ToolCall: &call}
}

func (r ModelResponse) IsToolInvocation() bool {
	return r.ToolCall != nil
}

// Point is a single record in a vector index collection.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// MemoryRecord is what a turn writes back to the context store.
type MemoryRecord struct {
	UserID    string           `json:"user_id"`
	SessionID string           `json:"session_id"`
	Messages  []statex.Message `json:"messages"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Interaction is one row of the relational turn log.
type Interaction struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Intent    string         `json:"intent"`
	Request   map[string]any `json:"request"`
	Response  map[string]any `json:"response"`
	CreatedAt time.Time      `json:"created_at"`
}
