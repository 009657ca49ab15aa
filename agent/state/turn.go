package state

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Intent string

const (
	IntentSchedule   Intent = "schedule"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
	IntentInfo       Intent = "info"
	IntentSmalltalk  Intent = "smalltalk"
	IntentFarewell   Intent = "farewell"
	IntentUnknown    Intent = "unknown"
)

// IsScheduling reports whether the intent selects the scheduling prompt.
func (i Intent) IsScheduling() bool {
	return i == IntentSchedule || i == IntentReschedule || i == IntentCancel
}

// ToolCall is a single structured invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolName is set on tool-result messages and on assistant
	// tool-invocation messages.
	ToolName   string    `json:"tool_name,omitempty"`
	ToolCall   *ToolCall `json:"tool_call,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Turn carries one inbound message and everything needed to answer it.
// Stages mutate it in place; it is dropped once the turn is persisted.
type Turn struct {
	SessionID string
	UserID    string
	History   []Message
	Intent    Intent

	CustomerProfile map[string]any
	Draft           AppointmentDraft
	PoliciesContext map[string]any

	// ContextMessages is the recent conversation loaded for this user, oldest
	// first, and ContextText its prompt rendering. Both are read-only and
	// never part of History.
	ContextMessages []Message
	ContextText     string

	NeedsHandoff  bool
	FinishSession bool

	// Degraded marks a turn whose reply was replaced by an apology.
	Degraded bool
}

func NewTurn(sessionID, userID, text string, now time.Time) *Turn {
	t := &Turn{
		SessionID:       sessionID,
		UserID:          userID,
		Intent:          IntentUnknown,
		CustomerProfile: map[string]any{},
		PoliciesContext: map[string]any{},
	}
	t.Append(Message{Role: RoleUser, Content: text, Timestamp: now})
	return t
}

func (t *Turn) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	t.History = append(t.History, msg)
}

// LatestUserMessage returns the content of the most recent user message.
func (t *Turn) LatestUserMessage() (Message, bool) {
	for i := len(t.History) - 1; i >= 0; i-- {
		if t.History[i].Role == RoleUser {
			return t.History[i], true
		}
	}
	return Message{}, false
}

// FinalReply returns the most recent assistant message carrying text.
func (t *Turn) FinalReply() (Message, bool) {
	for i := len(t.History) - 1; i >= 0; i-- {
		m := t.History[i]
		if m.Role == RoleAssistant && m.ToolCall == nil && strings.TrimSpace(m.Content) != "" {
			return m, true
		}
	}
	return Message{}, false
}

// UserQueries returns the customer's own words, newest first: user messages
// of this turn, then user messages of the loaded context. Assistant and tool
// text is left out so resolvers never bind ids the model only mentioned.
func (t *Turn) UserQueries() []string {
	out := make([]string, 0, len(t.History)+len(t.ContextMessages))
	collect := func(msgs []Message) {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == RoleUser && strings.TrimSpace(msgs[i].Content) != "" {
				out = append(out, msgs[i].Content)
			}
		}
	}
	collect(t.History)
	collect(t.ContextMessages)
	return out
}

// Window returns at most n trailing messages of History.
func (t *Turn) Window(n int) []Message {
	if n <= 0 || len(t.History) <= n {
		out := make([]Message, len(t.History))
		copy(out, t.History)
		return out
	}
	out := make([]Message, n)
	copy(out, t.History[len(t.History)-n:])
	return out
}
