package assistant

import (
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// Request is the inbound payload shared by the HTTP ingress and the CLI.
type Request struct {
	Message            string         `json:"message"`
	UserID             string         `json:"user_id"`
	SessionID          string         `json:"session_id,omitempty"`
	CustomerProfile    map[string]any `json:"customer_profile,omitempty"`
	AppointmentContext map[string]any `json:"appointment_context,omitempty"`
	PoliciesContext    map[string]any `json:"policies_context,omitempty"`
}

type Metadata struct {
	SessionID     string        `json:"session_id"`
	Intent        statex.Intent `json:"intent"`
	NeedsHandoff  bool          `json:"needs_handoff"`
	FinishSession bool          `json:"finish_session"`
}

// Envelope is returned to the caller of a turn.
type Envelope struct {
	Success  bool      `json:"success"`
	Response string    `json:"response"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (r Request) asMap() map[string]any {
	out := map[string]any{
		"message":    r.Message,
		"user_id":    r.UserID,
		"session_id": r.SessionID,
	}
	if len(r.CustomerProfile) > 0 {
		out["customer_profile"] = r.CustomerProfile
	}
	if len(r.AppointmentContext) > 0 {
		out["appointment_context"] = r.AppointmentContext
	}
	if len(r.PoliciesContext) > 0 {
		out["policies_context"] = r.PoliciesContext
	}
	return out
}

func (e Envelope) asMap() map[string]any {
	out := map[string]any{
		"success":  e.Success,
		"response": e.Response,
	}
	if e.Metadata != nil {
		out["metadata"] = map[string]any{
			"session_id":     e.Metadata.SessionID,
			"intent":         string(e.Metadata.Intent),
			"needs_handoff":  e.Metadata.NeedsHandoff,
			"finish_session": e.Metadata.FinishSession,
		}
	}
	if e.Error != "" {
		out["error"] = e.Error
	}
	return out
}
