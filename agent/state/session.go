package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Snapshot is the per-session state that survives between turns.
// Conversation text lives in the context store; the snapshot only keeps
// what cannot be recovered from it.
type Snapshot struct {
	SessionID       string           `json:"session_id"`
	UserID          string           `json:"user_id"`
	CustomerProfile map[string]any   `json:"customer_profile,omitempty"`
	Draft           AppointmentDraft `json:"appointment_draft"`
	LastIntent      Intent           `json:"last_intent,omitempty"`
	FinishSession   bool             `json:"finish_session,omitempty"`

	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func SnapshotOf(t *Turn, now time.Time) *Snapshot {
	return &Snapshot{
		SessionID:       t.SessionID,
		UserID:          t.UserID,
		CustomerProfile: t.CustomerProfile,
		Draft:           t.Draft,
		LastIntent:      t.Intent,
		FinishSession:   t.FinishSession,
		Version:         1,
		UpdatedAt:       now.UTC(),
	}
}

// Restore fills the turn from a previous snapshot. Values supplied with the
// inbound message win over restored ones.
func (s *Snapshot) Restore(t *Turn) {
	if s == nil || t == nil {
		return
	}
	if t.CustomerProfile == nil {
		t.CustomerProfile = map[string]any{}
	}
	for k, v := range s.CustomerProfile {
		if _, ok := t.CustomerProfile[k]; !ok {
			t.CustomerProfile[k] = v
		}
	}
	merged := s.Draft
	overlay(&merged, t.Draft)
	t.Draft = merged
}

func overlay(dst *AppointmentDraft, src AppointmentDraft) {
	if src.CustomerID != nil {
		dst.CustomerID = src.CustomerID
	}
	if src.ProfessionalID != nil {
		dst.ProfessionalID = src.ProfessionalID
	}
	if src.ServiceID != nil {
		dst.ServiceID = src.ServiceID
	}
	if src.StartsAt != nil {
		dst.StartsAt = src.StartsAt
	}
	if src.DurationMinutes != nil {
		dst.DurationMinutes = src.DurationMinutes
	}
	if src.Price != nil {
		dst.Price = src.Price
	}
	if src.Notes != nil {
		dst.Notes = src.Notes
	}
	if src.Confirmed != nil {
		dst.Confirmed = src.Confirmed
	}
}

func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrNilSnapshot
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.Version <= 0 {
		return fmt.Errorf("invalid snapshot version %d", s.Version)
	}
	return nil
}

var errSnapshotMismatch = errors.New("snapshot belongs to another user")

// CheckOwner rejects snapshots restored for a different user id.
func (s *Snapshot) CheckOwner(userID string) error {
	if s.UserID != "" && userID != "" && s.UserID != userID {
		return errSnapshotMismatch
	}
	return nil
}
