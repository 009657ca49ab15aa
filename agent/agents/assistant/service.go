// Package assistant is the public entry point for one inbound message.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gmoreiraDEV/basix-engine/agent/audit"
	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/agent/mediator"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// TurnHandler runs the turn pipeline.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn *statex.Turn) (*statex.Turn, error)
}

type Service struct {
	turns        TurnHandler
	interactions contractx.InteractionLog
	now          func() time.Time
}

type Option func(*Service)

func WithInteractionLog(l contractx.InteractionLog) Option {
	return func(s *Service) {
		if l != nil {
			s.interactions = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(turns TurnHandler, opts ...Option) (*Service, error) {
	if turns == nil {
		return nil, errors.New("turn handler is required")
	}
	s := &Service{turns: turns, interactions: audit.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultSessionID is used when the caller does not name a session.
func DefaultSessionID(userID string, now time.Time) string {
	return fmt.Sprintf("session_%s_%d", userID, now.Unix())
}

// Handle returns a non-nil error only for requests rejected before any stage
// runs. The envelope is always filled.
func (s *Service) Handle(ctx context.Context, req Request) (Envelope, error) {
	req.Message = strings.TrimSpace(req.Message)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Message == "" {
		err := fmt.Errorf("%w: message is empty", contractx.ErrValidation)
		return Envelope{Success: false, Error: err.Error()}, err
	}
	if req.UserID == "" {
		err := fmt.Errorf("%w: user id is empty", contractx.ErrValidation)
		return Envelope{Success: false, Error: err.Error()}, err
	}

	now := s.now()
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = DefaultSessionID(req.UserID, now)
	}
	logger := log.With().Str("session_id", req.SessionID).Str("user_id", req.UserID).Logger()

	turn := statex.NewTurn(req.SessionID, req.UserID, req.Message, now.UTC())
	for k, v := range req.CustomerProfile {
		turn.CustomerProfile[k] = v
	}
	for k, v := range req.PoliciesContext {
		turn.PoliciesContext[k] = v
	}
	turn.Draft.Absorb(req.AppointmentContext)

	var env Envelope
	out, err := s.turns.HandleTurn(ctx, turn)
	if err != nil {
		logger.Error().Err(err).Msg("turn pipeline failed")
		env = Envelope{
			Success:  false,
			Response: mediator.ApologyProcessing,
			Metadata: &Metadata{SessionID: req.SessionID, Intent: turn.Intent},
			Error:    err.Error(),
		}
	} else {
		reply, _ := out.FinalReply()
		env = Envelope{
			Success:  true,
			Response: reply.Content,
			Metadata: &Metadata{
				SessionID:     out.SessionID,
				Intent:        out.Intent,
				NeedsHandoff:  out.NeedsHandoff,
				FinishSession: out.FinishSession,
			},
		}
		logger.Info().
			Str("intent", string(out.Intent)).
			Bool("degraded", out.Degraded).
			Bool("finish_session", out.FinishSession).
			Msg("turn handled")
	}

	if err := s.interactions.Record(ctx, contractx.Interaction{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Intent:    string(env.Metadata.Intent),
		Request:   req.asMap(),
		Response:  env.asMap(),
		CreatedAt: now.UTC(),
	}); err != nil {
		logger.Error().Err(err).Msg("interaction log write failed")
	}

	return env, nil
}
