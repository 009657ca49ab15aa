package orchestrator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/agent/mediator"
	"github.com/gmoreiraDEV/basix-engine/agent/memory"
	"github.com/gmoreiraDEV/basix-engine/agent/prompt"
	"github.com/gmoreiraDEV/basix-engine/agent/resolver"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

func stageLogger(turn *statex.Turn, stage string) zerolog.Logger {
	return log.With().
		Str("session_id", turn.SessionID).
		Str("user_id", turn.UserID).
		Str("stage", stage).
		Logger()
}

func (o *Orchestrator) loadContext(ctx context.Context, turn *statex.Turn) *statex.Turn {
	logger := stageLogger(turn, nodeLoadContext)

	if o.sessions != nil {
		snap, err := o.sessions.Load(ctx, turn.SessionID)
		switch {
		case errors.Is(err, statex.ErrSnapshotNotFound):
		case err != nil:
			logger.Warn().Err(err).Msg("session snapshot load failed")
		default:
			if err := snap.CheckOwner(turn.UserID); err != nil {
				logger.Warn().Err(err).Msg("session snapshot ignored")
				break
			}
			snap.Restore(turn)
		}
	}

	msgs, err := o.memory.Recent(ctx, turn.UserID, o.contextMessages)
	if err != nil {
		logger.Warn().Err(err).Msg("context load failed, continuing without history")
		return turn
	}
	turn.ContextMessages = msgs
	turn.ContextText = memory.Transcript(msgs)
	return turn
}

func (o *Orchestrator) detectIntent(_ context.Context, turn *statex.Turn) *statex.Turn {
	latest, _ := turn.LatestUserMessage()
	turn.Intent = o.classifier.Classify(latest.Content)
	return turn
}

func (o *Orchestrator) generateResponse(ctx context.Context, turn *statex.Turn) *statex.Turn {
	logger := stageLogger(turn, nodeGenerateResponse).With().Str("intent", string(turn.Intent)).Logger()

	kind := prompt.KindFor(turn.Intent)
	customerID, resolved := resolver.ResolveCustomerID(turn)
	if kind == prompt.KindScheduling && !resolved {
		turn.NeedsHandoff = true
	}

	systemPrompt, err := o.prompts.Render(ctx, kind, prompt.Vars{
		CustomerID:   formatCustomerID(customerID, resolved),
		CustomerName: profileString(turn.CustomerProfile, "name", "nome"),
		Context:      turn.ContextText,
		Policies:     profileString(turn.PoliciesContext, "policies_text"),
		Today:        o.now().Format("2006-01-02"),
	})
	if err != nil {
		logger.Error().Err(err).Msg("prompt render failed")
		o.apologize(turn, mediator.ApologyProcessing)
	} else {
		o.mediate(ctx, turn, systemPrompt, logger)
	}

	latest, _ := turn.LatestUserMessage()
	turn.FinishSession = o.classifier.ShouldFinish(latest.Content)
	return turn
}

func (o *Orchestrator) mediate(ctx context.Context, turn *statex.Turn, systemPrompt string, logger zerolog.Logger) {
	if o.generateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.generateTimeout)
		defer cancel()
	}

	out := o.mediator.Mediate(ctx, turn, systemPrompt, o.tools.Schemas())
	if out.Err != nil {
		logger.Warn().Err(out.Err).Str("tool", out.Tool).Msg("turn degraded")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn().Dur("timeout", o.generateTimeout).Msg("generate response timed out")
		if _, ok := turn.FinalReply(); !ok {
			o.apologize(turn, mediator.ApologyInstability)
		}
	}
}

func (o *Orchestrator) apologize(turn *statex.Turn, text string) {
	turn.Degraded = true
	turn.Append(statex.Message{Role: statex.RoleAssistant, Content: text, Timestamp: o.now().UTC()})
}

func (o *Orchestrator) persistMemory(ctx context.Context, turn *statex.Turn) *statex.Turn {
	logger := stageLogger(turn, nodePersistMemory)

	var msgs []statex.Message
	if user, ok := turn.LatestUserMessage(); ok {
		msgs = append(msgs, user)
	}
	if reply, ok := turn.FinalReply(); ok {
		msgs = append(msgs, reply)
	}

	err := o.memory.Append(ctx, contractx.MemoryRecord{
		UserID:    turn.UserID,
		SessionID: turn.SessionID,
		Messages:  msgs,
		Metadata: map[string]any{
			"intent":         string(turn.Intent),
			"finish_session": turn.FinishSession,
		},
		CreatedAt: o.now().UTC(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("memory write failed")
	}

	switch {
	case o.sessions == nil:
	case turn.FinishSession:
		// a finished session starts clean next time
		if err := o.sessions.Delete(ctx, turn.SessionID); err != nil {
			logger.Error().Err(err).Msg("session snapshot delete failed")
		}
	default:
		if err := o.sessions.Save(ctx, statex.SnapshotOf(turn, o.now())); err != nil {
			logger.Error().Err(err).Msg("session snapshot save failed")
		}
	}
	return turn
}
