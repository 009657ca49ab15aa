// Package mediator runs one model round-trip that may execute a single tool
// call and folds its result into a second model pass.
package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
	toolx "github.com/gmoreiraDEV/basix-engine/agent/tool"
)

const DefaultWindow = 6

// User-visible fallbacks.
const (
	ApologyProcessing     = "Tive um erro ao processar sua solicitação. Pode tentar novamente?"
	ApologyToolFailure    = "Tive um erro aqui do meu lado, mas quero te ajudar. Pode tentar novamente por favor?"
	ApologyInstability    = "Estou passando por uma instabilidade no momento. Pode tentar novamente em instantes?"
	ApologyIdentification = "Não consegui localizar o seu cadastro para concluir o agendamento. Vou chamar alguém da equipe para te ajudar, tudo bem?"
	FollowUpReply         = "Certo! Pode me passar mais algum detalhe para eu continuar?"
)

// Outcome describes what happened during mediation. Err is informational;
// the reply is always usable.
type Outcome struct {
	Reply      string
	Tool       string
	ToolCalled bool
	Err        error
}

type Option func(*Mediator)

func WithWindow(n int) Option {
	return func(m *Mediator) {
		if n > 0 {
			m.window = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Mediator) {
		if now != nil {
			m.now = now
		}
	}
}

type Mediator struct {
	model    contractx.ChatModel
	registry contractx.ToolRegistry
	window   int
	now      func() time.Time
}

func New(model contractx.ChatModel, registry contractx.ToolRegistry, opts ...Option) (*Mediator, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	m := &Mediator{
		model:    model,
		registry: registry,
		window:   DefaultWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Mediate appends the assistant reply, and any tool exchange, to turn.History.
// At most one tool is executed per call.
func (m *Mediator) Mediate(ctx context.Context, turn *statex.Turn, prompt string, tools []contractx.ToolSchema) Outcome {
	logger := log.With().Str("session_id", turn.SessionID).Str("user_id", turn.UserID).Logger()

	window := turn.Window(m.window)
	first, err := m.model.Generate(ctx, contractx.ModelRequest{
		SystemPrompt: prompt,
		History:      window,
		Tools:        tools,
	})
	if err != nil {
		logger.Error().Err(err).Msg("model call failed")
		return m.fail(turn, ApologyInstability, Outcome{Err: fmt.Errorf("%w: %v", contractx.ErrExternalService, err)})
	}

	if !first.IsToolInvocation() {
		return m.reply(turn, first.Text, Outcome{})
	}

	call := *first.ToolCall
	if strings.TrimSpace(call.ID) == "" {
		call.ID = "call_" + uuid.NewString()
	}
	out := Outcome{Tool: call.Name}
	logger = logger.With().Str("tool", call.Name).Logger()

	tool, ok := m.registry.Lookup(call.Name)
	if !ok {
		logger.Warn().Msg("model requested an unregistered tool")
		out.Err = fmt.Errorf("%w: %s", contractx.ErrUnknownTool, call.Name)
		return m.fail(turn, ApologyProcessing, out)
	}

	args := make(map[string]any, len(call.Arguments)+2)
	for k, v := range call.Arguments {
		args[k] = v
	}

	var toolContent string
	bindErr := bind(ctx, tool, args, turn)
	switch {
	case errors.Is(bindErr, contractx.ErrResolution):
		logger.Warn().Err(bindErr).Msg("tool arguments could not be resolved")
		turn.NeedsHandoff = true
		out.Err = bindErr
		return m.fail(turn, ApologyIdentification, out)
	case bindErr != nil:
		toolContent = errorContent(bindErr)
		out.Err = bindErr
	default:
		if err := toolx.ValidateArgs(tool.Schema(), args); err != nil {
			logger.Info().Err(err).Msg("tool call rejected")
			toolContent = errorContent(err)
			out.Err = err
			break
		}
		turn.Draft.Absorb(args)

		result, err := tool.Execute(ctx, args, turn)
		if err != nil {
			logger.Error().Err(err).Msg("tool execution failed")
			out.ToolCalled = true
			out.Err = err
			return m.fail(turn, ApologyToolFailure, out)
		}
		out.ToolCalled = true
		toolContent = encodeResult(result)
	}

	invocation := statex.Message{
		Role:      statex.RoleAssistant,
		ToolName:  call.Name,
		ToolCall:  &call,
		Timestamp: m.now().UTC(),
	}
	toolMsg := statex.Message{
		Role:       statex.RoleTool,
		Content:    toolContent,
		ToolName:   call.Name,
		ToolCallID: call.ID,
		Timestamp:  m.now().UTC(),
	}
	turn.Append(invocation)
	turn.Append(toolMsg)

	history := append(window, invocation, toolMsg)
	second, err := m.model.Generate(ctx, contractx.ModelRequest{
		SystemPrompt: prompt,
		History:      history,
		Tools:        tools,
	})
	if err != nil {
		logger.Error().Err(err).Msg("second model call failed")
		out.Err = fmt.Errorf("%w: %v", contractx.ErrExternalService, err)
		return m.fail(turn, ApologyInstability, out)
	}
	if second.IsToolInvocation() {
		logger.Info().Str("deferred_tool", second.ToolCall.Name).Msg("second tool call deferred to next turn")
		return m.reply(turn, FollowUpReply, out)
	}
	return m.reply(turn, second.Text, out)
}

func (m *Mediator) reply(turn *statex.Turn, text string, out Outcome) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		text = FollowUpReply
	}
	turn.Append(statex.Message{Role: statex.RoleAssistant, Content: text, Timestamp: m.now().UTC()})
	out.Reply = text
	return out
}

func (m *Mediator) fail(turn *statex.Turn, apology string, out Outcome) Outcome {
	turn.Degraded = true
	return m.reply(turn, apology, out)
}

func bind(ctx context.Context, tool contractx.Tool, args map[string]any, turn *statex.Turn) error {
	b, ok := tool.(contractx.Binder)
	if !ok {
		return nil
	}
	return b.Bind(ctx, args, turn)
}

func errorContent(err error) string {
	raw, _ := json.Marshal(map[string]any{"error": err.Error()})
	return string(raw)
}

func encodeResult(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case nil:
		return "{}"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
