// Package orchestrator runs one inbound message through the fixed turn
// pipeline: load context, detect intent, generate the reply, persist memory.
package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/agent/intent"
	"github.com/gmoreiraDEV/basix-engine/agent/mediator"
	"github.com/gmoreiraDEV/basix-engine/agent/prompt"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

const DefaultContextMessages = 10

// Config is read with the AGENT prefix.
type Config struct {
	ContextMessages int           `split_words:"true" default:"10"`
	HistoryWindow   int           `split_words:"true" default:"6"`
	GenerateTimeout time.Duration `split_words:"true" default:"0s"`
}

// Mediator is the single model round-trip used by GenerateResponse.
type Mediator interface {
	Mediate(ctx context.Context, turn *statex.Turn, prompt string, tools []contractx.ToolSchema) mediator.Outcome
}

type Orchestrator struct {
	memory     contractx.ContextStore
	sessions   statex.Store
	classifier *intent.Classifier
	mediator   Mediator
	tools      contractx.ToolRegistry
	prompts    prompt.PromptSet

	contextMessages int
	generateTimeout time.Duration

	graphRunner compose.Runnable[*statex.Turn, *statex.Turn]

	now func() time.Time
}

type Option func(*Orchestrator)

func WithSessionStore(s statex.Store) Option {
	return func(o *Orchestrator) {
		o.sessions = s
	}
}

func WithClassifier(c *intent.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

func WithPrompts(p prompt.PromptSet) Option {
	return func(o *Orchestrator) {
		o.prompts = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	memory contractx.ContextStore,
	med Mediator,
	tools contractx.ToolRegistry,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if memory == nil {
		return nil, errors.New("context store is required")
	}
	if med == nil {
		return nil, errors.New("mediator is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}

	contextMessages := cfg.ContextMessages
	if contextMessages <= 0 {
		contextMessages = DefaultContextMessages
	}

	o := &Orchestrator{
		memory:          memory,
		classifier:      intent.Default,
		mediator:        med,
		tools:           tools,
		prompts:         prompt.LoadPromptSet(),
		contextMessages: contextMessages,
		generateTimeout: cfg.GenerateTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs every stage in order. Stage failures degrade the reply
// instead of aborting, so the returned error only reports a graph failure.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn *statex.Turn) (*statex.Turn, error) {
	if turn == nil {
		return nil, errors.New("turn is nil")
	}
	return o.graphRunner.Invoke(ctx, turn)
}

func formatCustomerID(id int64, ok bool) string {
	if !ok {
		return "não identificado"
	}
	return strconv.FormatInt(id, 10)
}

// profileString returns the first non-blank string value among keys.
func profileString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
