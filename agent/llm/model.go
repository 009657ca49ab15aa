// Package llm adapts an eino tool-calling chat model to the agent's
// model-provider boundary.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
)

type runner = compose.Runnable[map[string]any, *schema.Message]

// ChatModel compiles one prompt->model graph per distinct tool set and
// reuses it across turns.
type ChatModel struct {
	base einomodel.ToolCallingChatModel

	mu      sync.Mutex
	runners map[string]runner
}

var _ contractx.ChatModel = (*ChatModel)(nil)

func NewChatModel(ctx context.Context, cfg Config) (*ChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orCfg := cfg.OpenRouter()
	m, err := orCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", contractx.ErrModelInvoke, err)
	}
	return Wrap(m)
}

func Wrap(m einomodel.ToolCallingChatModel) (*ChatModel, error) {
	if m == nil {
		return nil, errors.New("chat model is required")
	}
	return &ChatModel{base: m, runners: make(map[string]runner)}, nil
}

func (c *ChatModel) Generate(ctx context.Context, req contractx.ModelRequest) (contractx.ModelResponse, error) {
	r, err := c.runnerFor(ctx, req.Tools)
	if err != nil {
		return contractx.ModelResponse{}, err
	}
	history, err := toMessages(req.History)
	if err != nil {
		return contractx.ModelResponse{}, err
	}

	msg, err := r.Invoke(ctx, map[string]any{
		"system_prompt": req.SystemPrompt,
		"history":       history,
	})
	if err != nil {
		return contractx.ModelResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return fromMessage(msg)
}

func (c *ChatModel) runnerFor(ctx context.Context, tools []contractx.ToolSchema) (runner, error) {
	key := toolsKey(tools)

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.runners[key]; ok {
		return r, nil
	}

	m := c.base
	if len(tools) > 0 {
		bound, err := c.base.WithTools(toToolInfos(tools))
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		m = bound
	}
	r, err := compileModelGraph(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	c.runners[key] = r
	return r, nil
}

func compileModelGraph(ctx context.Context, m einomodel.BaseChatModel) (runner, error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system_prompt}"),
		schema.MessagesPlaceholder("history", false),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", m); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	r, err := graph.Compile(ctx, compose.WithGraphName("llm.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile model graph: %w", err)
	}
	return r, nil
}

func toolsKey(tools []contractx.ToolSchema) string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
