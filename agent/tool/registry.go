// Package tool holds the static registry of booking operations the model may
// request, with their schemas, binders and executors.
package tool

import (
	"fmt"
	"strings"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
)

// Registry is built once at startup and never mutated afterwards.
type Registry struct {
	tools map[string]contractx.Tool
	order []string
}

var _ contractx.ToolRegistry = (*Registry)(nil)

func NewRegistry(tools ...contractx.Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]contractx.Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := strings.TrimSpace(t.Schema().Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %s", contractx.ErrValidation, name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (contractx.Tool, bool) {
	t, ok := r.tools[strings.TrimSpace(name)]
	return t, ok
}

// Schemas returns tool schemas in registration order.
func (r *Registry) Schemas() []contractx.ToolSchema {
	out := make([]contractx.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema())
	}
	return out
}
