// Package prompt holds the system prompt templates for each intent family.
package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

var (
	//go:embed template/base.txt
	baseRaw string

	//go:embed template/scheduling.txt
	schedulingRaw string

	//go:embed template/policy.txt
	policyRaw string
)

type Kind string

const (
	KindBase       Kind = "base"
	KindScheduling Kind = "scheduling"
	KindPolicy     Kind = "policy"
)

// KindFor maps an intent to its prompt family.
func KindFor(intent statex.Intent) Kind {
	switch {
	case intent.IsScheduling():
		return KindScheduling
	case intent == statex.IntentInfo:
		return KindPolicy
	default:
		return KindBase
	}
}

// Vars are the template variables. Context, CustomerName and Policies fall
// back to a placeholder when empty; the rest render as given.
type Vars struct {
	CustomerID   string
	CustomerName string
	Context      string
	Policies     string
	Today        string
}

func (v Vars) values() map[string]any {
	return map[string]any{
		"customer_id":   v.CustomerID,
		"customer_name": orDefault(v.CustomerName, "cliente"),
		"context":       orDefault(v.Context, "(sem histórico)"),
		"policies":      orDefault(v.Policies, "(nenhuma política adicional)"),
		"today":         v.Today,
	}
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// PromptSet holds loaded prompt templates.
type PromptSet struct {
	templates map[Kind]string
}

// LoadPromptSet returns the embedded templates.
func LoadPromptSet() PromptSet {
	return PromptSet{templates: map[Kind]string{
		KindBase:       strings.TrimSpace(baseRaw),
		KindScheduling: strings.TrimSpace(schedulingRaw),
		KindPolicy:     strings.TrimSpace(policyRaw),
	}}
}

// With returns a copy with the template for kind replaced.
func (p PromptSet) With(kind Kind, template string) PromptSet {
	out := make(map[Kind]string, len(p.templates)+1)
	for k, v := range p.templates {
		out[k] = v
	}
	out[kind] = strings.TrimSpace(template)
	return PromptSet{templates: out}
}

func (p PromptSet) Render(ctx context.Context, kind Kind, vars Vars) (string, error) {
	raw := p.templates[kind]
	if raw == "" {
		return "", fmt.Errorf("%w: %s", contractx.ErrPromptMissing, kind)
	}

	tpl := einoprompt.FromMessages(schema.FString, schema.SystemMessage(raw))
	msgs, err := tpl.Format(ctx, vars.values())
	if err != nil {
		return "", fmt.Errorf("%w: render %s: %v", contractx.ErrPromptMissing, kind, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("%w: %s rendered empty", contractx.ErrPromptMissing, kind)
	}
	return msgs[0].Content, nil
}
