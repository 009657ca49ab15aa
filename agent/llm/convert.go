package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

func toToolInfos(tools []contractx.ToolSchema) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		params := make(map[string]*schema.ParameterInfo)
		for _, p := range t.Exposed() {
			params[p.Name] = &schema.ParameterInfo{
				Type:     dataType(p.Type),
				Desc:     p.Desc,
				Required: p.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func dataType(t contractx.ParamType) schema.DataType {
	switch t {
	case contractx.ParamInteger:
		return schema.Integer
	case contractx.ParamNumber:
		return schema.Number
	case contractx.ParamBoolean:
		return schema.Boolean
	default:
		return schema.String
	}
}

func toMessages(history []statex.Message) ([]*schema.Message, error) {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case statex.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case statex.RoleAssistant:
			if m.ToolCall == nil {
				out = append(out, schema.AssistantMessage(m.Content, nil))
				continue
			}
			args, err := json.Marshal(m.ToolCall.Arguments)
			if err != nil {
				return nil, fmt.Errorf("%w: encode tool call %s: %v", contractx.ErrValidation, m.ToolCall.Name, err)
			}
			out = append(out, schema.AssistantMessage(m.Content, []schema.ToolCall{{
				ID:   m.ToolCall.ID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      m.ToolCall.Name,
					Arguments: string(args),
				},
			}}))
		case statex.RoleTool:
			out = append(out, schema.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out, nil
}

// fromMessage keeps only the first tool call of a response.
func fromMessage(msg *schema.Message) (contractx.ModelResponse, error) {
	if msg == nil {
		return contractx.ModelResponse{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	if len(msg.ToolCalls) == 0 {
		return contractx.TextResponse(strings.TrimSpace(msg.Content)), nil
	}

	call := msg.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return contractx.ModelResponse{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
	}
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.ModelResponse{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
		}
	}
	return contractx.ToolInvocation(statex.ToolCall{ID: call.ID, Name: name, Arguments: args}), nil
}
