package tool

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// ValidateArgs checks that every required parameter is present and that
// present parameters have the declared type. Unknown keys are ignored.
func ValidateArgs(s contractx.ToolSchema, args map[string]any) error {
	var missing, invalid []string
	for _, p := range s.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				missing = append(missing, p.Name)
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			invalid = append(invalid, fmt.Sprintf("%s (expected %s)", p.Name, p.Type))
		}
	}
	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	sort.Strings(missing)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("%w: tool %s: %s", contractx.ErrValidation, s.Name, strings.Join(parts, "; "))
}

func typeMatches(t contractx.ParamType, v any) bool {
	switch t {
	case contractx.ParamString:
		_, ok := v.(string)
		return ok
	case contractx.ParamInteger:
		_, ok := statex.Int64(v)
		return ok
	case contractx.ParamNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case contractx.ParamBoolean:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}
