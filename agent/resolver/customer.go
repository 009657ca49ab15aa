package resolver

import (
	"strconv"
	"strings"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// ResolveCustomerID returns the first id found in the customer profile, then
// the appointment draft, then the user id when it is entirely numeric.
// Model output is never consulted.
func ResolveCustomerID(turn *statex.Turn) (int64, bool) {
	if turn == nil {
		return 0, false
	}
	if raw, ok := turn.CustomerProfile["id"]; ok && raw != nil {
		if id, ok := statex.Int64(raw); ok {
			return id, true
		}
	}
	if turn.Draft.CustomerID != nil {
		return *turn.Draft.CustomerID, true
	}
	return numericID(turn.UserID)
}

func numericID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
