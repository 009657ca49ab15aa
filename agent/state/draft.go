package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Booking argument keys shared by the draft and the booking tools.
const (
	ArgCustomerID     = "clienteId"
	ArgProfessionalID = "profissionalId"
	ArgServiceID      = "servicoId"
	ArgStartsAt       = "dataHoraInicio"
	ArgDuration       = "duracaoEmMinutos"
	ArgPrice          = "valor"
	ArgNotes          = "observacoes"
	ArgConfirmed      = "confirmado"
)

// AppointmentDraft accumulates booking fields across turns. Fields are only
// written from resolver results or validated tool arguments.
type AppointmentDraft struct {
	CustomerID      *int64  `json:"clienteId,omitempty"`
	ProfessionalID  *int64  `json:"profissionalId,omitempty"`
	ServiceID       *int64  `json:"servicoId,omitempty"`
	StartsAt        *string `json:"dataHoraInicio,omitempty"`
	DurationMinutes *int64  `json:"duracaoEmMinutos,omitempty"`
	Price           *int64  `json:"valor,omitempty"`
	Notes           *string `json:"observacoes,omitempty"`
	Confirmed       *bool   `json:"confirmado,omitempty"`
}

func (d AppointmentDraft) IsEmpty() bool {
	return d.CustomerID == nil && d.ProfessionalID == nil && d.ServiceID == nil &&
		d.StartsAt == nil && d.DurationMinutes == nil && d.Price == nil &&
		d.Notes == nil && d.Confirmed == nil
}

// Absorb copies recognised booking keys from validated tool arguments.
// Keys with values of the wrong kind are ignored.
func (d *AppointmentDraft) Absorb(args map[string]any) {
	for key, raw := range args {
		switch key {
		case ArgCustomerID:
			if v, ok := Int64(raw); ok {
				d.CustomerID = &v
			}
		case ArgProfessionalID:
			if v, ok := Int64(raw); ok {
				d.ProfessionalID = &v
			}
		case ArgServiceID:
			if v, ok := Int64(raw); ok {
				d.ServiceID = &v
			}
		case ArgDuration:
			if v, ok := Int64(raw); ok {
				d.DurationMinutes = &v
			}
		case ArgPrice:
			if v, ok := Int64(raw); ok {
				d.Price = &v
			}
		case ArgStartsAt:
			if v, ok := raw.(string); ok && strings.TrimSpace(v) != "" {
				d.StartsAt = &v
			}
		case ArgNotes:
			if v, ok := raw.(string); ok {
				d.Notes = &v
			}
		case ArgConfirmed:
			if v, ok := raw.(bool); ok {
				d.Confirmed = &v
			}
		}
	}
}

// Int64 converts JSON-decoded numbers and numeric strings to int64.
// Fractional values are rejected.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
