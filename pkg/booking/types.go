package booking

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Professional struct {
	ID       int64    `json:"id"`
	Name     string   `json:"nome"`
	Nickname string   `json:"apelido,omitempty"`
	Category string   `json:"categoria,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type Service struct {
	ID              int64    `json:"id"`
	Name            string   `json:"nome"`
	Description     string   `json:"descricao,omitempty"`
	Category        string   `json:"categoria,omitempty"`
	DurationMinutes int64    `json:"duracaoEmMinutos,omitempty"`
	Price           float64  `json:"valor,omitempty"`
	ProfessionalID  int64    `json:"profissionalId,omitempty"`
	VisibleToClient bool     `json:"visivelCliente,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// CreateAppointmentRequest is the POST /agendamentos body. Every field is
// required by the API.
type CreateAppointmentRequest struct {
	ServiceID       int64  `json:"servicoId"`
	CustomerID      int64  `json:"clienteId"`
	ProfessionalID  int64  `json:"profissionalId"`
	StartsAt        string `json:"dataHoraInicio"`
	DurationMinutes int64  `json:"duracaoEmMinutos"`
	Price           int64  `json:"valor"`
	Notes           string `json:"observacoes"`
	Confirmed       bool   `json:"confirmado"`
}

type ServiceFilter struct {
	Name              string
	Category          string
	OnlyClientVisible *bool
	Page              int
	PageSize          int
}

type AppointmentFilter struct {
	From       string
	To         string
	CustomerID *int64
}

// page is the list envelope returned by the API. Some endpoints answer with
// a bare array instead.
type page[T any] struct {
	Data []T `json:"data"`
}

func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var p page[T]
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p.Data, nil
}

// Tag lists sometimes arrive as a comma separated string.
func (p *Professional) UnmarshalJSON(b []byte) error {
	type alias Professional
	aux := struct {
		*alias
		Tags json.RawMessage `json:"tags,omitempty"`
		Name string          `json:"name,omitempty"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = aux.Name
	}
	p.Tags = decodeTags(aux.Tags)
	return nil
}

func (s *Service) UnmarshalJSON(b []byte) error {
	type alias Service
	aux := struct {
		*alias
		Tags json.RawMessage `json:"tags,omitempty"`
		Name string          `json:"name,omitempty"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if s.Name == "" {
		s.Name = aux.Name
	}
	s.Tags = decodeTags(aux.Tags)
	return nil
}

func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		var out []string
		for _, t := range strings.Split(joined, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	return nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
