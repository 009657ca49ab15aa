package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/agent/resolver"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
	"github.com/gmoreiraDEV/basix-engine/pkg/booking"
)

const (
	NameListProfessionals        = "listar_profissionais"
	NameListProfessionalServices = "listar_servicos_profissional"
	NameListServices             = "listar_servicos"
	NameCreateAppointment        = "criar_agendamento"
	NameListAppointments         = "listar_agendamentos"
)

// BookingAPI is the subset of the booking client the tools call.
type BookingAPI interface {
	ListProfessionals(ctx context.Context, page, pageSize int) ([]booking.Professional, error)
	ListProfessionalServices(ctx context.Context, professionalID int64, page, pageSize int) ([]booking.Service, error)
	ListServices(ctx context.Context, f booking.ServiceFilter) ([]booking.Service, error)
	CreateAppointment(ctx context.Context, req booking.CreateAppointmentRequest) (map[string]any, error)
	ListAppointments(ctx context.Context, f booking.AppointmentFilter) ([]map[string]any, error)
}

// CatalogSyncer receives every catalog page fetched by the tools.
type CatalogSyncer interface {
	SyncProfessionals(ctx context.Context, list []booking.Professional) (bool, error)
	SyncServices(ctx context.Context, professionalID int64, list []booking.Service) (bool, error)
}

// NewBookingRegistry wires the five booking tools. sync may be nil.
func NewBookingRegistry(api BookingAPI, sync CatalogSyncer) (*Registry, error) {
	if api == nil {
		return nil, errors.New("booking api is required")
	}
	c := &catalogReader{api: api, sync: sync}
	return NewRegistry(
		&listProfessionals{catalog: c},
		&listProfessionalServices{catalog: c},
		&listServices{api: api},
		&createAppointment{api: api, catalog: c, rules: resolver.DefaultServiceRules},
		&listAppointments{api: api},
	)
}

// catalogReader fetches catalog pages and mirrors them into the index.
// Sync failures never fail the read.
type catalogReader struct {
	api  BookingAPI
	sync CatalogSyncer
}

func (c *catalogReader) professionals(ctx context.Context, page, pageSize int) ([]booking.Professional, error) {
	list, err := c.api.ListProfessionals(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list professionals: %v", contractx.ErrExternalService, err)
	}
	if c.sync != nil {
		if _, err := c.sync.SyncProfessionals(ctx, list); err != nil {
			log.Warn().Err(err).Msg("professionals catalog sync failed")
		}
	}
	return list, nil
}

func (c *catalogReader) services(ctx context.Context, professionalID int64, page, pageSize int) ([]booking.Service, error) {
	list, err := c.api.ListProfessionalServices(ctx, professionalID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list services of professional %d: %v", contractx.ErrExternalService, professionalID, err)
	}
	for i := range list {
		if list[i].ProfessionalID == 0 {
			list[i].ProfessionalID = professionalID
		}
	}
	if c.sync != nil {
		if _, err := c.sync.SyncServices(ctx, professionalID, list); err != nil {
			log.Warn().Err(err).Int64("professional_id", professionalID).Msg("services catalog sync failed")
		}
	}
	return list, nil
}

/* ---------------------------- listar_profissionais ---------------------------- */

type listProfessionals struct {
	catalog *catalogReader
}

func (t *listProfessionals) Schema() contractx.ToolSchema {
	return contractx.ToolSchema{
		Name:        NameListProfessionals,
		Description: "Lista os profissionais do estabelecimento.",
		Params: []contractx.ParamSpec{
			{Name: "page", Type: contractx.ParamInteger, Desc: "Página, começa em 1"},
			{Name: "pageSize", Type: contractx.ParamInteger, Desc: "Itens por página"},
		},
	}
}

func (t *listProfessionals) Execute(ctx context.Context, args map[string]any, _ *statex.Turn) (any, error) {
	list, err := t.catalog.professionals(ctx, intArg(args, "page"), intArg(args, "pageSize"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": list}, nil
}

/* ------------------------ listar_servicos_profissional ------------------------ */

type listProfessionalServices struct {
	catalog *catalogReader
}

func (t *listProfessionalServices) Schema() contractx.ToolSchema {
	return contractx.ToolSchema{
		Name:        NameListProfessionalServices,
		Description: "Lista os serviços oferecidos por um profissional.",
		Params: []contractx.ParamSpec{
			{Name: statex.ArgProfessionalID, Type: contractx.ParamInteger, Desc: "ID do profissional", Required: true},
			{Name: "page", Type: contractx.ParamInteger, Desc: "Página, começa em 1"},
			{Name: "pageSize", Type: contractx.ParamInteger, Desc: "Itens por página"},
		},
	}
}

func (t *listProfessionalServices) Execute(ctx context.Context, args map[string]any, _ *statex.Turn) (any, error) {
	id, _ := statex.Int64(args[statex.ArgProfessionalID])
	list, err := t.catalog.services(ctx, id, intArg(args, "page"), intArg(args, "pageSize"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"data": list}, nil
}

/* ------------------------------- listar_servicos ------------------------------- */

type listServices struct {
	api BookingAPI
}

func (t *listServices) Schema() contractx.ToolSchema {
	return contractx.ToolSchema{
		Name:        NameListServices,
		Description: "Lista os serviços do estabelecimento, com filtros opcionais.",
		Params: []contractx.ParamSpec{
			{Name: "nome", Type: contractx.ParamString, Desc: "Nome do serviço"},
			{Name: "categoria", Type: contractx.ParamString, Desc: "Categoria do serviço"},
			{Name: "somenteVisiveisCliente", Type: contractx.ParamBoolean, Desc: "Somente serviços visíveis ao cliente"},
		},
	}
}

func (t *listServices) Execute(ctx context.Context, args map[string]any, _ *statex.Turn) (any, error) {
	f := booking.ServiceFilter{}
	f.Name, _ = args["nome"].(string)
	f.Category, _ = args["categoria"].(string)
	if v, ok := args["somenteVisiveisCliente"].(bool); ok {
		f.OnlyClientVisible = &v
	}
	list, err := t.api.ListServices(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: list services: %v", contractx.ErrExternalService, err)
	}
	return map[string]any{"data": list}, nil
}

/* ------------------------------ criar_agendamento ------------------------------ */

type createAppointment struct {
	api     BookingAPI
	catalog *catalogReader
	rules   resolver.ServiceRules
}

func (t *createAppointment) Schema() contractx.ToolSchema {
	return contractx.ToolSchema{
		Name:        NameCreateAppointment,
		Description: "Cria um agendamento para o cliente atual. Use apenas IDs, durações e valores retornados pelas ferramentas.",
		Params: []contractx.ParamSpec{
			{Name: statex.ArgServiceID, Type: contractx.ParamInteger, Desc: "ID do serviço", Required: true},
			{Name: statex.ArgCustomerID, Type: contractx.ParamInteger, Required: true, Bound: true},
			{Name: statex.ArgProfessionalID, Type: contractx.ParamInteger, Desc: "ID do profissional", Required: true},
			{Name: statex.ArgStartsAt, Type: contractx.ParamString, Desc: "Início no formato ISO 8601, ex. 2025-01-06T18:00:00", Required: true},
			{Name: statex.ArgDuration, Type: contractx.ParamInteger, Desc: "Duração em minutos", Required: true},
			{Name: statex.ArgPrice, Type: contractx.ParamInteger, Desc: "Valor do serviço", Required: true},
			{Name: statex.ArgNotes, Type: contractx.ParamString, Desc: "Observações do cliente"},
			{Name: statex.ArgConfirmed, Type: contractx.ParamBoolean, Desc: "Se o cliente confirmou o horário", Required: true},
		},
	}
}

// Bind overwrites the customer id with the resolved one and fills the
// professional and the service group when the model left them out. A
// partially supplied service group is kept as is so validation rejects it.
func (t *createAppointment) Bind(ctx context.Context, args map[string]any, turn *statex.Turn) error {
	customerID, ok := resolver.ResolveCustomerID(turn)
	if !ok {
		return fmt.Errorf("%w: customer id is unknown", contractx.ErrResolution)
	}
	args[statex.ArgCustomerID] = customerID

	if !present(args, statex.ArgNotes) {
		args[statex.ArgNotes] = ""
	}

	// servicoId, duracaoEmMinutos and valor travel together. A partial group
	// fails validation, so nothing is fetched for it.
	group := 0
	for _, name := range []string{statex.ArgServiceID, statex.ArgDuration, statex.ArgPrice} {
		if present(args, name) {
			group++
		}
	}
	if group > 0 && group < 3 {
		return nil
	}

	queries := turn.UserQueries()

	if !present(args, statex.ArgProfessionalID) {
		if turn.Draft.ProfessionalID != nil {
			args[statex.ArgProfessionalID] = *turn.Draft.ProfessionalID
		} else if list, err := t.catalog.professionals(ctx, 1, 0); err != nil {
			log.Warn().Err(err).Msg("could not load professionals for binding")
		} else if p, ok := firstProfessional(queries, list); ok {
			args[statex.ArgProfessionalID] = p.ID
		}
	}

	if group == 0 {
		t.bindService(ctx, args, turn, queries)
	}
	return nil
}

func (t *createAppointment) bindService(ctx context.Context, args map[string]any, turn *statex.Turn, queries []string) {
	d := turn.Draft
	if d.ServiceID != nil && d.DurationMinutes != nil && d.Price != nil {
		args[statex.ArgServiceID] = *d.ServiceID
		args[statex.ArgDuration] = *d.DurationMinutes
		args[statex.ArgPrice] = *d.Price
		return
	}

	profID, ok := statex.Int64(args[statex.ArgProfessionalID])
	if !ok {
		return
	}
	list, err := t.catalog.services(ctx, profID, 1, 0)
	if err != nil {
		log.Warn().Err(err).Int64("professional_id", profID).Msg("could not load services for binding")
		return
	}
	// Resolve falls back to any candidate, so all customer messages are matched together
	svc, ok := t.rules.Resolve(strings.Join(queries, "\n"), &profID, list)
	if !ok {
		return
	}
	args[statex.ArgServiceID] = svc.ID
	if svc.DurationMinutes > 0 {
		args[statex.ArgDuration] = svc.DurationMinutes
	}
	if svc.Price > 0 {
		args[statex.ArgPrice] = int64(math.Round(svc.Price))
	}
}

// firstProfessional resolves against each query in turn, so the newest
// mention wins over older ones.
func firstProfessional(queries []string, list []booking.Professional) (booking.Professional, bool) {
	for _, q := range queries {
		if p, ok := resolver.ResolveProfessional(q, list); ok {
			return p, true
		}
	}
	return booking.Professional{}, false
}

func (t *createAppointment) Execute(ctx context.Context, args map[string]any, _ *statex.Turn) (any, error) {
	req := booking.CreateAppointmentRequest{}
	req.ServiceID, _ = statex.Int64(args[statex.ArgServiceID])
	req.CustomerID, _ = statex.Int64(args[statex.ArgCustomerID])
	req.ProfessionalID, _ = statex.Int64(args[statex.ArgProfessionalID])
	req.DurationMinutes, _ = statex.Int64(args[statex.ArgDuration])
	req.Price, _ = statex.Int64(args[statex.ArgPrice])
	req.StartsAt, _ = args[statex.ArgStartsAt].(string)
	req.Notes, _ = args[statex.ArgNotes].(string)
	req.Confirmed, _ = args[statex.ArgConfirmed].(bool)

	out, err := t.api.CreateAppointment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: create appointment: %v", contractx.ErrExternalService, err)
	}
	return out, nil
}

/* ----------------------------- listar_agendamentos ----------------------------- */

type listAppointments struct {
	api BookingAPI
}

func (t *listAppointments) Schema() contractx.ToolSchema {
	return contractx.ToolSchema{
		Name:        NameListAppointments,
		Description: "Lista agendamentos em um intervalo de datas.",
		Params: []contractx.ParamSpec{
			{Name: "dataInicio", Type: contractx.ParamString, Desc: "Data inicial, AAAA-MM-DD", Required: true},
			{Name: "dataFim", Type: contractx.ParamString, Desc: "Data final, AAAA-MM-DD", Required: true},
			{Name: statex.ArgCustomerID, Type: contractx.ParamInteger, Desc: "Filtra pelo cliente atual"},
		},
	}
}

// Bind replaces a model supplied clienteId with the resolved customer and
// drops it when no customer can be resolved.
func (t *listAppointments) Bind(_ context.Context, args map[string]any, turn *statex.Turn) error {
	if _, asked := args[statex.ArgCustomerID]; !asked {
		return nil
	}
	if id, ok := resolver.ResolveCustomerID(turn); ok {
		args[statex.ArgCustomerID] = id
	} else {
		delete(args, statex.ArgCustomerID)
	}
	return nil
}

func (t *listAppointments) Execute(ctx context.Context, args map[string]any, _ *statex.Turn) (any, error) {
	f := booking.AppointmentFilter{}
	f.From, _ = args["dataInicio"].(string)
	f.To, _ = args["dataFim"].(string)
	if id, ok := statex.Int64(args[statex.ArgCustomerID]); ok {
		f.CustomerID = &id
	}
	list, err := t.api.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %v", contractx.ErrExternalService, err)
	}
	return map[string]any{"data": list}, nil
}

func present(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func intArg(args map[string]any, key string) int {
	v, ok := statex.Int64(args[key])
	if !ok {
		return 0
	}
	return int(v)
}
