package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/agent/mediator"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

var fixedNow = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

type fakeMemory struct {
	recent    []statex.Message
	recentErr error
	appendErr error
	limits    []int
	appended  []contractx.MemoryRecord
}

func (f *fakeMemory) Recent(_ context.Context, _ string, limit int) ([]statex.Message, error) {
	f.limits = append(f.limits, limit)
	return f.recent, f.recentErr
}

func (f *fakeMemory) Append(_ context.Context, rec contractx.MemoryRecord) error {
	f.appended = append(f.appended, rec)
	return f.appendErr
}

type fakeMediator struct {
	reply   string
	block   bool
	calls   int
	prompts []string
	tools   int
}

func (f *fakeMediator) Mediate(ctx context.Context, turn *statex.Turn, prompt string, tools []contractx.ToolSchema) mediator.Outcome {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.tools = len(tools)
	if f.block {
		<-ctx.Done()
		return mediator.Outcome{Err: ctx.Err()}
	}
	turn.Append(statex.Message{Role: statex.RoleAssistant, Content: f.reply})
	return mediator.Outcome{Reply: f.reply}
}

type fakeRegistry struct{}

func (fakeRegistry) Lookup(string) (contractx.Tool, bool) { return nil, false }

func (fakeRegistry) Schemas() []contractx.ToolSchema {
	return []contractx.ToolSchema{{Name: "listar_profissionais"}, {Name: "criar_agendamento"}}
}

func newTestOrchestrator(t *testing.T, mem *fakeMemory, med *fakeMediator, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	o, err := New(mem, med, fakeRegistry{}, cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeMediator{}, fakeRegistry{}, Config{}); err == nil {
		t.Fatal("New() without context store error = nil")
	}
	if _, err := New(&fakeMemory{}, nil, fakeRegistry{}, Config{}); err == nil {
		t.Fatal("New() without mediator error = nil")
	}
	if _, err := New(&fakeMemory{}, &fakeMediator{}, nil, Config{}); err == nil {
		t.Fatal("New() without registry error = nil")
	}
}

func TestHandleTurnRunsAllStages(t *testing.T) {
	t.Parallel()

	mem := &fakeMemory{recent: []statex.Message{
		{Role: statex.RoleUser, Content: "oi"},
		{Role: statex.RoleAssistant, Content: "Olá! Como posso ajudar?"},
	}}
	med := &fakeMediator{reply: "Claro! Qual serviço?"}
	o := newTestOrchestrator(t, mem, med, Config{})

	turn := statex.NewTurn("s1", "555", "quero agendar um corte", fixedNow)
	out, err := o.HandleTurn(context.Background(), turn)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if mem.limits[0] != DefaultContextMessages {
		t.Fatalf("Recent limit = %d, want %d", mem.limits[0], DefaultContextMessages)
	}
	if !strings.Contains(out.ContextText, "assistant: Olá! Como posso ajudar?") {
		t.Fatalf("ContextText = %q", out.ContextText)
	}
	if out.Intent != statex.IntentSchedule {
		t.Fatalf("Intent = %s, want schedule", out.Intent)
	}
	if !strings.Contains(med.prompts[0], "clienteId = 555") {
		t.Fatal("scheduling prompt does not carry the resolved customer id")
	}
	if !strings.Contains(med.prompts[0], "user: oi") {
		t.Fatal("prompt does not carry the loaded context")
	}
	if med.tools != 2 {
		t.Fatalf("tools offered = %d, want 2", med.tools)
	}
	if out.NeedsHandoff || out.FinishSession || out.Degraded {
		t.Fatalf("flags = handoff:%v finish:%v degraded:%v", out.NeedsHandoff, out.FinishSession, out.Degraded)
	}

	if len(mem.appended) != 1 {
		t.Fatalf("Append calls = %d, want 1", len(mem.appended))
	}
	rec := mem.appended[0]
	if len(rec.Messages) != 2 || rec.Messages[0].Role != statex.RoleUser || rec.Messages[1].Content != "Claro! Qual serviço?" {
		t.Fatalf("persisted messages = %+v", rec.Messages)
	}
	if rec.Metadata["intent"] != "schedule" || rec.Metadata["finish_session"] != false {
		t.Fatalf("persisted metadata = %v", rec.Metadata)
	}
}

func TestPromptVariantByIntent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"que horas vocês abrem?", "das 10h às 22h"},
		{"oi, tudo bem?", "Você ajuda clientes"},
		{"preciso remarcar horário", "clienteId = 555"},
	}
	for _, tc := range cases {
		med := &fakeMediator{reply: "ok"}
		o := newTestOrchestrator(t, &fakeMemory{}, med, Config{})
		if _, err := o.HandleTurn(context.Background(), statex.NewTurn("s", "555", tc.text, fixedNow)); err != nil {
			t.Fatalf("HandleTurn(%q) error = %v", tc.text, err)
		}
		if !strings.Contains(med.prompts[0], tc.want) {
			t.Fatalf("prompt for %q does not contain %q", tc.text, tc.want)
		}
	}
}

func TestSchedulingWithoutCustomerNeedsHandoff(t *testing.T) {
	t.Parallel()

	med := &fakeMediator{reply: "ok"}
	o := newTestOrchestrator(t, &fakeMemory{}, med, Config{})

	out, _ := o.HandleTurn(context.Background(), statex.NewTurn("s", "whatsapp:abc", "quero agendar", fixedNow))
	if !out.NeedsHandoff {
		t.Fatal("NeedsHandoff = false for unresolved scheduling customer")
	}
	if !strings.Contains(med.prompts[0], "clienteId = não identificado") {
		t.Fatal("prompt should mark the customer as unidentified")
	}
}

func TestStageFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	mem := &fakeMemory{recentErr: errors.New("index down"), appendErr: errors.New("write failed")}
	med := &fakeMediator{reply: "Posso ajudar!"}
	o := newTestOrchestrator(t, mem, med, Config{})

	out, err := o.HandleTurn(context.Background(), statex.NewTurn("s", "u", "oi", fixedNow))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	reply, ok := out.FinalReply()
	if !ok || reply.Content != "Posso ajudar!" {
		t.Fatalf("FinalReply() = %+v, %v", reply, ok)
	}
	if out.ContextText != "" {
		t.Fatalf("ContextText = %q, want empty", out.ContextText)
	}
}

func TestFinishSessionIndependentOfIntent(t *testing.T) {
	t.Parallel()

	med := &fakeMediator{reply: "Até mais!"}
	o := newTestOrchestrator(t, &fakeMemory{}, med, Config{})

	out, _ := o.HandleTurn(context.Background(), statex.NewTurn("s", "555", "quero agendar, obrigado tchau", fixedNow))
	if out.Intent != statex.IntentSchedule {
		t.Fatalf("Intent = %s, want schedule", out.Intent)
	}
	if !out.FinishSession {
		t.Fatal("FinishSession = false despite farewell token")
	}
}

func TestGenerateTimeoutApologizes(t *testing.T) {
	t.Parallel()

	med := &fakeMediator{block: true}
	mem := &fakeMemory{}
	o := newTestOrchestrator(t, mem, med, Config{GenerateTimeout: 10 * time.Millisecond})

	out, err := o.HandleTurn(context.Background(), statex.NewTurn("s", "u", "oi", fixedNow))
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	reply, ok := out.FinalReply()
	if !ok || reply.Content != mediator.ApologyInstability {
		t.Fatalf("FinalReply() = %+v, %v", reply, ok)
	}
	if !out.Degraded {
		t.Fatal("Degraded = false after timeout")
	}
	if len(mem.appended) != 1 {
		t.Fatal("memory not persisted after timeout")
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	sessions := statex.NewMemoryStore()
	prof := int64(664608)
	seed := statex.NewTurn("s1", "u1", "quero cortar", fixedNow)
	seed.Draft.ProfessionalID = &prof
	seed.CustomerProfile["id"] = 555
	if err := sessions.Save(context.Background(), statex.SnapshotOf(seed, fixedNow)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	med := &fakeMediator{reply: "ok"}
	o := newTestOrchestrator(t, &fakeMemory{}, med, Config{}, WithSessionStore(sessions))

	out, _ := o.HandleTurn(context.Background(), statex.NewTurn("s1", "u1", "pode marcar amanhã", fixedNow))
	if out.Draft.ProfessionalID == nil || *out.Draft.ProfessionalID != prof {
		t.Fatalf("draft not restored: %+v", out.Draft)
	}
	if !strings.Contains(med.prompts[0], "clienteId = 555") {
		t.Fatal("restored profile id not used in scheduling prompt")
	}

	saved, err := sessions.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.LastIntent != statex.IntentSchedule {
		t.Fatalf("saved intent = %s", saved.LastIntent)
	}

	// another user's snapshot is not restored
	other, _ := o.HandleTurn(context.Background(), statex.NewTurn("s1", "intruder", "quero agendar", fixedNow))
	if other.Draft.ProfessionalID != nil {
		t.Fatal("snapshot restored for a different user")
	}
}

func TestFinishedSessionDropsSnapshot(t *testing.T) {
	t.Parallel()

	sessions := statex.NewMemoryStore()
	seed := statex.NewTurn("s1", "u1", "quero cortar", fixedNow)
	if err := sessions.Save(context.Background(), statex.SnapshotOf(seed, fixedNow)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	o := newTestOrchestrator(t, &fakeMemory{}, &fakeMediator{reply: "Até logo!"}, Config{}, WithSessionStore(sessions))
	out, _ := o.HandleTurn(context.Background(), statex.NewTurn("s1", "u1", "obrigada, tchau", fixedNow))
	if !out.FinishSession {
		t.Fatal("FinishSession = false for a farewell")
	}
	if _, err := sessions.Load(context.Background(), "s1"); !errors.Is(err, statex.ErrSnapshotNotFound) {
		t.Fatalf("Load() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestPolicyPromptCarriesCallerPolicies(t *testing.T) {
	t.Parallel()

	med := &fakeMediator{reply: "ok"}
	o := newTestOrchestrator(t, &fakeMemory{}, med, Config{})
	turn := statex.NewTurn("s", "555", "qual o preço do corte?", fixedNow)
	turn.CustomerProfile["name"] = "Joana"
	turn.PoliciesContext["policies_text"] = "Atrasos acima de 15 minutos exigem remarcação."

	if _, err := o.HandleTurn(context.Background(), turn); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	for _, want := range []string{"Atrasos acima de 15 minutos exigem remarcação.", "Cliente: Joana"} {
		if !strings.Contains(med.prompts[0], want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
