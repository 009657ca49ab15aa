package resolver

import (
	"testing"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
	"github.com/gmoreiraDEV/basix-engine/pkg/booking"
)

func ptr[T any](v T) *T { return &v }

func TestResolveCustomerIDPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		profile map[string]any
		draft   *int64
		userID  string
		want    int64
		wantOK  bool
	}{
		{"profile wins", map[string]any{"id": 555}, ptr(int64(1)), "2", 555, true},
		{"profile from json number", map[string]any{"id": float64(556)}, nil, "", 556, true},
		{"draft before user", map[string]any{}, ptr(int64(7)), "8", 7, true},
		{"numeric user", nil, nil, "9999", 9999, true},
		{"non numeric user", nil, nil, "whatsapp:+5511", 0, false},
		{"empty", nil, nil, "", 0, false},
		{"nil profile id", map[string]any{"id": nil}, nil, "12", 12, true},
	}

	for _, tc := range cases {
		turn := &statex.Turn{UserID: tc.userID, CustomerProfile: tc.profile}
		turn.Draft.CustomerID = tc.draft
		got, ok := ResolveCustomerID(turn)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("%s: ResolveCustomerID() = (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestResolveServicePrefersHaircut(t *testing.T) {
	t.Parallel()

	candidates := []booking.Service{
		{ID: 10, Name: "Depilação", Category: "Depilação"},
		{ID: 20, Name: "Corte Feminino", Category: "Cabelo", DurationMinutes: 50, Price: 150, ProfessionalID: 664608},
	}

	got, ok := ResolveService("quero cortar meu cabelo", nil, candidates)
	if !ok {
		t.Fatal("ResolveService() found nothing")
	}
	if got.ID != 20 {
		t.Fatalf("ResolveService() = %d, want 20", got.ID)
	}
}

func TestResolveServiceOrdersCorteFirst(t *testing.T) {
	t.Parallel()

	candidates := []booking.Service{
		{ID: 1, Name: "Hidratação de cabelo", Category: "Cabelo"},
		{ID: 2, Name: "Corte Masculino", Category: "Cabelo"},
		{ID: 3, Name: "Corte Infantil", Category: "Cabelo"},
	}

	got, _ := ResolveService("cabelo", nil, candidates)
	if got.ID != 2 {
		t.Fatalf("ResolveService() = %d, want 2", got.ID)
	}
}

func TestResolveServicePrefersProfessional(t *testing.T) {
	t.Parallel()

	candidates := []booking.Service{
		{ID: 2, Name: "Corte", Category: "Cabelo", ProfessionalID: 1},
		{ID: 3, Name: "Corte", Category: "Cabelo", ProfessionalID: 664608},
		{ID: 4, Name: "Unha gel", Category: "Unhas", ProfessionalID: 664608},
	}

	got, _ := ResolveService("corte", ptr(int64(664608)), candidates)
	if got.ID != 3 {
		t.Fatalf("ResolveService() = %d, want 3", got.ID)
	}

	got, _ = ResolveService("qualquer", ptr(int64(999)), candidates)
	if got.ID != 2 {
		t.Fatalf("ResolveService() = %d, want first survivor 2", got.ID)
	}
}

func TestResolveServiceNone(t *testing.T) {
	t.Parallel()

	candidates := []booking.Service{
		{ID: 10, Name: "Depilação", Category: "Depilação"},
		{ID: 11, Name: "Pé e mão", Category: "Manicure"},
	}
	if _, ok := ResolveService("quero cortar", nil, candidates); ok {
		t.Fatal("ResolveService() matched an excluded category")
	}
	if _, ok := ResolveService("", nil, nil); ok {
		t.Fatal("ResolveService() matched an empty list")
	}
}

func TestServiceRulesAreConfigurable(t *testing.T) {
	t.Parallel()

	rules := ServiceRules{
		ExcludedCategories: []string{"spa"},
		HaircutTokens:      []string{"haircut"},
		HaircutNameTokens:  []string{"cut"},
	}
	candidates := []booking.Service{
		{ID: 1, Name: "Massage", Category: "Spa"},
		{ID: 2, Name: "Color", Category: "Hair"},
		{ID: 3, Name: "Men cut", Category: "Hair"},
	}

	got, ok := rules.Resolve("a haircut please", nil, candidates)
	if !ok || got.ID != 3 {
		t.Fatalf("Resolve() = (%d, %v), want 3", got.ID, ok)
	}
}

func TestResolveProfessional(t *testing.T) {
	t.Parallel()

	candidates := []booking.Professional{
		{ID: 1, Name: "Ana Lucia", Nickname: ""},
		{ID: 664608, Name: "Beatrice Zuppo Pardini"},
		{ID: 3, Name: "Carlos", Nickname: "Cacá"},
		{ID: 7, Name: "Li Wei"},
	}

	cases := []struct {
		query  string
		want   int64
		wantOK bool
	}{
		{"pode ser com a Beatrice", 664608, true},
		{"quero com Beatrice Zuppo Pardini", 664608, true},
		{"com o cacá, por favor", 3, true},
		{"semana que vem", 0, false},
		{"com a da tarde", 0, false},
		{"pode ser com a Li", 7, true},
		{"prefiro a anaLUCIA", 0, false},
		{"quero a ana lucia amanhã", 1, true},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := ResolveProfessional(tc.query, candidates)
		if ok != tc.wantOK || got.ID != tc.want {
			t.Errorf("ResolveProfessional(%q) = (%d, %v), want (%d, %v)", tc.query, got.ID, ok, tc.want, tc.wantOK)
		}
	}
}

func TestResolveProfessionalIgnoresEmptyNames(t *testing.T) {
	t.Parallel()

	candidates := []booking.Professional{
		{ID: 1, Name: "", Nickname: ""},
		{ID: 2, Name: "Joana"},
	}
	got, ok := ResolveProfessional("com a joana", candidates)
	if !ok || got.ID != 2 {
		t.Fatalf("ResolveProfessional() = (%d, %v), want 2", got.ID, ok)
	}
}
