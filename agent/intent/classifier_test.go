package intent

import (
	"testing"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want statex.Intent
	}{
		{"Quero marcar um corte amanhã", statex.IntentSchedule},
		{"   QUERO   AGENDAR  ", statex.IntentSchedule},
		{"preciso remarcar horário", statex.IntentReschedule},
		{"quero reagendar, qual o valor?", statex.IntentReschedule},
		{"quero cancelar a sessão de sexta", statex.IntentCancel},
		{"que horas vocês abrem no domingo?", statex.IntentInfo},
		{"qual o preço da escova", statex.IntentInfo},
		{"Oi, tudo bem?", statex.IntentSmalltalk},
		{"obrigada, tchau", statex.IntentFarewell},
		{"hmm", statex.IntentUnknown},
		{"", statex.IntentUnknown},
	}

	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestClassifyRescheduleBeatsInfo(t *testing.T) {
	t.Parallel()

	text := "posso mudar horário? qual o preço?"
	if got := Classify(text); got != statex.IntentReschedule {
		t.Fatalf("Classify(%q) = %q, want reschedule", text, got)
	}
}

func TestClassifyRuleOrderIsPrecedence(t *testing.T) {
	t.Parallel()

	c := New([]Rule{
		{Intent: statex.IntentInfo, Keywords: []string{"valor"}},
		{Intent: statex.IntentCancel, Keywords: []string{"cancelar"}},
	}, nil)

	if got := c.Classify("cancelar e saber o valor"); got != statex.IntentInfo {
		t.Fatalf("Classify() = %q, want info", got)
	}
}

func TestShouldFinishIsIndependentOfIntent(t *testing.T) {
	t.Parallel()

	// farewell intent without a finish token
	if Default.ShouldFinish("obrigado pela ajuda") {
		t.Fatal("ShouldFinish(obrigado) = true, want false")
	}
	if got := Classify("obrigado pela ajuda"); got != statex.IntentFarewell {
		t.Fatalf("Classify(obrigado) = %q, want farewell", got)
	}

	// finish token inside a scheduling message
	text := "quero agendar às 18h, só isso"
	if !Default.ShouldFinish(text) {
		t.Fatalf("ShouldFinish(%q) = false, want true", text)
	}
	if got := Classify(text); got != statex.IntentSchedule {
		t.Fatalf("Classify(%q) = %q, want schedule", text, got)
	}
}
