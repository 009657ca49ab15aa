package chatcmder

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gmoreiraDEV/basix-engine/agent/agents/assistant"
)

type echoHandler struct {
	got []assistant.Request
}

func (e *echoHandler) Handle(_ context.Context, req assistant.Request) (assistant.Envelope, error) {
	e.got = append(e.got, req)
	return assistant.Envelope{
		Success:  true,
		Response: "eco: " + req.Message,
		Metadata: &assistant.Metadata{SessionID: req.SessionID, FinishSession: strings.Contains(req.Message, "tchau")},
	}, nil
}

func TestRunStopsOnExitWord(t *testing.T) {
	t.Parallel()

	h := &echoHandler{}
	var out bytes.Buffer
	in := strings.NewReader("oi\n\nquero agendar\nSAIR\nnão chega aqui\n")

	if err := Run(context.Background(), in, &out, h, "555", "s1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.got) != 2 {
		t.Fatalf("messages handled = %d, want 2", len(h.got))
	}
	for _, req := range h.got {
		if req.UserID != "555" || req.SessionID != "s1" {
			t.Fatalf("request = %+v", req)
		}
	}
	if !strings.Contains(out.String(), "maria> eco: quero agendar") {
		t.Fatalf("output = %s", out.String())
	}
}

func TestRunStopsWhenSessionFinishes(t *testing.T) {
	t.Parallel()

	h := &echoHandler{}
	var out bytes.Buffer
	if err := Run(context.Background(), strings.NewReader("obrigada, tchau\noi\n"), &out, h, "555", "s1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.got) != 1 {
		t.Fatalf("messages handled = %d, want 1", len(h.got))
	}
}

func TestRunStopsOnEOF(t *testing.T) {
	t.Parallel()

	h := &echoHandler{}
	if err := Run(context.Background(), strings.NewReader("oi"), &bytes.Buffer{}, h, "u", "s"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.got) != 1 {
		t.Fatalf("messages handled = %d, want 1", len(h.got))
	}
}
