package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/gmoreiraDEV/basix-engine/agent/agents/assistant"
	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

type fakeAssistant struct {
	got []assistant.Request
}

func (f *fakeAssistant) Handle(_ context.Context, req assistant.Request) (assistant.Envelope, error) {
	f.got = append(f.got, req)
	if req.Message == "" {
		err := fmt.Errorf("%w: message is empty", contractx.ErrValidation)
		return assistant.Envelope{Error: err.Error()}, err
	}
	return assistant.Envelope{
		Success:  true,
		Response: "Olá!",
		Metadata: &assistant.Metadata{SessionID: "s1", Intent: statex.IntentSmalltalk},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeAssistant) {
	t.Helper()
	fake := &fakeAssistant{}
	s, err := NewServer(Config{ListenAddr: ":0"}, fake)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s, fake
}

func postJSON(t *testing.T, s *Server, body string) (*http.Response, assistant.Envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	var env assistant.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", raw, err)
	}
	return resp, env
}

func TestPing(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestPostMessage(t *testing.T) {
	t.Parallel()

	s, fake := newTestServer(t)
	resp, env := postJSON(t, s, `{"message":"oi","user_id":"555","customer_profile":{"id":555}}`)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !env.Success || env.Response != "Olá!" || env.Metadata.Intent != statex.IntentSmalltalk {
		t.Fatalf("envelope = %+v", env)
	}
	if fake.got[0].UserID != "555" || fake.got[0].CustomerProfile["id"] != float64(555) {
		t.Fatalf("request = %+v", fake.got[0])
	}
}

func TestPostMessageValidation(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	resp, env := postJSON(t, s, `{"message":"","user_id":"555"}`)
	if resp.StatusCode != fiber.StatusBadRequest || env.Success {
		t.Fatalf("status = %d envelope = %+v", resp.StatusCode, env)
	}

	resp, env = postJSON(t, s, `{not json`)
	if resp.StatusCode != fiber.StatusBadRequest || env.Error != "invalid request body" {
		t.Fatalf("status = %d envelope = %+v", resp.StatusCode, env)
	}
}
