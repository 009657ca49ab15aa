package openrouter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeaders(t *testing.T) {
	t.Parallel()

	if got := (Config{}).Headers(); len(got) != 0 {
		t.Fatalf("Headers() = %v, want empty", got)
	}
	got := Config{SiteURL: " https://basix.app ", SiteName: "basix-engine"}.Headers()
	if got["HTTP-Referer"] != "https://basix.app" || got["X-Title"] != "basix-engine" {
		t.Fatalf("Headers() = %v", got)
	}
}

func TestHeaderTransport(t *testing.T) {
	t.Parallel()

	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &headerTransport{
		base:    http.DefaultTransport,
		headers: map[string]string{"X-Title": "basix-engine"},
	}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if seen.Get("X-Title") != "basix-engine" {
		t.Fatalf("X-Title = %q", seen.Get("X-Title"))
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{}) != nil {
		t.Fatal("NewClient() without key should be nil")
	}
	if NewClient(Config{APIKey: "k", BaseURL: "https://openrouter.ai/api/v1/"}) == nil {
		t.Fatal("NewClient() with key returned nil")
	}
}
