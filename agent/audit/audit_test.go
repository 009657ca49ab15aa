package audit

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
)

func offlineLog(t *testing.T) *PostgresLog {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://u:p@127.0.0.1:1/db?sslmode=disable")))
	p := New(bun.NewDB(sqldb, pgdialect.New()), time.Second)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestInsertQueryShape(t *testing.T) {
	t.Parallel()

	p := offlineLog(t)
	q := p.insertQuery(contractx.Interaction{
		UserID:    "555",
		SessionID: "session_555_1",
		Intent:    "schedule",
		Request:   map[string]any{"message": "quero agendar"},
		Response:  map[string]any{"success": true},
		CreatedAt: time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC),
	})

	query := q.String()
	for _, want := range []string{`"interaction_logs"`, `"request_json"`, `"response_json"`, `'session_555_1'`, `quero agendar`} {
		if !strings.Contains(query, want) {
			t.Fatalf("insert query %q missing %s", query, want)
		}
	}
	if strings.Contains(query, `"id"`) {
		t.Fatalf("insert query sets id: %s", query)
	}
}

func TestRowOfDefaultsTimestamp(t *testing.T) {
	t.Parallel()

	row := rowOf(contractx.Interaction{UserID: "u"})
	if row.CreatedAt.IsZero() {
		t.Fatal("CreatedAt is zero")
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	if (Config{}).Enabled() {
		t.Fatal("empty DSN reported as enabled")
	}
	if _, err := Open(Config{}); err == nil {
		t.Fatal("Open() without DSN error = nil")
	}
}

func TestNopRecord(t *testing.T) {
	t.Parallel()

	if err := (Nop{}).Record(context.Background(), contractx.Interaction{}); err != nil {
		t.Fatalf("Nop.Record() error = %v", err)
	}
}
