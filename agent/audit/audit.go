// Package audit appends one relational row per handled turn.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
)

// Config is read with the DATABASE prefix. An empty DSN disables the log.
type Config struct {
	DSN         string        `envconfig:"DSN"`
	Timeout     time.Duration `split_words:"true" default:"5s"`
	EnsureTable bool          `split_words:"true" default:"true"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type interactionRow struct {
	bun.BaseModel `bun:"table:interaction_logs,alias:il"`

	ID           int64          `bun:"id,pk,autoincrement"`
	UserID       string         `bun:"user_id,notnull"`
	SessionID    string         `bun:"session_id,notnull"`
	Intent       string         `bun:"intent"`
	RequestJSON  map[string]any `bun:"request_json,type:jsonb"`
	ResponseJSON map[string]any `bun:"response_json,type:jsonb"`
	CreatedAt    time.Time      `bun:"created_at,notnull,default:current_timestamp"`
}

func rowOf(in contractx.Interaction) *interactionRow {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &interactionRow{
		UserID:       in.UserID,
		SessionID:    in.SessionID,
		Intent:       in.Intent,
		RequestJSON:  in.Request,
		ResponseJSON: in.Response,
		CreatedAt:    createdAt.UTC(),
	}
}

type PostgresLog struct {
	db      *bun.DB
	timeout time.Duration
}

var _ contractx.InteractionLog = (*PostgresLog)(nil)

// Open connects lazily; the first query dials the database.
func Open(cfg Config) (*PostgresLog, error) {
	if !cfg.Enabled() {
		return nil, errors.New("database dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(strings.TrimSpace(cfg.DSN))))
	return New(bun.NewDB(sqldb, pgdialect.New()), cfg.Timeout), nil
}

func New(db *bun.DB, timeout time.Duration) *PostgresLog {
	return &PostgresLog{db: db, timeout: timeout}
}

func (p *PostgresLog) EnsureSchema(ctx context.Context) error {
	_, err := p.db.NewCreateTable().
		Model((*interactionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create interaction_logs: %v", contractx.ErrPersistence, err)
	}
	return nil
}

func (p *PostgresLog) Record(ctx context.Context, in contractx.Interaction) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if _, err := p.insertQuery(in).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert interaction: %v", contractx.ErrPersistence, err)
	}
	return nil
}

func (p *PostgresLog) insertQuery(in contractx.Interaction) *bun.InsertQuery {
	return p.db.NewInsert().Model(rowOf(in)).ExcludeColumn("id")
}

func (p *PostgresLog) Close() error {
	return p.db.Close()
}

// Nop discards every interaction.
type Nop struct{}

func (Nop) Record(context.Context, contractx.Interaction) error { return nil }
