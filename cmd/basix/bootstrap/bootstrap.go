// Package bootstrap wires the assistant from environment configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gmoreiraDEV/basix-engine/agent/agents/assistant"
	"github.com/gmoreiraDEV/basix-engine/agent/agents/orchestrator"
	"github.com/gmoreiraDEV/basix-engine/agent/audit"
	"github.com/gmoreiraDEV/basix-engine/agent/catalog"
	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/agent/llm"
	"github.com/gmoreiraDEV/basix-engine/agent/mediator"
	"github.com/gmoreiraDEV/basix-engine/agent/memory"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
	toolx "github.com/gmoreiraDEV/basix-engine/agent/tool"
	"github.com/gmoreiraDEV/basix-engine/pkg/booking"
	configx "github.com/gmoreiraDEV/basix-engine/pkg/config"
	"github.com/gmoreiraDEV/basix-engine/pkg/embedding"
	openrouterx "github.com/gmoreiraDEV/basix-engine/pkg/openrouter"
	"github.com/gmoreiraDEV/basix-engine/pkg/qdrantx"
)

// App owns the wired assistant and the resources it must release.
type App struct {
	Assistant *assistant.Service

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func Build(ctx context.Context) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, err
	}
	model, err := llm.NewChatModel(ctx, *llmCfg)
	if err != nil {
		return nil, err
	}

	embedder, dims, err := newEmbedder()
	if err != nil {
		return nil, err
	}

	qdrantCfg, err := configx.New[qdrantx.Config]("QDRANT")
	if err != nil {
		return nil, err
	}
	qdrantCfg.VectorSize = uint64(dims)
	index, err := qdrantx.New(*qdrantCfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, index.Close)

	mem, err := memory.New(index, embedder, "")
	if err != nil {
		return nil, err
	}

	catalogCfg, err := configx.New[catalog.Config]("CATALOG")
	if err != nil {
		return nil, err
	}
	catalogSync, err := catalog.New(index, embedder,
		catalog.WithTTL(catalogCfg.TTL),
		catalog.WithCollections(catalogCfg.ProfessionalsCollection, catalogCfg.ServicesCollection),
	)
	if err != nil {
		return nil, err
	}

	bookingCfg, err := configx.New[booking.Config]("BOOKING")
	if err != nil {
		return nil, err
	}
	bookingClient, err := booking.NewClient(*bookingCfg)
	if err != nil {
		return nil, err
	}
	registry, err := toolx.NewBookingRegistry(bookingClient, catalogSync)
	if err != nil {
		return nil, err
	}

	agentCfg, err := configx.New[orchestrator.Config]("AGENT")
	if err != nil {
		return nil, err
	}
	med, err := mediator.New(model, registry, mediator.WithWindow(agentCfg.HistoryWindow))
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(mem, med, registry, *agentCfg,
		orchestrator.WithSessionStore(newSessionStore()),
	)
	if err != nil {
		return nil, err
	}

	interactions, err := newInteractionLog(ctx, app)
	if err != nil {
		return nil, err
	}

	app.Assistant, err = assistant.New(orch, assistant.WithInteractionLog(interactions))
	if err != nil {
		return nil, err
	}
	return app, nil
}

func newEmbedder() (contractx.Embedder, int, error) {
	cfg, err := configx.New[embedding.Config]("EMBEDDING")
	if err != nil {
		return nil, 0, err
	}
	if cfg.UseHash() {
		log.Warn().Int("dimensions", cfg.Dimensions).Msg("using hash embeddings, semantic search disabled")
		return embedding.NewHash(cfg.Dimensions), cfg.Dimensions, nil
	}

	client := openrouterx.NewClient(openrouterx.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
	if client == nil {
		return nil, 0, fmt.Errorf("%w: embedding api key is empty", contractx.ErrValidation)
	}
	e, err := embedding.NewOpenAI(client, cfg.Model, cfg.Dimensions)
	if err != nil {
		return nil, 0, err
	}
	return e, cfg.Dimensions, nil
}

func newSessionStore() statex.Store {
	cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Info().Msg("upstash redis not configured, keeping sessions in memory")
		return statex.NewMemoryStore()
	}
	store, err := statex.NewUpstashRedisStore(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("upstash redis store unavailable, keeping sessions in memory")
		return statex.NewMemoryStore()
	}
	return store
}

func newInteractionLog(ctx context.Context, app *App) (contractx.InteractionLog, error) {
	cfg, err := configx.New[audit.Config]("DATABASE")
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		log.Info().Msg("database not configured, interaction log disabled")
		return audit.Nop{}, nil
	}

	pg, err := audit.Open(*cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pg.Close)

	if cfg.EnsureTable {
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error().Err(err).Msg("interaction_logs schema check failed")
		}
	}
	return pg, nil
}
