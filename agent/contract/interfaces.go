package contract

import (
	"context"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// ChatModel is the model-provider boundary.
type ChatModel interface {
	Generate(ctx context.Context, req ModelRequest) (ModelResponse, error)
}

type Tool interface {
	Schema() ToolSchema
	Execute(ctx context.Context, args map[string]any, turn *statex.Turn) (any, error)
}

// Binder is implemented by tools whose arguments are partly filled from
// resolved context instead of the model.
type Binder interface {
	Bind(ctx context.Context, args map[string]any, turn *statex.Turn) error
}

type ToolRegistry interface {
	Lookup(name string) (Tool, bool)
	Schemas() []ToolSchema
}

// ContextStore keeps past turns per user.
type ContextStore interface {
	Recent(ctx context.Context, userID string, limit int) ([]statex.Message, error)
	Append(ctx context.Context, rec MemoryRecord) error
}

// VectorIndex is the memory/search store boundary.
type VectorIndex interface {
	Upsert(ctx context.Context, collection string, points []Point) error
	// Latest returns up to limit points whose payload field equals value,
	// ordered by the numeric payload field orderBy, highest first.
	Latest(ctx context.Context, collection, field string, value any, orderBy string, limit int) ([]Point, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type InteractionLog interface {
	Record(ctx context.Context, in Interaction) error
}
