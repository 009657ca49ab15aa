package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

const (
	nodeLoadContext      = "load_context"
	nodeDetectIntent     = "detect_intent"
	nodeGenerateResponse = "generate_response"
	nodePersistMemory    = "persist_memory"
)

func (o *Orchestrator) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[*statex.Turn, *statex.Turn], error) {
	graph := compose.NewGraph[*statex.Turn, *statex.Turn]()

	stages := []struct {
		name string
		run  func(context.Context, *statex.Turn) *statex.Turn
	}{
		{nodeLoadContext, o.loadContext},
		{nodeDetectIntent, o.detectIntent},
		{nodeGenerateResponse, o.generateResponse},
		{nodePersistMemory, o.persistMemory},
	}

	for _, stage := range stages {
		run := stage.run
		if err := graph.AddLambdaNode(stage.name,
			compose.InvokableLambda(func(ctx context.Context, in *statex.Turn) (*statex.Turn, error) {
				return run(ctx, in), nil
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", stage.name, err)
		}
	}

	edges := [][2]string{
		{compose.START, nodeLoadContext},
		{nodeLoadContext, nodeDetectIntent},
		{nodeDetectIntent, nodeGenerateResponse},
		{nodeGenerateResponse, nodePersistMemory},
		{nodePersistMemory, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
