package cmd

import (
	"context"
	"fmt"

	"github.com/agentic-research/resgrid/internal/config"
	"github.com/agentic-research/resgrid/internal/origin"
	"github.com/agentic-research/resgrid/internal/query"
	"github.com/agentic-research/resgrid/internal/resource"
)

// session is an opened layout ready to query.
type session struct {
	workspace *config.Workspace
	tree      *origin.HotSwap
	engine    *query.Engine
}

func openSession(ctx context.Context, opts *globalOptions) (*session, error) {
	layout, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	ws, err := config.Open(layout, opts.logger)
	if err != nil {
		return nil, err
	}

	tree, err := ws.Tree(ctx)
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}
	swap := origin.NewHotSwap(tree)
	engine, err := query.New(ctx, swap, ws.Evaluator(),
		query.WithLogger(opts.logger),
		query.WithRegistries(ws.Modules, ws.Definitions),
	)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	opts.logger.Debug("session opened", "resources", tree.Len(), "modules", engine.Modules().Len())
	return &session{workspace: ws, tree: swap, engine: engine}, nil
}

// origins returns the configured origins for resolving --origin.
func (s *session) origins() []resource.Origin {
	out := make([]resource.Origin, 0, len(s.workspace.Sources))
	for _, src := range s.workspace.Sources {
		out = append(out, src)
	}
	return out
}

func (s *session) reload(ctx context.Context) (origin.Tree, error) {
	return s.workspace.Tree(ctx)
}

func (s *session) Close() error {
	return s.workspace.Close()
}
