// Package query serves paged and counted listings of a resource tree.
package query

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/agentic-research/resgrid/internal/filter"
	"github.com/agentic-research/resgrid/internal/modules"
	"github.com/agentic-research/resgrid/internal/origin"
	"github.com/agentic-research/resgrid/internal/resource"
	"github.com/agentic-research/resgrid/internal/visibility"
)

// Unlimited as a Fetch limit returns every match after the offset.
const Unlimited = -1

// Engine answers fetch and count queries over a tree. It is safe for
// concurrent use: each query gets its own visibility cache.
type Engine struct {
	tree      origin.Tree
	evaluator *filter.Evaluator
	modules   atomic.Pointer[modules.Set]
	registry  modules.ModuleRegistry
	defs      modules.DefinitionRegistry
	logger    *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRegistries sets the sources of the module set.
func WithRegistries(mods modules.ModuleRegistry, defs modules.DefinitionRegistry) Option {
	return func(e *Engine) {
		e.registry = mods
		e.defs = defs
	}
}

// New creates an Engine and builds its module set once.
func New(ctx context.Context, tree origin.Tree, evaluator *filter.Evaluator, opts ...Option) (*Engine, error) {
	e := &Engine{
		tree:      tree,
		evaluator: evaluator,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evaluator == nil {
		e.evaluator = filter.NewEvaluator(nil, nil)
	}
	if err := e.RefreshModules(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// RefreshModules rebuilds the module set from the registries. Queries already
// running keep the set they started with.
func (e *Engine) RefreshModules(ctx context.Context) error {
	set, err := modules.Build(ctx, e.registry, e.defs)
	if err != nil {
		return fmt.Errorf("build module set: %w", err)
	}
	e.modules.Store(set)
	e.logger.Debug("module set built", "modules", set.Len())
	return nil
}

// Modules returns the current module set.
func (e *Engine) Modules() *modules.Set {
	return e.modules.Load()
}

// RowID identifies a row for consumers; it is the resource path.
func RowID(r *resource.Resource) string {
	return r.Path
}

// Stream lazily yields every visible resource under the root matching f, in
// tree order. A nil or empty f matches every visible resource. An invalid
// filter is reported as the first element.
func (e *Engine) Stream(ctx context.Context, f filter.Filter) iter.Seq2[*resource.Resource, error] {
	return func(yield func(*resource.Resource, error) bool) {
		if err := f.Validate(); err != nil {
			yield(nil, err)
			return
		}
		resolver := visibility.NewResolver(e.modules.Load())
		cache := visibility.NewCache()
		active := len(f.Active()) > 0

		pred := func(r *resource.Resource) (bool, error) {
			if !resolver.IsVisible(cache, r) {
				return false, nil
			}
			if !active {
				return true, nil
			}
			return e.evaluator.Matches(ctx, r, f)
		}
		for r, err := range e.tree.Find(ctx, resource.Root, pred) {
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

// Fetch returns at most limit matches after skipping offset of them. A
// negative limit means Unlimited. Traversal stops once the page is full. Any
// error aborts the query and no partial page is returned.
func (e *Engine) Fetch(ctx context.Context, f filter.Filter, offset, limit int) ([]*resource.Resource, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	start := time.Now()
	var page []*resource.Resource
	if limit == 0 {
		return page, nil
	}

	skipped := 0
	for r, err := range e.Stream(ctx, f) {
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		if skipped < offset {
			skipped++
			continue
		}
		page = append(page, r)
		if limit > 0 && len(page) == limit {
			break
		}
	}
	e.logger.Debug("fetch", "filter", f.String(), "offset", offset, "limit", limit, "rows", len(page), "took", time.Since(start))
	return page, nil
}

// Count returns the number of matches for f. Every call traverses the tree
// again; counts are not cached across queries.
func (e *Engine) Count(ctx context.Context, f filter.Filter) (int, error) {
	start := time.Now()
	n := 0
	for _, err := range e.Stream(ctx, f) {
		if err != nil {
			return 0, fmt.Errorf("count: %w", err)
		}
		n++
	}
	e.logger.Debug("count", "filter", f.String(), "rows", n, "took", time.Since(start))
	return n, nil
}
