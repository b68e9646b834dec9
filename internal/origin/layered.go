package origin

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/agentic-research/resgrid/internal/resource"
)

// Layered is the origin of resources merged from several sources.
type Layered struct {
	name string
}

func (o *Layered) Name() string        { return o.name }
func (o *Layered) Kind() resource.Kind { return resource.KindLayered }

// ClasspathOnly is false; classpath-only-ness of layered resources is
// decided per layer.
func (o *Layered) ClasspathOnly() bool { return false }

// NewLayeredTree loads every source and merges their trees by path. Sources
// are given highest priority first; that order is kept in each merged
// resource's layers. A nil logger uses log.Default().
func NewLayeredTree(ctx context.Context, name string, logger *log.Logger, sources ...Source) (*MemoryTree, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("layered origin %s: no sources", name)
	}
	if logger == nil {
		logger = log.Default()
	}
	origin := &Layered{name: name}

	layers := make(map[string][]*resource.Resource)
	roots := make([]*resource.Resource, 0, len(sources))
	for _, src := range sources {
		tree, err := src.Load(ctx, logger)
		if err != nil {
			return nil, err
		}
		roots = append(roots, tree.Root())
		for r, err := range tree.Find(ctx, resource.Root, func(*resource.Resource) (bool, error) { return true, nil }) {
			if err != nil {
				return nil, err
			}
			layers[r.Path] = append(layers[r.Path], r)
		}
		logger.Debug("loaded origin", "origin", src.Name(), "kind", src.Kind(), "resources", tree.Len())
	}

	paths := make([]string, 0, len(layers))
	for p := range layers {
		paths = append(paths, p)
	}
	// A parent path is a prefix of its children, so it always sorts first.
	sort.Strings(paths)

	merged := newMemoryTree(resource.NewLayered(resource.Root, nil, origin, roots))
	for _, p := range paths {
		if err := merged.Add(resource.NewLayered(p, nil, origin, layers[p])); err != nil {
			return nil, fmt.Errorf("merge %s: %w", p, err)
		}
	}
	return merged, nil
}
