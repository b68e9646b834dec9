// Package visibility decides whether a resource's top-level subtree is shown
// in listings at all.
//
// A top-level resource is visible when its name is a known module, or when at
// least one of its layers comes from an editable origin. Subtrees made only of
// bundled classpath resources that do not belong to a known module are hidden.
package visibility

import (
	"github.com/agentic-research/resgrid/internal/modules"
	"github.com/agentic-research/resgrid/internal/resource"
)

// ModuleSet reports module membership. Implemented by *modules.Set.
type ModuleSet interface {
	Contains(name string) bool
}

var _ ModuleSet = (*modules.Set)(nil)

// Cache memoizes decisions per top-level path segment for one query.
// A Cache is not safe for concurrent use; create one per query.
type Cache struct {
	decisions    map[string]bool
	computations int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{decisions: make(map[string]bool)}
}

// Computations returns how many module/classpath checks were evaluated
// through this cache, cached or not.
func (c *Cache) Computations() int {
	return c.computations
}

// Len returns the number of cached top-level segments.
func (c *Cache) Len() int {
	return len(c.decisions)
}

// Resolver evaluates visibility against a module set.
type Resolver struct {
	modules ModuleSet
}

// NewResolver creates a Resolver. A nil set is treated as empty.
func NewResolver(mods ModuleSet) *Resolver {
	return &Resolver{modules: mods}
}

// IsVisible reports whether r should be listed. Resources directly under the
// root (and the root itself) are evaluated without the cache; deeper
// resources share one cached decision per top-level segment.
func (v *Resolver) IsVisible(cache *Cache, r *resource.Resource) bool {
	segment, ok := resource.TopLevelSegment(r.Path)
	if !ok {
		if cache != nil {
			cache.computations++
		}
		return v.visible(r)
	}
	if cache == nil {
		return v.visible(topLevel(r))
	}
	if decision, hit := cache.decisions[segment]; hit {
		return decision
	}
	decision := v.visible(topLevel(r))
	cache.computations++
	cache.decisions[segment] = decision
	return decision
}

func (v *Resolver) visible(r *resource.Resource) bool {
	if v.modules != nil && v.modules.Contains(r.Name) {
		return true
	}
	return !r.ClasspathOnly()
}

// topLevel walks up from r to the ancestor whose parent is the root.
func topLevel(r *resource.Resource) *resource.Resource {
	top := r
	for !top.IsRoot() && !top.Parent.IsRoot() {
		top = top.Parent
	}
	return top
}
