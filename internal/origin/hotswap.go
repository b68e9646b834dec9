package origin

import (
	"context"
	"iter"
	"sync"

	"github.com/agentic-research/resgrid/internal/resource"
)

// HotSwap is a thread-safe Tree wrapper whose underlying tree can be replaced.
// A running Find keeps using the tree it started on.
type HotSwap struct {
	mu      sync.RWMutex
	current Tree
}

func NewHotSwap(initial Tree) *HotSwap {
	return &HotSwap{current: initial}
}

// Swap atomically replaces the current tree.
func (h *HotSwap) Swap(next Tree) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = next
}

// Current returns the tree queries are served from.
func (h *HotSwap) Current() Tree {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Root delegates to the current tree.
func (h *HotSwap) Root() *resource.Resource {
	return h.Current().Root()
}

// Get delegates to the current tree.
func (h *HotSwap) Get(path string) (*resource.Resource, error) {
	return h.Current().Get(path)
}

// Find delegates to the current tree.
func (h *HotSwap) Find(ctx context.Context, rootPath string, pred Predicate) iter.Seq2[*resource.Resource, error] {
	return h.Current().Find(ctx, rootPath, pred)
}
