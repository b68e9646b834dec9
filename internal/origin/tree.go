// Package origin provides the virtual resource tree and the origins that
// populate it.
package origin

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/resgrid/internal/resource"
)

var ErrNotFound = errors.New("resource not found")

// Predicate decides whether a visited resource is yielded by Find.
// A non-nil error aborts the traversal.
type Predicate func(r *resource.Resource) (bool, error)

// Tree is a searchable resource tree.
type Tree interface {
	Root() *resource.Resource
	Get(path string) (*resource.Resource, error)
	// Find lazily yields every resource strictly below rootPath that satisfies
	// pred, in pre-order with siblings sorted by name. The traversal stops as
	// soon as the consumer stops ranging, ctx is done, or pred fails.
	Find(ctx context.Context, rootPath string, pred Predicate) iter.Seq2[*resource.Resource, error]
}

// MemoryTree is an in-memory Tree.
type MemoryTree struct {
	mu       sync.RWMutex
	root     *resource.Resource
	nodes    map[string]*resource.Resource
	children map[string][]string // path → sorted child paths

	// Roaring bitmap index: origin kind → set of internal resource IDs
	// contributed by a layer of that kind.
	kindIndex  map[resource.Kind]*roaring.Bitmap
	overridden *roaring.Bitmap
	nodeIntID  map[string]uint32
	nextIntID  uint32
}

// NewMemoryTree creates a tree holding only a root produced by origin.
func NewMemoryTree(origin resource.Origin) *MemoryTree {
	return newMemoryTree(resource.New(resource.Root, nil, origin, true))
}

func newMemoryTree(root *resource.Resource) *MemoryTree {
	return &MemoryTree{
		root:       root,
		nodes:      map[string]*resource.Resource{resource.Root: root},
		children:   make(map[string][]string),
		kindIndex:  make(map[resource.Kind]*roaring.Bitmap),
		overridden: roaring.New(),
		nodeIntID:  make(map[string]uint32),
	}
}

// Root implements Tree.
func (t *MemoryTree) Root() *resource.Resource {
	return t.root
}

// Add inserts r below its parent, which must already be in the tree.
// r.Parent is set to the stored parent. Adding an existing path replaces it.
func (t *MemoryTree) Add(r *resource.Resource) error {
	r.Path = resource.Clean(r.Path)
	if r.Path == resource.Root {
		return fmt.Errorf("add %s: root cannot be replaced", r.Path)
	}
	r.Name = resource.Base(r.Path)

	t.mu.Lock()
	defer t.mu.Unlock()

	parentPath := resource.Dir(r.Path)
	parent, ok := t.nodes[parentPath]
	if !ok {
		return fmt.Errorf("add %s: parent %s: %w", r.Path, parentPath, ErrNotFound)
	}
	parent.Dir = true
	r.Parent = parent

	if _, exists := t.nodes[r.Path]; !exists {
		// Copy on insert so snapshots handed out by childrenOf stay valid.
		siblings := t.children[parentPath]
		i, _ := slices.BinarySearchFunc(siblings, r.Path, func(a, b string) int {
			return strings.Compare(resource.Base(a), resource.Base(b))
		})
		next := make([]string, 0, len(siblings)+1)
		next = append(next, siblings[:i]...)
		next = append(next, r.Path)
		next = append(next, siblings[i:]...)
		t.children[parentPath] = next
	}
	t.nodes[r.Path] = r
	t.indexResource(r)
	return nil
}

// indexResource assigns an internal bitmap ID and registers the resource in
// the kind index. Must be called with t.mu held.
func (t *MemoryTree) indexResource(r *resource.Resource) {
	intID, ok := t.nodeIntID[r.Path]
	if !ok {
		intID = t.nextIntID
		t.nextIntID++
		t.nodeIntID[r.Path] = intID
	}
	for _, bm := range t.kindIndex {
		bm.Remove(intID)
	}
	for _, l := range r.Layers() {
		if l.Origin == nil {
			continue
		}
		bm, exists := t.kindIndex[l.Origin.Kind()]
		if !exists {
			bm = roaring.New()
			t.kindIndex[l.Origin.Kind()] = bm
		}
		bm.Add(intID)
	}
	if r.Overridden() {
		t.overridden.Add(intID)
	} else {
		t.overridden.Remove(intID)
	}
}

// Get implements Tree.
func (t *MemoryTree) Get(path string) (*resource.Resource, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.nodes[resource.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return r, nil
}

func (t *MemoryTree) childrenOf(path string) []*resource.Resource {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := t.children[path]
	out := make([]*resource.Resource, 0, len(paths))
	for _, p := range paths {
		if r, ok := t.nodes[p]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of resources below the root.
func (t *MemoryTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes) - 1
}

// Find implements Tree. The tree lock is not held while the consumer runs.
func (t *MemoryTree) Find(ctx context.Context, rootPath string, pred Predicate) iter.Seq2[*resource.Resource, error] {
	return func(yield func(*resource.Resource, error) bool) {
		start, err := t.Get(rootPath)
		if err != nil {
			yield(nil, err)
			return
		}
		t.walk(ctx, start.Path, pred, yield)
	}
}

func (t *MemoryTree) walk(ctx context.Context, path string, pred Predicate, yield func(*resource.Resource, error) bool) bool {
	for _, r := range t.childrenOf(path) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return false
		}
		ok, err := pred(r)
		if err != nil {
			yield(nil, err)
			return false
		}
		if ok && !yield(r, nil) {
			return false
		}
		if !t.walk(ctx, r.Path, pred, yield) {
			return false
		}
	}
	return true
}

// Stats summarizes the tree contents using the kind index.
type Stats struct {
	Resources  int
	Overridden uint64
	ByKind     map[resource.Kind]uint64
}

// Stats returns resource counts per origin kind. The root is not counted; a
// layered resource counts once for every kind among its layers.
func (t *MemoryTree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{
		Resources:  len(t.nodes) - 1,
		Overridden: t.overridden.GetCardinality(),
		ByKind:     make(map[resource.Kind]uint64, len(t.kindIndex)),
	}
	for kind, bm := range t.kindIndex {
		if n := bm.GetCardinality(); n > 0 {
			s.ByKind[kind] = n
		}
	}
	return s
}

// CountByKind returns how many resources have a layer of the given kind.
func (t *MemoryTree) CountByKind(kind resource.Kind) uint64 {
	return t.Stats().ByKind[kind]
}
