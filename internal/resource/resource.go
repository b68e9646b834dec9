// Package resource defines the path-addressed nodes of the virtual tree and
// the origins that produce them.
package resource

import "time"

// Kind identifies an origin implementation. Two origins of the same
// implementation report the same Kind regardless of their configuration.
type Kind string

const (
	KindFile       Kind = "file"
	KindClasspath  Kind = "classpath"
	KindRepository Kind = "repository"
	KindLayered    Kind = "layered"
)

// Origin is the backing source that produced a resource or a layer.
type Origin interface {
	Name() string
	Kind() Kind
	// ClasspathOnly reports whether resources from this origin are bundled
	// and not editable.
	ClasspathOnly() bool
}

// Resource is a node in the virtual tree.
// A resource with layers is a layered resource; its identity is the union of
// those layers, ordered from highest to lowest priority.
type Resource struct {
	Path    string
	Name    string
	Parent  *Resource // nil for the root
	Origin  Origin
	Dir     bool
	ModTime time.Time
	Record  string // backing record key, empty when the origin has none

	layers []*Resource
}

// New creates a plain (single-layer) resource.
func New(path string, parent *Resource, origin Origin, dir bool) *Resource {
	return &Resource{
		Path:   path,
		Name:   Base(path),
		Parent: parent,
		Origin: origin,
		Dir:    dir,
	}
}

// NewLayered creates a layered resource. layers must not be empty.
func NewLayered(path string, parent *Resource, origin Origin, layers []*Resource) *Resource {
	r := New(path, parent, origin, false)
	r.layers = layers
	for _, l := range layers {
		if l.Dir {
			r.Dir = true
		}
		if r.ModTime.IsZero() {
			r.ModTime = l.ModTime
		}
	}
	return r
}

// Layers returns the resource's layers, or the resource itself when it is not layered.
func (r *Resource) Layers() []*Resource {
	if len(r.layers) == 0 {
		return []*Resource{r}
	}
	return r.layers
}

// Overridden reports whether more than one layer contributes to the resource.
func (r *Resource) Overridden() bool {
	return len(r.layers) > 1
}

// ClasspathOnly reports whether every layer comes from a classpath-only origin.
func (r *Resource) ClasspathOnly() bool {
	for _, l := range r.Layers() {
		if l.Origin == nil || !l.Origin.ClasspathOnly() {
			return false
		}
	}
	return true
}

// IsRoot reports whether r is the tree root.
func (r *Resource) IsRoot() bool {
	return r.Parent == nil
}
