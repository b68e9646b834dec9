// Package modules assembles the set of known logical module names.
package modules

import (
	"context"
	"fmt"
	"sort"
)

// ModuleRegistry enumerates registered modules.
type ModuleRegistry interface {
	ModuleNames(ctx context.Context) ([]string, error)
}

// Definition is a registered configuration item and the module that owns it.
type Definition struct {
	Name   string
	Module string
	Source string // where the definition was read from
}

// DefinitionRegistry enumerates registered definitions.
type DefinitionRegistry interface {
	Definitions(ctx context.Context) ([]Definition, error)
}

// Set is an immutable set of module names.
type Set struct {
	names map[string]struct{}
}

// NewSet creates a set holding names. Empty names are ignored.
func NewSet(names ...string) *Set {
	s := &Set{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n != "" {
			s.names[n] = struct{}{}
		}
	}
	return s
}

// Build unions every registered module name with the owning module of every
// registered definition. Either registry may be nil.
func Build(ctx context.Context, mods ModuleRegistry, defs DefinitionRegistry) (*Set, error) {
	var names []string
	if mods != nil {
		n, err := mods.ModuleNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("list modules: %w", err)
		}
		names = append(names, n...)
	}
	if defs != nil {
		d, err := defs.Definitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list definitions: %w", err)
		}
		for _, def := range d {
			names = append(names, def.Module)
		}
	}
	return NewSet(names...), nil
}

// Contains reports whether name is a known module. A nil set contains nothing.
func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[name]
	return ok
}

// Len returns the number of modules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the module names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// StaticModules is a ModuleRegistry over a fixed list of names.
type StaticModules []string

// ModuleNames implements ModuleRegistry.
func (m StaticModules) ModuleNames(context.Context) ([]string, error) {
	return []string(m), nil
}

// StaticDefinitions is a DefinitionRegistry over a fixed list.
type StaticDefinitions []Definition

// Definitions implements DefinitionRegistry.
func (d StaticDefinitions) Definitions(context.Context) ([]Definition, error) {
	return []Definition(d), nil
}
