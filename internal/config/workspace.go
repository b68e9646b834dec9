package config

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/resgrid/api"
	"github.com/agentic-research/resgrid/internal/filter"
	"github.com/agentic-research/resgrid/internal/modules"
	"github.com/agentic-research/resgrid/internal/origin"
	"github.com/agentic-research/resgrid/internal/repository"
)

// Workspace holds the origins and registries opened from a layout.
type Workspace struct {
	Layout      *api.Layout
	Sources     []origin.Source
	Repository  *repository.Repository // nil without a repository origin
	Modules     modules.ModuleRegistry
	Definitions modules.DefinitionRegistry

	logger *log.Logger
}

// Open opens every origin of l. Directory origins must exist; repository
// databases are created on demand.
func Open(l *api.Layout, logger *log.Logger) (*Workspace, error) {
	if err := Validate(l); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &Workspace{
		Layout:  l,
		Modules: modules.StaticModules(l.Modules),
		logger:  logger,
	}

	for _, spec := range l.Origins {
		src, err := w.openOrigin(spec)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		w.Sources = append(w.Sources, src)
	}

	if l.Definitions != "" {
		if err := requireDir(l.Definitions); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: definitions: %w", ErrInvalidLayout, err)
		}
		defs, err := modules.NewDefinitionFiles(osfs.New(l.Definitions), l.DefinitionSelector)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
		}
		w.Definitions = defs
	}
	return w, nil
}

func (w *Workspace) openOrigin(spec api.OriginSpec) (origin.Source, error) {
	switch spec.Kind {
	case api.OriginFile, api.OriginClasspath:
		if err := requireDir(spec.Path); err != nil {
			return nil, fmt.Errorf("%w: origin %q: %w", ErrInvalidLayout, spec.Name, err)
		}
		w.logger.Debug("opened origin", "name", spec.Name, "kind", spec.Kind, "path", spec.Path)
		if spec.Kind == api.OriginClasspath {
			return origin.NewClasspathOrigin(spec.Name, osfs.New(spec.Path)), nil
		}
		return origin.NewFileOrigin(spec.Name, osfs.New(spec.Path)), nil
	case api.OriginRepository:
		repo, err := repository.Open(spec.Path)
		if err != nil {
			return nil, fmt.Errorf("origin %q: %w", spec.Name, err)
		}
		w.Repository = repo
		w.logger.Debug("opened repository", "name", spec.Name, "path", repo.Path())
		return origin.NewRepositoryOrigin(spec.Name, repo), nil
	default:
		return nil, fmt.Errorf("%w: origin %q has unknown kind %q", ErrInvalidLayout, spec.Name, spec.Kind)
	}
}

// Tree loads and merges every origin into a fresh tree.
func (w *Workspace) Tree(ctx context.Context) (*origin.MemoryTree, error) {
	return origin.NewLayeredTree(ctx, "resources", w.logger, w.Sources...)
}

// Evaluator returns a filter evaluator backed by the workspace repository.
func (w *Workspace) Evaluator() *filter.Evaluator {
	if w.Repository == nil {
		return filter.NewEvaluator(nil, nil)
	}
	return filter.NewEvaluator(nil, w.Repository)
}

// Close releases the repository, if any.
func (w *Workspace) Close() error {
	if w.Repository == nil {
		return nil
	}
	return w.Repository.Close()
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
