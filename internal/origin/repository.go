package origin

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/agentic-research/resgrid/internal/repository"
	"github.com/agentic-research/resgrid/internal/resource"
)

// RecordSource streams stored records. Implemented by *repository.Repository.
type RecordSource interface {
	Records(ctx context.Context, fn func(repository.Record) error) error
}

// RepositoryOrigin serves editable resources stored as repository records.
// Every record becomes a file resource carrying its record key; missing
// parent directories are created without a backing record.
type RepositoryOrigin struct {
	name string
	repo RecordSource
}

// NewRepositoryOrigin creates an origin over repo.
func NewRepositoryOrigin(name string, repo RecordSource) *RepositoryOrigin {
	return &RepositoryOrigin{name: name, repo: repo}
}

func (o *RepositoryOrigin) Name() string        { return o.name }
func (o *RepositoryOrigin) Kind() resource.Kind { return resource.KindRepository }
func (o *RepositoryOrigin) ClasspathOnly() bool { return false }

// Load implements Source.
func (o *RepositoryOrigin) Load(ctx context.Context, logger *log.Logger) (*MemoryTree, error) {
	if logger == nil {
		logger = log.Default()
	}
	tree := NewMemoryTree(o)
	err := o.repo.Records(ctx, func(rec repository.Record) error {
		p := resource.Clean(rec.Path)
		if err := o.ensureDirs(tree, resource.Dir(p)); err != nil {
			return err
		}
		r := resource.New(p, nil, o, false)
		r.Record = p
		r.ModTime = rec.ModifiedAt
		return tree.Add(r)
	})
	if err != nil {
		return nil, fmt.Errorf("load origin %s: %w", o.name, err)
	}
	logger.Debug("loaded repository records", "origin", o.name, "resources", tree.Len())
	return tree, nil
}

func (o *RepositoryOrigin) ensureDirs(tree *MemoryTree, dir string) error {
	if dir == resource.Root {
		return nil
	}
	if _, err := tree.Get(dir); err == nil {
		return nil
	}
	if err := o.ensureDirs(tree, resource.Dir(dir)); err != nil {
		return err
	}
	return tree.Add(resource.New(dir, nil, o, true))
}
