package origin

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/resgrid/internal/resource"
)

// Source is an origin that can materialize its own resource tree.
// A nil logger uses log.Default().
type Source interface {
	resource.Origin
	Load(ctx context.Context, logger *log.Logger) (*MemoryTree, error)
}

// FileOrigin serves editable resources from a filesystem, e.g. a light-modules
// directory mounted with osfs.
type FileOrigin struct {
	name string
	fs   billy.Filesystem
}

// NewFileOrigin creates an editable origin over fsys.
func NewFileOrigin(name string, fsys billy.Filesystem) *FileOrigin {
	return &FileOrigin{name: name, fs: fsys}
}

func (o *FileOrigin) Name() string        { return o.name }
func (o *FileOrigin) Kind() resource.Kind { return resource.KindFile }
func (o *FileOrigin) ClasspathOnly() bool { return false }

// Load implements Source.
func (o *FileOrigin) Load(ctx context.Context, logger *log.Logger) (*MemoryTree, error) {
	return loadFilesystem(ctx, logger, o, o.fs)
}

// ClasspathOrigin serves bundled, read-only resources.
type ClasspathOrigin struct {
	name string
	fs   billy.Filesystem
}

// NewClasspathOrigin creates a classpath-only origin over fsys.
func NewClasspathOrigin(name string, fsys billy.Filesystem) *ClasspathOrigin {
	return &ClasspathOrigin{name: name, fs: fsys}
}

func (o *ClasspathOrigin) Name() string        { return o.name }
func (o *ClasspathOrigin) Kind() resource.Kind { return resource.KindClasspath }
func (o *ClasspathOrigin) ClasspathOnly() bool { return true }

// Load implements Source.
func (o *ClasspathOrigin) Load(ctx context.Context, logger *log.Logger) (*MemoryTree, error) {
	return loadFilesystem(ctx, logger, o, o.fs)
}

// loadFilesystem walks fsys from its root and mirrors every file and
// directory into a MemoryTree owned by origin. Symlinks are skipped.
func loadFilesystem(ctx context.Context, logger *log.Logger, origin resource.Origin, fsys billy.Filesystem) (*MemoryTree, error) {
	if logger == nil {
		logger = log.Default()
	}
	l := &fsLoader{tree: NewMemoryTree(origin), origin: origin, fs: fsys, logger: logger}
	if err := l.loadDir(ctx, resource.Root); err != nil {
		return nil, fmt.Errorf("load origin %s: %w", origin.Name(), err)
	}
	return l.tree, nil
}

type fsLoader struct {
	tree   *MemoryTree
	origin resource.Origin
	fs     billy.Filesystem
	logger *log.Logger
}

func (l *fsLoader) loadDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, fi := range entries {
		p := resource.Join(dir, fi.Name())
		if fi.Mode()&os.ModeSymlink != 0 {
			l.logger.Warn("skipping symlink", "origin", l.origin.Name(), "path", p)
			continue
		}
		r := resource.New(p, nil, l.origin, fi.IsDir())
		r.ModTime = fi.ModTime()
		if err := l.tree.Add(r); err != nil {
			return err
		}
		if fi.IsDir() {
			if err := l.loadDir(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}
