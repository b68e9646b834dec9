package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	billy "github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/jp"
)

// DefaultModuleSelector extracts the owning module from a definition document.
const DefaultModuleSelector = "$.module"

// DefinitionFiles is a DefinitionRegistry reading JSON definition documents
// from a filesystem. A document is either one definition object or an array
// of them; the owning module is selected with a JSONPath expression.
type DefinitionFiles struct {
	fs       billy.Filesystem
	selector jp.Expr
	logger   *log.Logger
}

// NewDefinitionFiles creates a registry over every *.json file in fsys.
// An empty selector uses DefaultModuleSelector.
func NewDefinitionFiles(fsys billy.Filesystem, selector string) (*DefinitionFiles, error) {
	if selector == "" {
		selector = DefaultModuleSelector
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	return &DefinitionFiles{fs: fsys, selector: x, logger: log.Default()}, nil
}

// Definitions implements DefinitionRegistry. Files that are not valid JSON
// are skipped with a warning; definitions without a module are dropped.
func (d *DefinitionFiles) Definitions(ctx context.Context) ([]Definition, error) {
	var defs []Definition
	if err := d.walk(ctx, "/", &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (d *DefinitionFiles) walk(ctx context.Context, dir string, defs *[]Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read definitions dir %s: %w", dir, err)
	}
	for _, fi := range entries {
		p := path.Join(dir, fi.Name())
		if fi.IsDir() {
			if err := d.walk(ctx, p, defs); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(fi.Name(), ".json") {
			continue
		}
		found, err := d.readFile(p)
		if err != nil {
			d.logger.Warn("skipping definition file", "path", p, "err", err)
			continue
		}
		*defs = append(*defs, found...)
	}
	return nil
}

func (d *DefinitionFiles) readFile(p string) ([]Definition, error) {
	f, err := d.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only

	var doc any
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse definition json %s: %w", p, err)
	}

	items, ok := doc.([]any)
	if !ok {
		items = []any{doc}
	}
	fallback := strings.TrimSuffix(path.Base(p), ".json")

	var defs []Definition
	for _, item := range items {
		module := d.module(item)
		if module == "" {
			continue
		}
		name := fallback
		if obj, ok := item.(map[string]any); ok {
			if n, ok := obj["name"].(string); ok && n != "" {
				name = n
			}
		}
		defs = append(defs, Definition{Name: name, Module: module, Source: p})
	}
	return defs, nil
}

func (d *DefinitionFiles) module(item any) string {
	for _, v := range d.selector.Get(item) {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
