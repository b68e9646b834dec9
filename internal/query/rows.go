package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentic-research/resgrid/api"
	"github.com/agentic-research/resgrid/internal/filter"
	"github.com/agentic-research/resgrid/internal/repository"
	"github.com/agentic-research/resgrid/internal/resource"
)

// Criteria is the textual form of a filter as entered on the command line or
// passed to a tool. Empty fields impose no constraint.
type Criteria struct {
	Name       string
	Type       string
	Origin     string // origin name
	Overridden bool
	Status     string // code or label
}

// ParseCriteria builds Criteria from column=value pairs, e.g. the repeated
// --filter flag. Column names are case-insensitive; an unknown column fails
// with filter.ErrUnsupportedColumn.
func ParseCriteria(pairs map[string]string) (Criteria, error) {
	var c Criteria
	for key, value := range pairs {
		col, err := filter.ParseColumn(key)
		if err != nil {
			return Criteria{}, err
		}
		switch col {
		case filter.ColumnName:
			c.Name = value
		case filter.ColumnType:
			c.Type = value
		case filter.ColumnOrigin:
			c.Origin = value
		case filter.ColumnStatus:
			c.Status = value
		case filter.ColumnOverridden:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Criteria{}, fmt.Errorf("%w: overridden %q is not a boolean", filter.ErrInvalidValue, value)
			}
			c.Overridden = b
		}
	}
	return c, nil
}

// Merge returns c with every non-empty field of o applied on top.
func (c Criteria) Merge(o Criteria) Criteria {
	if o.Name != "" {
		c.Name = o.Name
	}
	if o.Type != "" {
		c.Type = o.Type
	}
	if o.Origin != "" {
		c.Origin = o.Origin
	}
	if o.Status != "" {
		c.Status = o.Status
	}
	c.Overridden = c.Overridden || o.Overridden
	return c
}

// Filter converts c using origins to resolve the origin name.
func (c Criteria) Filter(origins []resource.Origin) (filter.Filter, error) {
	f := filter.Filter{
		filter.ColumnName:       filter.Text(c.Name),
		filter.ColumnType:       filter.Text(c.Type),
		filter.ColumnOverridden: filter.Bool(c.Overridden),
	}
	if c.Origin != "" {
		o, err := originByName(origins, c.Origin)
		if err != nil {
			return nil, err
		}
		f[filter.ColumnOrigin] = filter.OriginValue{Origin: o}
	}
	if c.Status != "" {
		s, err := filter.ParseStatus(c.Status)
		if err != nil {
			return nil, err
		}
		f[filter.ColumnStatus] = s
	}
	return f, nil
}

func originByName(origins []resource.Origin, name string) (resource.Origin, error) {
	names := make([]string, 0, len(origins))
	for _, o := range origins {
		if o.Name() == name {
			return o, nil
		}
		names = append(names, o.Name())
	}
	return nil, fmt.Errorf("%w: unknown origin %q (have %s)", filter.ErrInvalidValue, name, strings.Join(names, ", "))
}

// Row renders r for listings.
func (e *Engine) Row(ctx context.Context, r *resource.Resource) (api.Row, error) {
	row := api.Row{
		ID:         RowID(r),
		Name:       r.Name,
		Dir:        r.Dir,
		Overridden: r.Overridden(),
	}
	if !r.Dir {
		row.Type = e.evaluator.Detect(r.Name)
	}
	for _, l := range r.Layers() {
		if l.Origin != nil {
			row.Origins = append(row.Origins, l.Origin.Name())
		}
	}
	code, ok, err := e.evaluator.Status(ctx, r)
	if err != nil {
		return api.Row{}, err
	}
	if ok {
		row.Status = repository.StatusLabel(code)
	}
	return row, nil
}

// Page fetches one page of rows for f together with the total match count.
func (e *Engine) Page(ctx context.Context, f filter.Filter, offset, limit int) (*api.Page, error) {
	resources, err := e.Fetch(ctx, f, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := e.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	page := &api.Page{Offset: offset, Limit: limit, Total: total, Rows: make([]api.Row, 0, len(resources))}
	for _, r := range resources {
		row, err := e.Row(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.Path, err)
		}
		page.Rows = append(page.Rows, row)
	}
	return page, nil
}
