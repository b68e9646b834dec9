// Package filter evaluates the fixed set of column predicates used to narrow
// a resource listing.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agentic-research/resgrid/internal/repository"
	"github.com/agentic-research/resgrid/internal/resource"
)

var (
	// ErrUnsupportedColumn reports a filter keyed by a column the evaluator
	// does not know. It is a caller bug, not a data condition.
	ErrUnsupportedColumn = errors.New("unsupported filter column")
	// ErrInvalidValue reports a value whose variant does not fit its column.
	ErrInvalidValue = errors.New("invalid filter value")
	// ErrRepositoryUnavailable wraps failures of the activation-status lookup.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)

// Column names a filterable property.
type Column string

const (
	ColumnOrigin     Column = "origin"
	ColumnType       Column = "type"
	ColumnName       Column = "name"
	ColumnOverridden Column = "overridden"
	ColumnStatus     Column = "status"
)

// Columns lists every supported column.
var Columns = []Column{ColumnOrigin, ColumnType, ColumnName, ColumnOverridden, ColumnStatus}

// Known reports whether c is a supported column.
func (c Column) Known() bool {
	switch c {
	case ColumnOrigin, ColumnType, ColumnName, ColumnOverridden, ColumnStatus:
		return true
	default:
		return false
	}
}

// ParseColumn converts a column name, case-insensitively.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if !c.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedColumn, s)
	}
	return c, nil
}

// Value is a filter value. The concrete variant depends on the column:
// OriginValue for origin, Text for type and name, Bool for overridden and
// StatusValue for status.
type Value interface {
	isValue()
}

// OriginValue matches resources with a layer from an origin of the same kind.
type OriginValue struct {
	Origin resource.Origin
}

// Text is a case-sensitive substring.
type Text string

// Bool is a flag value.
type Bool bool

// StatusValue is an expected activation status code.
type StatusValue struct {
	Code  int
	Label string
}

func (OriginValue) isValue() {}
func (Text) isValue()        {}
func (Bool) isValue()        {}
func (StatusValue) isValue() {}

// ParseStatus parses an option value into a StatusValue. It accepts a code
// such as "2" or a label such as "activated".
func ParseStatus(s string) (StatusValue, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return StatusValue{Code: code, Label: repository.StatusLabel(code)}, nil
	}
	label := strings.ReplaceAll(strings.ToLower(s), "_", " ")
	for _, code := range []int{repository.StatusNotActivated, repository.StatusModified, repository.StatusActivated} {
		if repository.StatusLabel(code) == label {
			return StatusValue{Code: code, Label: label}, nil
		}
	}
	return StatusValue{}, fmt.Errorf("%w: unknown status %q", ErrInvalidValue, s)
}

// Filter maps columns to values. Entries whose value is nil or an empty Text
// impose no constraint.
type Filter map[Column]Value

// empty reports whether v imposes no constraint.
func empty(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case Text:
		return v == ""
	case OriginValue:
		return v.Origin == nil
	default:
		return false
	}
}

// Active returns the constraining entries' columns in a stable order.
func (f Filter) Active() []Column {
	cols := make([]Column, 0, len(f))
	for c, v := range f {
		if !empty(v) {
			cols = append(cols, c)
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

// Validate checks that every constraining entry uses a supported column with
// a value of the matching variant.
func (f Filter) Validate() error {
	for _, c := range f.Active() {
		if err := checkValue(c, f[c]); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(c Column, v Value) error {
	var ok bool
	switch c {
	case ColumnOrigin:
		_, ok = v.(OriginValue)
	case ColumnType, ColumnName:
		_, ok = v.(Text)
	case ColumnOverridden:
		_, ok = v.(Bool)
	case ColumnStatus:
		_, ok = v.(StatusValue)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedColumn, string(c))
	}
	if !ok {
		return fmt.Errorf("%w: %T for column %s", ErrInvalidValue, v, c)
	}
	return nil
}

// String renders the filter for logs, e.g. "name=foo overridden=true".
func (f Filter) String() string {
	cols := f.Active()
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		var s string
		switch v := f[c].(type) {
		case OriginValue:
			s = string(v.Origin.Kind())
		case Text:
			s = string(v)
		case Bool:
			s = strconv.FormatBool(bool(v))
		case StatusValue:
			s = strconv.Itoa(v.Code)
		default:
			s = fmt.Sprintf("%v", v)
		}
		parts = append(parts, string(c)+"="+s)
	}
	return strings.Join(parts, " ")
}
