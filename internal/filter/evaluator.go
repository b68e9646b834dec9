package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/resgrid/internal/contenttype"
	"github.com/agentic-research/resgrid/internal/repository"
	"github.com/agentic-research/resgrid/internal/resource"
)

// StatusLookup resolves the activation status of a backing record.
// Implemented by *repository.Repository.
type StatusLookup interface {
	ActivationStatus(ctx context.Context, key string) (int, error)
}

// Evaluator applies column predicates to resources.
type Evaluator struct {
	detector contenttype.Detector
	status   StatusLookup
}

// NewEvaluator creates an Evaluator. A nil detector defaults to
// contenttype.ByName; a nil status lookup makes every status predicate false.
func NewEvaluator(detector contenttype.Detector, status StatusLookup) *Evaluator {
	if detector == nil {
		detector = contenttype.ByName{}
	}
	return &Evaluator{detector: detector, status: status}
}

// Matches reports whether r satisfies every constraining entry of f.
func (e *Evaluator) Matches(ctx context.Context, r *resource.Resource, f Filter) (bool, error) {
	for _, c := range f.Active() {
		ok, err := e.Evaluate(ctx, r, c, f[c])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Evaluate applies a single column predicate. An empty value matches
// everything before the column is looked at, the same way Matches skips it.
func (e *Evaluator) Evaluate(ctx context.Context, r *resource.Resource, c Column, v Value) (bool, error) {
	if empty(v) {
		return true, nil
	}
	if err := checkValue(c, v); err != nil {
		return false, err
	}

	switch c {
	case ColumnOrigin:
		return MatchesOrigin(r, v.(OriginValue).Origin.Kind()), nil
	case ColumnType:
		return strings.Contains(e.detector.Detect(r.Name), string(v.(Text))), nil
	case ColumnName:
		return strings.Contains(r.Name, string(v.(Text))), nil
	case ColumnOverridden:
		return !bool(v.(Bool)) || r.Overridden(), nil
	case ColumnStatus:
		return e.hasStatus(ctx, r, v.(StatusValue).Code)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedColumn, string(c))
	}
}

func (e *Evaluator) hasStatus(ctx context.Context, r *resource.Resource, want int) (bool, error) {
	got, ok, err := e.Status(ctx, r)
	if err != nil || !ok {
		return false, err
	}
	return got == want, nil
}

// Status returns the activation status of r's backing record. ok is false
// when r has no backing record or the record no longer exists.
func (e *Evaluator) Status(ctx context.Context, r *resource.Resource) (code int, ok bool, err error) {
	key, found := BackingRecord(r)
	if !found || e.status == nil {
		return 0, false, nil
	}
	code, err = e.status.ActivationStatus(ctx, key)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	return code, true, nil
}

// Detect returns the content type the type column matches against.
func (e *Evaluator) Detect(name string) string {
	return e.detector.Detect(name)
}
