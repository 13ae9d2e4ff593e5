package query

import (
	"github.com/google/uuid"

	"github.com/theory-cloud/bintheory/pkg/core"
)

// Translate builds a fresh transport request from q. It never fails:
// bins, predicates and order keys are read up to the first entry with an
// empty name, and predicates of unknown kind are dropped. A nil query
// translates to nil.
func Translate(q *Query) *core.Request {
	if q == nil {
		return nil
	}

	req := &core.Request{
		ID:        uuid.NewString(),
		Namespace: q.Namespace,
		Set:       q.Set,
	}

	if q.MaxRecords != Unbounded {
		limit := q.MaxRecords
		req.Limit = &limit
	}

	for _, bin := range q.Bins {
		if bin == "" {
			break
		}
		req.Bins = append(req.Bins, bin)
	}

	for _, p := range q.Predicates {
		if p.Bin == "" {
			break
		}
		if f, ok := compilePredicate(p); ok {
			req.Filters = append(req.Filters, f)
		}
	}

	for _, o := range q.Order {
		if o.Bin == "" {
			break
		}
		req.Sort = append(req.Sort, core.SortKey{Bin: o.Bin, Descending: o.Direction == Descending})
	}

	if q.Aggregation.Present() {
		args := make([]any, len(q.Aggregation.Args))
		copy(args, q.Aggregation.Args)
		req.Aggregate = &core.Aggregate{
			Module:   q.Aggregation.Module,
			Function: q.Aggregation.Function,
			Args:     args,
		}
	}

	return req
}

func compilePredicate(p Predicate) (core.Filter, bool) {
	switch p.Kind {
	case KindStringEquals:
		return core.Filter{Bin: p.Bin, Op: core.OpEqual, Type: core.TypeString, Str: p.Str}, true
	case KindIntegerEquals:
		return core.Filter{Bin: p.Bin, Op: core.OpEqual, Type: core.TypeInteger, Int: p.Int}, true
	case KindIntegerRange:
		return core.Filter{Bin: p.Bin, Op: core.OpRange, Type: core.TypeInteger, Min: p.Min, Max: p.Max}, true
	default:
		return core.Filter{}, false
	}
}
