// Package resultset applies the parts of a request that a transport
// evaluates after reading records: ordering, limit, projection and
// aggregation, then hands results to the caller's delivery target.
package resultset

import (
	"context"
	"fmt"
	"sort"

	"github.com/theory-cloud/bintheory/pkg/aggregate"
	"github.com/theory-cloud/bintheory/pkg/core"
)

// Deliver receives one finished record. Returning false stops the stream.
type Deliver func(rec *core.Record) (bool, error)

// ForEach delivers to a callback.
func ForEach(fn core.ForEachFunc, udata any) Deliver {
	return func(rec *core.Record) (bool, error) {
		return fn(rec, udata), nil
	}
}

// ToSink delivers to a sink. A sink error stops the stream.
func ToSink(sink core.Sink) Deliver {
	return func(rec *core.Record) (bool, error) {
		if err := sink.Accept(rec); err != nil {
			return false, fmt.Errorf("sink rejected record: %w", err)
		}
		return true, nil
	}
}

// Stream collects matching records for one request. Requests without
// ordering or aggregation are delivered as they arrive; the rest are
// buffered until Close.
type Stream struct {
	req       *core.Request
	out       Deliver
	aggs      *aggregate.Registry
	buf       []*core.Record
	delivered uint64
	done      bool
}

// New starts a stream for req. A nil registry uses aggregate.Default.
func New(req *core.Request, aggs *aggregate.Registry, out Deliver) *Stream {
	if aggs == nil {
		aggs = aggregate.Default
	}
	return &Stream{req: req, aggs: aggs, out: out}
}

// Buffered reports whether results wait for Close.
func (s *Stream) Buffered() bool {
	return len(s.req.Sort) > 0 || s.req.Aggregate != nil
}

// Done reports whether the stream wants no more records.
func (s *Stream) Done() bool {
	return s.done
}

// Push offers one record that already satisfied the request's filters.
// It returns false once the stream wants no more records.
func (s *Stream) Push(rec *core.Record) (bool, error) {
	if s.done {
		return false, nil
	}
	if s.Buffered() {
		s.buf = append(s.buf, rec)
		return true, nil
	}
	return s.emit(rec.Project(s.req.Bins))
}

func (s *Stream) emit(rec *core.Record) (bool, error) {
	if s.req.Limit != nil && s.delivered >= *s.req.Limit {
		s.done = true
		return false, nil
	}
	more, err := s.out(rec)
	s.delivered++
	if err != nil || !more || (s.req.Limit != nil && s.delivered >= *s.req.Limit) {
		s.done = true
		return false, err
	}
	return true, nil
}

// Close flushes buffered records: sort, limit, project, aggregate, then
// deliver in order.
func (s *Stream) Close(ctx context.Context) error {
	if !s.Buffered() || s.done {
		s.done = true
		return nil
	}

	records := s.buf
	s.buf = nil
	if len(s.req.Sort) > 0 {
		Sort(records, s.req.Sort)
	}
	if s.req.Limit != nil && uint64(len(records)) > *s.req.Limit {
		records = records[:*s.req.Limit]
	}
	for i, rec := range records {
		records[i] = rec.Project(s.req.Bins)
	}

	if s.req.Aggregate != nil {
		var err error
		records, err = s.aggs.Apply(ctx, s.req.Aggregate, records)
		if err != nil {
			s.done = true
			return err
		}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.done = true
			return err
		}
		more, err := s.out(rec)
		s.delivered++
		if err != nil {
			s.done = true
			return err
		}
		if !more {
			break
		}
	}
	s.done = true
	return nil
}

// Delivered returns how many records reached the delivery target.
func (s *Stream) Delivered() uint64 {
	return s.delivered
}

// Sort orders records by keys, first key primary. The sort is stable and
// records missing a key bin sort after those that have it.
func Sort(records []*core.Record, keys []core.SortKey) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			a, aok := records[i].Bin(k.Bin)
			b, bok := records[j].Bin(k.Bin)
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			c := Compare(a, b)
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Compare orders two bin values: numbers numerically, then strings
// lexically. Values of different classes order by class, numbers first.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		x, xok := core.AsInt64(a)
		y, yok := core.AsInt64(b)
		if xok && yok {
			return cmp(x < y, x > y)
		}
		fx, _ := toFloat(a)
		fy, _ := toFloat(b)
		return cmp(fx < fy, fx > fy)
	case 1:
		x, y := a.(string), b.(string)
		return cmp(x < y, x > y)
	}
	return 0
}

func cmp(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func rank(v any) int {
	if _, ok := toFloat(v); ok {
		return 0
	}
	if _, ok := v.(string); ok {
		return 1
	}
	return 2
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := core.AsInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
