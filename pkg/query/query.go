// Package query provides the declarative query descriptor and its
// translation into a transport request.
package query

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
)

// Unbounded is the limit value meaning "no limit". It is never forwarded
// to the transport.
const Unbounded uint64 = math.MaxUint64

// Query describes what to read: where, which bins, which records, in what
// order, and an optional aggregation. Build it with New and the chainable
// methods; the zero value has a limit of 0. Decoded descriptors without a
// limit are unbounded.
type Query struct {
	Namespace   string      `json:"namespace" yaml:"namespace"`
	Set         string      `json:"set,omitempty" yaml:"set,omitempty"`
	Bins        []string    `json:"bins,omitempty" yaml:"bins,omitempty"`
	Predicates  []Predicate `json:"predicates,omitempty" yaml:"predicates,omitempty"`
	Order       []OrderBy   `json:"order,omitempty" yaml:"order,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	MaxRecords  uint64      `json:"limit" yaml:"limit"`
}

// New creates an unbounded query over namespace and set. An empty set
// addresses the whole namespace.
func New(namespace, set string) *Query {
	return &Query{
		Namespace:  namespace,
		Set:        set,
		MaxRecords: Unbounded,
	}
}

// Select appends bins to the projection. No selection means all bins.
func (q *Query) Select(bins ...string) *Query {
	q.Bins = append(q.Bins, bins...)
	return q
}

// Where appends predicates. All predicates must match.
func (q *Query) Where(predicates ...Predicate) *Query {
	q.Predicates = append(q.Predicates, predicates...)
	return q
}

// OrderBy appends a sort key. The first key is the primary sort.
func (q *Query) OrderBy(bin string, direction Direction) *Query {
	q.Order = append(q.Order, OrderBy{Bin: bin, Direction: direction})
	return q
}

// Limit caps the number of records returned. Pass Unbounded to remove the cap.
func (q *Query) Limit(n uint64) *Query {
	q.MaxRecords = n
	return q
}

// Apply attaches a server-side aggregation, replacing any previous one.
func (q *Query) Apply(module, function string, args ...any) *Query {
	q.Aggregation = Aggregation{Module: module, Function: function, Args: args}
	return q
}

// Unlimited reports whether the query has no record limit.
func (q *Query) Unlimited() bool {
	return q.MaxRecords == Unbounded
}

// Validate rejects descriptors that Translate would silently degrade: a
// missing namespace or a predicate of unknown kind before the terminator.
func (q *Query) Validate() error {
	if q == nil || q.Namespace == "" {
		return customerrors.NewError("validate", customerrors.CodeInvalidQuery, customerrors.ErrMissingNamespace)
	}
	for i, p := range q.Predicates {
		if p.Bin == "" {
			break
		}
		if !p.Kind.Known() {
			return customerrors.NewError("validate", customerrors.CodeInvalidQuery,
				fmt.Errorf("%w: predicate %d has %s", customerrors.ErrUnknownPredicate, i, p.Kind))
		}
	}
	return nil
}

// queryFields has Query's fields without its decoding methods.
type queryFields Query

// UnmarshalJSON decodes a descriptor. An absent limit means Unbounded.
func (q *Query) UnmarshalJSON(data []byte) error {
	fields := queryFields{MaxRecords: Unbounded}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*q = Query(fields)
	return nil
}

// UnmarshalYAML decodes a descriptor. An absent limit means Unbounded.
func (q *Query) UnmarshalYAML(value *yaml.Node) error {
	fields := queryFields{MaxRecords: Unbounded}
	if err := value.Decode(&fields); err != nil {
		return err
	}
	*q = Query(fields)
	return nil
}
