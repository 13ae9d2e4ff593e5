package core

import (
	"strconv"
	"strings"
)

// FilterOp is the comparison carried by a Filter.
type FilterOp int

const (
	// OpEqual compares a bin to a single value.
	OpEqual FilterOp = iota + 1
	// OpRange matches a bin between Min and Max, both inclusive.
	OpRange
)

func (o FilterOp) String() string {
	switch o {
	case OpEqual:
		return "EQ"
	case OpRange:
		return "RANGE"
	default:
		return "op(" + strconv.Itoa(int(o)) + ")"
	}
}

// ValueType is the type of the operand(s) of a Filter.
type ValueType int

const (
	// TypeString marks a string operand.
	TypeString ValueType = iota + 1
	// TypeInteger marks an integer operand.
	TypeInteger
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "STR"
	case TypeInteger:
		return "INT"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Filter is one conjunctive condition of a Request.
type Filter struct {
	Bin  string
	Str  string
	Int  int64
	Min  int64
	Max  int64
	Op   FilterOp
	Type ValueType
}

// String renders the filter for logs, e.g. `age RANGE INT [5,10]`.
func (f Filter) String() string {
	var b strings.Builder
	b.WriteString(f.Bin)
	b.WriteString(" ")
	b.WriteString(f.Op.String())
	b.WriteString(" ")
	b.WriteString(f.Type.String())
	b.WriteString(" ")
	switch {
	case f.Op == OpRange:
		b.WriteString("[" + strconv.FormatInt(f.Min, 10) + "," + strconv.FormatInt(f.Max, 10) + "]")
	case f.Type == TypeString:
		b.WriteString(strconv.Quote(f.Str))
	default:
		b.WriteString(strconv.FormatInt(f.Int, 10))
	}
	return b.String()
}

// Matches reports whether rec satisfies the filter. A missing bin or a bin
// of the wrong type never matches.
func (f Filter) Matches(rec *Record) bool {
	if rec == nil {
		return false
	}
	v, ok := rec.Bins[f.Bin]
	if !ok {
		return false
	}

	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return false
		}
		return f.Op == OpEqual && s == f.Str
	case TypeInteger:
		n, ok := AsInt64(v)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			return n == f.Int
		case OpRange:
			return n >= f.Min && n <= f.Max
		}
	}
	return false
}

// SortKey orders results by one bin.
type SortKey struct {
	Bin        string
	Descending bool
}

// Aggregate names a server-side function applied to the result stream.
type Aggregate struct {
	Module   string
	Function string
	Args     []any
}

// Request is the transport-facing query built fresh for each execution.
// It is owned by that execution and never shared.
type Request struct {
	Limit     *uint64
	Aggregate *Aggregate
	ID        string
	Namespace string
	Set       string
	Bins      []string
	Filters   []Filter
	Sort      []SortKey
}

// HasLimit reports whether a row limit was set.
func (r *Request) HasLimit() bool {
	return r != nil && r.Limit != nil
}

// Matches reports whether rec satisfies every filter of the request.
func (r *Request) Matches(rec *Record) bool {
	for _, f := range r.Filters {
		if !f.Matches(rec) {
			return false
		}
	}
	return true
}
