package core

import "math"

// Record is a single result delivered by a query: the record's location
// and its bins.
type Record struct {
	Bins      map[string]any
	Namespace string
	Set       string
	Key       string
}

// Bin returns the named bin value and whether it was present.
func (r *Record) Bin(name string) (any, bool) {
	if r == nil || r.Bins == nil {
		return nil, false
	}
	v, ok := r.Bins[name]
	return v, ok
}

// Project returns a copy of r holding only the named bins. An empty list
// keeps every bin.
func (r *Record) Project(bins []string) *Record {
	if r == nil {
		return nil
	}
	out := &Record{Namespace: r.Namespace, Set: r.Set, Key: r.Key}
	if len(bins) == 0 {
		out.Bins = make(map[string]any, len(r.Bins))
		for k, v := range r.Bins {
			out.Bins[k] = v
		}
		return out
	}
	out.Bins = make(map[string]any, len(bins))
	for _, name := range bins {
		if v, ok := r.Bins[name]; ok {
			out.Bins[name] = v
		}
	}
	return out
}

// AsInt64 converts the integer kinds a bin may hold to int64. Floats are
// accepted only when they carry an exact integer.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
