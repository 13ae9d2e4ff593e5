package query

import (
	"fmt"
	"strconv"
)

// Kind identifies the shape of a Predicate.
type Kind int

const (
	// KindStringEquals compares a bin to a string value.
	KindStringEquals Kind = iota + 1
	// KindIntegerEquals compares a bin to an integer value.
	KindIntegerEquals
	// KindIntegerRange matches a bin between two integers, both inclusive.
	KindIntegerRange
)

var kindNames = map[Kind]string{
	KindStringEquals:  "string_equals",
	KindIntegerEquals: "integer_equals",
	KindIntegerRange:  "integer_range",
}

// Known reports whether k is one of the declared kinds.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Known() {
		return nil, fmt.Errorf("unknown predicate kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown predicate kind %q", string(text))
}

// Predicate is a single filter condition on one bin. An empty Bin marks
// the end of a predicate list.
type Predicate struct {
	Bin  string `json:"bin" yaml:"bin"`
	Str  string `json:"string,omitempty" yaml:"string,omitempty"`
	Int  int64  `json:"integer,omitempty" yaml:"integer,omitempty"`
	Min  int64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max  int64  `json:"max,omitempty" yaml:"max,omitempty"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// StringEquals matches records whose bin equals value.
func StringEquals(bin, value string) Predicate {
	return Predicate{Kind: KindStringEquals, Bin: bin, Str: value}
}

// IntegerEquals matches records whose bin equals value.
func IntegerEquals(bin string, value int64) Predicate {
	return Predicate{Kind: KindIntegerEquals, Bin: bin, Int: value}
}

// IntegerRange matches records whose bin lies in [min, max].
func IntegerRange(bin string, min, max int64) Predicate {
	return Predicate{Kind: KindIntegerRange, Bin: bin, Min: min, Max: max}
}

// Direction is the sort direction of an OrderBy clause.
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = iota
	// Descending sorts largest first.
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// OrderBy sorts results by one bin. An empty Bin marks the end of the list.
type OrderBy struct {
	Bin       string    `json:"bin" yaml:"bin"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Aggregation names a server-side function applied to the results.
type Aggregation struct {
	Module   string `json:"module" yaml:"module"`
	Function string `json:"function" yaml:"function"`
	Args     []any  `json:"args,omitempty" yaml:"args,omitempty"`
}

// Present reports whether both module and function are set. A partially
// specified aggregation is treated as absent.
func (a Aggregation) Present() bool {
	return a.Module != "" && a.Function != ""
}
