// Package aggregate holds the named functions a query can apply to its
// result stream in place of raw records.
package aggregate

import (
	"context"
	"fmt"
	"sync"

	"github.com/theory-cloud/bintheory/pkg/core"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
)

// Func reduces or transforms the records of one query. args are the
// aggregation arguments in the order the caller supplied them.
type Func func(ctx context.Context, args []any, records []*core.Record) ([]*core.Record, error)

// StatsModule is the module name of the built-in functions.
const StatsModule = "stats"

// Registry maps module/function names to functions. It is safe for
// concurrent use.
type Registry struct {
	funcs map[string]map[string]Func
	mu    sync.RWMutex
}

// NewRegistry returns a registry preloaded with the stats module.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]map[string]Func)}
	r.mustRegister(StatsModule, "count", count)
	r.mustRegister(StatsModule, "sum", sum)
	r.mustRegister(StatsModule, "min", extreme("min", func(a, b int64) bool { return a < b }))
	r.mustRegister(StatsModule, "max", extreme("max", func(a, b int64) bool { return a > b }))
	return r
}

// Default is the process-wide registry used when a transport is not
// given one.
var Default = NewRegistry()

// Register adds or replaces module.function.
func (r *Registry) Register(module, function string, fn Func) error {
	if module == "" || function == "" {
		return fmt.Errorf("aggregate: module and function are required")
	}
	if fn == nil {
		return fmt.Errorf("aggregate: nil function for %s.%s", module, function)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fns, ok := r.funcs[module]
	if !ok {
		fns = make(map[string]Func)
		r.funcs[module] = fns
	}
	fns[function] = fn
	return nil
}

func (r *Registry) mustRegister(module, function string, fn Func) {
	if err := r.Register(module, function, fn); err != nil {
		panic(err)
	}
}

// Lookup returns module.function if registered.
func (r *Registry) Lookup(module, function string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[module][function]
	return fn, ok
}

// Apply runs the aggregation named by agg over records. A nil agg returns
// records unchanged.
func (r *Registry) Apply(ctx context.Context, agg *core.Aggregate, records []*core.Record) ([]*core.Record, error) {
	if agg == nil {
		return records, nil
	}
	fn, ok := r.Lookup(agg.Module, agg.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", customerrors.ErrAggregateNotFound, agg.Module, agg.Function)
	}
	return fn(ctx, agg.Args, records)
}

func count(_ context.Context, _ []any, records []*core.Record) ([]*core.Record, error) {
	return []*core.Record{{Bins: map[string]any{"count": int64(len(records))}}}, nil
}

func binArg(name string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("aggregate: %s expects one bin name argument", name)
	}
	bin, ok := args[0].(string)
	if !ok || bin == "" {
		return "", fmt.Errorf("aggregate: %s bin argument must be a non-empty string", name)
	}
	return bin, nil
}

// sum adds the integer values of one bin; records without it are skipped.
func sum(_ context.Context, args []any, records []*core.Record) ([]*core.Record, error) {
	bin, err := binArg("sum", args)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, rec := range records {
		if v, ok := rec.Bin(bin); ok {
			if n, ok := core.AsInt64(v); ok {
				total += n
			}
		}
	}
	return []*core.Record{{Bins: map[string]any{"sum": total}}}, nil
}

func extreme(name string, better func(a, b int64) bool) Func {
	return func(_ context.Context, args []any, records []*core.Record) ([]*core.Record, error) {
		bin, err := binArg(name, args)
		if err != nil {
			return nil, err
		}
		var (
			best  int64
			found bool
		)
		for _, rec := range records {
			v, ok := rec.Bin(bin)
			if !ok {
				continue
			}
			n, ok := core.AsInt64(v)
			if !ok {
				continue
			}
			if !found || better(n, best) {
				best, found = n, true
			}
		}
		if !found {
			return []*core.Record{{Bins: map[string]any{name: nil}}}, nil
		}
		return []*core.Record{{Bins: map[string]any{name: best}}}, nil
	}
}
