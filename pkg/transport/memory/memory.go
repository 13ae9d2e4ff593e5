// Package memory provides an in-process cluster transport. Records live in
// memory, keyed by namespace, set and key; queries are evaluated locally
// with the same semantics as a remote cluster.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/theory-cloud/bintheory/internal/resultset"
	"github.com/theory-cloud/bintheory/pkg/aggregate"
	"github.com/theory-cloud/bintheory/pkg/core"
)

// ErrNotInitialized is returned by dispatch before InitQuerySubsystem.
var ErrNotInitialized = errors.New("memory: query subsystem not initialized")

type location struct {
	namespace string
	set       string
	key       string
}

// Cluster is an in-memory record store that implements core.Transport and
// core.Subsystem.
type Cluster struct {
	aggs      *aggregate.Registry
	index     map[location]int
	records   []*core.Record
	inits     atomic.Int32
	shutdowns atomic.Int32
	mu        sync.RWMutex
	running   atomic.Bool
}

// Option configures a Cluster.
type Option func(*Cluster)

// WithAggregates sets the registry used for aggregation requests.
func WithAggregates(r *aggregate.Registry) Option {
	return func(c *Cluster) {
		c.aggs = r
	}
}

// New returns an empty cluster.
func New(opts ...Option) *Cluster {
	c := &Cluster{
		aggs:  aggregate.Default,
		index: make(map[location]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put stores or replaces a record. Bins are copied.
func (c *Cluster) Put(namespace, set, key string, bins map[string]any) {
	rec := &core.Record{Namespace: namespace, Set: set, Key: key, Bins: make(map[string]any, len(bins))}
	for k, v := range bins {
		rec.Bins[k] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	loc := location{namespace, set, key}
	if i, ok := c.index[loc]; ok {
		c.records[i] = rec
		return
	}
	c.index[loc] = len(c.records)
	c.records = append(c.records, rec)
}

// Delete removes a record and reports whether it existed.
func (c *Cluster) Delete(namespace, set, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc := location{namespace, set, key}
	i, ok := c.index[loc]
	if !ok {
		return false
	}
	c.records = append(c.records[:i], c.records[i+1:]...)
	delete(c.index, loc)
	for j := i; j < len(c.records); j++ {
		r := c.records[j]
		c.index[location{r.Namespace, r.Set, r.Key}] = j
	}
	return true
}

// Len returns the number of stored records.
func (c *Cluster) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// InitQuerySubsystem marks the cluster ready for queries.
func (c *Cluster) InitQuerySubsystem(context.Context) error {
	c.inits.Add(1)
	c.running.Store(true)
	return nil
}

// ShutdownQuerySubsystem stops accepting queries.
func (c *Cluster) ShutdownQuerySubsystem(context.Context) error {
	c.shutdowns.Add(1)
	c.running.Store(false)
	return nil
}

// Inits returns how many times setup ran.
func (c *Cluster) Inits() int { return int(c.inits.Load()) }

// Shutdowns returns how many times teardown ran.
func (c *Cluster) Shutdowns() int { return int(c.shutdowns.Load()) }

// DispatchForEach implements core.Transport.
func (c *Cluster) DispatchForEach(ctx context.Context, req *core.Request, udata any, fn core.ForEachFunc) error {
	return c.dispatch(ctx, req, resultset.ForEach(fn, udata))
}

// DispatchToSink implements core.Transport.
func (c *Cluster) DispatchToSink(ctx context.Context, req *core.Request, sink core.Sink) error {
	return c.dispatch(ctx, req, resultset.ToSink(sink))
}

func (c *Cluster) dispatch(ctx context.Context, req *core.Request, out resultset.Deliver) error {
	if !c.running.Load() {
		return ErrNotInitialized
	}
	if req == nil {
		return fmt.Errorf("memory: nil request")
	}

	stream := resultset.New(req, c.aggs, out)
	for _, rec := range c.scan(req) {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := stream.Push(rec)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return stream.Close(ctx)
}

// scan returns copies of the records in the request's namespace and set
// that satisfy every filter.
func (c *Cluster) scan(req *core.Request) []*core.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*core.Record
	for _, rec := range c.records {
		if rec.Namespace != req.Namespace {
			continue
		}
		if req.Set != "" && rec.Set != req.Set {
			continue
		}
		if !req.Matches(rec) {
			continue
		}
		out = append(out, rec.Project(nil))
	}
	return out
}
