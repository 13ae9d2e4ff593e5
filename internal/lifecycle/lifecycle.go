// Package lifecycle guards the one-time setup and teardown of a transport's
// query subsystem.
package lifecycle

import (
	"context"
	"sync"

	"github.com/theory-cloud/bintheory/pkg/core"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
)

// Guard runs a subsystem's setup at most once until it is torn down.
// The check and the state change happen under one lock, so concurrent
// first callers never both run setup.
type Guard struct {
	sub         core.Subsystem
	mu          sync.Mutex
	initialized bool
}

// NewGuard returns a guard for sub. A nil sub needs no setup; the guard
// still tracks state.
func NewGuard(sub core.Subsystem) *Guard {
	return &Guard{sub: sub}
}

// EnsureInitialized performs setup if it has not happened yet. When setup
// fails the guard stays uninitialized and the next call retries.
func (g *Guard) EnsureInitialized(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return nil
	}
	if g.sub != nil {
		if err := g.sub.InitQuerySubsystem(ctx); err != nil {
			return customerrors.LifecycleError("init", err)
		}
	}
	g.initialized = true
	return nil
}

// Teardown shuts the subsystem down if it was initialized. The guard is
// marked uninitialized even when shutdown reports an error.
func (g *Guard) Teardown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		return nil
	}
	g.initialized = false
	if g.sub != nil {
		if err := g.sub.ShutdownQuerySubsystem(ctx); err != nil {
			return customerrors.LifecycleError("shutdown", err)
		}
	}
	return nil
}

// Initialized reports the current state.
func (g *Guard) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}

var (
	registryMu sync.Mutex
	registry   = map[core.Subsystem]*Guard{}
)

// For returns the process-wide guard of sub, creating it on first use.
// Every caller sharing a subsystem shares its guard.
func For(sub core.Subsystem) *Guard {
	registryMu.Lock()
	defer registryMu.Unlock()

	if g, ok := registry[sub]; ok {
		return g
	}
	g := NewGuard(sub)
	registry[sub] = g
	return g
}

// Release tears down the process-wide guard of sub. The guard stays
// registered, so later callers of For share it and set the subsystem up
// again on first use.
func Release(ctx context.Context, sub core.Subsystem) error {
	registryMu.Lock()
	g, ok := registry[sub]
	registryMu.Unlock()

	if !ok {
		return nil
	}
	return g.Teardown(ctx)
}
