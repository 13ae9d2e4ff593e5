package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/bintheory/internal/lifecycle"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
)

type countingSubsystem struct {
	initErr     error
	shutdownErr error
	inits       atomic.Int32
	shutdowns   atomic.Int32
}

func (s *countingSubsystem) InitQuerySubsystem(context.Context) error {
	s.inits.Add(1)
	return s.initErr
}

func (s *countingSubsystem) ShutdownQuerySubsystem(context.Context) error {
	s.shutdowns.Add(1)
	return s.shutdownErr
}

func TestGuard_EnsureInitializedRunsSetupOnce(t *testing.T) {
	sub := &countingSubsystem{}
	g := lifecycle.NewGuard(sub)
	ctx := context.Background()

	require.NoError(t, g.EnsureInitialized(ctx))
	require.NoError(t, g.EnsureInitialized(ctx))

	assert.Equal(t, int32(1), sub.inits.Load())
	assert.True(t, g.Initialized())
}

func TestGuard_ConcurrentFirstCallsRunSetupOnce(t *testing.T) {
	sub := &countingSubsystem{}
	g := lifecycle.NewGuard(sub)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.EnsureInitialized(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), sub.inits.Load())
}

func TestGuard_FailedSetupStaysUninitialized(t *testing.T) {
	sub := &countingSubsystem{initErr: errors.New("no workers")}
	g := lifecycle.NewGuard(sub)

	err := g.EnsureInitialized(context.Background())
	require.Error(t, err)
	assert.True(t, customerrors.IsLifecycleError(err))
	assert.Equal(t, customerrors.CodeQueryInit, customerrors.CodeOf(err))
	assert.False(t, g.Initialized())

	sub.initErr = nil
	require.NoError(t, g.EnsureInitialized(context.Background()))
	assert.Equal(t, int32(2), sub.inits.Load())
}

func TestGuard_TeardownIsIdempotent(t *testing.T) {
	sub := &countingSubsystem{}
	g := lifecycle.NewGuard(sub)
	ctx := context.Background()

	require.NoError(t, g.Teardown(ctx))
	assert.Equal(t, int32(0), sub.shutdowns.Load())

	require.NoError(t, g.EnsureInitialized(ctx))
	require.NoError(t, g.Teardown(ctx))
	require.NoError(t, g.Teardown(ctx))

	assert.Equal(t, int32(1), sub.shutdowns.Load())
	assert.False(t, g.Initialized())

	require.NoError(t, g.EnsureInitialized(ctx))
	assert.Equal(t, int32(2), sub.inits.Load())
}

func TestGuard_ShutdownErrorStillResetsState(t *testing.T) {
	sub := &countingSubsystem{shutdownErr: errors.New("stuck")}
	g := lifecycle.NewGuard(sub)
	ctx := context.Background()

	require.NoError(t, g.EnsureInitialized(ctx))
	err := g.Teardown(ctx)

	assert.True(t, customerrors.IsLifecycleError(err))
	assert.False(t, g.Initialized())
}

func TestGuard_NilSubsystem(t *testing.T) {
	g := lifecycle.NewGuard(nil)

	require.NoError(t, g.EnsureInitialized(context.Background()))
	assert.True(t, g.Initialized())
	require.NoError(t, g.Teardown(context.Background()))
}

func TestFor_SharesGuardPerSubsystem(t *testing.T) {
	a := &countingSubsystem{}
	b := &countingSubsystem{}
	ctx := context.Background()
	t.Cleanup(func() {
		_ = lifecycle.Release(ctx, a)
		_ = lifecycle.Release(ctx, b)
	})

	assert.Same(t, lifecycle.For(a), lifecycle.For(a))
	assert.NotSame(t, lifecycle.For(a), lifecycle.For(b))

	require.NoError(t, lifecycle.For(a).EnsureInitialized(ctx))
	require.NoError(t, lifecycle.For(a).EnsureInitialized(ctx))
	assert.Equal(t, int32(1), a.inits.Load())

	guard := lifecycle.For(a)
	require.NoError(t, lifecycle.Release(ctx, a))
	assert.Equal(t, int32(1), a.shutdowns.Load())
	require.NoError(t, lifecycle.Release(ctx, a))
	assert.Equal(t, int32(1), a.shutdowns.Load())
	assert.False(t, lifecycle.For(a).Initialized())
	assert.Same(t, guard, lifecycle.For(a))

	require.NoError(t, lifecycle.For(a).EnsureInitialized(ctx))
	assert.Equal(t, int32(2), a.inits.Load())
	assert.True(t, guard.Initialized())
}
