package bintheory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithLambdaTimeout(t *testing.T) {
	h := &LambdaHandler{timeoutBuffer: time.Second}

	t.Run("no deadline", func(t *testing.T) {
		ctx, cancel := h.withLambdaTimeout(context.Background())
		defer cancel()
		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})

	t.Run("deadline shortened by buffer", func(t *testing.T) {
		parent, cancelParent := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelParent()
		parentDeadline, _ := parent.Deadline()

		ctx, cancel := h.withLambdaTimeout(parent)
		defer cancel()
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, parentDeadline.Add(-time.Second), deadline, time.Millisecond)
	})

	t.Run("deadline inside buffer kept", func(t *testing.T) {
		parent, cancelParent := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancelParent()
		parentDeadline, _ := parent.Deadline()

		ctx, cancel := h.withLambdaTimeout(parent)
		defer cancel()
		deadline, _ := ctx.Deadline()
		assert.Equal(t, parentDeadline, deadline)
	})
}
