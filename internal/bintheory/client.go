// Package bintheory executes query descriptors against a cluster transport.
package bintheory

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theory-cloud/bintheory/internal/lifecycle"
	"github.com/theory-cloud/bintheory/pkg/core"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
	"github.com/theory-cloud/bintheory/pkg/metrics"
	"github.com/theory-cloud/bintheory/pkg/query"
	"github.com/theory-cloud/bintheory/pkg/session"
	"github.com/theory-cloud/bintheory/pkg/transport/dynamo"
)

// Client runs queries through one transport. It is safe for concurrent use.
type Client struct {
	transport core.Transport
	sub       core.Subsystem
	guard     *lifecycle.Guard
	logger    *slog.Logger
	metrics   *metrics.Metrics
	session   *session.Session
	closed    atomic.Bool
	strict    bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStrictDispatch validates descriptors before translation and reports
// transport failures as dispatch errors instead of logging them.
func WithStrictDispatch() Option {
	return func(c *Client) {
		c.strict = true
	}
}

// WithMetrics records executions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewWithTransport returns a client over transport. A transport that also
// implements core.Subsystem shares the process-wide lifecycle guard of that
// subsystem.
func NewWithTransport(transport core.Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		logger:    slog.Default(),
	}
	if sub, ok := transport.(core.Subsystem); ok {
		c.sub = sub
		c.guard = lifecycle.For(sub)
	} else {
		c.guard = lifecycle.NewGuard(nil)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds a DynamoDB-backed client from cfg.
func New(ctx context.Context, cfg *session.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = session.DefaultConfig()
	}
	sess, err := session.NewSession(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	ddb, err := sess.DynamoDB()
	if err != nil {
		return nil, err
	}

	transport := dynamo.New(interfaces.NewDynamoDBClientWrapper(ddb),
		dynamo.WithKeyAttribute(cfg.KeyAttribute),
		dynamo.WithSetAttribute(cfg.SetAttribute),
		dynamo.WithPageSize(cfg.PageSize),
		dynamo.WithSegments(cfg.ScanSegments),
		dynamo.WithRateLimit(cfg.ReadsPerSecond, cfg.ReadBurst),
		dynamo.WithConsistentRead(cfg.ConsistentRead),
	)

	base := make([]Option, 0, 2+len(opts))
	if cfg.StrictDispatchErrors {
		base = append(base, WithStrictDispatch())
	}
	if cfg.EnableMetrics {
		m := metrics.New()
		if err := m.Register(prometheus.DefaultRegisterer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		base = append(base, WithMetrics(m))
	}

	c := NewWithTransport(transport, append(base, opts...)...)
	c.session = sess
	return c, nil
}

// Session returns the AWS session of a client built by New, or nil.
func (c *Client) Session() *session.Session {
	return c.session
}

// Translate compiles q into the request a transport would receive.
func (c *Client) Translate(q *query.Query) *core.Request {
	return query.Translate(q)
}

// ForEach runs q and calls fn for each result until fn returns false.
// Subsystem setup happens before fn and q are checked.
func (c *Client) ForEach(ctx context.Context, q *query.Query, udata any, fn core.ForEachFunc) error {
	var missing error
	if fn == nil {
		missing = customerrors.ErrNilCallback
	}

	var delivered int
	counted := func(rec *core.Record, udata any) bool {
		delivered++
		return fn(rec, udata)
	}
	return c.execute(ctx, metrics.ModeForEach, q, missing, &delivered, func(req *core.Request) error {
		return c.transport.DispatchForEach(ctx, req, udata, counted)
	})
}

// Stream runs q and hands each result to sink in order. Subsystem setup
// happens before sink and q are checked.
func (c *Client) Stream(ctx context.Context, q *query.Query, sink core.Sink) error {
	var missing error
	if sink == nil {
		missing = customerrors.ErrNilSink
	}

	var delivered int
	counted := core.SinkFunc(func(rec *core.Record) error {
		if err := sink.Accept(rec); err != nil {
			return err
		}
		delivered++
		return nil
	})
	return c.execute(ctx, metrics.ModeStream, q, missing, &delivered, func(req *core.Request) error {
		return c.transport.DispatchToSink(ctx, req, counted)
	})
}

// Close tears down the transport's query subsystem. Later calls on the
// client fail with ErrClosed.
func (c *Client) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.sub != nil {
		return lifecycle.Release(ctx, c.sub)
	}
	return c.guard.Teardown(ctx)
}

func (c *Client) execute(ctx context.Context, mode string, q *query.Query, missing error, delivered *int, dispatch func(*core.Request) error) error {
	if c.closed.Load() {
		return customerrors.NewError(mode, customerrors.CodeClient, customerrors.ErrClosed)
	}

	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() {
		c.metrics.ObserveQuery(mode, outcome, time.Since(start))
		c.metrics.AddDelivered(mode, *delivered)
	}()

	if err := c.guard.EnsureInitialized(ctx); err != nil {
		outcome = metrics.OutcomeInitError
		c.logger.ErrorContext(ctx, "query subsystem initialization failed", "mode", mode, "error", err)
		return err
	}

	if missing != nil {
		outcome = metrics.OutcomeInvalid
		return customerrors.NewError(mode, customerrors.CodeClient, missing)
	}
	if q == nil {
		outcome = metrics.OutcomeInvalid
		return customerrors.NewError(mode, customerrors.CodeInvalidQuery, customerrors.ErrInvalidQuery)
	}
	if c.strict {
		if err := q.Validate(); err != nil {
			outcome = metrics.OutcomeInvalid
			return err
		}
	}

	req := query.Translate(q)
	c.logger.DebugContext(ctx, "executing query",
		"request_id", req.ID,
		"namespace", req.Namespace,
		"set", req.Set,
		"mode", mode,
		"filters", len(req.Filters),
	)

	if err := dispatch(req); err != nil {
		if c.strict {
			outcome = metrics.OutcomeDispatchErr
			return customerrors.DispatchError(mode, err)
		}
		outcome = metrics.OutcomeSwallowed
		c.logger.WarnContext(ctx, "query dispatch failed",
			"request_id", req.ID,
			"namespace", req.Namespace,
			"mode", mode,
			"error", err,
		)
	}
	return nil
}
