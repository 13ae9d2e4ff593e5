// Package dynamo provides a cluster transport backed by DynamoDB. A
// namespace is a table; the set lives in a reserved attribute and the
// record key in another. Filters and projections run server side through
// Scan; ordering, limits and aggregation are applied as results arrive.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/theory-cloud/bintheory/internal/expr"
	"github.com/theory-cloud/bintheory/internal/numutil"
	"github.com/theory-cloud/bintheory/internal/resultset"
	"github.com/theory-cloud/bintheory/pkg/aggregate"
	"github.com/theory-cloud/bintheory/pkg/core"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
)

const (
	// DefaultKeyAttribute holds the record key.
	DefaultKeyAttribute = "pk"
	// DefaultSetAttribute holds the record's set name.
	DefaultSetAttribute = "_set"
	// DefaultPageSize is the Scan page size when none is configured.
	DefaultPageSize = 1000
)

// ErrNotInitialized is returned by dispatch before InitQuerySubsystem.
var ErrNotInitialized = errors.New("dynamo: query subsystem not initialized")

// Transport implements core.Transport and core.Subsystem over DynamoDB.
type Transport struct {
	client         interfaces.DynamoDBScanAPI
	aggs           *aggregate.Registry
	limiter        *rate.Limiter
	keyAttr        string
	setAttr        string
	readsPerSecond float64
	pageSize       int
	segments       int
	burst          int
	mu             sync.RWMutex
	consistentRead bool
	running        bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithKeyAttribute names the attribute holding record keys.
func WithKeyAttribute(name string) Option {
	return func(t *Transport) {
		if name != "" {
			t.keyAttr = name
		}
	}
}

// WithSetAttribute names the attribute holding set names.
func WithSetAttribute(name string) Option {
	return func(t *Transport) {
		if name != "" {
			t.setAttr = name
		}
	}
}

// WithPageSize sets the number of items evaluated per Scan page.
func WithPageSize(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithSegments scans the table in n parallel segments.
func WithSegments(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.segments = n
		}
	}
}

// WithRateLimit caps Scan pages per second across all segments. A zero
// rate leaves reads unthrottled.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *Transport) {
		t.readsPerSecond = perSecond
		t.burst = burst
	}
}

// WithConsistentRead requests strongly consistent Scan pages.
func WithConsistentRead(enabled bool) Option {
	return func(t *Transport) {
		t.consistentRead = enabled
	}
}

// WithAggregates sets the registry used for aggregation requests.
func WithAggregates(r *aggregate.Registry) Option {
	return func(t *Transport) {
		t.aggs = r
	}
}

// New returns a transport reading through client.
func New(client interfaces.DynamoDBScanAPI, opts ...Option) *Transport {
	t := &Transport{
		client:   client,
		aggs:     aggregate.Default,
		keyAttr:  DefaultKeyAttribute,
		setAttr:  DefaultSetAttribute,
		pageSize: DefaultPageSize,
		segments: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InitQuerySubsystem prepares the read limiter and starts accepting queries.
func (t *Transport) InitQuerySubsystem(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.client == nil {
		return fmt.Errorf("dynamo: client is nil")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.readsPerSecond > 0 {
		burst := t.burst
		if burst <= 0 {
			burst = t.segments
		}
		t.limiter = rate.NewLimiter(rate.Limit(t.readsPerSecond), burst)
	} else {
		t.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	t.running = true
	return nil
}

// ShutdownQuerySubsystem stops accepting queries.
func (t *Transport) ShutdownQuerySubsystem(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.limiter = nil
	return nil
}

// DispatchForEach implements core.Transport.
func (t *Transport) DispatchForEach(ctx context.Context, req *core.Request, udata any, fn core.ForEachFunc) error {
	return t.dispatch(ctx, req, resultset.ForEach(fn, udata))
}

// DispatchToSink implements core.Transport.
func (t *Transport) DispatchToSink(ctx context.Context, req *core.Request, sink core.Sink) error {
	return t.dispatch(ctx, req, resultset.ToSink(sink))
}

func (t *Transport) dispatch(ctx context.Context, req *core.Request, out resultset.Deliver) error {
	t.mu.RLock()
	running, limiter := t.running, t.limiter
	t.mu.RUnlock()

	if !running {
		return ErrNotInitialized
	}
	if req == nil {
		return fmt.Errorf("dynamo: nil request")
	}

	input, err := t.buildScanInput(req)
	if err != nil {
		return err
	}

	stream := resultset.New(req, t.aggs, out)
	if hasEmptyRange(req) {
		return stream.Close(ctx)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make(chan []map[string]types.AttributeValue)
	g, gctx := errgroup.WithContext(scanCtx)
	for segment := 0; segment < t.segments; segment++ {
		segment := segment
		g.Go(func() error {
			return t.scanSegment(gctx, limiter, input, segment, pages)
		})
	}

	scanDone := make(chan error, 1)
	go func() {
		scanDone <- g.Wait()
		close(pages)
	}()

	var deliverErr error
	stopped := false
	for items := range pages {
		if stopped {
			continue
		}
		for _, item := range items {
			rec, err := t.toRecord(req, item)
			if err == nil {
				var more bool
				more, err = stream.Push(rec)
				if err == nil && more {
					continue
				}
			}
			deliverErr = err
			stopped = true
			cancel()
			break
		}
	}

	scanErr := <-scanDone
	if deliverErr != nil {
		return deliverErr
	}
	if scanErr != nil && !(stopped && ctx.Err() == nil && errors.Is(scanErr, context.Canceled)) {
		return scanErr
	}
	return stream.Close(ctx)
}

// scanSegment pages through one segment, sending each non-empty page.
func (t *Transport) scanSegment(ctx context.Context, limiter *rate.Limiter, base *dynamodb.ScanInput, segment int, pages chan<- []map[string]types.AttributeValue) error {
	input := *base
	if t.segments > 1 {
		input.Segment = aws.Int32(numutil.ClampIntToInt32(segment))
		input.TotalSegments = aws.Int32(numutil.ClampIntToInt32(t.segments))
	}

	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		input.ExclusiveStartKey = lastEvaluatedKey
		output, err := t.client.Scan(ctx, &input)
		if err != nil {
			return fmt.Errorf("failed to execute scan on %s segment %d: %w", aws.ToString(input.TableName), segment, err)
		}

		if len(output.Items) > 0 {
			select {
			case pages <- output.Items:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if output.LastEvaluatedKey == nil {
			return nil
		}
		lastEvaluatedKey = output.LastEvaluatedKey
	}
}

// buildScanInput compiles the request's set and filters into a filter
// expression and its bins into a projection.
func (t *Transport) buildScanInput(req *core.Request) (*dynamodb.ScanInput, error) {
	if req.Namespace == "" {
		return nil, fmt.Errorf("dynamo: request has no namespace")
	}

	builder := expr.NewBuilder()
	if req.Set != "" {
		if err := builder.AddFilterCondition(t.setAttr, "=", req.Set); err != nil {
			return nil, err
		}
	}
	for _, f := range req.Filters {
		var err error
		switch {
		case f.Op == core.OpRange:
			err = builder.AddFilterCondition(f.Bin, "BETWEEN", []any{f.Min, f.Max})
		case f.Type == core.TypeString:
			err = builder.AddFilterCondition(f.Bin, "=", f.Str)
		default:
			err = builder.AddFilterCondition(f.Bin, "=", f.Int)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to compile filter %s: %w", f, err)
		}
	}

	if len(req.Bins) > 0 {
		fields := make([]string, 0, len(req.Bins)+len(req.Sort)+2)
		fields = append(fields, t.keyAttr, t.setAttr)
		fields = append(fields, req.Bins...)
		for _, k := range req.Sort {
			fields = append(fields, k.Bin)
		}
		if err := builder.AddProjection(fields...); err != nil {
			return nil, err
		}
	}

	components := builder.Build()
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(req.Namespace),
		ExpressionAttributeNames:  components.ExpressionAttributeNames,
		ExpressionAttributeValues: components.ExpressionAttributeValues,
		Limit:                     aws.Int32(numutil.ClampIntToInt32(t.pageSize)),
	}
	if components.FilterExpression != "" {
		input.FilterExpression = aws.String(components.FilterExpression)
	}
	if components.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(components.ProjectionExpression)
	}
	if req.HasLimit() && len(req.Sort) == 0 && req.Aggregate == nil &&
		*req.Limit > 0 && *req.Limit < uint64(t.pageSize) {
		input.Limit = aws.Int32(numutil.ClampUint64ToInt32(*req.Limit))
	}
	if t.consistentRead {
		input.ConsistentRead = aws.Bool(true)
	}
	return input, nil
}

// hasEmptyRange reports whether a range filter can match nothing. DynamoDB
// rejects BETWEEN with a lower bound above the upper one.
func hasEmptyRange(req *core.Request) bool {
	for _, f := range req.Filters {
		if f.Op == core.OpRange && f.Min > f.Max {
			return true
		}
	}
	return false
}

// toRecord converts one item into a record, moving the key and set
// attributes out of the bins.
func (t *Transport) toRecord(req *core.Request, item map[string]types.AttributeValue) (*core.Record, error) {
	bins, err := expr.ItemToBins(item)
	if err != nil {
		return nil, fmt.Errorf("failed to convert item from %s: %w", req.Namespace, err)
	}

	rec := &core.Record{Namespace: req.Namespace, Set: req.Set, Bins: bins}
	if v, ok := bins[t.keyAttr]; ok {
		rec.Key = fmt.Sprint(v)
		delete(bins, t.keyAttr)
	}
	if v, ok := bins[t.setAttr]; ok {
		if s, ok := v.(string); ok {
			rec.Set = s
		}
		delete(bins, t.setAttr)
	}
	return rec, nil
}
