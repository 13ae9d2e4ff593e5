// Package bintheory runs declarative record queries against a cluster and
// delivers the results to a callback or a sink.
//
// Import path:
//
//	import "github.com/theory-cloud/bintheory"
//
// Implementation lives in `internal/bintheory` so the repo root stays minimal.
package bintheory

import (
	"context"

	internalbintheory "github.com/theory-cloud/bintheory/internal/bintheory"
	"github.com/theory-cloud/bintheory/pkg/core"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
	"github.com/theory-cloud/bintheory/pkg/query"
	"github.com/theory-cloud/bintheory/pkg/session"
)

type (
	Client         = internalbintheory.Client
	Option         = internalbintheory.Option
	LambdaHandler  = internalbintheory.LambdaHandler
	LambdaEvent    = internalbintheory.LambdaEvent
	LambdaResponse = internalbintheory.LambdaResponse

	// Re-export types for convenience.
	Config      = session.Config
	Query       = query.Query
	Predicate   = query.Predicate
	Record      = core.Record
	Request     = core.Request
	Sink        = core.Sink
	ForEachFunc = core.ForEachFunc
)

// Re-export client options for convenience.
var (
	WithLogger         = internalbintheory.WithLogger
	WithStrictDispatch = internalbintheory.WithStrictDispatch
	WithMetrics        = internalbintheory.WithMetrics
)

// New builds a DynamoDB-backed client from cfg.
func New(ctx context.Context, cfg *session.Config, opts ...Option) (*Client, error) {
	return internalbintheory.New(ctx, cfg, opts...)
}

// NewWithTransport builds a client over any transport.
func NewWithTransport(transport core.Transport, opts ...Option) *Client {
	return internalbintheory.NewWithTransport(transport, opts...)
}

// NewLambdaHandler serves Lambda query invocations with client. s3 may be
// nil when no invocation asks for S3 output.
func NewLambdaHandler(client *Client, s3 interfaces.S3PutObjectAPI) *LambdaHandler {
	return internalbintheory.NewLambdaHandler(client, s3)
}

// NewQuery starts a query over namespace and set.
func NewQuery(namespace, set string) *Query {
	return query.New(namespace, set)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return session.DefaultConfig()
}
