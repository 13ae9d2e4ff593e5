package bintheory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
	"github.com/theory-cloud/bintheory/pkg/query"
	"github.com/theory-cloud/bintheory/pkg/sink"
)

// DefaultLambdaTimeoutBuffer is reserved before the invocation deadline so
// the handler can return before Lambda kills it.
const DefaultLambdaTimeoutBuffer = time.Second

// LambdaEvent is the invocation payload: a query and, optionally, an S3
// location to write the results to instead of returning them.
type LambdaEvent struct {
	Query  *query.Query  `json:"query"`
	Output *LambdaOutput `json:"output,omitempty"`
}

// LambdaOutput names the S3 object receiving NDJSON results.
type LambdaOutput struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// LambdaRecord is one result in a LambdaResponse.
type LambdaRecord struct {
	Bins      map[string]any `json:"bins"`
	Namespace string         `json:"namespace"`
	Set       string         `json:"set,omitempty"`
	Key       string         `json:"key,omitempty"`
}

// LambdaResponse reports the results of one invocation.
type LambdaResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Location  string         `json:"location,omitempty"`
	Records   []LambdaRecord `json:"records,omitempty"`
	Count     int            `json:"count"`
}

// LambdaHandler serves query invocations with a long-lived client.
type LambdaHandler struct {
	client        *Client
	s3            interfaces.S3PutObjectAPI
	logger        *slog.Logger
	timeoutBuffer time.Duration
}

// NewLambdaHandler returns a handler over client. s3 may be nil when no
// invocation asks for S3 output.
func NewLambdaHandler(client *Client, s3 interfaces.S3PutObjectAPI) *LambdaHandler {
	return &LambdaHandler{
		client:        client,
		s3:            s3,
		logger:        client.logger,
		timeoutBuffer: DefaultLambdaTimeoutBuffer,
	}
}

// Handle runs one invocation.
func (h *LambdaHandler) Handle(ctx context.Context, event LambdaEvent) (*LambdaResponse, error) {
	if event.Query == nil {
		return nil, customerrors.NewError("lambda", customerrors.CodeInvalidQuery, customerrors.ErrInvalidQuery)
	}

	ctx, cancel := h.withLambdaTimeout(ctx)
	defer cancel()

	resp := &LambdaResponse{}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		resp.RequestID = lc.AwsRequestID
	}
	h.logger.InfoContext(ctx, "lambda query invocation",
		"aws_request_id", resp.RequestID,
		"namespace", event.Query.Namespace,
		"set", event.Query.Set,
	)

	if event.Output != nil {
		return h.handleS3(ctx, event, resp)
	}

	out := sink.NewSlice()
	if err := h.client.Stream(ctx, event.Query, out); err != nil {
		return nil, err
	}
	for _, rec := range out.Records() {
		resp.Records = append(resp.Records, LambdaRecord{
			Namespace: rec.Namespace,
			Set:       rec.Set,
			Key:       rec.Key,
			Bins:      rec.Bins,
		})
	}
	resp.Count = len(resp.Records)
	return resp, nil
}

func (h *LambdaHandler) handleS3(ctx context.Context, event LambdaEvent, resp *LambdaResponse) (*LambdaResponse, error) {
	if h.s3 == nil {
		return nil, fmt.Errorf("lambda: S3 output requested but no S3 client configured")
	}
	if event.Output.Bucket == "" || event.Output.Key == "" {
		return nil, fmt.Errorf("lambda: S3 output requires bucket and key")
	}

	out := sink.NewS3(h.s3, event.Output.Bucket, event.Output.Key)
	if err := h.client.Stream(ctx, event.Query, out); err != nil {
		return nil, err
	}
	if err := out.Close(ctx); err != nil {
		return nil, err
	}
	resp.Count = out.Count()
	resp.Location = fmt.Sprintf("s3://%s/%s", event.Output.Bucket, event.Output.Key)
	return resp, nil
}

// withLambdaTimeout shortens ctx so work stops a buffer before the
// invocation deadline.
func (h *LambdaHandler) withLambdaTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	adjusted := deadline.Add(-h.timeoutBuffer)
	if time.Until(adjusted) <= 0 {
		adjusted = deadline
	}
	return context.WithDeadline(ctx, adjusted)
}
