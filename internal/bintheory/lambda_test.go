package bintheory_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/bintheory/internal/bintheory"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
	"github.com/theory-cloud/bintheory/pkg/mocks"
)

func decodeEvent(t *testing.T, raw string) bintheory.LambdaEvent {
	t.Helper()
	var event bintheory.LambdaEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestLambdaHandler_ReturnsRecords(t *testing.T) {
	h := bintheory.NewLambdaHandler(newClient(t, testCluster()), nil)
	event := decodeEvent(t, `{"query": {
		"namespace": "test",
		"set": "users",
		"bins": ["name"],
		"predicates": [{"bin": "age", "kind": "integer_range", "min": 30, "max": 60}],
		"order": [{"bin": "age", "direction": 1}]
	}}`)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-123"})
	resp, err := h.Handle(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.RequestID)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "u3", resp.Records[0].Key)
	assert.Equal(t, map[string]any{"name": "cy"}, resp.Records[0].Bins)
	assert.Equal(t, "u1", resp.Records[1].Key)
}

func TestLambdaHandler_WritesToS3(t *testing.T) {
	client := new(mocks.MockS3Client)
	var body string
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "results" && aws.ToString(in.Key) == "run/1.ndjson"
	}), mock.Anything).Run(func(args mock.Arguments) {
		b, err := io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
		require.NoError(t, err)
		body = string(b)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	h := bintheory.NewLambdaHandler(newClient(t, testCluster()), client)
	event := decodeEvent(t, `{
		"query": {"namespace": "test"},
		"output": {"bucket": "results", "key": "run/1.ndjson"}
	}`)

	resp, err := h.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "s3://results/run/1.ndjson", resp.Location)
	assert.Empty(t, resp.Records)
	assert.Equal(t, 3, strings.Count(body, "\n"))
	client.AssertExpectations(t)
}

func TestLambdaHandler_S3Errors(t *testing.T) {
	event := decodeEvent(t, `{"query": {"namespace": "test"}, "output": {"bucket": "results", "key": "k"}}`)

	_, err := bintheory.NewLambdaHandler(newClient(t, testCluster()), nil).Handle(context.Background(), event)
	assert.Error(t, err)

	client := new(mocks.MockS3Client)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	_, err = bintheory.NewLambdaHandler(newClient(t, testCluster()), client).Handle(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	missingKey := decodeEvent(t, `{"query": {"namespace": "test"}, "output": {"bucket": "results"}}`)
	_, err = bintheory.NewLambdaHandler(newClient(t, testCluster()), client).Handle(context.Background(), missingKey)
	assert.Error(t, err)
}

func TestLambdaHandler_RequiresQuery(t *testing.T) {
	h := bintheory.NewLambdaHandler(newClient(t, testCluster()), nil)

	_, err := h.Handle(context.Background(), bintheory.LambdaEvent{})
	assert.True(t, customerrors.IsInvalidQuery(err))
}

func TestLambdaHandler_DeadlineLeavesBuffer(t *testing.T) {
	h := bintheory.NewLambdaHandler(newClient(t, testCluster()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := h.Handle(ctx, decodeEvent(t, `{"query": {"namespace": "test", "limit": 1}}`))

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
}
