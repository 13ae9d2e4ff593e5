package mocks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/bintheory/pkg/core"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
	"github.com/theory-cloud/bintheory/pkg/mocks"
)

var (
	_ core.Transport             = (*mocks.MockTransport)(nil)
	_ core.Transport             = (*mocks.MockSubsystemTransport)(nil)
	_ core.Subsystem             = (*mocks.MockSubsystemTransport)(nil)
	_ core.Sink                  = (*mocks.MockSink)(nil)
	_ interfaces.DynamoDBScanAPI = (*mocks.MockDynamoDBClient)(nil)
	_ interfaces.S3PutObjectAPI  = (*mocks.MockS3Client)(nil)
)

func records() []*core.Record {
	return []*core.Record{
		{Key: "a", Bins: map[string]any{"n": 1}},
		{Key: "b", Bins: map[string]any{"n": 2}},
		{Key: "c", Bins: map[string]any{"n": 3}},
	}
}

func TestMockTransport_DeliverRecordsForEach(t *testing.T) {
	transport := new(mocks.MockTransport)
	transport.On("DispatchForEach", mock.Anything, mock.Anything, "udata", mock.Anything).
		Run(mocks.DeliverRecords(records()...)).
		Return(nil)

	var keys []string
	err := transport.DispatchForEach(context.Background(), &core.Request{}, "udata", func(rec *core.Record, udata any) bool {
		assert.Equal(t, "udata", udata)
		keys = append(keys, rec.Key)
		return len(keys) < 2
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	transport.AssertExpectations(t)
}

func TestMockTransport_DeliverRecordsToSink(t *testing.T) {
	transport := new(mocks.MockTransport)
	transport.On("DispatchToSink", mock.Anything, mock.Anything, mock.Anything).
		Run(mocks.DeliverRecords(records()...)).
		Return(nil)

	sink := new(mocks.MockSink)
	sink.On("Accept", mock.Anything).Return(nil).Once()
	sink.On("Accept", mock.Anything).Return(errors.New("full")).Once()

	err := transport.DispatchToSink(context.Background(), &core.Request{}, sink)

	require.NoError(t, err)
	sink.AssertNumberOfCalls(t, "Accept", 2)
}

func TestMockSubsystemTransport(t *testing.T) {
	transport := new(mocks.MockSubsystemTransport)
	transport.On("InitQuerySubsystem", mock.Anything).Return(nil)
	transport.On("ShutdownQuerySubsystem", mock.Anything).Return(errors.New("busy"))

	assert.NoError(t, transport.InitQuerySubsystem(context.Background()))
	assert.EqualError(t, transport.ShutdownQuerySubsystem(context.Background()), "busy")
	transport.AssertExpectations(t)
}

func TestMockDynamoDBClient_Scan(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	items := []map[string]types.AttributeValue{
		{"pk": &types.AttributeValueMemberS{Value: "a"}},
	}
	lastKey := map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: "a"}}

	client.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Return(mocks.NewMockScanOutput(items, lastKey), nil).Once()
	client.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("throttled")).Once()

	out, err := client.Scan(context.Background(), &dynamodb.ScanInput{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), out.Count)
	assert.Equal(t, lastKey, out.LastEvaluatedKey)

	out, err = client.Scan(context.Background(), &dynamodb.ScanInput{})
	assert.Nil(t, out)
	assert.EqualError(t, err, "throttled")
}

func TestMockDynamoDBClient_PanicsOnWrongType(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("Scan", mock.Anything, mock.Anything, mock.Anything).Return("nope", nil)

	assert.Panics(t, func() {
		_, _ = client.Scan(context.Background(), &dynamodb.ScanInput{})
	})
}

func TestMockS3Client_PutObject(t *testing.T) {
	client := new(mocks.MockS3Client)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil).Once()
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("denied")).Once()

	out, err := client.PutObject(context.Background(), &s3.PutObjectInput{})
	require.NoError(t, err)
	assert.NotNil(t, out)

	_, err = client.PutObject(context.Background(), &s3.PutObjectInput{})
	assert.EqualError(t, err, "denied")
}
