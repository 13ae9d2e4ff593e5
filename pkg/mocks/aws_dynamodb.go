package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// MockDynamoDBClient provides a mock implementation of the DynamoDB Scan
// surface used by the dynamo transport.
//
// Example usage:
//
//	mockClient := new(mocks.MockDynamoDBClient)
//	mockClient.On("Scan", mock.Anything, mock.Anything, mock.Anything).
//	    Return(mocks.NewMockScanOutput(items, nil), nil)
//
//	transport := dynamo.New(mockClient)
type MockDynamoDBClient struct {
	mock.Mock
}

// Scan mocks the DynamoDB Scan operation
func (m *MockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.ScanOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.ScanOutput")
	}
	return output, args.Error(1)
}

// NewMockScanOutput creates a Scan page. A non-nil lastKey signals that
// more pages follow.
func NewMockScanOutput(items []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) *dynamodb.ScanOutput {
	count := int32(len(items)) //nolint:gosec // test helper pages are small
	return &dynamodb.ScanOutput{
		Items:            items,
		Count:            count,
		ScannedCount:     count,
		LastEvaluatedKey: lastKey,
	}
}

// MockS3Client provides a mock implementation of the S3 PutObject surface
// used by the S3 sink.
type MockS3Client struct {
	mock.Mock
}

// PutObject mocks the S3 PutObject operation
func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*s3.PutObjectOutput)
	if !ok {
		panic("unexpected type: expected *s3.PutObjectOutput")
	}
	return output, args.Error(1)
}
