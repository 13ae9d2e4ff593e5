// Package interfaces provides abstractions for AWS SDK operations to enable mocking
package interfaces

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DynamoDBScanAPI is the DynamoDB surface the dynamo transport reads through.
type DynamoDBScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// S3PutObjectAPI is the S3 surface the S3 sink writes through.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DynamoDBClientWrapper wraps the real AWS DynamoDB client to implement our interface
type DynamoDBClientWrapper struct {
	client *dynamodb.Client
}

// NewDynamoDBClientWrapper creates a new wrapper around the AWS DynamoDB client
func NewDynamoDBClientWrapper(client *dynamodb.Client) *DynamoDBClientWrapper {
	return &DynamoDBClientWrapper{client: client}
}

// Scan forwards to the wrapped client.
func (w *DynamoDBClientWrapper) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return w.client.Scan(ctx, params, optFns...)
}

// S3ClientWrapper wraps the real AWS S3 client to implement our interface
type S3ClientWrapper struct {
	client *s3.Client
}

// NewS3ClientWrapper creates a new wrapper around the AWS S3 client
func NewS3ClientWrapper(client *s3.Client) *S3ClientWrapper {
	return &S3ClientWrapper{client: client}
}

// PutObject forwards to the wrapped client.
func (w *S3ClientWrapper) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return w.client.PutObject(ctx, params, optFns...)
}
