package interfaces

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type failingRoundTripper struct {
	err error
}

func (r failingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, r.err
}

func failingConfig() aws.Config {
	return aws.Config{
		Region:      "us-east-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
		HTTPClient: &http.Client{
			Transport: failingRoundTripper{err: errors.New("boom")},
		},
		Retryer: func() aws.Retryer {
			return aws.NopRetryer{}
		},
	}
}

func TestDynamoDBClientWrapper_ForwardsScan(t *testing.T) {
	var api DynamoDBScanAPI = NewDynamoDBClientWrapper(dynamodb.NewFromConfig(failingConfig()))

	_, err := api.Scan(context.Background(), &dynamodb.ScanInput{TableName: aws.String("T")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestS3ClientWrapper_ForwardsPutObject(t *testing.T) {
	var api S3PutObjectAPI = NewS3ClientWrapper(s3.NewFromConfig(failingConfig()))

	_, err := api.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String("bucket"),
		Key:    aws.String("key"),
		Body:   strings.NewReader("{}"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
