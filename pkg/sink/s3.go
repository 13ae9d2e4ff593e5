package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/theory-cloud/bintheory/pkg/core"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
	"github.com/theory-cloud/bintheory/pkg/interfaces"
)

// S3 buffers records as NDJSON and uploads them as a single object on
// Close.
type S3 struct {
	client interfaces.S3PutObjectAPI
	buf    *bytes.Buffer
	enc    *NDJSON
	bucket string
	key    string
	mu     sync.Mutex
	closed bool
}

// NewS3 returns a sink that writes to s3://bucket/key.
func NewS3(client interfaces.S3PutObjectAPI, bucket, key string) *S3 {
	buf := &bytes.Buffer{}
	return &S3{
		client: client,
		buf:    buf,
		enc:    NewNDJSON(buf),
		bucket: bucket,
		key:    key,
	}
}

// Accept implements core.Sink.
func (s *S3) Accept(rec *core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return customerrors.ErrClosed
	}
	return s.enc.Accept(rec)
}

// Count returns the number of buffered records.
func (s *S3) Count() int {
	return s.enc.Count()
}

// Close uploads the buffered records. Later calls are no-ops.
func (s *S3) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(s.buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload results to s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
