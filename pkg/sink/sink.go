// Package sink provides core.Sink implementations for stream delivery.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/theory-cloud/bintheory/pkg/core"
	customerrors "github.com/theory-cloud/bintheory/pkg/errors"
)

// Slice collects records in delivery order. It is safe for concurrent use.
type Slice struct {
	records []*core.Record
	mu      sync.Mutex
}

// NewSlice returns an empty collecting sink.
func NewSlice() *Slice {
	return &Slice{}
}

// Accept implements core.Sink.
func (s *Slice) Accept(rec *core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the collected records.
func (s *Slice) Records() []*core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of collected records.
func (s *Slice) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Channel pushes records onto a channel. Accept blocks until the receiver
// takes the record or ctx is done.
type Channel struct {
	ctx context.Context
	ch  chan<- *core.Record
}

// NewChannel returns a sink writing to ch. The caller owns ch and closes it
// after the stream call returns.
func NewChannel(ctx context.Context, ch chan<- *core.Record) *Channel { //nolint:revive // context-as-argument: sink is bound to the consumer's lifetime
	return &Channel{ctx: ctx, ch: ch}
}

// Accept implements core.Sink.
func (c *Channel) Accept(rec *core.Record) error {
	select {
	case c.ch <- rec:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// jsonRecord is the line format written by NDJSON and S3.
type jsonRecord struct {
	Bins      map[string]any `json:"bins"`
	Namespace string         `json:"namespace,omitempty"`
	Set       string         `json:"set,omitempty"`
	Key       string         `json:"key,omitempty"`
}

// NDJSON writes one JSON object per record to w.
type NDJSON struct {
	enc   *json.Encoder
	count int
	mu    sync.Mutex
}

// NewNDJSON returns a sink encoding to w.
func NewNDJSON(w io.Writer) *NDJSON {
	return &NDJSON{enc: json.NewEncoder(w)}
}

// Accept implements core.Sink.
func (n *NDJSON) Accept(rec *core.Record) error {
	if rec == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.enc.Encode(jsonRecord{
		Namespace: rec.Namespace,
		Set:       rec.Set,
		Key:       rec.Key,
		Bins:      rec.Bins,
	}); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	n.count++
	return nil
}

// Count returns the number of records written.
func (n *NDJSON) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// Limit wraps a sink and rejects records after max have been accepted.
type Limit struct {
	next  core.Sink
	max   int
	count int
}

// NewLimit returns a sink that forwards at most max records to next.
func NewLimit(next core.Sink, max int) *Limit {
	return &Limit{next: next, max: max}
}

// Accept implements core.Sink.
func (l *Limit) Accept(rec *core.Record) error {
	if l.count >= l.max {
		return fmt.Errorf("sink limit of %d records reached: %w", l.max, customerrors.ErrClosed)
	}
	l.count++
	return l.next.Accept(rec)
}
