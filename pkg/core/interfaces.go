// Package core defines the core interfaces and types for BinTheory
package core

import (
	"context"
)

// ForEachFunc receives each record produced by a query. udata is the
// caller-supplied value passed through the executor unchanged. Returning
// false stops delivery of further records.
type ForEachFunc func(rec *Record, udata any) bool

// Sink accepts query results pushed by a transport, in delivery order.
type Sink interface {
	Accept(rec *Record) error
}

// Transport dispatches low-level requests against a cluster connection.
// Implementations own clustering, wire encoding, retries and pooling.
type Transport interface {
	// DispatchForEach runs req and invokes fn once per result.
	DispatchForEach(ctx context.Context, req *Request, udata any, fn ForEachFunc) error

	// DispatchToSink runs req and pushes every result into sink.
	DispatchToSink(ctx context.Context, req *Request, sink Sink) error
}

// Subsystem is implemented by transports that need process-wide setup
// before their first query and teardown after their last.
type Subsystem interface {
	InitQuerySubsystem(ctx context.Context) error
	ShutdownQuerySubsystem(ctx context.Context) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec *Record) error

// Accept calls f(rec).
func (f SinkFunc) Accept(rec *Record) error {
	return f(rec)
}
