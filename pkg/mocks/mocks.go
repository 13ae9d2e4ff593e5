// Package mocks provides mock implementations for BinTheory interfaces.
//
// # Basic Usage
//
// Mock the transport to test code that executes queries without a cluster:
//
//	transport := new(mocks.MockTransport)
//	transport.On("DispatchForEach", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
//	    Run(mocks.DeliverRecords(records...)).
//	    Return(nil)
//
//	client := bintheory.NewWithTransport(transport)
//	err := client.ForEach(ctx, query.New("test", "users"), nil, fn)
//
//	transport.AssertExpectations(t)
//
// # Error Handling
//
// To simulate a transport failure:
//
//	transport.On("DispatchToSink", mock.Anything, mock.Anything, mock.Anything).
//	    Return(errors.New("connection reset"))
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/bintheory/pkg/core"
)

// MockTransport is a mock implementation of core.Transport.
type MockTransport struct {
	mock.Mock
}

// DispatchForEach mocks core.Transport.DispatchForEach
func (m *MockTransport) DispatchForEach(ctx context.Context, req *core.Request, udata any, fn core.ForEachFunc) error {
	args := m.Called(ctx, req, udata, fn)
	return args.Error(0)
}

// DispatchToSink mocks core.Transport.DispatchToSink
func (m *MockTransport) DispatchToSink(ctx context.Context, req *core.Request, sink core.Sink) error {
	args := m.Called(ctx, req, sink)
	return args.Error(0)
}

// MockSubsystemTransport is a MockTransport that also implements
// core.Subsystem.
type MockSubsystemTransport struct {
	MockTransport
}

// InitQuerySubsystem mocks core.Subsystem.InitQuerySubsystem
func (m *MockSubsystemTransport) InitQuerySubsystem(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ShutdownQuerySubsystem mocks core.Subsystem.ShutdownQuerySubsystem
func (m *MockSubsystemTransport) ShutdownQuerySubsystem(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSink is a mock implementation of core.Sink.
type MockSink struct {
	mock.Mock
}

// Accept mocks core.Sink.Accept
func (m *MockSink) Accept(rec *core.Record) error {
	args := m.Called(rec)
	return args.Error(0)
}

// DeliverRecords returns a Run function for DispatchForEach or
// DispatchToSink expectations that hands records to the callback or sink
// the executor passed in. ForEach delivery stops when the callback
// returns false; sink delivery stops at the first error.
func DeliverRecords(records ...*core.Record) func(mock.Arguments) {
	return func(args mock.Arguments) {
		switch len(args) {
		case 4:
			udata := args.Get(2)
			fn, ok := args.Get(3).(core.ForEachFunc)
			if !ok {
				panic("unexpected type: expected core.ForEachFunc")
			}
			for _, rec := range records {
				if !fn(rec, udata) {
					return
				}
			}
		case 3:
			sink, ok := args.Get(2).(core.Sink)
			if !ok {
				panic("unexpected type: expected core.Sink")
			}
			for _, rec := range records {
				if err := sink.Accept(rec); err != nil {
					return
				}
			}
		}
	}
}
