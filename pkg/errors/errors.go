// Package errors defines error types and utilities for BinTheory
package errors

import (
	"errors"
	"fmt"
)

// Code is the status code reported for a failed query operation.
type Code int

const (
	// CodeOK indicates success.
	CodeOK Code = 0
	// CodeClient is a generic client-side failure.
	CodeClient Code = -1
	// CodeInvalidQuery indicates the query descriptor was rejected before translation.
	CodeInvalidQuery Code = 4
	// CodeQueryInit indicates the query subsystem could not be initialized.
	CodeQueryInit Code = 200
	// CodeDispatch indicates the transport failed while executing a request.
	CodeDispatch Code = 201
)

// String returns a short label for the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeClient:
		return "client"
	case CodeInvalidQuery:
		return "invalid_query"
	case CodeQueryInit:
		return "query_init"
	case CodeDispatch:
		return "dispatch"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Common errors that can occur in BinTheory operations
var (
	// ErrQueryInit is returned when the query subsystem fails to start
	ErrQueryInit = errors.New("query subsystem initialization failed")

	// ErrDispatch is returned when the transport fails during execution
	ErrDispatch = errors.New("query dispatch failed")

	// ErrInvalidQuery is returned when a query descriptor is malformed
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownPredicate is returned when a predicate kind is not recognized
	ErrUnknownPredicate = errors.New("unknown predicate kind")

	// ErrMissingNamespace is returned when a query has no namespace
	ErrMissingNamespace = errors.New("missing namespace")

	// ErrAggregateNotFound is returned when an aggregation module/function is not registered
	ErrAggregateNotFound = errors.New("aggregate function not found")

	// ErrNilSink is returned when a stream is requested without a sink
	ErrNilSink = errors.New("nil sink")

	// ErrNilCallback is returned when a foreach is requested without a callback
	ErrNilCallback = errors.New("nil callback")

	// ErrClosed is returned when a client or sink is used after Close
	ErrClosed = errors.New("closed")
)

// QueryError carries the status code and operation of a failed query call.
type QueryError struct {
	Err  error
	Op   string
	Code Code
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e == nil {
		return "bintheory: query error"
	}
	if e.Err == nil {
		return fmt.Sprintf("bintheory: %s failed (%s)", e.Op, e.Code)
	}
	return fmt.Sprintf("bintheory: %s failed (%s): %v", e.Op, e.Code, e.Err)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel that corresponds to the error code as well as the wrapped error.
func (e *QueryError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case CodeQueryInit:
		if target == ErrQueryInit {
			return true
		}
	case CodeDispatch:
		if target == ErrDispatch {
			return true
		}
	case CodeInvalidQuery:
		if target == ErrInvalidQuery {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// NewError creates a new QueryError
func NewError(op string, code Code, err error) *QueryError {
	return &QueryError{
		Op:   op,
		Code: code,
		Err:  err,
	}
}

// LifecycleError wraps a failed subsystem initialization.
func LifecycleError(op string, err error) *QueryError {
	return NewError(op, CodeQueryInit, err)
}

// DispatchError wraps a transport failure.
func DispatchError(op string, err error) *QueryError {
	return NewError(op, CodeDispatch, err)
}

// IsLifecycleError checks if an error came from subsystem initialization
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrQueryInit)
}

// IsDispatchError checks if an error came from the transport
func IsDispatchError(err error) bool {
	return errors.Is(err, ErrDispatch)
}

// IsInvalidQuery checks if an error indicates a rejected query descriptor
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// CodeOf returns the status code carried by err. A nil error is CodeOK and
// an error without a QueryError in its chain is CodeClient.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return CodeClient
}
