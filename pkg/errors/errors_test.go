package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryError_Error(t *testing.T) {
	tests := []struct {
		err      *QueryError
		name     string
		expected string
	}{
		{
			name:     "with wrapped error",
			err:      NewError("foreach", CodeDispatch, errors.New("socket closed")),
			expected: "bintheory: foreach failed (dispatch): socket closed",
		},
		{
			name:     "without wrapped error",
			err:      NewError("stream", CodeQueryInit, nil),
			expected: "bintheory: stream failed (query_init)",
		},
		{
			name:     "nil receiver",
			err:      nil,
			expected: "bintheory: query error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestQueryError_IsMatchesCodeSentinel(t *testing.T) {
	cause := errors.New("boom")

	lifecycle := LifecycleError("foreach", cause)
	assert.True(t, IsLifecycleError(lifecycle))
	assert.False(t, IsDispatchError(lifecycle))
	assert.ErrorIs(t, lifecycle, cause)

	dispatch := DispatchError("stream", cause)
	assert.True(t, IsDispatchError(dispatch))
	assert.False(t, IsLifecycleError(dispatch))

	invalid := NewError("validate", CodeInvalidQuery, ErrUnknownPredicate)
	assert.True(t, IsInvalidQuery(invalid))
	assert.ErrorIs(t, invalid, ErrUnknownPredicate)
}

func TestQueryError_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", DispatchError("foreach", errors.New("timeout")))

	assert.True(t, IsDispatchError(err))
	assert.Equal(t, CodeDispatch, CodeOf(err))

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "foreach", qe.Op)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeClient, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeQueryInit, CodeOf(LifecycleError("init", nil)))
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "ok", CodeOK.String())
	assert.Equal(t, "dispatch", CodeDispatch.String())
	assert.Equal(t, "code(42)", Code(42).String())
}

func TestQueryError_UnwrapNil(t *testing.T) {
	var e *QueryError
	assert.Nil(t, e.Unwrap())
	assert.False(t, e.Is(ErrDispatch))
}
