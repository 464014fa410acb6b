package pocketbase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNewResponseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		message string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "validation with field errors",
			status:  400,
			body:    `{"status":400,"message":"Failed to create record.","data":{"title":{"code":"validation_required","message":"Missing required value."},"email":{"code":"validation_is_email","message":"Must be a valid email address."}}}`,
			kind:    KindValidation,
			message: "Failed to create record.",
			check: func(t *testing.T, err error) {
				t.Helper()

				var validation *ValidationError

				require.ErrorAs(t, err, &validation)
				require.Len(t, validation.FieldErrors, 2)
				assert.Equal(t, "email", validation.FieldErrors[0].Field, "sorted by field")
				assert.Equal(t, "validation_required", validation.Field("title").Code)
				assert.Nil(t, validation.Field("missing"))
				assert.Contains(t, err.Error(), "title: validation_required (Missing required value.)")
			},
		},
		{
			name:   "validation without a PocketBase body",
			status: 400,
			body:   `<html>Bad Request</html>`,
			kind:   KindDeserialization,
			check: func(t *testing.T, err error) {
				t.Helper()

				var decodeErr *DeserializationError

				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, 400, decodeErr.Status)
				assert.Equal(t, DecodeUnknownShape, decodeErr.Kind)
				require.ErrorIs(t, err, ErrUnrecognizedErrorBody)
			},
		},
		{
			name:    "unauthorized",
			status:  401,
			body:    `{"status":401,"message":"The request requires valid record authorization token.","data":{}}`,
			kind:    KindAuth,
			message: "The request requires valid record authorization token.",
			check: func(t *testing.T, err error) {
				t.Helper()

				var authErr *AuthError

				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, AuthReasonUnauthorized, authErr.Reason)
				assert.Equal(t, 401, authErr.Status)
			},
		},
		{
			name:   "forbidden",
			status: 403,
			body:   `{"status":403,"message":"Only superusers can perform this action.","data":{}}`,
			kind:   KindAuth,
			check: func(t *testing.T, err error) {
				t.Helper()

				var authErr *AuthError

				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, AuthReasonForbidden, authErr.Reason)
			},
		},
		{
			name:    "not found",
			status:  404,
			body:    `{"status":404,"message":"The requested resource wasn't found.","data":{}}`,
			kind:    KindNotFound,
			message: "The requested resource wasn't found.",
		},
		{
			name:    "not found with empty body",
			status:  404,
			body:    ``,
			kind:    KindNotFound,
			message: "Not Found",
		},
		{
			name:    "conflict",
			status:  409,
			body:    `{"status":409,"message":"Value must be unique.","data":{}}`,
			kind:    KindConflict,
			message: "Value must be unique.",
		},
		{
			name:    "legacy code field",
			status:  422,
			body:    `{"code":422,"message":"Unprocessable.","data":{"x":"y"}}`,
			kind:    KindAPI,
			message: "Unprocessable.",
			check: func(t *testing.T, err error) {
				t.Helper()

				var apiErr *APIError

				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, 422, apiErr.Status)
				assert.Equal(t, "y", apiErr.Data["x"])
			},
		},
		{
			name:    "server error without body",
			status:  500,
			body:    ``,
			kind:    KindAPI,
			message: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewResponseError(tt.status, []byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))

			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}

			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{name: "nil", err: nil, expected: KindUnknown},
		{name: "plain", err: errors.New("boom"), expected: KindUnknown},
		{name: "config", err: &ConfigError{Field: "BaseURL"}, expected: KindConfig},
		{name: "wrapped not found", err: fmt.Errorf("deleting: %w", &NotFoundError{}), expected: KindNotFound},
		{
			name:     "auth wrapping a transport failure",
			err:      &AuthError{Reason: AuthReasonTransport, Err: &TransportError{Err: context.DeadlineExceeded}},
			expected: KindAuth,
		},
		{name: "serialization", err: &SerializationError{Type: "int"}, expected: KindSerialization},
		{name: "invalid argument", err: &InvalidArgumentError{Argument: "id"}, expected: KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "connection refused", err: &TransportError{Err: errors.New("connection refused")}, expected: true},
		{name: "deadline", err: &TransportError{Err: context.DeadlineExceeded}, expected: true},
		{name: "cancelled", err: &TransportError{Err: context.Canceled}, expected: false},
		{name: "rate limited", err: &APIError{Status: 429}, expected: true},
		{name: "bad gateway", err: fmt.Errorf("listing: %w", &APIError{Status: 502}), expected: true},
		{name: "teapot", err: &APIError{Status: 418}, expected: false},
		{name: "not found", err: &NotFoundError{}, expected: false},
		{name: "auth", err: &AuthError{Reason: AuthReasonUnauthorized}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFound(fmt.Errorf("x: %w", &NotFoundError{})))
	assert.True(t, IsAuth(&AuthError{}))
	assert.True(t, IsValidation(&ValidationError{}))
	assert.True(t, IsConflict(&ConflictError{}))
	assert.False(t, IsNotFound(&ConflictError{}))

	decodeErr := newDeserializationError(DecodeWrongType, "views", "expected int, got string", nil)
	assert.Equal(t, "deserialization failed (wrong_type) at views: expected int, got string", decodeErr.Error())

	decodeErr.Index = 3
	assert.Equal(t, "deserialization failed (wrong_type) at items[3].views: expected int, got string", decodeErr.Error())
}
