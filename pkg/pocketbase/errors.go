package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies an error returned by this module. Every public
// operation fails with exactly one kind.
type ErrorKind string

// Error kinds.
const (
	KindUnknown         ErrorKind = "unknown"
	KindConfig          ErrorKind = "config"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindAuth            ErrorKind = "auth"
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindSerialization   ErrorKind = "serialization"
	KindDeserialization ErrorKind = "deserialization"
	KindAPI             ErrorKind = "api"
	KindTransport       ErrorKind = "transport"
)

// Sentinels matched through errors.Is by the typed errors below.
var (
	ErrConfig          = errors.New("invalid client configuration")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAuth            = errors.New("authentication failed")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource conflict")
	ErrSerialization   = errors.New("serialization failed")
	ErrDeserialization = errors.New("deserialization failed")
	ErrAPI             = errors.New("api error")
	ErrTransport       = errors.New("transport failure")
)

// ConfigError reports a client configuration that cannot be used, such as a
// base URL that is not an absolute http(s) URI.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// InvalidArgumentError reports caller misuse detected locally. It is never
// the result of a server response.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// AuthReason describes why an AuthError was raised.
type AuthReason string

// Auth failure reasons.
const (
	AuthReasonInvalidCredentials  AuthReason = "invalid_credentials"
	AuthReasonIdentityMustBeEmail AuthReason = "identity_must_be_email"
	AuthReasonEmptyField          AuthReason = "empty_field"
	AuthReasonUnauthorized        AuthReason = "unauthorized"
	AuthReasonForbidden           AuthReason = "forbidden"
	AuthReasonNotAuthenticated    AuthReason = "not_authenticated"
	AuthReasonTransport           AuthReason = "transport"
	AuthReasonUnexpectedResponse  AuthReason = "unexpected_response"
)

// AuthError reports rejected credentials or a missing/expired token. It is
// never retried automatically.
type AuthError struct {
	Reason      AuthReason
	Status      int
	Message     string
	FieldErrors []FieldError
	Err         error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed (%s)", e.Reason)
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *AuthError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAuth.
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// FieldError is a single per-field rejection reported by the server.
type FieldError struct {
	Field   string `json:"field"   yaml:"field"`
	Code    string `json:"code"    yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// String renders the field error as "field: code (message)".
func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s (%s)", f.Field, f.Code, f.Message)
}

// ValidationError carries the per-field errors of an HTTP 400 response.
type ValidationError struct {
	Status      int
	Message     string
	FieldErrors []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		return "validation failed: " + e.Message
	}

	parts := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		parts = append(parts, fe.String())
	}

	return fmt.Sprintf("validation failed: %s [%s]", e.Message, strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Field returns the error reported for name, or nil.
func (e *ValidationError) Field(name string) *FieldError {
	for i := range e.FieldErrors {
		if e.FieldErrors[i].Field == name {
			return &e.FieldErrors[i]
		}
	}

	return nil
}

// NotFoundError reports an unknown collection or record.
type NotFoundError struct {
	Message string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string { return "not found: " + e.Message }

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports an HTTP 409, typically a unique constraint.
type ConflictError struct {
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string { return "conflict: " + e.Message }

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// SerializationError reports a value that cannot be sent as a JSON object.
type SerializationError struct {
	Type   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed for %s: %s", e.Type, e.Reason)
}

// Unwrap returns the encoder error, if any.
func (e *SerializationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSerialization.
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// DecodeFailure distinguishes the ways a response can fail to decode.
type DecodeFailure string

// Decode failures.
const (
	DecodeMissingField DecodeFailure = "missing_field"
	DecodeWrongType    DecodeFailure = "wrong_type"
	DecodeUnknownShape DecodeFailure = "unknown_shape"
)

// DeserializationError reports a response body that does not match the
// requested type. Index is the offending list item, or -1.
type DeserializationError struct {
	Kind   DecodeFailure
	Field  string
	Index  int
	Status int
	Reason string
	Err    error
}

func newDeserializationError(kind DecodeFailure, field, reason string, err error) *DeserializationError {
	return &DeserializationError{Kind: kind, Field: field, Index: -1, Reason: reason, Err: err}
}

// Error implements the error interface.
func (e *DeserializationError) Error() string {
	location := e.Field
	if e.Index >= 0 {
		location = fmt.Sprintf("items[%d]", e.Index)
		if e.Field != "" {
			location += "." + e.Field
		}
	}

	if location == "" {
		return fmt.Sprintf("deserialization failed (%s): %s", e.Kind, e.Reason)
	}

	return fmt.Sprintf("deserialization failed (%s) at %s: %s", e.Kind, location, e.Reason)
}

// Unwrap returns the decoder error, if any.
func (e *DeserializationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDeserialization.
func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }

// APIError is the catch-all for server responses without a dedicated type.
type APIError struct {
	Status  int
	Message string
	Data    map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Is reports whether target is ErrAPI.
func (e *APIError) Is(target error) bool { return target == ErrAPI }

// TransportError wraps a failure of the HTTP transport, including context
// cancellation and timeouts.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the transport error.
func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// errorBody is the PocketBase error envelope. Older servers report the
// status under "code".
type errorBody struct {
	Status  int            `json:"status"`
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func parseErrorBody(body []byte) (*errorBody, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrUnrecognizedErrorBody
	}

	var parsed errorBody

	err := json.Unmarshal(trimmed, &parsed)
	if err != nil {
		return nil, fmt.Errorf("parsing error response: %w", err)
	}

	return &parsed, nil
}

// fieldErrors flattens data into FieldErrors sorted by field name.
func (b *errorBody) fieldErrors() []FieldError {
	if len(b.Data) == 0 {
		return nil
	}

	out := make([]FieldError, 0, len(b.Data))

	for field, raw := range b.Data {
		fe := FieldError{Field: field}

		if detail, ok := raw.(map[string]any); ok {
			fe.Code, _ = detail["code"].(string)
			fe.Message, _ = detail["message"].(string)
		} else {
			fe.Message = fmt.Sprint(raw)
		}

		out = append(out, fe)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })

	return out
}

// ErrUnrecognizedErrorBody is wrapped when an error response is not a
// PocketBase error object.
var ErrUnrecognizedErrorBody = errors.New("unrecognized error response body")

// NewResponseError maps a non-2xx response onto the error taxonomy.
func NewResponseError(status int, body []byte) error {
	parsed, parseErr := parseErrorBody(body)

	message := http.StatusText(status)
	if parseErr == nil && parsed.Message != "" {
		message = parsed.Message
	}

	switch status {
	case http.StatusBadRequest:
		if parseErr != nil {
			err := newDeserializationError(DecodeUnknownShape, "", "error response is not a PocketBase error object", parseErr)
			err.Status = status

			return err
		}

		return &ValidationError{Status: status, Message: message, FieldErrors: parsed.fieldErrors()}
	case http.StatusUnauthorized:
		return &AuthError{Reason: AuthReasonUnauthorized, Status: status, Message: message}
	case http.StatusForbidden:
		return &AuthError{Reason: AuthReasonForbidden, Status: status, Message: message}
	case http.StatusNotFound:
		return &NotFoundError{Message: message}
	case http.StatusConflict:
		return &ConflictError{Message: message}
	}

	apiErr := &APIError{Status: status, Message: message}
	if parseErr == nil {
		apiErr.Data = parsed.Data
	}

	return apiErr
}

// KindOf returns the kind of the outermost typed error in err's chain.
func KindOf(err error) ErrorKind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *ConfigError:
			return KindConfig
		case *InvalidArgumentError:
			return KindInvalidArgument
		case *AuthError:
			return KindAuth
		case *ValidationError:
			return KindValidation
		case *NotFoundError:
			return KindNotFound
		case *ConflictError:
			return KindConflict
		case *SerializationError:
			return KindSerialization
		case *DeserializationError:
			return KindDeserialization
		case *APIError:
			return KindAPI
		case *TransportError:
			return KindTransport
		}
	}

	return KindUnknown
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAuth checks if the error is an authentication or authorization error.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsValidation checks if the error carries per-field validation errors.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsRetryable reports whether repeating the same call may succeed: transport
// failures other than cancellation, rate limiting, and 5xx responses.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransport:
		return !errors.Is(err, context.Canceled)
	case KindAPI:
		apiErr := &APIError{}
		if errors.As(err, &apiErr) {
			return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
		}
	}

	return false
}
