package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fivetwenty-io/pocketbase-go/internal/auth"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
)

// Static errors for err113 compliance.
var (
	ErrIncompleteAuthResponse = errors.New("auth response lacks token or record")
)

// Field error codes PocketBase reports on auth-with-password.
const (
	codeIsEmail  = "validation_is_email"
	codeRequired = "validation_required"
)

type authResponse struct {
	Token  string          `json:"token"`
	Record json.RawMessage `json:"record"`
}

type passwordRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type impersonateRequest struct {
	Duration int64 `json:"duration,omitempty"`
}

type verificationRequest struct {
	Email string `json:"email"`
}

// AuthWithPassword implements pocketbase.Collection.AuthWithPassword.
func (c *Collection) AuthWithPassword(ctx context.Context, identity, password string) (*pocketbase.AuthResult, error) {
	var missing []pocketbase.FieldError

	if identity == "" {
		missing = append(missing, pocketbase.FieldError{Field: "identity", Code: codeRequired, Message: "Cannot be blank."})
	}

	if password == "" {
		missing = append(missing, pocketbase.FieldError{Field: "password", Code: codeRequired, Message: "Cannot be blank."})
	}

	if len(missing) > 0 {
		return nil, &pocketbase.AuthError{Reason: pocketbase.AuthReasonEmptyField, FieldErrors: missing}
	}

	resp, err := c.client.httpClient.Post(ctx, c.basePath()+"/auth-with-password", passwordRequest{
		Identity: identity,
		Password: password,
	})
	if err != nil {
		return nil, passwordAuthError(err)
	}

	return c.commit(ctx, c.client.store, resp.Body)
}

// AuthRefresh implements pocketbase.Collection.AuthRefresh.
func (c *Collection) AuthRefresh(ctx context.Context) (*pocketbase.AuthResult, error) {
	if !c.client.IsAuthenticated() {
		return nil, &pocketbase.AuthError{Reason: pocketbase.AuthReasonNotAuthenticated, Message: "no session to refresh"}
	}

	resp, err := c.client.httpClient.Post(ctx, c.basePath()+"/auth-refresh", nil)
	if err != nil {
		return nil, authFailure(err)
	}

	return c.commit(ctx, c.client.store, resp.Body)
}

// Impersonate implements pocketbase.Collection.Impersonate.
func (c *Collection) Impersonate(ctx context.Context, recordID string, duration time.Duration) (pocketbase.Client, error) {
	if recordID == "" {
		return nil, &pocketbase.InvalidArgumentError{Argument: "record id", Reason: "must not be empty"}
	}

	if duration < 0 {
		return nil, &pocketbase.InvalidArgumentError{Argument: "duration", Reason: "must not be negative"}
	}

	if !c.client.IsAuthenticated() {
		return nil, &pocketbase.AuthError{Reason: pocketbase.AuthReasonNotAuthenticated, Message: "impersonation requires a superuser session"}
	}

	path := c.basePath() + "/impersonate/" + url.PathEscape(recordID)

	resp, err := c.client.httpClient.Post(ctx, path, impersonateRequest{Duration: durationSeconds(duration)})
	if err != nil {
		return nil, authFailure(err)
	}

	impersonated := c.client.sibling()

	_, err = c.commit(ctx, impersonated.store, resp.Body)
	if err != nil {
		return nil, err
	}

	return impersonated, nil
}

// RequestVerification implements pocketbase.Collection.RequestVerification.
func (c *Collection) RequestVerification(ctx context.Context, email string) error {
	if email == "" {
		return &pocketbase.InvalidArgumentError{Argument: "email", Reason: "must not be empty"}
	}

	_, err := c.client.httpClient.Post(ctx, c.basePath()+"/request-verification", verificationRequest{Email: email})
	if err != nil {
		return fmt.Errorf("requesting verification for %s: %w", c.name, err)
	}

	return nil
}

// commit decodes an auth response and stores it. Nothing is stored when the
// context was cancelled while the response was in flight.
func (c *Collection) commit(ctx context.Context, store *auth.Store, body []byte) (*pocketbase.AuthResult, error) {
	var parsed authResponse

	err := json.Unmarshal(body, &parsed)
	if err != nil || parsed.Token == "" || len(parsed.Record) == 0 || string(parsed.Record) == "null" {
		cause := err
		if cause == nil {
			cause = ErrIncompleteAuthResponse
		}

		return nil, &pocketbase.AuthError{
			Reason: pocketbase.AuthReasonUnexpectedResponse,
			Err:    &pocketbase.DeserializationError{Kind: pocketbase.DecodeUnknownShape, Index: -1, Reason: cause.Error(), Err: cause},
		}
	}

	var record pocketbase.Record

	err = json.Unmarshal(parsed.Record, &record)
	if err != nil {
		return nil, &pocketbase.AuthError{
			Reason: pocketbase.AuthReasonUnexpectedResponse,
			Err:    &pocketbase.DeserializationError{Kind: pocketbase.DecodeWrongType, Field: "record", Index: -1, Reason: err.Error(), Err: err},
		}
	}

	err = ctx.Err()
	if err != nil {
		return nil, &pocketbase.AuthError{Reason: pocketbase.AuthReasonTransport, Err: err}
	}

	err = store.Save(auth.State{Token: parsed.Token, Record: parsed.Record, Collection: c.name})
	if err != nil {
		return nil, &pocketbase.AuthError{Reason: pocketbase.AuthReasonUnexpectedResponse, Err: err}
	}

	return &pocketbase.AuthResult{Token: parsed.Token, Record: record}, nil
}

// durationSeconds rounds d up to whole seconds, so a positive duration never
// becomes 0, which the server reads as its default lifetime.
func durationSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

// passwordAuthError maps a failed auth-with-password call. PocketBase answers
// bad credentials with a 400 that carries no field errors.
func passwordAuthError(err error) error {
	var validation *pocketbase.ValidationError
	if !errors.As(err, &validation) {
		return authFailure(err)
	}

	reason := pocketbase.AuthReasonInvalidCredentials

	for _, fe := range validation.FieldErrors {
		switch fe.Code {
		case codeIsEmail:
			reason = pocketbase.AuthReasonIdentityMustBeEmail
		case codeRequired:
			if reason == pocketbase.AuthReasonInvalidCredentials {
				reason = pocketbase.AuthReasonEmptyField
			}
		}
	}

	return &pocketbase.AuthError{
		Reason:      reason,
		Status:      validation.Status,
		Message:     validation.Message,
		FieldErrors: validation.FieldErrors,
	}
}

// authFailure turns any other failure of an auth endpoint into an AuthError.
func authFailure(err error) error {
	var authErr *pocketbase.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	var transportErr *pocketbase.TransportError
	if errors.As(err, &transportErr) {
		return &pocketbase.AuthError{Reason: pocketbase.AuthReasonTransport, Err: transportErr}
	}

	status := 0

	var apiErr *pocketbase.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}

	return &pocketbase.AuthError{Reason: pocketbase.AuthReasonUnexpectedResponse, Status: status, Err: err}
}
