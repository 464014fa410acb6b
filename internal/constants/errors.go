package constants

import "errors"

// CLI configuration errors.
var (
	ErrNoServerConfigured = errors.New("no server configured, use 'pbctl login --url' or set PBCTL_URL")
	ErrNotLoggedIn        = errors.New("not logged in, use 'pbctl login' first")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrInvalidOutput      = errors.New("invalid output format")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidRetries     = errors.New("retries must be a non-negative integer")
	ErrSessionMismatch    = errors.New("saved session belongs to a different server")
)

// Argument errors.
var (
	ErrDataRequired   = errors.New("--data flag is required")
	ErrInvalidDataArg = errors.New("--data must be a JSON object")
)

