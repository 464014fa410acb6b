package pocketbase

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Version is reported in the default User-Agent.
const Version = "0.4.0"

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "pocketbase-go/" + Version

// Client is a handle on one PocketBase server and the session held for it.
// A Client is safe for concurrent use; every request reads the token once,
// when it is dispatched.
type Client interface {
	// BaseURL returns the normalized server URL, without a trailing slash.
	BaseURL() string
	// Collection returns a handle bound to name. It performs no I/O.
	Collection(name string) (Collection, error)
	// AuthState returns a copy of the current session.
	AuthState() AuthState
	// Token returns the current token, if any.
	Token() (string, bool)
	IsAuthenticated() bool
	// Logout clears the session. It is idempotent.
	Logout()
}

// Collection is the untyped record API of one collection. Bodies go in and
// come out as raw JSON; Records[T] layers typed encoding on top.
type Collection interface {
	Name() string

	CreateRecord(ctx context.Context, body []byte) (json.RawMessage, error)
	GetRecord(ctx context.Context, id, query string) (json.RawMessage, error)
	ListRecords(ctx context.Context, query string) (json.RawMessage, error)
	UpdateRecord(ctx context.Context, id string, body []byte) (json.RawMessage, error)
	DeleteRecord(ctx context.Context, id string) error

	// AuthWithPassword authenticates against this auth collection and, on
	// success, replaces the client's session.
	AuthWithPassword(ctx context.Context, identity, password string) (*AuthResult, error)
	// AuthRefresh exchanges the current token for a fresh one.
	AuthRefresh(ctx context.Context) (*AuthResult, error)
	// RequestVerification asks the server to send a verification email.
	RequestVerification(ctx context.Context, email string) error
	// Impersonate returns a new Client authenticated as recordID. The
	// calling client must hold a superuser session and is left untouched.
	Impersonate(ctx context.Context, recordID string, duration time.Duration) (Client, error)
}

// Config represents client configuration for building a pocketbase.Client.
//
// Only BaseURL is required. Requests carry no timeout and are never retried
// unless HTTPTimeout and RetryMax say otherwise; per-call deadlines belong in
// the context passed to each operation.
type Config struct {
	// BaseURL: absolute http or https URL of the server. A trailing slash is
	// trimmed.
	BaseURL string

	// HTTPTimeout: optional per-attempt timeout on the underlying http.Client.
	HTTPTimeout time.Duration
	// RetryMax: retries for transient failures (connection errors, 429, 5xx)
	// on idempotent methods. Zero disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration

	// Debug: enables HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides DefaultUserAgent.
	UserAgent string
	// HTTPClient: optional base client, e.g. with a custom transport.
	HTTPClient *http.Client

	// Cache: optional store for successful GET responses. Any successful
	// write clears it.
	Cache Cache
	// CacheTTL: lifetime of cached responses; zero uses a short default.
	CacheTTL time.Duration

	// SessionPersister: optional sink for every committed session change,
	// including logout.
	SessionPersister SessionPersister
}

// SessionPersister saves sessions outside the process.
type SessionPersister interface {
	PersistSession(state AuthState) error
}
