package client

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/pocketbase-go/internal/auth"
	"github.com/fivetwenty-io/pocketbase-go/internal/http"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
)

// Client implements the pocketbase.Client interface.
type Client struct {
	httpClient *http.Client
	store      *auth.Store
	baseURL    string
	logger     pocketbase.Logger
	config     pocketbase.Config
}

// New creates a client with an empty session.
func New(config *pocketbase.Config) (*Client, error) {
	if config == nil {
		return nil, &pocketbase.ConfigError{Field: "config", Reason: "is required"}
	}

	baseURL, err := NormalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	cfg := *config
	cfg.BaseURL = baseURL

	store := auth.NewStore()
	if cfg.SessionPersister != nil {
		store.SetPersister(&persisterAdapter{target: cfg.SessionPersister})
	}

	return &Client{
		httpClient: http.NewClient(baseURL, store, createHTTPClientOptions(&cfg)...),
		store:      store,
		baseURL:    baseURL,
		logger:     cfg.Logger,
		config:     cfg,
	}, nil
}

// NormalizeBaseURL checks that raw is an absolute http(s) URL and trims the
// trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &pocketbase.ConfigError{Field: "BaseURL", Value: raw, Reason: "is required"}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", &pocketbase.ConfigError{Field: "BaseURL", Value: raw, Reason: err.Error()}
	}

	switch {
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return "", &pocketbase.ConfigError{Field: "BaseURL", Value: raw, Reason: "scheme must be http or https"}
	case parsed.Host == "":
		return "", &pocketbase.ConfigError{Field: "BaseURL", Value: raw, Reason: "host is required"}
	case parsed.RawQuery != "" || parsed.Fragment != "":
		return "", &pocketbase.ConfigError{Field: "BaseURL", Value: raw, Reason: "must not contain a query or fragment"}
	case parsed.User != nil:
		return "", &pocketbase.ConfigError{Field: "BaseURL", Value: raw, Reason: "must not contain credentials"}
	}

	return strings.TrimRight(trimmed, "/"), nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *pocketbase.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if config.Cache != nil {
		httpOpts = append(httpOpts, http.WithCache(config.Cache, config.CacheTTL))
	}

	return httpOpts
}

// BaseURL implements pocketbase.Client.BaseURL.
func (c *Client) BaseURL() string { return c.baseURL }

// Collection implements pocketbase.Client.Collection.
func (c *Client) Collection(name string) (pocketbase.Collection, error) {
	if name == "" {
		return nil, &pocketbase.InvalidArgumentError{Argument: "collection name", Reason: "must not be empty"}
	}

	return &Collection{name: name, client: c}, nil
}

// AuthState implements pocketbase.Client.AuthState.
func (c *Client) AuthState() pocketbase.AuthState {
	return toAuthState(c.store.Snapshot())
}

// Token implements pocketbase.Client.Token.
func (c *Client) Token() (string, bool) {
	return c.store.Token()
}

// IsAuthenticated implements pocketbase.Client.IsAuthenticated.
func (c *Client) IsAuthenticated() bool {
	_, ok := c.store.Token()

	return ok
}

// Logout implements pocketbase.Client.Logout.
func (c *Client) Logout() {
	c.store.Clear()
}

// Restore installs a previously obtained session, e.g. one read back from
// disk. The token and record must both be present.
func (c *Client) Restore(result pocketbase.AuthResult, collection string) error {
	record, err := json.Marshal(result.Record)
	if err != nil {
		return &pocketbase.SerializationError{Type: "pocketbase.Record", Reason: err.Error(), Err: err}
	}

	if result.Record == nil {
		record = nil
	}

	err = c.store.Save(auth.State{Token: result.Token, Record: record, Collection: collection})
	if err != nil {
		return &pocketbase.InvalidArgumentError{Argument: "session", Reason: err.Error()}
	}

	return nil
}

// sibling returns a new client for the same server with its own empty
// session. Session persistence is not inherited.
func (c *Client) sibling() *Client {
	cfg := c.config
	cfg.SessionPersister = nil

	store := auth.NewStore()

	return &Client{
		httpClient: http.NewClient(c.baseURL, store, createHTTPClientOptions(&cfg)...),
		store:      store,
		baseURL:    c.baseURL,
		logger:     cfg.Logger,
		config:     cfg,
	}
}

func toAuthState(state auth.State) pocketbase.AuthState {
	if state.IsZero() {
		return pocketbase.AuthState{}
	}

	var record pocketbase.Record

	_ = json.Unmarshal(state.Record, &record)

	return pocketbase.AuthState{
		Token:          state.Token,
		Record:         record,
		CollectionName: state.Collection,
	}
}

type persisterAdapter struct {
	target pocketbase.SessionPersister
}

func (p *persisterAdapter) PersistSession(state auth.State) error {
	return p.target.PersistSession(toAuthState(state))
}

var _ pocketbase.Client = (*Client)(nil)
