package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/hashicorp/go-retryablehttp"
)

// TokenProvider supplies the token attached to each request.
type TokenProvider interface {
	Token() (string, bool)
}

// Request is one API call. Query is an already encoded query string.
type Request struct {
	Method  string
	Path    string
	Query   string
	Body    interface{}
	Headers map[string]string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Client sends requests to one PocketBase server.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *retryablehttp.Client
	logger     pocketbase.Logger
	debug      bool
	userAgent  string
	cache      pocketbase.Cache
	cacheTTL   time.Duration

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
	base         *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger pocketbase.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig enables retries of idempotent requests.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = retryMax
		if waitMin > 0 {
			c.retryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.retryWaitMax = waitMax
		}
	}
}

// WithTimeout sets a per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient uses base for the underlying connections.
func WithHTTPClient(base *http.Client) Option {
	return func(c *Client) {
		c.base = base
	}
}

// WithCache caches successful GET responses for ttl.
func WithCache(cache pocketbase.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewClient creates a client for baseURL. tokens may be nil for anonymous use.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	client := &Client{
		baseURL:      baseURL,
		tokens:       tokens,
		userAgent:    pocketbase.DefaultUserAgent,
		cacheTTL:     constants.DefaultCacheTTL,
		retryWaitMin: constants.DefaultRetryWaitMin,
		retryWaitMax: constants.DefaultRetryWaitMax,
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = client.retryMax
	retryClient.RetryWaitMin = client.retryWaitMin
	retryClient.RetryWaitMax = client.retryWaitMax
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	retryClient.RequestLogHook = client.logRetry

	if client.base != nil {
		base := *client.base
		retryClient.HTTPClient = &base
	}

	if client.timeout > 0 {
		retryClient.HTTPClient.Timeout = client.timeout
	}

	client.httpClient = retryClient

	return client
}

// BaseURL returns the server URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends req. Responses with status >= 400 are returned together with the
// typed error NewResponseError maps them to.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	token := ""
	if c.tokens != nil {
		token, _ = c.tokens.Token()
	}

	fullURL := c.baseURL + req.Path
	if req.Query != "" {
		fullURL += "?" + req.Query
	}

	cacheKey := ""
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = pocketbase.CacheKey(token, req.Method, req.Path, req.Query)

		entry, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			c.logDebug("Cache hit", map[string]interface{}{"url": fullURL})

			return &Response{StatusCode: http.StatusOK, Body: entry.Data, Headers: http.Header{}}, nil
		}
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(withMethod(ctx, req.Method), req.Method, fullURL, body)
	if err != nil {
		return nil, &pocketbase.TransportError{Method: req.Method, URL: fullURL, Err: err}
	}

	httpReq.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)

	if body != nil {
		httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	if token != "" {
		httpReq.Header.Set(constants.HeaderAuthorization, token)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	c.logDebug("HTTP Request", map[string]interface{}{
		"method":  req.Method,
		"url":     fullURL,
		"headers": redactHeaders(httpReq.Header),
	})

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &pocketbase.TransportError{Method: req.Method, URL: fullURL, Err: err}
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pocketbase.TransportError{Method: req.Method, URL: fullURL, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.logDebug("HTTP Response", map[string]interface{}{
		"method":   req.Method,
		"url":      fullURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return response, pocketbase.NewResponseError(resp.StatusCode, respBody)
	}

	c.updateCache(ctx, req.Method, cacheKey, respBody)

	return response, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path, query string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) updateCache(ctx context.Context, method, key string, body []byte) {
	if c.cache == nil {
		return
	}

	if method == http.MethodGet {
		err := c.cache.Set(ctx, key, &pocketbase.CacheEntry{Data: body, ExpiresAt: time.Now().Add(c.cacheTTL)})
		if err != nil && c.logger != nil {
			c.logger.Warn("Cache write failed", map[string]interface{}{"error": err.Error()})
		}

		return
	}

	err := c.cache.Clear(ctx)
	if err != nil && c.logger != nil {
		c.logger.Warn("Cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

func encodeBody(body interface{}) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case json.RawMessage:
		return value, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &pocketbase.SerializationError{Type: fmt.Sprintf("%T", body), Reason: err.Error(), Err: err}
	}

	return data, nil
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))

	for key := range headers {
		if key == constants.HeaderAuthorization {
			out[key] = constants.RedactedValue

			continue
		}

		out[key] = headers.Get(key)
	}

	return out
}

type methodKey struct{}

func withMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, methodKey{}, method)
}

// checkRetry applies the default policy to idempotent methods only. A POST
// that may have reached the server is never sent twice.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	method, _ := ctx.Value(methodKey{}).(string)

	retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	if checkErr != nil || !retry {
		return retry, checkErr
	}

	return isIdempotent(method), nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (c *Client) logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 || c.logger == nil {
		return
	}

	c.logger.Warn("Retrying request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt,
	})
}
