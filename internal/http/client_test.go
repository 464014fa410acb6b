package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pbhttp "github.com/fivetwenty-io/pocketbase-go/internal/http"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTokenProvider for testing.
type MockTokenProvider struct {
	token string
}

func (m *MockTokenProvider) Token() (string, bool) {
	return m.token, m.token != ""
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/collections/posts/records", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, pocketbase.DefaultUserAgent, request.Header.Get("User-Agent"))

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "rec1", "title": "hello"})
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, &MockTokenProvider{token: "test-token"})

		resp, err := client.Do(context.Background(), &pbhttp.Request{
			Method: "GET",
			Path:   "/api/collections/posts/records",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]string

		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, "rec1", result["id"])
	})

	t.Run("anonymous request has no authorization header", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_, present := request.Header["Authorization"]
			assert.False(t, present)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, &MockTokenProvider{})

		_, err := client.Get(context.Background(), "/api/health", "")
		require.NoError(t, err)
	})

	t.Run("query string is sent verbatim", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "sort=-created,id&page=2", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/records", "sort=-created,id&page=2")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "hello", body["title"])

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil)

		resp, err := client.Post(context.Background(), "/records", []byte(`{"title":"hello"}`))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"status":404,"message":"The requested resource wasn't found.","data":{}}`))
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/records/missing", "")
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)

		var notFound *pocketbase.NotFoundError

		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "The requested resource wasn't found.", notFound.Message)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil, pbhttp.WithUserAgent("pbctl/test"))

		resp, err := client.Do(context.Background(), &pbhttp.Request{
			Method:  "GET",
			Path:    "/records",
			Headers: map[string]string{"X-Custom-Header": "custom-value"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := pbhttp.NewClient(server.URL, &MockTokenProvider{token: "secret-token"},
			pbhttp.WithLogger(logger), pbhttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/records", "")
		require.NoError(t, err)

		require.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])

		fields, _ := logger.logs[0]["fields"].(map[string]interface{})
		headers, _ := fields["headers"].(map[string]string)
		assert.Equal(t, "[REDACTED]", headers["Authorization"])
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
		url := server.URL
		server.Close()

		client := pbhttp.NewClient(url, nil)

		_, err := client.Get(context.Background(), "/records", "")

		var transportErr *pocketbase.TransportError

		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "GET", transportErr.Method)
		assert.Equal(t, pocketbase.KindTransport, pocketbase.KindOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := pbhttp.NewClient(server.URL, nil)

		_, err := client.Get(ctx, "/records", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, pocketbase.IsRetryable(err))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*pbhttp.Client, context.Context) (*pbhttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *pbhttp.Client, ctx context.Context) (*pbhttp.Response, error) {
				return c.Get(ctx, "/test", "")
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *pbhttp.Client, ctx context.Context) (*pbhttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *pbhttp.Client, ctx context.Context) (*pbhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *pbhttp.Client, ctx context.Context) (*pbhttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *pbhttp.Client, ctx context.Context) (*pbhttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := pbhttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("no retries by default", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/test", "")
		require.Error(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())

		var apiErr *pocketbase.APIError

		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 503, apiErr.Status)
	})

	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := pbhttp.NewClient(server.URL, nil,
			pbhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond), pbhttp.WithLogger(logger))

		resp, err := client.Get(context.Background(), "/test", "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
		assert.Len(t, logger.logs, 2, "one warning per retry")
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil, pbhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("never retries POST", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil, pbhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Post(context.Background(), "/test", []byte(`{}`))
		require.Error(t, err)
		assert.Equal(t, 502, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write([]byte(`{"status":400,"message":"Bad request.","data":{}}`))
		}))
		defer server.Close()

		client := pbhttp.NewClient(server.URL, nil, pbhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", "")
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})
}

func TestClient_Cache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tokens := &MockTokenProvider{token: "tok"}
	cache := pocketbase.NewMemoryCache(10)
	client := pbhttp.NewClient(server.URL, tokens, pbhttp.WithCache(cache, time.Minute))
	ctx := context.Background()

	_, err := client.Get(ctx, "/records", "page=1")
	require.NoError(t, err)

	resp, err := client.Get(ctx, "/records", "page=1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(1), hits.Load(), "second GET is served from cache")

	_, err = client.Get(ctx, "/records", "page=2")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "a different query misses")

	_, err = client.Patch(ctx, "/records/r1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len(), "a successful write clears the cache")

	_, err = client.Get(ctx, "/records", "page=1")
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}
