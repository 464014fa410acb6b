package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
)

// NewTestClient creates a new test client with the given base URL.
func NewTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := New(&pocketbase.Config{BaseURL: baseURL})
	require.NoError(t, err)

	return client
}

// ErrorBody renders a PocketBase error response.
func ErrorBody(status int, message string, data map[string]interface{}) string {
	if data == nil {
		data = map[string]interface{}{}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"status":  status,
		"message": message,
		"data":    data,
	})

	return string(body)
}

// AuthBody renders an auth response for token and record.
func AuthBody(token string, record map[string]interface{}) string {
	body, _ := json.Marshal(map[string]interface{}{"token": token, "record": record})

	return string(body)
}

// RecordOperation is one request/response exchange against a collection.
type RecordOperation struct {
	Name           string
	Collection     string
	ExpectedMethod string
	ExpectedPath   string
	ExpectedQuery  string
	ExpectedBody   string
	StatusCode     int
	Response       string
	WantKind       pocketbase.ErrorKind
	Call           func(context.Context, pocketbase.Collection) error
}

// RunRecordOperationTests serves each case from a fresh server and checks
// the request that reached it and the error kind the call returned.
func RunRecordOperationTests(t *testing.T, tests []RecordOperation) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedMethod, request.Method)
				assert.Equal(t, testCase.ExpectedPath, request.URL.Path)
				assert.Equal(t, testCase.ExpectedQuery, request.URL.RawQuery)

				if testCase.ExpectedBody != "" {
					body, err := io.ReadAll(request.Body)
					assert.NoError(t, err)
					assert.JSONEq(t, testCase.ExpectedBody, string(body))
				}

				writer.Header().Set("Content-Type", "application/json")
				writer.WriteHeader(testCase.StatusCode)

				if testCase.Response != "" {
					_, _ = writer.Write([]byte(testCase.Response))
				}
			}))
			defer server.Close()

			client := NewTestClient(t, server.URL)

			name := testCase.Collection
			if name == "" {
				name = "posts"
			}

			coll, err := client.Collection(name)
			require.NoError(t, err)

			err = testCase.Call(context.Background(), coll)

			if testCase.WantKind == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Equal(t, testCase.WantKind, pocketbase.KindOf(err), err.Error())
		})
	}
}
