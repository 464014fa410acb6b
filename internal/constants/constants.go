package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the timeout applied when a caller sets
	// HTTPTimeout without a value of its own, e.g. the CLI.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits. Retries are opt-in; these apply once RetryMax is set.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// LowRetryMax is what the CLI uses for reads.
	LowRetryMax = 3
)

// Pagination limits enforced by PocketBase.
const (
	// MaxPerPage is the largest page the server returns.
	MaxPerPage = 500

	// FullListBatchSize is the page size used when walking every page.
	FullListBatchSize = MaxPerPage
)

// Cache defaults.
const (
	// DefaultCacheSize is the default number of entries kept in memory.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long a cached GET response stays fresh.
	DefaultCacheTTL = 30 * time.Second

	// DefaultNATSBucket is the JetStream key-value bucket used for caching.
	DefaultNATSBucket = "pocketbase-cache"

	// NATSConnectTimeout bounds the initial NATS connection.
	NATSConnectTimeout = 5 * time.Second
)

// API paths.
const (
	// CollectionsPath prefixes every collection endpoint.
	CollectionsPath = "/api/collections"
)

// HTTP headers.
const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"

	// ContentTypeJSON is sent with every request body.
	ContentTypeJSON = "application/json"

	// RedactedValue replaces secrets in debug logs.
	RedactedValue = "[REDACTED]"
)

// CLI display.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MinimumArgumentCount is the minimum number of command line arguments.
	MinimumArgumentCount = 2

	// MaxColumnWidth truncates long values in table output.
	MaxColumnWidth = 40
)
