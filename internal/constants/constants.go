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
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry defaults.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Cache defaults.
const (
	// DefaultCacheSize is the maximum number of entries in the memory
	// cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the time-to-live for cached catalog metadata.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheBucket is the NATS KV bucket used for shared metadata
	// caching.
	DefaultCacheBucket = "stacq-metadata"
)

// HTTP status codes commonly used.
const (
	// HTTPStatusBadRequest represents a client error.
	HTTPStatusBadRequest = 400
)

// Output and display constants.
const (
	// TableMaxColumnWidth is the maximum column width in table output.
	TableMaxColumnWidth = 50

	// DefaultTerminalWidth is assumed when the terminal size is unknown.
	DefaultTerminalWidth = 80

	// KeyValueSplitParts is the number of parts when splitting key=value strings.
	KeyValueSplitParts = 2
)

// UserAgent is the default User-Agent header.
const UserAgent = "stacq-client/1.0"
