package client

import (
	"net/http"
	"time"
)

// ClientOptions configures the libsql client behavior.
type ClientOptions struct {
	// AuthToken is the JWT presented to the server. Overrides any
	// authToken query parameter in the database URL.
	AuthToken string

	// HTTPClient is used by both transports: for pipeline round trips on
	// HTTP streams and for the opening handshake on WebSocket streams.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// ConnectTimeout bounds the time spent establishing a stream.
	// Default: 30s
	ConnectTimeout time.Duration

	// StatementCacheSize is the maximum number of SQL texts cached per
	// transaction on streams that support server-side SQL storage.
	// Default: 30
	StatementCacheSize int

	// Logger is the logger implementation to use.
	// If nil, a noop logger is used: a library must stay quiet by default.
	Logger Logger

	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR) for
	// the default logger. Only consulted when Logger is nil and
	// EnableLogging is true.
	LogLevel string

	// EnableLogging turns on the default JSON logger when no Logger is
	// provided.
	EnableLogging bool
}

// DefaultOptions returns ClientOptions with default values.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		ConnectTimeout:     30 * time.Second,
		StatementCacheSize: 30,
		LogLevel:           "INFO",
	}
}
