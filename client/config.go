package client

import (
	"fmt"
	"net/url"
)

// Config is the expanded form of a database URL: a plain options object the
// transports consume directly.
type Config struct {
	// Scheme is one of "ws", "wss", "http", "https" after expansion.
	Scheme string

	// Host is the host[:port] of the server.
	Host string

	// Path is the URL path, usually empty.
	Path string

	// AuthToken is the token extracted from the authToken query
	// parameter, if any.
	AuthToken string
}

// URL renders the config back into a URL for the selected transport.
func (c *Config) URL() string {
	u := url.URL{Scheme: c.Scheme, Host: c.Host, Path: c.Path}
	return u.String()
}

// ParseURL parses and expands a database URL into a Config.
//
// The libsql scheme expands to wss (or ws with tls=0); ws, wss, http and
// https are accepted verbatim. The transport=http query parameter selects
// the HTTP transport for libsql URLs. Recognized query parameters:
// authToken, tls, transport.
func ParseURL(rawURL string) (*Config, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{
			Code:    CodeURLInvalid,
			Message: fmt.Sprintf("failed to parse URL %q", rawURL),
			Cause:   err,
		}
	}

	query := parsed.Query()
	cfg := &Config{
		Host:      parsed.Host,
		Path:      parsed.Path,
		AuthToken: query.Get("authToken"),
	}

	tls := true
	switch query.Get("tls") {
	case "", "1":
	case "0":
		tls = false
	default:
		return nil, &Error{
			Code:    CodeURLInvalid,
			Message: fmt.Sprintf("invalid tls query parameter %q, expected 0 or 1", query.Get("tls")),
		}
	}

	useHTTP := false
	switch query.Get("transport") {
	case "", "ws", "websocket":
	case "http":
		useHTTP = true
	default:
		return nil, &Error{
			Code:    CodeURLInvalid,
			Message: fmt.Sprintf("invalid transport query parameter %q, expected ws or http", query.Get("transport")),
		}
	}

	switch parsed.Scheme {
	case "libsql":
		switch {
		case useHTTP && tls:
			cfg.Scheme = "https"
		case useHTTP:
			cfg.Scheme = "http"
		case tls:
			cfg.Scheme = "wss"
		default:
			cfg.Scheme = "ws"
		}
	case "ws", "wss", "http", "https":
		cfg.Scheme = parsed.Scheme
	default:
		return nil, &Error{
			Code:    CodeURLInvalid,
			Message: fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme),
		}
	}

	if cfg.Host == "" {
		return nil, &Error{
			Code:    CodeURLInvalid,
			Message: fmt.Sprintf("URL %q has no host", rawURL),
		}
	}

	return cfg, nil
}
