package client

import (
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		rawURL     string
		wantScheme string
		wantHost   string
		wantToken  string
	}{
		{
			name:       "libsql defaults to secure websocket",
			rawURL:     "libsql://db.example.com",
			wantScheme: "wss",
			wantHost:   "db.example.com",
		},
		{
			name:       "libsql without tls",
			rawURL:     "libsql://localhost:8080?tls=0",
			wantScheme: "ws",
			wantHost:   "localhost:8080",
		},
		{
			name:       "libsql with http transport",
			rawURL:     "libsql://db.example.com?transport=http",
			wantScheme: "https",
			wantHost:   "db.example.com",
		},
		{
			name:       "libsql with http transport without tls",
			rawURL:     "libsql://localhost:8080?transport=http&tls=0",
			wantScheme: "http",
			wantHost:   "localhost:8080",
		},
		{
			name:       "explicit wss is kept",
			rawURL:     "wss://db.example.com",
			wantScheme: "wss",
			wantHost:   "db.example.com",
		},
		{
			name:       "explicit http is kept",
			rawURL:     "http://localhost:8080",
			wantScheme: "http",
			wantHost:   "localhost:8080",
		},
		{
			name:       "auth token query parameter",
			rawURL:     "libsql://db.example.com?authToken=abc123",
			wantScheme: "wss",
			wantHost:   "db.example.com",
			wantToken:  "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseURL(tt.rawURL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Scheme != tt.wantScheme {
				t.Errorf("expected scheme %q, got %q", tt.wantScheme, cfg.Scheme)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("expected host %q, got %q", tt.wantHost, cfg.Host)
			}
			if cfg.AuthToken != tt.wantToken {
				t.Errorf("expected auth token %q, got %q", tt.wantToken, cfg.AuthToken)
			}
		})
	}
}

func TestParseURLInvalid(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
	}{
		{name: "unsupported scheme", rawURL: "postgres://db.example.com"},
		{name: "invalid tls value", rawURL: "libsql://db.example.com?tls=2"},
		{name: "invalid transport value", rawURL: "libsql://db.example.com?transport=tcp"},
		{name: "missing host", rawURL: "libsql://"},
		{name: "unparsable", rawURL: "libsql://db.example.com:port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.rawURL)
			if err == nil {
				t.Fatal("expected an error")
			}
			if code := errorCode(t, err); code != CodeURLInvalid {
				t.Errorf("expected URL_INVALID, got %s", code)
			}
		})
	}
}

func TestConfigURL(t *testing.T) {
	cfg := &Config{Scheme: "wss", Host: "db.example.com", Path: ""}
	if got := cfg.URL(); got != "wss://db.example.com" {
		t.Errorf("unexpected URL: %q", got)
	}

	cfg = &Config{Scheme: "http", Host: "localhost:8080", Path: "/primary"}
	if got := cfg.URL(); got != "http://localhost:8080/primary" {
		t.Errorf("unexpected URL: %q", got)
	}
}
