package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/decred/slog"
)

// Config holds the client configuration.
type Config struct {
	// ServerURL is the base URL of the blackjack server, e.g.
	// "http://127.0.0.1:7780".
	ServerURL string

	// HTTPClient defaults to a client with RequestTimeout.
	HTTPClient     *http.Client
	RequestTimeout time.Duration

	Log slog.Logger
}

func (cfg *Config) validate() (*url.URL, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is not configured")
	}
	u, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %v", cfg.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must use http or https", cfg.ServerURL)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	return u, nil
}
