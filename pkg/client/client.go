package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/decred/slog"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// APIError is a request the server rejected. It unwraps to the engine's
// sentinel error for its code, so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// Unwrap returns the sentinel error matching the wire code, if any.
func (e *APIError) Unwrap() error {
	return blackjack.ErrorFromCode(e.Code)
}

// BlackjackClient talks to the blackjack HTTP API.
type BlackjackClient struct {
	baseURL *url.URL
	http    *http.Client
	log     slog.Logger
}

// NewBlackjackClient creates a client for cfg.ServerURL.
func NewBlackjackClient(cfg Config) (*BlackjackClient, error) {
	u, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &BlackjackClient{
		baseURL: u,
		http:    cfg.HTTPClient,
		log:     cfg.Log,
	}, nil
}

// ServerURL returns the base URL the client talks to.
func (bc *BlackjackClient) ServerURL() string {
	return bc.baseURL.String()
}

// do sends a JSON request and decodes a JSON response into out, if out is
// not nil.
func (bc *BlackjackClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, bc.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	bc.log.Tracef("%s %s", method, path)
	resp, err := bc.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var er api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: api.CodeInternal, Message: resp.Status}
		}
		return &APIError{Status: resp.StatusCode, Code: er.Code, Message: er.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %v", method, path, err)
	}
	return nil
}

// Healthy reports whether the server answers its health check.
func (bc *BlackjackClient) Healthy(ctx context.Context) error {
	return bc.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
