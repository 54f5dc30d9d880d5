// Package api is the client for the auction platform's REST API.
//
// Every endpoint answers with the envelope {success, data, error|message}.
// Calls return the decoded data or an *Error; transport failures are
// wrapped and returned as-is so callers can tell the two apart.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single REST call
const DefaultTimeout = 10 * time.Second

// TokenSource returns the bearer token for protected calls, or "" when
// the user is not logged in.
type TokenSource func() string

// Client talks to the auction REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource attaches a bearer token to protected calls
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger.With().Str("component", "api").Logger() }
}

// NewClient creates a client for baseURL (e.g. "http://localhost:8081/api")
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the response wrapper shared by all endpoints. Success is a
// pointer so a body without the field can be told apart from success=false.
type envelope struct {
	Success      *bool           `json:"success"`
	Data         json.RawMessage `json:"data"`
	Error        string          `json:"error"`
	Message      string          `json:"message"`
	ErrorMessage string          `json:"errorMessage"`
}

func (e *envelope) text() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return e.ErrorMessage
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// send performs req and returns the status code and raw body. Non-2xx
// responses are turned into *Error using the envelope's message fields.
func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body for %s %s: %w", req.method, req.path, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.auth && c.token != nil {
		if token := c.token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.method).Str("path", req.path).Msg("Request failed")
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s %s: %w", req.method, req.path, err)
	}

	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Method: req.method, Endpoint: req.path, StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			apiErr.Message = env.text()
		}
		return nil, apiErr
	}
	return body, nil
}

// call performs req and returns the envelope's data. A body without a
// data field is returned whole, matching servers that skip the wrapper.
func (c *Client) call(ctx context.Context, req request) (json.RawMessage, error) {
	body, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Some endpoints answer with a bare array
		if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
			return json.RawMessage(trimmed), nil
		}
		return nil, fmt.Errorf("failed to decode response for %s %s: %w", req.method, req.path, err)
	}
	if env.Success != nil && !*env.Success {
		return nil, &Error{Method: req.method, Endpoint: req.path, StatusCode: http.StatusOK, Message: env.text()}
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		if env.Success == nil {
			return json.RawMessage(body), nil
		}
		return nil, nil
	}
	return env.Data, nil
}

// callInto performs req and decodes the data into out
func (c *Client) callInto(ctx context.Context, req request, out any) error {
	data, err := c.call(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode data for %s %s: %w", req.method, req.path, err)
	}
	return nil
}
