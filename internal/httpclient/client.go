package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is used when no positive timeout is configured.
const DefaultTimeout = 10 * time.Second

// UserAgent is sent with every upstream request.
const UserAgent = "poimap/1.0 (https://github.com/UnknownOlympus/poimap)"

// maxErrorBody caps how much of a failed response body is kept in a StatusError.
const maxErrorBody = 512

// ErrNonPointerTarget is returned when GetJSON is asked to decode into a nil target.
var ErrNonPointerTarget = errors.New("target must be a non-nil pointer")

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs JSON GET requests against upstream map services.
type Client struct {
	client HTTPClient   // HTTP client for making requests
	log    *slog.Logger // Logger for logging operations
}

// New returns a Client backed by a stdlib http.Client with the given timeout.
func New(timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// NewWithClient allows injecting a custom HTTP client.
func NewWithClient(client HTTPClient, log *slog.Logger) *Client {
	return &Client{client: client, log: log}
}

// GetJSON issues a GET request to endpoint with the given query and decodes the JSON body into target.
// A non-2xx response yields a *StatusError. Transport errors are wrapped so Classify can inspect them.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, target any) error {
	if target == nil {
		return ErrNonPointerTarget
	}

	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	c.log.DebugContext(ctx, "Upstream request", "host", reqURL.Host, "path", reqURL.Path)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	if resp == nil {
		return errors.New("nil response received")
	}
	defer func(body io.ReadCloser) {
		if closeErr := body.Close(); closeErr != nil {
			c.log.ErrorContext(ctx, "failed to close response body", "error", closeErr)
		}
	}(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.ErrorContext(ctx, "Upstream API error", "status", resp.StatusCode, "body", string(body))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err = json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
