// Package backend talks to the storefront REST API that owns every
// collection managed by the console.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxResponseBytes caps how much of a reply is read.
const DefaultMaxResponseBytes = 8 << 20

// ErrResponseTooLarge is returned when a reply exceeds the configured cap.
var ErrResponseTooLarge = errors.New("backend: response too large")

// ErrUnauthorized is returned when the backend rejects the session token.
var ErrUnauthorized = errors.New("backend: unauthorized")

// StatusError is a non-2xx reply other than 401.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Code)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Code, e.Message)
}

// envelope is the reply shape shared by every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
	Token   string          `json:"token"`
}

// Options configure a Client.
type Options struct {
	Timeout time.Duration
	// RPS caps outbound requests per second. Zero disables the limit.
	RPS   float64
	Burst int
	// MaxResponseBytes caps a reply body; zero means DefaultMaxResponseBytes.
	MaxResponseBytes int64
	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client wraps interactions with the storefront API.
type Client struct {
	baseURL    string
	maxBody    int64
	httpClient *http.Client
}

type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		transport = &rateLimitedTransport{base: transport, limiter: rate.NewLimiter(rate.Limit(opts.RPS), burst)}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		maxBody: opts.MaxResponseBytes,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
}

func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		reader = bytes.NewReader(raw)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return envelope{}, err
	}
	if int64(len(payload)) > c.maxBody {
		return envelope{}, fmt.Errorf("%w: %s %s over %d bytes", ErrResponseTooLarge, method, path, c.maxBody)
	}
	var env envelope
	decodeErr := json.Unmarshal(payload, &env)

	if resp.StatusCode == http.StatusUnauthorized {
		return envelope{}, ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return envelope{}, &StatusError{Code: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return envelope{}, fmt.Errorf("backend: decode %s %s: %w", method, path, decodeErr)
	}
	return env, nil
}
