// Package provider implements the uniform client for MCP capability
// providers: health check, method listing, and method invocation with a
// per-provider retry policy.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mcp-agent/pkg/logger"
	"mcp-agent/pkg/models"
)

// Backoff is the delay policy between retriable attempts.
type Backoff struct {
	Base       time.Duration
	Multiplier float64
}

// Delay returns the wait before retry number n (0-indexed):
// Base * Multiplier^n.
func (b Backoff) Delay(n int) time.Duration {
	return time.Duration(float64(b.Base) * math.Pow(b.Multiplier, float64(n)))
}

// Client wraps one provider endpoint. Clients are independent and share
// nothing across providers except the append-only call log.
type Client struct {
	name       string
	endpoint   string
	maxRetries int
	backoff    Backoff
	http       *http.Client
	calls      *CallLog
}

// Options carries the per-provider settings a Client is built from.
type Options struct {
	Name       string
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    Backoff
	Calls      *CallLog
}

// NewClient creates a client with its own HTTP transport bounded by the
// provider's configured timeout.
func NewClient(opts Options) *Client {
	if opts.Calls == nil {
		opts.Calls = NewCallLog()
	}
	return &Client{
		name:       opts.Name,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		http:       &http.Client{Timeout: opts.Timeout},
		calls:      opts.Calls,
	}
}

// Name returns the provider name this client serves.
func (c *Client) Name() string {
	return c.name
}

// Close releases idle connections. Requests already sent may still complete
// server-side; their results are discarded.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health performs a single advisory health probe with no retry.
func (c *Client) Health(ctx context.Context) models.Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return models.HealthDown
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Str(logger.ProviderField, c.name).Err(err).Msg("health probe failed")
		return models.HealthDown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.HealthDown
	}
	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return models.HealthDown
	}
	switch h.Status {
	case "ok":
		return models.HealthOK
	case "degraded":
		return models.HealthDegraded
	default:
		return models.HealthDown
	}
}

// ListMethods returns the provider's method names in the order the provider
// reports them.
func (c *Client) ListMethods(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/methods", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list methods: status %d", resp.StatusCode)
	}
	var methods []string
	if err := json.NewDecoder(resp.Body).Decode(&methods); err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}
	return methods, nil
}

type callRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type callError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type callResponse struct {
	Result any        `json:"result"`
	Error  *callError `json:"error"`
}

// Call invokes method with params, applying the provider's retry policy:
// transient failures (timeout, connection refused, 5xx) are retried up to
// MaxRetries additional attempts with exponential backoff; rejected calls
// (4xx, unknown method) fail on the first attempt. A call that uses up its
// retry budget reports an exhausted error wrapping the last failure.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (any, *models.ProviderError) {
	attempts := c.maxRetries + 1
	var last *models.ProviderError

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if perr := c.wait(ctx, c.backoff.Delay(attempt-1)); perr != nil {
				return nil, perr
			}
		}

		start := time.Now()
		result, perr := c.attempt(ctx, method, params)
		latency := time.Since(start)
		c.calls.Append(c.name, method, outcome(perr), latency)

		if perr == nil {
			return result, nil
		}
		log.Warn().
			Str(logger.ProviderField, c.name).
			Str(logger.MethodField, method).
			Int(logger.AttemptField, attempt+1).
			Str("kind", string(perr.Kind)).
			Msg(perr.Detail)

		if !perr.Kind.Retriable() {
			return nil, perr
		}
		last = perr

		if ctx.Err() != nil {
			return nil, &models.ProviderError{Kind: models.ErrKindTimeout, Detail: ctx.Err().Error()}
		}
	}

	return nil, &models.ProviderError{
		Kind:   models.ErrKindExhausted,
		Detail: fmt.Sprintf("%d attempts failed, last: %s", attempts, last.Detail),
	}
}

// wait sleeps for the backoff delay unless the context settles first.
func (c *Client) wait(ctx context.Context, d time.Duration) *models.ProviderError {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &models.ProviderError{Kind: models.ErrKindTimeout, Detail: ctx.Err().Error()}
	case <-timer.C:
		return nil
	}
}

func (c *Client) attempt(ctx context.Context, method string, params map[string]any) (any, *models.ProviderError) {
	body, err := json.Marshal(callRequest{Method: method, Params: params})
	if err != nil {
		return nil, &models.ProviderError{Kind: models.ErrKindRejected, Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, &models.ProviderError{Kind: models.ErrKindRejected, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, &models.ProviderError{Kind: models.ErrKindTransient, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, readError(resp.Body))}
	case resp.StatusCode >= 400:
		return nil, &models.ProviderError{Kind: models.ErrKindRejected, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, readError(resp.Body))}
	}

	var out callResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &models.ProviderError{Kind: models.ErrKindTransient, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	if out.Error != nil {
		return nil, &models.ProviderError{Kind: models.ErrKindRejected, Detail: fmt.Sprintf("%s: %s", out.Error.Kind, out.Error.Message)}
	}
	return out.Result, nil
}

// classifyTransport maps a transport failure onto the error taxonomy:
// deadline expiry is a timeout, everything else (connection refused, reset,
// DNS) is transient.
func classifyTransport(err error) *models.ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &models.ProviderError{Kind: models.ErrKindTimeout, Detail: err.Error()}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &models.ProviderError{Kind: models.ErrKindTimeout, Detail: err.Error()}
	}
	return &models.ProviderError{Kind: models.ErrKindTransient, Detail: err.Error()}
}

// readError extracts the error payload message from a non-2xx body, falling
// back to the raw body.
func readError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "(no body)"
	}
	var out callResponse
	if json.Unmarshal(raw, &out) == nil && out.Error != nil {
		return fmt.Sprintf("%s: %s", out.Error.Kind, out.Error.Message)
	}
	return string(bytes.TrimSpace(raw))
}

func outcome(perr *models.ProviderError) string {
	if perr == nil {
		return "ok"
	}
	return string(perr.Kind)
}
