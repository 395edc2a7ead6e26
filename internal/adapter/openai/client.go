// Package openai is the provider adapter for OpenAI-compatible chat
// completion endpoints. Primary credentials talk to the primary base URL
// with the bare target as model; secondary credentials go through a router
// that selects the inference provider from a "target:provider" model suffix.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jzx17/gofallback/pkg/pipeline"
	"github.com/jzx17/gofallback/pkg/types"
)

var _ pipeline.Invoker[*ChatRequest, *ChatResponse] = (*Client)(nil)

const (
	// maxErrorBody bounds how much of an error response ends up in messages
	maxErrorBody = 512

	// maxResponseBody bounds how much of a response is read
	maxResponseBody = 8 << 20
)

// Config configures a Client
type Config struct {
	// PrimaryProvider is the provider name served by PrimaryBaseURL
	PrimaryProvider string

	// PrimaryBaseURL is the base URL for primary credentials
	PrimaryBaseURL string

	// SecondaryBaseURL is the router base URL for secondary credentials
	SecondaryBaseURL string

	// Timeout bounds a single call, zero means no per-call timeout
	Timeout time.Duration

	// RequestsPerSecond enables a client-side limiter per credential when positive
	RequestsPerSecond float64

	// Burst is the limiter burst, at least 1
	Burst int

	// HTTPClient defaults to a plain http.Client
	HTTPClient *http.Client

	// Logger defaults to a no-op logger
	Logger *zap.Logger

	// Clock resolves HTTP-date Retry-After values
	Clock types.Clock
}

// Client invokes chat completions for attempt nodes
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	clock      types.Clock

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a client
func New(config Config) (*Client, error) {
	if config.PrimaryProvider == "" {
		return nil, fmt.Errorf("primary provider is required")
	}
	if config.PrimaryBaseURL == "" || config.SecondaryBaseURL == "" {
		return nil, fmt.Errorf("primary and secondary base URLs are required")
	}
	if config.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %v", config.Timeout)
	}

	c := &Client{
		config:     config,
		httpClient: config.HTTPClient,
		logger:     config.Logger,
		clock:      config.Clock,
		limiters:   make(map[string]*rate.Limiter),
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = types.NewRealClock()
	}
	if c.config.Burst < 1 {
		c.config.Burst = 1
	}

	return c, nil
}

// Model returns the model name sent for target. Primary credentials use the
// bare target; secondary credentials address the router as "target:provider".
func (c *Client) Model(target, provider string, class types.CredentialClass) string {
	if class == types.ClassPrimary {
		return target
	}
	return target + ":" + provider
}

func (c *Client) endpoint(class types.CredentialClass) string {
	base := c.config.SecondaryBaseURL
	if class == types.ClassPrimary {
		base = c.config.PrimaryBaseURL
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}

// limiter returns the credential's limiter, nil when limiting is off
func (c *Client) limiter(credential string) *rate.Limiter {
	if c.config.RequestsPerSecond <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[credential]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.config.RequestsPerSecond), c.config.Burst)
		c.limiters[credential] = l
	}
	return l
}

// Invoke performs one chat completion. Failures are *types.AdapterError
// marked transient or permanent, except a done ctx which is returned as is.
func (c *Client) Invoke(ctx context.Context, call types.Call[*ChatRequest]) (*ChatResponse, error) {
	if call.Payload == nil {
		return nil, types.Permanent(fmt.Errorf("%w: nil chat request", types.ErrInvalidInput), 0)
	}
	if call.Credential.Class == types.ClassPrimary && call.Provider != c.config.PrimaryProvider {
		return nil, types.Permanent(fmt.Errorf("%w: primary credential %s cannot serve provider %s",
			types.ErrInvalidInput, call.Credential.Name, call.Provider), 0)
	}

	if l := c.limiter(call.Credential.Name); l != nil {
		if err := l.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// the wait would outlast the deadline
			return nil, types.Transient(fmt.Errorf("rate limited: %w", err), 0)
		}
	}

	body, err := json.Marshal(c.wireRequest(call))
	if err != nil {
		return nil, types.Permanent(fmt.Errorf("failed to marshal request: %w", err), 0)
	}

	callCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	url := c.endpoint(call.Credential.Class)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.Permanent(fmt.Errorf("failed to create request: %w", err), 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.Credential.Secret)

	c.logger.Debug("chat completion request",
		zap.String("url", url),
		zap.String("model", c.Model(call.Target, call.Provider, call.Credential.Class)),
		zap.String("credential", call.Credential.Name),
		zap.Int("attempt", call.Attempt),
	)

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.Transient(fmt.Errorf("request timed out after %v: %w", c.config.Timeout, err), 0)
		}
		return nil, types.Transient(fmt.Errorf("request failed: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, types.Transient(fmt.Errorf("failed to read response body: %w", err), resp.StatusCode)
	}
	if len(data) > maxResponseBody {
		return nil, types.Transient(fmt.Errorf("response body exceeds %d bytes", maxResponseBody), resp.StatusCode)
	}

	c.logger.Debug("chat completion response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", c.clock.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp, data)
	}

	var out ChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, types.Transient(fmt.Errorf("failed to parse response: %w", err), resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return nil, types.Transient(errors.New("response has no choices"), resp.StatusCode)
	}

	return &out, nil
}

func (c *Client) wireRequest(call types.Call[*ChatRequest]) wireRequest {
	w := wireRequest{
		Model:     c.Model(call.Target, call.Provider, call.Credential.Class),
		Messages:  call.Payload.Messages,
		MaxTokens: call.Payload.MaxTokens,
	}
	if call.Payload.Temperature != nil {
		w.Temperature = *call.Payload.Temperature
	}
	return w
}

// statusError classifies a non-2xx response
func (c *Client) statusError(resp *http.Response, body []byte) error {
	err := errors.New(errorMessage(body))

	if !IsRetryableStatus(resp.StatusCode) {
		return types.Permanent(err, resp.StatusCode)
	}
	return &types.AdapterError{
		Err:        err,
		Retryable:  true,
		StatusCode: resp.StatusCode,
		RetryAfter: c.parseRetryAfter(resp.Header),
	}
}

// IsRetryableStatus reports whether a status code is worth retrying
func IsRetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// parseRetryAfter accepts delay-seconds and HTTP-date forms
func (c *Client) parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(c.clock.Now()); d > 0 {
			return d
		}
	}
	return 0
}

func errorMessage(body []byte) string {
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
