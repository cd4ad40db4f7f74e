package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/internal/reqctx"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

const (
	// APIKeyHeader carries the shared secret on every request.
	APIKeyHeader = "X-API-Key"
	// RequestIDHeader correlates client and backend logs.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout              = 15 * time.Second
	defaultRetryInitialInterval = 200 * time.Millisecond
	defaultRetryMaxInterval     = 2 * time.Second
	maxErrorBodyBytes           = 4 << 10
)

// Client is the shared HTTP transport for every resource client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	maxRetries      uint64
	retryInitial    time.Duration
	retryMaxBackoff time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry configures retries of idempotent GET requests. maxRetries of 0 disables them.
func WithRetry(maxRetries uint64, initial, maxInterval time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if initial > 0 {
			c.retryInitial = initial
		}
		if maxInterval > 0 {
			c.retryMaxBackoff = maxInterval
		}
	}
}

// NewClient creates a backend client for baseURL authenticated with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: defaultTimeout},
		logger:          logger.Log,
		retryInitial:    defaultRetryInitialInterval,
		retryMaxBackoff: defaultRetryMaxInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("api")
	return c
}

// NewClientFromConfig builds a Client from the api config section.
func NewClientFromConfig(cfg config.APIConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClient(cfg.BaseURL, cfg.APIKey,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithLogger(log),
		WithRetry(cfg.MaxRetries, cfg.RetryInitialInterval, cfg.RetryMaxInterval),
	)
}

// BaseURL returns the normalised backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the backend answers an authenticated request.
func (c *Client) Ping(ctx context.Context) error {
	return c.send(ctx, "agents", http.MethodGet, "/api/agents", nil, nil)
}

// do runs one request. GETs are retried on transient failures, mutations never are.
func (c *Client) do(ctx context.Context, resource, method, path string, body, out interface{}) error {
	if method != http.MethodGet || c.maxRetries == 0 {
		return c.send(ctx, resource, method, path, body, out)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = c.retryMaxBackoff
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	notify := func(err error, d time.Duration) {
		observer.IncAPIRetry(resource)
		logger.FromContextOr(ctx, c.logger).Warn("Retrying backend request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
			zap.Duration("after", d),
		)
	}

	return backoff.RetryNotify(func() error {
		err := c.send(ctx, resource, method, path, body, out)
		if err == nil {
			return nil
		}
		if isTransientError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, notify)
}

func (c *Client) send(ctx context.Context, resource, method, path string, body, out interface{}) error {
	log := logger.FromContextOr(ctx, c.logger).With(zap.String("method", method), zap.String("path", path))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode %s %s: %w", apperrors.ErrRequest, method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build %s %s: %w", apperrors.ErrRequest, method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)
	requestID, err := reqctx.FromRequestIDContext(ctx)
	if err != nil {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observer.ObserveAPIRequest(resource, method, 0, time.Since(start))
		log.Warn("Backend request failed", zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", apperrors.ErrRequest, method, path, err)
	}
	defer resp.Body.Close()
	observer.ObserveAPIRequest(resource, method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		httpErr := &apperrors.HTTPError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Detail:     errorDetail(raw),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			log.Error("Authorization failed: invalid API key", zap.Int("status", resp.StatusCode))
		} else {
			log.Debug("Backend returned error status", zap.Int("status", resp.StatusCode), zap.String("detail", httpErr.Detail))
		}
		return httpErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", apperrors.ErrRequest, method, path, err)
	}
	log.Debug("Backend request completed",
		zap.Int("status", resp.StatusCode),
		zap.String("size", utils.ByteCountSI(len(raw))),
		zap.Duration("elapsed", time.Since(start)),
	)

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", apperrors.ErrRequest, method, path, err)
	}
	return nil
}

// errorDetail extracts a FastAPI style {"detail": ...} message, falling back to the raw body.
func errorDetail(raw []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return string(envelope.Detail)
	}
	return strings.TrimSpace(string(raw))
}

// isTransientError reports whether a failed request is worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{"connection refused", "connection reset", "broken pipe", "eof"} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
