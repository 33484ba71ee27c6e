// Package backend is the typed gateway to the external learning backend. It is
// the only place that knows backend paths, payload shapes and status codes.
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

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/codelab-portal/internal/observability"
)

// CorrelationHeader carries the portal request id to the backend.
const CorrelationHeader = "X-Correlation-ID"

const maxResponseBytes = 8 << 20

// Session supplies the bearer token for backend calls and is invalidated when
// the backend answers 401.
type Session interface {
	Token() string
	Invalidate(ctx context.Context) error
}

// Client calls the learning backend.
type Client struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its transport is wrapped
// for tracing.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		transport := client.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		wrapped := *client
		wrapped.Transport = otelhttp.NewTransport(transport)
		c.client = &wrapped
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "backend_client").Logger()
	}
}

// NewClient returns a client for the backend rooted at endpoint.
func NewClient(endpoint string, options ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zerolog.Nop(),
		tracer: otel.Tracer("github.com/noah-isme/codelab-portal/internal/backend"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type correlationKey struct{}

// WithCorrelationID returns a context whose backend calls carry id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom returns the correlation id bound by WithCorrelationID.
func CorrelationIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(correlationKey{}).(string); ok {
		return value
	}
	return ""
}

func (c *Client) getURL(path string, args ...any) string {
	return c.endpoint + fmt.Sprintf(path, args...)
}

func withQuery(rawURL string, values url.Values) string {
	if len(values) == 0 {
		return rawURL
	}
	return rawURL + "?" + values.Encode()
}

func jsonBody(payload any) (io.Reader, string, error) {
	if payload == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

// call sends a request and decodes a 2xx JSON body into respData when given.
func (c *Client) call(ctx context.Context, sess Session, operation, method, target string, payload, respData any) error {
	body, contentType, err := jsonBody(payload)
	if err != nil {
		return err
	}
	raw, err := c.send(ctx, sess, operation, method, target, body, contentType)
	if err != nil {
		return err
	}
	return decode(raw, respData)
}

func decode(raw []byte, respData any) error {
	if respData == nil || len(bytes.TrimSpace(raw)) == 0 {
		if respData != nil {
			return fmt.Errorf("%w: empty body", ErrMalformedResponse)
		}
		return nil
	}
	if err := json.Unmarshal(raw, respData); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// send performs one request and returns the raw 2xx body. Non-2xx responses are
// mapped onto the package error taxonomy; a 401 invalidates sess.
func (c *Client) send(ctx context.Context, sess Session, operation, method, target string, body io.Reader, contentType string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+operation, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.operation", operation),
	))
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		observability.BackendRequests().WithLabelValues(operation, outcome).Inc()
		observability.BackendLatency().WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sess != nil {
		if token := sess.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if id := CorrelationIDFrom(ctx); id != "" {
		req.Header.Set(CorrelationHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		outcome = "network_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.logger.Warn().Err(err).Str("operation", operation).Msg("backend request failed")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		outcome = "network_error"
		span.RecordError(err)
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		outcome = "ok"
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized:
		outcome = "unauthorized"
		span.SetStatus(codes.Error, "unauthorized")
		if sess != nil {
			if invalidateErr := sess.Invalidate(ctx); invalidateErr != nil {
				c.logger.Warn().Err(invalidateErr).Str("operation", operation).Msg("failed to invalidate session")
			}
		}
		return nil, ErrUnauthorized
	default:
		outcome = "rejected"
		rejection := newRejection(resp.StatusCode, raw)
		span.SetStatus(codes.Error, rejection.Error())
		c.logger.Debug().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("message", rejection.Message).
			Msg("backend rejected request")
		return nil, rejection
	}
}

// IsAuthFailure reports whether err means the caller's session is no longer valid.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
