// Package upstream holds the HTTP clients for the claims backend and the
// discharge plan generator.
package upstream

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/telemetry"
)

const maxBodyBytes = 4 << 20

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/preauth-service/internal/upstream")

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches a key that is sent as the Idempotency-Key
// header on every POST made with the returned context.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

// Client performs JSON requests against one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
}

// NewClient returns a client for baseURL. The timeout bounds every call.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger, metrics *telemetry.Metrics) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// call sends body (if non-nil) and decodes a 2xx response into out (if non-nil).
// endpoint is the low-cardinality name used for spans, metrics and errors.
func (c *Client) call(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.Start(ctx, "upstream."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "encode request")
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		if key := idempotencyKeyFrom(ctx); key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", c.baseURL+path),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.metrics.RecordUpstreamCall(ctx, endpoint, 0, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("upstream call failed")
		return fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamCall(ctx, endpoint, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read response")
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Int("status", resp.StatusCode).
		Float64("latency_ms", elapsed).
		Msg("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return &StatusError{
			Endpoint:   endpoint,
			Method:     method,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode response")
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
