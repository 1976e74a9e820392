package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries a per-request correlation id
const RequestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("nanorest.transport")

// HTTP is the default Transport, backed by an *http.Client. Each call is a
// single attempt; retries are left to the caller.
type HTTP struct {
	client  *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an HTTP transport
type Option func(*HTTP)

// WithClient sets the underlying HTTP client
func WithClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithLogger sets the logger for request events
func WithLogger(logger *slog.Logger) Option {
	return func(h *HTTP) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records every request into m
func WithMetrics(m *Metrics) Option {
	return func(h *HTTP) {
		h.metrics = m
	}
}

// NewHTTP creates an HTTP transport using http.DefaultClient unless configured otherwise
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client: http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Do implements Transport.Do
func (h *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	target := AppendQuery(req.URL, req.Params)

	ctx, span := tracer.Start(ctx, "HTTP.Do",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", target),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := h.do(ctx, req, target)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		status = statusErr.StatusCode
	}
	h.metrics.observe(req.Method, status, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("request failed", "method", req.Method, "url", target, "status", status, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", status))
	h.logger.Debug("request completed", "method", req.Method, "url", target, "status", status, "duration", elapsed)
	return resp, nil
}

func (h *HTTP) do(ctx context.Context, req *Request, target string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     req.Method,
			URL:        target,
			StatusCode: httpResp.StatusCode,
			Body:       data,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       data,
		Header:     httpResp.Header,
	}, nil
}
