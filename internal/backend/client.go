// Package backend implements the authenticated HTTP client that talks to
// the drone fleet API (C1). It performs exactly one attempt per call;
// retry/backoff composition is the batch executor's responsibility so
// that the idempotency rule (spec §9) is enforced in one place.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the backend client from backend.* settings (spec §6).
type Config struct {
	BaseURL    string
	APIKey     string
	TimeoutS   int
	HTTPClient *http.Client
	Telemetry  *telemetry.Settings
}

// Client is a typed, single-base-URL HTTP client with bearer-auth
// injection, grounded on the teacher's internal HTTP client wrapper.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

// NewClient builds a Client from cfg, defaulting the total timeout to 30s.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{http: httpClient, baseURL: cfg.BaseURL, apiKey: cfg.APIKey, tracer: telemetry.GetTracer(cfg.Telemetry)}
}

// Request is one outbound backend call.
type Request struct {
	Method string
	Path   string
	Body   interface{}
}

// Response is the decoded result of a backend call before status mapping.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do performs a single HTTP attempt with a deadline derived from ctx
// (callers, i.e. the executor, attach the per-command timeout to ctx).
// It does not retry and does not interpret the status code — Call wraps
// this with taxonomy mapping for normal use.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err // classified by Call via classifyTransportError (deadline -> timed_out, cancel -> cancelled, else backend_unavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// Call performs req and maps the outcome onto the gateway's error
// taxonomy, decoding a successful JSON body into result when non-nil.
func (c *Client) Call(ctx context.Context, req Request, result interface{}) error {
	_, err := telemetry.RecordSpan(ctx, c.tracer, telemetry.SpanOptions{
		Name: "backend.call",
		Attributes: []attribute.KeyValue{
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.Path),
		},
	}, func(ctx context.Context, span trace.Span) (struct{}, error) {
		resp, err := c.Do(ctx, req)
		if err != nil {
			return struct{}{}, classifyTransportError(err)
		}
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

		if taxErr := classifyStatus(resp.StatusCode, resp.Headers.Get("Retry-After")); taxErr != nil {
			taxErr.Message = fmt.Sprintf("%s: %s", taxErr.Message, string(resp.Body))
			return struct{}{}, taxErr
		}

		if result != nil && len(resp.Body) > 0 {
			if err := json.Unmarshal(resp.Body, result); err != nil {
				return struct{}{}, fmt.Errorf("decode backend response: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}
