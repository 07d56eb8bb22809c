package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 4096

// ErrorParser extracts a human readable message from an error response body.
type ErrorParser func(status int, body []byte) string

// Request describes one call relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into out.
func (r *Response) Decode(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client performs paced, retried JSON calls against one service.
type Client struct {
	service    string
	baseURL    string
	http       *http.Client
	header     http.Header
	policy     RetryPolicy
	rateDelay  time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
	parseError ErrorParser
	throttled  func(*Response) bool
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithErrorParser sets the parser used to build validation error messages.
func WithErrorParser(p ErrorParser) Option {
	return func(c *Client) { c.parseError = p }
}

// WithThrottleCheck marks 2xx responses that carry a throttling error in their body. They
// are retried like a 429.
func WithThrottleCheck(fn func(*Response) bool) Option {
	return func(c *Client) { c.throttled = fn }
}

// WithSleep overrides how the client waits between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// New creates a client for service rooted at baseURL.
func New(service, baseURL string, cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
	}

	c := &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		header:  http.Header{},
		policy: RetryPolicy{
			MaxRetries:    cfg.MaxRetries,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      cfg.MaxDelay,
			BackoffFactor: 2,
		},
		rateDelay:  cfg.RateLimitDelay,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     zap.NewNop(),
		parseError: DefaultErrorParser,
		sleep:      sleepContext,
		now:        time.Now,
	}
	c.header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors and metrics.
func (c *Client) Service() string {
	return c.service
}

// JSON performs a call and decodes the response body into out.
func (c *Client) JSON(ctx context.Context, method, path string, query url.Values, body, out any) (*Response, error) {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Query: query, Body: body})
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(out); err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", c.service, method, path, err)
	}
	return resp, nil
}

// Do performs a call, retrying transport failures, gateway errors and throttling.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	op := req.Method + " " + req.Path

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", c.service, op, err)
		}
		payload = b
	}

	attempts := c.policy.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.attempt(ctx, req, payload)
		var delay time.Duration

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.observe("transport_error")
			lastErr = err
			delay = c.policy.NextDelay(attempt)

		case resp.StatusCode >= 200 && resp.StatusCode < 300 && c.throttled != nil && c.throttled(resp):
			c.observe("rate_limited")
			lastErr = domain.ErrRateLimited
			delay = retryAfter(resp.Header, c.rateDelay, c.now())

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.observe("ok")
			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			c.observe("auth")
			return nil, fmt.Errorf("%s %s: %w (status %d)", c.service, op, domain.ErrAuthentication, resp.StatusCode)

		case resp.StatusCode == http.StatusNotFound:
			c.observe("not_found")
			return nil, fmt.Errorf("%s %s: %w", c.service, op, domain.ErrNotFound)

		case resp.StatusCode == http.StatusTooManyRequests:
			c.observe("rate_limited")
			lastErr = domain.ErrRateLimited
			delay = retryAfter(resp.Header, c.rateDelay, c.now())

		case resp.StatusCode == http.StatusBadGateway ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout:
			c.observe("server_error")
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			delay = c.policy.NextDelay(attempt)

		case resp.StatusCode >= 500:
			c.observe("server_error")
			return nil, &domain.RemoteCallError{
				Service:   c.service,
				Operation: op,
				Attempts:  attempt,
				Err:       fmt.Errorf("status %d: %s", resp.StatusCode, c.parseError(resp.StatusCode, resp.Body)),
			}

		default:
			c.observe("client_error")
			return nil, &domain.ValidationError{
				Service: c.service,
				Status:  resp.StatusCode,
				Message: c.parseError(resp.StatusCode, resp.Body),
			}
		}

		if attempt == attempts {
			break
		}

		c.logger.Warn("Retrying remote call",
			zap.String("service", c.service),
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &domain.RemoteCallError{
		Service:   c.service,
		Operation: op,
		Attempts:  attempts,
		Err:       lastErr,
	}
}

func (c *Client) attempt(ctx context.Context, req Request, payload []byte) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vals := range c.header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vals := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (c *Client) observe(outcome string) {
	metrics.RemoteRequestsTotal.WithLabelValues(c.service, outcome).Inc()
}

// DefaultErrorParser looks for the usual message fields of a JSON error body and falls back
// to the raw body.
func DefaultErrorParser(status int, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "Message", "error", "errors", "Detail", "detail"} {
			v, ok := payload[key]
			if !ok {
				continue
			}
			switch val := v.(type) {
			case string:
				return val
			default:
				b, _ := json.Marshal(val)
				return string(b)
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}
