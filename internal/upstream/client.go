package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JakeFAU/wi-election-guide/internal/metrics"
	"github.com/JakeFAU/wi-election-guide/internal/policy/ratelimit"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d", e.Service, e.StatusCode)
}

// Options configures a Client.
type Options struct {
	Service        string
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	RateLimitRPS   float64
	RateBurst      int
	UserAgent      string
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs outbound GET requests for one named service.
type Client struct {
	service   string
	http      *http.Client
	limiter   *ratelimit.Limiter
	retry     *RetryPolicy
	userAgent string
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// New builds a Client from opts.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	service := opts.Service
	if service == "" {
		service = "upstream"
	}
	return &Client{
		service:   service,
		http:      httpClient,
		limiter:   ratelimit.New(ratelimit.Config{Service: service, DefaultRPS: opts.RateLimitRPS, DefaultBurst: opts.RateBurst}),
		retry:     NewRetryPolicy(opts.MaxRetries, opts.BackoffInitial, opts.BackoffMax),
		userAgent: opts.UserAgent,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Get issues a GET request and returns the response whatever its status.
// Transient failures (transport errors, 429, 5xx) are retried.
// logURL is used in logs in place of rawURL so secrets in the query stay out of them.
func (c *Client) Get(ctx context.Context, rawURL, logURL string) (*Response, error) {
	var (
		resp *Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		if err = c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, eris.Wrap(err, "upstream: rate limit")
		}
		start := time.Now()
		resp, err = c.do(ctx, rawURL, logURL)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		metrics.ObserveUpstream(c.service, outcome(err, status), time.Since(start))

		if !c.retry.ShouldRetry(err, status, attempt) {
			break
		}
		wait := c.retry.Backoff(attempt)
		c.logger.Debug("retrying upstream request",
			zap.String("service", c.service),
			zap.String("url", logURL),
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		metrics.ObserveUpstreamRetry(c.service)
		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return nil, eris.Wrap(sleepErr, "upstream: backoff")
		}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "upstream: GET %s", logURL)
	}
	return resp, nil
}

// GetBody returns the body of a 2xx response or a *StatusError.
func (c *Client) GetBody(ctx context.Context, rawURL, logURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, logURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Service: c.service, StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 256)}
	}
	return resp.Body, nil
}

// GetJSON decodes the body of a 2xx response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL, logURL string, out any) error {
	body, err := c.GetBody(ctx, rawURL, logURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "upstream: decode %s response", c.service)
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL, logURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", redactURL(err, logURL))
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", redactURL(err, logURL))
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			c.logger.Debug("close upstream body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header.Clone(), Body: body}, nil
}

// redactURL swaps the request URL carried by a *url.Error for logURL.
// Transport errors embed the full URL, query secrets included.
func redactURL(err error, logURL string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = logURL
	}
	return err
}

func outcome(err error, status int) string {
	switch {
	case err != nil:
		return "error"
	case status >= 200 && status <= 299:
		return "success"
	default:
		return fmt.Sprintf("status_%d", status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
