package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrorKind classifies a failed call so callers can react differently to a
// rejection, a timeout and a dead socket.
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindRejected   ErrorKind = "target_rejected"
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindConnection ErrorKind = "connection_error"
	ErrorKindUnknown    ErrorKind = "unknown_error"
)

// Result is the outcome of Send after all attempts.
type Result struct {
	OK        bool
	Status    int
	Body      string
	Attempts  int
	ErrorKind ErrorKind
	Duration  time.Duration
	FullURL   string
}

// Attempt describes a single try for the reporter.
type Attempt struct {
	URL      string
	Number   int
	Final    bool
	Status   int
	Kind     ErrorKind
	Err      error
	Duration time.Duration
}

// AttemptReporter receives one structured event per attempt. The retry
// algorithm itself stays free of observability side effects.
type AttemptReporter interface {
	ReportAttempt(ctx context.Context, a Attempt)
}

// NopReporter discards attempt events.
type NopReporter struct{}

func (NopReporter) ReportAttempt(context.Context, Attempt) {}

// Config bounds the client. MaxAttempts times MaxDelay plus the per-attempt
// timeouts must stay well under the inbound caller's own request timeout: a
// synchronous sender is waiting on us, so retries must terminate, never chain.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
	DialTimeout    time.Duration
	IdleTimeout    time.Duration
	MaxIdleConns   int
	MaxBodyBytes   int64
}

// DefaultConfig keeps the whole call (two attempts, one delay) around five
// seconds plus one request timeout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    2,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		RequestTimeout: 10 * time.Second,
		DialTimeout:    5 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxIdleConns:   20,
		MaxBodyBytes:   4096,
	}
}

// Client executes outbound tracker calls. Attempt 1 goes through a shared
// keep-alive pool for latency; later attempts use a fresh single-use
// connection, because a pooled socket that died server-side (proxy idle
// timeout, NAT expiry) keeps failing even after the server recovers. A
// connection-level failure on the pooled path also tears the pool down so the
// next call rebuilds it.
type Client struct {
	cfg      Config
	reporter AttemptReporter
	log      *zap.Logger

	mu     sync.Mutex
	pooled *http.Client
}

func New(cfg Config, reporter AttemptReporter, log *zap.Logger) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Client{cfg: cfg, reporter: reporter, log: log}
}

func (c *Client) pooledClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pooled == nil {
		c.pooled = &http.Client{
			Timeout: c.cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   c.cfg.DialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        c.cfg.MaxIdleConns,
				MaxIdleConnsPerHost: c.cfg.MaxIdleConns,
				IdleConnTimeout:     c.cfg.IdleTimeout,
			},
		}
	}
	return c.pooled
}

// dropPooled poisons the pool; the next call lazily rebuilds it.
func (c *Client) dropPooled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pooled != nil {
		if t, ok := c.pooled.Transport.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
		c.pooled = nil
	}
}

func (c *Client) freshClient() *http.Client {
	return &http.Client{
		Timeout: c.cfg.RequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: c.cfg.DialTimeout,
			}).DialContext,
			DisableKeepAlives: true,
		},
	}
}

// Send performs a GET with URL-encoded params, retrying up to the configured
// cap with a delay scaled by attempt number and bounded above.
func (c *Client) Send(ctx context.Context, rawURL string, params url.Values) Result {
	start := time.Now()

	fullURL := rawURL
	if len(params) > 0 {
		fullURL = rawURL + "?" + params.Encode()
	}

	result := Result{FullURL: fullURL, ErrorKind: ErrorKindUnknown}

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		client := c.pooledClient()
		fresh := false
		if attempt > 1 {
			client = c.freshClient()
			fresh = true
		}

		status, body, kind, err := c.do(ctx, client, fullURL)

		if fresh {
			if t, ok := client.Transport.(*http.Transport); ok {
				t.CloseIdleConnections()
			}
		} else if kind == ErrorKindConnection {
			c.dropPooled()
		}

		result.Attempts = attempt
		result.Status = status
		result.Body = body
		result.ErrorKind = kind
		result.Duration = time.Since(start)

		c.reporter.ReportAttempt(ctx, Attempt{
			URL:      fullURL,
			Number:   attempt,
			Final:    kind == ErrorKindNone || attempt == c.cfg.MaxAttempts,
			Status:   status,
			Kind:     kind,
			Err:      err,
			Duration: result.Duration,
		})

		if kind == ErrorKindNone {
			result.OK = true
			return result
		}

		if attempt < c.cfg.MaxAttempts {
			delay := c.cfg.BaseDelay * time.Duration(attempt)
			if delay > c.cfg.MaxDelay {
				delay = c.cfg.MaxDelay
			}
			select {
			case <-ctx.Done():
				result.ErrorKind = ErrorKindTimeout
				result.Duration = time.Since(start)
				return result
			case <-time.After(delay):
			}
		}
	}

	return result
}

func (c *Client) do(ctx context.Context, client *http.Client, fullURL string) (int, string, ErrorKind, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, "", ErrorKindUnknown, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err.Error(), classifyError(err), err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	body := string(raw)
	if readErr != nil {
		return resp.StatusCode, body, ErrorKindConnection, readErr
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, body, ErrorKindRejected,
			fmt.Errorf("target rejected with HTTP %d", resp.StatusCode)
	}

	return resp.StatusCode, body, ErrorKindNone, nil
}

func classifyError(err error) ErrorKind {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorKindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return ErrorKindConnection
		}
		if errors.Is(urlErr.Err, io.EOF) || errors.Is(urlErr.Err, io.ErrUnexpectedEOF) {
			return ErrorKindConnection
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorKindConnection
	}
	return ErrorKindUnknown
}

// Close drains the pooled transport. Called once on process shutdown.
func (c *Client) Close() {
	c.dropPooled()
}
