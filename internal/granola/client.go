// Package granola is a small client for the Granola notes API.
package granola

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

const (
	DefaultBaseURL  = "https://api.granola.ai"
	DefaultPageSize = 100
	userAgent       = "granola-sync/1.0"
	maxErrorBody    = 512
)

// DefaultCDNHosts are attachment hosts fetched without credentials.
var DefaultCDNHosts = []string{"cloudfront.net", "amazonaws.com", "googleusercontent.com"}

// HTTPDoer sends HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	CredentialsPath   string
	PageSize          int
	MaxDocuments      int
	RequestsPerSecond float64
	CDNHosts          []string
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("granola: %s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client talks to the Granola API. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   HTTPDoer
	bucket *ratelimit.Bucket
	paths  func() []string
	logger *slog.Logger

	mu    sync.Mutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger for skipped documents. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client. A nil doer uses an http.Client with a 30s timeout.
func New(cfg Config, doer HTTPDoer, opts ...Option) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.CDNHosts == nil {
		cfg.CDNHosts = DefaultCDNHosts
	}
	c := &Client{cfg: cfg, http: doer, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int64(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.bucket = ratelimit.NewBucketWithRate(cfg.RequestsPerSecond, burst)
	}
	c.paths = func() []string { return CredentialPaths(cfg.CredentialsPath) }
	return c
}

// Token returns the cached access token, loading it on first use.
func (c *Client) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	tok, err := LoadToken(c.paths())
	if err != nil {
		return "", err
	}
	c.token = tok
	return tok, nil
}

// wait blocks until the rate limiter admits one request.
func (c *Client) wait(ctx context.Context) error {
	if c.bucket == nil {
		return nil
	}
	d := c.bucket.Take(1)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// post sends a JSON body to an API path and decodes the JSON reply into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("granola: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("granola: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("granola: decode %s: %w", path, err)
	}
	return nil
}

// do applies rate limiting and common headers, and turns non-2xx replies
// into a StatusError.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("granola: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method: req.Method,
			URL:    req.URL.Redacted(),
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}
