// Package httpds is a remote input source: it downloads the crash-record
// CSV over HTTP(S) with retry and backoff, so -input_csv may name a URL such
// as a city open-data export.
//
// Transient failures (transport errors, 429, 5xx) are retried with
// exponential backoff; any other non-2xx status is final.
package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"crashwrangle/internal/datasource/file"
)

// Config configures a Source. Zero values get defaults:
//   - Timeout:        5m
//   - MaxRetries:     3
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type Config struct {
	// Timeout bounds a whole download, body included.
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first; negative means 0.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Header is sent with every request, e.g. an X-App-Token.
	Header http.Header

	// Transport overrides http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
}

// Source opens a URL for reading.
type Source struct {
	url            string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	header         http.Header

	// sleep waits between attempts; tests swap it out.
	sleep func(ctx context.Context, d time.Duration) error
}

// IsURL reports whether s names an http or https resource.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NewSource returns a Source for rawURL.
func NewSource(rawURL string, cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Source{
		url:            rawURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		header:         cfg.Header.Clone(),
		sleep:          sleepWithContext,
	}
}

// Path returns the URL, so load errors name it.
func (s *Source) Path() string { return s.url }

// Open downloads the resource and returns its body, decompressed when the
// URL path ends in .gz, .zst or .xz. The caller must close it.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	codec := ""
	if u, err := url.Parse(s.url); err == nil {
		codec = file.Compression(u.Path)
	}
	rc, err := file.Decompress(resp.Body, codec)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("httpds: %s: %w", s.url, err)
	}
	return rc, nil
}

func (s *Source) get(ctx context.Context) (*http.Response, error) {
	attempts := s.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		for k, vs := range s.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := s.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return resp, nil
		case isRetryableStatus(resp.StatusCode):
			resp.Body.Close()
			lastErr = fmt.Errorf("httpds: retryable status %d from %s", resp.StatusCode, s.url)
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("httpds: GET %s: status %d", s.url, resp.StatusCode)
		}

		if attempt+1 >= attempts {
			break
		}
		if err := s.sleep(ctx, backoffDuration(s.initialBackoff, attempt, s.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("httpds: GET %s failed after %d attempts: %w", s.url, attempts, lastErr)
}

// isRetryableStatus treats 429 and 5xx as transient.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns initial * 2^attempt clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		return min(initial, max)
	}
	d := initial << attempt
	if d <= 0 || d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
