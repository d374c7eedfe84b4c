// Package fetcher is the single point of outbound HTTP access. Every
// scrape goes through one Fetcher instance so the minimum inter-request
// delay holds across search, page and widget fetches alike.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMinDelay is the minimum delay between outbound requests.
	DefaultMinDelay = 500 * time.Millisecond

	// DefaultTimeout bounds a whole fetch including body read.
	DefaultTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// TransportError is returned for network failures and non-2xx responses.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher issues GET requests with a shared minimum delay between them.
// The limiter serializes the delay only, not the requests themselves.
// Construct one per process; tests construct their own isolated instances.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Fetcher enforcing minDelay between requests.
func New(minDelay time.Duration, timeout time.Duration) *Fetcher {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(minDelay), 1),
	}
}

// NewDefault creates a Fetcher with the default delay and timeout.
func NewDefault() *Fetcher {
	return New(DefaultMinDelay, DefaultTimeout)
}

// Fetch performs a GET and returns the raw response body. Non-2xx status
// and network failures come back as *TransportError. There are no retries;
// the caller decides whether to skip or abort.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return body, nil
}
