package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single GET, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the fixed part of the politeness delay.
	DefaultDelay = 1 * time.Second

	// DefaultUserAgent is sent when no User-Agent is configured. It is a
	// realistic desktop browser string.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// maxJitter is the exclusive upper bound of the random delay component.
	maxJitter = time.Second
)

// Page is a successfully fetched and parsed document.
type Page struct {
	// URL is the address that was requested.
	URL string

	// FinalURL is the address after redirects.
	FinalURL string

	// StatusCode is the HTTP response status.
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string

	// Document is the parsed page, queryable with CSS selectors.
	Document *goquery.Document

	// Duration is the time spent on the network call, excluding the delay.
	Duration time.Duration
}

// Fetcher fetches one URL and returns a parsed page or a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPFetcher is the net/http implementation of Fetcher.
// It is safe for concurrent use.
type HTTPFetcher struct {
	// client performs the requests. Its own Timeout is not used; each
	// request carries a context deadline instead.
	client *http.Client

	// delay is the fixed part of the pre-request pause.
	delay time.Duration

	// jitter returns the random part of the pause.
	jitter func() time.Duration

	// sleep waits for the pause. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// limiter caps the request rate. Nil means unlimited.
	limiter *rate.Limiter

	// timeout bounds each request.
	timeout time.Duration

	// userAgent is the User-Agent header value.
	userAgent string

	// headers are extra request headers.
	headers map[string]string

	// cookie is a raw Cookie header value.
	cookie string

	// maxBodySize limits the bytes read from a response.
	maxBodySize int64

	logger *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient sets the HTTP client, e.g. one routed through a SOCKS5 proxy.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithDelay sets the fixed politeness delay. Negative values are treated as zero.
func WithDelay(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.delay = max(d, 0)
	}
}

// WithJitter replaces the random delay source.
func WithJitter(jitter func() time.Duration) Option {
	return func(f *HTTPFetcher) {
		if jitter != nil {
			f.jitter = jitter
		}
	}
}

// WithSleepFunc replaces the function used to wait before each request.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *HTTPFetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithRateLimit caps requests per second with the given burst.
// A non-positive rps disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *HTTPFetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header. An empty string keeps the default.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders sets extra request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithCookie sets a raw Cookie header, e.g. "session=abc; lang=en".
func WithCookie(cookie string) Option {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithMaxBodySize sets the maximum number of body bytes to read.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// New creates an HTTPFetcher with default settings.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{},
		delay:       DefaultDelay,
		jitter:      uniformJitter,
		sleep:       sleepContext,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Fetch waits for the politeness delay, then GETs pageURL and parses the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	wait := f.delay + f.jitter()
	if err := f.sleep(ctx, wait); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: pageURL, Err: err}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	f.logger.Debug("fetching page", "url", pageURL, "wait", wait)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: ErrBadStatus}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse body: %w", err)}
	}

	return &Page{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Document:    doc,
		Duration:    time.Since(start),
	}, nil
}

// uniformJitter draws uniformly from [0, maxJitter).
func uniformJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(maxJitter))) //nolint:gosec // timing jitter, not security
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
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
