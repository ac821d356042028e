// Package fetcher retrieves pages over HTTP on behalf of the crawler.
//
// Each Fetch call first waits for the politeness delay plus a uniform random
// jitter in [0, 1s), then issues a single GET with a bounded timeout. Any
// transport error, timeout or non-2xx status becomes a *FetchError; nothing is
// retried. On success the body is decoded to UTF-8 and parsed into a
// goquery document that the extractor can query with CSS selectors.
//
// # Politeness
//
// The jitter avoids a fixed, detectable request cadence and spreads load
// against the target host. An optional token-bucket limiter
// (golang.org/x/time/rate) caps the request rate when several crawl workers
// share one fetcher.
//
// # Usage
//
//	f := fetcher.New(fetcher.WithDelay(time.Second))
//	page, err := f.Fetch(ctx, "https://example.com/")
package fetcher
