// Package crawler provides the breadth-first crawl controller.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which coordinates
// the crawling process. Per run it owns a frontier: the visited set and the
// FIFO queue of pending URLs, guarded together so that the dedup invariant
// is enforced at a single mutation boundary.
//
// The controller is a small explicit state machine:
//
//	RUNNING  while the frontier is non-empty and fewer than maxPages URLs are visited
//	DONE     otherwise (frontier exhausted or budget spent)
//
// Each step pops the head of the frontier, marks it visited, fetches it,
// extracts one record, and appends newly discovered in-scope links to the
// tail. A failed fetch is skipped: no record, no links, no retry.
//
// # Components
//
//   - Spider: configuration plus the Crawl loop
//   - frontier: visited set and FIFO queue of one run
//   - Observer: hook for metrics
//
// # Concurrency
//
// With WithWorkers(1), the default, exactly one fetch is outstanding at a
// time. With more workers, pops and check-then-enqueue stay atomic under
// the frontier lock and records are returned in visit order.
//
// # Usage
//
//	f := fetcher.New(fetcher.WithDelay(time.Second))
//	ex := extractor.New(model.DefaultSelectors())
//	spider := crawler.NewSpider(f, ex, crawler.WithMaxPages(10))
//	result, err := spider.Crawl(ctx, "https://example.com/")
package crawler
