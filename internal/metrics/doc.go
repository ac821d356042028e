// Package metrics exposes crawl statistics as Prometheus metrics.
//
// A Recorder implements crawler.Observer, so passing it to
// crawler.WithObserver is enough to collect page outcomes, fetch latency,
// frontier growth and selector failures. The command line tool is a
// short-lived process, so instead of serving /metrics it writes the
// registry to a node-exporter textfile once the crawl finished.
//
// # Metrics
//
//	sitescrape_pages_total{result="ok"|"failed"}
//	sitescrape_fetch_failures_total{reason="status"|"timeout"|"transport"}
//	sitescrape_fetch_duration_seconds
//	sitescrape_links_enqueued_total
//	sitescrape_extraction_errors_total{field}
//	sitescrape_frontier_size
package metrics
