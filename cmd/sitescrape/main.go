// Package main provides the entry point for the sitescrape CLI.
//
// sitescrape is a polite breadth-first web scraper. It crawls a site from a
// start URL, extracts fields with CSS selectors from every page it visits,
// and writes one record per page as CSV, JSON Lines or Markdown.
//
// Usage:
//
//	sitescrape crawl <start-url>
//	sitescrape crawl -p 20 -o pages.jsonl https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for sitescrape.
func main() {
	Execute()
}
