// Package batch crawls several start URLs with bounded concurrency.
//
// Every start URL is an independent crawl run with its own scope, frontier
// and page budget. The Runner only schedules runs; how a run is performed is
// supplied as a CrawlFunc, which lets the caller build a differently
// configured Spider per site.
//
// Results are returned in the order of the input URLs regardless of the
// order in which runs complete.
package batch
