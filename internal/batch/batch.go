package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescrape/internal/crawler"
	"github.com/nao1215/sitescrape/internal/model"
)

// DefaultConcurrency is the number of runs executed at once when none is configured.
const DefaultConcurrency = 1

// CrawlFunc performs one crawl run. *crawler.Spider's Crawl method satisfies it.
type CrawlFunc func(ctx context.Context, startURL string) (*crawler.Result, error)

// Outcome is the result of one start URL.
type Outcome struct {
	// StartURL is the URL as given to Run.
	StartURL string

	// Result is the crawl result. It may be partial when Err is a
	// cancellation, and nil when the run never started.
	Result *crawler.Result

	// Err is the error returned by the run, if any.
	Err error
}

// Runner executes crawl runs concurrently.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because each run is already a self-contained unit of work and errgroup
// bounds the goroutines for us.
type Runner struct {
	crawl       CrawlFunc
	concurrency int
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets a custom logger for batch processing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner that performs each run with crawl.
func NewRunner(crawl CrawlFunc, opts ...Option) *Runner {
	r := &Runner{
		crawl:       crawl,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run crawls every start URL and returns one Outcome per URL, in input order.
//
// A failing run does not stop the others; its error is kept in its Outcome.
// When ctx is cancelled, runs that have not started yet get ctx.Err() as
// their error and Run returns ctx.Err() alongside the outcomes collected so far.
func (r *Runner) Run(ctx context.Context, startURLs []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(startURLs))

	err := r.RunWithCallback(ctx, startURLs, func(o Outcome, index int) {
		outcomes[index] = o
	})

	return outcomes, err
}

// RunWithCallback crawls every start URL and calls fn for each finished run
// with the index of its URL. fn is called from the goroutine that performed
// the run, so it must be safe for concurrent use unless concurrency is 1.
func (r *Runner) RunWithCallback(ctx context.Context, startURLs []string, fn func(o Outcome, index int)) error {
	r.logger.Info("starting batch",
		"total", len(startURLs),
		"concurrency", r.concurrency,
	)
	started := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, startURL := range startURLs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fn(Outcome{StartURL: startURL, Err: err}, i)
				return nil
			}

			r.logger.Info("crawling site",
				"url", startURL,
				"index", i+1,
				"total", len(startURLs),
			)

			result, err := r.crawl(ctx, startURL)
			if err != nil {
				r.logger.Warn("crawl ended with error",
					"url", startURL,
					"error", err,
				)
			}
			fn(Outcome{StartURL: startURL, Result: result, Err: err}, i)

			// Runs are independent; one failure must not cancel the rest.
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	r.logger.Info("batch complete",
		"total", len(startURLs),
		"elapsed", time.Since(started),
	)

	return ctx.Err()
}

// Records concatenates the records of all outcomes in input order.
func Records(outcomes []Outcome) []model.Record {
	var records []model.Record
	for _, o := range outcomes {
		if o.Result != nil {
			records = append(records, o.Result.Records...)
		}
	}
	return records
}
