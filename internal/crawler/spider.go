package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescrape/internal/extractor"
	"github.com/nao1215/sitescrape/internal/fetcher"
	"github.com/nao1215/sitescrape/internal/model"
)

// DefaultMaxPages is the page budget used when none is configured.
const DefaultMaxPages = 5

// Spider drives the breadth-first crawl of one site.
// It pulls URLs from the frontier, fetches them, extracts a record per page
// and enqueues newly discovered links until the page budget is spent or the
// frontier runs dry.
//
// A Spider holds only configuration; every Crawl call gets its own frontier,
// so one Spider can serve several start URLs concurrently.
type Spider struct {
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor

	// maxPages is the page budget: the cap on visited URLs per run.
	maxPages int

	// sameDomain restricts link discovery to the start URL's host.
	sameDomain bool

	// workers is the number of concurrent fetches. 1 is the sequential baseline.
	workers int

	// normalize decides URL equality for dedup.
	normalize model.NormalizePolicy

	// maxDepth limits how far from the start page links are followed.
	// Negative means unlimited.
	maxDepth int

	// ignorePatterns are URL path globs that are never crawled.
	ignorePatterns []string

	// followPatterns, when set, are the only URL path globs crawled.
	followPatterns []string

	observer Observer
	logger   *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget. Non-positive values keep the default.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithSameDomain enables or disables same-host link filtering.
func WithSameDomain(same bool) SpiderOption {
	return func(s *Spider) {
		s.sameDomain = same
	}
}

// WithWorkers sets the number of concurrent fetches.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithNormalize sets the URL normalization policy.
func WithNormalize(policy model.NormalizePolicy) SpiderOption {
	return func(s *Spider) {
		s.normalize = policy
	}
}

// WithMaxDepth sets the maximum link depth from the start page.
// 0 = only the start page, 1 = start page plus its links, negative = unlimited.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithObserver sets the crawl event observer.
func WithObserver(o Observer) SpiderOption {
	return func(s *Spider) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches with f and extracts with ex.
//
// Design decision: We take the fetcher as an interface because:
//  1. Politeness delay and transport are the fetcher's concern
//  2. Tests can drive the state machine with an in-memory link graph
func NewSpider(f fetcher.Fetcher, ex *extractor.Extractor, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:    f,
		extractor:  ex,
		maxPages:   DefaultMaxPages,
		sameDomain: true,
		workers:    1,
		normalize:  model.NormalizeNone,
		maxDepth:   -1,
		observer:   nopObserver{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Result is the outcome of one crawl run.
type Result struct {
	// StartURL is the start URL as fetched.
	StartURL string

	// Records holds one record per successfully fetched page, in visit order.
	Records []model.Record

	// Visited lists every URL taken from the frontier, in visit order,
	// whether its fetch succeeded or not.
	Visited []string

	// Pending lists the URLs still in the frontier when the run ended.
	// They are reported, never crawled.
	Pending []string

	// State is the controller state when Crawl returned; always StateDone.
	State State

	// Fetched and Failed count fetch outcomes.
	Fetched int
	Failed  int

	// ExtractionErrors counts fields degraded by a selector error.
	ExtractionErrors int

	// LinksEnqueued counts URLs added to the frontier after the start URL.
	LinksEnqueued int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// visitOutcome is what one processed frontier item contributes to the result.
type visitOutcome struct {
	seq       int
	record    *model.Record
	failed    bool
	fieldErrs int
	enqueued  int
}

// Crawl runs the crawl from startURL until the budget is spent or the
// frontier is empty. Fetch and extraction failures never abort the run.
//
// The returned error is non-nil only for an invalid start URL or when ctx is
// cancelled; in the latter case the partial result is returned as well.
// Cancellation is observed between pages: a fetch that has started runs to
// completion so that the visited set and frontier stay consistent.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*Result, error) {
	start, err := parseStartURL(startURL)
	if err != nil {
		return nil, err
	}

	startNorm := s.normalize.Target(start.String())
	scope := ""
	if s.sameDomain {
		scope = start.Host
	}

	result := &Result{
		StartURL:  startNorm,
		State:     StateRunning,
		StartedAt: time.Now(),
	}

	fr := newFrontier(startNorm, s.maxPages, s.normalize.Normalize)
	release := fr.stopOnCancel(ctx)
	defer release()

	s.logger.Info("crawl started",
		"url", startNorm,
		"max_pages", s.maxPages,
		"same_domain", s.sameDomain,
		"workers", s.workers)

	var (
		mu       sync.Mutex
		outcomes []visitOutcome
	)

	var g errgroup.Group
	for range s.workers {
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				item, ok := fr.next()
				if !ok {
					return nil
				}

				outcome := s.visit(ctx, fr, item, scope)
				fr.done()
				s.observer.FrontierSize(fr.size())

				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return an error

	slices.SortFunc(outcomes, func(a, b visitOutcome) int {
		return a.seq - b.seq
	})
	for _, o := range outcomes {
		if o.record != nil {
			result.Records = append(result.Records, *o.record)
		}
		if o.failed {
			result.Failed++
		} else {
			result.Fetched++
		}
		result.ExtractionErrors += o.fieldErrs
		result.LinksEnqueued += o.enqueued
	}

	result.Visited = fr.visitedOrder()
	result.Pending = fr.pending()
	result.State = fr.state()
	result.FinishedAt = time.Now()

	s.logger.Info("crawl finished",
		"url", startNorm,
		"visited", len(result.Visited),
		"records", len(result.Records),
		"failed", result.Failed,
		"pending", len(result.Pending),
		"duration", result.Duration())

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// visit processes one frontier item: fetch, extract, enqueue links.
func (s *Spider) visit(ctx context.Context, fr *frontier, item queueItem, scope string) visitOutcome {
	outcome := visitOutcome{seq: item.seq}

	s.logger.Debug("crawling", "url", item.url, "depth", item.depth)

	// The fetch is not interrupted by cancellation; the next pop is.
	page, err := s.fetcher.Fetch(context.WithoutCancel(ctx), item.url)
	if err != nil {
		s.logger.Warn("failed to fetch page", "url", item.url, "error", err)
		s.observer.PageFailed(item.url, err)
		outcome.failed = true
		return outcome
	}
	s.observer.PageFetched(item.url, page.Duration)

	fields, fieldErrs := s.extractor.Fields(page.Document)
	for _, fe := range fieldErrs {
		s.logger.Warn("failed to extract field", "url", item.url, "error", fe)
		var extractErr *extractor.ExtractionError
		if errors.As(fe, &extractErr) {
			s.observer.FieldFailed(extractErr.Field)
		}
	}
	outcome.fieldErrs = len(fieldErrs)

	record := model.NewRecord(item.url, fields)
	outcome.record = &record

	if !s.withinDepth(item.depth) {
		return outcome
	}

	if page.FinalURL != "" && page.FinalURL != item.url {
		s.logger.Debug("page redirected", "url", item.url, "final_url", page.FinalURL)
	}

	// Links resolve against the requested URL, not the redirect target,
	// so a redirect to another host does not push every link out of scope.
	base, err := url.Parse(item.url)
	if err != nil {
		return outcome
	}

	for _, link := range extractor.Links(page.Document, base, scope) {
		link = s.normalize.Target(link)
		if !s.shouldCrawl(link) {
			continue
		}
		if fr.push(link, item.depth+1) {
			outcome.enqueued++
		}
	}
	s.observer.LinksEnqueued(outcome.enqueued)

	return outcome
}

// parseStartURL validates the start URL. A bare host such as "example.com"
// is accepted and crawled over http.
func parseStartURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidStartURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidStartURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, ErrInvalidStartURL
	}

	return u, nil
}
