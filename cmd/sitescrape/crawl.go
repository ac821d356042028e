package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescrape/internal/batch"
	"github.com/nao1215/sitescrape/internal/config"
	"github.com/nao1215/sitescrape/internal/crawler"
	"github.com/nao1215/sitescrape/internal/database"
	"github.com/nao1215/sitescrape/internal/extractor"
	"github.com/nao1215/sitescrape/internal/fetcher"
	seclog "github.com/nao1215/sitescrape/internal/log"
	"github.com/nao1215/sitescrape/internal/metrics"
	"github.com/nao1215/sitescrape/internal/model"
	"github.com/nao1215/sitescrape/internal/sink"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url> [start-url...]",
		Short: "Crawl a site and extract fields from every visited page",
		Long: `Crawl visits pages breadth-first starting at each start URL and extracts
one record per successfully fetched page.

Links are followed only on the start URL's host unless --same-domain=false.
Before every request the crawler waits --delay seconds plus a random jitter
of up to one second. The crawl stops after --max-pages pages or when no
unvisited links are left. Pages that fail to load are skipped.

Each start URL is an independent crawl with its own page budget; their
records are written to one output in argument order.

Examples:
  # Crawl up to 5 pages and write scraped_data.csv
  sitescrape crawl https://example.com/

  # Crawl 50 pages, 2 seconds apart, into JSON Lines
  sitescrape crawl -p 50 -d 2 -o pages.jsonl https://example.com/

  # Extract custom fields
  sitescrape crawl -s title=title -s price=span.price https://shop.example/

  # Write a Markdown report to stdout
  sitescrape crawl -f markdown -o - https://example.com/

Configuration file (.sitescrape) example:
  selectors:
    - name: title
      selector: title
    - name: price
      selector: span.price
  sites:
    shop.example:
      maxPages: 100
      delay: 2s
      cookie: "session=abc123"
      ignorePatterns:
        - "/cart/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP(config.FlagMaxPages, "p", config.DefaultMaxPages,
		"Maximum number of pages to visit per start URL")
	cmd.Flags().Float64P(config.FlagDelay, "d", config.DefaultDelay.Seconds(),
		"Politeness delay in seconds before each request (a random 0-1s jitter is added)")
	cmd.Flags().Bool("same-domain", true,
		"Only follow links on the start URL's host")
	cmd.Flags().Int(config.FlagMaxDepth, config.DefaultMaxDepth,
		"Maximum link depth from the start page (-1 for unlimited)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches per start URL (1 keeps strict visit order)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of start URLs crawled concurrently")
	cmd.Flags().String("normalize", string(model.NormalizeNone),
		"URL deduplication policy: none, fragment or canonical")

	// HTTP flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String(config.FlagUserAgent, config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second in addition to the delay (0 disables)")

	// Extraction flags
	cmd.Flags().StringArrayP("selector", "s", nil,
		"Field to extract as name=css-selector (repeatable; replaces the default fields)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitescrape in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Output file path, or - for stdout")
	cmd.Flags().StringP("format", "f", "",
		"Output format: csv, jsonl or markdown (default: from the output extension)")
	cmd.Flags().String("join", sink.DefaultJoinSeparator,
		"Separator for fields with several matches in CSV and Markdown output")
	cmd.Flags().Bool("no-history", false,
		"Do not save the run to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file after the crawl")
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress progress and summary output")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing current pages...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the job file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.MaxPages, err = flags.GetInt(config.FlagMaxPages); err != nil {
		return nil, err
	}

	delaySeconds, err := flags.GetFloat64(config.FlagDelay)
	if err != nil {
		return nil, err
	}
	cfg.Delay = time.Duration(delaySeconds * float64(time.Second))

	if cfg.SameDomain, err = flags.GetBool("same-domain"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt(config.FlagMaxDepth); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Normalize, err = flags.GetString("normalize"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString(config.FlagUserAgent); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}

	rawSelectors, err := flags.GetStringArray("selector")
	if err != nil {
		return nil, err
	}
	if len(rawSelectors) > 0 {
		cfg.Selectors = make(model.SelectorSpec, 0, len(rawSelectors))
		for _, raw := range rawSelectors {
			sel, err := model.ParseSelector(raw)
			if err != nil {
				return nil, err
			}
			cfg.Selectors = append(cfg.Selectors, sel)
		}
	}

	if cfg.Output, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.JoinSeparator, err = flags.GetString("join"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// Flags given on the command line win over per-site settings.
	for _, name := range []string{config.FlagMaxPages, config.FlagDelay, config.FlagMaxDepth, config.FlagUserAgent, "selector"} {
		if flags.Changed(name) {
			cfg.Explicit[name] = true
		}
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue without one.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates a structured logger that masks secrets.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return seclog.NewSecureJSONLogger(w, verbose)
	}
	return seclog.NewSecureLogger(w, verbose)
}

// runCrawl crawls every target, writes the records and saves the history.
//
// Failures of single pages or single start URLs are reported and do not
// stop the run. A sink failure is reported after the history has been
// saved, so the collected records are never lost.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	client, err := fetcher.NewHTTPClient(cfg.ProxyAddress)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	ex := extractor.New(cfg.Selectors, extractor.WithLogger(logger))

	var observers []crawler.Observer

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder()
		observers = append(observers, recorder)
	}

	var prog *progress
	if !cfg.Quiet && !cfg.Verbose {
		prog = newProgress(stderr)
		observers = append(observers, prog)
		prog.start()
	}

	observer := crawler.MultiObserver(observers...)

	crawl := func(ctx context.Context, startURL string) (*crawler.Result, error) {
		site := cfg.SiteSettings(startURL)

		f := fetcher.New(
			fetcher.WithClient(client),
			fetcher.WithDelay(site.Delay),
			fetcher.WithTimeout(cfg.Timeout),
			fetcher.WithUserAgent(site.UserAgent),
			fetcher.WithHeaders(site.Headers),
			fetcher.WithCookie(site.Cookie),
			fetcher.WithMaxBodySize(cfg.MaxBodySize),
			fetcher.WithRateLimit(cfg.RateLimit, 1),
			fetcher.WithLogger(logger),
		)

		spider := crawler.NewSpider(f, ex,
			crawler.WithMaxPages(site.MaxPages),
			crawler.WithSameDomain(cfg.SameDomain),
			crawler.WithWorkers(cfg.Workers),
			crawler.WithNormalize(cfg.NormalizePolicy()),
			crawler.WithMaxDepth(site.MaxDepth),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
			crawler.WithObserver(observer),
			crawler.WithLogger(logger),
		)

		return spider.Crawl(ctx, startURL)
	}

	started := time.Now()
	runner := batch.NewRunner(crawl,
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)
	outcomes, runErr := runner.Run(ctx, cfg.Targets)

	if prog != nil {
		prog.stop()
	}

	for _, o := range outcomes {
		if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
			fmt.Fprintf(stderr, "Skipped %s: %v\n", o.StartURL, o.Err)
		}
	}

	records := batch.Records(outcomes)
	summary := summarize(cfg.Targets, outcomes, started)

	outputPath := ""
	writeErr := newSink(cfg, summary, stdout).Write(records)
	switch {
	case errors.Is(writeErr, sink.ErrNoRecords):
		fmt.Fprintln(stderr, "No data to save")
		writeErr = nil
	case writeErr != nil:
		logger.Error("failed to save records", "error", writeErr)
	default:
		outputPath = cfg.Output
	}

	if cfg.SaveToDB {
		// The history is written even after an interrupt.
		if err := saveHistory(context.WithoutCancel(ctx), cfg, outcomes, outputPath, logger); err != nil {
			logger.Error("failed to save run history", "error", err)
		}
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if !cfg.Quiet {
		printSummary(stderr, summary, len(records), outputPath)
	}

	if runErr != nil {
		return fmt.Errorf("crawl interrupted: %w", runErr)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to save records: %w", writeErr)
	}
	return nil
}

// newSink creates the output sink for cfg.
func newSink(cfg *config.Config, summary sink.Summary, stdout io.Writer) *sink.FileSink {
	return sink.NewFileSink(cfg.Output,
		sink.WithFormat(cfg.OutputFormat()),
		sink.WithFileJoinSeparator(cfg.JoinSeparator),
		sink.WithFileSummary(summary),
		sink.WithStdout(stdout),
	)
}

// summarize aggregates the crawl results of all start URLs.
func summarize(targets []string, outcomes []batch.Outcome, started time.Time) sink.Summary {
	s := sink.Summary{
		StartURL:  strings.Join(targets, ", "),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		s.Visited += len(o.Result.Visited)
		s.Failed += o.Result.Failed
		s.Pending += len(o.Result.Pending)
	}
	return s
}

// printSummary prints a short report of the run.
func printSummary(w io.Writer, s sink.Summary, records int, outputPath string) {
	fmt.Fprintf(w, "Visited %d page(s) in %s (%d failed, %d discovered but not crawled)\n",
		s.Visited, s.Duration.Round(time.Millisecond), s.Failed, s.Pending)
	switch {
	case outputPath == sink.StdoutPath:
		fmt.Fprintf(w, "Wrote %d record(s) to stdout\n", records)
	case outputPath != "":
		fmt.Fprintf(w, "Saved %d record(s) to %s\n", records, outputPath)
	}
}

// saveHistory stores one history entry per crawled start URL.
func saveHistory(ctx context.Context, cfg *config.Config, outcomes []batch.Outcome, outputPath string, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		r := o.Result
		run := &database.Run{
			StartURL:         r.StartURL,
			StartedAt:        r.StartedAt,
			FinishedAt:       r.FinishedAt,
			MaxPages:         cfg.SiteSettings(o.StartURL).MaxPages,
			Visited:          r.Visited,
			Pending:          r.Pending,
			Fetched:          r.Fetched,
			Failed:           r.Failed,
			ExtractionErrors: r.ExtractionErrors,
			OutputPath:       outputPath,
			Selectors:        cfg.Selectors,
			Records:          r.Records,
		}
		id, err := db.SaveRun(ctx, run)
		if err != nil {
			return err
		}
		logger.Info("run saved to history", "id", id, "start_url", r.StartURL)
	}
	return nil
}
