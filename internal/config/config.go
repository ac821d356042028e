package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitescrape/internal/fetcher"
	"github.com/nao1215/sitescrape/internal/model"
	"github.com/nao1215/sitescrape/internal/sink"
)

// Default configuration values.
const (
	// DefaultMaxPages keeps a first look at a site short.
	// Users can raise it via the --max-pages CLI flag.
	DefaultMaxPages = 5

	// DefaultDelay is the fixed part of the politeness delay. A uniform
	// jitter of up to one second is added on top of it before every fetch.
	DefaultDelay = fetcher.DefaultDelay

	// DefaultTimeout bounds a single GET.
	DefaultTimeout = fetcher.DefaultTimeout

	// DefaultUserAgent is a desktop browser string; some sites refuse
	// obvious bot identifiers.
	DefaultUserAgent = fetcher.DefaultUserAgent

	// DefaultWorkers of 1 keeps the strictly sequential visit order.
	DefaultWorkers = 1

	// DefaultBatchSize runs one start URL at a time.
	DefaultBatchSize = 1

	// DefaultMaxDepth of -1 means link depth is not limited; the page
	// budget alone bounds the crawl.
	DefaultMaxDepth = -1

	// DefaultOutput is the file written when no output path is given.
	DefaultOutput = "scraped_data.csv"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = fetcher.DefaultMaxBodySize

	// AppName is the application name used for XDG directory paths.
	AppName = "sitescrape"
)

// Flag names that per-site settings must not override once given on the
// command line.
const (
	FlagMaxPages  = "max-pages"
	FlagDelay     = "delay"
	FlagMaxDepth  = "max-depth"
	FlagUserAgent = "user-agent"
)

// Config holds all configuration options for sitescrape.
// This struct is populated from CLI flags and the job file and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity, the same way the CLI exposes one flat set of flags.
type Config struct {
	// Targets are the start URLs. Each one is crawled as an independent run.
	Targets []string

	// MaxPages is the page budget per run.
	MaxPages int

	// Delay is the fixed part of the politeness delay before each fetch.
	Delay time.Duration

	// SameDomain restricts link discovery to the start URL's host.
	SameDomain bool

	// Timeout bounds each GET.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Workers is the number of concurrent fetches within one run.
	Workers int

	// BatchSize is the number of runs executed concurrently when several
	// start URLs are given.
	BatchSize int

	// MaxDepth limits link depth from the start page. Negative is unlimited.
	MaxDepth int

	// RateLimit caps requests per second on top of the politeness delay.
	// 0 disables it.
	RateLimit float64

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// Selectors is the ordered field name to CSS selector mapping.
	Selectors model.SelectorSpec

	// Normalize is the URL normalization policy name.
	Normalize string

	// Output is the output file path, or "-" for stdout.
	Output string

	// Format forces the output format. Empty infers it from Output.
	Format string

	// JoinSeparator joins multi-valued fields in CSV and Markdown output.
	JoinSeparator string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// Quiet suppresses the progress spinner and summary.
	Quiet bool

	// LogJSON switches logs to JSON.
	LogJSON bool

	// ConfigFilePath is the path to the job file.
	// If empty, the tool searches for .sitescrape in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the job file contents, if one was loaded.
	SiteConfigs *File

	// DBDir is the directory of the run history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB stores every run in the history database.
	SaveToDB bool

	// MetricsFile is where Prometheus metrics are written after the crawl.
	// Empty disables metrics output.
	MetricsFile string

	// Explicit records the flag names the user set on the command line.
	// Those values win over per-site settings from the job file.
	Explicit map[string]bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, budget).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxPages:      DefaultMaxPages,
		Delay:         DefaultDelay,
		SameDomain:    true,
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		Workers:       DefaultWorkers,
		BatchSize:     DefaultBatchSize,
		MaxDepth:      DefaultMaxDepth,
		MaxBodySize:   DefaultMaxBodySize,
		Selectors:     model.DefaultSelectors(),
		Normalize:     string(model.NormalizeNone),
		Output:        DefaultOutput,
		JoinSeparator: sink.DefaultJoinSeparator,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
		Explicit:      make(map[string]bool),
	}
}

// XDGDataDir returns the XDG data directory for sitescrape.
// On Linux: ~/.local/share/sitescrape
// On macOS: ~/Library/Application Support/sitescrape
// On Windows: %LOCALAPPDATA%\sitescrape
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first violated rule as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if len(c.Selectors) == 0 {
		return ErrNoSelectors
	}
	if err := c.Selectors.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSelectors, err)
	}

	if _, err := model.ParseNormalizePolicy(c.Normalize); err != nil {
		return ErrInvalidNormalize
	}

	if c.Format != "" {
		if _, err := sink.ParseFormat(c.Format); err != nil {
			return ErrInvalidFormat
		}
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RateLimit < 0 {
		return ErrInvalidRate
	}

	return nil
}

// OutputFormat returns the configured format, or the one implied by Output.
// Call Validate first; an unknown format name falls back to detection.
func (c *Config) OutputFormat() sink.Format {
	if f, err := sink.ParseFormat(c.Format); err == nil {
		return f
	}
	return sink.DetectFormat(c.Output)
}

// NormalizePolicy returns the parsed normalization policy.
func (c *Config) NormalizePolicy() model.NormalizePolicy {
	p, err := model.ParseNormalizePolicy(c.Normalize)
	if err != nil {
		return model.NormalizeNone
	}
	return p
}

// ApplyFile merges the job file into the configuration. Selectors from the
// file replace the defaults unless selectors were given on the command line.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	if len(f.Selectors) > 0 && !c.Explicit["selector"] {
		c.Selectors = f.Selectors
	}
}

// SiteSettings are the effective crawl settings for one start URL.
type SiteSettings struct {
	MaxPages       int
	Delay          time.Duration
	MaxDepth       int
	UserAgent      string
	Cookie         string
	Headers        map[string]string
	IgnorePatterns []string
	FollowPatterns []string
}

// SiteSettings resolves the settings for startURL. The precedence is:
// command-line flag, then the site entry for the URL's host, then the job
// file defaults, then the built-in defaults.
func (c *Config) SiteSettings(startURL string) SiteSettings {
	s := SiteSettings{
		MaxPages:  c.MaxPages,
		Delay:     c.Delay,
		MaxDepth:  c.MaxDepth,
		UserAgent: c.UserAgent,
	}
	if c.SiteConfigs == nil {
		return s
	}

	site := c.SiteConfigs.GetSiteConfig(hostOf(startURL))
	s.Cookie = site.Cookie
	s.Headers = site.Headers
	s.IgnorePatterns = site.IgnorePatterns
	s.FollowPatterns = site.FollowPatterns

	if site.MaxPages > 0 && !c.Explicit[FlagMaxPages] {
		s.MaxPages = site.MaxPages
	}
	if site.Delay != nil && *site.Delay >= 0 && !c.Explicit[FlagDelay] {
		s.Delay = *site.Delay
	}
	if site.MaxDepth != nil && !c.Explicit[FlagMaxDepth] {
		s.MaxDepth = *site.MaxDepth
	}
	if site.UserAgent != "" && !c.Explicit[FlagUserAgent] {
		s.UserAgent = site.UserAgent
	}
	return s
}

// hostOf returns the host[:port] of rawURL. A URL without a scheme is
// treated as http, matching how the crawler parses start URLs.
func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
