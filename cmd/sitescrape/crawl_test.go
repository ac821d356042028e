package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitescrape/internal/config"
	"github.com/nao1215/sitescrape/internal/database"
	"github.com/nao1215/sitescrape/internal/model"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Name() != "crawl" {
			t.Errorf("expected name 'crawl', got %q", cmd.Name())
		}
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"output", "o", config.DefaultOutput},
		{"max-pages", "p", "5"},
		{"delay", "d", "1"},
		{"same-domain", "", "true"},
		{"selector", "s", "[]"},
		{"config", "c", ""},
		{"format", "f", ""},
		{"workers", "w", "1"},
		{"batch", "b", "1"},
		{"timeout", "t", "10s"},
		{"max-depth", "", "-1"},
		{"normalize", "", "none"},
		{"no-history", "", "false"},
		{"quiet", "q", "false"},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// parseCrawlFlags returns a crawl command with args parsed.
func parseCrawlFlags(t *testing.T, args ...string) *config.Config {
	t.Helper()

	cmd := NewCrawlCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	cfg, err := buildConfig(cmd, cmd.Flags().Args())
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	return cfg
}

// TestBuildConfig tests conversion of flags into a Config.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := parseCrawlFlags(t, "-c", writeJobFile(t, ""), "https://example.com/")

		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://example.com/" {
			t.Errorf("unexpected targets %v", cfg.Targets)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("expected max pages %d, got %d", config.DefaultMaxPages, cfg.MaxPages)
		}
		if cfg.Delay != config.DefaultDelay {
			t.Errorf("expected delay %v, got %v", config.DefaultDelay, cfg.Delay)
		}
		if !cfg.SameDomain || !cfg.SaveToDB {
			t.Error("expected same-domain and history to be enabled")
		}
		if len(cfg.Selectors) != len(model.DefaultSelectors()) {
			t.Errorf("expected default selectors, got %v", cfg.Selectors)
		}
		if len(cfg.Explicit) != 0 {
			t.Errorf("expected no explicit flags, got %v", cfg.Explicit)
		}
	})

	t.Run("parses flags", func(t *testing.T) {
		t.Parallel()

		cfg := parseCrawlFlags(t,
			"-c", writeJobFile(t, ""),
			"-p", "20", "-d", "0.25", "--same-domain=false",
			"-s", "title=title", "-s", "next=a[rel=next]",
			"-o", "-", "-f", "jsonl", "-w", "3", "-b", "2",
			"--no-history", "-q", "--metrics-file", "m.prom",
			"https://a.example/", "https://b.example/",
		)

		if cfg.MaxPages != 20 {
			t.Errorf("expected max pages 20, got %d", cfg.MaxPages)
		}
		if cfg.Delay != 250*time.Millisecond {
			t.Errorf("expected delay 250ms, got %v", cfg.Delay)
		}
		if cfg.SameDomain {
			t.Error("expected same-domain to be disabled")
		}
		if len(cfg.Selectors) != 2 || cfg.Selectors[1].Expr != "a[rel=next]" {
			t.Errorf("unexpected selectors %v", cfg.Selectors)
		}
		if cfg.Output != "-" || cfg.Format != "jsonl" || cfg.Workers != 3 || cfg.BatchSize != 2 {
			t.Errorf("unexpected output settings %+v", cfg)
		}
		if cfg.SaveToDB || !cfg.Quiet || cfg.MetricsFile != "m.prom" {
			t.Errorf("unexpected flags %+v", cfg)
		}
		if len(cfg.Targets) != 2 {
			t.Errorf("expected 2 targets, got %v", cfg.Targets)
		}
		for _, name := range []string{config.FlagMaxPages, config.FlagDelay, "selector"} {
			if !cfg.Explicit[name] {
				t.Errorf("expected %s to be explicit", name)
			}
		}
	})

	t.Run("invalid selector flag", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-s", "nothing"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		_, err := buildConfig(cmd, []string{"https://example.com/"})
		if !errors.Is(err, model.ErrInvalidSelectorFlag) {
			t.Errorf("expected ErrInvalidSelectorFlag, got %v", err)
		}
	})

	t.Run("missing explicit job file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		_, err := buildConfig(cmd, []string{"https://example.com/"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("job file selectors and site settings", func(t *testing.T) {
		t.Parallel()

		path := writeJobFile(t, `
selectors:
  - name: price
    selector: span.price
sites:
  shop.example:
    maxPages: 50
    delay: 2s
`)
		cfg := parseCrawlFlags(t, "-c", path, "https://shop.example/")

		if len(cfg.Selectors) != 1 || cfg.Selectors[0].Name != "price" {
			t.Errorf("expected selectors from job file, got %v", cfg.Selectors)
		}
		site := cfg.SiteSettings("https://shop.example/")
		if site.MaxPages != 50 || site.Delay != 2*time.Second {
			t.Errorf("expected site settings, got %+v", site)
		}
	})

	t.Run("flags win over job file", func(t *testing.T) {
		t.Parallel()

		path := writeJobFile(t, `
selectors:
  - name: price
    selector: span.price
sites:
  shop.example:
    maxPages: 50
`)
		cfg := parseCrawlFlags(t, "-c", path, "-p", "3", "-s", "h1=h1", "https://shop.example/")

		if len(cfg.Selectors) != 1 || cfg.Selectors[0].Name != "h1" {
			t.Errorf("expected selectors from flags, got %v", cfg.Selectors)
		}
		if got := cfg.SiteSettings("https://shop.example/").MaxPages; got != 3 {
			t.Errorf("expected max pages 3, got %d", got)
		}
	})
}

// writeJobFile writes a job file to a temporary directory.
func writeJobFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write job file: %v", err)
	}
	return path
}

// newTestSite serves a small site: / links to /a and /b, /a links back to /.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/":  `<html><head><title>Home</title></head><body><h1>Welcome</h1><a href="/a">A</a><a href="/b">B</a><a href="https://elsewhere.example/">out</a></body></html>`,
		"/a": `<html><head><title>Page A</title></head><body><h1>A</h1><a href="/">home</a></body></html>`,
		"/b": `<html><head><title>Page B</title></head><body></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig returns a quiet configuration for crawling startURL.
func testConfig(t *testing.T, startURL string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Targets = []string{startURL}
	cfg.Delay = 0
	cfg.MaxPages = 2
	cfg.Quiet = true
	cfg.Selectors = model.SelectorSpec{
		{Name: "title", Expr: "title"},
		{Name: "h1", Expr: "h1"},
	}
	cfg.Output = filepath.Join(dir, "out.csv")
	cfg.DBDir = filepath.Join(dir, "db")
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRunCrawl tests complete crawl runs against a local site.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("writes records and history", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := testConfig(t, srv.URL+"/")

		var stdout, stderr bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(cfg.Output)
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 records, got %q", data)
		}
		if lines[0] != "title,h1,url" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.HasPrefix(lines[1], "Home,Welcome,") {
			t.Errorf("expected start page first, got %q", lines[1])
		}
		if strings.Contains(string(data), "elsewhere.example") {
			t.Error("expected off-site link not to be crawled")
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run in history, got %d", len(runs))
		}
		if runs[0].Visited != 2 || runs[0].Pending != 1 {
			t.Errorf("expected 2 visited and 1 pending, got %d and %d", runs[0].Visited, runs[0].Pending)
		}
		if runs[0].OutputPath != cfg.Output {
			t.Errorf("expected output path %q, got %q", cfg.Output, runs[0].OutputPath)
		}
	})

	t.Run("prints summary unless quiet", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := testConfig(t, srv.URL+"/")
		cfg.MaxPages = 1
		cfg.Quiet = false
		cfg.Verbose = true
		cfg.SaveToDB = false

		var stdout, stderr bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr.String(), "Visited 1 page(s)") {
			t.Errorf("expected summary, got %q", stderr.String())
		}
		if !strings.Contains(stderr.String(), "Saved 1 record(s)") {
			t.Errorf("expected saved message, got %q", stderr.String())
		}
	})

	t.Run("no records creates no file", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		cfg := testConfig(t, srv.URL+"/")
		cfg.SaveToDB = false

		var stdout, stderr bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr.String(), "No data to save") {
			t.Errorf("expected 'No data to save', got %q", stderr.String())
		}
		if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
			t.Error("expected no output file")
		}
	})

	t.Run("writes JSON Lines to stdout", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := testConfig(t, srv.URL+"/")
		cfg.MaxPages = 1
		cfg.Output = "-"
		cfg.Format = "jsonl"
		cfg.SaveToDB = false

		var stdout, stderr bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), `"title":"Home"`) {
			t.Errorf("expected JSON record on stdout, got %q", stdout.String())
		}
	})

	t.Run("writes metrics file", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := testConfig(t, srv.URL+"/")
		cfg.MaxPages = 1
		cfg.SaveToDB = false
		cfg.MetricsFile = filepath.Join(t.TempDir(), "crawl.prom")

		var stdout, stderr bytes.Buffer
		if err := runCrawl(context.Background(), cfg, discardLogger(), &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(cfg.MetricsFile)
		if err != nil {
			t.Fatalf("failed to read metrics file: %v", err)
		}
		if !strings.Contains(string(data), `sitescrape_pages_total{result="ok"} 1`) {
			t.Errorf("expected page counter in metrics, got:\n%s", data)
		}
	})

	t.Run("sink failure is reported after history", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := testConfig(t, srv.URL+"/")
		cfg.MaxPages = 1
		// A directory cannot be opened as the output file.
		cfg.Output = t.TempDir()
		cfg.Format = "csv"

		var stdout, stderr bytes.Buffer
		err := runCrawl(context.Background(), cfg, discardLogger(), &stdout, &stderr)
		if err == nil || !strings.Contains(err.Error(), "failed to save records") {
			t.Fatalf("expected save error, got %v", err)
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].OutputPath != "" {
			t.Errorf("expected history without output path, got %+v", runs)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := testConfig(t, srv.URL+"/")
		cfg.SaveToDB = false

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var stdout, stderr bytes.Buffer
		err := runCrawl(ctx, cfg, discardLogger(), &stdout, &stderr)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestCrawlCmdConfigError tests that invalid settings fail before crawling.
func TestCrawlCmdConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no start URL", []string{}, config.ErrNoTarget},
		{"zero pages", []string{"-p", "0", "https://example.com/"}, config.ErrInvalidMaxPages},
		{"negative delay", []string{"-d", "-1", "https://example.com/"}, config.ErrInvalidDelay},
		{"unknown format", []string{"-f", "xml", "https://example.com/"}, config.ErrInvalidFormat},
		{"duplicate field", []string{"-s", "a=h1", "-s", "a=h2", "https://example.com/"}, config.ErrInvalidSelectors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			args := append([]string{"-c", writeJobFile(t, ""), "--no-history"}, tt.args...)
			cmd.SetArgs(args)

			err := cmd.Execute()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if err != nil && !strings.HasPrefix(err.Error(), "configuration error") {
				t.Errorf("expected configuration error prefix, got %q", err.Error())
			}
		})
	}
}

// TestShortenURL tests middle truncation of progress URLs.
func TestShortenURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"https://example.com/", 50, "https://example.com/"},
		{"https://example.com/a/very/long/path", 15, "https:...g/path"},
		{"abcdef", 3, "abcdef"},
	}

	for _, tt := range tests {
		if got := shortenURL(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("shortenURL(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

// TestProgressCounters tests that crawl events update the status line.
func TestProgressCounters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newProgress(&buf)
	p.PageFetched("https://example.com/", time.Millisecond)
	p.PageFailed("https://example.com/missing", errors.New("boom"))
	p.FrontierSize(4)

	p.spin.Lock()
	suffix := p.spin.Suffix
	p.spin.Unlock()

	want := " 1 fetched, 1 failed, 4 queued  https://example.com/missing"
	if suffix != want {
		t.Errorf("expected suffix %q, got %q", want, suffix)
	}
}
