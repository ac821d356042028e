package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// maxProgressURLLen keeps the spinner on one terminal line.
const maxProgressURLLen = 50

// progress shows a spinner with crawl counters on stderr. It implements
// crawler.Observer, so every crawl event refreshes the line.
// The spinner only animates when the writer is a terminal.
type progress struct {
	spin *spinner.Spinner

	mu      sync.Mutex
	fetched int
	failed  int
	queued  int
	last    string
}

// newProgress creates a progress indicator writing to w.
func newProgress(w io.Writer) *progress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " starting crawl"
	return &progress{spin: s}
}

func (p *progress) start() {
	p.spin.Start()
}

func (p *progress) stop() {
	p.spin.Stop()
}

func (p *progress) PageFetched(pageURL string, _ time.Duration) {
	p.update(func() {
		p.fetched++
		p.last = pageURL
	})
}

func (p *progress) PageFailed(pageURL string, _ error) {
	p.update(func() {
		p.failed++
		p.last = pageURL
	})
}

func (p *progress) FieldFailed(string) {}

func (p *progress) LinksEnqueued(int) {}

func (p *progress) FrontierSize(n int) {
	p.update(func() {
		p.queued = n
	})
}

// update applies fn to the counters and redraws the suffix.
func (p *progress) update(fn func()) {
	p.mu.Lock()
	fn()
	suffix := p.suffix()
	p.mu.Unlock()

	p.spin.Lock()
	p.spin.Suffix = suffix
	p.spin.Unlock()
}

// suffix formats the status line. Callers hold p.mu.
func (p *progress) suffix() string {
	return fmt.Sprintf(" %d fetched, %d failed, %d queued  %s",
		p.fetched, p.failed, p.queued, shortenURL(p.last, maxProgressURLLen))
}

// shortenURL truncates long URLs in the middle so host and last path
// segment stay visible.
func shortenURL(u string, maxLen int) string {
	runes := []rune(u)
	if len(runes) <= maxLen || maxLen < 5 {
		return u
	}
	head := (maxLen - 3) / 2
	tail := maxLen - 3 - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}
