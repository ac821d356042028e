package crawler

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestFrontier tests the visited set and FIFO queue.
func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("seeded with the start URL and running", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier("a", 3, nil)
		if fr.state() != StateRunning {
			t.Errorf("expected running, got %s", fr.state())
		}
		assertStrings(t, "pending", fr.pending(), []string{"a"})
	})

	t.Run("pops in FIFO order", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier("a", 10, nil)
		item, ok := fr.next()
		if !ok || item.url != "a" || item.seq != 0 {
			t.Fatalf("unexpected first item %+v (ok=%v)", item, ok)
		}
		fr.push("b", 1)
		fr.push("c", 1)
		fr.done()

		for i, want := range []string{"b", "c"} {
			item, ok := fr.next()
			if !ok || item.url != want {
				t.Fatalf("pop %d: expected %q, got %+v", i, want, item)
			}
			if item.seq != i+1 {
				t.Errorf("pop %d: expected seq %d, got %d", i, i+1, item.seq)
			}
			fr.done()
		}

		if _, ok := fr.next(); ok {
			t.Error("expected empty frontier to stop")
		}
		if fr.state() != StateDone {
			t.Errorf("expected done, got %s", fr.state())
		}
	})

	t.Run("rejects visited and queued URLs", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier("a", 10, nil)
		if fr.push("a", 1) {
			t.Error("queued start URL must not be pushed twice")
		}
		fr.next()
		if fr.push("a", 1) {
			t.Error("visited URL must not be pushed")
		}
		if !fr.push("b", 1) {
			t.Error("expected new URL to be pushed")
		}
		if fr.push("b", 1) {
			t.Error("queued URL must not be pushed twice")
		}
		if fr.size() != 1 {
			t.Errorf("expected 1 pending, got %d", fr.size())
		}
	})

	t.Run("budget ends the run with URLs pending", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier("a", 1, nil)
		fr.next()
		fr.push("b", 1)
		fr.done()

		if _, ok := fr.next(); ok {
			t.Error("expected budget to stop the run")
		}
		if fr.state() != StateDone {
			t.Errorf("expected done, got %s", fr.state())
		}
		assertStrings(t, "visited", fr.visitedOrder(), []string{"a"})
		assertStrings(t, "pending", fr.pending(), []string{"b"})
	})

	t.Run("waits for in-flight pages before finishing", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier("a", 10, nil)
		fr.next()

		got := make(chan string, 1)
		go func() {
			item, ok := fr.next()
			if ok {
				got <- item.url
			} else {
				got <- ""
			}
		}()

		time.Sleep(20 * time.Millisecond)
		fr.push("b", 1)
		fr.done()

		select {
		case u := <-got:
			if u != "b" {
				t.Errorf("expected waiting worker to get b, got %q", u)
			}
		case <-time.After(time.Second):
			t.Fatal("waiting worker was not woken")
		}
	})

	t.Run("cancellation wakes waiting workers", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier("a", 10, nil)
		fr.next()

		ctx, cancel := context.WithCancel(context.Background())
		release := fr.stopOnCancel(ctx)
		defer release()

		var wg sync.WaitGroup
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fr.next()
			}()
		}

		cancel()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("workers still blocked after cancellation")
		}
	})
}

// TestState tests state names.
func TestState(t *testing.T) {
	t.Parallel()

	if StateRunning.String() != "running" || StateDone.String() != "done" {
		t.Errorf("unexpected names %q, %q", StateRunning, StateDone)
	}
	if State(42).String() != "unknown" {
		t.Errorf("expected unknown, got %q", State(42))
	}
}

// TestMatchPattern tests URL path glob matching.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/*", "/admin", true},
		{"/admin/*", "/admin/users/1", true},
		{"/admin/*", "/administrator", false},
		{"*.pdf", "/docs/report.pdf", true},
		{"*.pdf", "/docs/report.html", false},
		{"/api/v?", "/api/v1", true},
		{"/api/v?", "/api/v10", false},
		{"/logout*", "/logout-now", true},
		{"[", "/x", false},
	}

	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

// TestShouldCrawl tests scheme and pattern filtering of links.
func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	t.Run("schemes", func(t *testing.T) {
		t.Parallel()

		s := NewSpider(nil, nil)
		for link, want := range map[string]bool{
			"http://example.com/":    true,
			"HTTPS://example.com/x":  true,
			"mailto:a@example.com":   false,
			"javascript:void(0)":     false,
			"ftp://example.com/file": false,
			"http://example.com/%zz": false,
		} {
			if got := s.shouldCrawl(link); got != want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", link, got, want)
			}
		}
	})

	t.Run("follow patterns restrict crawling", func(t *testing.T) {
		t.Parallel()

		s := NewSpider(nil, nil,
			WithFollowPatterns([]string{"/blog/*"}),
			WithIgnorePatterns([]string{"/blog/drafts/*"}))

		tests := map[string]bool{
			"http://example.com/blog/post-1":   true,
			"http://example.com/blog/drafts/x": false,
			"http://example.com/shop":          false,
		}
		for link, want := range tests {
			if got := s.shouldCrawl(link); got != want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", link, got, want)
			}
		}
	})

	t.Run("depth", func(t *testing.T) {
		t.Parallel()

		if !NewSpider(nil, nil).withinDepth(100) {
			t.Error("default depth must be unlimited")
		}
		s := NewSpider(nil, nil, WithMaxDepth(1))
		if !s.withinDepth(0) || s.withinDepth(1) {
			t.Error("max depth 1 must follow links from depth 0 only")
		}
	})
}
