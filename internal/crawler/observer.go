package crawler

import "time"

// Observer receives crawl events, e.g. to update metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	// PageFetched is called after a page was fetched and parsed.
	PageFetched(pageURL string, took time.Duration)

	// PageFailed is called after a fetch failed.
	PageFailed(pageURL string, err error)

	// FieldFailed is called once per field whose selector could not be evaluated.
	FieldFailed(field string)

	// LinksEnqueued is called with the number of new URLs a page added to the frontier.
	LinksEnqueued(n int)

	// FrontierSize is called with the pending queue length after each page.
	FrontierSize(n int)
}

// nopObserver ignores every event.
type nopObserver struct{}

func (nopObserver) PageFetched(string, time.Duration) {}
func (nopObserver) PageFailed(string, error)          {}
func (nopObserver) FieldFailed(string)                {}
func (nopObserver) LinksEnqueued(int)                 {}
func (nopObserver) FrontierSize(int)                  {}

// multiObserver forwards every event to each of its observers in order.
type multiObserver []Observer

// MultiObserver returns an Observer that forwards events to all non-nil observers.
func MultiObserver(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 0 {
		return nopObserver{}
	}
	return m
}

func (m multiObserver) PageFetched(pageURL string, took time.Duration) {
	for _, o := range m {
		o.PageFetched(pageURL, took)
	}
}

func (m multiObserver) PageFailed(pageURL string, err error) {
	for _, o := range m {
		o.PageFailed(pageURL, err)
	}
}

func (m multiObserver) FieldFailed(field string) {
	for _, o := range m {
		o.FieldFailed(field)
	}
}

func (m multiObserver) LinksEnqueued(n int) {
	for _, o := range m {
		o.LinksEnqueued(n)
	}
}

func (m multiObserver) FrontierSize(n int) {
	for _, o := range m {
		o.FrontierSize(n)
	}
}
