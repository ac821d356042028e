package crawler

import (
	"context"
	"sync"
)

// State is the crawl controller state.
type State int

const (
	// StateRunning means the frontier is non-empty and the budget is not spent.
	StateRunning State = iota

	// StateDone is terminal: the frontier is exhausted or the budget is spent.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// queueItem represents an item in the frontier.
type queueItem struct {
	url   string
	key   string
	depth int

	// seq is the visit sequence number, assigned when the item is popped.
	seq int
}

// frontier owns the visited set and the FIFO queue of one crawl run.
// Both collections are mutated only through its methods, under one lock,
// so the dedup and budget invariants hold with any number of workers.
//
// Invariants:
//   - visited only grows and never exceeds budget
//   - a URL is in queue at most once and never while it is in visited
//
// Both sets hold dedup keys. The queue and order hold the URLs as fetched.
type frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// keyOf maps a URL to its dedup key.
	keyOf func(string) string

	queue   []queueItem
	queued  map[string]bool
	visited map[string]bool

	// order records visited URLs in visit sequence.
	order []string

	budget int

	// inFlight counts popped items whose links have not been pushed yet.
	// While it is non-zero an empty queue does not mean DONE.
	inFlight int

	// stopped is set on cancellation so waiting workers return.
	stopped bool
}

// newFrontier creates a frontier seeded with exactly start. A nil keyOf
// compares URLs as exact strings.
func newFrontier(start string, budget int, keyOf func(string) string) *frontier {
	if keyOf == nil {
		keyOf = func(u string) string { return u }
	}
	key := keyOf(start)
	f := &frontier{
		keyOf:   keyOf,
		queue:   []queueItem{{url: start, key: key}},
		queued:  map[string]bool{key: true},
		visited: make(map[string]bool),
		budget:  budget,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push appends u to the tail unless its key is already visited or queued.
// The check and the append are one atomic step.
func (f *frontier) push(u string, depth int) bool {
	key := f.keyOf(u)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[key] || f.queued[key] {
		return false
	}
	f.queue = append(f.queue, queueItem{url: u, key: key, depth: depth})
	f.queued[key] = true
	f.cond.Signal()
	return true
}

// next pops the head of the queue and marks it visited. It blocks while the
// queue is empty but other workers may still add links. It returns false
// once the run is DONE or stopped.
func (f *frontier) next() (queueItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.stopped || len(f.visited) >= f.budget {
			return queueItem{}, false
		}
		if len(f.queue) == 0 {
			if f.inFlight == 0 {
				return queueItem{}, false
			}
			f.cond.Wait()
			continue
		}

		item := f.queue[0]
		f.queue = f.queue[1:]
		delete(f.queued, item.key)

		// push never queues a visited URL; visited stays the single dedup gate anyway.
		if f.visited[item.key] {
			continue
		}

		f.visited[item.key] = true
		item.seq = len(f.order)
		f.order = append(f.order, item.url)
		f.inFlight++
		return item, true
	}
}

// done marks one popped item as fully processed.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	f.cond.Broadcast()
}

// stop wakes every waiting worker and makes next return false.
func (f *frontier) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
	f.cond.Broadcast()
}

// stopOnCancel stops the frontier when ctx is cancelled. The returned
// function releases the hook.
func (f *frontier) stopOnCancel(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, f.stop)
}

// state reports RUNNING or DONE from the loop guard.
func (f *frontier) state() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped || len(f.visited) >= f.budget || (len(f.queue) == 0 && f.inFlight == 0) {
		return StateDone
	}
	return StateRunning
}

// size returns the number of pending URLs.
func (f *frontier) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// visitedOrder returns a copy of the visited URLs in visit order.
func (f *frontier) visitedOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// pending returns a copy of the URLs still queued.
func (f *frontier) pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	urls := make([]string, 0, len(f.queue))
	for _, item := range f.queue {
		urls = append(urls, item.url)
	}
	return urls
}
