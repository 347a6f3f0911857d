package crawler

// Frontier holds the crawl state of one traversal: URLs waiting to be
// visited in FIFO order and the URLs already fetched. It is owned by a single
// crawl and is not safe for concurrent use.
type Frontier struct {
	pending []string
	visited map[string]struct{}
	failed  map[string]struct{}
	order   []string
}

// NewFrontier returns a frontier seeded with the given URLs.
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		visited: make(map[string]struct{}),
		failed:  make(map[string]struct{}),
	}
	f.Push(seeds...)
	return f
}

// Push appends URLs to the pending queue. Empty strings and URLs that were
// already visited are ignored; duplicates of pending URLs are kept and
// skipped on Pop.
func (f *Frontier) Push(urls ...string) {
	for _, u := range urls {
		if u == "" || f.Visited(u) {
			continue
		}
		f.pending = append(f.pending, u)
	}
}

// Pop removes and returns the oldest pending URL.
func (f *Frontier) Pop() (string, bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	next := f.pending[0]
	f.pending[0] = ""
	f.pending = f.pending[1:]
	return next, true
}

// MarkVisited records a successfully processed URL.
func (f *Frontier) MarkVisited(u string) {
	if _, ok := f.visited[u]; ok {
		return
	}
	f.visited[u] = struct{}{}
	f.order = append(f.order, u)
}

// MarkFailed records a URL whose fetch or extraction failed so it is not
// fetched again during this crawl.
func (f *Frontier) MarkFailed(u string) {
	f.failed[u] = struct{}{}
}

// Visited reports whether u was processed successfully.
func (f *Frontier) Visited(u string) bool {
	_, ok := f.visited[u]
	return ok
}

// Done reports whether u needs no further fetch, either because it was
// visited or because it already failed.
func (f *Frontier) Done(u string) bool {
	if f.Visited(u) {
		return true
	}
	_, ok := f.failed[u]
	return ok
}

// Pending returns the number of queued URLs, duplicates included.
func (f *Frontier) Pending() int { return len(f.pending) }

// VisitedURLs returns the visited URLs in visit order.
func (f *Frontier) VisitedURLs() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// FailedCount returns the number of URLs that failed.
func (f *Frontier) FailedCount() int { return len(f.failed) }
