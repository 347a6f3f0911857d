package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Page is a fetched page handed to a VisitFunc.
type Page struct {
	URL      string
	Response FetchResponse
}

// VisitFunc extracts a fetched page and returns the raw href values found on
// it, in document order. Returning an error marks the page as failed.
type VisitFunc func(ctx context.Context, page Page) ([]string, error)

// TraversalStats counts what happened during a traversal.
type TraversalStats struct {
	Fetches int
	Visited int
	Failed  int
	Skipped int
}

// Traverser drives a breadth-first crawl over a Frontier.
type Traverser struct {
	fetcher  Fetcher
	robots   RobotsPolicy
	blocked  *domainPatternBlocklist
	maxPages int
	timeout  time.Duration
	logger   *zap.Logger
}

// TraverserOption configures a Traverser.
type TraverserOption func(*Traverser)

// WithRobots skips URLs the policy disallows.
func WithRobots(policy RobotsPolicy) TraverserOption {
	return func(t *Traverser) {
		t.robots = policy
	}
}

// WithBlockedHosts skips hosts matching the given exact or wildcard patterns
// ("example.org", "*.example.org", ".example.org").
func WithBlockedHosts(patterns []string) TraverserOption {
	return func(t *Traverser) {
		t.blocked = newDomainPatternBlocklist(patterns)
	}
}

// WithMaxPages stops the traversal after n pages were visited. Zero means no limit.
func WithMaxPages(n int) TraverserOption {
	return func(t *Traverser) {
		t.maxPages = n
	}
}

// WithRequestTimeout sets the per-page fetch timeout.
func WithRequestTimeout(d time.Duration) TraverserOption {
	return func(t *Traverser) {
		t.timeout = d
	}
}

// WithLogger sets the traversal logger.
func WithLogger(logger *zap.Logger) TraverserOption {
	return func(t *Traverser) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTraverser builds a Traverser fetching pages through fetcher. Pacing
// between requests is the fetcher's concern (see NewPacedFetcher).
func NewTraverser(fetcher Fetcher, opts ...TraverserOption) *Traverser {
	t := &Traverser{
		fetcher: fetcher,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run pops URLs from frontier until it is empty, fetching each URL at most
// once and feeding in-scope links back into the frontier. A failed page never
// stops the traversal; only context cancellation does.
func (t *Traverser) Run(ctx context.Context, frontier *Frontier, scope Scope, visit VisitFunc) (TraversalStats, error) {
	var stats TraversalStats
	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("traversal canceled: %w", err)
		}
		if t.maxPages > 0 && stats.Visited >= t.maxPages {
			t.logger.Info("page limit reached", zap.Int("max_pages", t.maxPages), zap.Int("pending", frontier.Pending()))
			return stats, nil
		}
		next, ok := frontier.Pop()
		if !ok {
			return stats, nil
		}
		if frontier.Done(next) {
			continue
		}
		if !t.admit(ctx, next) {
			frontier.MarkFailed(next)
			stats.Skipped++
			continue
		}

		t.logger.Debug("fetching page", zap.String("url", next))
		resp, err := t.fetcher.Fetch(ctx, FetchRequest{URL: next, Timeout: t.timeout})
		stats.Fetches++
		if err != nil {
			t.logger.Warn("page fetch failed", zap.String("url", next), zap.Error(err))
			frontier.MarkFailed(next)
			stats.Failed++
			continue
		}

		hrefs, err := visit(ctx, Page{URL: next, Response: resp})
		if err != nil {
			t.logger.Warn("page extraction failed", zap.String("url", next), zap.Error(err))
			frontier.MarkFailed(next)
			stats.Failed++
			continue
		}
		frontier.MarkVisited(next)
		stats.Visited++

		links := ResolveLinks(next, hrefs, scope)
		frontier.Push(links...)
		t.logger.Debug("page visited",
			zap.String("url", next),
			zap.Int("links", len(links)),
			zap.Int("pending", frontier.Pending()),
		)
	}
}

func (t *Traverser) admit(ctx context.Context, rawURL string) bool {
	if t.blocked != nil {
		if u, err := url.Parse(rawURL); err == nil && t.blocked.IsBlocked(u.Hostname()) {
			t.logger.Debug("host blocked", zap.String("url", rawURL))
			return false
		}
	}
	if t.robots != nil && !t.robots.Allowed(ctx, rawURL) {
		t.logger.Info("disallowed by robots.txt", zap.String("url", rawURL))
		return false
	}
	return true
}
