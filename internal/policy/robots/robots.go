// Package robots enforces robots.txt directives per host.
package robots

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/logging"
)

// Enforcer implements crawler.RobotsPolicy. robots.txt files are fetched
// through the same Fetcher as pages, so they share its user agent and pacing.
type Enforcer struct {
	fetcher   crawler.Fetcher
	userAgent string
	logger    *zap.Logger
	cache     sync.Map
}

// New builds an Enforcer. When respect is false the returned policy allows
// every URL.
func New(respect bool, fetcher crawler.Fetcher, userAgent string, logger *zap.Logger) crawler.RobotsPolicy {
	if !respect {
		return allowAll{}
	}
	logger = logging.OrNop(logger)
	return &Enforcer{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed implements crawler.RobotsPolicy. A robots.txt that cannot be
// loaded allows access.
func (e *Enforcer) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := e.load(ctx, parsed)
	if err != nil {
		e.logger.Warn("robots fetch failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(e.userAgent)
	if group == nil {
		return true
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (e *Enforcer) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Scheme + "://" + parsed.Host)
	if data, ok := e.cache.Load(hostKey); ok {
		cached, assertOK := data.(*robotstxt.RobotsData)
		if !assertOK {
			return nil, fmt.Errorf("robots cache type mismatch: %T", data)
		}
		return cached, nil
	}

	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	status, body, err := e.fetch(ctx, robotsURL.String())
	if err != nil {
		return nil, err
	}
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	e.cache.Store(hostKey, data)
	return data, nil
}

// fetch returns the status and body of robots.txt. HTTP error statuses are
// not errors here; robotstxt maps 4xx to allow-all and 5xx to disallow-all.
func (e *Enforcer) fetch(ctx context.Context, robotsURL string) (int, []byte, error) {
	resp, err := e.fetcher.Fetch(ctx, crawler.FetchRequest{URL: robotsURL})
	if err == nil {
		return resp.StatusCode, resp.Body, nil
	}
	var fetchErr *crawler.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return fetchErr.StatusCode, nil, nil
	}
	return 0, nil, fmt.Errorf("fetch robots: %w", err)
}

type allowAll struct{}

func (allowAll) Allowed(context.Context, string) bool { return true }
