// Package ratelimit paces outbound requests per site with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/metrics"
)

// Limiter enforces a minimum delay between requests to the same site. A site
// is a registrable domain, so docs.example.com and api.example.com share one
// bucket.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// Config holds limiter configuration.
type Config struct {
	// Delay is the minimum spacing between two requests to one site.
	// Zero or negative disables pacing.
	Delay time.Duration
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until the site of rawURL may be contacted again.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	site := crawler.SiteKey(rawURL)
	l.mu.Lock()
	limiter, exists := l.limiters[site]
	if !exists {
		limiter = rate.NewLimiter(l.limit, 1)
		l.limiters[site] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObservePacingDelay(metrics.Host(rawURL), waited)
	}
	return nil
}
