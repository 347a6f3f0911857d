package docs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/logging"
)

// DefaultStartURL is the documentation root crawled when no URL is given.
const DefaultStartURL = "https://docs.monad.xyz"

// Crawler walks every page reachable from a seed within the seed's site.
type Crawler struct {
	fetcher crawler.Fetcher
	logger  *zap.Logger
	opts    []crawler.TraverserOption
}

// NewCrawler builds a Crawler. The fetcher should be paced; opts configure
// the underlying traversal (robots, blocklist, page cap).
func NewCrawler(fetcher crawler.Fetcher, logger *zap.Logger, opts ...crawler.TraverserOption) *Crawler {
	logger = logging.OrNop(logger)
	return &Crawler{fetcher: fetcher, logger: logger, opts: opts}
}

// Crawl extracts every in-scope page reachable from seed, breadth-first,
// fetching each URL at most once. Pages that fail to fetch or parse are
// logged and skipped. On cancellation the pages gathered so far are returned
// with the error.
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]crawler.DocPage, crawler.TraversalStats, error) {
	start, err := crawler.NormalizeURL(seed)
	if err != nil {
		return nil, crawler.TraversalStats{}, fmt.Errorf("normalize seed: %w", err)
	}
	scope, err := crawler.NewScope(start)
	if err != nil {
		return nil, crawler.TraversalStats{}, fmt.Errorf("scope seed: %w", err)
	}

	pages := []crawler.DocPage{}
	visit := func(_ context.Context, page crawler.Page) ([]string, error) {
		doc, hrefs, err := ParsePage(page.Response.Body, page.URL)
		if err != nil {
			return nil, err
		}
		pages = append(pages, doc)
		c.logger.Info("scraped page", zap.String("url", page.URL), zap.String("title", doc.Title))
		return hrefs, nil
	}

	opts := append([]crawler.TraverserOption{crawler.WithLogger(c.logger)}, c.opts...)
	traverser := crawler.NewTraverser(c.fetcher, opts...)
	stats, err := traverser.Run(ctx, crawler.NewFrontier(start), scope, visit)
	c.logger.Info("docs crawl finished",
		zap.String("seed", start),
		zap.Int("pages", len(pages)),
		zap.Int("fetches", stats.Fetches),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	if err != nil {
		return pages, stats, fmt.Errorf("crawl %s: %w", start, err)
	}
	return pages, stats, nil
}

// ScrapePage extracts a single page without following links.
func (c *Crawler) ScrapePage(ctx context.Context, pageURL string) (crawler.DocPage, error) {
	resp, err := c.fetcher.Fetch(ctx, crawler.FetchRequest{URL: pageURL})
	if err != nil {
		return crawler.DocPage{}, fmt.Errorf("scrape page: %w", err)
	}
	page, _, err := ParsePage(resp.Body, pageURL)
	if err != nil {
		return crawler.DocPage{}, fmt.Errorf("scrape page: %w", err)
	}
	return page, nil
}
