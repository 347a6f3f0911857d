package blog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/logging"
)

// DefaultSources maps source names to listing pages.
var DefaultSources = map[string]string{
	"category_labs": "https://blog.categorylabs.xyz",
	"monad":         "https://www.monad.xyz/blog",
}

// DefaultKeywords select consensus-related posts.
var DefaultKeywords = []string{
	"monadbft", "hotstuff", "bft", "consensus",
	"byzantine", "finality", "fork", "blockchain",
}

// Scraper fetches listing pages and the full body of every listed post.
type Scraper struct {
	fetcher crawler.Fetcher
	logger  *zap.Logger
}

// NewScraper builds a Scraper. The fetcher should be paced; every post costs
// one extra request.
func NewScraper(fetcher crawler.Fetcher, logger *zap.Logger) *Scraper {
	logger = logging.OrNop(logger)
	return &Scraper{fetcher: fetcher, logger: logger}
}

// Scrape harvests the posts listed at listingURL. Only a failed listing
// fetch is an error; a post whose body cannot be fetched keeps an empty body.
func (s *Scraper) Scrape(ctx context.Context, source, listingURL string) ([]crawler.Post, error) {
	resp, err := s.fetcher.Fetch(ctx, crawler.FetchRequest{URL: listingURL})
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", source, err)
	}
	posts, err := ParseListing(resp.Body, listingURL, source)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", source, err)
	}
	s.logger.Info("listing parsed", zap.String("source", source), zap.Int("posts", len(posts)))

	for i := range posts {
		if err := ctx.Err(); err != nil {
			return posts[:i], fmt.Errorf("scrape %s canceled: %w", source, err)
		}
		posts[i].Body = s.fetchBody(ctx, posts[i].URL)
	}
	return posts, nil
}

func (s *Scraper) fetchBody(ctx context.Context, postURL string) string {
	resp, err := s.fetcher.Fetch(ctx, crawler.FetchRequest{URL: postURL})
	if err != nil {
		s.logger.Warn("post fetch failed", zap.String("url", postURL), zap.Error(err))
		return ""
	}
	body, err := ParseBody(resp.Body)
	if err != nil {
		s.logger.Warn("post parse failed", zap.String("url", postURL), zap.Error(err))
		return ""
	}
	return body
}

// ScrapeAll scrapes every source in name order and drops posts already seen
// under another source. Failed sources are logged and skipped.
func (s *Scraper) ScrapeAll(ctx context.Context, sources map[string]string) []crawler.Post {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)

	var all []crawler.Post
	for _, name := range names {
		posts, err := s.Scrape(ctx, name, sources[name])
		all = append(all, posts...)
		if err != nil {
			s.logger.Error("source scrape failed", zap.String("source", name), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return crawler.Dedupe(all)
}

// FilterByKeywords keeps posts whose title, body or tags mention any keyword,
// case-insensitively. An empty keyword list uses DefaultKeywords.
func FilterByKeywords(posts []crawler.Post, keywords []string) []crawler.Post {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}

	out := []crawler.Post{}
	for _, post := range posts {
		text := strings.ToLower(post.Title + " " + post.Body + " " + strings.Join(post.Tags, " "))
		if slices.ContainsFunc(lowered, func(kw string) bool { return strings.Contains(text, kw) }) {
			out = append(out, post)
		}
	}
	return out
}
