package arxiv

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/logging"
)

// Defaults mirroring the public arXiv API.
const (
	DefaultBaseURL  = "http://export.arxiv.org/api/query"
	DefaultPaperID  = "2502.20692"
	defaultRelated  = 5
	defaultSearch   = 10
	downloadTimeout = 60 * time.Second
)

// DefaultRelatedQueries seed FetchRelated.
var DefaultRelatedQueries = []string{
	"HotStuff BFT consensus",
	"Fast-HotStuff",
	"Byzantine fault tolerance blockchain",
	"streamlined consensus",
}

// Config controls the API client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	DownloadTimeout   time.Duration
	// MaxDownloadSize caps PDF bodies in bytes. Zero means no cap, so the
	// fetcher's page-sized limit never applies to downloads.
	MaxDownloadSize   int
	RelatedQueries    []string
	RelatedMaxResults int
	SearchMaxResults  int
}

// Client queries the arXiv API.
type Client struct {
	fetcher crawler.Fetcher
	parser  *Parser
	cfg     Config
	logger  *zap.Logger
}

// NewClient builds a Client. Zero config values fall back to the defaults.
func NewClient(fetcher crawler.Fetcher, cfg Config, logger *zap.Logger) *Client {
	logger = logging.OrNop(logger)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = downloadTimeout
	}
	if cfg.RelatedQueries == nil {
		cfg.RelatedQueries = DefaultRelatedQueries
	}
	if cfg.RelatedMaxResults <= 0 {
		cfg.RelatedMaxResults = defaultRelated
	}
	if cfg.SearchMaxResults <= 0 {
		cfg.SearchMaxResults = defaultSearch
	}
	return &Client{
		fetcher: fetcher,
		parser:  NewParser(logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// NormalizeID strips the "arxiv:" prefix in either casing.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.ReplaceAll(id, "arxiv:", "")
	return strings.ReplaceAll(id, "arXiv:", "")
}

// FetchPaper looks up a single paper. A paper unknown to the API reports
// found=false with a nil error.
func (c *Client) FetchPaper(ctx context.Context, id string) (crawler.Paper, bool, error) {
	id = NormalizeID(id)
	query := url.Values{}
	query.Set("id_list", id)
	query.Set("max_results", "1")

	body, err := c.query(ctx, query)
	if err != nil {
		c.logger.Error("fetch paper failed", zap.String("paper_id", id), zap.Error(err))
		return crawler.Paper{}, false, err
	}
	paper, found, err := c.parser.ParseEntry(body)
	if err != nil {
		c.logger.Error("parse paper failed", zap.String("paper_id", id), zap.Error(err))
		return crawler.Paper{}, false, err
	}
	if !found {
		c.logger.Info("paper not found", zap.String("paper_id", id))
	}
	return paper, found, nil
}

// Search runs a relevance-sorted query. Failures are logged and yield no
// papers. A non-positive maxResults uses the configured default.
func (c *Client) Search(ctx context.Context, search string, maxResults int) []crawler.Paper {
	if maxResults <= 0 {
		maxResults = c.cfg.SearchMaxResults
	}
	query := url.Values{}
	query.Set("search_query", search)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	body, err := c.query(ctx, query)
	if err != nil {
		c.logger.Error("search failed", zap.String("query", search), zap.Error(err))
		return []crawler.Paper{}
	}
	papers := c.parser.ParseFeed(body)
	c.logger.Debug("search complete", zap.String("query", search), zap.Int("papers", len(papers)))
	return papers
}

// FetchRelated runs every configured related query and returns the union of
// results, first occurrence of each paper id kept.
func (c *Client) FetchRelated(ctx context.Context) []crawler.Paper {
	var all []crawler.Paper
	for _, q := range c.cfg.RelatedQueries {
		if ctx.Err() != nil {
			break
		}
		c.logger.Info("searching related papers", zap.String("query", q))
		all = append(all, c.Search(ctx, q, c.cfg.RelatedMaxResults)...)
	}
	return crawler.Dedupe(all)
}

// DownloadPDF fetches the PDF of paper with the download timeout and size cap.
func (c *Client) DownloadPDF(ctx context.Context, paper crawler.Paper) ([]byte, error) {
	target := paper.PDFURL
	if target == "" {
		target = PDFURL(paper.PaperID)
	}
	limit := c.cfg.MaxDownloadSize
	if limit <= 0 {
		limit = -1
	}
	resp, err := c.fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:         target,
		Timeout:     c.cfg.DownloadTimeout,
		MaxBodySize: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("download pdf %s: %w", paper.PaperID, err)
	}
	return resp.Body, nil
}

func (c *Client) query(ctx context.Context, query url.Values) ([]byte, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	endpoint.RawQuery = query.Encode()
	resp, err := c.fetcher.Fetch(ctx, crawler.FetchRequest{URL: endpoint.String(), Timeout: c.cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("query arxiv: %w", err)
	}
	return resp.Body, nil
}
