package crawler

import (
	"net/http"
	"time"
)

// SourceTag identifies which adapter produced a record.
type SourceTag string

// Source tags persisted with every record.
const (
	SourceArxiv SourceTag = "arxiv"
	SourceBlog  SourceTag = "blog"
	SourceDocs  SourceTag = "docs"
)

// Record is the normalized unit of the corpus. The set of implementations is
// closed: Paper, Post and DocPage.
type Record interface {
	// Key returns the natural key of the record within its source.
	Key() string
	// Headline returns the whitespace-normalized title.
	Headline() string
	// Content returns the primary textual payload, possibly empty.
	Content() string
	// Tag reports the adapter that produced the record.
	Tag() SourceTag

	isRecord()
}

// Paper is research-paper metadata returned by the arXiv API.
type Paper struct {
	PaperID     string   `json:"paper_id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Abstract    string   `json:"abstract"`
	Published   string   `json:"published"`
	Updated     string   `json:"updated"`
	PDFURL      string   `json:"pdf_url"`
	ArxivURL    string   `json:"arxiv_url"`
	Categories  []string `json:"categories"`
	DOI         *string  `json:"doi"`
	JournalRef  *string  `json:"journal_ref"`
	ContentHash string   `json:"content_hash,omitempty"`
}

// Key implements Record.
func (p Paper) Key() string { return p.PaperID }

// Headline implements Record.
func (p Paper) Headline() string { return p.Title }

// Content implements Record.
func (p Paper) Content() string { return p.Abstract }

// Tag implements Record.
func (Paper) Tag() SourceTag { return SourceArxiv }

func (Paper) isRecord() {}

// Post is a blog post scraped from a listing page.
type Post struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Author      *string  `json:"author"`
	Published   *string  `json:"published"`
	Body        string   `json:"content"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	Source      string   `json:"source"`
	ContentHash string   `json:"content_hash,omitempty"`
}

// Key implements Record.
func (p Post) Key() string { return p.URL }

// Headline implements Record.
func (p Post) Headline() string { return p.Title }

// Content implements Record.
func (p Post) Content() string { return p.Body }

// Tag implements Record.
func (Post) Tag() SourceTag { return SourceBlog }

func (Post) isRecord() {}

// DocPage is one page of a documentation site.
type DocPage struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Body        string   `json:"content"`
	Section     string   `json:"section"`
	Subsection  *string  `json:"subsection"`
	Breadcrumbs []string `json:"breadcrumbs"`
	ContentHash string   `json:"content_hash,omitempty"`
}

// Key implements Record.
func (d DocPage) Key() string { return d.URL }

// Headline implements Record.
func (d DocPage) Headline() string { return d.Title }

// Content implements Record.
func (d DocPage) Content() string { return d.Body }

// Tag implements Record.
func (DocPage) Tag() SourceTag { return SourceDocs }

func (DocPage) isRecord() {}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL string
	// Timeout overrides the fetcher default when positive.
	Timeout time.Duration
	// MaxBodySize overrides the fetcher body cap when non-zero. Negative
	// values lift the cap entirely.
	MaxBodySize int
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// RunSummary describes one harvest run once it has finished.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Source     SourceTag `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Records    int       `json:"records"`
	Failures   int       `json:"failures"`
	Paths      []string  `json:"paths"`
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
