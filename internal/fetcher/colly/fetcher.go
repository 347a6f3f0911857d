// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// ErrBodyTruncated reports a response body larger than the configured cap.
var ErrBodyTruncated = errors.New("response body exceeds size limit")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// Timeout applies when a request carries no timeout of its own.
	Timeout time.Duration
	// MaxBodySize caps response bodies in bytes. Zero keeps colly's default
	// and negative values disable the cap. Bodies over the cap fail with
	// ErrBodyTruncated instead of being cut short.
	MaxBodySize int
	// Source labels fetch metrics.
	Source string
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	// bodyLimit is the default cap in bytes; negative means unlimited.
	bodyLimit int
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	limit := c.MaxBodySize
	switch {
	case cfg.MaxBodySize > 0:
		limit = cfg.MaxBodySize
	case cfg.MaxBodySize < 0 || limit <= 0:
		limit = -1
	}

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		bodyLimit:     limit,
	}
}

// Fetch executes a single HTTP GET. Non-2xx responses and transport failures
// are returned as *crawler.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr *crawler.FetchError
	)
	start := time.Now()
	collector, limit := f.buildCollector(request)
	f.configureCollectorHooks(collector, request, limit, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		f.observe(err, crawler.FetchResponse{})
		return crawler.FetchResponse{}, err
	}
	f.observe(nil, result)
	return result, nil
}

// buildCollector clones the base collector for one request and returns the
// body cap that applies to it. Colly reads one byte past the cap so an
// oversized body can be told apart from one that fits exactly.
func (f *Fetcher) buildCollector(request crawler.FetchRequest) (*colly.Collector, int) {
	collector := f.baseCollector.Clone()
	// Statuses are classified in OnResponse.
	collector.ParseHTTPErrorResponse = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := request.Timeout
	if timeout == 0 {
		timeout = f.cfg.Timeout
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	limit := f.bodyLimit
	if request.MaxBodySize > 0 {
		limit = request.MaxBodySize
	} else if request.MaxBodySize < 0 {
		limit = -1
	}
	if limit < 0 {
		collector.MaxBodySize = 0
	} else {
		collector.MaxBodySize = limit + 1
	}
	return collector, limit
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.FetchRequest,
	limit int,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr **crawler.FetchError,
) {
	hooks.OnRequest(func(r *colly.Request) {
		if f.cfg.UserAgent != "" {
			r.Headers.Set("User-Agent", f.cfg.UserAgent)
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			*fetchErr = &crawler.FetchError{
				URL:        request.URL,
				StatusCode: r.StatusCode,
				Cause:      errors.New(statusText(r.StatusCode)),
			}
			return
		}
		if limit >= 0 && len(r.Body) > limit {
			*fetchErr = &crawler.FetchError{
				URL:        request.URL,
				StatusCode: r.StatusCode,
				Cause:      fmt.Errorf("%w: more than %d bytes", ErrBodyTruncated, limit),
			}
			return
		}
		finalURL := request.URL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = crawler.FetchResponse{
			URL:        finalURL,
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		*fetchErr = &crawler.FetchError{URL: request.URL, StatusCode: status, Cause: err}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr **crawler.FetchError) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &crawler.FetchError{URL: url, Cause: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return &crawler.FetchError{URL: url, Cause: fmt.Errorf("colly visit failed: %w", err)}
		}
		return nil
	}
}

func (f *Fetcher) observe(err error, result crawler.FetchResponse) {
	if f.cfg.Source == "" {
		return
	}
	if err == nil {
		metrics.ObserveFetch(f.cfg.Source, strconv.Itoa(result.StatusCode), len(result.Body))
		return
	}
	status := "error"
	var fe *crawler.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		status = strconv.Itoa(fe.StatusCode)
	}
	metrics.ObserveFetch(f.cfg.Source, status, 0)
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "unexpected status " + strconv.Itoa(code)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
