package blog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	collyfetcher "github.com/JakeFAU/research-harvester/internal/fetcher/colly"
)

func newBlogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/blog", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
			<article class="post"><h2>MonadBFT update</h2><a href="/posts/one">more</a><p>Intro</p></article>
			<article class="post"><h2>Cooking tips</h2><a href="/posts/two">more</a><p>Pasta</p></article>
			<article class="post"><h2>Gone</h2><a href="/posts/missing">more</a></article>
		</body></html>`)
	})
	mux.HandleFunc("/other", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<article class="post"><h2>MonadBFT update</h2><a href="/posts/one">more</a></article>`)
	})
	mux.HandleFunc("/posts/one", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<article><p>Consensus details.</p></article>`)
	})
	mux.HandleFunc("/posts/two", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<div class="content"><p>Boil water.</p></div>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper() *Scraper {
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second})
	return NewScraper(fetcher, zap.NewNop())
}

func TestScrapeFetchesBodies(t *testing.T) {
	t.Parallel()

	srv := newBlogServer(t)
	posts, err := newTestScraper().Scrape(context.Background(), "example", srv.URL+"/blog")
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, srv.URL+"/posts/one", posts[0].URL)
	assert.Equal(t, "Consensus details.", posts[0].Body)
	assert.Equal(t, "Boil water.", posts[1].Body)
	assert.Empty(t, posts[2].Body, "a failed body fetch degrades to empty content")
}

func TestScrapeListingFailure(t *testing.T) {
	t.Parallel()

	srv := newBlogServer(t)
	_, err := newTestScraper().Scrape(context.Background(), "example", srv.URL+"/nope")
	require.Error(t, err)
}

func TestScrapeAllDeduplicatesAcrossSources(t *testing.T) {
	t.Parallel()

	srv := newBlogServer(t)
	posts := newTestScraper().ScrapeAll(context.Background(), map[string]string{
		"b_other":  srv.URL + "/other",
		"a_main":   srv.URL + "/blog",
		"c_broken": srv.URL + "/nope",
	})
	require.Len(t, posts, 3)
	assert.Equal(t, "a_main", posts[0].Source, "sources run in name order")
}

func TestFilterByKeywords(t *testing.T) {
	t.Parallel()

	posts := []crawler.Post{
		{URL: "a", Title: "MonadBFT update"},
		{URL: "b", Title: "Cooking tips", Body: "Boil water."},
		{URL: "c", Title: "Weekly notes", Tags: []string{"Byzantine"}},
		{URL: "d", Title: "Roadmap", Body: "We reached FINALITY."},
	}

	got := FilterByKeywords(posts, nil)
	urls := make([]string, 0, len(got))
	for _, p := range got {
		urls = append(urls, p.URL)
	}
	assert.Equal(t, []string{"a", "c", "d"}, urls)

	assert.Len(t, FilterByKeywords(posts, []string{"  PASTA ", "water"}), 1)
	assert.Empty(t, FilterByKeywords(nil, nil))
}
