// Package blog scrapes post listings and full post bodies from blogs.
package blog

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/extract"
)

const (
	postSelector = "article.post"
	maxExcerpt   = 500
)

var (
	titleChain = []extract.Strategy{
		extract.Text("h2"),
		extract.Text("h1"),
	}
	authorChain = []extract.Strategy{
		extract.AttrOrText(".author", "content"),
		extract.AttrOrText("span.by", "content"),
		extract.AttrOrText("a[rel=author]", "content"),
	}
	dateChain = []extract.Strategy{
		extract.AttrOrText("time", "datetime"),
		extract.AttrOrText(".date", "datetime"),
		extract.AttrOrText(".published", "datetime"),
	}
	tagContainers  = []string{".tags", ".categories"}
	bodyContainers = []string{"article", "div.content", "div.post-content"}
)

// ParseListing extracts one Post per article.post container of a listing
// page. Bodies are left empty; relative links resolve against pageURL.
func ParseListing(body []byte, pageURL, source string) ([]crawler.Post, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &crawler.ParseError{Source: "blog listing", Cause: fmt.Errorf("parse page url: %w", err)}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &crawler.ParseError{Source: "blog listing", Cause: err}
	}

	posts := []crawler.Post{}
	doc.Find(postSelector).Each(func(_ int, article *goquery.Selection) {
		posts = append(posts, parseArticle(article, base, source))
	})
	return posts, nil
}

func parseArticle(article *goquery.Selection, base *url.URL, source string) crawler.Post {
	author, _ := extract.Chain(article, authorChain...)
	published, _ := extract.Chain(article, dateChain...)
	excerpt, _ := extract.Chain(article, extract.Text("p"))

	tags := []string{}
	if container := extract.FirstMatch(article, tagContainers...); container.Length() > 0 {
		tags = extract.Texts(container, "a")
	}

	return crawler.Post{
		URL:       postURL(article, base),
		Title:     extract.ChainOr(article, "", titleChain...),
		Author:    crawler.StrPtr(author),
		Published: crawler.StrPtr(published),
		Body:      "",
		Excerpt:   extract.Truncate(excerpt, maxExcerpt),
		Tags:      tags,
		Source:    source,
	}
}

// postURL resolves the first link of the article, falling back to the
// listing page itself.
func postURL(article *goquery.Selection, base *url.URL) string {
	href, ok := article.Find("a[href]").First().Attr("href")
	if !ok {
		return base.String()
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base.String()
	}
	resolved := base.ResolveReference(ref)
	if normalized, err := crawler.NormalizeURL(resolved.String()); err == nil {
		return normalized
	}
	return resolved.String()
}

// ParseBody extracts the full text of a post page: the first article,
// div.content or div.post-content container with scripts and styles
// dropped. A page without a container yields "".
func ParseBody(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &crawler.ParseError{Source: "blog post", Cause: err}
	}
	container := extract.FirstMatch(doc.Selection, bodyContainers...)
	if container.Length() == 0 {
		return "", nil
	}
	return extract.TextBlock(container, "script", "style"), nil
}
