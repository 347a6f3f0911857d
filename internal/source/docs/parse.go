// Package docs crawls documentation sites breadth-first and extracts one
// DocPage per page.
package docs

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/extract"
)

const (
	untitled       = "Untitled"
	defaultSection = "General"
)

var (
	titleChain = []extract.Strategy{
		extract.Text("h1"),
		extract.Text("title"),
	}
	contentContainers    = []string{"main", "article", ".documentation-content", ".doc-content"}
	breadcrumbContainers = []string{"nav.breadcrumbs", "ol.breadcrumb", ".breadcrumb"}
	strippedTags         = []string{"script", "style", "nav"}
)

// ParsePage extracts a DocPage and the raw href of every link on the page,
// in document order.
func ParsePage(body []byte, pageURL string) (crawler.DocPage, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.DocPage{}, nil, &crawler.ParseError{Source: "docs page", Cause: err}
	}
	root := doc.Selection

	breadcrumbs := []string{}
	if container := extract.FirstMatch(root, breadcrumbContainers...); container.Length() > 0 {
		breadcrumbs = extract.Texts(container, "a")
	}
	section, subsection := Sections(breadcrumbs)

	content := ""
	if container := extract.FirstMatch(root, contentContainers...); container.Length() > 0 {
		content = extract.TextBlock(container, strippedTags...)
	}

	var hrefs []string
	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		hrefs = append(hrefs, href)
	})

	return crawler.DocPage{
		URL:         pageURL,
		Title:       extract.ChainOr(root, untitled, titleChain...),
		Body:        content,
		Section:     section,
		Subsection:  subsection,
		Breadcrumbs: breadcrumbs,
	}, hrefs, nil
}

// Sections derives the section and subsection from breadcrumb labels.
func Sections(breadcrumbs []string) (string, *string) {
	section := defaultSection
	if len(breadcrumbs) > 0 {
		section = breadcrumbs[0]
	}
	var subsection *string
	if len(breadcrumbs) > 1 {
		sub := breadcrumbs[1]
		subsection = &sub
	}
	return section, subsection
}
