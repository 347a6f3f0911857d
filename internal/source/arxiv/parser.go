// Package arxiv harvests paper metadata from the arXiv Atom API.
package arxiv

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/logging"
)

// XML namespaces used by the arXiv API.
const (
	NamespaceAtom  = "http://www.w3.org/2005/Atom"
	NamespaceArxiv = "http://arxiv.org/schemas/atom"
)

const (
	pdfURLTemplate = "https://arxiv.org/pdf/%s.pdf"
	absURLTemplate = "https://arxiv.org/abs/%s"
	absMarker      = "/abs/"
)

var namespaces = map[string]string{
	"atom":  NamespaceAtom,
	"arxiv": NamespaceArxiv,
}

var (
	entryExpr      = mustCompile("//atom:entry")
	idExpr         = mustCompile("atom:id")
	titleExpr      = mustCompile("atom:title")
	summaryExpr    = mustCompile("atom:summary")
	publishedExpr  = mustCompile("atom:published")
	updatedExpr    = mustCompile("atom:updated")
	authorNameExpr = mustCompile("atom:author/atom:name")
	categoryExpr   = mustCompile("atom:category")
	doiExpr        = mustCompile("arxiv:doi")
	journalRefExpr = mustCompile("arxiv:journal_ref")

	titleBreaks = regexp.MustCompile(`\s*\n\s*`)
)

func mustCompile(expr string) *xpath.Expr {
	compiled, err := xpath.CompileWithNS(expr, namespaces)
	if err != nil {
		panic(fmt.Sprintf("compile xpath %q: %v", expr, err))
	}
	return compiled
}

// PDFURL returns the PDF location of paper id.
func PDFURL(id string) string { return fmt.Sprintf(pdfURLTemplate, id) }

// AbsURL returns the abstract page of paper id.
func AbsURL(id string) string { return fmt.Sprintf(absURLTemplate, id) }

// Parser turns Atom feeds into Papers.
type Parser struct {
	logger *zap.Logger
}

// NewParser builds a Parser.
func NewParser(logger *zap.Logger) *Parser {
	logger = logging.OrNop(logger)
	return &Parser{logger: logger}
}

// ParseEntry extracts the first entry of a feed. A feed without entries
// reports found=false and no error; malformed XML or an entry missing a
// required field is a *crawler.ParseError.
func (p *Parser) ParseEntry(data []byte) (crawler.Paper, bool, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return crawler.Paper{}, false, &crawler.ParseError{Source: "arxiv entry", Cause: err}
	}
	entry := xmlquery.QuerySelector(doc, entryExpr)
	if entry == nil {
		return crawler.Paper{}, false, nil
	}
	paper, err := parsePaper(entry)
	if err != nil {
		return crawler.Paper{}, false, &crawler.ParseError{Source: "arxiv entry", Cause: err}
	}
	return paper, true, nil
}

// ParseFeed extracts every well-formed entry of a feed. Malformed XML yields
// no papers and entries missing required fields are skipped; both are logged.
func (p *Parser) ParseFeed(data []byte) []crawler.Paper {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		p.logger.Warn("malformed arxiv feed", zap.Error(err))
		return []crawler.Paper{}
	}
	entries := xmlquery.QuerySelectorAll(doc, entryExpr)
	papers := make([]crawler.Paper, 0, len(entries))
	for i, entry := range entries {
		paper, err := parsePaper(entry)
		if err != nil {
			p.logger.Warn("skipping arxiv entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		papers = append(papers, paper)
	}
	return papers
}

func parsePaper(entry *xmlquery.Node) (crawler.Paper, error) {
	var missing []string
	required := func(name string, expr *xpath.Expr) string {
		node := xmlquery.QuerySelector(entry, expr)
		if node == nil {
			missing = append(missing, name)
			return ""
		}
		return node.InnerText()
	}

	rawID := required("id", idExpr)
	rawTitle := required("title", titleExpr)
	summary := required("summary", summaryExpr)
	published := required("published", publishedExpr)
	updated := required("updated", updatedExpr)
	if len(missing) > 0 {
		return crawler.Paper{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	id := paperID(rawID)
	if id == "" {
		return crawler.Paper{}, errors.New("empty paper id")
	}

	authors := []string{}
	for _, name := range xmlquery.QuerySelectorAll(entry, authorNameExpr) {
		authors = append(authors, strings.TrimSpace(name.InnerText()))
	}
	categories := []string{}
	for _, category := range xmlquery.QuerySelectorAll(entry, categoryExpr) {
		categories = append(categories, category.SelectAttr("term"))
	}

	return crawler.Paper{
		PaperID:    id,
		Title:      normalizeTitle(rawTitle),
		Authors:    authors,
		Abstract:   strings.TrimSpace(summary),
		Published:  strings.TrimSpace(published),
		Updated:    strings.TrimSpace(updated),
		PDFURL:     PDFURL(id),
		ArxivURL:   AbsURL(id),
		Categories: categories,
		DOI:        optionalText(entry, doiExpr),
		JournalRef: optionalText(entry, journalRefExpr),
	}, nil
}

// paperID returns the text after the last "/abs/" of an entry id.
func paperID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, absMarker); i >= 0 {
		return raw[i+len(absMarker):]
	}
	return raw
}

func normalizeTitle(raw string) string {
	return titleBreaks.ReplaceAllString(strings.TrimSpace(raw), " ")
}

func optionalText(entry *xmlquery.Node, expr *xpath.Expr) *string {
	node := xmlquery.QuerySelector(entry, expr)
	if node == nil {
		return nil
	}
	text := strings.TrimSpace(node.InnerText())
	return &text
}
