// Package extract provides the selector strategy chains shared by the HTML
// sources: ordered fallbacks where the first strategy that matches wins.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy extracts a value from a selection. ok reports whether the
// strategy matched, even when the matched value is empty.
type Strategy func(root *goquery.Selection) (value string, ok bool)

// Chain runs strategies in order and returns the first match.
func Chain(root *goquery.Selection, strategies ...Strategy) (string, bool) {
	for _, strategy := range strategies {
		if value, ok := strategy(root); ok {
			return value, true
		}
	}
	return "", false
}

// ChainOr is Chain with a fallback value when nothing matches.
func ChainOr(root *goquery.Selection, fallback string, strategies ...Strategy) string {
	if value, ok := Chain(root, strategies...); ok {
		return value
	}
	return fallback
}

// Text matches the first element for selector and yields its text with
// whitespace collapsed.
func Text(selector string) Strategy {
	return func(root *goquery.Selection) (string, bool) {
		match := root.Find(selector).First()
		if match.Length() == 0 {
			return "", false
		}
		return CollapseWhitespace(match.Text()), true
	}
}

// AttrOrText matches the first element for selector and yields the named
// attribute when present, otherwise its trimmed text.
func AttrOrText(selector, attr string) Strategy {
	return func(root *goquery.Selection) (string, bool) {
		match := root.Find(selector).First()
		if match.Length() == 0 {
			return "", false
		}
		if value, ok := match.Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
		return CollapseWhitespace(match.Text()), true
	}
}

// FirstMatch returns the first element matched by the earliest selector in
// the list that matches anything, or an empty selection.
func FirstMatch(root *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, selector := range selectors {
		if match := root.Find(selector).First(); match.Length() > 0 {
			return match
		}
	}
	return root.Slice(0, 0)
}

// Texts returns the whitespace-collapsed text of every element matching
// selector under root, in document order.
func Texts(root *goquery.Selection, selector string) []string {
	out := []string{}
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, CollapseWhitespace(s.Text()))
	})
	return out
}

// TextBlock flattens the selection into its non-empty text nodes, trimmed and
// joined with "\n". Subtrees rooted at any of the skip tags are ignored; the
// document itself is not modified.
func TextBlock(sel *goquery.Selection, skip ...string) string {
	skipped := make(map[string]struct{}, len(skip))
	for _, tag := range skip {
		skipped[tag] = struct{}{}
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
			return
		case html.ElementNode:
			if _, ok := skipped[n.Data]; ok {
				return
			}
		case html.CommentNode:
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// CollapseWhitespace replaces every run of whitespace with one space and
// trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
