// Package crawler holds the source-independent half of the harvest pipeline:
// the normalized record model, fetch and storage contracts, typed errors,
// the crawl frontier with its breadth-first traverser, request pacing and
// deduplication. Source adapters live under internal/source.
package crawler
