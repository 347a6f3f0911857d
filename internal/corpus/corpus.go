// Package corpus persists records as one JSON document per record.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/hash/sha256"
	"github.com/JakeFAU/research-harvester/internal/metrics"
)

const (
	// IndexName is the object name of the docs crawl index.
	IndexName = "index.json"

	maxSlugRunes   = 50
	fallbackDigits = 16
	suffixDigits   = 8
	jsonType       = "application/json"
)

// Writer saves records through a blob store rooted at the output directory.
type Writer struct {
	store  crawler.BlobStore
	hasher crawler.Hasher
	logger *zap.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithHasher overrides the content hasher.
func WithHasher(h crawler.Hasher) Option {
	return func(w *Writer) {
		if h != nil {
			w.hasher = h
		}
	}
}

// WithLogger sets the writer logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter builds a Writer on store.
func NewWriter(store crawler.BlobStore, opts ...Option) *Writer {
	w := &Writer{
		store:  store,
		hasher: sha256.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Save writes record as {stem}.json, overwriting any previous version, and
// returns the URI reported by the blob store. The content hash is filled in
// from the record body before writing.
func (w *Writer) Save(ctx context.Context, record crawler.Record) (string, error) {
	hashed, err := w.withContentHash(record)
	if err != nil {
		return "", err
	}
	uri, err := w.putJSON(ctx, Stem(record)+".json", hashed)
	if err != nil {
		metrics.ObserveSave("error")
		return "", fmt.Errorf("save %s %s: %w", record.Tag(), record.Key(), err)
	}
	metrics.ObserveSave("ok")
	w.logger.Debug("record saved", zap.String("key", record.Key()), zap.String("uri", uri))
	return uri, nil
}

// SaveIndex writes the aggregate index as index.json.
func (w *Writer) SaveIndex(ctx context.Context, index any) (string, error) {
	uri, err := w.putJSON(ctx, IndexName, index)
	if err != nil {
		return "", fmt.Errorf("save index: %w", err)
	}
	return uri, nil
}

// SaveBinary writes raw bytes as {stem}{ext}, e.g. a paper PDF next to its
// metadata.
func (w *Writer) SaveBinary(ctx context.Context, stem, ext, contentType string, data []byte) (string, error) {
	name := sanitize(stem)
	if name == "" {
		return "", errors.New("save binary: empty file stem")
	}
	uri, err := w.store.PutObject(ctx, name+ext, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("save binary %s%s: %w", name, ext, err)
	}
	return uri, nil
}

// SaveAll saves every record, logging and counting failures instead of
// stopping. It returns the URIs of the saved records in input order.
func SaveAll[R crawler.Record](ctx context.Context, w *Writer, records []R) ([]string, int) {
	uris := make([]string, 0, len(records))
	failures := 0
	for _, record := range records {
		uri, err := w.Save(ctx, record)
		if err != nil {
			w.logger.Error("save failed", zap.String("key", record.Key()), zap.Error(err))
			failures++
			continue
		}
		uris = append(uris, uri)
	}
	return uris, failures
}

func (w *Writer) putJSON(ctx context.Context, name string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	uri, err := w.store.PutObject(ctx, name, jsonType, &buf)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	return uri, nil
}

func (w *Writer) withContentHash(record crawler.Record) (crawler.Record, error) {
	digest, err := w.hasher.Hash([]byte(record.Content()))
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", record.Key(), err)
	}
	switch r := record.(type) {
	case crawler.Paper:
		r.ContentHash = digest
		return r, nil
	case crawler.Post:
		r.ContentHash = digest
		return r, nil
	case crawler.DocPage:
		r.ContentHash = digest
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported record type %T", record)
	}
}

// Stem derives the file stem of a record. Papers use their id; posts and doc
// pages use their URL path, or a title slug for root URLs. Unsafe characters
// become "_" and an empty result falls back to a digest of the identity.
// URLs carrying a query, and pages whose stem would shadow the aggregate
// index, get a digest suffix so distinct records never share a file.
func Stem(record crawler.Record) string {
	var (
		stem   string
		suffix bool
	)
	switch record.Tag() {
	case crawler.SourceArxiv:
		stem = strings.ReplaceAll(record.Key(), "/", "_")
	default:
		var query string
		stem, query = urlStem(record.Key())
		if stem == "" {
			stem = titleSlug(record.Headline())
		}
		suffix = query != ""
	}
	stem = sanitize(stem)
	if strings.Trim(stem, "_") == "" {
		return sha256.Short(record.Key(), fallbackDigits)
	}
	if suffix || isReserved(stem) {
		stem += "_" + sha256.Short(record.Key(), suffixDigits)
	}
	return stem
}

func isReserved(stem string) bool {
	return strings.EqualFold(stem+".json", IndexName)
}

func urlStem(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	return strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_"), u.RawQuery
}

func titleSlug(title string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
	runes := []rune(slug)
	if len(runes) > maxSlugRunes {
		runes = runes[:maxSlugRunes]
	}
	return string(runes)
}

func sanitize(stem string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, stem)
}
