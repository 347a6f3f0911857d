package crawler

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports, sorts query parameters
// and removes fragments. An empty path becomes "/".
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return normalize(u).String(), nil
}

func normalize(u *url.URL) *url.URL {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	out.Host = strings.ToLower(out.Host)

	if out.Scheme == "http" && strings.HasSuffix(out.Host, ":80") {
		out.Host = strings.TrimSuffix(out.Host, ":80")
	}
	if out.Scheme == "https" && strings.HasSuffix(out.Host, ":443") {
		out.Host = strings.TrimSuffix(out.Host, ":443")
	}
	if out.Path == "" && out.Host != "" {
		out.Path = "/"
	}

	out.Fragment = ""
	out.RawFragment = ""
	if out.RawQuery != "" {
		out.RawQuery = out.Query().Encode()
	}
	return &out
}

// Scope decides whether discovered links belong to the crawled site.
type Scope struct {
	host   string
	domain string
}

// NewScope builds the crawl scope for a seed URL.
func NewScope(seed string) (Scope, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return Scope{}, fmt.Errorf("parse seed: %w", err)
	}
	if u.Host == "" {
		return Scope{}, fmt.Errorf("seed %q has no host", seed)
	}
	n := normalize(u)
	return Scope{host: n.Host, domain: registrableDomain(n.Hostname())}, nil
}

// Contains reports whether u is on the same host or registrable domain as the seed.
func (s Scope) Contains(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	n := normalize(u)
	if n.Host == s.host {
		return true
	}
	if s.domain == "" {
		return false
	}
	return registrableDomain(n.Hostname()) == s.domain
}

// SiteKey groups URLs the way Scope does: the registrable domain of the host,
// or the host itself (port included) for IPs and bare suffixes. Hosts sharing
// a key belong to one site for pacing purposes.
func SiteKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	n := normalize(u)
	if domain := registrableDomain(n.Hostname()); domain != "" {
		return domain
	}
	return n.Host
}

// registrableDomain returns the eTLD+1 of host, or "" for IPs and bare suffixes.
func registrableDomain(host string) string {
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return strings.ToLower(domain)
}

// ResolveLinks turns raw href values from page into normalized absolute URLs.
// Links outside scope, non-HTTP schemes and anchor-only links are dropped;
// the order of hrefs is preserved.
func ResolveLinks(page string, hrefs []string, scope Scope) []string {
	base, err := url.Parse(page)
	if err != nil {
		return nil
	}
	self := normalize(base).String()
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if !scope.Contains(abs) {
			continue
		}
		target := normalize(abs).String()
		if abs.Fragment != "" && target == self {
			continue
		}
		out = append(out, target)
	}
	return out
}
