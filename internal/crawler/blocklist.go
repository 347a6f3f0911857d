package crawler

import (
	"slices"
	"strings"
)

// domainPatternBlocklist matches hosts against exact names and suffix wildcards.
type domainPatternBlocklist struct {
	exact    map[string]struct{}
	suffixes []string
}

// newDomainPatternBlocklist returns nil when patterns contain nothing usable,
// so callers can treat a nil list as "block nothing".
func newDomainPatternBlocklist(patterns []string) *domainPatternBlocklist {
	list := &domainPatternBlocklist{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.ToLower(strings.TrimSpace(raw))
		suffix, isWildcard := strings.CutPrefix(value, "*.")
		if !isWildcard {
			suffix, isWildcard = strings.CutPrefix(value, ".")
		}
		switch {
		case value == "":
		case isWildcard && suffix != "":
			if !slices.Contains(list.suffixes, suffix) {
				list.suffixes = append(list.suffixes, suffix)
			}
		case !isWildcard:
			list.exact[value] = struct{}{}
		}
	}
	if len(list.exact) == 0 && len(list.suffixes) == 0 {
		return nil
	}
	return list
}

// IsBlocked reports whether host matches a configured pattern. A wildcard
// pattern also blocks the bare suffix itself.
func (b *domainPatternBlocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	if _, ok := b.exact[host]; ok {
		return true
	}
	for _, suffix := range b.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
