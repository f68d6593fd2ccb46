// Package origin decides which embedding origins may call the gateway.
//
// The widget runs inside an iframe on third-party pages, so the browser's
// Origin header is the only signal of who is embedding it. Matching is a
// pure function over an immutable rule set built once at startup.
package origin

import (
	"net/url"
	"strings"
)

// RuleSet holds the origins permitted to talk to the gateway. It is never
// mutated after construction, so concurrent readers need no synchronization.
type RuleSet struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewRuleSet builds a RuleSet from exact origin strings (e.g.
// "https://support.acme.com") and host-suffix patterns (e.g. ".zendesk.com").
// Exact entries are normalized by stripping a trailing slash; suffix entries
// gain a leading dot when missing so that "zendesk.com" cannot match
// "evilzendesk.com".
func NewRuleSet(exact, suffixes []string) *RuleSet {
	rs := &RuleSet{exact: make(map[string]struct{}, len(exact))}
	for _, o := range exact {
		if o = normalize(o); o != "" {
			rs.exact[o] = struct{}{}
		}
	}
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		rs.suffixes = append(rs.suffixes, s)
	}
	return rs
}

// Allow reports whether a caller with the given Origin header value may
// receive a response. An empty origin (curl, health probes, same-origin
// requests) is always allowed.
func (rs *RuleSet) Allow(origin string) bool {
	if origin == "" {
		return true
	}
	norm := normalize(origin)
	if _, ok := rs.exact[norm]; ok {
		return true
	}

	u, err := url.Parse(norm)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	for _, sfx := range rs.suffixes {
		// The apex itself counts: ".zendesk.com" admits "zendesk.com".
		if host == sfx[1:] || strings.HasSuffix(host, sfx) {
			return true
		}
	}
	return false
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(origin), "/"))
}
