package guardrail

import (
	"net/url"
	"strings"
)

// URLPolicy is the navigation allowlist derived from the request's target
// URLs. It is the only gate between "the agent could go anywhere" and "the
// agent only visits hosts the caller pointed it at".
type URLPolicy struct {
	hosts map[string]struct{}
}

// NewURLPolicy collects the hosts of the given URLs; empty and unparsable
// entries are skipped.
func NewURLPolicy(urls ...string) URLPolicy {
	hosts := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts[strings.ToLower(u.Hostname())] = struct{}{}
	}
	return URLPolicy{hosts: hosts}
}

// Allows reports whether the URL may be navigated to: http(s) only, and the
// host must match an allowed host or be a subdomain of one.
func (p URLPolicy) Allows(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if _, ok := p.hosts[host]; ok {
		return true
	}
	for allowed := range p.hosts {
		if strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
