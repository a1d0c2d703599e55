// Package guardrail holds the pure decision functions standing between the
// agent and the page: the allow/forbid intent policy gating every click, and
// the host allowlist gating every navigation. Nothing here performs I/O.
package guardrail

import (
	"strings"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
)

// Policy is an ordered allow/forbid phrase set. Matching is case-insensitive
// substring matching over the element's combined signal surface; no token
// boundaries, no fuzziness.
type Policy struct {
	Allowed   []string
	Forbidden []string
}

// NewPolicy lowercases the phrases once so Evaluate can stay cheap.
func NewPolicy(allowed, forbidden []string) Policy {
	return Policy{
		Allowed:   lowerAll(allowed),
		Forbidden: lowerAll(forbidden),
	}
}

// Verdict is the result of evaluating one element against one policy.
type Verdict struct {
	Allowed   bool
	Forbidden bool
}

// Usable reports whether the element may be clicked. Forbidden always
// overrides allowed; this is the single safety invariant of the system and
// must never be weakened.
func (v Verdict) Usable() bool {
	return v.Allowed && !v.Forbidden
}

// Evaluate matches the policy against every textual signal the element
// exposes, concatenated into one lowercase surface.
func Evaluate(ec browser.ElementContext, p Policy) Verdict {
	surface := signalSurface(ec)
	return Verdict{
		Allowed:   matchesAny(surface, p.Allowed),
		Forbidden: matchesAny(surface, p.Forbidden),
	}
}

func signalSurface(ec browser.ElementContext) string {
	parts := []string{ec.Text, ec.AriaLabel, ec.Title, ec.Name, ec.Value, ec.Role}
	parts = append(parts, ec.NearbyLabels...)
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesAny(surface string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(surface, phrase) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
