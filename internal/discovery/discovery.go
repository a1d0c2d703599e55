// Package discovery scans collected page elements against a fixed, ordered
// library of structural patterns. A structural match only produces a
// candidate; authorizing the action is the guardrail's job.
package discovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
)

var cancelWords = []string{"cancel", "unsubscribe", "end", "stop", "terminate"}

var confirmControlWords = []string{"confirm", "yes", "continue", "proceed", "ok"}

var navWords = []string{"account", "settings", "subscription", "membership", "billing"}

var confirmationPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)successfully cancelled`),
	regexp.MustCompile(`(?i)will be cancelled`),
	regexp.MustCompile(`(?i)membership ended`),
	regexp.MustCompile(`(?i)subscription ended`),
	regexp.MustCompile(`(?i)no longer active`),
	regexp.MustCompile(`(?i)cancelled`),
	regexp.MustCompile(`(?i)unsubscribed`),
}

const confirmationClassSelector = `[class*="confirmation"], [class*="success"]`

// CancelCandidates returns, in discovery order, elements whose text contains
// a cancellation word or whose class/id/data-action attributes contain
// "cancel".
func CancelCandidates(elems []browser.Element) []browser.Element {
	var out []browser.Element
	for _, el := range elems {
		text := strings.ToLower(el.Context.Text)
		if containsAny(text, cancelWords) || attrContains(el, "cancel") {
			out = append(out, el)
		}
	}
	return out
}

// ConfirmationControls returns dialog-style controls that would confirm an
// already initiated cancellation.
func ConfirmationControls(elems []browser.Element) []browser.Element {
	var out []browser.Element
	for _, el := range elems {
		if containsAny(strings.ToLower(el.Context.Text), confirmControlWords) {
			out = append(out, el)
		}
	}
	return out
}

// NavigationCandidates returns links likely to lead toward account or
// subscription management pages.
func NavigationCandidates(elems []browser.Element) []browser.Element {
	var out []browser.Element
	for _, el := range elems {
		text := strings.ToLower(el.Context.Text)
		class := strings.ToLower(el.Class)
		if containsAny(text, navWords) || containsAny(class, navWords) {
			out = append(out, el)
		}
	}
	return out
}

// Confirmation is a page-level signal that the cancellation took effect.
// Text is best-effort surrounding context for the matched phrase.
type Confirmation struct {
	Matched bool
	Text    string
}

// PageConfirmation probes the current page for confirmation signals: phrase
// matches over the body text, a confirmation/success class heuristic, and a
// URL heuristic. All probes degrade silently to "not found".
func PageConfirmation(ctx context.Context, d browser.Driver) Confirmation {
	body := d.BodyText(ctx)
	for _, re := range confirmationPhrases {
		if loc := re.FindStringIndex(body); loc != nil {
			return Confirmation{Matched: true, Text: lineAround(body, loc[0])}
		}
	}
	if d.ExistsVisible(ctx, confirmationClassSelector) {
		return Confirmation{Matched: true}
	}
	u := strings.ToLower(d.URL())
	if strings.Contains(u, "cancel") &&
		(strings.Contains(u, "confirm") || strings.Contains(u, "success") || strings.Contains(u, "complete")) {
		return Confirmation{Matched: true}
	}
	return Confirmation{}
}

// lineAround extracts the trimmed line of text containing the given offset.
func lineAround(body string, off int) string {
	start := strings.LastIndexByte(body[:off], '\n') + 1
	end := strings.IndexByte(body[off:], '\n')
	if end < 0 {
		end = len(body)
	} else {
		end += off
	}
	line := strings.TrimSpace(body[start:end])
	if len(line) > 200 {
		line = line[:200]
	}
	return line
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func attrContains(el browser.Element, word string) bool {
	return strings.Contains(strings.ToLower(el.Class), word) ||
		strings.Contains(strings.ToLower(el.ID), word) ||
		strings.Contains(strings.ToLower(el.DataAction), word)
}
