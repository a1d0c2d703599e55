package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
)

func ctxWithText(text string) browser.ElementContext {
	return browser.ElementContext{TagName: "button", Text: text}
}

func TestEvaluateAllowedSubstring(t *testing.T) {
	policy := NewPolicy([]string{"cancel subscription"}, nil)

	tests := []struct {
		name    string
		ec      browser.ElementContext
		allowed bool
	}{
		{"exact text", ctxWithText("Cancel subscription"), true},
		{"substring of longer text", ctxWithText("Yes, cancel subscription now"), true},
		{"case insensitive", ctxWithText("CANCEL SUBSCRIPTION"), true},
		{"no match", ctxWithText("Keep my plan"), false},
		{"match via aria label", browser.ElementContext{Text: "X", AriaLabel: "Cancel subscription"}, true},
		{"match via title", browser.ElementContext{Title: "cancel subscription"}, true},
		{"hyphenated name does not match", browser.ElementContext{Name: "cancel-subscription-btn"}, false},
		{"match via value", browser.ElementContext{Value: "Cancel Subscription"}, true},
		{"match via nearby label", browser.ElementContext{Text: "Confirm", NearbyLabels: []string{"Cancel subscription?"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, Evaluate(tt.ec, policy).Allowed)
		})
	}
}

// Forbidden must override allowed for every phrase-set combination: an
// element matching both sides is never usable.
func TestForbiddenAlwaysOverridesAllowed(t *testing.T) {
	allowedSets := [][]string{
		{"cancel"},
		{"cancel subscription", "unsubscribe"},
		{"end membership", "cancel", "stop"},
	}
	forbiddenSets := [][]string{
		{"upgrade"},
		{"change plan", "upgrade"},
		{"payment", "change plan", "renew"},
	}
	// Surface matches one phrase from every allowed set and one from every
	// forbidden set above.
	ec := ctxWithText("Cancel subscription and upgrade / change plan / renew payment / stop / unsubscribe / end membership")

	for _, allowed := range allowedSets {
		for _, forbidden := range forbiddenSets {
			policy := NewPolicy(allowed, forbidden)
			verdict := Evaluate(ec, policy)
			assert.True(t, verdict.Allowed, "allowed=%v", allowed)
			assert.True(t, verdict.Forbidden, "forbidden=%v", forbidden)
			assert.False(t, verdict.Usable(), "allowed=%v forbidden=%v must never be usable", allowed, forbidden)
		}
	}
}

func TestEvaluateForbiddenOnly(t *testing.T) {
	policy := NewPolicy([]string{"cancel"}, []string{"upgrade"})

	verdict := Evaluate(ctxWithText("Upgrade your plan"), policy)
	assert.False(t, verdict.Allowed)
	assert.True(t, verdict.Forbidden)
	assert.False(t, verdict.Usable())
}

func TestEvaluateUsable(t *testing.T) {
	policy := NewPolicy([]string{"cancel"}, []string{"upgrade"})

	verdict := Evaluate(ctxWithText("Cancel my subscription"), policy)
	assert.True(t, verdict.Usable())
}

func TestNewPolicyNormalizes(t *testing.T) {
	policy := NewPolicy([]string{"  Cancel Subscription  ", ""}, []string{" UPGRADE "})
	assert.Equal(t, []string{"cancel subscription"}, policy.Allowed)
	assert.Equal(t, []string{"upgrade"}, policy.Forbidden)
}

func TestEvaluateEmptyForbiddenList(t *testing.T) {
	policy := NewPolicy([]string{"cancel"}, nil)
	verdict := Evaluate(ctxWithText("Cancel"), policy)
	assert.True(t, verdict.Usable())
}
