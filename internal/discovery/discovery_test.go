package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
	"github.com/polzovatel/subscription-cancel-agent/internal/browser/browsertest"
)

func elem(selector, text string) browser.Element {
	return browser.Element{
		Selector: selector,
		Context:  browser.ElementContext{TagName: "button", Text: text},
	}
}

func TestCancelCandidates(t *testing.T) {
	byClass := browser.Element{Selector: "#x1", Class: "btn btn-cancel-flow"}
	byID := browser.Element{Selector: "#x2", ID: "cancel-membership"}
	byDataAction := browser.Element{Selector: "#x3", DataAction: "cancel-subscription"}

	elems := []browser.Element{
		elem("#keep", "Keep my plan"),
		elem("#a", "Cancel subscription"),
		elem("#b", "Unsubscribe from newsletter"),
		elem("#c", "End membership"),
		elem("#d", "Stop service"),
		elem("#e", "Terminate account"),
		byClass,
		byID,
		byDataAction,
		elem("#upgrade", "Upgrade"),
	}

	got := CancelCandidates(elems)
	require.Len(t, got, 8)
	// Discovery order is preserved.
	assert.Equal(t, "#a", got[0].Selector)
	assert.Equal(t, "#x3", got[7].Selector)
}

func TestCancelCandidatesCaseInsensitive(t *testing.T) {
	got := CancelCandidates([]browser.Element{elem("#a", "CANCEL MY PLAN")})
	assert.Len(t, got, 1)
}

func TestConfirmationControls(t *testing.T) {
	elems := []browser.Element{
		elem("#no", "Never mind"),
		elem("#yes", "Yes, cancel it"),
		elem("#cont", "Continue"),
		elem("#proceed", "Proceed"),
		elem("#confirm", "Confirm cancellation"),
	}
	got := ConfirmationControls(elems)
	require.Len(t, got, 4)
	assert.Equal(t, "#yes", got[0].Selector)
}

func TestNavigationCandidates(t *testing.T) {
	byClass := browser.Element{Selector: "#nav", Class: "nav-billing-link", Context: browser.ElementContext{TagName: "a", Text: "More"}}
	elems := []browser.Element{
		elem("#acct", "Account"),
		elem("#set", "Settings"),
		elem("#sub", "My Subscription"),
		elem("#mem", "Membership"),
		elem("#help", "Help center"),
		byClass,
	}
	got := NavigationCandidates(elems)
	require.Len(t, got, 5)
	assert.Equal(t, "#acct", got[0].Selector)
	assert.Equal(t, "#nav", got[4].Selector)
}

func TestPageConfirmationPhrases(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		matched bool
		text    string
	}{
		{
			"cancelled phrase with line extraction",
			"Account\nYour subscription has been cancelled.\nThanks",
			true,
			"Your subscription has been cancelled.",
		},
		{"unsubscribed", "You are now unsubscribed", true, "You are now unsubscribed"},
		{"membership ended", "Your membership ended today", true, "Your membership ended today"},
		{"no longer active", "This plan is no longer active", true, "This plan is no longer active"},
		{"plain cancel is not confirmation", "Cancel your subscription here", false, ""},
		{"empty body", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := browsertest.NewDriver().AddPage(&browsertest.Page{
				URL:  "https://billing.example.test/account",
				Body: tt.body,
			})
			require.NoError(t, d.Navigate(context.Background(), "https://billing.example.test/account"))

			conf := PageConfirmation(context.Background(), d)
			assert.Equal(t, tt.matched, conf.Matched)
			assert.Equal(t, tt.text, conf.Text)
		})
	}
}

func TestPageConfirmationClassHeuristic(t *testing.T) {
	d := browsertest.NewDriver().AddPage(&browsertest.Page{
		URL:              "https://billing.example.test/account",
		Body:             "nothing to see",
		VisibleSelectors: []string{confirmationClassSelector},
	})
	require.NoError(t, d.Navigate(context.Background(), "https://billing.example.test/account"))

	conf := PageConfirmation(context.Background(), d)
	assert.True(t, conf.Matched)
	assert.Empty(t, conf.Text)
}

func TestPageConfirmationURLHeuristic(t *testing.T) {
	tests := []struct {
		url     string
		matched bool
	}{
		{"https://billing.example.test/cancel/success", true},
		{"https://billing.example.test/cancel-confirm", true},
		{"https://billing.example.test/cancel/complete", true},
		{"https://billing.example.test/cancel", false},
		{"https://billing.example.test/success", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d := browsertest.NewDriver().AddPage(&browsertest.Page{URL: tt.url})
			require.NoError(t, d.Navigate(context.Background(), tt.url))
			assert.Equal(t, tt.matched, PageConfirmation(context.Background(), d).Matched)
		})
	}
}
