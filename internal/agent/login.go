package agent

import (
	"context"
	"time"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
	"github.com/polzovatel/subscription-cancel-agent/internal/request"
)

const (
	loginFormWait = 5 * time.Second

	// Disjunction of credential-field heuristics: email-typed inputs, or
	// names containing "email" or "user".
	credentialFieldSelector = `input[type="email"], input[name*="email" i], input[name*="user" i]`
	passwordFieldSelector   = `input[type="password"]`
)

// Small fixed set of login/submit controls, tried in order.
var loginSubmitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button[name*="login" i]`,
	`button[id*="login" i]`,
	`[data-action*="login"]`,
}

// login runs the conditional credential flow on the current page. It reports
// success as a boolean instead of an error; the caller turns false into the
// LOGIN_FAILED terminal. Login is never retried within one invocation.
func (m *Machine) login(ctx context.Context, d browser.Driver, creds *request.Credentials, alog *actionLog) bool {
	if !d.WaitVisible(ctx, credentialFieldSelector, loginFormWait) {
		alog.formSubmit(d.URL(), "login form not found", nil)
		m.logger.Warn().Str("url", d.URL()).Msg("no credential form appeared")
		return false
	}

	if creds != nil {
		if creds.Username != "" {
			if err := d.Fill(ctx, credentialFieldSelector, creds.Username); err != nil {
				alog.formSubmit(d.URL(), "failed to fill username field", map[string]string{"error": err.Error()})
				return false
			}
		}
		if creds.Password != "" {
			if err := d.Fill(ctx, passwordFieldSelector, creds.Password); err != nil {
				alog.formSubmit(d.URL(), "failed to fill password field", map[string]string{"error": err.Error()})
				return false
			}
		}
	}

	for _, sel := range loginSubmitSelectors {
		if !d.ExistsVisible(ctx, sel) {
			continue
		}
		if err := d.Click(ctx, sel); err != nil {
			continue
		}
		// DOM-ready after submit is best effort; slow redirects are fine.
		_ = d.WaitReady(ctx, loginFormWait)
		alog.formSubmit(d.URL(), "submitted login form", map[string]string{"selector": sel})
		m.logger.Info().Str("selector", sel).Msg("login form submitted")
		return true
	}

	alog.formSubmit(d.URL(), "no login submit control found", nil)
	return false
}
