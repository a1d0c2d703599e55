// Package agent holds the cancellation state machine: the only stateful
// component. It drives the session manager, the navigation gate, discovery
// and the guardrail inside one step/time-bounded loop and always produces
// exactly one terminal response per invocation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
	"github.com/polzovatel/subscription-cancel-agent/internal/discovery"
	"github.com/polzovatel/subscription-cancel-agent/internal/guardrail"
	"github.com/polzovatel/subscription-cancel-agent/internal/request"
)

// Session is the owned browser resource: acquired from the factory at task
// start, threaded through every component call, released exactly once.
type Session interface {
	Driver() browser.Driver
	Close()
}

// SessionFactory launches one isolated session per request.
type SessionFactory func(ctx context.Context, opts browser.SessionOptions) (Session, error)

var (
	errNavigationBlocked = errors.New("navigation blocked by policy")
	errLoginFailed       = errors.New("login failed")
	errBudgetExhausted   = errors.New("search budget exhausted")
)

type Machine struct {
	factory SessionFactory
	logger  zerolog.Logger
}

func New(factory SessionFactory, logger zerolog.Logger) *Machine {
	return &Machine{factory: factory, logger: logger}
}

// terminal is one of the mutually exclusive end states of a run.
type terminal struct {
	status    request.Status
	summary   string
	outcome   *request.CancellationOutcome
	code      request.ErrorCode
	errMsg    string
	errDetail string
}

// Run executes the full cancellation attempt and always returns a well-formed
// response; no failure escapes this boundary. Validation happens before any
// browser resource exists, and the session is torn down on every exit path.
func (m *Machine) Run(ctx context.Context, req request.CancelSubscriptionRequest) request.CancelSubscriptionResponse {
	req.Options = req.Options.Normalized()
	alog := newActionLog()

	if err := req.Validate(); err != nil {
		return respond(req, alog, terminal{
			status:  request.StatusError,
			summary: "invalid request: " + err.Error(),
			code:    request.CodeInvalidRequest,
			errMsg:  err.Error(),
		})
	}

	sess, err := m.factory(ctx, sessionOptions(req))
	if err != nil {
		return respond(req, alog, terminal{
			status:  request.StatusError,
			summary: "browser launch failed: " + err.Error(),
			code:    request.CodeBrowserLaunchFailed,
			errMsg:  err.Error(),
		})
	}
	defer sess.Close()

	return respond(req, alog, m.execute(ctx, sess.Driver(), req, alog))
}

// execute is the outer error boundary: sentinel errors map to their terminal
// codes, anything else (including panics from the driver) becomes
// UNEXPECTED_ERROR carrying the original message.
func (m *Machine) execute(ctx context.Context, d browser.Driver, req request.CancelSubscriptionRequest, alog *actionLog) (t terminal) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%v", r)
			m.logger.Error().Str("panic", msg).Msg("recovered from driver panic")
			t = terminal{
				status:    request.StatusError,
				summary:   "unexpected failure: " + msg,
				code:      request.CodeUnexpectedError,
				errMsg:    msg,
				errDetail: string(debug.Stack()),
			}
		}
	}()

	t, err := m.run(ctx, d, req, alog)
	if err == nil {
		return t
	}
	switch {
	case errors.Is(err, errLoginFailed):
		return terminal{
			status:  request.StatusError,
			summary: err.Error(),
			code:    request.CodeLoginFailed,
			errMsg:  err.Error(),
		}
	case errors.Is(err, errBudgetExhausted):
		return terminal{
			status:  request.StatusError,
			summary: fmt.Sprintf("search budget exhausted after %d steps without reaching a terminal page", alog.steps()),
			code:    request.CodeTimeout,
			errMsg:  err.Error(),
		}
	case errors.Is(err, errNavigationBlocked):
		// A policy decision, not a generic failure; the summary keeps the
		// distinct text while the emitted code vocabulary stays fixed.
		return terminal{
			status:  request.StatusError,
			summary: err.Error(),
			code:    request.CodeUnexpectedError,
			errMsg:  err.Error(),
		}
	default:
		return terminal{
			status:  request.StatusError,
			summary: "unexpected failure: " + err.Error(),
			code:    request.CodeUnexpectedError,
			errMsg:  err.Error(),
		}
	}
}

// run is the bounded search/confirm loop of the state machine:
// INIT -> (LOGIN)? -> NAVIGATE_ACCOUNT -> SEARCH_LOOP -> terminal.
func (m *Machine) run(ctx context.Context, d browser.Driver, req request.CancelSubscriptionRequest, alog *actionLog) (terminal, error) {
	policy := guardrail.NewPolicy(req.Guardrails.AllowedIntents, req.Guardrails.ForbiddenIntents)
	urls := guardrail.NewURLPolicy(req.TargetURLs.Login, req.TargetURLs.Account, req.TargetURLs.Subscription)
	opTimeout := time.Duration(req.Options.OperationTimeoutMS) * time.Millisecond
	budget := time.Duration(req.Options.MaxDurationSeconds) * time.Second
	started := time.Now()

	loggedIn := false
	if req.TargetURLs.Login != "" && !req.HasSessionCookies() {
		if err := m.navigateTo(ctx, d, urls, alog, req.TargetURLs.Login); err != nil {
			return terminal{}, err
		}
		if !m.login(ctx, d, req.Credentials, alog) {
			return terminal{}, fmt.Errorf("%w for provider %s", errLoginFailed, req.Provider.ID)
		}
		loggedIn = true
	}
	start := req.StartURL()
	if start == "" && !loggedIn {
		// Cookies made the login flow unnecessary, but the search still has
		// to reach the provider; the login URL is the only target left and
		// the injected cookies authenticate it.
		start = req.TargetURLs.Login
	}
	if start != "" {
		if err := m.navigateTo(ctx, d, urls, alog, start); err != nil {
			return terminal{}, err
		}
	}

	for alog.steps() < req.Options.MaxSteps && time.Since(started) < budget {
		elems, err := d.Interactive(ctx)
		if err != nil {
			return terminal{}, err
		}
		candidates := discovery.CancelCandidates(elems)
		m.logger.Debug().
			Int("step", alog.steps()).
			Str("url", d.URL()).
			Int("elements", len(elems)).
			Int("candidates", len(candidates)).
			Msg("scan")

		if len(candidates) == 0 {
			if conf := discovery.PageConfirmation(ctx, d); conf.Matched {
				return success(d, conf), nil
			}
			hopped := false
			for _, nav := range discovery.NavigationCandidates(elems) {
				// A navigation hop is not destructive, so only the allow
				// side of the policy is consulted.
				if !guardrail.Evaluate(nav.Context, policy).Allowed {
					continue
				}
				if err := m.clickLogged(ctx, d, alog, nav); err != nil {
					return terminal{}, err
				}
				_ = d.WaitReady(ctx, opTimeout)
				hopped = true
				break
			}
			if !hopped {
				return terminal{
					status:  request.StatusNoSafeCancel,
					summary: "no safe cancellation path: no cancel candidates and no navigation candidates on " + d.URL(),
				}, nil
			}
			continue
		}

		var chosen *browser.Element
		for i := range candidates {
			verdict := guardrail.Evaluate(candidates[i].Context, policy)
			if verdict.Usable() {
				chosen = &candidates[i]
				break
			}
			m.logger.Debug().
				Str("selector", candidates[i].Selector).
				Bool("allowed", verdict.Allowed).
				Bool("forbidden", verdict.Forbidden).
				Msg("guardrail rejected candidate")
		}
		if chosen == nil {
			// Single pass over the candidates; no backoff or retry here.
			return terminal{
				status:  request.StatusNoSafeCancel,
				summary: "no safe cancellation control passed the guardrail on " + d.URL(),
			}, nil
		}

		if err := m.clickLogged(ctx, d, alog, *chosen); err != nil {
			return terminal{}, err
		}
		_ = d.WaitReady(ctx, opTimeout)
		if conf := discovery.PageConfirmation(ctx, d); conf.Matched {
			return success(d, conf), nil
		}

		elems, err = d.Interactive(ctx)
		if err != nil {
			return terminal{}, err
		}
		for _, dialog := range discovery.ConfirmationControls(elems) {
			if !guardrail.Evaluate(dialog.Context, policy).Usable() {
				continue
			}
			if err := m.clickLogged(ctx, d, alog, dialog); err != nil {
				return terminal{}, err
			}
			_ = d.WaitReady(ctx, opTimeout)
			if conf := discovery.PageConfirmation(ctx, d); conf.Matched {
				return success(d, conf), nil
			}
			break
		}
	}
	return terminal{}, errBudgetExhausted
}

// navigateTo is the guarded navigation path: the policy predicate runs before
// any driver call, and a disallowed URL aborts the whole attempt.
func (m *Machine) navigateTo(ctx context.Context, d browser.Driver, urls guardrail.URLPolicy, alog *actionLog, url string) error {
	if !urls.Allows(url) {
		return fmt.Errorf("%w: %s", errNavigationBlocked, url)
	}
	if err := d.Navigate(ctx, url); err != nil {
		return err
	}
	alog.navigate(url)
	m.logger.Info().Str("url", url).Msg("navigated")
	return nil
}

func (m *Machine) clickLogged(ctx context.Context, d browser.Driver, alog *actionLog, el browser.Element) error {
	if err := d.Click(ctx, el.Selector); err != nil {
		return err
	}
	alog.click(el.Context.URL, el.Selector, el.Context.Text)
	m.logger.Info().Str("selector", el.Selector).Str("text", el.Context.Text).Msg("clicked")
	return nil
}

func success(d browser.Driver, conf discovery.Confirmation) terminal {
	return terminal{
		status:  request.StatusSuccess,
		summary: "subscription cancellation confirmed",
		outcome: &request.CancellationOutcome{
			FinalURL:               d.URL(),
			CancelConfirmationText: conf.Text,
			CancelledAt:            time.Now(),
		},
	}
}

func respond(req request.CancelSubscriptionRequest, alog *actionLog, t terminal) request.CancelSubscriptionResponse {
	resp := request.CancelSubscriptionResponse{
		RequestID: req.RequestID,
		Status:    t.status,
		Summary:   t.summary,
		Provider:  req.Provider,
		Actions:   alog.trail(),
		LogsRef:   "logs/" + req.RequestID,
	}
	switch t.status {
	case request.StatusSuccess:
		resp.Outcome = t.outcome
	case request.StatusError:
		resp.Error = &request.ResponseError{Code: t.code, Message: t.errMsg, Detail: t.errDetail}
	}
	return resp
}

func sessionOptions(req request.CancelSubscriptionRequest) browser.SessionOptions {
	opts := browser.SessionOptions{
		Headless:  !req.Options.DryRun,
		OpTimeout: time.Duration(req.Options.OperationTimeoutMS) * time.Millisecond,
	}
	if req.UserSession == nil {
		return opts
	}
	opts.Headers = req.UserSession.Headers
	for _, c := range req.UserSession.Cookies {
		opts.Cookies = append(opts.Cookies, browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
		})
	}
	return opts
}
