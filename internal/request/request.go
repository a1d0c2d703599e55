package request

import (
	"fmt"
	"strings"
)

// Defaults and hard caps for per-request options. Values outside a cap are
// clamped, never rejected.
const (
	DefaultMaxSteps           = 40
	MaxStepsCap               = 100
	DefaultMaxDurationSeconds = 300
	MaxDurationSecondsCap     = 600
	DefaultOperationTimeoutMS = 30000
)

// CancelSubscriptionRequest is the inbound contract. Schema validation happens
// upstream; Validate re-checks only the fields this core cannot run without.
type CancelSubscriptionRequest struct {
	RequestID   string       `json:"requestId"`
	Provider    Provider     `json:"provider"`
	TargetURLs  TargetURLs   `json:"targetUrls"`
	UserSession *UserSession `json:"userSession,omitempty"`
	Credentials *Credentials `json:"credentials,omitempty"`
	Guardrails  Guardrails   `json:"guardrails"`
	Options     Options      `json:"options"`
}

type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TargetURLs struct {
	Login        string `json:"login,omitempty"`
	Account      string `json:"account,omitempty"`
	Subscription string `json:"subscription,omitempty"`
}

type UserSession struct {
	Cookies []Cookie          `json:"cookies"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Cookie carries the caller's authenticated session. Omitted fields get
// defaults at injection time: path "/", expiry now+3600s, sameSite "Lax".
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path,omitempty"`
	Expires  int64  `json:"expires,omitempty"` // unix seconds
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Guardrails is the allow/forbid phrase policy gating every destructive
// action. AllowedIntents must be non-empty; order is preserved.
type Guardrails struct {
	AllowedIntents   []string `json:"allowedIntents"`
	ForbiddenIntents []string `json:"forbiddenIntents,omitempty"`
}

type Options struct {
	MaxSteps           int  `json:"maxSteps,omitempty"`
	MaxDurationSeconds int  `json:"maxDurationSeconds,omitempty"`
	OperationTimeoutMS int  `json:"operationTimeoutMs,omitempty"`
	DryRun             bool `json:"dryRun,omitempty"`
}

// Normalized fills zero values with defaults and clamps to the hard caps.
func (o Options) Normalized() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.MaxSteps > MaxStepsCap {
		o.MaxSteps = MaxStepsCap
	}
	if o.MaxDurationSeconds <= 0 {
		o.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if o.MaxDurationSeconds > MaxDurationSecondsCap {
		o.MaxDurationSeconds = MaxDurationSecondsCap
	}
	if o.OperationTimeoutMS <= 0 {
		o.OperationTimeoutMS = DefaultOperationTimeoutMS
	}
	return o
}

// Validate is defense-in-depth over the upstream schema check. It must pass
// before any browser resource is created.
func (r *CancelSubscriptionRequest) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return fmt.Errorf("requestId is required")
	}
	if strings.TrimSpace(r.Provider.ID) == "" {
		return fmt.Errorf("provider.id is required")
	}
	if len(r.Guardrails.AllowedIntents) == 0 {
		return fmt.Errorf("guardrails.allowedIntents must not be empty")
	}
	if r.TargetURLs.Login == "" && r.TargetURLs.Account == "" && r.TargetURLs.Subscription == "" {
		return fmt.Errorf("at least one target URL (login, account or subscription) is required")
	}
	return nil
}

// StartURL is where the search loop begins after any login: the most specific
// target wins. Empty means a login-only flow that stays on the post-login page.
func (r *CancelSubscriptionRequest) StartURL() string {
	if r.TargetURLs.Subscription != "" {
		return r.TargetURLs.Subscription
	}
	return r.TargetURLs.Account
}

// HasSessionCookies reports whether the caller supplied an authenticated
// session, which makes the login flow unnecessary.
func (r *CancelSubscriptionRequest) HasSessionCookies() bool {
	return r.UserSession != nil && len(r.UserSession.Cookies) > 0
}
