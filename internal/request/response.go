package request

import "time"

type Status string

const (
	StatusSuccess      Status = "success"
	StatusNoSafeCancel Status = "no-safe-cancel"
	StatusError        Status = "error"
)

type ActionType string

const (
	ActionNavigate   ActionType = "navigate"
	ActionClick      ActionType = "click"
	ActionFormSubmit ActionType = "formSubmit"
)

// ErrorCode is the fixed vocabulary this core emits.
type ErrorCode string

const (
	CodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	CodeBrowserLaunchFailed ErrorCode = "BROWSER_LAUNCH_FAILED"
	CodeLoginFailed         ErrorCode = "LOGIN_FAILED"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeUnexpectedError     ErrorCode = "UNEXPECTED_ERROR"
)

// ActionLogEntry is one audited action. Steps are strictly increasing by one
// per logged action within a request, starting at 1.
type ActionLogEntry struct {
	Step      int               `json:"step"`
	Type      ActionType        `json:"type"`
	URL       string            `json:"url,omitempty"`
	Selector  string            `json:"selector,omitempty"`
	Text      string            `json:"text,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// CancellationOutcome is present iff status is success.
type CancellationOutcome struct {
	FinalURL               string    `json:"finalUrl"`
	CancelConfirmationText string    `json:"cancelConfirmationText,omitempty"`
	CancelledAt            time.Time `json:"cancelledAt"`
}

type ResponseError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

// CancelSubscriptionResponse is always well-formed: the action trail is kept
// even under total failure, and exactly one of Outcome/Error is set depending
// on status.
type CancelSubscriptionResponse struct {
	RequestID string               `json:"requestId"`
	Status    Status               `json:"status"`
	Summary   string               `json:"summary"`
	Provider  Provider             `json:"provider"`
	Outcome   *CancellationOutcome `json:"outcome,omitempty"`
	Actions   []ActionLogEntry     `json:"actions"`
	LogsRef   string               `json:"logsRef"`
	Error     *ResponseError       `json:"error,omitempty"`
}
