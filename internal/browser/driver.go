package browser

import (
	"context"
	"time"
)

// ElementContext is an immutable snapshot of one candidate element's textual
// signals, captured at extraction time and never re-read afterwards.
type ElementContext struct {
	TagName      string   `json:"tagName"`
	Text         string   `json:"text"`
	AriaLabel    string   `json:"ariaLabel,omitempty"`
	Title        string   `json:"title,omitempty"`
	Name         string   `json:"name,omitempty"`
	Value        string   `json:"value,omitempty"`
	Type         string   `json:"type,omitempty"`
	Role         string   `json:"role,omitempty"`
	NearbyLabels []string `json:"nearbyLabels,omitempty"`
	URL          string   `json:"url"`
	PageTitle    string   `json:"pageTitle"`
}

// Element is one interactive node found on the live page. Selector is a
// best-effort locator synthesized at collection time; it is how the element is
// acted on and how the action is described in the audit trail. Class, ID and
// DataAction carry the raw attributes used for structural pattern matching.
type Element struct {
	Selector   string         `json:"selector"`
	Class      string         `json:"class,omitempty"`
	ID         string         `json:"id,omitempty"`
	DataAction string         `json:"dataAction,omitempty"`
	Context    ElementContext `json:"context"`
}

// Driver is the capability surface the state machine and discovery depend on.
// The Playwright session implements it for real pages; a scripted fake
// substitutes for it in tests. Probe methods (WaitVisible, ExistsVisible,
// BodyText) degrade silently to "not found" instead of failing: third-party
// DOMs are unpredictable and a failed probe is never fatal.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, timeout time.Duration) error
	Interactive(ctx context.Context) ([]Element, error)
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool
	ExistsVisible(ctx context.Context, selector string) bool
	BodyText(ctx context.Context) string
	URL() string
	Title() string
}
