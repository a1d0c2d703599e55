package agent

import (
	"time"

	"github.com/polzovatel/subscription-cancel-agent/internal/request"
)

// actionLog accumulates the audit trail. One shared counter is incremented
// immediately before each logged action, so step numbers are strictly
// increasing by one across navigation, form submission and clicks alike.
type actionLog struct {
	step    int
	entries []request.ActionLogEntry
	now     func() time.Time
}

func newActionLog() *actionLog {
	return &actionLog{now: time.Now}
}

func (l *actionLog) navigate(url string) {
	l.step++
	l.entries = append(l.entries, request.ActionLogEntry{
		Step:      l.step,
		Type:      request.ActionNavigate,
		URL:       url,
		Timestamp: l.now(),
	})
}

func (l *actionLog) click(url, selector, text string) {
	l.step++
	l.entries = append(l.entries, request.ActionLogEntry{
		Step:      l.step,
		Type:      request.ActionClick,
		URL:       url,
		Selector:  selector,
		Text:      text,
		Timestamp: l.now(),
	})
}

func (l *actionLog) formSubmit(url, text string, metadata map[string]string) {
	l.step++
	l.entries = append(l.entries, request.ActionLogEntry{
		Step:      l.step,
		Type:      request.ActionFormSubmit,
		URL:       url,
		Text:      text,
		Metadata:  metadata,
		Timestamp: l.now(),
	})
}

// steps is the shared counter's current value, used as the loop's step bound.
func (l *actionLog) steps() int {
	return l.step
}

// trail returns the accumulated entries, never nil: the audit trail is always
// present in the response even under total failure.
func (l *actionLog) trail() []request.ActionLogEntry {
	if l.entries == nil {
		return []request.ActionLogEntry{}
	}
	return l.entries
}
