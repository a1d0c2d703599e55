// Package browsertest provides a deterministic scripted driver that stands in
// for the Playwright session in tests. Scenarios are built as a small page
// graph: each page carries its elements, body text and visible selectors, and
// clicks can move the driver to another page.
package browsertest

import (
	"context"
	"strings"
	"time"

	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
)

// Page is one scripted page state.
type Page struct {
	URL              string
	Title            string
	Body             string
	Elements         []browser.Element
	ClickTargets     map[string]string // selector -> URL reached after the click
	VisibleSelectors []string          // selectors ExistsVisible/WaitVisible report as present
}

// Driver is a scripted browser.Driver. The zero value is not usable; build it
// with NewDriver and AddPage.
type Driver struct {
	pages   map[string]*Page
	current string

	NavigateErr map[string]error // url -> forced navigation failure
	ClickErr    map[string]error // selector -> forced click failure

	Navigations []string
	Clicks      []string
	Filled      map[string]string
}

func NewDriver() *Driver {
	return &Driver{
		pages:       make(map[string]*Page),
		NavigateErr: make(map[string]error),
		ClickErr:    make(map[string]error),
		Filled:      make(map[string]string),
	}
}

func (d *Driver) AddPage(p *Page) *Driver {
	d.pages[p.URL] = p
	return d
}

func (d *Driver) page() *Page {
	if p, ok := d.pages[d.current]; ok {
		return p
	}
	return &Page{URL: d.current}
}

func (d *Driver) Navigate(_ context.Context, url string) error {
	if err := d.NavigateErr[url]; err != nil {
		return err
	}
	d.current = url
	d.Navigations = append(d.Navigations, url)
	return nil
}

func (d *Driver) WaitReady(context.Context, time.Duration) error { return nil }

func (d *Driver) Interactive(context.Context) ([]browser.Element, error) {
	p := d.page()
	out := make([]browser.Element, len(p.Elements))
	copy(out, p.Elements)
	for i := range out {
		out[i].Context.URL = p.URL
		out[i].Context.PageTitle = p.Title
	}
	return out, nil
}

func (d *Driver) Click(_ context.Context, selector string) error {
	if err := d.ClickErr[selector]; err != nil {
		return err
	}
	d.Clicks = append(d.Clicks, selector)
	if next, ok := d.page().ClickTargets[selector]; ok {
		d.current = next
	}
	return nil
}

func (d *Driver) Fill(_ context.Context, selector, value string) error {
	d.Filled[selector] = value
	return nil
}

func (d *Driver) WaitVisible(ctx context.Context, selector string, _ time.Duration) bool {
	return d.ExistsVisible(ctx, selector)
}

func (d *Driver) ExistsVisible(_ context.Context, selector string) bool {
	for _, s := range d.page().VisibleSelectors {
		if s == selector {
			return true
		}
	}
	return false
}

func (d *Driver) BodyText(context.Context) string { return d.page().Body }

func (d *Driver) URL() string { return d.current }

func (d *Driver) Title() string { return d.page().Title }

// Clickable builds a button-like element for scenario pages.
func Clickable(selector, tag, text string) browser.Element {
	return browser.Element{
		Selector: selector,
		Context: browser.ElementContext{
			TagName: tag,
			Text:    text,
		},
	}
}

// ClickCount returns how many clicks landed on the given selector.
func (d *Driver) ClickCount(selector string) int {
	n := 0
	for _, s := range d.Clicks {
		if strings.EqualFold(s, selector) {
			n++
		}
	}
	return n
}
