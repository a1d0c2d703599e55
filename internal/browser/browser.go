package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const (
	defaultOpTimeout  = 30 * time.Second
	collectLimit      = 200
	defaultCookieTTL  = time.Hour
	defaultCookiePath = "/"
)

// Cookie is an injected session cookie. Zero fields get the documented
// defaults at injection time.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  int64 // unix seconds
	HTTPOnly bool
	Secure   bool
	SameSite string
}

// SessionOptions configures one isolated browser session.
type SessionOptions struct {
	Headless  bool
	Cookies   []Cookie
	Headers   map[string]string
	OpTimeout time.Duration
}

// Session owns one browser instance, one isolated context and one page,
// exclusively for the lifetime of a single request. Close is safe to call
// from any exit path and tears down exactly once.
type Session struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      playwright.Page
	driver    *pwDriver
	closeOnce sync.Once
	logger    zerolog.Logger
}

// Launch creates a fully wired session or nothing: any partial resources are
// unwound before the error is returned.
func Launch(ctx context.Context, opts SessionOptions, logger zerolog.Logger) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	}
	if len(opts.Headers) > 0 {
		extra := make(map[string]string, len(opts.Headers))
		for name, value := range opts.Headers {
			if strings.EqualFold(name, "user-agent") {
				ctxOpts.UserAgent = playwright.String(value)
				continue
			}
			extra[name] = value
		}
		if len(extra) > 0 {
			ctxOpts.ExtraHttpHeaders = extra
		}
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new context: %w", err)
	}

	if len(opts.Cookies) > 0 {
		if err := bctx.AddCookies(playwrightCookies(opts.Cookies)); err != nil {
			_ = bctx.Close()
			_ = browser.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("add cookies: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.OpTimeout.Milliseconds()))

	s := &Session{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		logger:  logger,
	}
	s.driver = &pwDriver{page: page, opTimeout: opts.OpTimeout}
	return s, nil
}

// Driver exposes the capability surface bound to this session's page.
func (s *Session) Driver() Driver {
	return s.driver
}

// Close tears the session down: context first, then browser. Errors here are
// logged and swallowed so they never override the caller's primary result.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.logger.Debug().Err(err).Msg("page close")
			}
		}
		if s.context != nil {
			if err := s.context.Close(); err != nil {
				s.logger.Debug().Err(err).Msg("context close")
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.logger.Debug().Err(err).Msg("browser close")
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				s.logger.Debug().Err(err).Msg("playwright stop")
			}
		}
	})
}

func playwrightCookies(cookies []Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = defaultCookiePath
		}
		expires := c.Expires
		if expires <= 0 {
			expires = time.Now().Add(defaultCookieTTL).Unix()
		}
		out = append(out, playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(path),
			Expires:  playwright.Float(float64(expires)),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
			SameSite: sameSite(c.SameSite),
		})
	}
	return out
}

func sameSite(v string) *playwright.SameSiteAttribute {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return playwright.SameSiteAttributeStrict
	case "none":
		return playwright.SameSiteAttributeNone
	default:
		return playwright.SameSiteAttributeLax
	}
}

// pwDriver is the live Playwright implementation of Driver.
type pwDriver struct {
	page      playwright.Page
	opTimeout time.Duration
}

func (d *pwDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(d.opTimeout.Milliseconds())),
	})
	return wrap(err)
}

func (d *pwDriver) WaitReady(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = d.opTimeout
	}
	err := d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return wrap(err)
}

func (d *pwDriver) Interactive(ctx context.Context) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := d.page.Evaluate(collectScript, collectLimit)
	if err != nil {
		return nil, wrap(err)
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("marshal collected elements: %w", err)
	}
	var elems []Element
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode collected elements: %w", err)
	}
	url := d.page.URL()
	title, _ := d.page.Title()
	for i := range elems {
		elems[i].Context.URL = url
		elems[i].Context.PageTitle = title
	}
	return elems, nil
}

func (d *pwDriver) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(d.opTimeout.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	// Scrolling is best effort, the click may still land.
	_ = loc.ScrollIntoViewIfNeeded()
	return wrap(loc.Click())
}

func (d *pwDriver) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := d.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(d.opTimeout.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	return wrap(loc.Fill(value))
}

func (d *pwDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if timeout <= 0 {
		timeout = d.opTimeout
	}
	err := d.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}

func (d *pwDriver) ExistsVisible(ctx context.Context, selector string) bool {
	if ctx.Err() != nil {
		return false
	}
	loc := d.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return false
	}
	if count > 10 {
		count = 10
	}
	for i := 0; i < count; i++ {
		visible, err := loc.Nth(i).IsVisible()
		if err == nil && visible {
			return true
		}
	}
	return false
}

func (d *pwDriver) BodyText(ctx context.Context) string {
	if ctx.Err() != nil {
		return ""
	}
	text, err := d.page.InnerText("body")
	if err != nil {
		return ""
	}
	return text
}

func (d *pwDriver) URL() string {
	return d.page.URL()
}

func (d *pwDriver) Title() string {
	title, _ := d.page.Title()
	return title
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}

// collectScript gathers currently visible interactive nodes with the textual
// signals discovery needs. Per-element failures are skipped, never fatal.
// Shadow roots and same-origin iframes are scanned too.
const collectScript = `(limit) => {
	const pick = [];

	function labelTexts(el) {
		const out = [];
		const push = (t) => {
			t = (t || "").trim();
			if (t && out.length < 5 && !out.includes(t)) out.push(t.slice(0, 80));
		};
		try {
			if (el.id) {
				document.querySelectorAll('label[for="' + el.id + '"]').forEach((l) => push(l.innerText));
			}
			const wrap = el.closest("label");
			if (wrap) push(wrap.innerText);
			const labelledBy = el.getAttribute("aria-labelledby");
			if (labelledBy) {
				for (const id of labelledBy.split(/\s+/)) {
					const ref = document.getElementById(id);
					if (ref) push(ref.innerText);
				}
			}
			const prev = el.previousElementSibling;
			if (prev && (prev.tagName === "LABEL" || prev.tagName === "SPAN")) push(prev.innerText);
		} catch (e) {}
		return out;
	}

	function buildSelector(el, role) {
		if (el.id) return "#" + CSS.escape(el.id);
		const name = el.getAttribute("name");
		if (name) return el.tagName.toLowerCase() + '[name="' + name.replace(/"/g, "") + '"]';
		const testId = el.getAttribute("data-testid");
		if (testId) return '[data-testid="' + testId.replace(/"/g, "") + '"]';
		const label = (el.getAttribute("aria-label") || "").replace(/"/g, "").trim();
		if (role && label) return '[role="' + role + '"][aria-label*="' + label.slice(0, 40) + '"]';
		const tag = el.tagName.toLowerCase();
		const siblings = Array.from(el.parentElement ? el.parentElement.children : []);
		const idx = siblings.filter((c) => c.tagName === el.tagName).indexOf(el) + 1;
		if (idx > 0) return tag + ":nth-of-type(" + idx + ")";
		return tag;
	}

	function scan(root) {
		if (!root || pick.length >= limit) return;
		let nodes;
		try {
			nodes = root.querySelectorAll('a,button,input,select,textarea,[role],[onclick],[tabindex],[data-action]');
		} catch (e) {
			return;
		}
		for (const el of nodes) {
			if (pick.length >= limit) break;
			try {
				const rect = el.getBoundingClientRect();
				if (rect.width === 0 && rect.height === 0) continue;
				const role = el.getAttribute("role") || "";
				const text = (el.innerText || el.textContent || el.value || "").trim().slice(0, 160);
				const ctx = {
					tagName: el.tagName.toLowerCase(),
					text: text,
					ariaLabel: el.getAttribute("aria-label") || "",
					title: el.getAttribute("title") || "",
					name: el.getAttribute("name") || "",
					value: typeof el.value === "string" ? el.value.slice(0, 80) : "",
					type: el.getAttribute("type") || "",
					role: role,
					nearbyLabels: labelTexts(el),
				};
				if (!ctx.text && !ctx.ariaLabel && !ctx.name && !ctx.value && !role) continue;
				pick.push({
					selector: buildSelector(el, role),
					class: (typeof el.className === "string" ? el.className : "").slice(0, 200),
					id: el.id || "",
					dataAction: el.getAttribute("data-action") || "",
					context: ctx,
				});
				if (el.shadowRoot) scan(el.shadowRoot);
			} catch (e) {
				// skip this element, keep scanning
			}
		}
	}

	scan(document);
	for (const iframe of document.querySelectorAll("iframe")) {
		if (pick.length >= limit) break;
		try {
			const doc = iframe.contentDocument || (iframe.contentWindow && iframe.contentWindow.document);
			if (doc) scan(doc);
		} catch (e) {
			// cross-origin iframe
		}
	}
	return pick;
}`
