package pwpage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/selector"
)

// Page adapts a Playwright page to driver.Page.
type Page struct {
	page    playwright.Page
	timeout time.Duration
}

var (
	_ driver.Page      = (*Page)(nil)
	_ driver.Inspector = (*Page)(nil)
	_ driver.Element   = (*Element)(nil)
)

// Playwright returns the underlying page
func (p *Page) Playwright() playwright.Page {
	return p.page
}

// remaining is the time left before ctx's deadline, or fallback when ctx has
// none.
func (p *Page) remaining(ctx context.Context, fallback time.Duration) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	if left := time.Until(dl); left > time.Millisecond {
		return left
	}
	return time.Millisecond
}

func (p *Page) bound(ctx context.Context) *float64 {
	return playwright.Float(millis(p.remaining(ctx, p.timeout)))
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{Timeout: p.bound(ctx)}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.URL(), nil
}

// Find waits until sel is attached to the DOM, bounded by ctx.
func (p *Page) Find(ctx context.Context, sel selector.Selector) (driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := p.page.WaitForSelector(query(sel, false), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: p.bound(ctx),
	})
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return &Element{el: el, page: p}, nil
}

func (p *Page) FindAll(ctx context.Context, sel selector.Selector) ([]driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := p.page.QuerySelectorAll(query(sel, false))
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return wrap(p, els), nil
}

func (p *Page) WaitFor(ctx context.Context, sel selector.Selector, timeout time.Duration) (driver.Element, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := p.page.WaitForSelector(query(sel, false), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: p.bound(ctx),
	})
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return &Element{el: el, page: p}, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: p.bound(ctx),
	})
}

// Element adapts a Playwright element handle
type Element struct {
	el   playwright.ElementHandle
	page *Page
}

func (e *Element) Find(ctx context.Context, sel selector.Selector) (driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	child, err := e.el.WaitForSelector(query(sel, true), playwright.ElementHandleWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: e.page.bound(ctx),
	})
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return &Element{el: child, page: e.page}, nil
}

func (e *Element) FindAll(ctx context.Context, sel selector.Selector) ([]driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := e.el.QuerySelectorAll(query(sel, true))
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return wrap(e.page, els), nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Click(playwright.ElementHandleClickOptions{Timeout: e.page.bound(ctx)})
}

// Type replaces the element's value with text.
func (e *Element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Fill(text, playwright.ElementHandleFillOptions{Timeout: e.page.bound(ctx)})
}

func (e *Element) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Press(keyName(key), playwright.ElementHandlePressOptions{Timeout: e.page.bound(ctx)})
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.el.InnerText()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Attribute evaluates getAttribute in the page; GetAttribute on the handle
// cannot tell an empty attribute from a missing one.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.el.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.el.IsVisible()
}

// query renders sel with an explicit engine prefix.
func query(sel selector.Selector, relative bool) string {
	syntax, expr := sel.Expr()
	if syntax == selector.SyntaxXPath {
		if relative {
			expr = selector.RelativeXPath(expr)
		}
		return "xpath=" + expr
	}
	return "css=" + expr
}

var keys = map[string]string{
	"enter":      "Enter",
	"tab":        "Tab",
	"escape":     "Escape",
	"esc":        "Escape",
	"backspace":  "Backspace",
	"delete":     "Delete",
	"space":      "Space",
	"arrowup":    "ArrowUp",
	"arrowdown":  "ArrowDown",
	"arrowleft":  "ArrowLeft",
	"arrowright": "ArrowRight",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
}

// keyName canonicalises common key names. Anything else, such as
// "Control+A", goes to Playwright unchanged.
func keyName(key string) string {
	if k, ok := keys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return k
	}
	return key
}

func wrap(p *Page, els []playwright.ElementHandle) []driver.Element {
	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el, page: p})
	}
	return out
}

// notFound maps Playwright timeouts to driver.ErrNotFound. When the caller's
// context has expired its error is kept in the chain.
func notFound(ctx context.Context, sel selector.Selector, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s", driver.ErrNotFound, sel)
	}
	return err
}
