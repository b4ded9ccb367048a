package rodpage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/selector"
)

// Page adapts a rod page to driver.Page. Rod multiplexes calls over one
// DevTools connection, so concurrent use is safe.
type Page struct {
	page    *rod.Page
	timeout time.Duration
}

var (
	_ driver.Page      = (*Page)(nil)
	_ driver.Inspector = (*Page)(nil)
	_ driver.Element   = (*Element)(nil)
)

// Rod returns the underlying rod page
func (p *Page) Rod() *rod.Page {
	return p.page
}

// bind attaches ctx to the page, adding the default timeout when ctx has no
// deadline so waits never hang.
func (p *Page) bind(ctx context.Context) (*rod.Page, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && p.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		return p.page.Context(ctx), cancel
	}
	return p.page.Context(ctx), func() {}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	page, cancel := p.bind(ctx)
	defer cancel()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for %s: %w", url, err)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Find waits until sel matches, bounded by ctx.
func (p *Page) Find(ctx context.Context, sel selector.Selector) (driver.Element, error) {
	page, cancel := p.bind(ctx)
	defer cancel()

	var (
		el  *rod.Element
		err error
	)
	syntax, expr := sel.Expr()
	if syntax == selector.SyntaxXPath {
		el, err = page.ElementX(expr)
	} else {
		el, err = page.Element(expr)
	}
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return &Element{el: el, page: p}, nil
}

// FindAll returns the current matches without waiting.
func (p *Page) FindAll(ctx context.Context, sel selector.Selector) ([]driver.Element, error) {
	page, cancel := p.bind(ctx)
	defer cancel()

	var (
		els rod.Elements
		err error
	)
	syntax, expr := sel.Expr()
	if syntax == selector.SyntaxXPath {
		els, err = page.ElementsX(expr)
	} else {
		els, err = page.Elements(expr)
	}
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
	el, err := p.Find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if err := el.(*Element).el.Context(ctx).WaitVisible(); err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return el, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	page, cancel := p.bind(ctx)
	defer cancel()

	return page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Element adapts a rod element
type Element struct {
	el   *rod.Element
	page *Page
}

func (e *Element) bind(ctx context.Context) (*rod.Element, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && e.page.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, e.page.timeout)
		return e.el.Context(ctx), cancel
	}
	return e.el.Context(ctx), func() {}
}

func (e *Element) Find(ctx context.Context, sel selector.Selector) (driver.Element, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	var (
		child *rod.Element
		err   error
	)
	syntax, expr := sel.Expr()
	if syntax == selector.SyntaxXPath {
		child, err = el.ElementX(selector.RelativeXPath(expr))
	} else {
		child, err = el.Element(expr)
	}
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return &Element{el: child, page: e.page}, nil
}

func (e *Element) FindAll(ctx context.Context, sel selector.Selector) ([]driver.Element, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	var (
		els rod.Elements
		err error
	)
	syntax, expr := sel.Expr()
	if syntax == selector.SyntaxXPath {
		els, err = el.ElementsX(selector.RelativeXPath(expr))
	} else {
		els, err = el.Elements(expr)
	}
	if err != nil {
		return nil, notFound(ctx, sel, err)
	}
	return wrap(e.page, els), nil
}

func (e *Element) Click(ctx context.Context) error {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Type replaces the element's value with text.
func (e *Element) Type(ctx context.Context, text string) error {
	el, cancel := e.bind(ctx)
	defer cancel()

	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (e *Element) Press(ctx context.Context, key string) error {
	k, ok := keyFor(key)
	if !ok {
		return fmt.Errorf("%w: key %q", driver.ErrUnsupported, key)
	}
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Type(k)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	text, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, cancel := e.bind(ctx)
	defer cancel()

	v, err := el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	el, cancel := e.bind(ctx)
	defer cancel()
	return el.Visible()
}

var keys = map[string]input.Key{
	"enter":      input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"space":      input.Space,
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
}

// keyFor maps a key name like "Enter" or "ArrowDown" to a rod key.
func keyFor(name string) (input.Key, bool) {
	k, ok := keys[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

func wrap(p *Page, els rod.Elements) []driver.Element {
	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el, page: p})
	}
	return out
}

// notFound maps rod's lookup failures to driver.ErrNotFound. An expired
// caller context is returned as-is.
func notFound(ctx context.Context, sel selector.Selector, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var missing *rod.ElementNotFoundError
	if errors.As(err, &missing) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", driver.ErrNotFound, sel)
	}
	return err
}
