// Package driver defines the capability contract pipelines require from a
// browser automation backend. A Page is the execution context threaded through
// every action run; backends construct and own it.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/v0xg/pagepipe/internal/selector"
)

var (
	// ErrNotFound is returned (possibly wrapped) when a selector matches nothing.
	ErrNotFound = errors.New("element not found")
	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by driver")
)

// Scope resolves selectors. Find waits for a match until ctx is done when the
// backend supports waiting; FindAll returns what is present now.
type Scope interface {
	Find(ctx context.Context, sel selector.Selector) (Element, error)
	FindAll(ctx context.Context, sel selector.Selector) ([]Element, error)
}

// Element is a handle to a resolved element. Queries through its Scope are
// relative to the element.
type Element interface {
	Scope
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	Text(ctx context.Context) (string, error)
	// Attribute reports whether the attribute is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
}

// Page is the execution context of a pipeline run. Implementations must
// tolerate concurrent calls when pipelines use parallel combinators.
type Page interface {
	Scope
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	WaitFor(ctx context.Context, sel selector.Selector, timeout time.Duration) (Element, error)
	// Screenshot returns a PNG of the viewport.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Inspector is implemented by backends that can list the interactive elements
// of the current page.
type Inspector interface {
	Inspect(ctx context.Context) (*Inventory, error)
}

type scopedPage struct {
	Page
	el Element
}

// Within returns a Page whose Find and FindAll are relative to el. Page level
// operations still reach the underlying page.
func Within(page Page, el Element) Page {
	if sp, ok := page.(*scopedPage); ok {
		page = sp.Page
	}
	return &scopedPage{Page: page, el: el}
}

// ScopeOf returns the element a page was scoped to with Within.
func ScopeOf(page Page) (Element, bool) {
	sp, ok := page.(*scopedPage)
	if !ok {
		return nil, false
	}
	return sp.el, true
}

func (p *scopedPage) Find(ctx context.Context, sel selector.Selector) (Element, error) {
	return p.el.Find(ctx, sel)
}

func (p *scopedPage) FindAll(ctx context.Context, sel selector.Selector) ([]Element, error) {
	return p.el.FindAll(ctx, sel)
}
