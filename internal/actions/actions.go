// Package actions provides the driver-backed actions pipelines are built
// from. Every constructor returns a flow.Action; nothing touches the page
// until the action is run.
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/flow"
	"github.com/v0xg/pagepipe/internal/result"
	"github.com/v0xg/pagepipe/internal/selector"
)

const inspectHint = "run `pagepipe inspect <url>` to list the selectors available on the page"

// Query resolves the first element matched by g, trying its selectors in
// order.
func Query(g selector.Group) flow.Action[driver.Element] {
	name := "query " + g.Name
	return flow.New(name, func(ctx context.Context, page driver.Page) result.Result[driver.Element] {
		return selector.Try(g, func(s selector.Selector) result.Result[driver.Element] {
			return find(ctx, page, name, s)
		})
	})
}

// QueryAll resolves every element matched by the first selector of g that
// matches anything. A selector matching nothing counts as a miss.
func QueryAll(g selector.Group) flow.Action[[]driver.Element] {
	name := "query_all " + g.Name
	return flow.New(name, func(ctx context.Context, page driver.Page) result.Result[[]driver.Element] {
		return selector.Try(g, func(s selector.Selector) result.Result[[]driver.Element] {
			return findAll(ctx, page, name, s)
		})
	})
}

// Exists reports whether any selector of g currently matches. It does not
// wait for elements to appear. Driver failures are returned, not reported as
// absence.
func Exists(g selector.Group) flow.Action[bool] {
	all := QueryAll(g)
	return flow.New("exists "+g.Name, func(ctx context.Context, page driver.Page) result.Result[bool] {
		r := all.Run(ctx, page)
		switch {
		case r.IsOk():
			return result.Ok(true)
		case Missing(r.Err()):
			return result.Ok(false)
		}
		return result.Err[bool](r.Err())
	})
}

// Missing reports whether err says that nothing matched: an
// AllSelectorsFailed fault whose every cause is ElementNotFound.
func Missing(err error) bool {
	var f *fault.Fault
	if !errors.As(err, &f) || f.Kind != fault.KindAllSelectorsFailed || len(f.Causes) == 0 {
		return false
	}
	for _, c := range f.Causes {
		if !fault.Is(c, fault.KindElementNotFound) {
			return false
		}
	}
	return true
}

// Click clicks the element matched by g.
func Click(g selector.Group) flow.Action[struct{}] {
	return onElement("click "+g.Name, g, func(ctx context.Context, el driver.Element) (struct{}, error) {
		return struct{}{}, el.Click(ctx)
	})
}

// Type replaces the value of the element matched by g with text.
func Type(g selector.Group, text string) flow.Action[struct{}] {
	return onElement("type "+g.Name, g, func(ctx context.Context, el driver.Element) (struct{}, error) {
		return struct{}{}, el.Type(ctx, text)
	})
}

// Press sends a named key (Enter, Tab, Escape, ...) to the element matched by g.
func Press(g selector.Group, key string) flow.Action[struct{}] {
	return onElement("press "+g.Name, g, func(ctx context.Context, el driver.Element) (struct{}, error) {
		return struct{}{}, el.Press(ctx, key)
	})
}

// Text returns the text content of the element matched by g.
func Text(g selector.Group) flow.Action[string] {
	return onElement("text "+g.Name, g, func(ctx context.Context, el driver.Element) (string, error) {
		return el.Text(ctx)
	})
}

// Attribute returns an attribute of the element matched by g. A missing
// attribute is an ElementNotFound fault.
func Attribute(g selector.Group, attr string) flow.Action[string] {
	name := fmt.Sprintf("attribute %s[%s]", g.Name, attr)
	return onElement(name, g, func(ctx context.Context, el driver.Element) (string, error) {
		return attribute(ctx, name, el, attr)
	})
}

// Visible reports whether the element matched by g is visible.
func Visible(g selector.Group) flow.Action[bool] {
	return onElement("visible "+g.Name, g, func(ctx context.Context, el driver.Element) (bool, error) {
		return el.Visible(ctx)
	})
}

// Self returns the element the page is scoped to inside an extraction.
func Self() flow.Action[driver.Element] {
	return flow.New("self", func(_ context.Context, page driver.Page) result.Result[driver.Element] {
		el, ok := driver.ScopeOf(page)
		if !ok {
			return result.Err[driver.Element](fault.New(fault.KindInvalid, "self", "not inside an element"))
		}
		return result.Ok(el)
	})
}

// SelfText returns the text of the scope element.
func SelfText() flow.Action[string] {
	return onSelf("self text", func(ctx context.Context, el driver.Element) (string, error) {
		return el.Text(ctx)
	})
}

// SelfAttribute returns an attribute of the scope element.
func SelfAttribute(attr string) flow.Action[string] {
	name := fmt.Sprintf("self[%s]", attr)
	return onSelf(name, func(ctx context.Context, el driver.Element) (string, error) {
		return attribute(ctx, name, el, attr)
	})
}

func onSelf[T any](name string, op func(context.Context, driver.Element) (T, error)) flow.Action[T] {
	self := Self()
	return flow.New(name, func(ctx context.Context, page driver.Page) result.Result[T] {
		return result.AndThen(self.Run(ctx, page), func(el driver.Element) result.Result[T] {
			v, err := op(ctx, el)
			if err != nil {
				return result.Err[T](classify(ctx, name, err))
			}
			return result.Ok(v)
		})
	})
}

func onElement[T any](name string, g selector.Group, op func(context.Context, driver.Element) (T, error)) flow.Action[T] {
	query := Query(g)
	return flow.New(name, func(ctx context.Context, page driver.Page) result.Result[T] {
		return result.AndThen(query.Run(ctx, page), func(el driver.Element) result.Result[T] {
			v, err := op(ctx, el)
			if err != nil {
				return result.Err[T](classify(ctx, name, err))
			}
			return result.Ok(v)
		})
	})
}

func attribute(ctx context.Context, action string, el driver.Element, attr string) (string, error) {
	v, ok, err := el.Attribute(ctx, attr)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fault.Newf(fault.KindElementNotFound, action, "attribute %q not present", attr)
	}
	return v, nil
}

// find resolves one selector, bounded by its own timeout when it has one.
func find(ctx context.Context, page driver.Page, action string, s selector.Selector) result.Result[driver.Element] {
	fctx, cancel := bound(ctx, s)
	defer cancel()

	el, err := page.Find(fctx, s)
	if err != nil {
		return result.Err[driver.Element](notFound(ctx, action, s, err))
	}
	return result.Ok(el)
}

func findAll(ctx context.Context, page driver.Page, action string, s selector.Selector) result.Result[[]driver.Element] {
	fctx, cancel := bound(ctx, s)
	defer cancel()

	els, err := page.FindAll(fctx, s)
	if err == nil && len(els) == 0 {
		err = driver.ErrNotFound
	}
	if err != nil {
		return result.Err[[]driver.Element](notFound(ctx, action, s, err))
	}
	return result.Ok(els)
}

func bound(ctx context.Context, s selector.Selector) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return ctx, func() {}
}

// notFound classifies a resolution failure. Expiry of the caller's context
// is a Timeout; a miss or an expired per-selector timeout is ElementNotFound.
func notFound(ctx context.Context, action string, s selector.Selector, err error) error {
	if ctx.Err() != nil {
		return fault.FromContext(action, ctx.Err())
	}
	if fault.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, driver.ErrNotFound) || errors.Is(err, context.DeadlineExceeded) {
		return fault.WithHint(
			fault.Wrap(err, fault.KindElementNotFound, action, fmt.Sprintf("nothing matches %s", s)),
			inspectHint,
		)
	}
	return fault.Wrap(err, fault.KindActionFault, action, fmt.Sprintf("resolve %s", s))
}

func classify(ctx context.Context, action string, err error) error {
	if ctx.Err() != nil {
		return fault.FromContext(action, ctx.Err())
	}
	return fault.As(action, err)
}
