package htmlpage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/selector"
)

// Element is a node of the document it was found in. After a navigation it
// still refers to the old document.
type Element struct {
	page *Page
	sel  *goquery.Selection
}

var _ driver.Element = (*Element)(nil)

func (e *Element) Find(ctx context.Context, sel selector.Selector) (driver.Element, error) {
	els, err := e.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrNotFound, sel)
	}
	return els[0], nil
}

func (e *Element) FindAll(_ context.Context, sel selector.Selector) ([]driver.Element, error) {
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	return e.page.match(e.sel, sel)
}

// Click follows links, submits forms from submit controls and toggles
// checkboxes and radio buttons. Other elements have no static behaviour.
func (e *Element) Click(ctx context.Context) error {
	e.page.mu.Lock()
	tag := goquery.NodeName(e.sel)
	typ := strings.ToLower(e.sel.AttrOr("type", ""))

	switch {
	case tag == "a":
		href, ok := e.sel.Attr("href")
		e.page.mu.Unlock()
		if !ok || strings.HasPrefix(href, "#") {
			return nil
		}
		return e.page.Navigate(ctx, href)

	case tag == "input" && (typ == "checkbox" || typ == "radio"):
		if _, checked := e.sel.Attr("checked"); checked && typ == "checkbox" {
			e.sel.RemoveAttr("checked")
		} else {
			if typ == "radio" {
				if name, ok := e.sel.Attr("name"); ok {
					e.sel.Closest("form").Find(`input[type="radio"][name=` + selector.CSSString(name) + `]`).RemoveAttr("checked")
				}
			}
			e.sel.SetAttr("checked", "checked")
		}
		e.page.mu.Unlock()
		return nil

	case isSubmit(tag, typ):
		req, err := e.formRequest(ctx)
		e.page.mu.Unlock()
		if err != nil || req == nil {
			return err
		}
		return e.page.do(req)
	}

	e.page.mu.Unlock()
	return nil
}

// Type replaces the value of an input or the content of a textarea.
func (e *Element) Type(_ context.Context, text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()

	switch goquery.NodeName(e.sel) {
	case "input":
		e.sel.SetAttr("value", text)
	case "textarea":
		e.sel.SetText(text)
	default:
		return fmt.Errorf("%w: cannot type into <%s>", driver.ErrUnsupported, goquery.NodeName(e.sel))
	}
	return nil
}

// Press submits the enclosing form on Enter. Other keys do nothing.
func (e *Element) Press(ctx context.Context, key string) error {
	if !strings.EqualFold(key, "enter") {
		return nil
	}
	e.page.mu.RLock()
	req, err := e.formRequest(ctx)
	e.page.mu.RUnlock()
	if err != nil || req == nil {
		return err
	}
	return e.page.do(req)
}

func (e *Element) Text(context.Context) (string, error) {
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	return normalize(e.sel.Text()), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// Visible is false when the element or an ancestor is hidden by markup or an
// inline style.
func (e *Element) Visible(context.Context) (bool, error) {
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	return visible(e), nil
}

func isSubmit(tag, typ string) bool {
	switch tag {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	}
	return false
}

// formRequest builds the request submitting the form e belongs to, or nil
// when e is outside a form. Callers hold the page lock.
func (e *Element) formRequest(ctx context.Context) (*http.Request, error) {
	form := e.sel.Closest("form")
	if form.Length() == 0 {
		return nil, nil
	}

	values := url.Values{}
	form.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(s) {
		case "textarea":
			values.Add(name, s.Text())
		case "select":
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", normalize(opt.Text())))
			}
		default:
			switch strings.ToLower(s.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
				values.Add(name, s.AttrOr("value", "on"))
			default:
				values.Add(name, s.AttrOr("value", ""))
			}
		}
	})
	if name, ok := e.sel.Attr("name"); ok && isSubmit(goquery.NodeName(e.sel), strings.ToLower(e.sel.AttrOr("type", ""))) {
		values.Add(name, e.sel.AttrOr("value", ""))
	}

	action, err := resolveURL(e.page.url, form.AttrOr("action", ""))
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(form.AttrOr("method", "get"), "post") {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	action.RawQuery = values.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
}
