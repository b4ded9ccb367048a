package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagepipe/internal/selector"
)

type stubElement struct {
	Element
	name string
}

func (e *stubElement) Find(context.Context, selector.Selector) (Element, error) {
	return &stubElement{name: e.name + "/child"}, nil
}

func (e *stubElement) FindAll(context.Context, selector.Selector) ([]Element, error) {
	return []Element{&stubElement{name: e.name + "/all"}}, nil
}

type stubPage struct{ navigated string }

func (p *stubPage) Find(context.Context, selector.Selector) (Element, error) {
	return &stubElement{name: "page"}, nil
}

func (p *stubPage) FindAll(context.Context, selector.Selector) ([]Element, error) {
	return nil, ErrNotFound
}

func (p *stubPage) Navigate(_ context.Context, url string) error {
	p.navigated = url
	return nil
}

func (p *stubPage) URL(context.Context) (string, error) { return p.navigated, nil }

func (p *stubPage) WaitFor(context.Context, selector.Selector, time.Duration) (Element, error) {
	return nil, ErrUnsupported
}

func (p *stubPage) Screenshot(context.Context) ([]byte, error) { return nil, ErrUnsupported }

func TestWithinScopesQueries(t *testing.T) {
	ctx := context.Background()
	page := &stubPage{}
	root := &stubElement{name: "card"}

	scoped := Within(page, root)

	el, err := scoped.Find(ctx, selector.ByCSS("h2"))
	require.NoError(t, err)
	assert.Equal(t, "card/child", el.(*stubElement).name)

	all, err := scoped.FindAll(ctx, selector.ByCSS("li"))
	require.NoError(t, err)
	assert.Equal(t, "card/all", all[0].(*stubElement).name)

	require.NoError(t, scoped.Navigate(ctx, "https://example.com"))
	assert.Equal(t, "https://example.com", page.navigated)
}

func TestScopeOf(t *testing.T) {
	page := &stubPage{}
	_, ok := ScopeOf(page)
	assert.False(t, ok)

	outer := &stubElement{name: "outer"}
	inner := &stubElement{name: "inner"}
	scoped := Within(Within(page, outer), inner)

	el, ok := ScopeOf(scoped)
	require.True(t, ok)
	assert.Same(t, inner, el)
	assert.Same(t, page, scoped.(*scopedPage).Page)
}
