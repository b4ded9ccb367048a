package actions

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagepipe/internal/capture"
	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/flow"
	"github.com/v0xg/pagepipe/internal/result"
	"github.com/v0xg/pagepipe/internal/selector"
)

type fakeElement struct {
	text     string
	attrs    map[string]string
	hidden   bool
	children map[string][]*fakeElement
	clicks   int
	typed    []string
	pressed  []string
	failWith error
}

func (e *fakeElement) Find(ctx context.Context, s selector.Selector) (driver.Element, error) {
	return first(ctx, e.children, s, false)
}

func (e *fakeElement) FindAll(_ context.Context, s selector.Selector) ([]driver.Element, error) {
	return all(e.children, s), nil
}

func (e *fakeElement) Click(context.Context) error {
	e.clicks++
	return e.failWith
}

func (e *fakeElement) Type(_ context.Context, text string) error {
	e.typed = append(e.typed, text)
	return e.failWith
}

func (e *fakeElement) Press(_ context.Context, key string) error {
	e.pressed = append(e.pressed, key)
	return e.failWith
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, e.failWith }

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, e.failWith
}

func (e *fakeElement) Visible(context.Context) (bool, error) { return !e.hidden, e.failWith }

// fakePage resolves selectors by their String form. With slow set, misses
// wait for the context like a real browser does.
type fakePage struct {
	mu       sync.Mutex
	elements map[string][]*fakeElement
	slow     bool
	url      string
	shot     []byte
	finds    []string
	findErr  error
}

func (p *fakePage) Find(ctx context.Context, s selector.Selector) (driver.Element, error) {
	p.mu.Lock()
	p.finds = append(p.finds, s.String())
	p.mu.Unlock()
	return first(ctx, p.elements, s, p.slow)
}

func (p *fakePage) FindAll(_ context.Context, s selector.Selector) ([]driver.Element, error) {
	if p.findErr != nil {
		return nil, p.findErr
	}
	return all(p.elements, s), nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if url == "bad://" {
		return errors.New("net::ERR_ABORTED")
	}
	p.url = url
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) { return p.url, nil }

func (p *fakePage) WaitFor(ctx context.Context, s selector.Selector, timeout time.Duration) (driver.Element, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return first(ctx, p.elements, s, true)
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	if p.shot == nil {
		return nil, driver.ErrUnsupported
	}
	return p.shot, nil
}

func first(ctx context.Context, m map[string][]*fakeElement, s selector.Selector, wait bool) (driver.Element, error) {
	if els := m[s.String()]; len(els) > 0 {
		return els[0], nil
	}
	if wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, driver.ErrNotFound
}

func all(m map[string][]*fakeElement, s selector.Selector) []driver.Element {
	var out []driver.Element
	for _, el := range m[s.String()] {
		out = append(out, el)
	}
	return out
}

func run[T any](t *testing.T, page driver.Page, a flow.Action[T]) result.Result[T] {
	t.Helper()
	return a.Run(context.Background(), page)
}

func TestQueryFallsBack(t *testing.T) {
	button := &fakeElement{text: "Log in"}
	page := &fakePage{elements: map[string][]*fakeElement{"text=Log in": {button}}}
	g := selector.MustGroup("login", selector.ByID("login"), selector.ByText("Log in"))

	r := run(t, page, Query(g))
	require.True(t, r.IsOk())
	assert.Same(t, button, r.Value())
	assert.Equal(t, []string{"id=login", "text=Log in"}, page.finds)
}

func TestQueryMissIsHinted(t *testing.T) {
	page := &fakePage{}
	r := run(t, page, Query(selector.Of(selector.ByCSS("#nope"))))

	require.True(t, r.IsErr())
	assert.True(t, fault.Is(r.Err(), fault.KindAllSelectorsFailed))
	assert.ErrorIs(t, r.Err(), driver.ErrNotFound)

	var f *fault.Fault
	require.ErrorAs(t, r.Err(), &f)
	require.Len(t, f.Causes, 1)
	assert.True(t, fault.Is(f.Causes[0], fault.KindElementNotFound))

	msg, fields := fault.Format(f.Causes[0])
	assert.Contains(t, msg, "css=#nope")
	assert.Contains(t, fields["hint"], "pagepipe inspect")
}

func TestSelectorTimeoutIsNotFound(t *testing.T) {
	page := &fakePage{slow: true, elements: map[string][]*fakeElement{"css=#late": {{}}}}
	g := selector.MustGroup("late",
		selector.ByCSS("#missing").WithTimeout(10*time.Millisecond),
		selector.ByCSS("#late"),
	)

	r := run(t, page, Query(g))
	require.True(t, r.IsOk(), "%v", r.Err())
}

func TestCallerDeadlineIsTimeout(t *testing.T) {
	page := &fakePage{slow: true}
	g := selector.MustGroup("never", selector.ByCSS("#a"), selector.ByCSS("#b"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	r := Query(g).Run(ctx, page)

	assert.True(t, fault.Is(r.Err(), fault.KindTimeout))
	assert.Equal(t, []string{"css=#a"}, page.finds)
}

func TestQueryAllTreatsEmptyAsMiss(t *testing.T) {
	items := []*fakeElement{{text: "a"}, {text: "b"}}
	page := &fakePage{elements: map[string][]*fakeElement{"css=li.item": items}}
	g := selector.MustGroup("items", selector.ByCSS("li.product"), selector.ByCSS("li.item"))

	r := run(t, page, QueryAll(g))
	require.True(t, r.IsOk())
	assert.Len(t, r.Value(), 2)
}

func TestExists(t *testing.T) {
	page := &fakePage{elements: map[string][]*fakeElement{"css=.banner": {{}}}}

	assert.Equal(t, result.Ok(true), run(t, page, Exists(selector.Of(selector.ByCSS(".banner")))))
	assert.Equal(t, result.Ok(false), run(t, page, Exists(selector.Of(selector.ByCSS(".modal")))))
}

func TestExistsPropagatesDriverFailure(t *testing.T) {
	closed := errors.New("websocket: connection closed")
	page := &fakePage{findErr: closed}

	r := run(t, page, Exists(selector.Of(selector.ByCSS("#cart"))))
	require.True(t, r.IsErr())
	assert.ErrorIs(t, r.Err(), closed)
	assert.True(t, fault.Is(r.Err(), fault.KindAllSelectorsFailed))
}

func TestMissing(t *testing.T) {
	miss := fault.Wrap(driver.ErrNotFound, fault.KindElementNotFound, "q", "nothing matches")
	broken := fault.Wrap(errors.New("eof"), fault.KindActionFault, "q", "resolve")
	group := func(causes ...error) error {
		return &fault.Fault{Kind: fault.KindAllSelectorsFailed, Action: "g", Causes: causes}
	}

	assert.True(t, Missing(group(miss, miss)))
	assert.False(t, Missing(group(miss, broken)))
	assert.False(t, Missing(group()))
	assert.False(t, Missing(miss))
	assert.False(t, Missing(nil))
}

func TestElementOperations(t *testing.T) {
	input := &fakeElement{attrs: map[string]string{"placeholder": "Email"}}
	heading := &fakeElement{text: "Welcome", hidden: true}
	page := &fakePage{elements: map[string][]*fakeElement{
		"name=email": {input},
		"tag=h1":     {heading},
	}}
	email := selector.Of(selector.ByName("email"))
	h1 := selector.Of(selector.ByTag("h1"))

	require.True(t, run(t, page, Click(email)).IsOk())
	require.True(t, run(t, page, Type(email, "me@example.com")).IsOk())
	require.True(t, run(t, page, Press(email, "Enter")).IsOk())
	assert.Equal(t, 1, input.clicks)
	assert.Equal(t, []string{"me@example.com"}, input.typed)
	assert.Equal(t, []string{"Enter"}, input.pressed)

	assert.Equal(t, result.Ok("Welcome"), run(t, page, Text(h1)))
	assert.Equal(t, result.Ok(false), run(t, page, Visible(h1)))
	assert.Equal(t, result.Ok("Email"), run(t, page, Attribute(email, "placeholder")))

	r := run(t, page, Attribute(email, "value"))
	assert.True(t, fault.Is(r.Err(), fault.KindElementNotFound))
}

func TestElementOperationFailure(t *testing.T) {
	broken := &fakeElement{failWith: errors.New("element detached")}
	page := &fakePage{elements: map[string][]*fakeElement{"css=button": {broken}}}

	r := run(t, page, Click(selector.Of(selector.ByCSS("button"))))
	assert.True(t, fault.Is(r.Err(), fault.KindActionFault))
	assert.Contains(t, r.Err().Error(), "click css=button")
}

func TestSelfInsideBuild(t *testing.T) {
	card := &fakeElement{
		text:  "Lamp 19.99",
		attrs: map[string]string{"data-sku": "L-1"},
		children: map[string][]*fakeElement{
			"css=.title": {{text: "Lamp"}},
		},
	}
	page := &fakePage{elements: map[string][]*fakeElement{"css=.card": {card}}}

	e, err := flow.Build("card", flow.RecordFactory("title", "sku", "raw"),
		flow.FieldOf("title", Text(selector.Of(selector.ByCSS(".title")))),
		flow.FieldOf("sku", SelfAttribute("data-sku")),
		flow.FieldOf("raw", SelfText()),
	)
	require.NoError(t, err)

	r := run(t, page, e.Each(QueryAll(selector.Of(selector.ByCSS(".card")))))
	require.True(t, r.IsOk(), "%v", r.Err())
	assert.Equal(t, []flow.Values{{"title": "Lamp", "sku": "L-1", "raw": "Lamp 19.99"}}, r.Value())

	assert.True(t, fault.Is(run(t, page, Self()).Err(), fault.KindInvalid))
}

func TestNavigateAndURL(t *testing.T) {
	page := &fakePage{}

	require.True(t, run(t, page, Navigate("https://example.com/shop")).IsOk())
	assert.Equal(t, result.Ok("https://example.com/shop"), run(t, page, CurrentURL()))

	r := run(t, page, Navigate("bad://"))
	assert.True(t, fault.Is(r.Err(), fault.KindActionFault))
}

func TestWaitFor(t *testing.T) {
	el := &fakeElement{}
	page := &fakePage{elements: map[string][]*fakeElement{"css=#ready": {el}}}

	r := run(t, page, WaitFor(selector.ByCSS("#ready"), time.Second))
	assert.Equal(t, result.Ok[driver.Element](el), r)

	r = run(t, page, WaitFor(selector.ByCSS("#never"), 10*time.Millisecond))
	assert.True(t, fault.Is(r.Err(), fault.KindElementNotFound))
}

func TestPause(t *testing.T) {
	assert.True(t, run(t, &fakePage{}, Pause(time.Millisecond)).IsOk())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	r := Pause(time.Hour).Run(ctx, &fakePage{})
	assert.True(t, fault.Is(r.Err(), fault.KindTimeout))
}

func TestScreenshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))))
	page := &fakePage{shot: buf.Bytes()}
	path := filepath.Join(t.TempDir(), "shot.png")

	r := run(t, page, Screenshot(path, capture.Options{MaxWidth: 10}))
	require.True(t, r.IsOk(), "%v", r.Err())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), r.Value())

	r = run(t, &fakePage{}, Screenshot(path, capture.Options{}))
	assert.ErrorIs(t, r.Err(), driver.ErrUnsupported)
}
