package rodpage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/selector"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name string
		want input.Key
	}{
		{"Enter", input.Enter},
		{" tab ", input.Tab},
		{"ESC", input.Escape},
		{"ArrowDown", input.ArrowDown},
		{"PageUp", input.PageUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok := keyFor(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, k)
		})
	}

	_, ok := keyFor("Hyper")
	assert.False(t, ok)
}

const testHTML = `<html><head><title>Fixture</title></head><body>
<h1 id="title">Hello</h1>
<ul><li class="item" data-id="1">One</li><li class="item" data-id="2">Two</li></ul>
<input id="name" name="name" placeholder="Your name">
<button id="go" onclick="document.getElementById('title').textContent = 'Hi ' + document.getElementById('name').value">Go</button>
</body></html>`

// launch starts a real browser. These tests need Chromium and are skipped
// unless PAGEPIPE_BROWSER_TESTS is set.
func launch(t *testing.T) (*Browser, string) {
	t.Helper()
	if testing.Short() || os.Getenv("PAGEPIPE_BROWSER_TESTS") == "" {
		t.Skip("set PAGEPIPE_BROWSER_TESTS=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testHTML)
	}))
	t.Cleanup(srv.Close)

	b, err := Launch(context.Background(), Options{Headless: true, Timeout: 10 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, srv.URL
}

func TestBrowserPage(t *testing.T) {
	b, url := launch(t)
	ctx := context.Background()
	page := b.Page()

	require.NoError(t, page.Navigate(ctx, url))

	u, err := page.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, url+"/", u)

	items, err := page.FindAll(ctx, selector.ByClass("item"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	id, ok, err := items[1].Attribute(ctx, "data-id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", id)

	second, err := page.Find(ctx, selector.ByXPath("(//li)[2]"))
	require.NoError(t, err)
	text, err := second.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Two", text)

	name, err := page.Find(ctx, selector.ByName("name"))
	require.NoError(t, err)
	require.NoError(t, name.Type(ctx, "Ada"))

	goButton, err := page.Find(ctx, selector.ByText("Go"))
	require.NoError(t, err)
	require.NoError(t, goButton.Click(ctx))

	title, err := page.Find(ctx, selector.ByID("title"))
	require.NoError(t, err)
	text, err = title.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", text)

	shot, err := page.Screenshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, shot)
}

func TestBrowserNotFound(t *testing.T) {
	b, url := launch(t)
	ctx := context.Background()
	page := b.Page()
	require.NoError(t, page.Navigate(ctx, url))

	short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err := page.WaitFor(short, selector.ByCSS("#absent"), 100*time.Millisecond)
	assert.Error(t, err)

	els, err := page.FindAll(ctx, selector.ByCSS("#absent"))
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestBrowserInspect(t *testing.T) {
	b, url := launch(t)
	ctx := context.Background()
	page := b.Page()
	require.NoError(t, page.Navigate(ctx, url))

	inv, err := page.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fixture", inv.Title)

	var types []string
	for _, item := range inv.Elements {
		types = append(types, item.Type)
	}
	assert.Contains(t, types, "button")
	assert.Contains(t, types, "text")

	var _ driver.Inspector = page
}
