package pwpage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/selector"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		sel      selector.Selector
		relative bool
		want     string
	}{
		{sel: selector.ByCSS("div > a"), want: "css=div > a"},
		{sel: selector.ByID("go"), want: "css=#go"},
		{sel: selector.ByXPath("//li"), want: "xpath=//li"},
		{sel: selector.ByXPath("//li"), relative: true, want: "xpath=.//li"},
		{sel: selector.ByLinkText("Home"), relative: true, want: `xpath=.//a[normalize-space(.)="Home"]`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, query(tt.sel, tt.relative))
		})
	}
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "Enter", keyName("enter"))
	assert.Equal(t, "Escape", keyName(" ESC "))
	assert.Equal(t, "ArrowDown", keyName("arrowdown"))
	assert.Equal(t, "Control+A", keyName("Control+A"))
}

func TestRemaining(t *testing.T) {
	p := &Page{timeout: 5 * time.Second}

	assert.Equal(t, 5*time.Second, p.remaining(context.Background(), p.timeout))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	left := p.remaining(ctx, p.timeout)
	assert.True(t, left > 0 && left <= time.Second)

	expired, cancel2 := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel2()
	<-expired.Done()
	assert.Equal(t, time.Millisecond, p.remaining(expired, p.timeout))
}

func TestNotFoundKeepsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := notFound(ctx, selector.ByID("x"), fmt.Errorf("boom"))
	assert.ErrorIs(t, err, context.Canceled)

	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, notFound(context.Background(), selector.ByID("x"), plain))
}

// Requires the Playwright driver and Chromium, installed with --install.
func TestBrowserPage(t *testing.T) {
	if testing.Short() || os.Getenv("PAGEPIPE_BROWSER_TESTS") == "" {
		t.Skip("set PAGEPIPE_BROWSER_TESTS=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Fixture</title></head><body>
<ul><li class="item" data-id="1">One</li><li class="item" data-id="">Two</li></ul>
<input id="name"><button onclick="document.title = document.getElementById('name').value">Go</button>
</body></html>`)
	}))
	defer srv.Close()

	b, err := Launch(Options{Headless: true, Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	page := b.Page()
	require.NoError(t, page.Navigate(ctx, srv.URL))

	items, err := page.FindAll(ctx, selector.ByClass("item"))
	require.NoError(t, err)
	require.Len(t, items, 2)

	v, ok, err := items[1].Attribute(ctx, "data-id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
	_, ok, err = items[1].Attribute(ctx, "data-missing")
	require.NoError(t, err)
	assert.False(t, ok)

	name, err := page.Find(ctx, selector.ByID("name"))
	require.NoError(t, err)
	require.NoError(t, name.Type(ctx, "typed"))
	button, err := page.Find(ctx, selector.ByText("Go"))
	require.NoError(t, err)
	require.NoError(t, button.Click(ctx))

	inv, err := page.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "typed", inv.Title)

	_, err = page.WaitFor(ctx, selector.ByID("absent"), 200*time.Millisecond)
	assert.Error(t, err)

	var _ driver.Inspector = page
}
