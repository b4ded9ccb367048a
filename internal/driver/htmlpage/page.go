// Package htmlpage is a driver over static HTML documents. It fetches pages
// over HTTP and answers queries with goquery, without running any script.
// Links and forms are followed on Click; there is no rendering, so
// screenshots and XPath selectors are unsupported.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/selector"
)

// Page is a driver.Page over the last loaded document. It is safe for
// concurrent use.
type Page struct {
	client *http.Client

	mu  sync.RWMutex
	url *url.URL
	doc *goquery.Document
}

var (
	_ driver.Page      = (*Page)(nil)
	_ driver.Inspector = (*Page)(nil)
)

// New returns an empty page that fetches with client, or a client with a 30s
// timeout when nil.
func New(client *http.Client) *Page {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Page{client: client}
}

// FromString returns a page showing html as if it had been loaded from rawURL.
func FromString(rawURL, html string) (*Page, error) {
	p := New(nil)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if err := p.load(u, strings.NewReader(html)); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	u, err := p.resolve(rawURL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return p.do(req)
}

func (p *Page) URL(context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.url == nil {
		return "about:blank", nil
	}
	return p.url.String(), nil
}

func (p *Page) Find(ctx context.Context, sel selector.Selector) (driver.Element, error) {
	els, err := p.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrNotFound, sel)
	}
	return els[0], nil
}

func (p *Page) FindAll(_ context.Context, sel selector.Selector) ([]driver.Element, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc == nil {
		return nil, fmt.Errorf("%w: no document loaded", driver.ErrNotFound)
	}
	return p.match(p.doc.Selection, sel)
}

// WaitFor resolves sel immediately; a static document never changes on its
// own.
func (p *Page) WaitFor(ctx context.Context, sel selector.Selector, _ time.Duration) (driver.Element, error) {
	return p.Find(ctx, sel)
}

func (p *Page) Screenshot(context.Context) ([]byte, error) {
	return nil, fmt.Errorf("%w: static pages have no rendering", driver.ErrUnsupported)
}

// match runs sel below root. Callers hold p.mu.
func (p *Page) match(root *goquery.Selection, sel selector.Selector) ([]driver.Element, error) {
	var found *goquery.Selection
	switch sel.Kind {
	case selector.XPath:
		return nil, fmt.Errorf("%w: xpath selector %q", driver.ErrUnsupported, sel.Value)
	case selector.Text:
		want := normalize(sel.Value)
		found = root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(ownText(s), want)
		})
	case selector.LinkText:
		want := normalize(sel.Value)
		found = root.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return normalize(s.Text()) == want
		})
	default:
		_, expr := sel.Expr()
		m, err := cascadia.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %s: %w", sel, err)
		}
		found = root.FindMatcher(m)
	}

	els := make([]driver.Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		els = append(els, &Element{page: p, sel: s})
	})
	return els, nil
}

func (p *Page) resolve(rawURL string) (*url.URL, error) {
	p.mu.RLock()
	base := p.url
	p.mu.RUnlock()
	return resolveURL(base, rawURL)
}

// resolveURL resolves rawURL against base, which may be nil.
func resolveURL(base *url.URL, rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: cannot load %q", driver.ErrUnsupported, u.String())
	}
	return u, nil
}

func (p *Page) do(req *http.Request) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("failed to load %s: %s", req.URL, resp.Status)
	}
	return p.load(resp.Request.URL, resp.Body)
}

func (p *Page) load(u *url.URL, r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", u, err)
	}
	doc.Url = u

	p.mu.Lock()
	p.url = u
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ownText is the normalised text of the direct text children of s.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteByte(' ')
		}
	})
	return normalize(b.String())
}
