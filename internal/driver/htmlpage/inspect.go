package htmlpage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/v0xg/pagepipe/internal/driver"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Inspect lists the interactive elements of the document with candidate
// selectors, the same way browser backends do with driver.InventoryScript.
func (p *Page) Inspect(context.Context) (*driver.Inventory, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc == nil {
		return nil, fmt.Errorf("%w: no document loaded", driver.ErrNotFound)
	}

	inv := &driver.Inventory{
		URL:   p.url.String(),
		Title: normalize(p.doc.Find("title").First().Text()),
	}
	add := func(s *goquery.Selection, typ string) {
		el := &Element{page: p, sel: s}
		if !visible(el) {
			return
		}
		inv.Elements = append(inv.Elements, driver.InventoryItem{
			Type:        typ,
			Text:        truncate(normalize(s.Text()), 50),
			Placeholder: s.AttrOr("placeholder", ""),
			Selectors:   candidates(p.doc, s),
		})
	}

	// A node may match more than one query; keep its first classification.
	nodes := make(map[*html.Node]bool)
	each := func(query string, typ func(*goquery.Selection) string) {
		p.doc.Find(query).Each(func(_ int, s *goquery.Selection) {
			if nodes[s.Get(0)] {
				return
			}
			nodes[s.Get(0)] = true
			add(s, typ(s))
		})
	}
	fixed := func(t string) func(*goquery.Selection) string {
		return func(*goquery.Selection) string { return t }
	}

	each(`button, [role="button"], input[type="submit"], input[type="button"]`, fixed("button"))
	each(`input[type="checkbox"], input[type="radio"]`, func(s *goquery.Selection) string { return s.AttrOr("type", "") })
	each(`input:not([type="hidden"]), textarea`, func(s *goquery.Selection) string {
		if goquery.NodeName(s) == "textarea" {
			return "textarea"
		}
		return s.AttrOr("type", "text")
	})
	each(`select`, fixed("select"))
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if strings.HasPrefix(s.AttrOr("href", ""), "javascript:") || nodes[s.Get(0)] {
			return
		}
		nodes[s.Get(0)] = true
		add(s, "link")
	})

	return inv, nil
}

// visible is Element.Visible for callers already holding the page lock.
func visible(e *Element) bool {
	if goquery.NodeName(e.sel) == "input" && strings.EqualFold(e.sel.AttrOr("type", ""), "hidden") {
		return false
	}
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		switch goquery.NodeName(s) {
		case "head", "script", "style", "template", "noscript":
			return false
		}
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

// candidates returns selectors for s, most specific first.
func candidates(doc *goquery.Document, s *goquery.Selection) []string {
	var out []string
	tag := goquery.NodeName(s)

	if id, ok := s.Attr("id"); ok && identRe.MatchString(id) {
		out = append(out, "#"+id)
	}
	if name, ok := s.Attr("name"); ok && name != "" {
		out = append(out, "name="+name)
	}
	if testID, ok := s.Attr("data-testid"); ok && testID != "" {
		out = append(out, fmt.Sprintf(`[data-testid=%q]`, testID))
	}
	var classes []string
	for _, c := range strings.Fields(s.AttrOr("class", "")) {
		if identRe.MatchString(c) {
			classes = append(classes, c)
		}
		if len(classes) == 2 {
			break
		}
	}
	if len(classes) > 0 {
		sel := tag + "." + strings.Join(classes, ".")
		if doc.Find(sel).Length() == 1 {
			out = append(out, sel)
		}
	}

	text := normalize(s.Text())
	switch {
	case tag == "a" && text != "" && len(text) <= 40:
		out = append(out, "link="+text)
	case tag == "button" && text != "" && len(text) <= 40:
		out = append(out, "text="+text)
	}

	if len(out) == 0 {
		idx := s.Parent().Children().IndexOfSelection(s) + 1
		out = append(out, fmt.Sprintf("%s:nth-child(%d)", tag, idx))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
