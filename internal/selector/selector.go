// Package selector describes element locators and ordered groups of
// alternative locators for the same logical element.
package selector

import (
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Kind is the locator strategy of a Selector.
type Kind int

const (
	CSS Kind = iota
	XPath
	Text
	ID
	Class
	Name
	Tag
	LinkText
)

var kindNames = map[Kind]string{
	CSS:      "css",
	XPath:    "xpath",
	Text:     "text",
	ID:       "id",
	Class:    "class",
	Name:     "name",
	Tag:      "tag",
	LinkText: "link",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Syntax is the query language a Selector lowers to.
type Syntax int

const (
	SyntaxCSS Syntax = iota
	SyntaxXPath
)

// Selector locates an element. Timeout, when non-zero, bounds a single
// resolution attempt.
type Selector struct {
	Kind    Kind
	Value   string
	Timeout time.Duration
}

func ByCSS(v string) Selector      { return Selector{Kind: CSS, Value: v} }
func ByXPath(v string) Selector    { return Selector{Kind: XPath, Value: v} }
func ByText(v string) Selector     { return Selector{Kind: Text, Value: v} }
func ByID(v string) Selector       { return Selector{Kind: ID, Value: v} }
func ByClass(v string) Selector    { return Selector{Kind: Class, Value: v} }
func ByName(v string) Selector     { return Selector{Kind: Name, Value: v} }
func ByTag(v string) Selector      { return Selector{Kind: Tag, Value: v} }
func ByLinkText(v string) Selector { return Selector{Kind: LinkText, Value: v} }

// WithTimeout returns a copy of s bounded by d.
func (s Selector) WithTimeout(d time.Duration) Selector {
	s.Timeout = d
	return s
}

func (s Selector) String() string {
	return s.Kind.String() + "=" + s.Value
}

// Parse reads the textual form used in pipeline scripts: an optional
// "kind=" prefix followed by the value. Values starting with "//" or "(//"
// are XPath, everything else defaults to CSS.
func Parse(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, fmt.Errorf("empty selector")
	}
	if prefix, value, ok := strings.Cut(raw, "="); ok {
		for k, n := range kindNames {
			if prefix == n {
				if strings.TrimSpace(value) == "" {
					return Selector{}, fmt.Errorf("selector %q has an empty value", raw)
				}
				s := Selector{Kind: k, Value: value}
				return s, s.Validate()
			}
		}
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "(//") {
		return ByXPath(raw), nil
	}
	s := ByCSS(raw)
	return s, s.Validate()
}

// Validate checks that CSS based selectors compile.
func (s Selector) Validate() error {
	syntax, expr := s.Expr()
	if syntax != SyntaxCSS {
		return nil
	}
	if _, err := cascadia.Compile(expr); err != nil {
		return fmt.Errorf("invalid css selector %q: %w", expr, err)
	}
	return nil
}

// Expr lowers s to a CSS or XPath expression.
func (s Selector) Expr() (Syntax, string) {
	switch s.Kind {
	case XPath:
		return SyntaxXPath, s.Value
	case Text:
		return SyntaxXPath, fmt.Sprintf("//*[contains(normalize-space(text()), %s)]", xpathLiteral(s.Value))
	case LinkText:
		return SyntaxXPath, fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(s.Value))
	case ID:
		return SyntaxCSS, "#" + cssIdent(s.Value)
	case Class:
		return SyntaxCSS, "." + cssIdent(s.Value)
	case Name:
		return SyntaxCSS, "[name=" + CSSString(s.Value) + "]"
	default:
		return SyntaxCSS, s.Value
	}
}

// RelativeXPath makes an absolute expression search below the context node
// when evaluated against an element.
func RelativeXPath(expr string) string {
	switch {
	case strings.HasPrefix(expr, "//"):
		return "." + expr
	case strings.HasPrefix(expr, "(//"):
		return "(." + expr[1:]
	}
	return expr
}

// xpathLiteral quotes v for XPath 1.0, which has no escape sequences.
func xpathLiteral(v string) string {
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	parts := strings.Split(v, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// CSSString quotes v as a CSS string. Quotes and backslashes are escaped,
// control characters become hex escapes.
func CSSString(v string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range v {
		switch {
		case r == '"' || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// cssIdent escapes the characters that commonly break id and class selectors.
func cssIdent(v string) string {
	var b strings.Builder
	for i, r := range v {
		switch {
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case strings.ContainsRune(`!"#$%&'()*+,./:;<=>?@[\]^{|}~ `, r):
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
