package selector

import (
	"fmt"

	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/result"
)

// Group is an ordered list of alternative selectors for one logical element.
// Order is trial order.
type Group struct {
	Name      string
	Selectors []Selector
}

// NewGroup builds a group; it needs at least one selector.
func NewGroup(name string, selectors ...Selector) (Group, error) {
	if len(selectors) == 0 {
		return Group{}, fmt.Errorf("selector group %q needs at least one selector", name)
	}
	cp := make([]Selector, len(selectors))
	copy(cp, selectors)
	return Group{Name: name, Selectors: cp}, nil
}

// MustGroup is NewGroup for statically known selectors. It panics on an empty
// list.
func MustGroup(name string, selectors ...Selector) Group {
	g, err := NewGroup(name, selectors...)
	if err != nil {
		panic(err)
	}
	return g
}

// Of wraps a single selector in a group named after it.
func Of(s Selector) Group {
	return Group{Name: s.String(), Selectors: []Selector{s}}
}

func (g Group) String() string {
	return fmt.Sprintf("%s%v", g.Name, g.Selectors)
}

// Try resolves the group by calling tryOne for each selector in declaration
// order and returns the first success. Each selector is tried at most once.
// When every selector fails the result is an AllSelectorsFailed fault naming
// the group, with the per-selector causes in Causes. A Timeout cause ends the
// search early and is returned as-is.
func Try[T any](g Group, tryOne func(Selector) result.Result[T]) result.Result[T] {
	if len(g.Selectors) == 0 {
		return result.Err[T](fault.Newf(fault.KindInvalid, g.Name, "selector group %q is empty", g.Name))
	}

	causes := make([]error, 0, len(g.Selectors))
	for _, s := range g.Selectors {
		r := tryOne(s)
		if r.IsOk() {
			return r
		}
		if fault.Is(r.Err(), fault.KindTimeout) {
			return r
		}
		causes = append(causes, fmt.Errorf("%s: %w", s, r.Err()))
	}

	return result.Err[T](&fault.Fault{
		Kind:    fault.KindAllSelectorsFailed,
		Action:  g.Name,
		Message: fmt.Sprintf("all %d selectors of group %q failed", len(g.Selectors), g.Name),
		Causes:  causes,
	})
}
