package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/v0xg/pagepipe/internal/actions"
	"github.com/v0xg/pagepipe/internal/capture"
	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/flow"
	"github.com/v0xg/pagepipe/internal/result"
	"github.com/v0xg/pagepipe/internal/selector"
)

// DefaultWaitTimeout bounds wait_for steps that set no timeout.
const DefaultWaitTimeout = 10 * time.Second

type compiler struct {
	limiter *rate.Limiter
}

func newCompiler(s *Script) *compiler {
	c := &compiler{}
	if s.Rate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.Rate), 1)
	}
	return c
}

// Compile validates every step of s and returns the script as a single
// action. Step outputs are merged into the returned Values under their
// "as" keys.
func Compile(s *Script) (flow.Action[flow.Values], error) {
	c := newCompiler(s)
	steps, err := c.steps("steps", s.Steps)
	if err != nil {
		return flow.Action[flow.Values]{}, err
	}
	name := s.Name
	if name == "" {
		name = "script"
	}
	a := sequence(name, steps)
	if s.Timeout > 0 {
		a = a.Timeout(s.Timeout)
	}
	return a, nil
}

func (c *compiler) steps(path string, steps []Step) ([]flow.Action[flow.Values], error) {
	out := make([]flow.Action[flow.Values], 0, len(steps))
	for i, st := range steps {
		a, err := c.step(fmt.Sprintf("%s[%d]", path, i), st)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *compiler) step(path string, st Step) (flow.Action[flow.Values], error) {
	a, err := c.base(path, st)
	if err != nil {
		return a, err
	}
	if a, err = modifiers(path, st, a); err != nil {
		return a, err
	}

	if len(st.Fallback) > 0 {
		fb, err := c.steps(path+".fallback", st.Fallback)
		if err != nil {
			return a, err
		}
		a = a.Or(sequence("fallback", fb))
	}

	if st.Wait > 0 && st.Action != "wait" {
		name, pause := a.Name(), actions.Pause(st.Wait)
		a = flow.AndThen(a, func(v flow.Values) flow.Action[flow.Values] {
			return flow.Map(pause, func(struct{}) flow.Values { return v })
		}).Named(name)
	}
	if c.limiter != nil {
		a = a.Throttle(c.limiter)
	}
	return flow.InstrumentAs(st.Action, a), nil
}

// modifiers applies the step's name, retry policy and timeout.
func modifiers[T any](path string, st Step, a flow.Action[T]) (flow.Action[T], error) {
	if st.Name != "" {
		a = a.Named(st.Name)
	}
	if r := st.Retry; r != nil {
		if r.Attempts < 1 {
			return a, invalid(path, st, "retry needs at least one attempt")
		}
		a = a.Retry(r.Attempts, r.Delay, flow.Backoff(r.Backoff), flow.MaxDelay(r.MaxDelay))
	}
	if st.Timeout > 0 && st.Action != "wait_for" {
		a = a.Timeout(st.Timeout)
	}
	return a, nil
}

func (c *compiler) base(path string, st Step) (flow.Action[flow.Values], error) {
	var none flow.Action[flow.Values]

	switch st.Action {
	case "navigate":
		if st.URL == "" {
			return none, invalid(path, st, "url is required")
		}
		return discard(actions.Navigate(st.URL)), nil

	case "click":
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		return discard(actions.Click(g)), nil

	case "type":
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		return discard(actions.Type(g, st.Text)), nil

	case "press":
		if st.Key == "" {
			return none, invalid(path, st, "key is required")
		}
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		return discard(actions.Press(g, st.Key)), nil

	case "wait":
		if st.Wait <= 0 {
			return none, invalid(path, st, "wait needs a positive duration")
		}
		return discard(actions.Pause(st.Wait)), nil

	case "wait_for":
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		timeout := st.Timeout
		if timeout <= 0 {
			timeout = DefaultWaitTimeout
		}
		a := actions.WaitFor(g.Selectors[0], timeout)
		for _, s := range g.Selectors[1:] {
			a = a.Or(actions.WaitFor(s, timeout))
		}
		return discard(a), nil

	case "screenshot":
		if st.Path == "" {
			return none, invalid(path, st, "path is required")
		}
		return output(st.As, toAny(actions.Screenshot(st.Path, capture.Options{MaxWidth: st.MaxWidth}))), nil

	case "group":
		children, err := c.children(path, st)
		if err != nil {
			return none, err
		}
		return sequence("group", children), nil

	case "parallel":
		children, err := c.children(path, st)
		if err != nil {
			return none, err
		}
		return flow.Map(flow.All(children...), merge), nil

	case "each":
		return c.each(path, st)

	case "if":
		return c.branch(path, st)

	case "text", "attribute", "exists", "visible", "url", "extract":
		v, err := c.value(path, st, false)
		if err != nil {
			return none, err
		}
		return output(st.As, v), nil

	case "":
		return none, invalid(path, st, "action is required")
	}
	return none, invalid(path, st, "unknown action")
}

func (c *compiler) children(path string, st Step) ([]flow.Action[flow.Values], error) {
	if len(st.Steps) == 0 {
		return nil, invalid(path, st, "steps are required")
	}
	return c.steps(path+".steps", st.Steps)
}

// each runs its steps once per match, scoped to the matched element. No
// match runs nothing.
func (c *compiler) each(path string, st Step) (flow.Action[flow.Values], error) {
	g, err := group(path, st)
	if err != nil {
		return flow.Action[flow.Values]{}, err
	}
	children, err := c.children(path, st)
	if err != nil {
		return flow.Action[flow.Values]{}, err
	}
	body := sequence("each", children)

	matches := actions.QueryAll(g).OrElse(func(err error) flow.Action[[]driver.Element] {
		if actions.Missing(err) {
			return flow.Succeed([]driver.Element{})
		}
		return flow.Fail[[]driver.Element]("each "+g.Name, err)
	})
	a := flow.AndThen(matches, func(els []driver.Element) flow.Action[[]flow.Values] {
		return flow.ForEach(els, func(el driver.Element) flow.Action[flow.Values] {
			return within(el, body)
		})
	}).Named("each " + g.Name)
	return output(st.As, toAny(a)), nil
}

// branch runs steps when the selector matches and else otherwise.
func (c *compiler) branch(path string, st Step) (flow.Action[flow.Values], error) {
	g, err := group(path, st)
	if err != nil {
		return flow.Action[flow.Values]{}, err
	}
	then, err := c.children(path, st)
	if err != nil {
		return flow.Action[flow.Values]{}, err
	}
	otherwise := flow.Succeed(flow.Values{})
	if len(st.Else) > 0 {
		els, err := c.steps(path+".else", st.Else)
		if err != nil {
			return flow.Action[flow.Values]{}, err
		}
		otherwise = sequence("else", els)
	}
	return flow.BranchOn(actions.Exists(g), sequence("then", then), otherwise), nil
}

// value compiles a step that produces a value. Inside extract fields a step
// without a selector reads the element being extracted.
func (c *compiler) value(path string, st Step, field bool) (flow.Action[interface{}], error) {
	var none flow.Action[interface{}]
	self := field && len(st.Selector) == 0

	switch st.Action {
	case "text":
		if self {
			return toAny(actions.SelfText()), nil
		}
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		if st.All {
			return toAny(every(g, actions.SelfText())), nil
		}
		return toAny(actions.Text(g)), nil

	case "attribute":
		if st.Attribute == "" {
			return none, invalid(path, st, "attribute is required")
		}
		if self {
			return toAny(actions.SelfAttribute(st.Attribute)), nil
		}
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		if st.All {
			return toAny(every(g, actions.SelfAttribute(st.Attribute))), nil
		}
		return toAny(actions.Attribute(g, st.Attribute)), nil

	case "exists":
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		return toAny(actions.Exists(g)), nil

	case "visible":
		g, err := group(path, st)
		if err != nil {
			return none, err
		}
		return toAny(actions.Visible(g)), nil

	case "url":
		return toAny(actions.CurrentURL()), nil

	case "extract":
		return c.extract(path, st, self)
	}

	if field {
		return none, invalid(path, st, "cannot be used as an extract field")
	}
	return none, invalid(path, st, "unknown action")
}

func (c *compiler) extract(path string, st Step, self bool) (flow.Action[interface{}], error) {
	var none flow.Action[interface{}]
	if len(st.Fields) == 0 {
		return none, invalid(path, st, "fields are required")
	}

	names := make([]string, 0, len(st.Fields))
	fields := make([]flow.Field, 0, len(st.Fields))
	for i, f := range st.Fields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, i)
		if f.As == "" {
			return none, invalid(fpath, f, "field needs an \"as\" name")
		}
		if len(f.Fallback) > 0 || f.Wait > 0 {
			return none, invalid(fpath, f, "fields support neither fallback nor wait")
		}
		v, err := c.value(fpath, f, true)
		if err != nil {
			return none, err
		}
		if v, err = modifiers(fpath, f, v); err != nil {
			return none, err
		}
		names = append(names, f.As)
		fields = append(fields, flow.FieldOf(f.As, v))
	}

	name := st.Name
	if name == "" {
		name = "extract"
	}
	ex, err := flow.Build(name, flow.RecordFactory(names...), fields...)
	if err != nil {
		return none, fmt.Errorf("%s: %w", path, err)
	}

	switch {
	case self:
		return toAny(ex.From(actions.Self())), nil
	case len(st.Selector) == 0:
		return none, invalid(path, st, "selector is required")
	}
	g, err := group(path, st)
	if err != nil {
		return none, err
	}
	if st.All {
		return toAny(ex.Each(actions.QueryAll(g))), nil
	}
	return toAny(ex.From(actions.Query(g))), nil
}

// group parses the step's selectors in trial order.
func group(path string, st Step) (selector.Group, error) {
	if len(st.Selector) == 0 {
		return selector.Group{}, invalid(path, st, "selector is required")
	}
	sels := make([]selector.Selector, 0, len(st.Selector))
	for _, raw := range st.Selector {
		s, err := selector.Parse(raw)
		if err != nil {
			return selector.Group{}, invalid(path, st, err.Error())
		}
		sels = append(sels, s)
	}
	name := st.Name
	if name == "" {
		name = st.Selector[0]
	}
	return selector.NewGroup(name, sels...)
}

// every runs a on each element matching g.
func every[T any](g selector.Group, a flow.Action[T]) flow.Action[[]T] {
	return flow.AndThen(actions.QueryAll(g), func(els []driver.Element) flow.Action[[]T] {
		return flow.ForEach(els, func(el driver.Element) flow.Action[T] {
			return within(el, a)
		})
	})
}

// within runs a with queries scoped to el.
func within[T any](el driver.Element, a flow.Action[T]) flow.Action[T] {
	return flow.New(a.Name(), func(ctx context.Context, page driver.Page) result.Result[T] {
		return a.Run(ctx, driver.Within(page, el))
	})
}

func sequence(name string, steps []flow.Action[flow.Values]) flow.Action[flow.Values] {
	return flow.Map(flow.Sequence(steps...), merge).Named(name)
}

func merge(vs []flow.Values) flow.Values {
	out := flow.Values{}
	for _, v := range vs {
		out.Merge(v)
	}
	return out
}

func toAny[T any](a flow.Action[T]) flow.Action[interface{}] {
	return flow.Map(a, func(v T) interface{} { return v })
}

func discard[T any](a flow.Action[T]) flow.Action[flow.Values] {
	return flow.Map(a, func(T) flow.Values { return flow.Values{} })
}

// output stores the value under key, or drops it when key is empty.
func output(key string, a flow.Action[interface{}]) flow.Action[flow.Values] {
	return flow.Map(a, func(v interface{}) flow.Values {
		if key == "" {
			return flow.Values{}
		}
		return flow.Values{key: v}
	})
}

func invalid(path string, st Step, msg string) error {
	if st.Action == "" {
		return fmt.Errorf("%s: %s", path, msg)
	}
	return fmt.Errorf("%s (%s): %s", path, st.Action, msg)
}
