package flow

import (
	"context"
	"fmt"
	"sort"

	"github.com/v0xg/pagepipe/internal/driver"
	"github.com/v0xg/pagepipe/internal/fault"
	"github.com/v0xg/pagepipe/internal/result"
)

// Values is a record of named field values.
type Values map[string]interface{}

// Merge copies other into v, overwriting existing keys, and returns v. A nil
// v is allocated.
func (v Values) Merge(other Values) Values {
	if v == nil {
		v = make(Values, len(other))
	}
	for k, x := range other {
		v[k] = x
	}
	return v
}

// Field is one named member of an extraction schema.
type Field struct {
	name   string
	action Action[interface{}]
}

// FieldOf declares a schema field produced by a.
func FieldOf[T any](name string, a Action[T]) Field {
	return Field{name: name, action: Map(a, func(v T) interface{} { return v })}
}

func (f Field) Name() string { return f.name }

// Factory constructs a record of type R from extracted values. Fields lists
// exactly the field names New reads.
type Factory[R any] struct {
	Fields []string
	New    func(Values) (R, error)
}

// RecordFactory is a Factory whose records are the extracted Values.
func RecordFactory(fields ...string) Factory[Values] {
	return Factory[Values]{
		Fields: fields,
		New:    func(v Values) (Values, error) { return v, nil },
	}
}

// Extractor turns an element into a record by running every schema field
// inside the element.
type Extractor[R any] struct {
	name    string
	fields  []Field
	factory Factory[R]
}

// Build validates a schema against its factory. The schema must be non-empty
// with unique field names, and must declare exactly the fields the factory
// lists.
func Build[R any](name string, factory Factory[R], fields ...Field) (Extractor[R], error) {
	if len(fields) == 0 {
		return Extractor[R]{}, fault.Newf(fault.KindInvalid, name, "schema has no fields")
	}
	if factory.New == nil {
		return Extractor[R]{}, fault.Newf(fault.KindInvalid, name, "factory has no constructor")
	}

	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.name == "" {
			return Extractor[R]{}, fault.Newf(fault.KindInvalid, name, "schema field without a name")
		}
		if declared[f.name] {
			return Extractor[R]{}, fault.Newf(fault.KindInvalid, name, "duplicate field %q", f.name)
		}
		declared[f.name] = true
	}

	wanted := make(map[string]bool, len(factory.Fields))
	var missing []string
	for _, n := range factory.Fields {
		wanted[n] = true
		if !declared[n] {
			missing = append(missing, n)
		}
	}
	var extra []string
	for _, f := range fields {
		if !wanted[f.name] {
			extra = append(extra, f.name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		return Extractor[R]{}, fault.Newf(fault.KindInvalid, name,
			"schema does not match factory: missing %v, unexpected %v", missing, extra)
	}

	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Extractor[R]{name: name, fields: cp, factory: factory}, nil
}

// MustBuild is Build for schemas known to be valid. It panics otherwise.
func MustBuild[R any](name string, factory Factory[R], fields ...Field) Extractor[R] {
	e, err := Build(name, factory, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Extractor[R]) Name() string { return e.name }

// Apply runs the fields in declaration order with queries scoped to el. The
// first failing field fails the build and the factory is not called.
func (e Extractor[R]) Apply(el driver.Element) Action[R] {
	return New(e.name, func(ctx context.Context, page driver.Page) result.Result[R] {
		scoped := driver.Within(page, el)
		values := make(Values, len(e.fields))
		for _, f := range e.fields {
			r := f.action.Run(ctx, scoped)
			if r.IsErr() {
				kind := fault.KindOf(r.Err())
				if kind == "" {
					kind = fault.KindActionFault
				}
				return result.Err[R](fault.Wrap(r.Err(), kind, e.name, fmt.Sprintf("field %q", f.name)))
			}
			values[f.name] = r.Value()
		}

		rec, err := e.factory.New(values)
		if err != nil {
			return result.Err[R](fault.Wrap(err, fault.KindActionFault, e.name, "construct record"))
		}
		return result.Ok(rec)
	})
}

// From builds a record from the element upstream resolves.
func (e Extractor[R]) From(upstream Action[driver.Element]) Action[R] {
	return AndThen(upstream, e.Apply).Named(e.name)
}

// Each builds one record per element upstream resolves. The first failing
// element fails the whole action.
func (e Extractor[R]) Each(upstream Action[[]driver.Element]) Action[[]R] {
	return AndThen(upstream, func(els []driver.Element) Action[[]R] {
		return ForEach(els, e.Apply)
	}).Named(e.name)
}
