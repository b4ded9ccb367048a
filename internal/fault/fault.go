// Package fault defines the error taxonomy carried on the failure track of a
// pipeline. Every failure that leaves an action is either a *Fault or wraps one.
package fault

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindElementNotFound means a selector or group did not resolve.
	KindElementNotFound Kind = "element_not_found"
	// KindActionFault means the underlying operation itself failed or panicked.
	KindActionFault Kind = "action_fault"
	// KindAllSelectorsFailed means every member of a selector group failed.
	KindAllSelectorsFailed Kind = "all_selectors_failed"
	// KindParallelFailure means at least one branch of a parallel action failed.
	KindParallelFailure Kind = "parallel_failure"
	// KindTimeout means the caller's context expired or was cancelled.
	KindTimeout Kind = "timeout"
	// KindInvalid means an action was built from invalid input.
	KindInvalid Kind = "invalid"
)

// Fault is a classified failure produced by an action.
type Fault struct {
	Kind    Kind
	Action  string
	Message string
	// Err is the wrapped underlying cause, if any.
	Err error
	// Causes holds member failures for aggregate kinds.
	Causes []error
	Hint   string
	Stack  string
}

// New creates a fault without an underlying cause.
func New(kind Kind, action, message string) *Fault {
	return &Fault{Kind: kind, Action: action, Message: message}
}

// Newf creates a fault with a formatted message.
func Newf(kind Kind, action, format string, args ...interface{}) *Fault {
	return New(kind, action, fmt.Sprintf(format, args...))
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(err error, kind Kind, action, message string) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Action: action, Message: message, Err: err}
}

// As returns err unchanged when it already carries a Fault, otherwise it wraps
// it as an ActionFault of the named action.
func As(action string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}
	return &Fault{Kind: KindActionFault, Action: action, Err: err}
}

// FromPanic converts a recovered panic value into an ActionFault.
func FromPanic(action string, v interface{}) *Fault {
	f := &Fault{
		Kind:    KindActionFault,
		Action:  action,
		Message: "panic",
		Stack:   string(debug.Stack()),
	}
	if err, ok := v.(error); ok {
		f.Err = err
	} else {
		f.Err = fmt.Errorf("%v", v)
	}
	return f
}

// FromContext converts a context error into a Timeout fault.
func FromContext(action string, err error) *Fault {
	msg := "cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "deadline exceeded"
	}
	return &Fault{Kind: KindTimeout, Action: action, Message: msg, Err: err}
}

func (f *Fault) Error() string {
	var b strings.Builder
	if f.Action != "" {
		b.WriteString(f.Action)
		b.WriteString(": ")
	}
	switch {
	case f.Message != "":
		b.WriteString(f.Message)
	default:
		b.WriteString(string(f.Kind))
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	if len(f.Causes) > 0 {
		b.WriteString(" [")
		for i, c := range f.Causes {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(c.Error())
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes both the wrapped cause and any member causes to errors.Is/As.
func (f *Fault) Unwrap() []error {
	errs := make([]error, 0, len(f.Causes)+1)
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return append(errs, f.Causes...)
}

// KindOf returns the kind of the outermost Fault in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Is reports whether the outermost Fault in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// WithHint attaches a human readable suggestion to the outermost Fault. Errors
// that carry no Fault are wrapped as ActionFaults first.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if !errors.As(err, &f) {
		return &Fault{Kind: KindActionFault, Err: err, Hint: hint}
	}
	cp := *f
	if cp.Hint != "" {
		hint = hint + " (" + cp.Hint + ")"
	}
	cp.Hint = hint
	return &cp
}

// Format splits err into a message and a set of structured fields suitable for
// a logger.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}
	fields := make(map[string]interface{})
	var f *Fault
	if errors.As(err, &f) {
		fields["kind"] = string(f.Kind)
		if f.Action != "" {
			fields["action"] = f.Action
		}
		if len(f.Causes) > 0 {
			fields["causes"] = len(f.Causes)
		}
		if f.Hint != "" {
			fields["hint"] = f.Hint
		}
	}
	return err.Error(), fields
}
