package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindActionFault, "click", "failed"))
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name  string
		fault *Fault
		want  string
	}{
		{
			name:  "message only",
			fault: New(KindElementNotFound, "query", "no match for #x"),
			want:  "query: no match for #x",
		},
		{
			name:  "kind fallback",
			fault: &Fault{Kind: KindTimeout},
			want:  "timeout",
		},
		{
			name:  "wrapped cause",
			fault: &Fault{Kind: KindActionFault, Action: "click", Message: "failed", Err: errors.New("detached")},
			want:  "click: failed: detached",
		},
		{
			name: "member causes",
			fault: &Fault{
				Kind:    KindAllSelectorsFailed,
				Message: "all 2 selectors failed",
				Causes:  []error{errors.New("a"), errors.New("b")},
			},
			want: "all 2 selectors failed [a; b]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fault.Error())
		})
	}
}

func TestUnwrapReachesCauses(t *testing.T) {
	inner := errors.New("inner")
	member := New(KindElementNotFound, "query", "missing")
	f := &Fault{Kind: KindAllSelectorsFailed, Err: inner, Causes: []error{member}}

	assert.ErrorIs(t, f, inner)
	assert.ErrorIs(t, f, member)
	assert.Equal(t, KindAllSelectorsFailed, KindOf(f))
}

func TestAsKeepsExistingFault(t *testing.T) {
	orig := New(KindElementNotFound, "query", "missing")
	wrapped := fmt.Errorf("step 3: %w", orig)

	assert.Same(t, wrapped, As("other", wrapped))
	assert.True(t, Is(As("other", wrapped), KindElementNotFound))

	plain := As("click", errors.New("io"))
	assert.True(t, Is(plain, KindActionFault))
	assert.Contains(t, plain.Error(), "click")
	assert.NoError(t, As("click", nil))
}

func TestFromPanic(t *testing.T) {
	f := FromPanic("map(x)", "bad index")
	assert.Equal(t, KindActionFault, f.Kind)
	assert.Contains(t, f.Error(), "bad index")
	assert.NotEmpty(t, f.Stack)

	cause := errors.New("typed")
	assert.ErrorIs(t, FromPanic("x", cause), cause)
}

func TestFromContext(t *testing.T) {
	f := FromContext("wait", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, f.Kind)
	assert.ErrorIs(t, f, context.DeadlineExceeded)
	assert.Contains(t, f.Error(), "deadline exceeded")

	assert.Contains(t, FromContext("wait", context.Canceled).Error(), "cancelled")
}

func TestWithHint(t *testing.T) {
	err := WithHint(New(KindElementNotFound, "query", "missing"), "run inspect")
	_, fields := Format(err)
	assert.Equal(t, "run inspect", fields["hint"])

	err = WithHint(err, "check spelling")
	_, fields = Format(err)
	assert.Equal(t, "check spelling (run inspect)", fields["hint"])

	assert.NoError(t, WithHint(nil, "x"))
	assert.True(t, Is(WithHint(errors.New("plain"), "x"), KindActionFault))
}

func TestFormat(t *testing.T) {
	msg, fields := Format(nil)
	assert.Empty(t, msg)
	assert.Nil(t, fields)

	f := &Fault{Kind: KindParallelFailure, Action: "both", Causes: []error{errors.New("x")}}
	msg, fields = Format(f)
	require.NotEmpty(t, msg)
	assert.Equal(t, "parallel_failure", fields["kind"])
	assert.Equal(t, "both", fields["action"])
	assert.Equal(t, 1, fields["causes"])

	msg, fields = Format(errors.New("plain"))
	assert.Equal(t, "plain", msg)
	assert.Empty(t, fields)
}
