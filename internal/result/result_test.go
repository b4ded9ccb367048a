package result

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func samples() map[string]Result[int] {
	return map[string]Result[int]{
		"ok":  Ok(21),
		"err": Err[int](errBoom),
	}
}

func TestMapIdentity(t *testing.T) {
	for name, r := range samples() {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, r, Map(r, func(v int) int { return v }))
		})
	}
}

func TestAndThenRightIdentity(t *testing.T) {
	for name, r := range samples() {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, r, AndThen(r, Ok[int]))
		})
	}
}

func TestAndThenAssociative(t *testing.T) {
	f := func(v int) Result[int] { return Ok(v * 2) }
	g := func(v int) Result[string] {
		if v > 100 {
			return Err[string](errBoom)
		}
		return Ok(strconv.Itoa(v))
	}

	for name, r := range samples() {
		t.Run(name, func(t *testing.T) {
			left := AndThen(AndThen(r, f), g)
			right := AndThen(r, func(x int) Result[string] { return AndThen(f(x), g) })
			assert.Equal(t, left, right)
		})
	}
}

func TestMapSkipsFailure(t *testing.T) {
	called := false
	r := Map(Err[int](errBoom), func(v int) string {
		called = true
		return "x"
	})

	assert.False(t, called)
	assert.True(t, r.IsErr())
	assert.ErrorIs(t, r.Err(), errBoom)
}

func TestAndThenSkipsFailure(t *testing.T) {
	called := false
	r := AndThen(Err[int](errBoom), func(v int) Result[int] {
		called = true
		return Ok(v)
	})

	assert.False(t, called)
	assert.ErrorIs(t, r.Err(), errBoom)
}

func TestOrElse(t *testing.T) {
	recovered := Err[int](errBoom).OrElse(func(err error) Result[int] {
		require.ErrorIs(t, err, errBoom)
		return Ok(7)
	})
	assert.Equal(t, Ok(7), recovered)

	untouched := Ok(3).OrElse(func(error) Result[int] {
		t.Fatal("OrElse must not run on success")
		return Ok(0)
	})
	assert.Equal(t, Ok(3), untouched)
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, 5, Ok(5).ValueOr(9))
	assert.Equal(t, 9, Err[int](errBoom).ValueOr(9))
}

func TestErrNilCause(t *testing.T) {
	r := Err[string](nil)

	assert.True(t, r.IsErr())
	assert.False(t, r.IsOk())
	assert.Error(t, r.Err())
}

func TestFrom(t *testing.T) {
	v, err := From(4, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	assert.ErrorIs(t, From(4, errBoom).Err(), errBoom)
	assert.Equal(t, 0, From(4, errBoom).Value())
}

func TestString(t *testing.T) {
	assert.Equal(t, "Ok(1)", Ok(1).String())
	assert.Equal(t, "Err(boom)", Err[int](errBoom).String())
}
