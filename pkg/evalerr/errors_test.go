package evalerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MatchesSentinel(t *testing.T) {
	err := PropertyNotFound("Person#3", "age")

	assert.True(t, errors.Is(err, ErrPropertyNotFound))
	assert.False(t, errors.Is(err, ErrTypeMismatch))
}

func TestError_MessageIncludesContext(t *testing.T) {
	err := PropertyNotFound("Person#3", "age")
	err.Expr = "(v.age > 18)"

	assert.Equal(t, `PROPERTY_NOT_FOUND: Person#3 has no property "age" (property=age) in (v.age > 18)`, err.Error())
}

func TestWithExpr(t *testing.T) {
	t.Run("annotates once", func(t *testing.T) {
		err := WithExpr(Unresolved("x"), "x + 1")
		err = WithExpr(err, "(x + 1) > 2")

		var ee *Error
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, "x + 1", ee.Expr)
	})

	t.Run("does not mutate original", func(t *testing.T) {
		orig := InvalidCast("nope")
		_ = WithExpr(orig, "cast(x)")
		assert.Empty(t, orig.Expr)
	})

	t.Run("passes foreign errors through", func(t *testing.T) {
		foreign := errors.New("boom")
		assert.Same(t, foreign, WithExpr(foreign, "x"))
	})
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("query failed: %w", TypeMismatch("bad"))

	assert.Equal(t, KindTypeMismatch, KindOf(err))
	assert.True(t, IsKind(err, KindTypeMismatch))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
