package value

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/orneryd/nornicrt/pkg/arena"
	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, TypeNull, v.Type())
	assert.Equal(t, "null", v.String())
}

func TestValue_TypeTagMatchesConstructor(t *testing.T) {
	cases := []struct {
		v    Value
		want Type
	}{
		{Bool(true), TypeBool},
		{Int32(-3), TypeInt32},
		{Int64(1 << 40), TypeInt64},
		{UInt32(7), TypeUInt32},
		{UInt64(math.MaxUint64), TypeUInt64},
		{Double(1.5), TypeDouble},
		{String("x"), TypeString},
		{List(nil), TypeList},
		{VertexValue(Vertex{Label: 1, ID: 2}), TypeVertex},
		{EdgeValue(nil, Edge{}), TypeEdge},
		{PathValue(PathRef{Tag: 1, Row: 3}), TypePath},
		{Date(19000), TypeDate},
		{Timestamp(0), TypeTimestamp},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.v.Type(), tc.want.String())
	}
}

func TestAsBool(t *testing.T) {
	b, err := Bool(true).AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	b, err = Null().AsBool()
	require.NoError(t, err)
	assert.False(t, b, "null is falsy by definition")

	for _, v := range []Value{Int64(1), Double(1), String("true"), List(nil)} {
		_, err := v.AsBool()
		assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch), "%s must not coerce", v.Type())
	}
}

func TestAsInt64_Widening(t *testing.T) {
	i, err := Int32(-5).AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-5), i)

	i, err = UInt32(math.MaxUint32).AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxUint32), i)

	_, err = UInt64(math.MaxUint64).AsInt64()
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch))

	_, err = Double(1).AsInt64()
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch), "double never narrows implicitly")
}

func TestPromote(t *testing.T) {
	cases := []struct {
		a, b, want Type
	}{
		{TypeInt32, TypeInt64, TypeInt64},
		{TypeUInt32, TypeUInt64, TypeUInt64},
		{TypeInt32, TypeUInt32, TypeInt64},
		{TypeInt64, TypeDouble, TypeDouble},
		{TypeDouble, TypeUInt64, TypeDouble},
		{TypeInt32, TypeInt32, TypeInt32},
	}
	for _, tc := range cases {
		got, err := Promote(tc.a, tc.b)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s+%s", tc.a, tc.b)
	}

	_, err := Promote(TypeString, TypeInt64)
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch))
}

func TestCompare_NumericPromotion(t *testing.T) {
	c, err := Compare(Int32(3), Double(2.5))
	require.NoError(t, err)
	assert.Positive(t, c)

	c, err = Compare(Int64(-1), UInt64(math.MaxUint64))
	require.NoError(t, err)
	assert.Negative(t, c)

	c, err = Compare(UInt64(5), Int32(-2))
	require.NoError(t, err)
	assert.Positive(t, c)

	eq, err := Equal(Int32(2), Double(2.0))
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestCompare_CrossTypeIsMismatch(t *testing.T) {
	_, err := Compare(String("1"), Int64(1))
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch))

	_, err = Equal(Bool(true), Int64(1))
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch))

	_, err = Compare(Null(), Int64(1))
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch))
}

func TestCompare_Lists(t *testing.T) {
	a := List([]Value{Int64(1), String("b")})
	b := List([]Value{Int64(1), String("c")})

	c, err := Compare(a, b)
	require.NoError(t, err)
	assert.Negative(t, c)

	eq, err := Equal(a, List([]Value{Int32(1), String("b")}))
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestCast_IntegerDoubleRoundTrip(t *testing.T) {
	for _, orig := range []Value{Int32(-42), Int64(1 << 52), UInt32(4000000000), UInt64(1 << 60)} {
		d, err := Cast(orig, TypeDouble, nil)
		require.NoError(t, err)
		back, err := Cast(d, orig.Type(), nil)
		require.NoError(t, err)
		eq, err := Equal(orig, back)
		require.NoError(t, err)
		assert.True(t, eq, "%s round trip", orig)
		assert.Equal(t, orig.Type(), back.Type())
	}
}

func TestCast_OutOfRangeIsInvalidCast(t *testing.T) {
	cases := []struct {
		v      Value
		target Type
	}{
		{Int64(math.MaxInt32 + 1), TypeInt32},
		{Int64(-1), TypeUInt32},
		{Int64(-1), TypeUInt64},
		{UInt64(math.MaxUint64), TypeInt64},
		{Double(1e20), TypeInt64},
		{Double(math.NaN()), TypeInt64},
		{Double(math.Inf(1)), TypeInt32},
		{Double(-0.5e10), TypeInt32},
		{String("abc"), TypeInt64},
		{Bool(true), TypeInt64},
		{VertexValue(Vertex{}), TypeString},
		{Int64(1), TypeList},
	}
	for _, tc := range cases {
		_, err := Cast(tc.v, tc.target, nil)
		assert.True(t, errors.Is(err, evalerr.ErrInvalidCast), "%s -> %s: %v", tc.v, tc.target, err)
	}
}

func TestCast_Conversions(t *testing.T) {
	v, err := Cast(Double(-3.9), TypeInt64, nil)
	require.NoError(t, err)
	assert.Equal(t, Int64(-3), v)

	v, err = Cast(String(" 17 "), TypeInt32, nil)
	require.NoError(t, err)
	assert.Equal(t, Int32(17), v)

	v, err = Cast(String("TRUE"), TypeBool, nil)
	require.NoError(t, err)
	assert.Equal(t, Bool(true), v)

	v, err = Cast(Null(), TypeInt64, nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	a := arena.New(arena.Options{})
	v, err = Cast(Int64(-12), TypeString, a)
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	assert.Equal(t, "-12", s)
	assert.Equal(t, a.Generation(), v.Generation())
}

func TestCast_Temporal(t *testing.T) {
	d, err := Cast(String("2024-03-01"), TypeDate, nil)
	require.NoError(t, err)
	tm, err := d.AsTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), tm)

	ts, err := Cast(d, TypeTimestamp, nil)
	require.NoError(t, err)
	back, err := Cast(ts, TypeDate, nil)
	require.NoError(t, err)
	assert.Equal(t, d, back)

	// Timestamps before the epoch round down to the previous day.
	neg, err := Cast(Timestamp(-1), TypeDate, nil)
	require.NoError(t, err)
	assert.Equal(t, Date(-1), neg)
}

func TestArenaValues_GenerationTracking(t *testing.T) {
	a := arena.New(arena.Options{Debug: true})

	s := CopyString(a, "transient")
	l := NewList(a, 2)
	require.True(t, s.Live())
	require.True(t, l.Live())

	a.Reset()
	assert.False(t, s.Live())
	assert.False(t, l.Live())
	assert.Panics(t, func() { _, _ = s.AsString() })
	assert.Panics(t, func() { _, _ = l.AsList() })
	assert.Equal(t, "<reset>", s.String())
}

func TestDetach_SurvivesReset(t *testing.T) {
	a := arena.New(arena.Options{Debug: true})

	items := arena.MakeSlice[Value](a, 2)
	items[0] = CopyString(a, "x")
	items[1] = Int64(9)
	detached := ArenaList(a, items).Detach()
	a.Reset()

	got, err := detached.AsList()
	require.NoError(t, err)
	s, err := got[0].AsString()
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	assert.Equal(t, []any{"x", int64(9)}, detached.ToGo())
}

func TestFromGo(t *testing.T) {
	v, err := FromGo([]any{1, "a", nil, 2.5, true})
	require.NoError(t, err)
	assert.Equal(t, "[1, \"a\", null, 2.5, true]", v.String())

	_, err = FromGo(struct{}{})
	assert.True(t, errors.Is(err, evalerr.ErrTypeMismatch))
}

func TestParseType(t *testing.T) {
	for typ := TypeUnknown; typ <= TypeTimestamp; typ++ {
		got, ok := ParseType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseType("decimal")
	assert.False(t, ok)
}
