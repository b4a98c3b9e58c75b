package register

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntComparisons(t *testing.T) {
	a, b := FromInt(1), FromInt(2)
	require.True(t, a.Less(b))
	require.True(t, b.Greater(a))
	require.False(t, a.Equal(b))
	require.True(t, FromInt(1).Equal(FromInt(1)))
}

func TestStringComparisons(t *testing.T) {
	a, b := FromString("apple"), FromString("banana")
	require.True(t, a.Less(b))
	require.False(t, a.Equal(b))
}

func TestStringTruncatesToMaxCharLen(t *testing.T) {
	r := FromString("this string is definitely longer than sixteen bytes")
	require.Len(t, r.AsString(), MaxCharLen)
}

func TestCrossVariantCompareForbidden(t *testing.T) {
	require.Panics(t, func() {
		FromInt(1).Equal(FromString("1"))
	})
}

func TestTupleKeyDistinguishesTypesAndLengths(t *testing.T) {
	a := TupleKey([]Register{FromInt(1), FromString("x")})
	b := TupleKey([]Register{FromInt(1), FromString("xx")})
	require.NotEqual(t, a, b)

	c := TupleKey([]Register{FromInt(1), FromString("x")})
	require.Equal(t, a, c)

	require.NotEqual(t, TupleKey([]Register{FromInt(0)}), TupleKey([]Register{FromString("")}))
}

func TestHashEqualValuesHashEqual(t *testing.T) {
	require.Equal(t, FromInt(42).Hash(), FromInt(42).Hash())
	require.Equal(t, FromString("hi").Hash(), FromString("hi").Hash())
}
