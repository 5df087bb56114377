package bufrval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metaffric/bufr/descr"
)

var (
	tempCode = descr.NewCode(0, 12, 101)
	qualCode = descr.NewCode(0, 33, 7)
)

func TestConstructorsAndKinds(t *testing.T) {
	require.True(t, NewMissing(tempCode, nil).IsMissing())

	d := NewDouble(tempCode, nil, 27.3)
	require.Equal(t, KindDouble, d.Kind)
	require.False(t, d.IsMissing())

	i := NewInt(tempCode, nil, 42)
	require.Equal(t, KindInt, i.Kind)

	s := NewString(tempCode, nil, "abc")
	require.Equal(t, KindString, s.Kind)
	require.Equal(t, "abc", s.Str)
}

func TestAsFloat64(t *testing.T) {
	v, ok := NewDouble(tempCode, nil, 1.5).AsFloat64()
	require.True(t, ok)
	require.InDelta(t, 1.5, v, 1e-12)

	v, ok = NewInt(tempCode, nil, 7).AsFloat64()
	require.True(t, ok)
	require.InDelta(t, 7.0, v, 1e-12)

	_, ok = NewMissing(tempCode, nil).AsFloat64()
	require.False(t, ok)

	_, ok = NewString(tempCode, nil, "x").AsFloat64()
	require.False(t, ok)
}

func TestWithAttrDoesNotMutateReceiver(t *testing.T) {
	base := NewDouble(tempCode, nil, 1.0)
	attr := NewInt(qualCode, nil, 2)

	with := base.WithAttr(attr)
	require.Empty(t, base.Attrs, "WithAttr must return a copy, not mutate")
	require.Len(t, with.Attrs, 1)

	// Appending to one copy must not leak into a sibling copy.
	a := with.WithAttr(NewInt(qualCode, nil, 3))
	b := with.WithAttr(NewInt(qualCode, nil, 4))
	require.Equal(t, int64(3), a.Attrs[1].Int)
	require.Equal(t, int64(4), b.Attrs[1].Int)
}

func TestAttrByCode(t *testing.T) {
	v := NewDouble(tempCode, nil, 1.0).
		WithAttr(NewInt(qualCode, nil, 2))

	got, ok := v.AttrByCode(qualCode)
	require.True(t, ok)
	require.Equal(t, int64(2), got.Int)

	_, ok = v.AttrByCode(descr.NewCode(0, 33, 2))
	require.False(t, ok)
}

func TestSubsetOrdering(t *testing.T) {
	s := NewSubset(2)
	require.Equal(t, 0, s.Len())

	s.Append(NewInt(tempCode, nil, 1))
	s.Append(NewInt(tempCode, nil, 2))

	require.Equal(t, 2, s.Len())
	require.Equal(t, int64(1), s.At(0).Int)
	require.Equal(t, int64(2), s.At(1).Int)
}
