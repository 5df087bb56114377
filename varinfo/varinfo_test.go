package varinfo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/errs"
)

var (
	pressureCode = descr.NewCode(0, 10, 4)
	stationCode  = descr.NewCode(0, 1, 15)
	seqCode      = descr.NewCode(3, 1, 1)
)

func newTestTable() *Static {
	return NewStatic([]*Info{
		{Code: pressureCode, Desc: "pressure", Unit: "hPa", BufrUnit: "Pa", Scale: 1, BufrScale: -1, BitLen: 14},
		{Code: stationCode, Desc: "station name", BitLen: 160, IsString: true, Len: 20},
	})
}

func TestStaticQuery(t *testing.T) {
	tbl := newTestTable()

	info, err := tbl.Query(pressureCode)
	require.NoError(t, err)
	require.Equal(t, pressureCode, info.Code)
	require.Equal(t, 14, info.BitLen)
	require.Equal(t, -1, info.BufrScale)
}

func TestStaticQueryUnknownCode(t *testing.T) {
	tbl := newTestTable()

	_, err := tbl.Query(descr.NewCode(0, 63, 255))
	require.ErrorIs(t, err, errs.ErrUnknownDescriptor)
}

func TestStaticContains(t *testing.T) {
	tbl := newTestTable()

	require.True(t, tbl.Contains(pressureCode))
	require.False(t, tbl.Contains(descr.NewCode(0, 63, 255)))
}

func TestQueryAlteredProducesDistinctInfo(t *testing.T) {
	tbl := newTestTable()

	base, err := tbl.Query(pressureCode)
	require.NoError(t, err)

	altered, err := tbl.QueryAltered(pressureCode, 2, 16)
	require.NoError(t, err)
	require.NotSame(t, base, altered)
	require.Equal(t, 2, altered.Scale)
	require.Equal(t, 2, altered.BufrScale)
	require.Equal(t, 16, altered.BitLen)

	// Base stays untouched.
	require.Equal(t, -1, base.BufrScale)
	require.Equal(t, 14, base.BitLen)
}

func TestQueryAlteredIsInterned(t *testing.T) {
	tbl := newTestTable()

	a, err := tbl.QueryAltered(pressureCode, 2, 16)
	require.NoError(t, err)
	b, err := tbl.QueryAltered(pressureCode, 2, 16)
	require.NoError(t, err)
	require.Same(t, a, b, "identical alterations must return the interned Info")

	c, err := tbl.QueryAltered(pressureCode, 3, 16)
	require.NoError(t, err)
	require.NotSame(t, a, c)
}

func TestQueryAlteredStringAdjustsCharLength(t *testing.T) {
	tbl := newTestTable()

	altered, err := tbl.QueryAltered(stationCode, 0, 80)
	require.NoError(t, err)
	require.True(t, altered.IsString)
	require.Equal(t, 80, altered.BitLen)
	require.Equal(t, 10, altered.Len)
}

func TestQueryAlteredZeroBitLenKeepsWidth(t *testing.T) {
	tbl := newTestTable()

	altered, err := tbl.QueryAltered(pressureCode, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 14, altered.BitLen, "zero newBitLen means scale-only alteration")
	require.Equal(t, 3, altered.BufrScale)
}

func TestQueryAlteredUnknownCode(t *testing.T) {
	tbl := newTestTable()

	_, err := tbl.QueryAltered(descr.NewCode(0, 63, 255), 1, 8)
	require.ErrorIs(t, err, errs.ErrUnknownDescriptor)
}

func TestQueryAlteredConcurrent(t *testing.T) {
	tbl := newTestTable()

	var wg sync.WaitGroup
	results := make([]*Info, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := tbl.QueryAltered(pressureCode, 2, 16)
			require.NoError(t, err)
			results[i] = info
		}(i)
	}
	wg.Wait()

	for _, info := range results[1:] {
		require.Same(t, results[0], info)
	}
}

func TestSeqStaticQuery(t *testing.T) {
	members := []descr.Code{pressureCode, stationCode}
	tbl := NewSeqStatic(map[descr.Code][]descr.Code{seqCode: members})

	ops, err := tbl.Query(seqCode)
	require.NoError(t, err)
	require.Equal(t, 2, ops.Size())
	require.Equal(t, pressureCode, ops.At(0))

	_, err = tbl.Query(descr.NewCode(3, 63, 255))
	require.ErrorIs(t, err, errs.ErrUnknownDescriptor)
}

func TestSeqStaticCopiesMembers(t *testing.T) {
	members := []descr.Code{pressureCode}
	tbl := NewSeqStatic(map[descr.Code][]descr.Code{seqCode: members})

	members[0] = descr.NewCode(0, 9, 9)

	ops, err := tbl.Query(seqCode)
	require.NoError(t, err)
	require.Equal(t, pressureCode, ops.At(0), "table must own its expansion")
}
