package bufr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metaffric/bufr/bufrio"
	"github.com/metaffric/bufr/bufrval"
	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/varinfo"
)

var (
	originCode = descr.NewCode(0, 1, 1)
	factorCode = descr.NewCode(0, 31, 1)
	widthCode  = descr.NewCode(0, 12, 1)
	bitmapBit  = descr.NewCode(0, 31, 31)
	qualCode   = descr.NewCode(0, 33, 7)
)

func scenarioTable() *varinfo.Static {
	return varinfo.NewStatic([]*varinfo.Info{
		{Code: originCode, Desc: "WMO origin", BitLen: 16},
		{Code: factorCode, Desc: "delayed descriptor replication factor", BitLen: 8},
		{Code: widthCode, Desc: "temperature", BitLen: 8},
		{Code: qualCode, Desc: "quality flag", BitLen: 6},
	})
}

func baseScenarioBulletin(desc descr.Opcodes, subsets []*bufrval.Subset, compressed bool) *Bulletin {
	return &Bulletin{
		Edition:              4,
		MasterTable:          0,
		Centre:               98,
		UpdateSequenceNumber: 0,
		Type:                 0,
		MasterTableVersion:   28,
		Year:                 2024,
		Month:                1,
		Day:                  1,
		Hour:                 0,
		Minute:               0,
		DataDesc:             desc,
		Compressed:           compressed,
		Subsets:              subsets,
	}
}

// TestSingleSubsetIntegerRoundTrip is scenario 1: one subset, one integer
// value, through the full section 0-5 framing.
func TestSingleSubsetIntegerRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{originCode})

	subset := NewSubset(1)
	subset.Append(bufrval.NewInt(originCode, nil, 42))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{subset}, false)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)
	require.Equal(t, "BUFR", string(data[:4]))
	require.Equal(t, "7777", string(data[len(data)-4:]))

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	require.Len(t, got.Subsets, 1)
	require.InDelta(t, 42.0, got.Subsets[0].At(0).Dbl, 1e-9)
}

// TestMissingValueRoundTrip is scenario 2.
func TestMissingValueRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{originCode})

	subset := NewSubset(1)
	subset.Append(bufrval.NewMissing(originCode, nil))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{subset}, false)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	require.True(t, got.Subsets[0].At(0).IsMissing())
}

// TestCompressedTwoSubsetNumericRoundTrip is scenario 3, exercised end to
// end through full message framing rather than the codec package directly.
func TestCompressedTwoSubsetNumericRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{originCode})

	s0 := NewSubset(1)
	s0.Append(bufrval.NewInt(originCode, nil, 10))
	s1 := NewSubset(1)
	s1.Append(bufrval.NewInt(originCode, nil, 13))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{s0, s1}, true)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	require.True(t, got.Compressed)
	require.InDelta(t, 10.0, got.Subsets[0].At(0).Dbl, 1e-9)
	require.InDelta(t, 13.0, got.Subsets[1].At(0).Dbl, 1e-9)
}

// TestDelayedReplicationRoundTrip is scenario 4.
func TestDelayedReplicationRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{
		{F: 1, X: 1, Y: 0},
		factorCode,
		originCode,
	})

	subset := NewSubset(4)
	subset.Append(bufrval.NewInt(factorCode, nil, 3))
	subset.Append(bufrval.NewInt(originCode, nil, 1))
	subset.Append(bufrval.NewInt(originCode, nil, 2))
	subset.Append(bufrval.NewInt(originCode, nil, 3))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{subset}, false)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	gs := got.Subsets[0]
	require.Equal(t, 4, gs.Len())
	require.Equal(t, int64(3), gs.At(0).Int)
	require.InDelta(t, 1.0, gs.At(1).Dbl, 1e-9)
	require.InDelta(t, 2.0, gs.At(2).Dbl, 1e-9)
	require.InDelta(t, 3.0, gs.At(3).Dbl, 1e-9)
}

// TestCompressedDelayedReplicationRoundTrip runs the delayed-replication
// shape through the compressed layout: the factor column must decode back
// to an integer repetition count shared by both subsets.
func TestCompressedDelayedReplicationRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{
		{F: 1, X: 1, Y: 0},
		factorCode,
		originCode,
	})

	s0 := NewSubset(3)
	s0.Append(bufrval.NewInt(factorCode, nil, 2))
	s0.Append(bufrval.NewInt(originCode, nil, 11))
	s0.Append(bufrval.NewInt(originCode, nil, 12))

	s1 := NewSubset(3)
	s1.Append(bufrval.NewInt(factorCode, nil, 2))
	s1.Append(bufrval.NewInt(originCode, nil, 21))
	s1.Append(bufrval.NewInt(originCode, nil, 22))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{s0, s1}, true)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	require.Len(t, got.Subsets, 2)

	g0, g1 := got.Subsets[0], got.Subsets[1]
	require.Equal(t, 3, g0.Len())
	require.Equal(t, int64(2), g0.At(0).Int)
	require.InDelta(t, 11.0, g0.At(1).Dbl, 1e-9)
	require.InDelta(t, 12.0, g0.At(2).Dbl, 1e-9)
	require.InDelta(t, 21.0, g1.At(1).Dbl, 1e-9)
	require.InDelta(t, 22.0, g1.At(2).Dbl, 1e-9)
}

// TestCWidthChangeRoundTrip is scenario 5: a C 01 YYY width-change modifier
// widens the following element's effective bit length, and resets after
// C 01 000.
func TestCWidthChangeRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{
		{F: 2, X: 1, Y: 129}, // widen by 1 bit
		widthCode,
		{F: 2, X: 1, Y: 0}, // reset
		widthCode,
	})

	subset := NewSubset(2)
	// widthCode's table BitLen is 8; widened to 9 bits, its max value is
	// 511, well above 255, so 300 exercises the widened field.
	subset.Append(bufrval.NewInt(widthCode, nil, 300))
	subset.Append(bufrval.NewInt(widthCode, nil, 100))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{subset}, false)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	gs := got.Subsets[0]
	require.InDelta(t, 300.0, gs.At(0).Dbl, 1e-9)
	require.InDelta(t, 100.0, gs.At(1).Dbl, 1e-9)
}

// TestBitmapAttributeRoundTrip is scenario 6: a data-present bitmap over
// three prior variables, with a quality-flag attribute attached to the
// present ("+") positions only.
func TestBitmapAttributeRoundTrip(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	bitmapDefCode := descr.Code{F: 2, X: 22, Y: 0}

	desc := descr.NewOpcodes([]descr.Code{
		originCode,
		originCode,
		originCode,
		bitmapDefCode,
		{F: 1, X: 1, Y: 0},
		bitmapBit,
		qualCode,
	})

	subset := NewSubset(4)
	v0 := bufrval.NewInt(originCode, nil, 1).WithAttr(bufrval.NewInt(qualCode, nil, 9))
	v1 := bufrval.NewInt(originCode, nil, 2).WithAttr(bufrval.NewInt(qualCode, nil, 8))
	v2 := bufrval.NewInt(originCode, nil, 3)
	subset.Append(v0)
	subset.Append(v1)
	subset.Append(v2)
	subset.Append(bufrval.NewString(bitmapDefCode, nil, "++-"))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{subset}, false)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq)
	require.NoError(t, err)
	gs := got.Subsets[0]

	attr0, ok := gs.At(0).AttrByCode(qualCode)
	require.True(t, ok)
	dval0, _ := attr0.AsFloat64()
	require.InDelta(t, 9.0, dval0, 1e-9)

	attr1, ok := gs.At(1).AttrByCode(qualCode)
	require.True(t, ok)
	dval1, _ := attr1.AsFloat64()
	require.InDelta(t, 8.0, dval1, 1e-9)

	_, ok = gs.At(2).AttrByCode(qualCode)
	require.False(t, ok)
}

func TestDecodeBUFRPropagatesFramingOptions(t *testing.T) {
	tbl := scenarioTable()
	seq := varinfo.NewSeqStatic(nil)
	desc := descr.NewOpcodes([]descr.Code{originCode})

	subset := NewSubset(1)
	subset.Append(bufrval.NewInt(originCode, nil, 7))

	b := baseScenarioBulletin(desc, []*bufrval.Subset{subset}, false)

	data, err := EncodeBUFR(b, tbl, seq)
	require.NoError(t, err)

	got, err := DecodeBUFR(data, tbl, seq, bufrio.WithSubsetCapacityHint(4))
	require.NoError(t, err)
	require.InDelta(t, 7.0, got.Subsets[0].At(0).Dbl, 1e-9)
}
