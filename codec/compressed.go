package codec

import (
	"fmt"

	"github.com/metaffric/bufr/bitio"
	"github.com/metaffric/bufr/bufrval"
	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/dds"
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/internal/pool"
	"github.com/metaffric/bufr/varinfo"
)

// CompressedEncoder drives one dds.Walk across all of a message's subsets
// at once: every Visitor call lays out one field column-wise as
// base+diffbits+deltas rather than one subset's worth of sequential
// fields. It requires every subset to share the same descriptor
// topology (same bitmaps, same replication counts), which is what makes
// compression possible in the first place.
type CompressedEncoder struct {
	w       *bitio.Writer
	tbl     varinfo.Table
	conv    UnitConverter
	subsets []*bufrval.Subset
	cursor  int
}

var _ dds.Visitor = (*CompressedEncoder)(nil)

// NewCompressedEncoder creates an encoder visitor over subsets, writing into
// w. All subsets must have identical descriptor topology.
func NewCompressedEncoder(w *bitio.Writer, tbl varinfo.Table, conv UnitConverter, subsets []*bufrval.Subset) *CompressedEncoder {
	if conv == nil {
		conv = IdentityConverter{}
	}

	return &CompressedEncoder{w: w, tbl: tbl, conv: conv, subsets: subsets}
}

func (e *CompressedEncoder) popColumn() ([]bufrval.Var, error) {
	col := make([]bufrval.Var, len(e.subsets))
	for i, s := range e.subsets {
		if e.cursor >= s.Len() {
			return nil, fmt.Errorf("%w: subset %d exhausted at position %d", errs.ErrBitmapError, i, e.cursor)
		}
		col[i] = s.At(e.cursor)
	}
	e.cursor++

	return col, nil
}

// OnBData implements dds.Visitor.
func (e *CompressedEncoder) OnBData(code descr.Code, eff dds.Effective, attrTarget int) error {
	if attrTarget >= 0 {
		col := make([]bufrval.Var, len(e.subsets))
		for i, s := range e.subsets {
			if attrTarget >= s.Len() {
				return fmt.Errorf("%w: bitmap points past subset %d end (%d)", errs.ErrBitmapError, i, attrTarget)
			}
			attr, ok := s.At(attrTarget).AttrByCode(code)
			if !ok {
				return fmt.Errorf("%w: subset %d has no attribute %s on target %d", errs.ErrDescriptorMismatch, i, code, attrTarget)
			}
			col[i] = attr
		}

		return e.writeColumn(col, eff)
	}

	col, err := e.popColumn()
	if err != nil {
		return err
	}

	for i, v := range col {
		if v.Code != code {
			return fmt.Errorf("%w: subset %d expected %s, has %s", errs.ErrDescriptorMismatch, i, code, v.Code)
		}
	}

	return e.writeColumn(col, eff)
}

// DefineDelayedReplicationFactor implements dds.Visitor. Compressed messages
// require every subset to agree on the replication count; this is enforced
// here rather than merely assumed.
func (e *CompressedEncoder) DefineDelayedReplicationFactor(code descr.Code, eff dds.Effective) (int, error) {
	col, err := e.popColumn()
	if err != nil {
		return 0, err
	}

	count := int(col[0].Int)
	for i, v := range col {
		if v.Kind != bufrval.KindInt {
			return 0, fmt.Errorf("%w: replication factor %s is not an integer in subset %d", errs.ErrMissingDelayedFactor, code, i)
		}
		if int(v.Int) != count {
			return 0, fmt.Errorf("%w: subsets disagree on delayed replication count for %s", errs.ErrInvariantViolation, code)
		}
	}

	if err := e.writeColumn(col, eff); err != nil {
		return 0, err
	}

	return count, nil
}

// OnBitmap implements dds.Visitor. The data-present bitmap is structural, so
// it is shared by every subset; it is written once, using the
// flag-bit-plus-six-zero-bits layout reserved for bitmaps inside a
// compressed data section.
func (e *CompressedEncoder) OnBitmap(code descr.Code, bitmapLen int) (string, error) {
	col, err := e.popColumn()
	if err != nil {
		return "", err
	}

	bitmap := col[0].Str
	for i, v := range col {
		if v.Kind != bufrval.KindString || v.Code != code || v.Str != bitmap {
			return "", fmt.Errorf("%w: subset %d bitmap does not match subset 0", errs.ErrDescriptorMismatch, i)
		}
	}

	if len(bitmap) != bitmapLen {
		return "", fmt.Errorf("%w: bitmap length %d does not match expected %d", errs.ErrDescriptorMismatch, len(bitmap), bitmapLen)
	}

	for i := 0; i < bitmapLen; i++ {
		flag := uint32(0)
		if bitmap[i] != '+' {
			flag = 1
		}
		if err := e.w.WriteBits(flag, 1); err != nil {
			return "", err
		}
		if err := e.w.WriteBits(0, 6); err != nil {
			return "", err
		}
	}

	return bitmap, nil
}

// OnSequenceEnter implements dds.Visitor.
func (e *CompressedEncoder) OnSequenceEnter(descr.Code) {}

// OnSequenceExit implements dds.Visitor.
func (e *CompressedEncoder) OnSequenceExit() {}

// Position implements dds.Visitor, reporting the write cursor.
func (e *CompressedEncoder) Position() (byteOffset, bitOffset int) {
	return e.w.BitLen() / 8, e.w.BitLen() % 8
}

// writeColumn lays one field out as base+diffbits+deltas.
//
// diffbits is chosen so that its all-ones pattern strictly exceeds the
// maximum non-missing delta whenever the field varies or has a missing
// subset, reserving the all-ones delta pattern exclusively for the missing
// sentinel; ceil(log2(max_delta+1)) would let a legitimate maximum delta
// collide with it.
func (e *CompressedEncoder) writeColumn(col []bufrval.Var, eff dds.Effective) error {
	if eff.IsString {
		return e.writeStringColumn(col, eff)
	}

	raws, cleanupRaws := pool.GetUint32Slice(len(col))
	defer cleanupRaws()
	missing, cleanupMissing := pool.GetBoolSlice(len(col))
	defer cleanupMissing()
	anyMissing := false
	anyPresent := false
	var minRaw uint32

	for i, v := range col {
		if v.IsMissing() {
			missing[i] = true
			anyMissing = true
			continue
		}

		dval, ok := v.AsFloat64()
		if !ok {
			return fmt.Errorf("%w: %s has no numeric value", errs.ErrDescriptorMismatch, v.Code)
		}
		if v.Info != nil {
			dval = e.conv.Convert(dval, v.Info.Unit, v.Info.BufrUnit)
		}

		raw, err := integerize(dval, eff.Scale, eff.Ref, eff.BitLen)
		if err != nil {
			return err
		}
		raws[i] = raw

		if !anyPresent || raw < minRaw {
			minRaw = raw
		}
		anyPresent = true
	}

	if !anyPresent {
		if err := e.w.WriteMissing(eff.BitLen); err != nil {
			return err
		}

		return e.w.WriteBits(0, 6)
	}

	var maxDelta uint32
	for i := range col {
		if missing[i] {
			continue
		}
		if d := raws[i] - minRaw; d > maxDelta {
			maxDelta = d
		}
	}

	diffbits := 0
	if maxDelta > 0 || anyMissing {
		for allOnes(diffbits) <= maxDelta {
			diffbits++
		}
	}

	if err := e.w.WriteBits(minRaw, eff.BitLen); err != nil {
		return err
	}
	if err := e.w.WriteBits(uint32(diffbits), 6); err != nil {
		return err
	}

	if diffbits == 0 {
		return nil
	}

	for i := range col {
		if missing[i] {
			if err := e.w.WriteMissing(diffbits); err != nil {
				return err
			}
			continue
		}
		if err := e.w.WriteBits(raws[i]-minRaw, diffbits); err != nil {
			return err
		}
	}

	return nil
}

func (e *CompressedEncoder) writeStringColumn(col []bufrval.Var, eff dds.Effective) error {
	allSame := true
	for _, v := range col[1:] {
		if v.IsMissing() != col[0].IsMissing() || v.Str != col[0].Str {
			allSame = false
			break
		}
	}

	if allSame {
		if col[0].IsMissing() {
			if err := e.w.WriteMissing(eff.BitLen); err != nil {
				return err
			}
		} else if err := e.w.WriteString(col[0].Str, eff.BitLen); err != nil {
			return err
		}

		return e.w.WriteBits(0, 6)
	}

	for rem := eff.BitLen; rem > 0; {
		n := 32
		if rem < n {
			n = rem
		}
		if err := e.w.WriteBits(0, n); err != nil {
			return err
		}
		rem -= n
	}

	maxLen := 0
	for _, v := range col {
		if !v.IsMissing() && len(v.Str) > maxLen {
			maxLen = len(v.Str)
		}
	}
	if maxLen > (eff.BitLen+7)/8 {
		return fmt.Errorf("%w: per-subset string length %d exceeds field width", errs.ErrCompressedStringUnsupported, maxLen)
	}

	if err := e.w.WriteBits(uint32(maxLen), 6); err != nil {
		return err
	}

	for _, v := range col {
		if v.IsMissing() {
			if err := e.w.WriteMissing(8 * maxLen); err != nil {
				return err
			}
			continue
		}
		if err := e.w.WriteString(v.Str, 8*maxLen); err != nil {
			return err
		}
	}

	return nil
}

// CompressedDecoder is CompressedEncoder's inverse.
type CompressedDecoder struct {
	r       *bitio.Reader
	tbl     varinfo.Table
	conv    UnitConverter
	subsets []*bufrval.Subset
}

var _ dds.Visitor = (*CompressedDecoder)(nil)

// NewCompressedDecoder creates a decoder visitor reading from r, building n
// fresh Subsets each sized cap top-level entries.
func NewCompressedDecoder(r *bitio.Reader, tbl varinfo.Table, conv UnitConverter, n int, cap int) *CompressedDecoder {
	if conv == nil {
		conv = IdentityConverter{}
	}

	subsets := make([]*bufrval.Subset, n)
	for i := range subsets {
		subsets[i] = bufrval.NewSubset(cap)
	}

	return &CompressedDecoder{r: r, tbl: tbl, conv: conv, subsets: subsets}
}

// Subsets returns the Subsets built so far.
func (d *CompressedDecoder) Subsets() []*bufrval.Subset {
	return d.subsets
}

// OnBData implements dds.Visitor.
func (d *CompressedDecoder) OnBData(code descr.Code, eff dds.Effective, attrTarget int) error {
	info, err := d.tbl.Query(code)
	if err != nil {
		return err
	}

	col, err := d.readColumn(code, info, eff)
	if err != nil {
		return err
	}

	for i, v := range col {
		if attrTarget >= 0 {
			if attrTarget >= d.subsets[i].Len() {
				return fmt.Errorf("%w: bitmap points past subset %d end (%d)", errs.ErrBitmapError, i, attrTarget)
			}
			d.subsets[i].Vars[attrTarget] = d.subsets[i].At(attrTarget).WithAttr(v)
		} else {
			d.subsets[i].Append(v)
		}
	}

	return nil
}

// DefineDelayedReplicationFactor implements dds.Visitor. The factor column
// decodes like any numeric column, but its values are re-materialized as
// integers since the walk needs a repetition count, not a double.
func (d *CompressedDecoder) DefineDelayedReplicationFactor(code descr.Code, eff dds.Effective) (int, error) {
	info, err := d.tbl.Query(code)
	if err != nil {
		return 0, err
	}

	col, err := d.readColumn(code, info, eff)
	if err != nil {
		return 0, err
	}

	count := -1
	for i, v := range col {
		dval, ok := v.AsFloat64()
		if !ok {
			return 0, fmt.Errorf("%w: factor %s missing in subset %d", errs.ErrMissingDelayedFactor, code, i)
		}

		n := int(dval)
		d.subsets[i].Append(bufrval.NewInt(code, info, int64(n)))

		if count < 0 {
			count = n
		} else if n != count {
			return 0, fmt.Errorf("%w: subsets disagree on delayed replication count for %s", errs.ErrInvariantViolation, code)
		}
	}

	return count, nil
}

// OnBitmap implements dds.Visitor.
func (d *CompressedDecoder) OnBitmap(code descr.Code, bitmapLen int) (string, error) {
	buf := make([]byte, bitmapLen)
	for i := 0; i < bitmapLen; i++ {
		flag, err := d.r.ReadBits(1)
		if err != nil {
			return "", err
		}
		zeros, err := d.r.ReadBits(6)
		if err != nil {
			return "", err
		}
		if zeros != 0 {
			return "", fmt.Errorf("%w: compressed bitmap entry %d has non-zero reserved bits", errs.ErrUnsupportedCModifier, i)
		}

		if flag == 0 {
			buf[i] = '+'
		} else {
			buf[i] = '-'
		}
	}

	bitmap := string(buf)
	info, _ := d.tbl.Query(code)
	for _, s := range d.subsets {
		s.Append(bufrval.NewString(code, info, bitmap))
	}

	return bitmap, nil
}

// OnSequenceEnter implements dds.Visitor.
func (d *CompressedDecoder) OnSequenceEnter(descr.Code) {}

// OnSequenceExit implements dds.Visitor.
func (d *CompressedDecoder) OnSequenceExit() {}

// Position implements dds.Visitor, reporting the read cursor.
func (d *CompressedDecoder) Position() (byteOffset, bitOffset int) {
	return d.r.ByteOffset(), d.r.BitOffset() % 8
}

func (d *CompressedDecoder) readColumn(code descr.Code, info *varinfo.Info, eff dds.Effective) ([]bufrval.Var, error) {
	if eff.IsString {
		return d.readStringColumn(code, info, eff)
	}

	baseRaw, err := d.r.ReadBits(eff.BitLen)
	if err != nil {
		return nil, err
	}
	diffbitsRaw, err := d.r.ReadBits(6)
	if err != nil {
		return nil, err
	}
	diffbits := int(diffbitsRaw)

	baseMissing := bitio.IsMissing(baseRaw, eff.BitLen)
	col := make([]bufrval.Var, len(d.subsets))

	if diffbits == 0 {
		for i := range col {
			if baseMissing {
				col[i] = bufrval.NewMissing(code, info)
			} else {
				dval := deintegerize(baseRaw, eff.Ref, eff.Scale)
				dval = d.conv.Convert(dval, info.BufrUnit, info.Unit)
				col[i] = bufrval.NewDouble(code, info, dval)
			}
		}

		return col, nil
	}

	for i := range col {
		delta, err := d.r.ReadBits(diffbits)
		if err != nil {
			return nil, err
		}

		if bitio.IsMissing(delta, diffbits) {
			col[i] = bufrval.NewMissing(code, info)
			continue
		}

		dval := deintegerize(baseRaw+delta, eff.Ref, eff.Scale)
		dval = d.conv.Convert(dval, info.BufrUnit, info.Unit)
		col[i] = bufrval.NewDouble(code, info, dval)
	}

	return col, nil
}

func (d *CompressedDecoder) readStringColumn(code descr.Code, info *varinfo.Info, eff dds.Effective) ([]bufrval.Var, error) {
	baseRaw, err := d.r.ReadRawField(eff.BitLen)
	if err != nil {
		return nil, err
	}
	diffbitsRaw, err := d.r.ReadBits(6)
	if err != nil {
		return nil, err
	}
	byteLen := int(diffbitsRaw)

	baseStr, baseMissing := bitio.InterpretString(baseRaw)
	col := make([]bufrval.Var, len(d.subsets))

	if byteLen == 0 {
		for i := range col {
			if baseMissing {
				col[i] = bufrval.NewMissing(code, info)
			} else {
				col[i] = bufrval.NewString(code, info, baseStr)
			}
		}

		return col, nil
	}

	// Per-subset string deltas only carry whole replacement strings; the
	// base must then be the all-zero reference and the declared byte length
	// must fit inside it.
	for _, b := range baseRaw {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero base reference", errs.ErrCompressedStringUnsupported)
		}
	}
	if byteLen > len(baseRaw) {
		return nil, fmt.Errorf("%w: per-subset length %d exceeds base length %d", errs.ErrCompressedStringUnsupported, byteLen, len(baseRaw))
	}

	for i := range col {
		str, missing, err := d.r.ReadString(8 * byteLen)
		if err != nil {
			return nil, err
		}
		if missing {
			col[i] = bufrval.NewMissing(code, info)
		} else {
			col[i] = bufrval.NewString(code, info, str)
		}
	}

	return col, nil
}
