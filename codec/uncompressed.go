// Package codec implements the two concrete dds.Visitor pairs that drive
// the data section: Uncompressed, which lays a subset's fields out
// sequentially, and Compressed, which lays a field out column-wise across
// all subsets as base+diffbits+deltas.
package codec

import (
	"fmt"

	"github.com/metaffric/bufr/bitio"
	"github.com/metaffric/bufr/bufrval"
	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/dds"
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/varinfo"
)

// UncompressedEncoder drives one subset's worth of Writes through a
// dds.Walk: it pulls Vars off the subset in descriptor order and packs them
// into w.
type UncompressedEncoder struct {
	w      *bitio.Writer
	tbl    varinfo.Table
	conv   UnitConverter
	subset *bufrval.Subset
	cursor int
}

var _ dds.Visitor = (*UncompressedEncoder)(nil)

// NewUncompressedEncoder creates an encoder visitor over subset, writing
// into w.
func NewUncompressedEncoder(w *bitio.Writer, tbl varinfo.Table, conv UnitConverter, subset *bufrval.Subset) *UncompressedEncoder {
	if conv == nil {
		conv = IdentityConverter{}
	}

	return &UncompressedEncoder{w: w, tbl: tbl, conv: conv, subset: subset}
}

func (e *UncompressedEncoder) popNext() (bufrval.Var, error) {
	if e.cursor >= e.subset.Len() {
		return bufrval.Var{}, fmt.Errorf("%w: subset exhausted at position %d", errs.ErrBitmapError, e.cursor)
	}

	v := e.subset.At(e.cursor)
	e.cursor++

	return v, nil
}

// OnBData implements dds.Visitor.
func (e *UncompressedEncoder) OnBData(code descr.Code, eff dds.Effective, attrTarget int) error {
	if attrTarget >= 0 {
		if attrTarget >= e.subset.Len() {
			return fmt.Errorf("%w: bitmap points past subset end (%d)", errs.ErrBitmapError, attrTarget)
		}
		target := e.subset.At(attrTarget)

		attr, ok := target.AttrByCode(code)
		if !ok {
			return fmt.Errorf("%w: no attribute %s on bitmap target %d", errs.ErrDescriptorMismatch, code, attrTarget)
		}

		return e.writeVar(attr, eff)
	}

	v, err := e.popNext()
	if err != nil {
		return err
	}

	if v.Code != code {
		return fmt.Errorf("%w: expected %s, subset has %s", errs.ErrDescriptorMismatch, code, v.Code)
	}

	return e.writeVar(v, eff)
}

// DefineDelayedReplicationFactor implements dds.Visitor.
func (e *UncompressedEncoder) DefineDelayedReplicationFactor(code descr.Code, eff dds.Effective) (int, error) {
	if e.cursor >= e.subset.Len() {
		return 0, fmt.Errorf("%w: subset has no value for factor %s", errs.ErrMissingDelayedFactor, code)
	}

	v, err := e.popNext()
	if err != nil {
		return 0, err
	}

	if v.Kind != bufrval.KindInt {
		return 0, fmt.Errorf("%w: replication factor %s is not an integer", errs.ErrMissingDelayedFactor, code)
	}

	if err := e.w.WriteBits(uint32(v.Int), eff.BitLen); err != nil {
		return 0, err
	}

	return int(v.Int), nil
}

// OnBitmap implements dds.Visitor.
func (e *UncompressedEncoder) OnBitmap(code descr.Code, bitmapLen int) (string, error) {
	v, err := e.popNext()
	if err != nil {
		return "", err
	}

	if v.Kind != bufrval.KindString || v.Code != code || len(v.Str) != bitmapLen {
		return "", fmt.Errorf("%w: expected a %d-character bitmap variable %s", errs.ErrDescriptorMismatch, bitmapLen, code)
	}

	for i := 0; i < len(v.Str); i++ {
		bit := uint32(0)
		if v.Str[i] != '+' {
			bit = 1
		}

		if err := e.w.WriteBits(bit, 1); err != nil {
			return "", err
		}
	}

	return v.Str, nil
}

// OnSequenceEnter implements dds.Visitor.
func (e *UncompressedEncoder) OnSequenceEnter(descr.Code) {}

// OnSequenceExit implements dds.Visitor.
func (e *UncompressedEncoder) OnSequenceExit() {}

// Position implements dds.Visitor, reporting the write cursor.
func (e *UncompressedEncoder) Position() (byteOffset, bitOffset int) {
	return e.w.BitLen() / 8, e.w.BitLen() % 8
}

func (e *UncompressedEncoder) writeVar(v bufrval.Var, eff dds.Effective) error {
	if v.IsMissing() {
		return e.w.WriteMissing(eff.BitLen)
	}

	if eff.IsString {
		return e.w.WriteString(v.Str, eff.BitLen)
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

	return e.w.WriteBits(raw, eff.BitLen)
}

// UncompressedDecoder is UncompressedEncoder's inverse: it reads fields off
// r in descriptor order and appends them to a freshly built Subset.
type UncompressedDecoder struct {
	r      *bitio.Reader
	tbl    varinfo.Table
	conv   UnitConverter
	subset *bufrval.Subset
}

var _ dds.Visitor = (*UncompressedDecoder)(nil)

// NewUncompressedDecoder creates a decoder visitor reading from r, building
// a new Subset sized n top-level entries.
func NewUncompressedDecoder(r *bitio.Reader, tbl varinfo.Table, conv UnitConverter, n int) *UncompressedDecoder {
	if conv == nil {
		conv = IdentityConverter{}
	}

	return &UncompressedDecoder{r: r, tbl: tbl, conv: conv, subset: bufrval.NewSubset(n)}
}

// Subset returns the Subset built so far.
func (d *UncompressedDecoder) Subset() *bufrval.Subset {
	return d.subset
}

// OnBData implements dds.Visitor.
func (d *UncompressedDecoder) OnBData(code descr.Code, eff dds.Effective, attrTarget int) error {
	v, err := d.readVar(code, eff)
	if err != nil {
		return err
	}

	if attrTarget >= 0 {
		if attrTarget >= d.subset.Len() {
			return fmt.Errorf("%w: bitmap points past subset end (%d)", errs.ErrBitmapError, attrTarget)
		}
		d.subset.Vars[attrTarget] = d.subset.At(attrTarget).WithAttr(v)

		return nil
	}

	d.subset.Append(v)

	return nil
}

// DefineDelayedReplicationFactor implements dds.Visitor.
func (d *UncompressedDecoder) DefineDelayedReplicationFactor(code descr.Code, eff dds.Effective) (int, error) {
	raw, err := d.r.ReadBits(eff.BitLen)
	if err != nil {
		return 0, err
	}

	info, _ := d.tbl.Query(code)
	d.subset.Append(bufrval.NewInt(code, info, int64(raw)))

	return int(raw), nil
}

// OnBitmap implements dds.Visitor.
func (d *UncompressedDecoder) OnBitmap(code descr.Code, bitmapLen int) (string, error) {
	buf := make([]byte, bitmapLen)
	for i := 0; i < bitmapLen; i++ {
		bit, err := d.r.ReadBits(1)
		if err != nil {
			return "", err
		}

		if bit == 0 {
			buf[i] = '+'
		} else {
			buf[i] = '-'
		}
	}

	str := string(buf)
	info, _ := d.tbl.Query(code)
	d.subset.Append(bufrval.NewString(code, info, str))

	return str, nil
}

// OnSequenceEnter implements dds.Visitor.
func (d *UncompressedDecoder) OnSequenceEnter(descr.Code) {}

// OnSequenceExit implements dds.Visitor.
func (d *UncompressedDecoder) OnSequenceExit() {}

// Position implements dds.Visitor, reporting the read cursor.
func (d *UncompressedDecoder) Position() (byteOffset, bitOffset int) {
	return d.r.ByteOffset(), d.r.BitOffset() % 8
}

func (d *UncompressedDecoder) readVar(code descr.Code, eff dds.Effective) (bufrval.Var, error) {
	info, err := d.tbl.Query(code)
	if err != nil {
		return bufrval.Var{}, err
	}

	if eff.IsString {
		str, missing, err := d.r.ReadString(eff.BitLen)
		if err != nil {
			return bufrval.Var{}, err
		}

		if missing {
			return bufrval.NewMissing(code, info), nil
		}

		return bufrval.NewString(code, info, str), nil
	}

	raw, err := d.r.ReadBits(eff.BitLen)
	if err != nil {
		return bufrval.Var{}, err
	}

	if bitio.IsMissing(raw, eff.BitLen) {
		return bufrval.NewMissing(code, info), nil
	}

	dval := deintegerize(raw, eff.Ref, eff.Scale)
	dval = d.conv.Convert(dval, info.BufrUnit, info.Unit)

	return bufrval.NewDouble(code, info, dval), nil
}
