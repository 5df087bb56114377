// Package dds implements the data descriptor sequence interpreter: the
// mutually recursive walk over F=0/1/2/3 descriptors that both the
// uncompressed and compressed codecs drive through a Visitor.
//
// The interpreter owns no bits and no values itself. It only tracks
// C-modifier and bitmap state (State) and calls out to a Visitor at each
// leaf; the visitors decide how a leaf turns into bits or Subset entries.
package dds

import (
	"fmt"

	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/varinfo"
)

// bitmapBitCode is the element a data-present bitmap's delayed replication
// always repeats: "0 31 031", a single bit per prior top-level element.
var bitmapBitCode = descr.NewCode(0, 31, 31)

// Walk interprets ops against v, threading st across the whole call (so
// C-modifiers and bitmaps defined in one sequence stay active in the
// descriptors that follow it, per the BUFR convention that C-modifiers are
// scoped to the rest of the subset, not to the sequence they appear in).
func Walk(ops descr.Opcodes, v Visitor, st *State, tbl varinfo.Table, seq varinfo.SeqTable) error {
	return walk(ops, v, st, tbl, seq, nil)
}

// ctxErr wraps err with the visitor's current bit-stream position and the
// descriptor path, so every error the walk raises locates itself in the
// data section.
func ctxErr(err error, v Visitor, path []errs.DescriptorFrame, format string, args ...any) error {
	byteOff, bitOff := v.Position()

	return errs.WithContext(err, 4, byteOff, bitOff, path, format, args...)
}

func walk(ops descr.Opcodes, v Visitor, st *State, tbl varinfo.Table, seq varinfo.SeqTable, path []errs.DescriptorFrame) error {
	for i := 0; i < ops.Size(); i++ {
		code := ops.At(i)

		switch code.Kind() {
		case descr.KindElement:
			if err := walkElement(code, v, st, tbl, path); err != nil {
				return err
			}

		case descr.KindReplication:
			consumed, err := walkReplication(ops.Sub(i, -1), v, st, tbl, seq, path)
			if err != nil {
				return err
			}
			i += consumed - 1

		case descr.KindOperator:
			consumed, err := walkOperator(ops.Sub(i, -1), st)
			if err != nil {
				return ctxErr(err, v, path, "C-modifier %s", code)
			}
			i += consumed - 1

		case descr.KindSequence:
			members, err := seq.Query(code)
			if err != nil {
				return ctxErr(err, v, path, "sequence %s", code)
			}

			frame := errs.DescriptorFrame{F: code.F, X: code.X, Y: code.Y}
			v.OnSequenceEnter(code)
			if err := walk(members, v, st, tbl, seq, append(path, frame)); err != nil {
				return err
			}
			v.OnSequenceExit()

		default:
			return ctxErr(errs.ErrUnknownDescriptor, v, path, "descriptor kind %d", code.Kind())
		}
	}

	return nil
}

func walkElement(code descr.Code, v Visitor, st *State, tbl varinfo.Table, path []errs.DescriptorFrame) error {
	info, err := tbl.Query(code)
	if err != nil {
		return ctxErr(err, v, path, "element %s", code)
	}

	eff := computeEffective(info, st)

	if code.X == 33 && st.Bitmap != "" {
		st.resetBitmapCursors()

		for {
			present, err := st.bitmapAdvance()
			if err != nil {
				return err
			}
			if !present {
				break
			}

			if err := v.OnBData(code, eff, st.BitmapSubsetIndex()); err != nil {
				return ctxErr(err, v, path, "attribute %s", code)
			}
		}

		return nil
	}

	st.elementsSoFar++

	if err := v.OnBData(code, eff, -1); err != nil {
		return ctxErr(err, v, path, "element %s", code)
	}

	return nil
}

// walkReplication interprets the replication starting at ops.At(0) and
// returns how many entries of ops (including the marker itself, any factor
// descriptor, and the repeated group) it consumed, so the caller's loop can
// skip past all of them.
func walkReplication(ops descr.Opcodes, v Visitor, st *State, tbl varinfo.Table, seq varinfo.SeqTable, path []errs.DescriptorFrame) (int, error) {
	head := ops.At(0)
	group := head.ReplicationGroup()
	count := head.ReplicationCount()
	used := 1

	if count == 0 {
		switch {
		case st.pendingBitmapDef:
			if group != 1 || ops.At(used) != bitmapBitCode {
				return 0, ctxErr(errs.ErrBitmapError, v, path,
					"bitmap-defining replication must repeat a single %s descriptor", bitmapBitCode)
			}

			bitmapLen := st.elementsSoFar

			bitmap, err := v.OnBitmap(st.bitmapDefCode, bitmapLen)
			if err != nil {
				return 0, ctxErr(err, v, path, "bitmap definition %s", st.bitmapDefCode)
			}

			st.Bitmap = bitmap
			st.resetBitmapCursors()
			st.pendingBitmapDef = false
			st.elementsSoFar++
			used += group

			return used, nil

		default:
			factorCode := ops.At(used)

			factorInfo, err := tbl.Query(factorCode)
			if err != nil {
				return 0, ctxErr(err, v, path, "replication factor %s", factorCode)
			}

			resolved, err := v.DefineDelayedReplicationFactor(factorCode, computeEffective(factorInfo, st))
			if err != nil {
				return 0, ctxErr(err, v, path, "replication factor %s", factorCode)
			}

			count = resolved
			st.elementsSoFar++
			used++
		}
	}

	groupOps := ops.Sub(used, group)
	for iter := 0; iter < count; iter++ {
		if err := walk(groupOps, v, st, tbl, seq, path); err != nil {
			return 0, err
		}
	}
	used += group

	return used, nil
}

// walkOperator interprets the C-modifier at ops.At(0) and returns how many
// entries it consumed (always 1 — C-modifiers never span multiple
// descriptors, they only set state that later descriptors read).
func walkOperator(ops descr.Opcodes, st *State) (int, error) {
	head := ops.At(0)

	switch {
	case head.X == 1:
		if head.Y == 0 {
			st.CWidthChange = 0
		} else {
			st.CWidthChange = int(head.Y) - 128
		}

	case head.X == 2:
		if head.Y == 0 {
			st.CScaleChange = 0
		} else {
			st.CScaleChange = int(head.Y) - 128
		}

	case head.X == 8:
		st.CStringLenOverride = int(head.Y)

	case (head.X == 22 || head.X == 23) && head.Y == 0:
		st.pendingBitmapDef = true
		st.bitmapDefCode = head

	case head.X == 23 && head.Y == 255:
		// Substituted values: no-op. Following F=0 X=33 occurrences are
		// routed through the already-active bitmap like any other
		// attribute; other F=0 descriptors are walked as ordinary elements.

	case head.X == 24 && head.Y == 0:
		// Informational first-order statistics marker: no-op pass-through.

	default:
		return 0, fmt.Errorf("%w: C %02d %03d", errs.ErrUnsupportedCModifier, head.X, head.Y)
	}

	return 1, nil
}

func computeEffective(info *varinfo.Info, st *State) Effective {
	eff := Effective{IsString: info.IsString, Ref: info.BitRef, Scale: info.BufrScale + st.CScaleChange}

	switch {
	case info.IsString && st.CStringLenOverride != 0:
		eff.BitLen = 8 * st.CStringLenOverride
	case info.IsString:
		eff.BitLen = info.BitLen
	default:
		eff.BitLen = info.BitLen + st.CWidthChange
	}

	return eff
}
