package bufrio

import (
	"fmt"

	"github.com/metaffric/bufr/bitio"
	"github.com/metaffric/bufr/bufrval"
	"github.com/metaffric/bufr/codec"
	"github.com/metaffric/bufr/compress"
	"github.com/metaffric/bufr/dds"
	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/varinfo"
)

// fieldReader wraps a Reader with a sticky error, so section 1's dozen-plus
// fixed-width fields can be read without a branch after every call.
type fieldReader struct {
	r   *bitio.Reader
	err error
}

func (fr *fieldReader) u8() uint8 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.r.ReadBits(8)
	if err != nil {
		fr.err = err
		return 0
	}

	return uint8(v)
}

func (fr *fieldReader) u16() uint16 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.r.ReadBits(16)
	if err != nil {
		fr.err = err
		return 0
	}

	return uint16(v)
}

func (fr *fieldReader) u24() uint32 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.r.ReadBits(24)
	if err != nil {
		fr.err = err
		return 0
	}

	return v
}

// fieldWriter is fieldReader's write-side counterpart.
type fieldWriter struct {
	w   *bitio.Writer
	err error
}

func (fw *fieldWriter) u8(v uint8) {
	if fw.err != nil {
		return
	}
	fw.err = fw.w.WriteBits(uint32(v), 8)
}

func (fw *fieldWriter) u16(v uint16) {
	if fw.err != nil {
		return
	}
	fw.err = fw.w.WriteBits(uint32(v), 16)
}

func (fw *fieldWriter) u24(v uint32) {
	if fw.err != nil {
		return
	}
	fw.err = fw.w.WriteBits(v, 24)
}

// expectLiteral reads len(lit) bytes and confirms they match lit exactly,
// as section 0 and section 5 require for "BUFR" and "7777".
func expectLiteral(r *bitio.Reader, lit string) error {
	got, err := r.ReadBytes(len(lit))
	if err != nil {
		return err
	}
	if string(got) != lit {
		return fmt.Errorf("%w: expected %q, got %q", errs.ErrBadMagic, lit, got)
	}

	return nil
}

func readUint24(r *bitio.Reader) (uint32, error) {
	return r.ReadBits(24)
}

// patchUint24 overwrites the 3 big-endian bytes at buf[offset:offset+3] with
// v. It must be called with a slice freshly obtained from Writer.Bytes()
// after all writes that could trigger a reallocating Grow have completed;
// holding a slice captured earlier and writing more afterward risks writing
// into a buffer the Writer has since replaced.
func patchUint24(buf []byte, offset int, v uint32) {
	buf[offset] = byte(v >> 16)
	buf[offset+1] = byte(v >> 8)
	buf[offset+2] = byte(v)
}

// skipToByteOffset realigns r to the whole-byte offset target, consuming
// any padding bits left over from a bit-packed payload that did not end on
// a byte boundary. It is a no-op if r is already there.
func skipToByteOffset(r *bitio.Reader, target int) error {
	remaining := target*8 - r.BitOffset()
	if remaining < 0 {
		return fmt.Errorf("%w: section payload ran %d bits past its declared end", errs.ErrSectionLengthMismatch, -remaining)
	}

	for remaining > 0 {
		n := 32
		if remaining < n {
			n = remaining
		}
		if _, err := r.ReadBits(n); err != nil {
			return err
		}
		remaining -= n
	}

	return nil
}

func decodeSection2(r *bitio.Reader, c compress.Codec) ([]byte, error) {
	length, err := readUint24(r)
	if err != nil {
		return nil, errs.WithContext(err, 2, r.ByteOffset(), 0, nil, "section 2 length")
	}

	if _, err := r.ReadBits(8); err != nil { // reserved byte
		return nil, errs.WithContext(err, 2, r.ByteOffset(), 0, nil, "section 2 reserved byte")
	}

	payloadLen := int(length) - 4
	if payloadLen < 0 {
		return nil, errs.WithContext(errs.ErrSectionLengthMismatch, 2, r.ByteOffset(), 0, nil, "section 2 length %d shorter than header", length)
	}

	raw, err := r.ReadBytes(payloadLen)
	if err != nil {
		return nil, errs.WithContext(err, 2, r.ByteOffset(), 0, nil, "section 2 payload")
	}

	if c == nil {
		return raw, nil
	}

	out, err := c.Decompress(raw)
	if err != nil && len(raw) > 0 && raw[len(raw)-1] == 0 {
		// The encoder may have appended a zero pad byte to keep the section
		// length even; a compressed payload cannot absorb it the way an
		// opaque one can, so retry without it.
		out, err = c.Decompress(raw[:len(raw)-1])
	}
	if err != nil {
		return nil, errs.WithContext(err, 2, r.ByteOffset(), 0, nil, "section 2 decompress")
	}

	return out, nil
}

func encodeSection2(w *bitio.Writer, payload []byte, c compress.Codec) error {
	body := payload
	if c != nil {
		compressed, err := c.Compress(payload)
		if err != nil {
			return err
		}
		body = compressed
	}

	length := 4 + len(body)
	pad := length % 2
	length += pad
	if length > 0xFFFFFF {
		return fmt.Errorf("%w: section 2 length %d exceeds 24-bit field", errs.ErrSectionLengthMismatch, length)
	}

	fw := &fieldWriter{w: w}
	fw.u24(uint32(length))
	fw.u8(0) // reserved
	if fw.err != nil {
		return fw.err
	}

	w.RawAppend(body)
	if pad != 0 {
		w.RawAppend([]byte{0})
	}

	return nil
}

// decodeSection3 reads the descriptor list and compression flag. Section 3's
// header (length, reserved byte, subset count, flags byte) is always 7
// bytes, one short of even, so the single pad byte after the descriptor list
// is structurally mandatory rather than conditional on the descriptor count.
func decodeSection3(r *bitio.Reader) (numSubsets int, compressed bool, dataDesc descr.Opcodes, err error) {
	length, err := readUint24(r)
	if err != nil {
		return 0, false, descr.Opcodes{}, errs.WithContext(err, 3, r.ByteOffset(), 0, nil, "section 3 length")
	}

	fr := &fieldReader{r: r}
	fr.u8() // reserved
	n := fr.u16()
	flags := fr.u8()
	if fr.err != nil {
		return 0, false, descr.Opcodes{}, errs.WithContext(fr.err, 3, r.ByteOffset(), 0, nil, "section 3 header")
	}

	numDescriptors := (int(length) - 8) / 2
	codes := make([]descr.Code, numDescriptors)
	for i := 0; i < numDescriptors; i++ {
		raw := fr.u16()
		if fr.err != nil {
			return 0, false, descr.Opcodes{}, errs.WithContext(fr.err, 3, r.ByteOffset(), 0, nil, "descriptor %d", i)
		}
		codes[i] = descr.FromUint16(raw)
	}

	fr.u8() // mandatory pad byte
	if fr.err != nil {
		return 0, false, descr.Opcodes{}, errs.WithContext(fr.err, 3, r.ByteOffset(), 0, nil, "section 3 pad byte")
	}

	return int(n), flags&0x40 != 0, descr.NewOpcodes(codes), nil
}

func encodeSection3(w *bitio.Writer, dataDesc descr.Opcodes, numSubsets int, compressed bool) error {
	length := 8 + 2*dataDesc.Size()
	if length > 0xFFFFFF {
		return fmt.Errorf("%w: section 3 length %d exceeds 24-bit field", errs.ErrSectionLengthMismatch, length)
	}

	fw := &fieldWriter{w: w}
	fw.u24(uint32(length))
	fw.u8(0) // reserved
	fw.u16(uint16(numSubsets))

	var flags uint8
	if compressed {
		flags |= 0x40
	}
	fw.u8(flags)

	for i := 0; i < dataDesc.Size(); i++ {
		fw.u16(dataDesc.At(i).Uint16())
	}

	fw.u8(0) // mandatory pad byte
	if fw.err != nil {
		return fw.err
	}

	return nil
}

func decodeSection4(r *bitio.Reader, dataDesc descr.Opcodes, numSubsets int, compressed bool, tbl varinfo.Table, seq varinfo.SeqTable, conv codec.UnitConverter, subsetCap int) ([]*bufrval.Subset, error) {
	length, err := readUint24(r)
	if err != nil {
		return nil, errs.WithContext(err, 4, r.ByteOffset(), 0, nil, "section 4 length")
	}

	sectionStart := r.ByteOffset() - 3
	sectionEnd := sectionStart + int(length)

	if _, err := r.ReadBits(8); err != nil { // reserved byte
		return nil, errs.WithContext(err, 4, r.ByteOffset(), 0, nil, "section 4 reserved byte")
	}

	var subsets []*bufrval.Subset

	if compressed {
		dec := codec.NewCompressedDecoder(r, tbl, conv, numSubsets, subsetCap)
		if err := dds.Walk(dataDesc, dec, dds.NewState(), tbl, seq); err != nil {
			return nil, errs.WithContext(err, 4, r.ByteOffset()-sectionStart, r.BitOffset()%8, nil, "data section")
		}
		subsets = dec.Subsets()
	} else {
		subsets = make([]*bufrval.Subset, numSubsets)
		for i := 0; i < numSubsets; i++ {
			dec := codec.NewUncompressedDecoder(r, tbl, conv, subsetCap)
			if err := dds.Walk(dataDesc, dec, dds.NewState(), tbl, seq); err != nil {
				return nil, errs.WithContext(err, 4, r.ByteOffset()-sectionStart, r.BitOffset()%8, nil, "data section, subset %d", i)
			}
			subsets[i] = dec.Subset()
		}
	}

	if err := skipToByteOffset(r, sectionEnd); err != nil {
		return nil, errs.WithContext(err, 4, r.ByteOffset(), 0, nil, "section 4 trailing pad")
	}

	return subsets, nil
}

func encodeSection4(w *bitio.Writer, dataDesc descr.Opcodes, subsets []*bufrval.Subset, compressed bool, tbl varinfo.Table, seq varinfo.SeqTable, conv codec.UnitConverter) error {
	lengthOffset := w.BitLen() / 8
	w.RawAppend([]byte{0, 0, 0})
	if err := w.WriteBits(0, 8); err != nil { // reserved byte
		return err
	}

	if compressed {
		enc := codec.NewCompressedEncoder(w, tbl, conv, subsets)
		if err := dds.Walk(dataDesc, enc, dds.NewState(), tbl, seq); err != nil {
			return errs.WithContext(err, 4, w.BitLen()/8-lengthOffset, w.BitLen()%8, nil, "data section")
		}
	} else {
		for i, subset := range subsets {
			enc := codec.NewUncompressedEncoder(w, tbl, conv, subset)
			if err := dds.Walk(dataDesc, enc, dds.NewState(), tbl, seq); err != nil {
				return errs.WithContext(err, 4, w.BitLen()/8-lengthOffset, w.BitLen()%8, nil, "data section, subset %d", i)
			}
		}
	}

	w.Flush()

	if (w.BitLen()/8-lengthOffset)%2 != 0 {
		w.RawAppend([]byte{0})
	}

	out := w.Bytes()
	length := len(out) - lengthOffset
	if length > 0xFFFFFF {
		return fmt.Errorf("%w: section 4 length %d exceeds 24-bit field", errs.ErrSectionLengthMismatch, length)
	}
	patchUint24(out, lengthOffset, uint32(length))

	return nil
}
