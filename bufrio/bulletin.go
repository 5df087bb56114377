// Package bufrio frames the outer sections of a BUFR message (0, 1, 2, 3, 5)
// around the bit-packed data section that dds and codec drive. It owns
// section boundaries, length-field bookkeeping, and the top-level
// Bulletin value; it never interprets a descriptor itself.
package bufrio

import (
	"fmt"

	"github.com/metaffric/bufr/bitio"
	"github.com/metaffric/bufr/bufrval"
	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/varinfo"
)

// Bulletin is the decoded outer frame of a message: everything the codec
// reads or writes besides the data section's bit-packed content.
type Bulletin struct {
	Edition int

	MasterTable          uint8
	Centre               uint16
	Subcentre            uint16
	UpdateSequenceNumber uint8
	OptionalSection      bool
	Type                 uint8
	Subtype              uint8 // edition 4 only; always 0 on edition 2/3
	LocalSubtype         uint8
	MasterTableVersion   uint8
	LocalTableVersion    uint8

	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int // edition 4 only; always 0 on edition 2/3

	DataDesc   descr.Opcodes
	Compressed bool
	Subsets    []*bufrval.Subset

	// Section2 is the opaque, centre-defined local-use payload. Decode
	// returns it already decompressed (if a codec was configured); the
	// padding byte a decoder cannot distinguish from real payload content
	// when the original length was odd is included verbatim.
	Section2 []byte
}

// Decode parses a complete BUFR message. tbl and seq are the B-table and
// D-table collaborators the data section needs to interpret dataDesc; they
// are not stored on the returned Bulletin.
func Decode(data []byte, tbl varinfo.Table, seq varinfo.SeqTable, opts ...DecodeOption) (*Bulletin, error) {
	cfg := newDecodeConfig(opts)
	r := bitio.NewReader(data)

	if err := expectLiteral(r, "BUFR"); err != nil {
		return nil, errs.WithContext(err, 0, r.ByteOffset(), 0, nil, "section 0 magic")
	}

	totalLen, err := readUint24(r)
	if err != nil {
		return nil, errs.WithContext(err, 0, r.ByteOffset(), 0, nil, "section 0 total length")
	}

	editionRaw, err := r.ReadBits(8)
	if err != nil {
		return nil, errs.WithContext(err, 0, r.ByteOffset(), 0, nil, "section 0 edition")
	}

	edition := int(editionRaw)
	if edition != 2 && edition != 3 && edition != 4 {
		return nil, errs.WithContext(fmt.Errorf("%w: %d", errs.ErrUnexpectedEdition, edition), 0, r.ByteOffset(), 0, nil, "edition byte")
	}

	b := &Bulletin{Edition: edition}

	if edition == 4 {
		if err := decodeSection1Edition4(r, b); err != nil {
			return nil, err
		}
	} else {
		if err := decodeSection1Edition3(r, b); err != nil {
			return nil, err
		}
	}

	if b.OptionalSection {
		payload, err := decodeSection2(r, cfg.section2Codec)
		if err != nil {
			return nil, err
		}
		b.Section2 = payload
	}

	numSubsets, compressed, dataDesc, err := decodeSection3(r)
	if err != nil {
		return nil, err
	}
	b.Compressed = compressed
	b.DataDesc = dataDesc

	subsets, err := decodeSection4(r, dataDesc, numSubsets, compressed, tbl, seq, cfg.conv, cfg.subsetCap)
	if err != nil {
		return nil, err
	}
	b.Subsets = subsets

	if err := expectLiteral(r, "7777"); err != nil {
		return nil, errs.WithContext(err, 5, r.ByteOffset(), 0, nil, "section 5 magic")
	}

	if got := r.ByteOffset(); int(totalLen) != got {
		return nil, fmt.Errorf("%w: header declares %d bytes, decoded %d", errs.ErrSectionLengthMismatch, totalLen, got)
	}

	return b, nil
}

// Encode serializes b into a complete BUFR message.
func Encode(b *Bulletin, tbl varinfo.Table, seq varinfo.SeqTable, opts ...EncodeOption) ([]byte, error) {
	if b.Edition != 2 && b.Edition != 3 && b.Edition != 4 {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnexpectedEdition, b.Edition)
	}

	cfg := newEncodeConfig(opts)
	w := bitio.NewPooledWriter()
	defer w.Release()

	w.RawAppend([]byte("BUFR"))
	totalLenOffset := w.BitLen() / 8
	w.RawAppend([]byte{0, 0, 0})
	if err := w.WriteBits(uint32(b.Edition), 8); err != nil {
		return nil, err
	}

	var err error
	if b.Edition == 4 {
		err = encodeSection1Edition4(w, b)
	} else {
		err = encodeSection1Edition3(w, b)
	}
	if err != nil {
		return nil, err
	}

	if b.OptionalSection {
		if err := encodeSection2(w, b.Section2, cfg.section2Codec); err != nil {
			return nil, err
		}
	}

	if err := encodeSection3(w, b.DataDesc, len(b.Subsets), b.Compressed); err != nil {
		return nil, err
	}

	if err := encodeSection4(w, b.DataDesc, b.Subsets, b.Compressed, tbl, seq, cfg.conv); err != nil {
		return nil, err
	}

	w.RawAppend([]byte("7777"))

	buf := w.Bytes()
	patchUint24(buf, totalLenOffset, uint32(len(buf)))

	// The writer's buffer goes back to the pool on return; the message the
	// caller owns is a copy.
	out := make([]byte, len(buf))
	copy(out, buf)

	return out, nil
}
