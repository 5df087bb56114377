// Package bufr provides a high-performance codec for the WMO BUFR binary
// format used to exchange meteorological observations.
//
// BUFR packs self-describing, bit-level data: a short list of table-driven
// descriptors (the data descriptor sequence) governs how each value in a
// message's data section is laid out, down to the individual bit width. A
// message may pack many data subsets either one after another
// (uncompressed) or column-major with a shared base value and per-subset
// deltas (compressed).
//
// # Core features
//
//   - Full section 0-5 framing for edition 2, 3 and 4 messages
//   - Uncompressed and compressed data section codecs
//   - A descriptor-sequence interpreter driving pluggable B-table/D-table
//     lookups, so callers supply their own WMO table data
//   - Delayed replication, C-modifier (width/scale/string-length) overrides,
//     and data-present bitmap/attribute handling
//
// # Basic usage
//
// Decoding a message:
//
//	bulletin, err := bufr.DecodeBUFR(data, table, seqTable)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, subset := range bulletin.Subsets {
//	    for _, v := range subset.Vars {
//	        fmt.Printf("%s = %v\n", v.Code, v.Dbl)
//	    }
//	}
//
// Encoding one back out:
//
//	out, err := bufr.EncodeBUFR(bulletin, table, seqTable)
//
// # Package structure
//
// This package provides convenient top-level wrappers around the bufrio
// package, which owns section framing, and the dds/codec packages, which
// interpret the data descriptor sequence and drive the bit-packed data
// section itself. For advanced usage, such as framing one subset at a
// time, use those packages directly.
package bufr

import (
	"github.com/metaffric/bufr/bufrio"
	"github.com/metaffric/bufr/bufrval"
	"github.com/metaffric/bufr/codec"
	"github.com/metaffric/bufr/varinfo"
)

// Bulletin is bufrio.Bulletin, re-exported so callers using only this
// package's top-level API never need to import bufrio directly.
type Bulletin = bufrio.Bulletin

// DecodeOption configures DecodeBUFR.
type DecodeOption = bufrio.DecodeOption

// EncodeOption configures EncodeBUFR.
type EncodeOption = bufrio.EncodeOption

// UnitConverter is the unit-conversion collaborator applied to F=0 values
// during encode/decode; the default performs no conversion.
type UnitConverter = codec.UnitConverter

// WithDecodeUnitConverter installs conv as DecodeBUFR's unit converter.
func WithDecodeUnitConverter(conv UnitConverter) DecodeOption {
	return bufrio.WithDecodeUnitConverter(conv)
}

// WithEncodeUnitConverter installs conv as EncodeBUFR's unit converter.
func WithEncodeUnitConverter(conv UnitConverter) EncodeOption {
	return bufrio.WithEncodeUnitConverter(conv)
}

// DecodeBUFR parses a complete BUFR message (sections 0 through 5) into a
// Bulletin. table and seqTable are the B-table and D-table collaborators
// the data section needs to resolve descriptors; loading real WMO table
// data from disk or an embedded source is the caller's responsibility —
// varinfo.Static/SeqStatic are minimal in-memory implementations suitable
// for tests or small fixed table sets.
//
// Parameters:
//   - data: the raw message bytes, starting with "BUFR" and ending with
//     "7777"
//   - table: the B-table collaborator
//   - seqTable: the D-table collaborator
//   - opts: optional configuration (see WithDecodeUnitConverter,
//     bufrio.WithSection2Codec, bufrio.WithSubsetCapacityHint)
func DecodeBUFR(data []byte, table varinfo.Table, seqTable varinfo.SeqTable, opts ...DecodeOption) (*Bulletin, error) {
	return bufrio.Decode(data, table, seqTable, opts...)
}

// EncodeBUFR serializes a Bulletin into a complete BUFR message.
//
// Parameters:
//   - b: the Bulletin to encode; Edition must be 2, 3, or 4
//   - table: the B-table collaborator
//   - seqTable: the D-table collaborator
//   - opts: optional configuration (see WithEncodeUnitConverter,
//     bufrio.WithSection2Compression)
func EncodeBUFR(b *Bulletin, table varinfo.Table, seqTable varinfo.SeqTable, opts ...EncodeOption) ([]byte, error) {
	return bufrio.Encode(b, table, seqTable, opts...)
}

// NewSubset creates an empty data subset, optionally pre-sized for n
// top-level data elements. It is a thin convenience wrapper around
// bufrval.NewSubset for callers building a Bulletin to encode.
func NewSubset(n int) *bufrval.Subset {
	return bufrval.NewSubset(n)
}
