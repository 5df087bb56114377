package dds

import "github.com/metaffric/bufr/descr"

// Effective is the element metadata a Visitor actually uses to read or
// write one F=0 field's bits: the table Info already folded together with
// whatever C-modifiers are active at this point in the walk.
type Effective struct {
	BitLen   int
	Scale    int
	Ref      int64
	IsString bool
}

// Visitor is the interpreter's only way of touching the outside world: the
// bit stream and the Subset being built (decode) or consumed (encode). The
// interpreter drives the walk; Visitor implementations (the uncompressed
// and compressed codecs) decide how a capability call turns into bits or
// Subset entries.
//
// AttrTarget, where present, is the index of the prior top-level Subset
// entry an F=0 X=33 attribute value belongs to when a bitmap is active, or
// -1 when the value is itself a normal top-level entry.
type Visitor interface {
	// OnBData handles one F=0 descriptor occurrence.
	OnBData(code descr.Code, eff Effective, attrTarget int) error

	// DefineDelayedReplicationFactor handles the factor descriptor that
	// precedes an ordinary (non-bitmap) delayed replication's repeated
	// group, and returns the resolved repetition count.
	DefineDelayedReplicationFactor(code descr.Code, eff Effective) (int, error)

	// OnBitmap handles the data-present bitmap pseudo-variable introduced
	// by a C 22/23 Y=0 modifier: it both accounts for the bitmapLen
	// individual 0-31-031 bits on the wire and produces/consumes the
	// bitmap's string value as a single Subset entry. It returns the
	// resulting bitmap string ('+'/'-' per position).
	OnBitmap(code descr.Code, bitmapLen int) (string, error)

	// OnSequenceEnter/OnSequenceExit bracket the walk of one F=3 sequence
	// expansion. Most visitors can no-op these; they exist for visitors
	// that want to track nesting (e.g. for diagnostics).
	OnSequenceEnter(code descr.Code)
	OnSequenceExit()

	// Position reports the visitor's current place in its bit stream (the
	// read cursor for decoders, the write cursor for encoders) as a whole
	// byte offset plus the bit offset within that byte. The interpreter
	// attaches it to every error it raises, since only the visitor touches
	// the bits and knows where the walk actually is.
	Position() (byteOffset, bitOffset int)
}
