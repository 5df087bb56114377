// Package descr represents BUFR data descriptors and the opcode streams
// they form.
//
// A descriptor is a 16-bit value laid out as F (2 bits), X (6 bits), Y (8
// bits): F identifies the descriptor's kind (element, replication,
// C-modifier, sequence), X and Y give the specific code within that kind.
// Opcodes is a zero-copy view over a slice of descriptors: sub-expansions
// and replication groups reslice the backing storage rather than
// materialize new slices.
package descr

import "fmt"

// Kind enumerates the four values of F.
type Kind uint8

const (
	// KindElement (F=0) names a single data element via a B-table lookup.
	KindElement Kind = 0
	// KindReplication (F=1) repeats the following X descriptors Y times
	// (or a delayed count when Y==0).
	KindReplication Kind = 1
	// KindOperator (F=2) is a C-modifier that mutates interpreter state.
	KindOperator Kind = 2
	// KindSequence (F=3) expands to a D-table entry.
	KindSequence Kind = 3
)

// Code is a single BUFR descriptor (F, X, Y).
type Code struct {
	F uint8
	X uint8
	Y uint8
}

// NewCode builds a Code from its F/X/Y components.
func NewCode(f, x, y uint8) Code {
	return Code{F: f, X: x, Y: y}
}

// FromUint16 decodes a Code from its wire representation: F in bits 15-14,
// X in bits 13-8, Y in bits 7-0.
func FromUint16(v uint16) Code {
	return Code{
		F: uint8(v >> 14),
		X: uint8((v >> 8) & 0x3F),
		Y: uint8(v & 0xFF),
	}
}

// Uint16 encodes the Code into its wire representation.
func (c Code) Uint16() uint16 {
	return uint16(c.F)<<14 | uint16(c.X)<<8 | uint16(c.Y)
}

// Kind returns the descriptor's kind, derived from F.
func (c Code) Kind() Kind {
	return Kind(c.F)
}

// String renders the code in the conventional "F XX YYY" form.
func (c Code) String() string {
	return fmt.Sprintf("%d %02d %03d", c.F, c.X, c.Y)
}

// ReplicationGroup returns X interpreted as the number of descriptors a
// replication (F=1) repeats. Only meaningful when Kind() == KindReplication.
func (c Code) ReplicationGroup() int {
	return int(c.X)
}

// ReplicationCount returns Y interpreted as the replication count, or 0 for
// a delayed replication whose count is read from the following descriptor.
func (c Code) ReplicationCount() int {
	return int(c.Y)
}

// Opcodes is a zero-copy view over a descriptor slice. Sub-views (Sub, Tail)
// never copy the backing storage; they only adjust bounds.
type Opcodes struct {
	codes []Code
}

// NewOpcodes wraps a slice of codes as an Opcodes view. The slice is
// borrowed, not copied.
func NewOpcodes(codes []Code) Opcodes {
	return Opcodes{codes: codes}
}

// FromUint16Slice decodes a wire-format descriptor list into an Opcodes
// view.
func FromUint16Slice(raw []uint16) Opcodes {
	codes := make([]Code, len(raw))
	for i, v := range raw {
		codes[i] = FromUint16(v)
	}

	return NewOpcodes(codes)
}

// Size returns the number of descriptors in the view.
func (o Opcodes) Size() int {
	return len(o.codes)
}

// Empty reports whether the view has no descriptors left.
func (o Opcodes) Empty() bool {
	return len(o.codes) == 0
}

// Head returns the first descriptor in the view. Callers must check Empty
// first; Head panics on an empty view, matching the zero-copy views'
// "caller already bounds-checked" contract used throughout this codebase.
func (o Opcodes) Head() Code {
	return o.codes[0]
}

// At returns the descriptor at index i.
func (o Opcodes) At(i int) Code {
	return o.codes[i]
}

// Sub returns the sub-view starting at index start and running length
// elements (or to the end of the view if length is negative).
func (o Opcodes) Sub(start int, length int) Opcodes {
	if length < 0 {
		return Opcodes{codes: o.codes[start:]}
	}

	return Opcodes{codes: o.codes[start : start+length]}
}

// Tail returns the view with its first element removed.
func (o Opcodes) Tail() Opcodes {
	return o.Sub(1, -1)
}

// Slice materializes the view's contents as a new []Code, for callers that
// need an owned copy (e.g. caching a D-table expansion).
func (o Opcodes) Slice() []Code {
	out := make([]Code, len(o.codes))
	copy(out, o.codes)

	return out
}
