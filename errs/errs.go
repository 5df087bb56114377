// Package errs defines the sentinel errors and structured error context
// returned by the bufr codec.
//
// Errors the codec raises itself wrap one of the sentinels below (directly
// or via fmt.Errorf's %w verb), and most carry a Context describing where in
// the message the failure occurred. Errors returned by a configured section
// 2 compression codec are passed through without a sentinel. Callers can use errors.Is against the
// sentinels and errors.As against *Context to recover the location.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind in the codec's taxonomy.
var (
	// ErrEndOfBuffer is returned when a read runs past the input bounds.
	ErrEndOfBuffer = errors.New("bufr: end of buffer")
	// ErrBadMagic is returned when input does not carry the "BUFR" start
	// literal or the "7777" end literal — malformed or non-BUFR input, not
	// a codec bug.
	ErrBadMagic = errors.New("bufr: bad magic literal")
	// ErrUnexpectedEdition is returned when the edition byte is not in {2,3,4}.
	ErrUnexpectedEdition = errors.New("bufr: unexpected edition")
	// ErrUnknownDescriptor is returned on a B-table or D-table lookup miss.
	ErrUnknownDescriptor = errors.New("bufr: unknown descriptor")
	// ErrDescriptorMismatch is returned when an encoder's subset variable
	// does not match the descriptor it is being bound to.
	ErrDescriptorMismatch = errors.New("bufr: descriptor mismatch")
	// ErrValueOutOfRange is returned when a numeric value does not fit its
	// effective bit width, or is negative after reference subtraction.
	ErrValueOutOfRange = errors.New("bufr: value out of range")
	// ErrUnsupportedCModifier is returned for a C-modifier outside the
	// handled set.
	ErrUnsupportedCModifier = errors.New("bufr: unsupported C modifier")
	// ErrCompressedStringUnsupported is returned for a non-zero reference
	// or over-long deltas in a compressed string field.
	ErrCompressedStringUnsupported = errors.New("bufr: unsupported compressed string layout")
	// ErrBitmapError is returned when the bitmap cursor advances past the
	// bitmap or the subset ends while seeking.
	ErrBitmapError = errors.New("bufr: bitmap cursor error")
	// ErrMissingDelayedFactor is returned for a delayed replication with no
	// input factor available.
	ErrMissingDelayedFactor = errors.New("bufr: missing delayed replication factor")
	// ErrInvariantViolation guards invariants that should never break; its
	// presence indicates a bug in the codec, not malformed input.
	ErrInvariantViolation = errors.New("bufr: invariant violation")
	// ErrBitOverflow is returned when a value does not fit in n bits.
	ErrBitOverflow = errors.New("bufr: bit overflow")
	// ErrSectionLengthMismatch is returned when a decoded section's declared
	// length does not match the bytes actually consumed, or when an encoded
	// section would exceed the 24-bit length field's range.
	ErrSectionLengthMismatch = errors.New("bufr: section length mismatch")
)

// DescriptorFrame identifies one level of the descriptor path that was being
// walked when an error occurred, as F/X/Y plus a human label (e.g. "sequence"
// or "replication").
type DescriptorFrame struct {
	F     uint8
	X     uint8
	Y     uint8
	Label string
}

func (f DescriptorFrame) String() string {
	if f.Label == "" {
		return fmt.Sprintf("%d %02d %03d", f.F, f.X, f.Y)
	}

	return fmt.Sprintf("%d %02d %03d (%s)", f.F, f.X, f.Y, f.Label)
}

// Context locates a failure inside the message: the section number, a byte
// offset, the bit offset within that byte, and the descriptor path that was
// being walked when the error occurred. The byte offset is counted from the
// start of the section only in the section 4 annotations bufrio adds around
// the data-section walk; elsewhere, including the Context dds.Walk attaches,
// it is counted from the start of the message.
type Context struct {
	Section    int
	ByteOffset int
	BitOffset  int
	Path       []DescriptorFrame
	Message    string
	Err        error
}

// Error implements the error interface.
func (c *Context) Error() string {
	msg := c.Message
	if msg == "" {
		msg = c.Err.Error()
	}

	return fmt.Sprintf("section %d, byte %d, bit %d, path %s: %s", c.Section, c.ByteOffset, c.BitOffset, pathString(c.Path), msg)
}

// Unwrap exposes the wrapped sentinel so errors.Is/errors.As keep working
// through the Context wrapper.
func (c *Context) Unwrap() error {
	return c.Err
}

func pathString(path []DescriptorFrame) string {
	if len(path) == 0 {
		return "<root>"
	}

	out := ""
	for i, f := range path {
		if i > 0 {
			out += " > "
		}
		out += f.String()
	}

	return out
}

// WithContext wraps err with location information. It is a no-op (returns
// err unchanged) when err is nil, so call sites can use it unconditionally
// in a defer or a trailing return.
func WithContext(err error, section, byteOffset, bitOffset int, path []DescriptorFrame, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return &Context{
		Section:    section,
		ByteOffset: byteOffset,
		BitOffset:  bitOffset,
		Path:       append([]DescriptorFrame(nil), path...),
		Message:    fmt.Sprintf(format, args...),
		Err:        err,
	}
}
