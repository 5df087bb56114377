package dds

import "github.com/metaffric/bufr/descr"

// State holds the interpreter state that mutates while walking a descriptor
// stream for one message: the C-modifier overrides, and the bitmap cursors
// used to route F=0 X=33 attribute descriptors to the right prior variable.
//
// A State is created fresh per message (or per subset, for the uncompressed
// codec, since C-modifiers and bitmaps are scoped to the walk of one
// subset's descriptor stream) and is not safe for concurrent use.
type State struct {
	// CWidthChange is added to BitLen for subsequent non-string F=0 fields.
	CWidthChange int
	// CScaleChange is added to BufrScale for subsequent F=0 fields.
	CScaleChange int
	// CStringLenOverride, when non-zero, overrides the bit length of
	// subsequent string fields to 8*CStringLenOverride.
	CStringLenOverride int

	// Bitmap is the most recently defined data-present bitmap, a string of
	// '+' (present) / '-' (missing), one character per previously emitted
	// top-level data variable at the time the bitmap was defined. Empty
	// when no bitmap is active.
	Bitmap string

	bitmapUseCur    int
	bitmapSubsetCur int

	// pendingBitmapDef is set by a C 22/23 Y=0 modifier and cleared once
	// the following delayed replication has consumed it.
	pendingBitmapDef bool
	// bitmapDefCode is the C-modifier descriptor that set pendingBitmapDef,
	// used as the synthetic code for the bitmap pseudo-variable.
	bitmapDefCode descr.Code

	// elementsSoFar counts top-level (non-attribute) variables processed
	// so far: normal F=0 elements, delayed replication factors, and bitmap
	// pseudo-variables. It is the length a newly defined bitmap must have.
	elementsSoFar int
}

// NewState creates a State with all C-modifiers at their default (inactive)
// values and no bitmap active.
func NewState() *State {
	return &State{}
}

// resetBitmapCursors restarts a fresh pass over the current bitmap, used
// both when a bitmap is first defined and at the start of each attribute
// descriptor that consults it (multiple attribute codes can each do their
// own full pass over the same bitmap).
func (s *State) resetBitmapCursors() {
	s.bitmapUseCur = -1
	s.bitmapSubsetCur = -1
}

// bitmapAdvance moves to the next '+' (present) entry in the bitmap,
// skipping over '-' entries (and their corresponding subset index) along
// the way. It returns false, nil once the bitmap is exhausted with no
// further present entries — the normal termination condition for the
// attribute-attachment loop, not an error.
func (s *State) bitmapAdvance() (present bool, err error) {
	for {
		s.bitmapUseCur++
		if s.bitmapUseCur >= len(s.Bitmap) {
			return false, nil
		}
		s.bitmapSubsetCur++
		if s.Bitmap[s.bitmapUseCur] == '+' {
			return true, nil
		}
	}
}

// BitmapSubsetIndex returns the subset index the most recent bitmapAdvance
// call landed on.
func (s *State) BitmapSubsetIndex() int {
	return s.bitmapSubsetCur
}
