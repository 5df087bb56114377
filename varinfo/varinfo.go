// Package varinfo models per-descriptor element metadata and the read-only
// table collaborators that produce it.
//
// Info values are immutable once constructed, shared freely by reference,
// and safe for concurrent reads. The B-table and D-table lookup services
// themselves (loading real WMO tables from disk) live outside this module;
// Table and SeqTable below are the interfaces the interpreter depends on,
// plus a small in-memory implementation (Static) used by tests and callers
// that already have their tables resident in memory.
package varinfo

import (
	"fmt"
	"sync"

	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/internal/hash"
)

// Info is the immutable, interned per-descriptor element metadata: scale,
// reference, bit length, unit, and string-ness, plus a human description.
// It never mutates after construction; "altered" variants (different scale
// or bit length, produced by C-modifiers) are distinct Info values, not
// in-place edits.
type Info struct {
	Code      descr.Code
	Desc      string
	Unit      string // original unit, as named in the table
	BufrUnit  string // canonical BUFR unit used for on-wire values
	Scale     int    // decimal scale in Unit terms
	BufrScale int    // decimal scale applied to the on-wire integer
	BitRef    int64  // integer reference subtracted at encode
	BitLen    int    // width in bits
	IsString  bool
	Len       int // for strings: character length, equal to BitLen/8
}

// Table is the B-table collaborator: element metadata keyed by descriptor
// code.
type Table interface {
	// Query returns the Info for code, or ErrUnknownDescriptor if the table
	// has no entry for it.
	Query(code descr.Code) (*Info, error)
	// QueryAltered returns an Info identical to Query(code)'s result except
	// for scale and bit length, which are overridden. The result is cached
	// and interned by the table so repeated calls with the same arguments
	// return the same *Info.
	QueryAltered(code descr.Code, newScale int, newBitLen int) (*Info, error)
	// Contains reports whether code resolves to an Info without producing
	// one.
	Contains(code descr.Code) bool
}

// SeqTable is the D-table collaborator: sequence descriptors expand into a
// list of member descriptors.
type SeqTable interface {
	// Query returns the expansion of a sequence (F=3) descriptor.
	Query(code descr.Code) (descr.Opcodes, error)
}

// alteredKey identifies one cached altered Info.
type alteredKey struct {
	code      descr.Code
	newScale  int
	newBitLen int
}

func (k alteredKey) hash() uint64 {
	var buf [11]byte
	buf[0] = k.code.F
	buf[1] = k.code.X
	buf[2] = k.code.Y
	buf[3] = byte(k.newScale)
	buf[4] = byte(k.newScale >> 8)
	buf[5] = byte(k.newScale >> 16)
	buf[6] = byte(k.newScale >> 24)
	buf[7] = byte(k.newBitLen)
	buf[8] = byte(k.newBitLen >> 8)
	buf[9] = byte(k.newBitLen >> 16)
	buf[10] = byte(k.newBitLen >> 24)

	return hash.ID(string(buf[:]))
}

// Static is a minimal in-memory Table: a fixed map of code to Info, with an
// altered-Info cache keyed by xxhash of (code, newScale, newBitLen). It is
// meant for tests and for callers that have already materialized their
// B-table in memory; it is not a WMO table loader.
type Static struct {
	entries map[descr.Code]*Info

	mu      sync.RWMutex
	altered map[uint64]*Info
}

var _ Table = (*Static)(nil)

// NewStatic creates a Static table from the given entries. The entries slice
// is copied into an internal map keyed by Code; Info values themselves are
// stored by reference and must not be mutated after being passed in.
func NewStatic(entries []*Info) *Static {
	m := make(map[descr.Code]*Info, len(entries))
	for _, e := range entries {
		m[e.Code] = e
	}

	return &Static{entries: m, altered: make(map[uint64]*Info)}
}

// Query implements Table.
func (t *Static) Query(code descr.Code) (*Info, error) {
	info, ok := t.entries[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownDescriptor, code)
	}

	return info, nil
}

// Contains implements Table.
func (t *Static) Contains(code descr.Code) bool {
	_, ok := t.entries[code]

	return ok
}

// QueryAltered implements Table. The returned Info is cached: repeated calls
// with the same (code, newScale, newBitLen) return the identical *Info.
func (t *Static) QueryAltered(code descr.Code, newScale int, newBitLen int) (*Info, error) {
	base, err := t.Query(code)
	if err != nil {
		return nil, err
	}

	key := alteredKey{code: code, newScale: newScale, newBitLen: newBitLen}
	h := key.hash()

	t.mu.RLock()
	if cached, ok := t.altered[h]; ok {
		t.mu.RUnlock()

		return cached, nil
	}
	t.mu.RUnlock()

	altered := *base
	altered.Scale = newScale
	altered.BufrScale = newScale
	if newBitLen > 0 {
		altered.BitLen = newBitLen
		if altered.IsString {
			altered.Len = newBitLen / 8
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cached, ok := t.altered[h]; ok {
		return cached, nil
	}
	t.altered[h] = &altered

	return &altered, nil
}

// SeqStatic is a minimal in-memory SeqTable, mirroring Static.
type SeqStatic struct {
	entries map[descr.Code][]descr.Code
}

var _ SeqTable = (*SeqStatic)(nil)

// NewSeqStatic creates a SeqStatic from a map of sequence code to its member
// descriptors.
func NewSeqStatic(entries map[descr.Code][]descr.Code) *SeqStatic {
	m := make(map[descr.Code][]descr.Code, len(entries))
	for k, v := range entries {
		cp := make([]descr.Code, len(v))
		copy(cp, v)
		m[k] = cp
	}

	return &SeqStatic{entries: m}
}

// Query implements SeqTable.
func (t *SeqStatic) Query(code descr.Code) (descr.Opcodes, error) {
	members, ok := t.entries[code]
	if !ok {
		return descr.Opcodes{}, fmt.Errorf("%w: %s", errs.ErrUnknownDescriptor, code)
	}

	return descr.NewOpcodes(members), nil
}
