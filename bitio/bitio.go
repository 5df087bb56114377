// Package bitio provides bit-level I/O primitives for the BUFR codec.
//
// BUFR packs fields of arbitrary bit width (not necessarily a multiple of 8)
// big-endian, MSB-first, across byte boundaries. This package implements the
// reader and writer halves of that format: Reader walks a borrowed byte
// slice bit by bit, Writer appends to an owned, growable byte buffer.
//
// Both halves keep a small value register (a single partial byte, since
// BUFR fields only need byte-granular look-ahead) plus a bit count,
// refilled from or spilled to the underlying buffer lazily.
package bitio

import (
	"github.com/metaffric/bufr/errs"
	"github.com/metaffric/bufr/internal/pool"
)

// allOnes32 is the all-ones sentinel pattern for widths up to 32 bits.
const allOnes32 = 0xFFFFFFFF

// Reader reads big-endian, MSB-first bit fields from a borrowed byte slice.
//
// It is not safe for concurrent use; each goroutine decoding a message must
// use its own Reader.
type Reader struct {
	data     []byte
	cursor   int  // index of the next whole byte to pull into pbyte
	pbyte    byte // partial byte currently being consumed
	pbyteLen int  // bits left in pbyte, in [0, 8)
}

// NewReader creates a Reader over data. data is borrowed: the Reader never
// modifies or retains it past the reader's own lifetime, but the caller must
// not mutate it while the Reader is in use.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// BitOffset returns the bit position from the start of the buffer that the
// next read will begin at (cursor*8 - pbyteLen, since pbyteLen bits of the
// already-consumed byte are still unread).
func (r *Reader) BitOffset() int {
	return r.cursor*8 - r.pbyteLen
}

// ByteOffset returns the whole-byte offset containing the next bit to read.
func (r *Reader) ByteOffset() int {
	return r.BitOffset() / 8
}

// BitsLeft returns the number of bits remaining until the end of the buffer.
func (r *Reader) BitsLeft() int {
	return len(r.data)*8 - r.BitOffset()
}

// ReadBits consumes the next n bits, MSB-first, and returns them
// right-justified in a uint32. n must be in [0, 32].
//
// It returns errs.ErrEndOfBuffer if the buffer is exhausted before n bits
// could be read; on error the Reader's position is left at the point of
// failure and must not be reused for further decoding of the same field.
func (r *Reader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, errs.ErrInvariantViolation
	}

	var val uint32
	remaining := n
	for remaining > 0 {
		if r.pbyteLen == 0 {
			if r.cursor >= len(r.data) {
				return 0, errs.ErrEndOfBuffer
			}
			r.pbyte = r.data[r.cursor]
			r.cursor++
			r.pbyteLen = 8
		}

		take := remaining
		if take > r.pbyteLen {
			take = r.pbyteLen
		}

		shift := r.pbyteLen - take
		chunk := (r.pbyte >> shift) & byte((1<<take)-1)
		val = (val << take) | uint32(chunk)

		r.pbyteLen -= take
		remaining -= take
	}

	return val, nil
}

// ReadUintBE reads a big-endian unsigned integer of widthBytes bytes (at
// most 4) at the absolute byte offset pos, without moving the cursor. It is
// meant for peeking section length fields in the framing headers.
func (r *Reader) ReadUintBE(pos, widthBytes int) (uint32, error) {
	if widthBytes < 0 || widthBytes > 4 {
		return 0, errs.ErrInvariantViolation
	}
	if pos < 0 || pos+widthBytes > len(r.data) {
		return 0, errs.ErrEndOfBuffer
	}

	var val uint32
	for _, b := range r.data[pos : pos+widthBytes] {
		val = val<<8 | uint32(b)
	}

	return val, nil
}

// ReadRawField consumes nBits and returns them as ceil(nBits/8) bytes, the
// trailing partial byte (if any) left-aligned. It is the character-field
// primitive ReadString builds on; callers that need to inspect the raw base
// bytes of a compressed string column use it directly.
func (r *Reader) ReadRawField(nBits int) ([]byte, error) {
	if nBits <= 0 {
		return nil, nil
	}

	nBytes := (nBits + 7) / 8
	raw := make([]byte, nBytes)

	remaining := nBits
	for i := 0; i < nBytes; i++ {
		width := 8
		if remaining < 8 {
			width = remaining
		}

		v, err := r.ReadBits(width)
		if err != nil {
			return nil, err
		}

		if width < 8 {
			v <<= uint(8 - width)
		}

		raw[i] = byte(v)
		remaining -= width
	}

	return raw, nil
}

// InterpretString turns a raw character field into its decoded form: missing
// when every byte is the all-ones sentinel, otherwise the text right-trimmed
// of trailing spaces and NUL bytes, character bytes kept verbatim.
func InterpretString(raw []byte) (text string, missing bool) {
	if len(raw) == 0 {
		return "", false
	}

	allOnes := true
	for _, b := range raw {
		if b != 0xFF {
			allOnes = false
			break
		}
	}
	if allOnes {
		return "", true
	}

	end := len(raw)
	for end > 0 && (raw[end-1] == ' ' || raw[end-1] == 0) {
		end--
	}

	return string(raw[:end]), false
}

// ReadString fills ceil(nBits/8) characters and reports whether every bit
// read was 1 (the BUFR missing sentinel). Non-missing strings are
// right-trimmed of trailing spaces and NUL bytes; character bytes are
// otherwise kept verbatim.
func (r *Reader) ReadString(nBits int) (text string, missing bool, err error) {
	raw, err := r.ReadRawField(nBits)
	if err != nil {
		return "", false, err
	}

	text, missing = InterpretString(raw)

	return text, missing, nil
}

// ReadBytes reads n raw bytes without interpretation. n must be a multiple
// of 8 bits in terms of the caller's intent; ReadBytes always consumes
// exactly n*8 bits.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		v, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}

	return out, nil
}

// IsMissing reports whether a just-read raw value of the given bit width is
// the BUFR missing sentinel (all ones).
func IsMissing(raw uint32, nBits int) bool {
	if nBits <= 0 {
		return false
	}
	if nBits >= 32 {
		return raw == allOnes32
	}

	mask := uint32(1)<<uint(nBits) - 1

	return raw&mask == mask
}

// Writer appends big-endian, MSB-first bit fields to an owned, growable byte
// buffer.
//
// It is not safe for concurrent use.
type Writer struct {
	buf      *pool.ByteBuffer
	pooled   bool
	pbyte    byte
	pbyteLen int // bits already placed into pbyte, in [0, 8)
}

// NewWriter creates an empty Writer backed by its own buffer.
func NewWriter() *Writer {
	return &Writer{buf: pool.NewByteBuffer(pool.MessageBufferDefaultSize)}
}

// NewPooledWriter creates an empty Writer backed by a buffer borrowed from
// the message pool. The caller must call Release once the output has been
// copied out; slices obtained from Bytes are invalid after that.
func NewPooledWriter() *Writer {
	return &Writer{buf: pool.GetMessageBuffer(), pooled: true}
}

// Release returns a pooled Writer's buffer to the message pool. It is a
// no-op for writers created with NewWriter, so callers can defer it
// unconditionally.
func (w *Writer) Release() {
	if !w.pooled || w.buf == nil {
		return
	}

	pool.PutMessageBuffer(w.buf)
	w.buf = nil
}

// WriteBits appends the low n bits of value, MSB-first. n must be in
// [0, 32]; it returns errs.ErrBitOverflow if value does not fit in n bits.
func (w *Writer) WriteBits(value uint32, n int) error {
	if n < 0 || n > 32 {
		return errs.ErrInvariantViolation
	}
	if n < 32 && value>>uint(n) != 0 {
		return errs.ErrBitOverflow
	}

	remaining := n
	for remaining > 0 {
		space := 8 - w.pbyteLen
		take := remaining
		if take > space {
			take = space
		}

		shift := remaining - take
		chunk := byte((value >> uint(shift)) & ((1 << take) - 1))

		w.pbyte = (w.pbyte << take) | chunk
		w.pbyteLen += take
		remaining -= take

		if w.pbyteLen == 8 {
			w.buf.Grow(1)
			w.buf.MustWrite([]byte{w.pbyte})
			w.pbyte = 0
			w.pbyteLen = 0
		}
	}

	return nil
}

// WriteMissing appends n bits of the all-ones missing sentinel.
func (w *Writer) WriteMissing(n int) error {
	if n <= 0 {
		return nil
	}
	if n >= 32 {
		return w.writeAllOnesWide(n)
	}

	return w.WriteBits((1<<uint(n))-1, n)
}

// writeAllOnesWide handles n in (31, 32] where a uint32 literal mask would
// overflow the shift.
func (w *Writer) writeAllOnesWide(n int) error {
	for n > 0 {
		chunk := 24
		if n < chunk {
			chunk = n
		}
		if err := w.WriteBits((1<<uint(chunk))-1, chunk); err != nil {
			return err
		}
		n -= chunk
	}

	return nil
}

// WriteString emits text's bytes then space-pads to floor(nBits/8) bytes. If
// nBits is not a multiple of 8, the trailing partial byte is zero-padded
// rather than bit-packed, matching the reference decoder's handling of this
// degenerate layout.
func (w *Writer) WriteString(text string, nBits int) error {
	if nBits <= 0 {
		return nil
	}

	nBytes := nBits / 8
	tail := nBits % 8

	b := []byte(text)
	for i := 0; i < nBytes; i++ {
		c := byte(' ')
		if i < len(b) {
			c = b[i]
		}
		if err := w.WriteBits(uint32(c), 8); err != nil {
			return err
		}
	}

	if tail > 0 {
		if err := w.WriteBits(0, tail); err != nil {
			return err
		}
	}

	return nil
}

// RawAppend appends whole bytes directly, bypassing the partial-byte cursor.
// The writer must be byte-aligned (call Flush first) before using this.
func (w *Writer) RawAppend(b []byte) {
	w.buf.Grow(len(b))
	w.buf.MustWrite(b)
}

// Flush zero-pads and emits any in-flight partial byte, leaving the writer
// byte-aligned. It is a no-op if already aligned.
func (w *Writer) Flush() {
	if w.pbyteLen == 0 {
		return
	}

	w.pbyte <<= uint(8 - w.pbyteLen)
	w.buf.Grow(1)
	w.buf.MustWrite([]byte{w.pbyte})
	w.pbyte = 0
	w.pbyteLen = 0
}

// Bytes returns the accumulated output. Flush must be called first if the
// caller needs the trailing partial byte included.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// BitLen returns the number of whole bits written so far, including any
// in-flight partial byte.
func (w *Writer) BitLen() int {
	return w.buf.Len()*8 + w.pbyteLen
}

// Aligned reports whether the writer is currently at a byte boundary.
func (w *Writer) Aligned() bool {
	return w.pbyteLen == 0
}
