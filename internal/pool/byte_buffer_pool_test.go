package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ByteBuffer Tests
// =============================================================================

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, capacity, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Bytes(t *testing.T) {
	bb := NewByteBuffer(MessageBufferDefaultSize)
	bb.B = append(bb.B, []byte("hello")...)

	got := bb.Bytes()

	assert.Equal(t, []byte("hello"), got)
	// Should return the same underlying slice
	assert.True(t, &bb.B[0] == &got[0], "Bytes() should return the same underlying slice")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(MessageBufferDefaultSize)
	bb.B = append(bb.B, []byte("some data")...)
	oldCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, oldCap, bb.Cap(), "Reset should retain allocated memory")
}

func TestByteBuffer_MustWrite(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte("BUFR"))
	bb.MustWrite([]byte("7777"))

	assert.Equal(t, []byte("BUFR7777"), bb.Bytes())
	assert.Equal(t, 8, bb.Len())
}

func TestByteBuffer_SliceAndSetLength(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte{1, 2, 3, 4})

	assert.Equal(t, []byte{2, 3}, bb.Slice(1, 3))

	bb.SetLength(2)
	assert.Equal(t, []byte{1, 2}, bb.Bytes())

	assert.Panics(t, func() { bb.Slice(-1, 2) })
	assert.Panics(t, func() { bb.SetLength(cap(bb.B) + 1) })
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(8)

	require.True(t, bb.Extend(8), "extend within capacity should succeed")
	assert.Equal(t, 8, bb.Len())

	assert.False(t, bb.Extend(1), "extend beyond capacity should fail")

	bb.ExtendOrGrow(8)
	assert.Equal(t, 16, bb.Len(), "ExtendOrGrow should grow past capacity")
}

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte{1, 2, 3, 4})

	bb.Grow(100)

	assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), 100, "Grow must guarantee the requested headroom")
	assert.Equal(t, []byte{1, 2, 3, 4}, bb.Bytes(), "Grow must preserve existing content")
}

func TestByteBuffer_GrowNoOpWhenRoomy(t *testing.T) {
	bb := NewByteBuffer(64)
	before := cap(bb.B)

	bb.Grow(16)

	assert.Equal(t, before, cap(bb.B), "Grow with sufficient capacity should not reallocate")
}

func TestByteBuffer_WriteAndWriteTo(t *testing.T) {
	bb := NewByteBuffer(4)

	n, err := bb.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	var out bytes.Buffer
	written, err := bb.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(6), written)
	assert.Equal(t, "abcdef", out.String())
}

// =============================================================================
// ByteBufferPool Tests
// =============================================================================

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(128, 0)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("payload"))
	p.Put(bb)

	reused := p.Get()
	assert.Equal(t, 0, reused.Len(), "pooled buffer must come back reset")
}

func TestByteBufferPool_PutNil(t *testing.T) {
	p := NewByteBufferPool(128, 0)

	assert.NotPanics(t, func() { p.Put(nil) })
}

func TestByteBufferPool_DiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := p.Get()
	bb.Grow(1024)
	grownCap := cap(bb.B)
	p.Put(bb)

	next := p.Get()
	assert.Less(t, cap(next.B), grownCap, "oversized buffer should not be retained")
}

func TestMessageBufferPool(t *testing.T) {
	bb := GetMessageBuffer()
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.GreaterOrEqual(t, cap(bb.B), MessageBufferDefaultSize)

	bb.MustWrite([]byte("BUFR"))
	PutMessageBuffer(bb)

	reused := GetMessageBuffer()
	assert.Equal(t, 0, reused.Len())
	PutMessageBuffer(reused)
}

func TestByteBufferPool_Concurrency(t *testing.T) {
	p := NewByteBufferPool(64, MessageBufferMaxThreshold)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				bb := p.Get()
				bb.MustWrite([]byte{byte(j), byte(j >> 8)})
				p.Put(bb)
			}
		}()
	}
	wg.Wait()
}
