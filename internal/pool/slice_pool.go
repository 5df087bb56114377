package pool

import "sync"

// Slice pools for the scratch buffers CompressedEncoder.writeColumn fills
// once per element while transforming a row-based subset list into one
// base+diffbits+deltas column.
var (
	uint32SlicePool = sync.Pool{
		New: func() any { return &[]uint32{} },
	}
	boolSlicePool = sync.Pool{
		New: func() any { return &[]bool{} },
	}
)

// GetUint32Slice retrieves a uint32 slice of length size from the pool. The
// caller must call the returned cleanup function (typically via defer) to
// return the slice.
func GetUint32Slice(size int) ([]uint32, func()) {
	ptr, _ := uint32SlicePool.Get().(*[]uint32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]uint32, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { uint32SlicePool.Put(ptr) }
}

// GetBoolSlice retrieves a bool slice of length size from the pool, zeroed.
// The caller must call the returned cleanup function to return the slice.
func GetBoolSlice(size int) ([]bool, func()) {
	ptr, _ := boolSlicePool.Get().(*[]bool)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]bool, size)
	} else {
		slice = slice[:size]
		for i := range slice {
			slice[i] = false
		}
	}
	*ptr = slice

	return slice, func() { boolSlicePool.Put(ptr) }
}
