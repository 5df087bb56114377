package compress

// ZstdCompressor favors compression ratio over speed, best suited to
// section 2 payloads that are archived or transmitted over constrained
// links rather than decompressed on a hot path.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
