// Package compress provides optional compression codecs for the optional
// section (section 2) of a BUFR message.
//
// Section 2's payload is opaque, centre-defined local-use data; this
// package lets a caller compress it before it goes on the wire and
// decompress it again on read, independent of the bit-packed data section
// itself. Supported algorithms:
//   - None: no compression
//   - Zstd: best ratio, moderate speed, good for archival
//   - S2: balanced speed and ratio
//   - LZ4: fastest decompression
//
// The package defines three interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// GetCodec/CreateCodec resolve a format.CompressionType to a built-in Codec.
// Callers with their own algorithm can implement Codec directly and pass it
// to bufrio.WithSection2Codec/WithSection2Compression instead.
package compress
