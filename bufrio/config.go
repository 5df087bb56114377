package bufrio

import (
	"github.com/metaffric/bufr/codec"
	"github.com/metaffric/bufr/compress"
)

type decodeConfig struct {
	conv          codec.UnitConverter
	section2Codec compress.Codec
	subsetCap     int
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

// WithDecodeUnitConverter installs a unit-conversion collaborator for F=0
// values; the default performs no conversion.
func WithDecodeUnitConverter(conv codec.UnitConverter) DecodeOption {
	return func(c *decodeConfig) { c.conv = conv }
}

// WithSection2Codec decompresses section 2's local-use payload through
// codec before returning it on Bulletin.Section2. The default leaves the
// payload as the raw bytes found on the wire.
func WithSection2Codec(codec compress.Codec) DecodeOption {
	return func(c *decodeConfig) { c.section2Codec = codec }
}

// WithSubsetCapacityHint pre-sizes each decoded Subset's variable slice,
// avoiding reallocation for messages with many top-level elements.
func WithSubsetCapacityHint(n int) DecodeOption {
	return func(c *decodeConfig) { c.subsetCap = n }
}

func newDecodeConfig(opts []DecodeOption) *decodeConfig {
	c := &decodeConfig{subsetCap: 16}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type encodeConfig struct {
	conv          codec.UnitConverter
	section2Codec compress.Codec
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeConfig)

// WithEncodeUnitConverter installs a unit-conversion collaborator for F=0
// values; the default performs no conversion.
func WithEncodeUnitConverter(conv codec.UnitConverter) EncodeOption {
	return func(c *encodeConfig) { c.conv = conv }
}

// WithSection2Compression compresses section 2's local-use payload through
// codec before writing it to the wire. The default writes the payload
// uncompressed.
func WithSection2Compression(codec compress.Codec) EncodeOption {
	return func(c *encodeConfig) { c.section2Codec = codec }
}

func newEncodeConfig(opts []EncodeOption) *encodeConfig {
	c := &encodeConfig{}
	for _, opt := range opts {
		opt(c)
	}

	return c
}
