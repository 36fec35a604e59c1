package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

/*
Zstd wraps another codec and compresses its output.

Payloads at or below MinSize bytes are stored uncompressed, because zstd framing
costs more than it saves on tiny values. A one-byte marker in front of every
payload records which form was written, so the threshold can change between runs.
*/
type Zstd[T any] struct {
	inner   Codec[T]
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	MinSize int
}

const (
	markerRaw  byte = 0
	markerZstd byte = 1
)

// DefaultMinSize is the compression threshold used by NewZstd.
const DefaultMinSize = 1024

// NewZstd builds a compressing codec. level follows zstd's 1-22 scale; 0 picks the library default.
func NewZstd[T any](inner Codec[T], level int) (*Zstd[T], error) {
	opts := []zstd.EOption{}
	if level > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Zstd[T]{inner: inner, encoder: enc, decoder: dec, MinSize: DefaultMinSize}, nil
}

func (z *Zstd[T]) Encode(v T) ([]byte, error) {
	raw, err := z.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if len(raw) > z.MinSize {
		compressed := z.encoder.EncodeAll(raw, []byte{markerZstd})
		// Only keep compression if it actually reduces size.
		if len(compressed) < len(raw)+1 {
			return compressed, nil
		}
	}
	return append([]byte{markerRaw}, raw...), nil
}

func (z *Zstd[T]) Decode(data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, decodeErr(fmt.Errorf("empty payload"))
	}
	switch data[0] {
	case markerRaw:
		return z.inner.Decode(data[1:])
	case markerZstd:
		raw, err := z.decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return zero, decodeErr(err)
		}
		return z.inner.Decode(raw)
	default:
		return zero, decodeErr(fmt.Errorf("unknown payload marker %#x", data[0]))
	}
}

// Close releases the encoder and decoder goroutines.
func (z *Zstd[T]) Close() {
	z.encoder.Close()
	z.decoder.Close()
}
