package imgrec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// PayloadCodec names the compression applied to a record's payload
// bytes (the compressed-image portion, after the header label). Chunk
// framing and CRC coverage are unaffected by the choice -- compression
// is a transform on the bytes parseRecordAt already extracted.
type PayloadCodec byte

const (
	// CodecNone stores image bytes uncompressed, the archive format's
	// default (spec.md §6 names no compression at all; this is the
	// SPEC_FULL-added optional layer, off by default).
	CodecNone PayloadCodec = iota
	CodecZstd
	CodecLZ4
)

// PayloadTransform compresses on write and decompresses on read. The
// tests use Compress to build compressed payloads; the Parser itself
// only ever decompresses, via Decompress.
type PayloadTransform struct {
	Codec PayloadCodec
}

// Compress returns b transformed per t.Codec. CodecNone returns b
// unchanged (no copy).
func (t PayloadTransform) Compress(b []byte) ([]byte, error) {
	switch t.Codec {
	case CodecNone:
		return b, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd encoder: %v", ErrEnvironment, err)
		}
		defer enc.Close()
		return enc.EncodeAll(b, nil), nil
	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, fmt.Errorf("%w: lz4 encode: %v", ErrEnvironment, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: lz4 encode: %v", ErrEnvironment, err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unknown payload codec %d", ErrConfig, t.Codec)
	}
}

// Decompress reverses Compress.
func (t PayloadTransform) Decompress(b []byte) ([]byte, error) {
	switch t.Codec {
	case CodecNone:
		return b, nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd decoder: %v", ErrEnvironment, err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd decode: %v", ErrDecode, err)
		}
		return out, nil
	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(b))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4 decode: %v", ErrDecode, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown payload codec %d", ErrConfig, t.Codec)
	}
}

// compressingDecoder wraps a Decoder, transparently decompressing the
// payload bytes before handing them to the underlying image codec.
// This is how ParserConfig.PayloadCodec (when non-zero) gets exercised
// without the Parser itself knowing about compression.
type compressingDecoder struct {
	inner Decoder
	xform PayloadTransform
}

// WrapCompressed composes inner with the payload transform for codec,
// returning inner unchanged when codec is CodecNone.
func WrapCompressed(inner Decoder, codec PayloadCodec) Decoder {
	if codec == CodecNone {
		return inner
	}
	return compressingDecoder{inner: inner, xform: PayloadTransform{Codec: codec}}
}

func (d compressingDecoder) Decode(compressed []byte) (DecodedImage, error) {
	raw, err := d.xform.Decompress(compressed)
	if err != nil {
		return DecodedImage{}, err
	}
	return d.inner.Decode(raw)
}
