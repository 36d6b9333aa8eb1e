// Package codec provides concrete Decoder implementations for the
// imgrec.Decoder contract. The core imgrec package only depends on the
// interface (spec.md §1: "only its invocation contract is specified");
// this package supplies adapters over the stdlib image codecs plus the
// webp family exercised by the deepteams-webp benchmark harness.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	imgrec "github.com/recordio/imgrec"
)

// Format names a decodable image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Registry dispatches Decode to a per-format decoder selected by magic
// sniffing, mirroring OpenCV's cv::imdecode(-1) "detect from bytes"
// behavior that original_source relies on.
type Registry struct {
	decoders map[Format]imageDecodeFunc
	order    []Format
}

type imageDecodeFunc func([]byte) (image.Image, error)

// NewRegistry builds a Registry with the stdlib jpeg/png decoders and,
// when webpDecoder is non-nil, a webp entry. Callers choose the webp
// implementation (StdlibWebP or NativeWebP in webp.go); the registry itself
// stays decoder-agnostic.
func NewRegistry(webp imageDecodeFunc) *Registry {
	r := &Registry{decoders: make(map[Format]imageDecodeFunc)}
	r.register(FormatJPEG, decodeJPEG)
	r.register(FormatPNG, decodePNG)
	if webp != nil {
		r.register(FormatWebP, webp)
	}
	return r
}

func (r *Registry) register(f Format, fn imageDecodeFunc) {
	r.decoders[f] = fn
	r.order = append(r.order, f)
}

// Decode implements imgrec.Decoder: it sniffs the format from the
// compressed bytes' magic prefix and dispatches to the matching
// decoder, converting the result to imgrec's BGR-interleaved
// DecodedImage.
func (r *Registry) Decode(compressed []byte) (imgrec.DecodedImage, error) {
	format, err := sniff(compressed)
	if err != nil {
		return imgrec.DecodedImage{}, err
	}
	decode, ok := r.decoders[format]
	if !ok {
		return imgrec.DecodedImage{}, fmt.Errorf("%w: no decoder registered for %s", imgrec.ErrEnvironment, format)
	}
	img, err := decode(compressed)
	if err != nil {
		return imgrec.DecodedImage{}, fmt.Errorf("%w: %v", imgrec.ErrDecode, err)
	}
	return toDecodedImage(img), nil
}

func sniff(b []byte) (Format, error) {
	switch {
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FormatJPEG, nil
	case len(b) >= 8 && bytes.Equal(b[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return FormatPNG, nil
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("%w: unrecognized image magic", imgrec.ErrDecode)
	}
}

func decodeJPEG(b []byte) (image.Image, error) {
	return jpegDecode(bytes.NewReader(b))
}

func decodePNG(b []byte) (image.Image, error) {
	return pngDecode(bytes.NewReader(b))
}

// toDecodedImage converts a decoded image.Image into imgrec's BGR
// interleaved representation, collapsing to 1 channel when the decoder
// returned an *image.Gray. Every other image type, including
// *image.Gray16, becomes 3 channels.
func toDecodedImage(img image.Image) imgrec.DecodedImage {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()

	if _, gray := img.(*image.Gray); gray {
		pix := make([]byte, h*w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				pix[y*w+x] = byte(r >> 8)
			}
		}
		return imgrec.DecodedImage{Height: h, Width: w, Channels: 1, Pix: pix}
	}

	pix := make([]byte, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			o := (y*w + x) * 3
			pix[o+0] = c.B
			pix[o+1] = c.G
			pix[o+2] = c.R
		}
	}
	return imgrec.DecodedImage{Height: h, Width: w, Channels: 3, Pix: pix}
}
