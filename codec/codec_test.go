package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRegistryDecodesJPEG(t *testing.T) {
	src := solidRGBA(4, 4, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	b := encodeJPEG(t, src)

	r := NewRegistry(nil)
	out, err := r.Decode(b)
	require.NoError(t, err)
	require.Equal(t, 4, out.Width)
	require.Equal(t, 4, out.Height)
	require.Equal(t, 3, out.Channels)
}

func TestRegistryDecodesPNG(t *testing.T) {
	src := solidRGBA(2, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	b := encodePNG(t, src)

	r := NewRegistry(nil)
	out, err := r.Decode(b)
	require.NoError(t, err)
	require.Equal(t, 2, out.Width)
	require.Equal(t, 2, out.Height)
	require.Equal(t, 3, out.Channels)
}

func TestRegistryDecodesGrayPNGAsSingleChannel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	b := encodePNG(t, img)

	r := NewRegistry(nil)
	out, err := r.Decode(b)
	require.NoError(t, err)
	require.Equal(t, 1, out.Channels)
	require.Len(t, out.Pix, 4)
}

func TestRegistryRejectsUnrecognizedMagic(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Decode([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

func TestRegistryWithoutWebpDecoderRejectsWebp(t *testing.T) {
	r := NewRegistry(nil)
	riff := append([]byte("RIFF"), []byte{0, 0, 0, 0}...)
	riff = append(riff, []byte("WEBP")...)
	_, err := r.Decode(riff)
	require.Error(t, err)
}

func TestBGRChannelOrdering(t *testing.T) {
	src := solidRGBA(1, 1, color.RGBA{R: 3, G: 2, B: 1, A: 255})
	b := encodePNG(t, src)

	r := NewRegistry(nil)
	out, err := r.Decode(b)
	require.NoError(t, err)
	require.Equal(t, byte(1), out.Pix[0]) // B
	require.Equal(t, byte(2), out.Pix[1]) // G
	require.Equal(t, byte(3), out.Pix[2]) // R
}
