package codec

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

func jpegDecode(r io.Reader) (image.Image, error) { return jpeg.Decode(r) }
func pngDecode(r io.Reader) (image.Image, error)  { return png.Decode(r) }
