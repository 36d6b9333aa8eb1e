package codec

import (
	"bytes"
	"image"

	nativewebp "github.com/HugoSmits86/nativewebp"
	xwebp "golang.org/x/image/webp"
)

// StdlibWebP decodes webp via golang.org/x/image/webp, the
// extended-stdlib decoder exercised in deepteams-webp's benchmark
// harness as the baseline comparison point.
func StdlibWebP(b []byte) (image.Image, error) {
	return xwebp.Decode(bytes.NewReader(b))
}

// NativeWebP decodes webp via github.com/HugoSmits86/nativewebp, a
// pure-Go (no cgo) decoder -- preferred over the cgo-based
// chai2010/webp and gen2brain/webp when the build must stay
// cgo-free, per the benchmark harness's own "skip CGo-based
// libraries" note.
func NativeWebP(b []byte) (image.Image, error) {
	return nativewebp.Decode(bytes.NewReader(b))
}
