package imgrec

import "math/rand"

// DecodedImage is the dense HWC matrix a Decoder produces: one byte per
// channel sample, BGR-interleaved order for 3-channel images (the
// "conventional native codec library" ordering spec.md §6 assumes),
// single-band for grayscale.
type DecodedImage struct {
	Height   int
	Width    int
	Channels int // 1 or 3
	Pix      []byte
}

// Decoder is the external image-codec collaborator: it turns compressed
// bytes into a dense HWC matrix. The core package only depends on this
// interface -- concrete decoders live in the codec subpackage and are
// passed to NewParser.
type Decoder interface {
	Decode(compressed []byte) (DecodedImage, error)
}

// Augmenter is the external augmentation collaborator: a stochastic
// geometric/photometric transform over a decoded image, drawing only
// from the *rng passed to it. One Augmenter instance and one *rand.Rand
// are owned per worker, per spec.md §5.
type Augmenter interface {
	Process(img DecodedImage, rng *rand.Rand) (DecodedImage, error)
}

// IdentityAugmenter returns its input unchanged. It is the default used
// when no Augmenter is configured, and exists so the core package and
// its tests have a zero-dependency stand-in for the real collaborator.
type IdentityAugmenter struct{}

func (IdentityAugmenter) Process(img DecodedImage, _ *rand.Rand) (DecodedImage, error) {
	return img, nil
}
