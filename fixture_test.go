package imgrec

// Test-only archive writer synthesizing the S1-S6 scenario fixtures
// from spec.md §8, grounded on go/mcap/writer.go's chunk-writer
// pattern and go/mcap/testutils.go's fixture helpers: build up a byte
// buffer with putRecord and hand callers back a ready-made archive.

type fixtureRecord struct {
	index       uint64
	headerLabel float32
	compressed  []byte
}

// buildArchive serializes records back-to-back using putRecord,
// returning the full archive bytes.
func buildArchive(records []fixtureRecord) []byte {
	size := 0
	for _, r := range records {
		size += recordOnWireSize(len(r.compressed))
	}
	buf := make([]byte, size)
	off := 0
	for _, r := range records {
		off += putRecord(buf[off:], r.index, r.headerLabel, r.compressed)
	}
	return buf
}

// fakeImage returns a minimal "compressed" payload the fakeDecoder
// below recognizes: a one-byte tag plus a pixel body, avoiding any
// dependency on a real JPEG/PNG encoder in the test suite.
func fakeImage(tag byte, pix []byte) []byte {
	return append([]byte{tag}, pix...)
}

// fakeDecoder is a Decoder stand-in that turns fakeImage payloads
// straight back into a DecodedImage without touching a real image
// codec -- the codec subpackage is exercised separately, by tests
// local to it.
type fakeDecoder struct {
	channels int
	height   int
	width    int
}

func (d fakeDecoder) Decode(compressed []byte) (DecodedImage, error) {
	body := compressed[1:]
	return DecodedImage{
		Height:   d.height,
		Width:    d.width,
		Channels: d.channels,
		Pix:      body,
	}, nil
}
