package imgrec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

// recordMagic marks the start of every record. Grounded on go/mcap's
// lexer, which resyncs on a fixed magic sequence at chunk granularity;
// here the magic is a single 4-byte marker rather than mcap's 8-byte
// file magic, since records (not just files) need to self-synchronize.
var recordMagic = [4]byte{0xAE, 'R', 'E', 'C'}

// recordHeaderSize is the fixed-size framing header preceding the
// variable-length payload: magic(4) + payloadLen(4) + imageIndex(8).
const recordHeaderSize = 4 + 4 + 8

// recordTrailerSize is the CRC-32 (IEEE) of the payload, appended after
// it. Framing errors (truncated records, bad magic, bad CRC) are all
// fatal per the error handling design; the CRC is a diagnostic, not a
// recovery mechanism -- there is no skip-and-resync path.
const recordTrailerSize = 4

// payloadHeaderSize is the fixed header inside a record's payload: a
// float32 header label preceding the compressed image bytes.
const payloadHeaderSize = 4

// recordFrame is one parsed, framing-validated record lifted out of a
// chunk's byte range, still holding compressed image bytes.
type recordFrame struct {
	imageIndex   uint64
	headerLabel  float32
	compressed   []byte
	totalOnWire  int // bytes consumed from the chunk, header+payload+trailer
}

// parseRecordAt parses one record starting at offset off within buf.
// It returns the parsed frame and the offset of the next record.
func parseRecordAt(buf []byte, off int) (recordFrame, int, error) {
	if off+recordHeaderSize > len(buf) {
		return recordFrame{}, 0, fmt.Errorf("%w: truncated record header at offset %d", ErrFraming, off)
	}
	if buf[off] != recordMagic[0] || buf[off+1] != recordMagic[1] ||
		buf[off+2] != recordMagic[2] || buf[off+3] != recordMagic[3] {
		return recordFrame{}, 0, fmt.Errorf("%w: bad magic at offset %d", ErrFraming, off)
	}
	payloadLen := binary.LittleEndian.Uint32(buf[off+4 : off+8])
	imageIndex := binary.LittleEndian.Uint64(buf[off+8 : off+16])

	payloadStart := off + recordHeaderSize
	payloadEnd := payloadStart + int(payloadLen)
	trailerEnd := payloadEnd + recordTrailerSize
	if payloadLen > math.MaxInt32 || trailerEnd > len(buf) || payloadEnd < payloadStart {
		return recordFrame{}, 0, fmt.Errorf("%w: truncated record payload at offset %d (len %d)", ErrFraming, off, payloadLen)
	}
	if payloadLen < payloadHeaderSize {
		return recordFrame{}, 0, fmt.Errorf("%w: record payload shorter than label header at offset %d", ErrFraming, off)
	}

	payload := buf[payloadStart:payloadEnd]
	wantCRC := binary.LittleEndian.Uint32(buf[payloadEnd:trailerEnd])
	if gotCRC := crc32.ChecksumIEEE(payload); gotCRC != wantCRC {
		return recordFrame{}, 0, fmt.Errorf("%w: crc mismatch for record at offset %d", ErrFraming, off)
	}

	headerLabelBits := binary.LittleEndian.Uint32(payload[:payloadHeaderSize])
	frame := recordFrame{
		imageIndex:  imageIndex,
		headerLabel: math.Float32frombits(headerLabelBits),
		compressed:  payload[payloadHeaderSize:],
		totalOnWire: trailerEnd - off,
	}
	return frame, trailerEnd, nil
}

// putRecord serializes a record into dst (used by the test archive
// writer); it returns the number of bytes written.
func putRecord(dst []byte, imageIndex uint64, headerLabel float32, compressed []byte) int {
	off := 0
	copy(dst[off:], recordMagic[:])
	off += 4
	payloadLen := payloadHeaderSize + len(compressed)
	binary.LittleEndian.PutUint32(dst[off:], uint32(payloadLen))
	off += 4
	binary.LittleEndian.PutUint64(dst[off:], imageIndex)
	off += 8
	payloadStart := off
	binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(headerLabel))
	off += 4
	off += copy(dst[off:], compressed)
	binary.LittleEndian.PutUint32(dst[off:], crc32.ChecksumIEEE(dst[payloadStart:off]))
	off += 4
	return off
}

// recordOnWireSize returns the number of bytes a record with the given
// compressed payload occupies on the wire.
func recordOnWireSize(compressedLen int) int {
	return recordHeaderSize + payloadHeaderSize + compressedLen + recordTrailerSize
}
