package imgrec

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// ArchiveSource is the interface a Record Source Adapter needs over the
// archive bytes: random-access reads plus a known length. Grounded on
// mknyszek-goat's Source (io.ReaderAt + Len()) for its allocation-trace
// parser, which partitions the same way: byte-range shards resolved
// against self-synchronizing record boundaries.
type ArchiveSource interface {
	io.ReaderAt
	io.Closer
	Len() int64
}

// openArchive opens path for random-access reads. It prefers
// golang.org/x/exp/mmap so large archives are not copied into process
// memory; if mmap.Open fails (e.g. on a filesystem that doesn't support
// it), it falls back to a regular *os.File, logged once by the caller.
func openArchive(path string) (ArchiveSource, bool, error) {
	if r, err := mmap.Open(path); err == nil {
		return mmapSource{r}, true, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	return fileSource{f, info.Size()}, false, nil
}

type mmapSource struct{ r *mmap.ReaderAt }

func (m mmapSource) ReadAt(p []byte, off int64) (int, error) { return m.r.ReadAt(p, off) }
func (m mmapSource) Len() int64                              { return int64(m.r.Len()) }
func (m mmapSource) Close() error                             { return m.r.Close() }

type fileSource struct {
	f    *os.File
	size int64
}

func (s fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s fileSource) Len() int64                              { return s.size }
func (s fileSource) Close() error                             { return s.f.Close() }

// RecordSource presents one shard of an archive as a forward iterator of
// Chunks. It is the "Record Source Adapter" of spec.md §4.1.
type RecordSource struct {
	path       string
	archive    ArchiveSource
	usedMmap   bool
	chunkHint  int64
	shardStart int64
	shardEnd   int64
	cursor     int64
	log        Logger
}

// OpenRecordSource opens shard partIndex of numParts in the archive at
// path, hinting chunkHintBytes per chunk (0 selects the 8 MiB default).
// Every record in the archive is assigned to exactly one shard: shards
// partition the file into numParts contiguous byte ranges and each shard
// snaps its start to the first record boundary at or after its nominal
// range start, guaranteeing the partition covers the whole file exactly
// once (spec.md S3).
func OpenRecordSource(path string, partIndex, numParts int, chunkHintBytes int64, log Logger) (*RecordSource, error) {
	if log == nil {
		log = nopLogger{}
	}
	if numParts <= 0 {
		numParts = 1
	}
	if chunkHintBytes <= 0 {
		chunkHintBytes = 8 << 20
	}
	archive, usedMmap, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	size := archive.Len()
	nominalStart := size * int64(partIndex) / int64(numParts)
	nominalEnd := size * int64(partIndex+1) / int64(numParts)

	shardStart := nominalStart
	if partIndex > 0 {
		shardStart, err = snapToRecordBoundary(archive, nominalStart, size)
		if err != nil {
			archive.Close()
			return nil, err
		}
	}
	shardEnd := nominalEnd
	if partIndex+1 < numParts {
		shardEnd, err = snapToRecordBoundary(archive, nominalEnd, size)
		if err != nil {
			archive.Close()
			return nil, err
		}
	} else {
		shardEnd = size
	}

	if !usedMmap {
		log.Info("opened %s via plain file handle (mmap unavailable)", path)
	}
	log.Debugf("shard %d/%d covers bytes [%d, %d) of %s", partIndex, numParts, shardStart, shardEnd, path)

	return &RecordSource{
		path:       path,
		archive:    archive,
		usedMmap:   usedMmap,
		chunkHint:  chunkHintBytes,
		shardStart: shardStart,
		shardEnd:   shardEnd,
		cursor:     shardStart,
		log:        log,
	}, nil
}

// snapToRecordBoundary scans forward from `from` for the first offset
// that parses as a complete, CRC-valid record, returning that offset (or
// size if none is found before the end of the archive). This is the
// "self-synchronizing" resync mcap's lexer performs at chunk
// granularity, applied here at shard-boundary granularity.
func snapToRecordBoundary(archive ArchiveSource, from, size int64) (int64, error) {
	if from >= size {
		return size, nil
	}
	const probe = 1 << 20
	buf := make([]byte, probe)
	for pos := from; pos < size; {
		n, err := archive.ReadAt(buf, pos)
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%w: scanning for record boundary: %v", ErrIO, err)
		}
		window := buf[:n]
		for i := 0; i+4 <= len(window); i++ {
			if window[i] == recordMagic[0] && window[i+1] == recordMagic[1] &&
				window[i+2] == recordMagic[2] && window[i+3] == recordMagic[3] {
				candidate := pos + int64(i)
				if ok, _ := validateFullRecord(archive, candidate, size); ok {
					return candidate, nil
				}
			}
		}
		if n == 0 || pos+int64(n) >= size {
			break
		}
		pos += int64(n) - 3 // allow magic spanning the probe boundary
		if pos < from {
			pos = from
		}
	}
	return size, nil
}

// validateFullRecord attempts to validate a full record (header +
// payload + CRC) starting at off, reading only the bytes it needs. It
// returns whether off is a genuine record boundary and, if so, the
// total size of the record on the wire.
func validateFullRecord(archive ArchiveSource, off, size int64) (bool, int) {
	if off+recordHeaderSize > size {
		return false, 0
	}
	head := make([]byte, recordHeaderSize)
	if _, err := archive.ReadAt(head, off); err != nil && err != io.EOF {
		return false, 0
	}
	payloadLen := int64(binary.LittleEndian.Uint32(head[4:8]))
	total := recordHeaderSize + payloadLen + recordTrailerSize
	if off+total > size || total <= recordHeaderSize {
		return false, 0
	}
	buf := make([]byte, total)
	if _, err := archive.ReadAt(buf, off); err != nil && err != io.EOF {
		return false, 0
	}
	if _, _, err := parseRecordAt(buf, 0); err != nil {
		return false, 0
	}
	return true, int(total)
}

// NextChunk returns the next chunk in this shard, or (nil, io.EOF) once
// the shard is exhausted. The returned chunk never splits a record:
// the adapter reads at least chunkHint bytes but extends the read to
// cover whatever partial record trails the hint window.
func (s *RecordSource) NextChunk() (*Chunk, error) {
	if s.cursor >= s.shardEnd {
		return nil, io.EOF
	}
	want := s.chunkHint
	if s.cursor+want > s.shardEnd {
		want = s.shardEnd - s.cursor
	}
	buf := make([]byte, want)
	n, err := s.archive.ReadAt(buf, s.cursor)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: reading chunk at %d: %v", ErrIO, s.cursor, err)
	}
	buf = buf[:n]

	var offsets []int
	pos := 0
	for pos < len(buf) {
		ok, total := validateFullRecord(s.archive, s.cursor+int64(pos), s.shardEnd)
		if !ok {
			// The record at pos does not validate against the archive
			// (bad magic, bad CRC, or it runs past the shard end):
			// re-read the rest of the shard and validate once more
			// before reporting a framing error.
			if s.cursor+int64(pos) >= s.shardEnd {
				break
			}
			grown, gerr := s.growRead(s.cursor + int64(pos))
			if gerr != nil {
				return nil, gerr
			}
			buf = append(buf[:pos], grown...)
			ok, total = validateFullRecord(s.archive, s.cursor+int64(pos), s.shardEnd)
			if !ok {
				return nil, fmt.Errorf("%w: unparseable record at offset %d", ErrFraming, s.cursor+int64(pos))
			}
		}
		if end := pos + total; end > len(buf) {
			// The hint window ended mid-record: extend the read so the
			// record starting at pos is whole.
			extra := make([]byte, end-len(buf))
			if _, err := s.archive.ReadAt(extra, s.cursor+int64(len(buf))); err != nil && err != io.EOF {
				return nil, fmt.Errorf("%w: extending chunk read at %d: %v", ErrIO, s.cursor, err)
			}
			buf = append(buf, extra...)
		}
		offsets = append(offsets, pos)
		pos += total
	}

	chunk := &Chunk{data: buf[:pos], offsets: offsets}
	s.cursor += int64(pos)
	s.log.Debugf("chunk at shard offset %d: %d records, %d bytes", s.cursor-int64(pos), len(offsets), pos)
	return chunk, nil
}

// growRead re-reads from off through the remainder of the shard, used
// to re-check a record that failed validation.
func (s *RecordSource) growRead(off int64) ([]byte, error) {
	remaining := s.shardEnd - off
	buf := make([]byte, remaining)
	n, err := s.archive.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: growing chunk read at %d: %v", ErrIO, off, err)
	}
	return buf[:n], nil
}

// BeforeFirst rewinds this source to the start of its shard.
func (s *RecordSource) BeforeFirst() {
	s.cursor = s.shardStart
}

// Close releases the underlying archive handle.
func (s *RecordSource) Close() error {
	return s.archive.Close()
}
