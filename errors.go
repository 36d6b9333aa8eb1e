package imgrec

import "errors"

// Sentinel errors for the taxonomy in the error handling design: every
// failure the pipeline can produce is classifiable via errors.Is against
// one of these.
var (
	// ErrConfig indicates a configuration error detected at construction.
	ErrConfig = errors.New("imgrec: configuration error")

	// ErrIO indicates the archive or list file could not be opened or read.
	ErrIO = errors.New("imgrec: i/o error")

	// ErrFraming indicates a magic mismatch or truncated record.
	ErrFraming = errors.New("imgrec: framing error")

	// ErrFormat indicates a malformed list line or a label missing for an
	// index referenced by the archive.
	ErrFormat = errors.New("imgrec: format error")

	// ErrDecode indicates the codec rejected payload bytes.
	ErrDecode = errors.New("imgrec: decode error")

	// ErrEnvironment indicates a required codec capability is absent from
	// the build (e.g. no decoder registered for a format).
	ErrEnvironment = errors.New("imgrec: environment error")

	// ErrLabelNotFound indicates find() was called with an index absent
	// from the label side-table. Such errors also match ErrFormat.
	ErrLabelNotFound = errors.New("imgrec: label not found for index")

	// ErrEndOfStream is not returned by this package: the record source
	// signals an exhausted shard with io.EOF, and the Prefetcher and
	// Iterator report end of stream as a false result.
	ErrEndOfStream = errors.New("imgrec: end of stream")
)
