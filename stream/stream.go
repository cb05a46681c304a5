// Package stream defines the byte-stream contract (§3, §4.4) and its
// transforms: a polymorphic, seekable view over a single composed chain of
// range windows, encodings, compression, and encryption.
package stream

import "io"

// Stream is the polymorphic byte-stream contract. Open is performed by the
// resolver helper that constructs a Stream (a ResolverHelper's
// NewFileObject already returns one open and positioned at 0); Close
// releases whatever the helper acquired from its parent.
//
// Size is known once the stream is open. Read returns up to len(p) bytes,
// 0 at EOF. Seek past Size is legal; it does not extend Size, and a
// subsequent Read at or beyond Size returns (0, io.EOF).
type Stream interface {
	io.Reader
	io.Seeker
	io.Closer

	// Size returns the stream's total length in bytes. For formats that
	// don't store their decompressed size up front, the first call may
	// perform a one-pass scan; the result is memoized.
	Size() (int64, error)

	// Offset returns the current read position.
	Offset() int64
}

// ReadAtStream is satisfied by streams whose parent supports efficient
// random access (DATA_RANGE, OS regular files); transforms that must
// replay sequentially (RC4, single-pass compressors without a rebuilt
// checkpoint index) do not implement it, and neither do the ENCRYPTED
// streams.
type ReadAtStream interface {
	Stream
	io.ReaderAt
}
