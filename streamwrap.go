// Package layerfs wires the concrete resolver and analyzer helpers for
// every type in the closed path-spec set into a backend.Registry, and
// exposes RegisterDefaults as the one call site that assembles a usable
// stack.
package layerfs

import (
	"github.com/layerfs/layerfs/stream"
)

// closingStream wraps a transform stream whose Close does not close its
// parent (DataRange, Compressed/Gzip, the encrypted-stream family) so a
// resolver helper can hand back one object that releases both on Close.
// Encoded is the only transform that doesn't need this: it fully
// materializes its parent's bytes at construction, so the helper closes
// the parent immediately after building it.
type closingStream struct {
	stream.Stream
	parent stream.Stream
}

func wrapClosing(s stream.Stream, parent stream.Stream) *closingStream {
	return &closingStream{Stream: s, parent: parent}
}

// Close closes the transform first (it may still need the parent mid-close
// for formats with trailers) and then the parent, returning the
// transform's error if both fail since that's closer to the caller's view
// of the stream.
func (c *closingStream) Close() error {
	err := c.Stream.Close()
	if perr := c.parent.Close(); err == nil {
		err = perr
	}
	return err
}
