package stream

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/layerfs/layerfs/internal/errs"
)

// GzipStream is the GZIP path-spec type's stream: the concatenation of a
// multi-member gzip file's decompressed members. klauspost/compress/gzip's
// Reader defaults to Multistream(true), so the underlying Compressed
// transform with method Gzip already presents exactly this concatenation;
// GZIP is kept as a distinct spec type from COMPRESSED_STREAM{gzip} because
// it additionally indexes member boundaries for callers that care where
// one member ends and the next begins.
type GzipStream struct {
	*Compressed
	memberBoundaries []int64
	boundariesDone   bool
}

// NewGzipStream wraps parent as a GZIP stream.
func NewGzipStream(parent Stream) (*GzipStream, error) {
	c, err := NewCompressed(parent, Gzip)
	if err != nil {
		return nil, err
	}
	return &GzipStream{Compressed: c}, nil
}

// MemberBoundaries returns the decoded offset at which each gzip member
// after the first begins, scanning the parent stream once, independently
// of Size's own decode pass, the first time it is called.
func (g *GzipStream) MemberBoundaries() ([]int64, error) {
	if g.boundariesDone {
		return g.memberBoundaries, nil
	}
	bounds, err := gzipMemberBoundaries(g.Compressed.parent)
	if err != nil {
		return nil, err
	}
	g.memberBoundaries = bounds
	g.boundariesDone = true
	return g.memberBoundaries, nil
}

// gzipMemberBoundaries reads parent from the start with Multistream(false)
// on each member, so the underlying reader stops at each member's trailer
// instead of transparently chaining into the next one, and records the
// decoded offset at which every member after the first starts. It restores
// parent's read position before returning.
func gzipMemberBoundaries(parent Stream) ([]int64, error) {
	saved := parent.Offset()
	if _, err := parent.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	defer parent.Seek(saved, io.SeekStart)

	// One shared buffered reader: gzip.NewReader wraps a plain reader in a
	// fresh bufio.Reader of its own, whose read-ahead past a member's end
	// would be lost to the next member's reader.
	br := bufio.NewReader(parent)
	var bounds []int64
	var decoded int64
	first := true
	for {
		r, err := gzip.NewReader(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.InvalidData("opening gzip member: %v", err)
		}
		r.Multistream(false)
		if !first {
			bounds = append(bounds, decoded)
		}
		first = false

		n, err := io.Copy(io.Discard, r)
		decoded += n
		if err != nil && err != io.EOF {
			r.Close()
			return nil, err
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
	}
	return bounds, nil
}
