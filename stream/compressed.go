package stream

import (
	"bufio"
	"compress/flate"
	"io"

	dcbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/layerfs/layerfs/internal/errs"
)

// CompressionMethod names the algorithms a COMPRESSED_STREAM may declare.
type CompressionMethod string

const (
	Bzip2      CompressionMethod = "bzip2"
	Gzip       CompressionMethod = "gzip"
	Lzma       CompressionMethod = "lzma"
	Xz         CompressionMethod = "xz"
	Zlib       CompressionMethod = "zlib"
	DeflateRaw CompressionMethod = "deflate"
)

// checkpointInterval is how often (in decoded bytes) Compressed records a
// decoded-offset -> encoded-offset checkpoint during sequential reads.
// Seeks backwards, or beyond the highest recorded checkpoint, replay the
// decoder from the nearest earlier checkpoint instead of from the start.
const checkpointInterval = 1 << 20

type checkpoint struct {
	decoded int64
	encoded int64
}

// Compressed presents the on-the-fly decompression of its parent, method
// one of {bzip2, gzip, lzma, xz, zlib, deflate (raw)}. Size is the
// decompressed length; for formats that don't store it, it is determined
// by a one-pass scan at first query and memoized.
type Compressed struct {
	parent  Stream
	method  CompressionMethod
	decoder io.Reader

	cursor      int64 // current decoded offset
	checkpoints []checkpoint

	size      int64
	sizeKnown bool
}

// NewCompressed wraps parent with on-the-fly decompression under method.
func NewCompressed(parent Stream, method CompressionMethod) (*Compressed, error) {
	c := &Compressed{parent: parent, method: method}
	if err := c.restartFrom(checkpoint{decoded: 0, encoded: 0}); err != nil {
		return nil, err
	}
	return c, nil
}

func newDecoder(method CompressionMethod, r io.Reader) (io.Reader, error) {
	switch method {
	case Gzip:
		return gzip.NewReader(r)
	case Zlib:
		return zlib.NewReader(r)
	case DeflateRaw:
		return flate.NewReader(r), nil
	case Bzip2:
		return dcbzip2.NewReader(r, nil)
	case Xz:
		return xz.NewReader(bufio.NewReader(r))
	case Lzma:
		return lzma.NewReader(bufio.NewReader(r))
	default:
		return nil, errs.InvalidData("unsupported compression method %q", method)
	}
}

func (c *Compressed) restartFrom(cp checkpoint) error {
	if _, err := c.parent.Seek(cp.encoded, io.SeekStart); err != nil {
		return err
	}
	dec, err := newDecoder(c.method, c.parent)
	if err != nil {
		return errs.InvalidData("opening %s decoder: %v", c.method, err)
	}
	c.decoder = dec
	c.cursor = cp.decoded
	if len(c.checkpoints) == 0 || c.checkpoints[len(c.checkpoints)-1].decoded > cp.decoded {
		c.checkpoints = []checkpoint{cp}
	}
	return nil
}

// nearestCheckpoint returns the highest recorded checkpoint at or before
// target.
func (c *Compressed) nearestCheckpoint(target int64) checkpoint {
	best := checkpoint{decoded: 0, encoded: 0}
	for _, cp := range c.checkpoints {
		if cp.decoded <= target && cp.decoded >= best.decoded {
			best = cp
		}
	}
	return best
}

func (c *Compressed) Offset() int64 { return c.cursor }

// Size returns the decompressed length, scanning to EOF once if the
// format doesn't store it up front.
func (c *Compressed) Size() (int64, error) {
	if c.sizeKnown {
		return c.size, nil
	}

	savedCursor := c.cursor
	if err := c.restartFrom(checkpoint{decoded: 0, encoded: 0}); err != nil {
		return 0, err
	}
	var total int64
	buf := make([]byte, 256*1024)
	for {
		n, err := c.readAndCheckpoint(buf)
		total += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	c.size = total
	c.sizeKnown = true

	if _, err := c.Seek(savedCursor, io.SeekStart); err != nil {
		return 0, err
	}
	return c.size, nil
}

func (c *Compressed) readAndCheckpoint(p []byte) (int, error) {
	n, err := c.decoder.Read(p)
	c.cursor += int64(n)
	if pos := c.parent.Offset(); c.cursor/checkpointInterval > c.lastCheckpointBucket() {
		c.checkpoints = append(c.checkpoints, checkpoint{decoded: c.cursor, encoded: pos})
	}
	return n, err
}

func (c *Compressed) lastCheckpointBucket() int64 {
	if len(c.checkpoints) == 0 {
		return -1
	}
	return c.checkpoints[len(c.checkpoints)-1].decoded / checkpointInterval
}

func (c *Compressed) Read(p []byte) (int, error) {
	return c.readAndCheckpoint(p)
}

// Seek repositions the decoded offset. Forward seeks within the current
// decoder are satisfied by discarding bytes; backward seeks, or seeks
// beyond the highest checkpoint, replay from the nearest earlier
// checkpoint.
func (c *Compressed) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = c.cursor + offset
	case io.SeekEnd:
		if !c.sizeKnown {
			return 0, errs.InvalidData("seek from end requires a known size; call Size first")
		}
		target = c.size + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}

	if target >= c.cursor {
		if err := c.discard(target - c.cursor); err != nil && err != io.EOF {
			return 0, err
		}
		return target, nil
	}

	cp := c.nearestCheckpoint(target)
	if err := c.restartFrom(cp); err != nil {
		return 0, err
	}
	if err := c.discard(target - c.cursor); err != nil && err != io.EOF {
		return 0, err
	}
	return target, nil
}

func (c *Compressed) discard(n int64) error {
	buf := make([]byte, 64*1024)
	for n > 0 {
		chunk := int64(len(buf))
		if n < chunk {
			chunk = n
		}
		read, err := c.readAndCheckpoint(buf[:chunk])
		n -= int64(read)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Compressed) Close() error {
	if closer, ok := c.decoder.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
