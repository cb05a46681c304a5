package pathhelper

import (
	"io"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/stream"
)

// DataSlice wraps any stream.Stream to expose a fixed [start, end) window
// as its own independently-seekable, independently-sized stream (§4.9),
// without constructing a DATA_RANGE path spec — useful for a caller that
// already holds an open stream and just wants a sub-view of it (the
// searcher's preview reads, a carved fragment's bounds check).
type DataSlice struct {
	parent     stream.Stream
	start, end int64
	cursor     int64
}

// NewDataSlice returns a DataSlice over parent's [start, end) byte range.
// NewDataSlice does not move parent; each Read seeks parent to the slice's
// current position first, so parent is left wherever the last Read put it.
// DataSlice never closes parent.
func NewDataSlice(parent stream.Stream, start, end int64) (*DataSlice, error) {
	if start < 0 || end < start {
		return nil, errs.InvalidData("invalid slice bounds [%d, %d)", start, end)
	}
	size, err := parent.Size()
	if err != nil {
		return nil, err
	}
	if end > size {
		end = size
	}
	if start > size {
		start = size
	}
	return &DataSlice{parent: parent, start: start, end: end}, nil
}

func (d *DataSlice) Size() (int64, error) { return d.end - d.start, nil }

func (d *DataSlice) Offset() int64 { return d.cursor }

func (d *DataSlice) Read(p []byte) (int, error) {
	remaining := (d.end - d.start) - d.cursor
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := d.parent.Seek(d.start+d.cursor, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := d.parent.Read(p)
	d.cursor += int64(n)
	return n, err
}

func (d *DataSlice) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.cursor + offset
	case io.SeekEnd:
		target = (d.end - d.start) + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	d.cursor = target
	return target, nil
}

// Close is a no-op: DataSlice does not own parent.
func (d *DataSlice) Close() error { return nil }

// ReadAt supports random access directly off parent's own ReadAt, when
// parent offers one, avoiding the Seek+Read pair's shared-cursor races
// under concurrent callers.
func (d *DataSlice) ReadAt(p []byte, off int64) (int, error) {
	ra, ok := d.parent.(io.ReaderAt)
	if !ok {
		return 0, errs.InvalidData("parent stream is not random-access")
	}
	remaining := (d.end - d.start) - off
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	return ra.ReadAt(p, d.start+off)
}
