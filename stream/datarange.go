package stream

import (
	"io"

	"github.com/layerfs/layerfs/internal/errs"
)

// DataRange presents a fixed [offset, offset+size) window over a parent
// stream as its own Stream. Reads are clipped to the window; Size is
// always range_size regardless of what lies beyond it in the parent.
type DataRange struct {
	parent Stream
	offset int64 // range_offset within the parent
	size   int64 // range_size
	cursor int64 // offset within this stream, [0, size]
}

// NewDataRange wraps parent with a DATA_RANGE window. The parent is not
// closed by DataRange.Close; the caller that opened parent owns it.
func NewDataRange(parent Stream, offset, size int64) (*DataRange, error) {
	if offset < 0 || size < 0 {
		return nil, errs.InvalidData("data range offset/size must be non-negative")
	}
	if _, err := parent.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return &DataRange{parent: parent, offset: offset, size: size}, nil
}

func (d *DataRange) Size() (int64, error) { return d.size, nil }
func (d *DataRange) Offset() int64        { return d.cursor }

func (d *DataRange) Read(p []byte) (int, error) {
	if d.cursor >= d.size {
		return 0, io.EOF
	}
	remaining := d.size - d.cursor
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := d.parent.Seek(d.offset+d.cursor, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := d.parent.Read(p)
	d.cursor += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (d *DataRange) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errs.InvalidData("negative ReadAt offset")
	}
	if off >= d.size {
		return 0, io.EOF
	}
	remaining := d.size - off
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := d.parent.Seek(d.offset+off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(d.parent, p)
}

func (d *DataRange) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.cursor + offset
	case io.SeekEnd:
		target = d.size + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	d.cursor = target
	return target, nil
}

func (d *DataRange) Close() error { return nil }
