package vfsmodel

import (
	"io"
	"os"

	"github.com/layerfs/layerfs/internal/errs"
)

// byteStream is a trivial in-memory Stream, used for extended-attribute
// values and other small, already-materialized payloads.
type byteStream struct {
	data   []byte
	cursor int64
}

func newByteStream(data []byte) *byteStream {
	return &byteStream{data: data}
}

func (b *byteStream) Read(p []byte) (int, error) {
	if b.cursor >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.cursor:])
	b.cursor += int64(n)
	return n, nil
}

func (b *byteStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.cursor + offset
	case io.SeekEnd:
		target = int64(len(b.data)) + offset
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	b.cursor = target
	return target, nil
}

func (b *byteStream) Close() error          { return nil }
func (b *byteStream) Size() (int64, error)  { return int64(len(b.data)), nil }
func (b *byteStream) Offset() int64         { return b.cursor }

// concatStream presents a list of host files, opened lazily one at a time,
// as a single contiguous Stream — the split-segment concatenation used by
// the RAW/OS glob.
type concatStream struct {
	paths  []string
	sizes  []int64
	total  int64
	cursor int64

	openIdx int
	openF   *os.File
}

func newConcatStream(paths []string) (*concatStream, error) {
	sizes := make([]int64, len(paths))
	var total int64
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errs.BackEndFailure(err)
		}
		sizes[i] = info.Size()
		total += info.Size()
	}
	return &concatStream{paths: paths, sizes: sizes, total: total, openIdx: -1}, nil
}

func (c *concatStream) segmentFor(offset int64) (idx int, within int64) {
	for i, sz := range c.sizes {
		if offset < sz {
			return i, offset
		}
		offset -= sz
	}
	return len(c.sizes), 0
}

func (c *concatStream) ensureOpen(idx int) error {
	if c.openIdx == idx && c.openF != nil {
		return nil
	}
	if c.openF != nil {
		c.openF.Close()
		c.openF = nil
	}
	if idx >= len(c.paths) {
		c.openIdx = idx
		return nil
	}
	f, err := os.Open(c.paths[idx])
	if err != nil {
		return errs.BackEndFailure(err)
	}
	c.openF = f
	c.openIdx = idx
	return nil
}

func (c *concatStream) Read(p []byte) (int, error) {
	if c.cursor >= c.total {
		return 0, io.EOF
	}
	idx, within := c.segmentFor(c.cursor)
	if err := c.ensureOpen(idx); err != nil {
		return 0, err
	}
	if _, err := c.openF.Seek(within, io.SeekStart); err != nil {
		return 0, errs.BackEndFailure(err)
	}

	remainInSegment := c.sizes[idx] - within
	if int64(len(p)) > remainInSegment {
		p = p[:remainInSegment]
	}
	n, err := c.openF.Read(p)
	c.cursor += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (c *concatStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = c.cursor + offset
	case io.SeekEnd:
		target = c.total + offset
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	c.cursor = target
	return target, nil
}

func (c *concatStream) Close() error {
	if c.openF != nil {
		return c.openF.Close()
	}
	return nil
}

func (c *concatStream) Size() (int64, error) { return c.total, nil }
func (c *concatStream) Offset() int64        { return c.cursor }
