package pathhelper

import (
	"io"
	"testing"

	"github.com/layerfs/layerfs/internal/errs"
)

// memStream is a minimal stream.Stream fixture backed by a byte slice,
// defined locally since the stream package exposes no exported in-memory
// constructor of its own.
type memStream struct {
	data   []byte
	cursor int64
}

func (m *memStream) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memStream) Offset() int64        { return m.cursor }
func (m *memStream) Close() error         { return nil }

func (m *memStream) Read(p []byte) (int, error) {
	if m.cursor >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.cursor:])
	m.cursor += int64(n)
	return n, nil
}

func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.cursor + offset
	case io.SeekEnd:
		target = int64(len(m.data)) + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	m.cursor = target
	return target, nil
}

func (m *memStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func TestDataSliceReadsWindow(t *testing.T) {
	parent := &memStream{data: []byte("0123456789abcdef")}
	slice, err := NewDataSlice(parent, 3, 8)
	if err != nil {
		t.Fatalf("NewDataSlice: %v", err)
	}
	size, err := slice.Size()
	if err != nil || size != 5 {
		t.Fatalf("Size() = %d, %v", size, err)
	}
	got, err := io.ReadAll(slice)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "34567" {
		t.Fatalf("got %q", got)
	}
}

func TestDataSliceClampsBounds(t *testing.T) {
	parent := &memStream{data: []byte("short")}
	slice, err := NewDataSlice(parent, 2, 100)
	if err != nil {
		t.Fatalf("NewDataSlice: %v", err)
	}
	size, err := slice.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 3 {
		t.Fatalf("size = %d, want 3", size)
	}
	got, err := io.ReadAll(slice)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "ort" {
		t.Fatalf("got %q", got)
	}
}

func TestDataSliceSeekAndReadAt(t *testing.T) {
	parent := &memStream{data: []byte("abcdefghijklmnop")}
	slice, err := NewDataSlice(parent, 4, 12)
	if err != nil {
		t.Fatalf("NewDataSlice: %v", err)
	}

	if _, err := slice.Seek(2, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 3)
	n, err := slice.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "ghi" {
		t.Fatalf("got %q", buf[:n])
	}

	rbuf := make([]byte, 4)
	n, err = slice.ReadAt(rbuf, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(rbuf[:n]) != "efgh" {
		t.Fatalf("got %q", rbuf[:n])
	}
}

func TestDataSliceInvalidBounds(t *testing.T) {
	parent := &memStream{data: []byte("abc")}
	if _, err := NewDataSlice(parent, 5, 2); err == nil {
		t.Fatal("expected an error for end before start")
	}
}
