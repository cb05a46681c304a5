package stream

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/layerfs/layerfs/internal/errs"
)

// memStream is a minimal Stream fixture backed by a byte slice.
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

func gzipMember(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(payload)); err != nil {
		t.Fatalf("writing gzip member: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing gzip member: %v", err)
	}
	return buf.Bytes()
}

func TestGzipSingleMemberHasNoBoundaries(t *testing.T) {
	data := gzipMember(t, "hello world")
	g, err := NewGzipStream(&memStream{data: data})
	if err != nil {
		t.Fatalf("NewGzipStream: %v", err)
	}

	size, err := g.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len("hello world")) {
		t.Fatalf("Size = %d, want %d", size, len("hello world"))
	}

	bounds, err := g.MemberBoundaries()
	if err != nil {
		t.Fatalf("MemberBoundaries: %v", err)
	}
	if len(bounds) != 0 {
		t.Fatalf("expected no boundaries for a single-member file, got %v", bounds)
	}
}

func TestGzipMultistreamReadsConcatenatedAndIndexesBoundary(t *testing.T) {
	first := "hello "
	second := "world"
	var data []byte
	data = append(data, gzipMember(t, first)...)
	data = append(data, gzipMember(t, second)...)

	g, err := NewGzipStream(&memStream{data: data})
	if err != nil {
		t.Fatalf("NewGzipStream: %v", err)
	}

	got, err := io.ReadAll(g)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != first+second {
		t.Fatalf("Read = %q, want %q", got, first+second)
	}

	bounds, err := g.MemberBoundaries()
	if err != nil {
		t.Fatalf("MemberBoundaries: %v", err)
	}
	if len(bounds) != 1 || bounds[0] != int64(len(first)) {
		t.Fatalf("MemberBoundaries = %v, want [%d]", bounds, len(first))
	}
}

func TestGzipMemberBoundariesIsMemoizedAndRestoresOffset(t *testing.T) {
	first := "abc"
	second := "defgh"
	var data []byte
	data = append(data, gzipMember(t, first)...)
	data = append(data, gzipMember(t, second)...)

	parent := &memStream{data: data}
	g, err := NewGzipStream(parent)
	if err != nil {
		t.Fatalf("NewGzipStream: %v", err)
	}

	before := parent.Offset()
	bounds1, err := g.MemberBoundaries()
	if err != nil {
		t.Fatalf("MemberBoundaries #1: %v", err)
	}
	if parent.Offset() != before {
		t.Fatalf("MemberBoundaries moved the parent offset: got %d, want %d", parent.Offset(), before)
	}

	bounds2, err := g.MemberBoundaries()
	if err != nil {
		t.Fatalf("MemberBoundaries #2: %v", err)
	}
	if len(bounds1) != len(bounds2) || bounds1[0] != bounds2[0] {
		t.Fatalf("expected memoized boundaries to match: %v vs %v", bounds1, bounds2)
	}
}
