package analyzer

import (
	"io"
	"testing"

	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// memStream is a trivial in-memory stream.Stream for analyzer tests.
type memStream struct {
	data   []byte
	cursor int64
}

func newMemStream(data []byte) *memStream { return &memStream{data: data} }

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
	}
	m.cursor = target
	return target, nil
}

func (m *memStream) Close() error         { return nil }
func (m *memStream) Size() (int64, error) { return int64(len(m.data)), nil }
func (m *memStream) Offset() int64        { return m.cursor }

var _ stream.Stream = (*memStream)(nil)

type sigHelper struct {
	spec backend.FormatSpec
}

func (h sigHelper) FormatSpec() backend.FormatSpec { return h.spec }

func TestAnalyzeMatchesFixedSignature(t *testing.T) {
	registry := backend.NewRegistry()
	registry.RegisterAnalyzer(pathspec.GZIP, sigHelper{spec: backend.FormatSpec{
		Category:   backend.CategoryCompressed,
		Signatures: []backend.ByteSignature{{Pattern: []byte{0x1f, 0x8b}, Offset: 0}},
	}})

	a := New(registry)
	types, err := a.Analyze(newMemStream([]byte{0x1f, 0x8b, 0x08, 0x00}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(types) != 1 || types[0] != pathspec.GZIP {
		t.Fatalf("expected [GZIP], got %v", types)
	}
}

func TestAnalyzeNoMatch(t *testing.T) {
	registry := backend.NewRegistry()
	registry.RegisterAnalyzer(pathspec.GZIP, sigHelper{spec: backend.FormatSpec{
		Category:   backend.CategoryCompressed,
		Signatures: []backend.ByteSignature{{Pattern: []byte{0x1f, 0x8b}, Offset: 0}},
	}})

	a := New(registry)
	types, err := a.Analyze(newMemStream([]byte{0x00, 0x00}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(types) != 0 {
		t.Fatalf("expected no matches, got %v", types)
	}
}

func TestAnalyzeOrdersByCategoryPriority(t *testing.T) {
	registry := backend.NewRegistry()
	// Both signatures match the same bytes; file system beats compressed.
	registry.RegisterAnalyzer(pathspec.NTFS, sigHelper{spec: backend.FormatSpec{
		Category:   backend.CategoryFileSystem,
		Signatures: []backend.ByteSignature{{Pattern: []byte("NTFS"), Offset: 3}},
	}})
	registry.RegisterAnalyzer(pathspec.GZIP, sigHelper{spec: backend.FormatSpec{
		Category:   backend.CategoryCompressed,
		Signatures: []backend.ByteSignature{{Pattern: []byte("NTFS"), Offset: 3}},
	}})

	a := New(registry)
	types, err := a.Analyze(newMemStream([]byte("xxxNTFSxxx")))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(types) != 2 || types[0] != pathspec.NTFS || types[1] != pathspec.GZIP {
		t.Fatalf("expected [NTFS, GZIP] in priority order, got %v", types)
	}
}

func TestAnalyzeStructuralCheckCanReject(t *testing.T) {
	registry := backend.NewRegistry()
	registry.RegisterAnalyzer(pathspec.ZIP, sigHelper{spec: backend.FormatSpec{
		Category:   backend.CategoryArchive,
		Signatures: []backend.ByteSignature{{Pattern: []byte("PK"), Offset: 0}},
		Structural: func(s stream.Stream) (bool, error) { return false, nil },
	}})

	a := New(registry)
	types, err := a.Analyze(newMemStream([]byte("PK\x03\x04")))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(types) != 0 {
		t.Fatalf("expected the structural check to reject the match, got %v", types)
	}
}

func TestAnalyzeLeavesStreamAtStart(t *testing.T) {
	registry := backend.NewRegistry()
	registry.RegisterAnalyzer(pathspec.GZIP, sigHelper{spec: backend.FormatSpec{
		Category:   backend.CategoryCompressed,
		Signatures: []backend.ByteSignature{{Pattern: []byte{0x1f, 0x8b}, Offset: 0}},
	}})

	a := New(registry)
	s := newMemStream([]byte{0x1f, 0x8b, 0x08, 0x00})
	if _, err := a.Analyze(s); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Offset() != 0 {
		t.Fatalf("expected Analyze to leave the stream positioned at 0, got %d", s.Offset())
	}
}
