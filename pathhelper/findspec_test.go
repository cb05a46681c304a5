package pathhelper

import (
	"regexp"
	"testing"

	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/vfsmodel"
)

func newSearchFixture(t *testing.T) *vfsmodel.FakeFileSystem {
	t.Helper()
	fs := vfsmodel.NewFakeFileSystem(pathspec.NewFactory())
	fs.AddFile("/home/alice/notes.txt", []byte("notes"))
	fs.AddFile("/home/alice/photo.JPG", []byte("jpg-bytes"))
	fs.AddFile("/home/bob/budget.csv", []byte("csv"))
	fs.AddDirectory("/home/alice/empty")
	return fs
}

func mustCompile(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("regexp.Compile(%q): %v", pattern, err)
	}
	return re
}

func locations(t *testing.T, specs []*pathspec.PathSpec) []string {
	t.Helper()
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.String("location")
	}
	return out
}

func TestSearcherFindBySegmentPattern(t *testing.T) {
	fs := newSearchFixture(t)
	factory := pathspec.NewFactory()
	s := NewSearcher(fs, factory, pathspec.FAKE)

	results, err := s.Find([]FindSpec{{
		Segments: []*regexp.Regexp{nil, nil, mustCompile(t, `^notes\.txt$`)},
	}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := locations(t, results)
	if len(got) != 1 || got[0] != "/home/alice/notes.txt" {
		t.Fatalf("got %v", got)
	}
}

func TestSearcherFindCaseInsensitiveSegment(t *testing.T) {
	fs := newSearchFixture(t)
	factory := pathspec.NewFactory()
	s := NewSearcher(fs, factory, pathspec.FAKE)

	results, err := s.Find([]FindSpec{{
		Segments: []*regexp.Regexp{nil, nil, mustCompile(t, `^photo\.jpg$`)},
	}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := locations(t, results)
	if len(got) != 1 || got[0] != "/home/alice/photo.JPG" {
		t.Fatalf("got %v", got)
	}
}

func TestSearcherFindRespectsCaseSensitiveFlag(t *testing.T) {
	fs := newSearchFixture(t)
	factory := pathspec.NewFactory()
	s := NewSearcher(fs, factory, pathspec.FAKE)

	results, err := s.Find([]FindSpec{{
		Segments:      []*regexp.Regexp{nil, nil, mustCompile(t, `^photo\.jpg$`)},
		CaseSensitive: true,
	}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches under case-sensitive comparison, got %v", locations(t, results))
	}
}

func TestSearcherFindDepthBounds(t *testing.T) {
	fs := newSearchFixture(t)
	factory := pathspec.NewFactory()
	s := NewSearcher(fs, factory, pathspec.FAKE)

	results, err := s.Find([]FindSpec{{MinDepth: 1, MaxDepth: 1}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := locations(t, results)
	if len(got) != 1 || got[0] != "/home" {
		t.Fatalf("got %v", got)
	}
}

func TestSearcherFindEntryTypeFilter(t *testing.T) {
	fs := newSearchFixture(t)
	factory := pathspec.NewFactory()
	s := NewSearcher(fs, factory, pathspec.FAKE)

	results, err := s.Find([]FindSpec{{
		EntryType:    vfsmodel.TypeDirectory,
		HasEntryType: true,
		MinDepth:     3,
	}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := locations(t, results)
	if len(got) != 1 || got[0] != "/home/alice/empty" {
		t.Fatalf("got %v", got)
	}
}

func TestSearcherFindDataStreamFilter(t *testing.T) {
	fs := newSearchFixture(t)
	factory := pathspec.NewFactory()
	s := NewSearcher(fs, factory, pathspec.FAKE)

	results, err := s.Find([]FindSpec{{
		HasDataStream: true,
		DataStream:    "",
		MinDepth:      3,
	}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := locations(t, results)
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
}
