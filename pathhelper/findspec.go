package pathhelper

import (
	"regexp"

	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/vfsmodel"
)

// FindSpec is one search criterion for Searcher.Find (§4.9, dfvfs
// file_system_searcher.FindSpec): each path segment is matched against
// the corresponding regex in Segments (nil entries match anything), with
// optional depth bounds, an entry-type filter, a data-stream-name filter,
// and case sensitivity. When CaseSensitive is false, the entry's path
// segments are lower-cased before matching — Segments' patterns should
// be written in lowercase for a case-insensitive spec.
type FindSpec struct {
	Segments      []*regexp.Regexp
	MinDepth      int
	MaxDepth      int // 0 means unbounded
	EntryType     vfsmodel.FileType
	HasEntryType  bool
	DataStream    string
	HasDataStream bool
	CaseSensitive bool
}

// matchSegments reports whether location's segments (already resolved, relative
// to fs's root) satisfy spec, independent of the entry it names.
func (spec FindSpec) matchSegments(segments []string) bool {
	if len(segments) < spec.MinDepth {
		return false
	}
	if spec.MaxDepth > 0 && len(segments) > spec.MaxDepth {
		return false
	}
	if len(spec.Segments) == 0 {
		return true
	}
	if len(segments) < len(spec.Segments) {
		return false
	}
	offset := len(segments) - len(spec.Segments)
	for i, pattern := range spec.Segments {
		if pattern == nil {
			continue
		}
		if !pattern.MatchString(segments[offset+i]) {
			return false
		}
	}
	return true
}

// Searcher walks a vfsmodel.FileSystem emitting every entry that matches
// at least one FindSpec, as the PathSpec that addresses it.
type Searcher struct {
	fs      vfsmodel.FileSystem
	factory *pathspec.Factory
	typ     pathspec.Type
}

// NewSearcher returns a Searcher over fs; typ is the path-spec type used
// to build each result (the type the caller originally resolved fs
// through — the searcher has no way to recover it from fs alone).
func NewSearcher(fs vfsmodel.FileSystem, factory *pathspec.Factory, typ pathspec.Type) *Searcher {
	return &Searcher{fs: fs, factory: factory, typ: typ}
}

// Find walks the whole tree, returning every entry matching any of specs.
func (s *Searcher) Find(specs []FindSpec) ([]*pathspec.PathSpec, error) {
	root, err := s.fs.RootEntry()
	if err != nil {
		return nil, err
	}
	var out []*pathspec.PathSpec
	if err := s.walk(root, nil, specs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Searcher) walk(entry vfsmodel.FileEntry, segments []string, specs []FindSpec, out *[]*pathspec.PathSpec) error {
	if s.matchesAny(entry, segments, specs) {
		*out = append(*out, entry.PathSpec())
	}

	st, err := entry.Stat()
	if err != nil {
		return err
	}
	if st.Type != vfsmodel.TypeDirectory {
		return nil
	}

	it, err := entry.SubEntries()
	if err != nil {
		return err
	}
	defer it.Close()

	for {
		child, err := it.Next()
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}
		childSegments := append(append([]string{}, segments...), child.Name())
		if err := s.walk(child, childSegments, specs, out); err != nil {
			return err
		}
	}
}

func (s *Searcher) matchesAny(entry vfsmodel.FileEntry, segments []string, specs []FindSpec) bool {
	for _, spec := range specs {
		if s.matches(entry, segments, spec) {
			return true
		}
	}
	return false
}

func (s *Searcher) matches(entry vfsmodel.FileEntry, segments []string, spec FindSpec) bool {
	cmpSegments := segments
	if !spec.CaseSensitive {
		cmpSegments = make([]string, len(segments))
		for i, seg := range segments {
			cmpSegments[i] = lower(seg)
		}
	}
	if !spec.matchSegments(cmpSegments) {
		return false
	}
	if spec.HasEntryType {
		st, err := entry.Stat()
		if err != nil || st.Type != spec.EntryType {
			return false
		}
	}
	if spec.HasDataStream {
		streams, err := entry.DataStreams()
		if err != nil {
			return false
		}
		found := false
		for _, ds := range streams {
			if ds.Name == spec.DataStream {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
