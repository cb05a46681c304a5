package vfsmodel

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/btree"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// fakeNode is one in-memory node. Children are ordered lexically by the
// btree.Map used to index them, for deterministic directory listings.
type fakeNode struct {
	name     string
	isDir    bool
	data     []byte
	children *btree.Map[string, *fakeNode]
	stat     Stat
}

// FakeFileSystem is the in-memory hierarchy builder named in §4.9 — it
// backs the FAKE path-spec type and is the primary fixture for tests that
// exercise the resolver, analyzer, and scanners without real media.
type FakeFileSystem struct {
	factory *pathspec.Factory
	root    *fakeNode
}

// NewFakeFileSystem returns an empty FAKE file system rooted at "/".
func NewFakeFileSystem(factory *pathspec.Factory) *FakeFileSystem {
	return &FakeFileSystem{
		factory: factory,
		root: &fakeNode{
			name:     "/",
			isDir:    true,
			children: btree.NewMap[string, *fakeNode](0),
			stat:     Stat{Type: TypeDirectory, ModifiedTime: time.Time{}},
		},
	}
}

// AddFile inserts a file (creating intermediate directories as needed) at
// location (POSIX-style, "/"-separated) holding data.
func (fs *FakeFileSystem) AddFile(location string, data []byte) {
	dir, base := path.Split(strings.TrimSuffix(location, "/"))
	parent := fs.mkdirAll(dir)
	parent.children.Set(base, &fakeNode{
		name: base,
		data: data,
		stat: Stat{Type: TypeFile, Size: int64(len(data))},
	})
}

// AddDirectory inserts an empty directory at location.
func (fs *FakeFileSystem) AddDirectory(location string) {
	fs.mkdirAll(strings.TrimSuffix(location, "/") + "/")
}

func (fs *FakeFileSystem) mkdirAll(dir string) *fakeNode {
	cur := fs.root
	for _, seg := range splitClean(dir) {
		child, ok := cur.children.Get(seg)
		if !ok || !child.isDir {
			child = &fakeNode{
				name:     seg,
				isDir:    true,
				children: btree.NewMap[string, *fakeNode](0),
				stat:     Stat{Type: TypeDirectory},
			}
			cur.children.Set(seg, child)
		}
		cur = child
	}
	return cur
}

func splitClean(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func (fs *FakeFileSystem) PathSeparator() string { return "/" }

func (fs *FakeFileSystem) RootEntry() (FileEntry, error) {
	return &fakeEntry{fs: fs, location: "/", node: fs.root}, nil
}

func (fs *FakeFileSystem) EntryBySpec(spec *pathspec.PathSpec) (FileEntry, error) {
	return fs.lookup(spec.String("location"))
}

func (fs *FakeFileSystem) ExistsBySpec(spec *pathspec.PathSpec) (bool, error) {
	_, err := fs.lookup(spec.String("location"))
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (fs *FakeFileSystem) lookup(location string) (FileEntry, error) {
	segs := splitClean(location)
	cur := fs.root
	for _, seg := range segs {
		child, ok := cur.children.Get(seg)
		if !ok {
			return nil, errs.NotFound(location)
		}
		cur = child
	}
	return &fakeEntry{fs: fs, location: "/" + strings.Join(segs, "/"), node: cur}, nil
}

func (fs *FakeFileSystem) JoinPath(segments ...string) string {
	return path.Join(segments...)
}

func (fs *FakeFileSystem) SplitPath(location string) []string {
	return splitClean(location)
}

func (fs *FakeFileSystem) Close() error { return nil }

type fakeEntry struct {
	fs       *FakeFileSystem
	location string
	node     *fakeNode
}

func (e *fakeEntry) Name() string {
	if e.location == "/" {
		return "/"
	}
	return e.node.name
}

func (e *fakeEntry) PathSpec() *pathspec.PathSpec {
	spec, _ := e.fs.factory.New(pathspec.FAKE, nil, map[string]any{"location": e.location})
	return spec
}

func (e *fakeEntry) Parent() (FileEntry, error) {
	if e.location == "/" {
		return nil, nil
	}
	dir := path.Dir(e.location)
	return e.fs.lookup(dir)
}

func (e *fakeEntry) SubEntries() (EntryIterator, error) {
	if !e.node.isDir {
		return nil, errs.InvalidData("'%s' is not a directory", e.location)
	}
	names := make([]string, 0, e.node.children.Len())
	e.node.children.Scan(func(k string, _ *fakeNode) bool {
		names = append(names, k)
		return true
	})
	sort.Strings(names)
	return &fakeIterator{entry: e, names: names}, nil
}

type fakeIterator struct {
	entry *fakeEntry
	names []string
	pos   int
}

func (it *fakeIterator) Next() (FileEntry, error) {
	if it.pos >= len(it.names) {
		return nil, nil
	}
	name := it.names[it.pos]
	it.pos++
	child, _ := it.entry.node.children.Get(name)
	loc := it.entry.location
	if !strings.HasSuffix(loc, "/") {
		loc += "/"
	}
	return &fakeEntry{fs: it.entry.fs, location: loc + name, node: child}, nil
}

func (it *fakeIterator) Close() error { return nil }

func (e *fakeEntry) DataStreams() ([]DataStream, error) {
	if e.node.isDir {
		return nil, nil
	}
	return []DataStream{{Name: "", Open: func() (stream.Stream, error) { return newByteStream(e.node.data), nil }}}, nil
}

func (e *fakeEntry) Attributes() ([]Attribute, error) { return nil, nil }

func (e *fakeEntry) Stat() (*Stat, error) {
	st := e.node.stat
	return &st, nil
}

func (e *fakeEntry) LinkTarget() (string, error) { return "", nil }

func (e *fakeEntry) GetFileObject(dataStream string) (ReadSeekCloserSizer, error) {
	if dataStream != "" {
		return nil, errs.InvalidData("FAKE entries have only the default data stream")
	}
	if e.node.isDir {
		return nil, errs.InvalidData("'%s' is a directory", e.location)
	}
	return newByteStream(e.node.data), nil
}
