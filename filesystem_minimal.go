package layerfs

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
	"github.com/layerfs/layerfs/vfsmodel"
)

// opaqueFileSystem is the minimal FileSystemOpener stand-in for the
// file-system types the pack carries no decoder for (APFS, EXT, HFS, XFS,
// FAT): it exposes a single root entry whose default data stream is the
// parent extent in full, with no real directory parsing. This keeps the
// scanner's "file system is a terminal leaf" rule (§4.7) correct for every
// type in the closed set; a real decoder would replace rootEntry's body
// without changing the contract (the same shape TSK follows, backed by
// go-ntfs, for the one type that does have a real decoder in the pack).
type opaqueFileSystem struct {
	typ     pathspec.Type
	factory *pathspec.Factory
	parent  stream.Stream
}

func (opaqueFileSystem) PathSeparator() string { return "/" }

func (fs *opaqueFileSystem) RootEntry() (vfsmodel.FileEntry, error) {
	return &opaqueEntry{fs: fs}, nil
}

func (fs *opaqueFileSystem) EntryBySpec(spec *pathspec.PathSpec) (vfsmodel.FileEntry, error) {
	return &opaqueEntry{fs: fs}, nil
}

func (fs *opaqueFileSystem) ExistsBySpec(spec *pathspec.PathSpec) (bool, error) { return true, nil }

func (fs *opaqueFileSystem) JoinPath(segments ...string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

func (fs *opaqueFileSystem) SplitPath(location string) []string {
	var out []string
	cur := ""
	for _, r := range location {
		if r == '/' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func (fs *opaqueFileSystem) Close() error { return fs.parent.Close() }

type opaqueEntry struct {
	fs *opaqueFileSystem
}

func (e *opaqueEntry) Name() string { return "/" }

func (e *opaqueEntry) PathSpec() *pathspec.PathSpec {
	spec, _ := e.fs.factory.New(e.fs.typ, nil, map[string]any{"location": "/"})
	return spec
}

func (e *opaqueEntry) Parent() (vfsmodel.FileEntry, error) { return nil, nil }

func (e *opaqueEntry) SubEntries() (vfsmodel.EntryIterator, error) {
	return &emptyEntryIterator{}, nil
}

func (e *opaqueEntry) DataStreams() ([]vfsmodel.DataStream, error) {
	return []vfsmodel.DataStream{{
		Name: "",
		Open: func() (stream.Stream, error) { return e.GetFileObject("") },
	}}, nil
}

func (e *opaqueEntry) Attributes() ([]vfsmodel.Attribute, error) { return nil, nil }

func (e *opaqueEntry) Stat() (*vfsmodel.Stat, error) {
	size, err := e.fs.parent.Size()
	if err != nil {
		return nil, err
	}
	return &vfsmodel.Stat{Type: vfsmodel.TypeFile, Size: size}, nil
}

func (e *opaqueEntry) LinkTarget() (string, error) { return "", nil }

func (e *opaqueEntry) GetFileObject(dataStream string) (vfsmodel.ReadSeekCloserSizer, error) {
	if _, err := e.fs.parent.Seek(0, 0); err != nil {
		return nil, err
	}
	return e.fs.parent, nil
}

type emptyEntryIterator struct{}

func (emptyEntryIterator) Next() (vfsmodel.FileEntry, error) { return nil, nil }
func (emptyEntryIterator) Close() error                      { return nil }

// opaqueFileSystemBackend registers opaqueFileSystem for one type.
type opaqueFileSystemBackend struct {
	typ     pathspec.Type
	factory *pathspec.Factory
}

func (opaqueFileSystemBackend) Capabilities() backend.Capabilities {
	return backend.ProvidesFileSystem
}

func (b opaqueFileSystemBackend) NewFileSystem(spec *pathspec.PathSpec, rc backend.ResolverContext) (vfsmodel.FileSystem, error) {
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	return &opaqueFileSystem{typ: b.typ, factory: b.factory, parent: parent}, nil
}
