package layerfs

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
	"github.com/layerfs/layerfs/vfsmodel"
)

// osBackend is the resolver helper for OS-rooted specs: it opens the host
// file system directly, with no parent to delegate to.
type osBackend struct {
	factory *pathspec.Factory
}

func (osBackend) Capabilities() backend.Capabilities {
	return backend.ProvidesFileObject | backend.ProvidesFileSystem
}

func (b osBackend) NewFileSystem(spec *pathspec.PathSpec, rc backend.ResolverContext) (vfsmodel.FileSystem, error) {
	return vfsmodel.NewOSFileSystem(b.factory), nil
}

// NewFileObject opens spec's location directly, without resolving through
// a cached FileSystem, for callers that only need the bytes (the
// analyzer, a DATA_RANGE parent, etc).
func (b osBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	fs := vfsmodel.NewOSFileSystem(b.factory)
	entry, err := fs.EntryBySpec(spec)
	if err != nil {
		return nil, err
	}
	obj, err := entry.GetFileObject("")
	if err != nil {
		return nil, err
	}
	// ReadSeekCloserSizer and stream.Stream share the same method set by
	// construction; the concrete values osEntry.GetFileObject returns
	// (*osFileStream, *concatStream) already satisfy stream.Stream.
	return obj.(stream.Stream), nil
}
