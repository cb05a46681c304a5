package layerfs

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/vfsmodel"
)

// fakeBackend is the resolver helper for the FAKE type: an in-memory file
// system built ahead of time by the caller (tests, fixtures) and handed to
// RegisterDefaults rather than constructed from a location on disk.
type fakeBackend struct {
	fs *vfsmodel.FakeFileSystem
}

func (fakeBackend) Capabilities() backend.Capabilities {
	return backend.ProvidesFileSystem
}

func (b fakeBackend) NewFileSystem(spec *pathspec.PathSpec, rc backend.ResolverContext) (vfsmodel.FileSystem, error) {
	return b.fs, nil
}
