package backend

import (
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
	"github.com/layerfs/layerfs/vfsmodel"
)

// ResolverContext is the minimal back-end-facing surface of the resolver
// (§4.3): it lets a helper open the spec's parent (as a stream or an
// already-cached file system, whichever the helper needs) and fetch
// credentials, without a helper ever importing the resolver package
// itself (avoiding an import cycle and keeping the back-end contract
// small, per §6 "Back-end contract").
type ResolverContext interface {
	// OpenParentFileObject opens spec.Parent() as a byte stream.
	OpenParentFileObject(spec *pathspec.PathSpec) (stream.Stream, error)

	// OpenParentFileSystem opens spec.Parent() as a file system (cached:
	// repeated calls with an equal comparable form return the same
	// instance until released).
	OpenParentFileSystem(spec *pathspec.PathSpec) (vfsmodel.FileSystem, error)

	// Credential resolves a credential for spec, honoring the order in
	// §4.3: explicit spec attribute, then key-chain entry, then the
	// interactive callback.
	Credential(spec *pathspec.PathSpec, name string) (string, bool)
}

// FileObjectOpener is implemented by helpers that can produce a Stream.
type FileObjectOpener interface {
	NewFileObject(spec *pathspec.PathSpec, rc ResolverContext) (stream.Stream, error)
}

// FileSystemOpener is implemented by helpers that can produce a FileSystem.
type FileSystemOpener interface {
	NewFileSystem(spec *pathspec.PathSpec, rc ResolverContext) (vfsmodel.FileSystem, error)
}

// VolumeEnumerator is implemented by volume-system resolver helpers (GPT,
// MBR, APM, LVM, TSK_PARTITION, VSHADOW, APFS_CONTAINER) whose spec, when
// given with no addressing attributes, denotes the whole container rather
// than one selected member. EnumerateVolumes lists the attribute sets of
// every member (one per partition, volume, or snapshot store); the
// scanner builds one child spec per entry, of the same type, which then
// addresses that single member and is resolvable via FileObjectOpener.
type VolumeEnumerator interface {
	EnumerateVolumes(spec *pathspec.PathSpec, rc ResolverContext) ([]map[string]any, error)
}
