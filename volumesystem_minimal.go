package layerfs

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// singleMemberVolumeBackend is the minimal VolumeEnumerator for the
// container formats the pack carries no real parser for (APM, LVM,
// VSHADOW, APFS_CONTAINER): it reports exactly one member, covering the
// whole parent extent, under the type's index attribute. This keeps the
// scanner's enumerate/select/filter contract (§4.7, §4.8) exercisable end
// to end for these types without fabricating a binary-format decoder; a
// real multi-member decoder would replace EnumerateVolumes's body without
// changing the contract.
type singleMemberVolumeBackend struct {
	indexAttr string
}

func (singleMemberVolumeBackend) Capabilities() backend.Capabilities {
	return backend.ProvidesFileObject
}

func (b singleMemberVolumeBackend) EnumerateVolumes(spec *pathspec.PathSpec, rc backend.ResolverContext) ([]map[string]any, error) {
	return []map[string]any{
		{b.indexAttr: int64(0)},
	}, nil
}

func (b singleMemberVolumeBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	return rc.OpenParentFileObject(spec)
}

// rawBackend resolves RAW: a raw storage-media image is, by definition,
// already decoded — its bytes are the image, split-segment concatenation
// having already happened at OS resolution (osfs.go's globRawSegments), so
// the only thing left to do here is hand the parent stream through.
type rawBackend struct{}

func (rawBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (rawBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	return rc.OpenParentFileObject(spec)
}
