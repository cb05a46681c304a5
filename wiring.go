package layerfs

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
	"github.com/layerfs/layerfs/vfsmodel"
)

// RegisterDefaults installs the resolver helper for every path-spec type
// this module ships a back-end for, against registry. factory is shared
// with every helper that constructs PathSpecs of its own (file-system
// walks need it to build a child entry's PathSpec).
//
// FAKE has no fixed construction — an in-memory file system is built by
// the caller, not derived from any location — so it is registered
// separately by RegisterFake once the caller has one to hand over.
func RegisterDefaults(registry *backend.Registry, factory *pathspec.Factory) {
	registry.RegisterResolver(pathspec.OS, osBackend{factory: factory})
	registry.RegisterResolver(pathspec.RAW, rawBackend{})

	// QCOW, EWF, VHDI, VMDK, SMRAW, MODI, PHDI have no registered helper:
	// decoding them needs a real virtual-disk/forensic-image library (the
	// C libqcow/libewf/libvmdk family dfvfs itself binds to), and nothing
	// in the pack wraps one in Go. A spec of one of these types resolves
	// to errs.UnsupportedType until a grounded decoder is added.

	registry.RegisterResolver(pathspec.DATA_RANGE, dataRangeBackend{})
	registry.RegisterResolver(pathspec.COMPRESSED_STREAM, compressedBackend{})
	registry.RegisterResolver(pathspec.GZIP, gzipBackend{})
	registry.RegisterResolver(pathspec.BZIP2, fixedCompressedBackend{method: stream.Bzip2})
	registry.RegisterResolver(pathspec.XZ, fixedCompressedBackend{method: stream.Xz})
	registry.RegisterResolver(pathspec.LZMA, fixedCompressedBackend{method: stream.Lzma})
	registry.RegisterResolver(pathspec.ENCODED_STREAM, encodedBackend{})
	registry.RegisterResolver(pathspec.ENCRYPTED_STREAM, encryptedStreamBackend{})

	registry.RegisterResolver(pathspec.SQLITE_BLOB, sqliteBlobBackend{})

	registry.RegisterResolver(pathspec.TAR, archiveBackend{typ: pathspec.TAR, factory: factory})
	registry.RegisterResolver(pathspec.ZIP, archiveBackend{typ: pathspec.ZIP, factory: factory})
	registry.RegisterResolver(pathspec.CPIO, archiveBackend{typ: pathspec.CPIO, factory: factory})

	table := partitionTableBackend{}
	registry.RegisterResolver(pathspec.GPT, table)
	registry.RegisterResolver(pathspec.MBR, table)
	registry.RegisterResolver(pathspec.TSK_PARTITION, table)

	registry.RegisterResolver(pathspec.APM, singleMemberVolumeBackend{indexAttr: "part_index"})
	registry.RegisterResolver(pathspec.LVM, singleMemberVolumeBackend{indexAttr: "volume_index"})
	registry.RegisterResolver(pathspec.APFS_CONTAINER, singleMemberVolumeBackend{indexAttr: "volume_index"})
	registry.RegisterResolver(pathspec.VSHADOW, singleMemberVolumeBackend{indexAttr: "store_index"})

	registry.RegisterResolver(pathspec.BDE, encryptedVolumeBackend{typ: pathspec.BDE})
	registry.RegisterResolver(pathspec.FVDE, encryptedVolumeBackend{typ: pathspec.FVDE})
	registry.RegisterResolver(pathspec.LUKSDE, encryptedVolumeBackend{typ: pathspec.LUKSDE})

	opaque := func(typ pathspec.Type) backend.ResolverHelper {
		return opaqueFileSystemBackend{typ: typ, factory: factory}
	}
	registry.RegisterResolver(pathspec.APFS, opaque(pathspec.APFS))
	registry.RegisterResolver(pathspec.EXT, opaque(pathspec.EXT))
	registry.RegisterResolver(pathspec.HFS, opaque(pathspec.HFS))
	registry.RegisterResolver(pathspec.XFS, opaque(pathspec.XFS))
	registry.RegisterResolver(pathspec.FAT, opaque(pathspec.FAT))

	// NTFS and TSK share the same real decoder: NTFS addresses a volume
	// directly, TSK addresses one generically by inode/mft_entry across
	// file-system types. Only NTFS has a decoder in the pack, so both
	// type indicators resolve through it.
	ntfs := tskBackend{factory: factory}
	registry.RegisterResolver(pathspec.NTFS, ntfs)
	registry.RegisterResolver(pathspec.TSK, ntfs)
}

// RegisterFake installs fs as the FAKE type's resolver helper.
func RegisterFake(registry *backend.Registry, fs *vfsmodel.FakeFileSystem) {
	registry.RegisterResolver(pathspec.FAKE, fakeBackend{fs: fs})
}
