package vfsmodel

import "github.com/layerfs/layerfs/pathspec"

// FileSystem is the polymorphic file-system contract (§3, §4.5). A
// FileSystem owns back-end state (an open NTFS volume handle, an open
// directory on the host) and is reference-counted by the resolver's
// cache; Close releases that state and must be idempotent only through
// the resolver, never called directly by more than the last releaser.
type FileSystem interface {
	// PathSeparator is the path separator this file system's locations
	// use ("/" for POSIX-style formats, "\\" for NTFS/FAT).
	PathSeparator() string

	// RootEntry never fails for a successfully opened file system.
	RootEntry() (FileEntry, error)

	// EntryBySpec resolves a spec addressing a node in this file system.
	// Fast-path identifiers (inode, MFT entry, CNID) are preferred over
	// location when present in the spec. Returns errs.ErrNotFound if
	// absent.
	EntryBySpec(spec *pathspec.PathSpec) (FileEntry, error)

	// ExistsBySpec is a non-erroring existence check.
	ExistsBySpec(spec *pathspec.PathSpec) (bool, error)

	// JoinPath joins location segments using PathSeparator.
	JoinPath(segments ...string) string

	// SplitPath splits a location into segments using PathSeparator.
	SplitPath(location string) []string

	// Close releases the back-end decoder handle. Idempotent.
	Close() error
}
