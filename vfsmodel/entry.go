package vfsmodel

import "github.com/layerfs/layerfs/pathspec"

// FileEntry is the polymorphic file/directory/link/special node contract
// (§3, §4.5). Concrete back-ends (OS, FAKE, and any external decoder
// wired through backend.ResolverHelper) implement it directly; callers
// never see the concrete type.
type FileEntry interface {
	// Name is the entry's base name within its parent.
	Name() string

	// PathSpec is the chain that reaches this exact entry.
	PathSpec() *pathspec.PathSpec

	// Parent returns the enclosing directory entry, or nil at the file
	// system root.
	Parent() (FileEntry, error)

	// SubEntries is a lazy, restartable sequence: each call returns a
	// fresh iterator that reopens the directory, so two concurrent
	// iterations never share a cursor. Ordering matches on-disk order
	// when the format defines one, and is otherwise format-dependent but
	// stable within one iteration.
	SubEntries() (EntryIterator, error)

	// DataStreams enumerates the entry's data streams: the default
	// unnamed stream plus any named alternates (NTFS ADS, HFS resource
	// fork).
	DataStreams() ([]DataStream, error)

	// Attributes enumerates extended/format-specific attributes.
	Attributes() ([]Attribute, error)

	// Stat returns the entry's metadata.
	Stat() (*Stat, error)

	// LinkTarget returns the symlink target, or "" if Stat().Type is not
	// TypeLink.
	LinkTarget() (string, error)

	// GetFileObject opens a byte stream for one of the entry's data
	// streams. dataStream == "" opens the default stream.
	GetFileObject(dataStream string) (ReadSeekCloserSizer, error)
}

// ReadSeekCloserSizer is the minimal surface FileEntry.GetFileObject
// returns; it is satisfied by stream.Stream, kept as its own name here so
// vfsmodel does not have to import stream's full transform surface.
type ReadSeekCloserSizer interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
	Size() (int64, error)
	Offset() int64
}

// EntryIterator walks a directory's children. Next returns (nil, nil) once
// exhausted. Close releases any directory handle before exhaustion; it is
// safe to call Close after exhaustion too.
type EntryIterator interface {
	Next() (FileEntry, error)
	Close() error
}
