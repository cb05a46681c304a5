package vfsmodel

import "github.com/layerfs/layerfs/stream"

// AttributeType distinguishes extended attributes from format-specific
// attributes (NTFS $EA, $LOGGED_UTILITY_STREAM, ...).
type AttributeType string

const (
	AttributeExtended      AttributeType = "extended"
	AttributeNTFS          AttributeType = "ntfs"
	AttributeHFSExtended   AttributeType = "hfs_extended"
)

// Attribute is one named, typed, byte-addressable piece of metadata
// attached to a FileEntry beyond its primary data streams.
type Attribute struct {
	Name string
	Type AttributeType
	Open func() (stream.Stream, error)
}

// DataStream is one named byte sequence a FileEntry exposes: the default
// unnamed stream, or a named alternate (NTFS ADS, HFS resource fork).
type DataStream struct {
	// Name is "" for the default/unnamed stream.
	Name string
	Open func() (stream.Stream, error)
}
