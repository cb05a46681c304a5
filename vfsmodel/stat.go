// Package vfsmodel defines the polymorphic file-entry / file-system
// hierarchy (§3, §4.5): traversal, metadata, data streams and attributes,
// independent of which concrete format back-end produced them.
package vfsmodel

import "time"

// FileType is the closed set of entry kinds a Stat can describe.
type FileType int

const (
	TypeFile FileType = iota
	TypeDirectory
	TypeLink
	TypeDevice
	TypeSocket
	TypePipe
	TypeWhiteout
)

func (t FileType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeLink:
		return "link"
	case TypeDevice:
		return "device"
	case TypeSocket:
		return "socket"
	case TypePipe:
		return "pipe"
	case TypeWhiteout:
		return "whiteout"
	default:
		return "unknown"
	}
}

// Stat is the metadata record surfaced by FileEntry.Stat. Times are opaque
// time.Time values; callers that need to preserve a source time zone or
// exotic epoch (FAT's local-time stamps, HFS+'s 1904 epoch) should treat
// the back-end's conversion to UTC as authoritative — Stat only promises
// lossless round-trip of the instant, not of the original zone label.
type Stat struct {
	Type FileType
	Size int64

	AccessTime     time.Time
	ModifiedTime   time.Time
	ChangeTime     time.Time
	CreationTime   time.Time
	BackupTime     time.Time
	HasAccessTime  bool
	HasChangeTime  bool
	HasCreateTime  bool
	HasBackupTime  bool

	Owner uint32
	Group uint32
	Mode  uint32

	// Inode, MFT entry, CNID, or whatever identifier the format uses.
	Identifier  uint64
	NumberLinks uint32

	// DeviceNumber is valid only when Type == TypeDevice.
	DeviceNumber uint64
}
