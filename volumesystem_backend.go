package layerfs

import (
	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/diskfs/go-diskfs/partition/part"

	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// partitionTableBackend resolves GPT, MBR, and TSK_PARTITION: enumerating
// a partition table's members (VolumeEnumerator, for a bare spec) and,
// once a member is selected (part_index/start_offset set), presenting
// that single partition's extent as a DATA_RANGE-equivalent stream.
// go-diskfs's GetPartitionTable auto-detects GPT vs MBR, so one helper
// serves all three type indicators.
//
// go-diskfs opens its partition table from a real file, not an arbitrary
// stream.Stream, so both paths materialize the parent to a temp file
// first — the same tradeoff SQLITE_BLOB makes for modernc.org/sqlite.
type partitionTableBackend struct{}

func (partitionTableBackend) Capabilities() backend.Capabilities {
	return backend.ProvidesFileObject
}

func (b partitionTableBackend) openTable(rc backend.ResolverContext, spec *pathspec.PathSpec) (partition.Table, func(), error) {
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, nil, err
	}
	defer parent.Close()

	path, cleanup, err := materializeTemp(parent)
	if err != nil {
		return nil, nil, err
	}

	disk, err := diskfs.Open(path)
	if err != nil {
		cleanup()
		return nil, nil, errs.CorruptVolume("opening disk image: %v", err)
	}
	table, err := disk.GetPartitionTable()
	if err != nil {
		cleanup()
		return nil, nil, errs.CorruptVolume("reading partition table: %v", err)
	}
	return table, cleanup, nil
}

// EnumerateVolumes lists every partition's (part_index, start_offset) pair.
func (b partitionTableBackend) EnumerateVolumes(spec *pathspec.PathSpec, rc backend.ResolverContext) ([]map[string]any, error) {
	table, cleanup, err := b.openTable(rc, spec)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	parts := table.GetPartitions()
	out := make([]map[string]any, 0, len(parts))
	for i, p := range parts {
		offset, ok := partitionStartOffset(p)
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"part_index":   int64(i),
			"start_offset": offset,
		})
	}
	return out, nil
}

// NewFileObject serves an already-selected partition: it re-derives the
// partition's extent from the table (the spec only persists part_index
// and start_offset, not a length) and windows the parent to match.
func (b partitionTableBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	table, cleanup, err := b.openTable(rc, spec)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	idx, hasIdx := spec.Int("part_index")
	offset, hasOffset := spec.Int("start_offset")
	parts := table.GetPartitions()

	var match partition.Partition
	var matchOffset int64
	for i, p := range parts {
		po, ok := partitionStartOffset(p)
		if !ok {
			continue
		}
		if hasIdx && int64(i) == idx {
			match, matchOffset = p, po
			break
		}
		if hasOffset && po == offset {
			match, matchOffset = p, po
			break
		}
	}
	if match == nil {
		return nil, errs.NotFound(spec.Comparable())
	}

	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	dr, err := stream.NewDataRange(parent, matchOffset, match.GetSize())
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(dr, parent), nil
}

// partitionStartOffset extracts the byte offset of p's first sector,
// specific to the concrete partition type go-diskfs returns for GPT vs MBR
// tables (both express their start as a sector count, not bytes).
func partitionStartOffset(p part.Partition) (int64, bool) {
	const sectorSize = 512
	switch t := p.(type) {
	case *gpt.Partition:
		return int64(t.Start) * sectorSize, true
	case *mbr.Partition:
		return int64(t.Start) * sectorSize, true
	default:
		return 0, false
	}
}
