package layerfs

import (
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
)

const mbrSectorSize = 512

// buildMBRImage hand-crafts a single-partition MBR disk image: a boot
// sector with one partition-table entry at the standard 0x1BE offset and
// the 0x55AA signature, followed by content at the partition's LBA. This
// is the inverse of what go-diskfs's MBR reader parses, written only for
// this test since nothing in the dependency graph builds disk images.
func buildMBRImage(t *testing.T, startLBA, sectorCount uint32, content []byte) string {
	t.Helper()
	totalSectors := startLBA + sectorCount + 1
	img := make([]byte, int(totalSectors)*mbrSectorSize)

	entry := img[0x1BE : 0x1BE+16]
	entry[0] = 0x00 // not bootable
	entry[4] = 0x83 // Linux partition type
	binary.LittleEndian.PutUint32(entry[8:12], startLBA)
	binary.LittleEndian.PutUint32(entry[12:16], sectorCount)

	img[510] = 0x55
	img[511] = 0xAA

	copy(img[int(startLBA)*mbrSectorSize:], content)

	f, err := os.CreateTemp(t.TempDir(), "mbr-image-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(img); err != nil {
		t.Fatalf("writing fixture image: %v", err)
	}
	return f.Name()
}

func TestPartitionTableBackendEnumeratesMBRPartitions(t *testing.T) {
	path := buildMBRImage(t, 2048, 64, []byte("partition payload"))

	ctx, factory := newTestContext(t)
	registry := backend.NewRegistry()
	RegisterDefaults(registry, factory)

	osSpec := newOSSpec(t, factory, path)
	mbrSpec, err := factory.New(pathspec.MBR, osSpec, nil)
	if err != nil {
		t.Fatalf("factory.New(MBR): %v", err)
	}

	helper, err := registry.Resolver(pathspec.MBR)
	if err != nil {
		t.Fatalf("Resolver(MBR): %v", err)
	}
	enumerator, ok := helper.(backend.VolumeEnumerator)
	if !ok {
		t.Fatalf("MBR helper does not implement VolumeEnumerator")
	}

	entries, err := enumerator.EnumerateVolumes(mbrSpec, ctx)
	if err != nil {
		t.Fatalf("EnumerateVolumes: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 partition entry, got %v", entries)
	}
	offset, _ := entries[0]["start_offset"].(int64)
	if offset != int64(2048*mbrSectorSize) {
		t.Fatalf("start_offset = %d, want %d", offset, 2048*mbrSectorSize)
	}
}

func TestPartitionTableBackendReadsSelectedPartition(t *testing.T) {
	content := []byte("partition payload")
	path := buildMBRImage(t, 2048, 64, content)

	ctx, factory := newTestContext(t)
	osSpec := newOSSpec(t, factory, path)
	partSpec, err := factory.New(pathspec.MBR, osSpec, map[string]any{"part_index": int64(0)})
	if err != nil {
		t.Fatalf("factory.New(MBR part): %v", err)
	}

	obj, err := ctx.OpenFileObject(partSpec)
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	defer obj.Close()

	got, err := io.ReadAll(obj)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) < len(content) || string(got[:len(content)]) != string(content) {
		t.Fatalf("got %q, want prefix %q", got, content)
	}
}
