package resolver

import (
	"testing"

	"github.com/layerfs/layerfs/pathspec"
)

func TestMountTableSetLookupRemove(t *testing.T) {
	factory := pathspec.NewFactory()
	spec, err := factory.New(pathspec.OS, nil, map[string]any{"location": "/mnt/evidence"})
	if err != nil {
		t.Fatalf("factory.New: %v", err)
	}

	table := NewMountTable()

	if _, err := table.Lookup("evidence"); err == nil {
		t.Fatal("expected lookup of an unregistered identifier to fail")
	}

	if err := table.Set("evidence", spec); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := table.Lookup("evidence")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.Equal(spec) {
		t.Fatal("lookup returned a different spec than was set")
	}

	if err := table.Remove("evidence"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := table.Lookup("evidence"); err == nil {
		t.Fatal("expected lookup to fail after removal")
	}
}

func TestMountTableSetReplacesExisting(t *testing.T) {
	factory := pathspec.NewFactory()
	first, _ := factory.New(pathspec.OS, nil, map[string]any{"location": "/a"})
	second, _ := factory.New(pathspec.OS, nil, map[string]any{"location": "/b"})

	table := NewMountTable()
	table.Set("x", first)
	table.Set("x", second)

	got, err := table.Lookup("x")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.Equal(second) {
		t.Fatal("expected the second Set to replace the first")
	}
}

var _ MountSource = (*MountTable)(nil)
var _ MountSource = (*ConsulMountTable)(nil)
