package scanner

import (
	"errors"
	"testing"

	"github.com/layerfs/layerfs/pathspec"
)

func mustFakeSpec(t *testing.T, location string) *pathspec.PathSpec {
	t.Helper()
	factory := pathspec.NewFactory()
	spec, err := factory.New(pathspec.FAKE, nil, map[string]any{"location": location})
	if err != nil {
		t.Fatalf("factory.New(FAKE): %v", err)
	}
	return spec
}

func TestClassifyFullyScanned(t *testing.T) {
	root := &Node{
		ID:   "root",
		Spec: mustFakeSpec(t, "/"),
		Children: []*Node{
			{ID: "a", Spec: mustFakeSpec(t, "/a"), FileSystem: true},
			{ID: "b", Spec: mustFakeSpec(t, "/b"), FileSystem: true},
		},
	}

	status, reasons := Classify(root)
	if status != FullyScanned {
		t.Fatalf("status = %v, want FullyScanned", status)
	}
	if len(reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", reasons)
	}
}

func TestClassifyPartiallyScannedWithError(t *testing.T) {
	root := &Node{
		ID:   "root",
		Spec: mustFakeSpec(t, "/"),
		Children: []*Node{
			{ID: "a", Spec: mustFakeSpec(t, "/a"), FileSystem: true},
			{ID: "b", Spec: mustFakeSpec(t, "/b"), Err: errors.New("corrupt header")},
		},
	}

	status, reasons := Classify(root)
	if status != PartiallyScanned {
		t.Fatalf("status = %v, want PartiallyScanned", status)
	}
	if len(reasons) != 1 {
		t.Fatalf("expected exactly 1 reason, got %v", reasons)
	}
}

func TestClassifyPartiallyScannedWithLocked(t *testing.T) {
	root := &Node{
		ID:   "root",
		Spec: mustFakeSpec(t, "/"),
		Children: []*Node{
			{ID: "a", Spec: mustFakeSpec(t, "/a"), FileSystem: true},
			{ID: "b", Spec: mustFakeSpec(t, "/b"), Locked: true},
		},
	}

	status, reasons := Classify(root)
	if status != PartiallyScanned {
		t.Fatalf("status = %v, want PartiallyScanned", status)
	}
	if len(reasons) != 1 {
		t.Fatalf("expected exactly 1 reason, got %v", reasons)
	}
}

func TestClassifyFailedNoFileSystemFound(t *testing.T) {
	root := &Node{
		ID:   "root",
		Spec: mustFakeSpec(t, "/"),
		Children: []*Node{
			{ID: "a", Spec: mustFakeSpec(t, "/a"), Err: errors.New("unreadable")},
			{ID: "b", Spec: mustFakeSpec(t, "/b"), Locked: true},
		},
	}

	status, reasons := Classify(root)
	if status != Failed {
		t.Fatalf("status = %v, want Failed", status)
	}
	if len(reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %v", reasons)
	}
}

func TestClassifyFailedEmptyTree(t *testing.T) {
	root := &Node{ID: "root", Spec: mustFakeSpec(t, "/")}

	status, reasons := Classify(root)
	if status != Failed {
		t.Fatalf("status = %v, want Failed", status)
	}
	if len(reasons) != 1 {
		t.Fatalf("expected a synthesized reason, got %v", reasons)
	}
}

func TestFileSystemsAndLockedNodesStillWalkIndependently(t *testing.T) {
	root := &Node{
		ID:   "root",
		Spec: mustFakeSpec(t, "/"),
		Children: []*Node{
			{ID: "a", Spec: mustFakeSpec(t, "/a"), FileSystem: true},
			{ID: "b", Spec: mustFakeSpec(t, "/b"), Locked: true},
		},
	}

	fileSystems := FileSystems(root)
	if len(fileSystems) != 1 {
		t.Fatalf("FileSystems: got %d, want 1", len(fileSystems))
	}
	locked := LockedNodes(root)
	if len(locked) != 1 {
		t.Fatalf("LockedNodes: got %d, want 1", len(locked))
	}
}
