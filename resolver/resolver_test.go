package resolver

import (
	"testing"

	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/vfsmodel"
)

// fakeHelper adapts vfsmodel.FakeFileSystem into a backend.ResolverHelper
// that counts how many times it's asked to build a new instance, so tests
// can assert on cache behavior.
type fakeHelper struct {
	factory *pathspec.Factory
	opens   int
}

func (h *fakeHelper) Capabilities() backend.Capabilities { return backend.ProvidesFileSystem }

func (h *fakeHelper) NewFileSystem(spec *pathspec.PathSpec, rc backend.ResolverContext) (vfsmodel.FileSystem, error) {
	h.opens++
	fs := vfsmodel.NewFakeFileSystem(h.factory)
	fs.AddFile("hello.txt", []byte("hi"))
	return fs, nil
}

func newTestContext(t *testing.T) (*Context, *pathspec.Factory, *fakeHelper) {
	t.Helper()
	factory := pathspec.NewFactory()
	registry := backend.NewRegistry()
	helper := &fakeHelper{factory: factory}
	registry.RegisterResolver(pathspec.FAKE, helper)

	ctx, err := NewContext(registry)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx, factory, helper
}

func TestOpenFileSystemCachesByComparableForm(t *testing.T) {
	ctx, factory, helper := newTestContext(t)

	spec1, _ := factory.New(pathspec.FAKE, nil, nil)
	spec2, _ := factory.New(pathspec.FAKE, nil, nil)

	fs1, err := ctx.OpenFileSystem(spec1)
	if err != nil {
		t.Fatalf("OpenFileSystem(spec1): %v", err)
	}
	fs2, err := ctx.OpenFileSystem(spec2)
	if err != nil {
		t.Fatalf("OpenFileSystem(spec2): %v", err)
	}
	if fs1 != fs2 {
		t.Fatal("expected equal comparable-form specs to share the cached file system")
	}
	if helper.opens != 1 {
		t.Fatalf("expected 1 back-end open, got %d", helper.opens)
	}

	if err := ctx.ReleaseFileSystem(spec1); err != nil {
		t.Fatalf("release spec1: %v", err)
	}
	if err := ctx.ReleaseFileSystem(spec2); err != nil {
		t.Fatalf("release spec2: %v", err)
	}

	if _, err := ctx.OpenFileSystem(spec1); err != nil {
		t.Fatalf("reopen after release: %v", err)
	}
	if helper.opens != 2 {
		t.Fatalf("expected a fresh open after the cache entry was evicted, got %d opens", helper.opens)
	}
}

func TestOpenFileEntryThroughMount(t *testing.T) {
	ctx, factory, _ := newTestContext(t)

	fakeRoot, _ := factory.New(pathspec.FAKE, nil, nil)
	if err := ctx.Mounts().Set("data", fakeRoot); err != nil {
		t.Fatalf("mount Set: %v", err)
	}

	mountSpec, _ := factory.New(pathspec.MOUNT, nil, map[string]any{"identifier": "data"})
	fakeFile, _ := factory.New(pathspec.FAKE, nil, map[string]any{"location": "hello.txt"})

	entry, err := ctx.OpenFileEntry(mountSpec)
	if err != nil {
		t.Fatalf("OpenFileEntry(mount root): %v", err)
	}
	if entry.Name() != "/" {
		t.Errorf("expected mount to resolve to the fake root, got %q", entry.Name())
	}

	fileEntry, err := ctx.OpenFileEntry(fakeFile)
	if err != nil {
		t.Fatalf("OpenFileEntry(hello.txt): %v", err)
	}
	if fileEntry.Name() != "hello.txt" {
		t.Errorf("expected hello.txt, got %q", fileEntry.Name())
	}
}

func TestOpenFileEntryUnknownMountFails(t *testing.T) {
	ctx, factory, _ := newTestContext(t)
	mountSpec, _ := factory.New(pathspec.MOUNT, nil, map[string]any{"identifier": "missing"})

	if _, err := ctx.OpenFileEntry(mountSpec); err == nil {
		t.Fatal("expected an error resolving an unregistered mount identifier")
	}
}

func TestCredentialAcquisitionOrder(t *testing.T) {
	factory := pathspec.NewFactory()
	registry := backend.NewRegistry()

	kc := NewKeyChain()
	var promptCalls int
	ctx, err := NewContext(registry,
		WithKeyChain(kc),
		WithCredentialPrompt(func(spec *pathspec.PathSpec, name string) (string, bool) {
			promptCalls++
			return "from-prompt", true
		}),
	)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	spec, _ := factory.New(pathspec.BDE, mustOS(t, factory), map[string]any{"password": "from-attr"})

	if v, ok := ctx.Credential(spec, "password"); !ok || v != "from-attr" {
		t.Fatalf("expected the spec's own attribute to win, got (%q, %v)", v, ok)
	}

	unsetSpec, _ := factory.New(pathspec.BDE, mustOS(t, factory), nil)
	if err := kc.Set(unsetSpec, "password", "from-keychain"); err != nil {
		t.Fatalf("KeyChain.Set: %v", err)
	}
	if v, ok := ctx.Credential(unsetSpec, "password"); !ok || v != "from-keychain" {
		t.Fatalf("expected the key chain to win over the prompt, got (%q, %v)", v, ok)
	}

	// A spec with a distinct comparable form (different backing location)
	// misses the key chain entry above and must fall through to the prompt.
	differentParent, _ := factory.New(pathspec.OS, nil, map[string]any{"location": "/dev/sdb"})
	promptOnlySpec, _ := factory.New(pathspec.BDE, differentParent, nil)

	if v, ok := ctx.Credential(promptOnlySpec, "password"); !ok || v != "from-prompt" {
		t.Fatalf("expected the prompt fallback, got (%q, %v)", v, ok)
	}
	if promptCalls != 1 {
		t.Fatalf("expected exactly 1 prompt call, got %d", promptCalls)
	}
}

func mustOS(t *testing.T, factory *pathspec.Factory) *pathspec.PathSpec {
	t.Helper()
	spec, err := factory.New(pathspec.OS, nil, map[string]any{"location": "/dev/sda"})
	if err != nil {
		t.Fatalf("factory.New(OS): %v", err)
	}
	return spec
}
