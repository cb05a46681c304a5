// Package resolver walks a PathSpec chain to a live Stream or FileEntry,
// indirecting through a mount table, caching opened file systems by
// comparable form, and acquiring credentials for encrypted volumes in a
// fixed order (§4.3).
package resolver

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
	"github.com/layerfs/layerfs/vfsmodel"
)

// Context is the resolver's entry point: it owns the back-end registry
// reference, the mount table, the key chain, and the file-system cache.
// A Context is safe for concurrent use.
type Context struct {
	registry *backend.Registry
	opts     *Options
	cache    *fsCache
}

// NewContext builds a Context against registry, applying opts over the
// defaults (empty in-process mount table and key chain, no credential
// prompt, a discarding logger).
func NewContext(registry *backend.Registry, opts ...Option) (*Context, error) {
	o := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return &Context{registry: registry, opts: o, cache: newFSCache(o.Log, o.MaxCacheFS)}, nil
}

// resolveMount follows MOUNT indirection until it reaches a non-MOUNT spec,
// per §4.3's "MOUNT indirection" step. A mount whose target is itself a
// MOUNT is followed transitively; reaching an identifier a second time is
// a cycle and fails with a PathSpecError.
func (c *Context) resolveMount(spec *pathspec.PathSpec) (*pathspec.PathSpec, error) {
	seen := make(map[string]bool)
	for spec.Type() == pathspec.MOUNT {
		identifier := spec.String("identifier")
		if seen[identifier] {
			return nil, errs.PathSpecError("mount cycle at %q", identifier)
		}
		seen[identifier] = true
		target, err := c.opts.Mounts.Lookup(identifier)
		if err != nil {
			return nil, err
		}
		spec = target
	}
	return spec, nil
}

// OpenFileObject resolves spec to a live byte stream.
func (c *Context) OpenFileObject(spec *pathspec.PathSpec) (stream.Stream, error) {
	resolved, err := c.resolveMount(spec)
	if err != nil {
		return nil, err
	}
	helper, err := c.registry.Resolver(resolved.Type())
	if err != nil {
		return nil, err
	}
	opener, ok := helper.(backend.FileObjectOpener)
	if !ok {
		return nil, errs.UnsupportedType(string(resolved.Type()) + " (no stream opener)")
	}
	return opener.NewFileObject(resolved, c)
}

// OpenFileSystem resolves spec to a cached, reference-counted file system.
// Callers must call ReleaseFileSystem with the same spec once done.
func (c *Context) OpenFileSystem(spec *pathspec.PathSpec) (vfsmodel.FileSystem, error) {
	resolved, err := c.resolveMount(spec)
	if err != nil {
		return nil, err
	}
	helper, err := c.registry.Resolver(resolved.Type())
	if err != nil {
		return nil, err
	}
	opener, ok := helper.(backend.FileSystemOpener)
	if !ok {
		return nil, errs.UnsupportedType(string(resolved.Type()) + " (no file system opener)")
	}
	return c.cache.getOrOpen(resolved, func() (vfsmodel.FileSystem, error) {
		return opener.NewFileSystem(resolved, c)
	})
}

// ReleaseFileSystem drops one reference acquired by OpenFileSystem for an
// equal spec, closing the underlying file system once the count reaches
// zero.
func (c *Context) ReleaseFileSystem(spec *pathspec.PathSpec) error {
	resolved, err := c.resolveMount(spec)
	if err != nil {
		return err
	}
	return c.cache.release(resolved)
}

// OpenFileEntry resolves spec directly to the entry it addresses, opening
// (and leaking a reference to) the file system that contains it. Callers
// that need to release the file system should use OpenFileSystem and
// FileSystem.EntryBySpec instead.
func (c *Context) OpenFileEntry(spec *pathspec.PathSpec) (vfsmodel.FileEntry, error) {
	fs, err := c.OpenFileSystem(spec)
	if err != nil {
		return nil, err
	}
	return fs.EntryBySpec(spec)
}

// Mounts exposes the context's mount source, for callers that want to
// register mounts directly rather than through WithMountTable at
// construction.
func (c *Context) Mounts() MountSource { return c.opts.Mounts }

// KeyChain exposes the context's credential store.
func (c *Context) KeyChain() *KeyChain { return c.opts.KeyChain }

// Close releases every file system still held by the context's cache,
// regardless of outstanding reference counts.
func (c *Context) Close() error { return c.cache.closeAll() }

// OpenParentFileObject implements backend.ResolverContext.
func (c *Context) OpenParentFileObject(spec *pathspec.PathSpec) (stream.Stream, error) {
	parent := spec.Parent()
	if parent == nil {
		return nil, errs.PathSpecError("%s has no parent to open as a stream", spec.Type())
	}
	return c.OpenFileObject(parent)
}

// OpenParentFileSystem implements backend.ResolverContext.
func (c *Context) OpenParentFileSystem(spec *pathspec.PathSpec) (vfsmodel.FileSystem, error) {
	parent := spec.Parent()
	if parent == nil {
		return nil, errs.PathSpecError("%s has no parent to open as a file system", spec.Type())
	}
	return c.OpenFileSystem(parent)
}

// Credential implements backend.ResolverContext, honoring the acquisition
// order from §4.3: the spec's own attribute, then the key chain, then the
// interactive prompt.
func (c *Context) Credential(spec *pathspec.PathSpec, name string) (string, bool) {
	if v, ok := spec.Attr(name); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	if v, ok := c.opts.KeyChain.Get(spec, name); ok {
		return v, true
	}
	if c.opts.Prompt != nil {
		return c.opts.Prompt(spec, name)
	}
	return "", false
}
