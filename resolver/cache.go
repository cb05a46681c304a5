package resolver

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/layerfs/layerfs/internal/logx"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/vfsmodel"
)

// fsCacheEntry pairs a cached FileSystem with its reference count (§8
// "Resolver cache identity"): every OpenFileSystem for an equal comparable
// form returns the same instance until every caller has released it.
type fsCacheEntry struct {
	fs   vfsmodel.FileSystem
	refs int
}

// fsCache is the resolver's per-Context file-system cache, keyed by a
// spec's comparable form so two distinct *PathSpec values describing the
// same object share the one open back-end handle.
//
// Entries with outstanding references live in entries, where eviction by
// anything other than a matching release would break a caller still
// holding the FileSystem. Once a release drops an entry's refcount to
// zero, it is closed immediately unless a warm cache is configured
// (maxWarm > 0, via WithMaxCacheFS): then it moves into warm, a
// bounded LRU, so a caller that re-opens the same nested layer shortly
// after releasing it gets the already-open handle back instead of
// re-running the back-end's open path. warm's least-recently-used entry
// is closed once adding a new one would grow past maxWarm.
type fsCache struct {
	mu      sync.Mutex
	entries map[string]*fsCacheEntry
	warm    *lru.Cache
	log     *logx.Logger
}

func newFSCache(log *logx.Logger, maxWarm int) *fsCache {
	c := &fsCache{entries: make(map[string]*fsCacheEntry), log: log}
	if maxWarm > 0 {
		c.warm, _ = lru.NewWithEvict(maxWarm, func(key interface{}, value interface{}) {
			if fs, ok := value.(vfsmodel.FileSystem); ok {
				log.Debug("resolver warm cache evict for %q", key)
				_ = fs.Close()
			}
		})
	}
	return c
}

// getOrOpen returns the cached FileSystem for spec's comparable form,
// calling open to produce it on a miss. Every successful return — hit or
// miss — increments the entry's refcount; the caller must eventually call
// release with the same spec.
func (c *fsCache) getOrOpen(spec *pathspec.PathSpec, open func() (vfsmodel.FileSystem, error)) (vfsmodel.FileSystem, error) {
	key := spec.Comparable()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.refs++
		c.mu.Unlock()
		c.log.Debug("resolver cache hit for %q (refs=%d)", key, entry.refs)
		return entry.fs, nil
	}
	if c.warm != nil {
		if warmed, ok := c.warm.Get(key); ok {
			// Remove runs the evict callback; clearing the value first keeps
			// it from closing the file system being handed back.
			c.warm.Add(key, nil)
			c.warm.Remove(key)
			entry := &fsCacheEntry{fs: warmed.(vfsmodel.FileSystem), refs: 1}
			c.entries[key] = entry
			c.mu.Unlock()
			c.log.Debug("resolver warm cache hit for %q", key)
			return entry.fs, nil
		}
	}
	c.mu.Unlock()

	fs, err := open()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		// Lost a race with a concurrent opener; keep theirs, discard ours.
		entry.refs++
		_ = fs.Close()
		return entry.fs, nil
	}
	if c.warm != nil {
		if warmed, ok := c.warm.Get(key); ok {
			// Lost a race with a concurrent release that warmed this key first.
			c.warm.Add(key, nil)
			c.warm.Remove(key)
			_ = fs.Close()
			entry := &fsCacheEntry{fs: warmed.(vfsmodel.FileSystem), refs: 1}
			c.entries[key] = entry
			return entry.fs, nil
		}
	}
	c.entries[key] = &fsCacheEntry{fs: fs, refs: 1}
	c.log.Debug("resolver cache miss for %q", key)
	return fs, nil
}

// release decrements spec's refcount. Once it drops to zero, the entry is
// closed immediately, unless a warm cache is configured, in which case it
// is kept open there instead.
func (c *fsCache) release(spec *pathspec.PathSpec) error {
	key := spec.Comparable()

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry.refs--
	if entry.refs > 0 {
		return nil
	}
	delete(c.entries, key)
	if c.warm != nil {
		c.log.Debug("resolver cache warm for %q", key)
		c.warm.Add(key, entry.fs)
		return nil
	}
	c.log.Debug("resolver cache evict for %q", key)
	return entry.fs.Close()
}

// closeAll releases every cached file system, active or warm, regardless
// of refcount, for Context teardown.
func (c *fsCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for key, entry := range c.entries {
		if err := entry.fs.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.entries, key)
	}
	if c.warm != nil {
		c.warm.Purge()
	}
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
