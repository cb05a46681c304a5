package resolver

import (
	"sync"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
)

// MountSource is the mount-table surface a Context indirects MOUNT specs
// through (§3, §4.3). MountTable is the in-process implementation;
// ConsulMountTable persists the same mapping externally.
type MountSource interface {
	Set(identifier string, spec *pathspec.PathSpec) error
	Remove(identifier string) error
	Lookup(identifier string) (*pathspec.PathSpec, error)
}

// MountTable is the process-wide (or, per §9, explicitly-threaded) mapping
// identifier -> PathSpec that MOUNT specs indirect through before normal
// resolution (§3, §4.3).
type MountTable struct {
	mu      sync.RWMutex
	entries map[string]*pathspec.PathSpec
}

// NewMountTable returns an empty mount table.
func NewMountTable() *MountTable {
	return &MountTable{entries: make(map[string]*pathspec.PathSpec)}
}

// Set records identifier -> spec, replacing any previous entry.
func (m *MountTable) Set(identifier string, spec *pathspec.PathSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[identifier] = spec
	return nil
}

// Remove deletes identifier's entry, if any.
func (m *MountTable) Remove(identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, identifier)
	return nil
}

// Lookup resolves identifier to its spec. Unknown identifiers fail.
func (m *MountTable) Lookup(identifier string) (*pathspec.PathSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.entries[identifier]
	if !ok {
		return nil, errs.NotFound("mount:" + identifier)
	}
	return spec, nil
}
