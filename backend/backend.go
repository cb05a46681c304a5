// Package backend is the pluggable back-end registry (§4.2): two parallel
// registries keyed on the same type indicator as pathspec.Type — one for
// resolver helpers (open a stream or file system for a spec), one for
// analyzer helpers (declare the byte signatures that identify a format).
package backend

import (
	"sync"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
)

// ResolverHelper constructs live objects for one path-spec type. A helper
// may implement FileObjectOpener, FileSystemOpener, or both; Registry
// reports which via Capabilities.
type ResolverHelper interface {
	// Capabilities reports whether this helper can open a stream, a file
	// system, or both for its type.
	Capabilities() Capabilities
}

// Capabilities is a small bitset describing what a ResolverHelper provides.
type Capabilities uint8

const (
	ProvidesFileObject Capabilities = 1 << iota
	ProvidesFileSystem
)

func (c Capabilities) Has(want Capabilities) bool { return c&want != 0 }

// Registry holds the resolver-helper and analyzer-helper registrations.
// Registration is idempotent by type indicator: registering a type twice
// replaces the previous helper. Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[pathspec.Type]ResolverHelper
	analyzers map[pathspec.Type]AnalyzerHelper
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[pathspec.Type]ResolverHelper),
		analyzers: make(map[pathspec.Type]AnalyzerHelper),
	}
}

// RegisterResolver installs the resolver helper for typ, replacing any
// previous registration.
func (r *Registry) RegisterResolver(typ pathspec.Type, helper ResolverHelper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[typ] = helper
}

// RegisterAnalyzer installs the analyzer helper for typ, replacing any
// previous registration.
func (r *Registry) RegisterAnalyzer(typ pathspec.Type, helper AnalyzerHelper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[typ] = helper
}

// Resolver returns the resolver helper registered for typ.
func (r *Registry) Resolver(typ pathspec.Type) (ResolverHelper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.resolvers[typ]
	if !ok {
		return nil, errs.UnsupportedType(string(typ))
	}
	return h, nil
}

// Analyzers returns every registered analyzer helper keyed by type, for
// the format analyzer's multi-pattern scan.
func (r *Registry) Analyzers() map[pathspec.Type]AnalyzerHelper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[pathspec.Type]AnalyzerHelper, len(r.analyzers))
	for t, h := range r.analyzers {
		out[t] = h
	}
	return out
}
