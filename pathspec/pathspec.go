package pathspec

import "sort"

// PathSpec is an immutable, value-comparable addressing record. A chain of
// PathSpecs describes, outside-in, every container a datum is nested
// within. PathSpecs are built only through Factory.New/Factory.Parse, which
// guarantees the chain is acyclic and every node satisfies its type's
// attribute schema.
type PathSpec struct {
	typ    Type
	parent *PathSpec
	attrs  map[string]any
}

// Type returns the path spec's type indicator.
func (p *PathSpec) Type() Type { return p.typ }

// Parent returns the enclosing path spec, or nil if p is a root
// (OS, FAKE, or MOUNT).
func (p *PathSpec) Parent() *PathSpec { return p.parent }

// Attr returns the raw value stored for key, and whether it was set.
func (p *PathSpec) Attr(key string) (any, bool) {
	v, ok := p.attrs[key]
	return v, ok
}

// String returns the named attribute, or "" if absent or not a string.
func (p *PathSpec) String(key string) string {
	v, ok := p.attrs[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Int returns the named attribute as an int64, and whether it was present
// and of that type.
func (p *PathSpec) Int(key string) (int64, bool) {
	v, ok := p.attrs[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// Bytes returns the named attribute as raw bytes, and whether it was
// present and of that type.
func (p *PathSpec) Bytes(key string) ([]byte, bool) {
	v, ok := p.attrs[key]
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Keys returns the attribute keys set on p, sorted ASCII — the same order
// used by Comparable.
func (p *PathSpec) Keys() []string {
	keys := make([]string, 0, len(p.attrs))
	for k := range p.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Depth returns the number of hops to the root (0 for a root itself).
func (p *PathSpec) Depth() int {
	n := 0
	for cur := p.parent; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// Root returns the system-resolvable leaf at the bottom of the chain.
func (p *PathSpec) Root() *PathSpec {
	cur := p
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Equal reports whether p and other denote the same object, per their
// comparable forms.
func (p *PathSpec) Equal(other *PathSpec) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Comparable() == other.Comparable()
}

// Less orders two path specs by their comparable form, giving PathSpec a
// total order usable as a cache or map key outside of the string form
// itself.
func (p *PathSpec) Less(other *PathSpec) bool {
	return p.Comparable() < other.Comparable()
}
