package scanner

import (
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/resolver"
)

// ScanMode controls how many passes VolumeScanner.Scan makes while trying
// to unlock credential-gated branches (§4.8 "scan_mode").
type ScanMode int

const (
	// OnePass scans once; locked branches whose credential isn't already
	// known (via Options.Credentials) stay locked.
	OnePass ScanMode = iota
	// Exhaustive rescans after every newly-supplied credential (including
	// ones the Mediator supplies interactively) until a pass discovers no
	// new file systems and unlocks nothing further.
	Exhaustive
)

// Selector picks indices out of an enumerated set: either all of them, or
// an explicit index list (§4.8 "partitions={all|index-list}").
type Selector struct {
	all     bool
	indices map[int64]bool
}

// AllIndices selects every candidate.
func AllIndices() Selector { return Selector{all: true} }

// Indices selects exactly the given indices.
func Indices(idx ...int64) Selector {
	set := make(map[int64]bool, len(idx))
	for _, i := range idx {
		set[i] = true
	}
	return Selector{indices: set}
}

// NoIndices selects nothing (used for Options.Snapshots' "none" default).
func NoIndices() Selector { return Selector{} }

func (s Selector) includes(idx int64, present bool) bool {
	if s.all {
		return true
	}
	if !present {
		return false
	}
	return s.indices[idx]
}

// CredentialPreset is one (type, value) pair supplied up front, applied
// to any locked node of that type before the Mediator is consulted
// (§4.8 "credentials=[(type,value)...]").
type CredentialPreset struct {
	Type  pathspec.Type
	Name  string
	Value string
}

// Options configures a VolumeScanner.
type Options struct {
	Partitions  Selector
	Volumes     Selector
	Snapshots   Selector
	Credentials []CredentialPreset
	ScanMode    ScanMode
}

// DefaultOptions selects every partition and volume, no snapshots, and
// scans in a single pass — the conservative default (§4.8).
func DefaultOptions() Options {
	return Options{
		Partitions: AllIndices(),
		Volumes:    AllIndices(),
		Snapshots:  NoIndices(),
		ScanMode:   OnePass,
	}
}

// indexAttr returns the selector-relevant index attribute name for typ, if
// any (part_index for partition tables, volume_index for container
// volume systems, store_index for VSS).
func indexAttr(typ pathspec.Type) (string, bool) {
	switch typ {
	case pathspec.GPT, pathspec.MBR, pathspec.APM, pathspec.TSK_PARTITION:
		return "part_index", true
	case pathspec.APFS_CONTAINER, pathspec.LVM:
		return "volume_index", true
	case pathspec.VSHADOW:
		return "store_index", true
	default:
		return "", false
	}
}

func (o Options) selectorFor(typ pathspec.Type) (Selector, bool) {
	switch typ {
	case pathspec.GPT, pathspec.MBR, pathspec.APM, pathspec.TSK_PARTITION:
		return o.Partitions, true
	case pathspec.APFS_CONTAINER, pathspec.LVM:
		return o.Volumes, true
	case pathspec.VSHADOW:
		return o.Snapshots, true
	default:
		return Selector{}, false
	}
}

// VolumeScanner builds on Scanner to resolve credential-gated branches and
// apply the caller's partition/volume/snapshot selection, returning the
// PathSpecs addressing every selected file system's root (§4.8).
type VolumeScanner struct {
	scanner  *Scanner
	mediator Mediator
	opts     Options
}

// NewVolumeScanner builds a VolumeScanner over scanner, using mediator for
// interactive decisions (use PassthroughMediator for none) and opts to
// configure selection and credential presets.
func NewVolumeScanner(scanner *Scanner, mediator Mediator, opts Options) *VolumeScanner {
	if mediator == nil {
		mediator = PassthroughMediator{}
	}
	return &VolumeScanner{scanner: scanner, mediator: mediator, opts: opts}
}

// Scan runs the source scan, applies credentials (preset, then mediator)
// to any locked branch, rescans per opts.ScanMode, then filters the
// resulting file-system leaves by opts.Partitions/Volumes/Snapshots.
func (vs *VolumeScanner) Scan(root *pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	tree, err := vs.scanner.Scan(root)
	if err != nil {
		return nil, err
	}

	for {
		unlocked := vs.unlockOnePass(tree)
		if !unlocked {
			break
		}
		tree, err = vs.scanner.Scan(root)
		if err != nil {
			return nil, err
		}
		if vs.opts.ScanMode == OnePass {
			break
		}
	}

	return vs.filterSelected(tree), nil
}

// unlockOnePass walks the current tree's locked nodes once, applying any
// credential it can find (preset or mediator), and reports whether it
// applied at least one — a signal that rescanning might reveal more tree.
func (vs *VolumeScanner) unlockOnePass(tree *Node) bool {
	applied := false
	for _, node := range LockedNodes(tree) {
		if vs.applyPresets(node.Spec) {
			applied = true
			continue
		}
		if vs.applyMediator(node.Spec) {
			applied = true
		}
	}
	return applied
}

func (vs *VolumeScanner) applyPresets(spec *pathspec.PathSpec) bool {
	applied := false
	for _, preset := range vs.opts.Credentials {
		if preset.Type != spec.Type() {
			continue
		}
		if err := vs.scanner.ctx.KeyChain().Set(spec, preset.Name, preset.Value); err == nil {
			applied = true
		}
	}
	return applied
}

func (vs *VolumeScanner) applyMediator(spec *pathspec.PathSpec) bool {
	names, ok := resolver.AllowedCredentialNames(spec.Type())
	if !ok {
		return false
	}
	for _, name := range names {
		if value, ok := vs.mediator.Credential(spec, name); ok {
			if err := vs.scanner.ctx.KeyChain().Set(spec, name, value); err == nil {
				return true
			}
		}
	}
	return false
}

// filterSelected walks the tree, keeping file-system leaves whose
// enumerated ancestor (if any) passed the matching Options selector.
func (vs *VolumeScanner) filterSelected(tree *Node) []*pathspec.PathSpec {
	var out []*pathspec.PathSpec
	var walk func(*Node, bool)
	walk = func(n *Node, rejected bool) {
		if sel, ok := vs.opts.selectorFor(n.Spec.Type()); ok {
			attr, _ := indexAttr(n.Spec.Type())
			idx, present := n.Spec.Int(attr)
			if !sel.includes(idx, present) {
				rejected = true
			}
		}
		if n.FileSystem {
			if !rejected {
				out = append(out, n.Spec)
			}
			return
		}
		for _, c := range n.Children {
			walk(c, rejected)
		}
	}
	walk(tree, false)
	return out
}
