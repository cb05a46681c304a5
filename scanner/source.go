// Package scanner builds and drives the scan tree (§4.7) and the
// mediator-driven volume scan built on top of it (§4.8).
package scanner

import (
	"errors"

	"github.com/google/uuid"

	"github.com/layerfs/layerfs/analyzer"
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/internal/logx"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/resolver"
)

// Node is one position in the scan tree: a PathSpec plus what scanning it
// found. A leaf is one of: a file-system type (FileSystem is true), an
// empty or unrecognized container (Children is empty, Locked is false,
// Err is nil), or a locked encrypted volume (Locked is true). ID
// uniquely identifies the node within its tree, for a caller logging or
// reporting progress against a node without formatting its Spec.
type Node struct {
	ID         string
	Spec       *pathspec.PathSpec
	Children   []*Node
	FileSystem bool
	Locked     bool
	Err        error
}

// Scanner walks a root PathSpec into a scan tree, re-analyzing the bytes
// behind every non-terminal node to discover its children.
type Scanner struct {
	ctx      *resolver.Context
	registry *backend.Registry
	analyzer *analyzer.Analyzer
	factory  *pathspec.Factory
	log      *logx.Logger
}

// New returns a Scanner driven by ctx and registry, building child specs
// with factory.
func New(ctx *resolver.Context, registry *backend.Registry, factory *pathspec.Factory, log *logx.Logger) *Scanner {
	if log == nil {
		log = logx.Nop()
	}
	return &Scanner{ctx: ctx, registry: registry, analyzer: analyzer.New(registry), factory: factory, log: log}
}

// Scan builds the scan tree rooted at root (usually OS or MOUNT).
func (s *Scanner) Scan(root *pathspec.PathSpec) (*Node, error) {
	return s.scanNode(root)
}

func (s *Scanner) scanNode(spec *pathspec.PathSpec) (*Node, error) {
	node := &Node{ID: uuid.NewString(), Spec: spec}

	if helper, err := s.registry.Resolver(spec.Type()); err == nil {
		if _, ok := helper.(backend.FileSystemOpener); ok {
			node.FileSystem = true
			return node, nil
		}
		if enumerator, ok := helper.(backend.VolumeEnumerator); ok && len(spec.Keys()) == 0 {
			return s.scanVolumes(node, spec, enumerator)
		}
	}

	stream, err := s.ctx.OpenFileObject(spec)
	if err != nil {
		if errors.Is(err, errs.ErrEncryptedVolumeLocked) {
			node.Locked = true
			s.log.Debug("scan: %s is locked, deferring", spec.Type())
			return node, nil
		}
		node.Err = err
		s.log.Warn("scan: failed to open %s: %v", spec.Type(), err)
		return node, nil
	}
	defer stream.Close()

	types, err := s.analyzer.Analyze(stream)
	if err != nil {
		node.Err = err
		return node, nil
	}
	if len(types) == 0 {
		return node, nil
	}

	for _, typ := range types {
		attrs := s.attrsFor(typ)
		child, err := s.factory.New(typ, spec, attrs)
		if err != nil {
			node.Err = err
			continue
		}
		childNode, err := s.scanNode(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}

	return node, nil
}

// scanVolumes handles a bare volume-system spec (no addressing attributes
// yet) by enumerating its members and recursing into each as a concrete
// child spec of the same type.
func (s *Scanner) scanVolumes(node *Node, spec *pathspec.PathSpec, enumerator backend.VolumeEnumerator) (*Node, error) {
	members, err := enumerator.EnumerateVolumes(spec, s.ctx)
	if err != nil {
		if errors.Is(err, errs.ErrEncryptedVolumeLocked) {
			node.Locked = true
			return node, nil
		}
		node.Err = err
		return node, nil
	}

	for _, attrs := range members {
		child, err := s.factory.New(spec.Type(), spec, attrs)
		if err != nil {
			node.Err = err
			continue
		}
		childNode, err := s.scanNode(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

func (s *Scanner) attrsFor(typ pathspec.Type) map[string]any {
	for candidateType, helper := range s.registry.Analyzers() {
		if candidateType != typ {
			continue
		}
		if fn := helper.FormatSpec().SpecAttrs; fn != nil {
			return fn()
		}
	}
	return nil
}

// FileSystems collects every file-system leaf in the tree rooted at node,
// for callers that just want "every file system this chain contains"
// without walking locked or unrecognized branches themselves.
func FileSystems(node *Node) []*pathspec.PathSpec {
	var out []*pathspec.PathSpec
	var walk func(*Node)
	walk = func(n *Node) {
		if n.FileSystem {
			out = append(out, n.Spec)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)
	return out
}

// LockedNodes collects every locked node in the tree, for callers driving
// credential acquisition before a second scan pass.
func LockedNodes(node *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Locked {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)
	return out
}

// Status is a scan's overall outcome, one of the three categories §7
// requires a scan's final result to distinguish.
type Status int

const (
	// FullyScanned means every branch of the tree resolved to a
	// file-system leaf (or a recognized empty/unrecognized terminal)
	// with no error and nothing left locked.
	FullyScanned Status = iota
	// PartiallyScanned means the scan found at least one file system but
	// also hit at least one error or locked branch elsewhere in the
	// tree; Classify's reasons name each one.
	PartiallyScanned
	// Failed means the scan found no file system anywhere in the tree —
	// either the root itself failed to open, or every branch ended in
	// an error or a lock with nothing recognized underneath.
	Failed
)

// String renders a Status the way a scan report would label it.
func (s Status) String() string {
	switch s {
	case FullyScanned:
		return "fully scanned"
	case PartiallyScanned:
		return "partially scanned"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Classify walks the tree rooted at node and aggregates it into the
// three-way result §7 requires: FullyScanned, PartiallyScanned (with
// reasons), or Failed (also with reasons, one per dead branch).
// Without this, a caller would have to hand-roll the same walk over
// FileSystems/LockedNodes/Err to answer "did the scan actually succeed".
func Classify(node *Node) (Status, []string) {
	var reasons []string
	fileSystems := 0

	var walk func(*Node)
	walk = func(n *Node) {
		if n.Err != nil {
			reasons = append(reasons, n.Spec.Comparable()+": "+n.Err.Error())
		}
		if n.Locked {
			reasons = append(reasons, n.Spec.Comparable()+": locked, no credential available")
		}
		if n.FileSystem {
			fileSystems++
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)

	if fileSystems == 0 {
		if len(reasons) == 0 {
			reasons = append(reasons, node.Spec.Comparable()+": no recognizable file system found")
		}
		return Failed, reasons
	}
	if len(reasons) > 0 {
		return PartiallyScanned, reasons
	}
	return FullyScanned, nil
}
