// Package analyzer implements the format analyzer (§4.6): a single
// multi-pattern scan over every registered analyzer helper's byte
// signatures, returning every type whose signatures (and optional
// structural check) match, ordered by format category then first-match
// offset.
package analyzer

import (
	"io"
	"sort"

	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// Analyzer holds a reference to the back-end registry whose analyzer
// helpers it consolidates into one scan.
type Analyzer struct {
	registry *backend.Registry
}

// New returns an Analyzer scanning every helper registered on registry at
// call time — helpers registered after New are still picked up, since
// Analyze re-reads the registry's current analyzer set on each call.
func New(registry *backend.Registry) *Analyzer {
	return &Analyzer{registry: registry}
}

// candidate pairs a type with the format spec and the prefix window its
// signatures need.
type candidate struct {
	typ    pathspec.Type
	spec   backend.FormatSpec
	offset int64
}

// Analyze reads the minimal prefix s requires to evaluate every registered
// signature, evaluates each helper's signatures and optional structural
// check, and returns every matching type ordered by category priority
// then by first-match offset (§4.6).
func (a *Analyzer) Analyze(s stream.Stream) ([]pathspec.Type, error) {
	helpers := a.registry.Analyzers()
	if len(helpers) == 0 {
		return nil, nil
	}

	window := 0
	for _, h := range helpers {
		if w := signatureExtent(h.FormatSpec()); w > window {
			window = w
		}
	}

	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, errs.BackEndFailure(err)
	}
	prefix := make([]byte, window)
	n, err := io.ReadFull(s, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errs.BackEndFailure(err)
	}
	prefix = prefix[:n]

	var candidates []candidate
	for typ, h := range helpers {
		spec := h.FormatSpec()
		matched, offset := evaluateSignatures(spec, prefix)
		if !matched {
			continue
		}
		if spec.Structural != nil {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return nil, errs.BackEndFailure(err)
			}
			ok, err := spec.Structural(s)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		candidates = append(candidates, candidate{typ: typ, spec: spec, offset: offset})
	}

	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, errs.BackEndFailure(err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := candidates[i].spec.Category.Priority(), candidates[j].spec.Category.Priority()
		if pi != pj {
			return pi < pj
		}
		if candidates[i].offset != candidates[j].offset {
			return candidates[i].offset < candidates[j].offset
		}
		return candidates[i].typ < candidates[j].typ
	})

	out := make([]pathspec.Type, len(candidates))
	for i, c := range candidates {
		out[i] = c.typ
	}
	return out, nil
}

// evaluateSignatures reports whether any signature in spec matches prefix,
// and the earliest offset at which one did.
func evaluateSignatures(spec backend.FormatSpec, prefix []byte) (bool, int64) {
	matched := false
	var best int64
	for _, sig := range spec.Signatures {
		offset, ok := sig.FindOffset(prefix)
		if !ok {
			continue
		}
		if !matched || offset < best {
			best = offset
			matched = true
		}
	}
	return matched, best
}

// signatureExtent returns the largest byte offset spec's signatures or its
// category's default window need read, so Analyze reads exactly as much
// prefix as the broadest candidate requires.
func signatureExtent(spec backend.FormatSpec) int {
	extent := spec.Category.DefaultWindow()
	for _, sig := range spec.Signatures {
		need := sig.Offset + int64(len(sig.Pattern))
		if sig.SearchRange > 0 {
			need = sig.Offset + sig.SearchRange
		}
		if int(need) > extent {
			extent = int(need)
		}
	}
	return extent
}
