package backend

import "github.com/layerfs/layerfs/stream"

// Category is a format category, used to order ambiguous analyzer matches
// (§4.6): file-system > volume-system > storage-media > archive >
// compressed > encoded > encrypted.
type Category int

const (
	CategoryFileSystem Category = iota
	CategoryVolumeSystem
	CategoryStorageMedia
	CategoryArchive
	CategoryCompressed
	CategoryEncoded
	CategoryEncrypted
)

// Priority returns the category's scan-result ordering weight — lower
// sorts first.
func (c Category) Priority() int { return int(c) }

// windowDefaults gives the default signature-scan prefix size per
// category (§4.6).
var windowDefaults = map[Category]int{
	CategoryStorageMedia: 64 * 1024,
	CategoryArchive:      4 * 1024,
	CategoryCompressed:   32,
}

// DefaultWindow returns the configured default prefix-read size for c, or
// 4096 if none is declared.
func (c Category) DefaultWindow() int {
	if w, ok := windowDefaults[c]; ok {
		return w
	}
	return 4096
}

// ByteSignature is one literal pattern match: either at a fixed Offset, or
// anywhere within [Offset, Offset+SearchRange) when SearchRange > 0.
type ByteSignature struct {
	Pattern     []byte
	Offset      int64
	SearchRange int64
}

// Matches reports whether sig is found in prefix, which must hold at least
// Offset+SearchRange(or len(Pattern)) bytes from the stream's start.
func (sig ByteSignature) Matches(prefix []byte) bool {
	_, ok := sig.FindOffset(prefix)
	return ok
}

// FindOffset reports the position at which sig matches within prefix, and
// whether it matched at all. For a fixed-offset signature this is just
// Offset; for a windowed signature it's the first position within the
// window, used to break ties between ambiguous analyzer matches (§4.6
// "ordered ... then by first-match offset").
func (sig ByteSignature) FindOffset(prefix []byte) (int64, bool) {
	if sig.SearchRange <= 0 {
		end := sig.Offset + int64(len(sig.Pattern))
		if end > int64(len(prefix)) || sig.Offset < 0 {
			return 0, false
		}
		if bytesEqual(prefix[sig.Offset:end], sig.Pattern) {
			return sig.Offset, true
		}
		return 0, false
	}

	limit := sig.Offset + sig.SearchRange
	if limit > int64(len(prefix)) {
		limit = int64(len(prefix))
	}
	for start := sig.Offset; start+int64(len(sig.Pattern)) <= limit; start++ {
		if bytesEqual(prefix[start:start+int64(len(sig.Pattern))], sig.Pattern) {
			return start, true
		}
	}
	return 0, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StructuralCheck is an optional post-check run over the opened parent
// stream once the byte signatures match, for formats whose magic alone is
// ambiguous.
type StructuralCheck func(s stream.Stream) (bool, error)

// FormatSpec is what an AnalyzerHelper contributes to the scan: the
// signatures that identify its format, its category, an optional
// structural check, and the attributes a scanner should give a child
// PathSpec of this type once the signature matches (nil for types that
// take no attributes beyond parent linkage, e.g. GZIP).
type FormatSpec struct {
	Category   Category
	Signatures []ByteSignature
	Structural StructuralCheck
	SpecAttrs  func() map[string]any
}

// AnalyzerHelper declares the format specification the analyzer uses to
// recognize this helper's type from raw bytes.
type AnalyzerHelper interface {
	FormatSpec() FormatSpec
}
