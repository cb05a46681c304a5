package pathspec

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Comparable returns the canonical serialization of the chain: one line per
// node, leaf first, each of the form "type=T, k1=v1, k2=v2, ...", keys
// sorted ASCII. Two PathSpecs denote the same object iff their comparable
// forms are byte-equal.
func (p *PathSpec) Comparable() string {
	var b strings.Builder
	for cur := p; cur != nil; cur = cur.parent {
		b.WriteString(cur.line())
		if cur.parent != nil {
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func (p *PathSpec) line() string {
	var b strings.Builder
	b.WriteString("type=")
	b.WriteString(string(p.typ))
	for _, k := range p.Keys() {
		b.WriteString(", ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatAttr(p.attrs[k]))
	}
	return b.String()
}

func formatAttr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return "0x" + hex.EncodeToString(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Parse reconstructs a chain from its comparable form. Round-trip holds:
// Parse(p.Comparable()) produces a PathSpec equal to p.
func (f *Factory) Parse(comparable string) (*PathSpec, error) {
	lines := strings.Split(strings.TrimRight(comparable, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("layerfs: empty comparable form")
	}

	var parent *PathSpec
	for i := len(lines) - 1; i >= 0; i-- {
		typ, attrs, err := parseLine(lines[i])
		if err != nil {
			return nil, err
		}
		spec, err := f.newInternal(typ, attrs, parent)
		if err != nil {
			return nil, err
		}
		parent = spec
	}
	return parent, nil
}

func parseLine(line string) (Type, map[string]any, error) {
	fields := strings.Split(line, ", ")
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("layerfs: malformed comparable line %q", line)
	}

	typeField := fields[0]
	k, v, ok := strings.Cut(typeField, "=")
	if !ok || k != "type" {
		return "", nil, fmt.Errorf("layerfs: comparable line missing type: %q", line)
	}
	typ := Type(v)

	attrs := make(map[string]any, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return "", nil, fmt.Errorf("layerfs: malformed attribute field %q", f)
		}
		attrs[k] = decodeAttr(v)
	}

	return typ, attrs, nil
}

// decodeAttr reverses formatAttr for the one unambiguous case: a 0x-prefixed
// hex string always denotes bytes. Numeric and boolean attributes are
// indistinguishable from strings in the serialized form, so they are left
// as strings here and coerced to their schema type by newInternal, which
// knows which key expects which kind.
func decodeAttr(v string) any {
	if strings.HasPrefix(v, "0x") {
		if b, err := hex.DecodeString(v[2:]); err == nil {
			return b
		}
	}
	return v
}
