package pathspec

import (
	"github.com/layerfs/layerfs/internal/errs"
)

// Constructor validates and normalizes the attributes for one registered
// type before a PathSpec is built. The default factory registers one per
// type in the closed set (see attrs.go); callers needing bespoke
// validation for a new type register their own via Factory.Register.
type Constructor func(attrs map[string]any, parent *PathSpec) (map[string]any, error)

// Factory builds and parses PathSpec chains. The zero Factory is not
// usable; call NewFactory.
type Factory struct {
	ctors map[Type]Constructor
}

// NewFactory returns a Factory pre-registered with a Constructor for every
// type in the closed set, backed by the schema table in attrs.go.
func NewFactory() *Factory {
	f := &Factory{ctors: make(map[Type]Constructor, len(allTypes))}
	for _, t := range allTypes {
		t := t
		f.ctors[t] = func(attrs map[string]any, parent *PathSpec) (map[string]any, error) {
			return validate(t, attrs, parent)
		}
	}
	return f
}

// Register installs or replaces the Constructor for typ. Registration is
// idempotent: registering a type twice replaces the previous Constructor.
func (f *Factory) Register(typ Type, ctor Constructor) {
	f.ctors[typ] = ctor
}

// New builds a PathSpec of the given type. parent may be nil only for
// OS/FAKE/MOUNT. Unknown types fail with errs.ErrUnsupportedType.
func (f *Factory) New(typ Type, parent *PathSpec, attrs map[string]any) (*PathSpec, error) {
	return f.newInternal(typ, attrs, parent)
}

func (f *Factory) newInternal(typ Type, attrs map[string]any, parent *PathSpec) (*PathSpec, error) {
	ctor, ok := f.ctors[typ]
	if !ok {
		return nil, errUnsupported(typ)
	}
	normalized, err := ctor(attrs, parent)
	if err != nil {
		return nil, err
	}
	return &PathSpec{typ: typ, parent: parent, attrs: normalized}, nil
}

func errUnsupported(typ Type) error {
	return errs.UnsupportedType(string(typ))
}

func errSpec(format string, args ...any) error {
	return errs.PathSpecError(format, args...)
}
