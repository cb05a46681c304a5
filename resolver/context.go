package resolver

import (
	"github.com/layerfs/layerfs/internal/logx"
	"github.com/layerfs/layerfs/pathspec"
)

// CredentialPrompt is the interactive fallback for a missing credential:
// the third step of §4.3's acquisition order, after the spec's own
// attribute and the key chain.
type CredentialPrompt func(spec *pathspec.PathSpec, name string) (string, bool)

// Options configures a Context. Construct with NewContext(opts...).
type Options struct {
	Mounts     MountSource
	KeyChain   *KeyChain
	Prompt     CredentialPrompt
	Log        *logx.Logger
	MaxCacheFS int
}

// Option mutates Options during construction.
type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Mounts:   NewMountTable(),
		KeyChain: NewKeyChain(),
		Log:      logx.Nop(),
	}
}

// WithMountTable installs an explicit mount source (e.g. a
// ConsulMountTable) instead of the default in-process MountTable.
func WithMountTable(mounts MountSource) Option {
	return func(o *Options) error {
		o.Mounts = mounts
		return nil
	}
}

// WithKeyChain installs an explicit key chain instead of an empty default,
// for callers sharing credentials across several Contexts.
func WithKeyChain(kc *KeyChain) Option {
	return func(o *Options) error {
		o.KeyChain = kc
		return nil
	}
}

// WithCredentialPrompt installs the interactive fallback consulted when a
// spec's own attribute and the key chain both lack a requested credential.
func WithCredentialPrompt(prompt CredentialPrompt) Option {
	return func(o *Options) error {
		o.Prompt = prompt
		return nil
	}
}

// WithLogger installs a logger for resolver diagnostics; the default
// discards everything.
func WithLogger(log *logx.Logger) Option {
	return func(o *Options) error {
		o.Log = log
		return nil
	}
}

// WithMaxCacheFS bounds the number of released-but-not-yet-evicted file
// systems the resolver cache keeps warm; warming is disabled by default,
// matching the old behavior of closing a file system the moment its last
// reference is released. A reopen of a warm entry's comparable form skips
// the back-end's open path entirely.
func WithMaxCacheFS(n int) Option {
	return func(o *Options) error {
		o.MaxCacheFS = n
		return nil
	}
}
