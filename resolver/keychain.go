package resolver

import (
	"sync"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
)

// allowedCredentials is dfvfs's credentials.py table of which credential
// names each encrypted-volume type accepts, carried over so KeyChain.Set
// rejects a typo'd credential name at set time instead of at open time.
var allowedCredentials = map[pathspec.Type][]string{
	pathspec.BDE:    {"password", "recovery_password", "startup_key", "key_data"},
	pathspec.FVDE:   {"password", "recovery_password", "key_chain"},
	pathspec.LUKSDE: {"password", "key_data"},
}

// AllowedCredentialNames returns the recognized credential names for typ,
// and whether typ has a restricted vocabulary at all (false for types
// with no entry, which accept any name).
func AllowedCredentialNames(typ pathspec.Type) ([]string, bool) {
	names, ok := allowedCredentials[typ]
	return names, ok
}

// credentialAllowed reports whether name is a recognized credential for typ.
// Types with no entry in allowedCredentials accept any name, since not every
// encrypted type needs its credential vocabulary restricted.
func credentialAllowed(typ pathspec.Type, name string) bool {
	names, ok := allowedCredentials[typ]
	if !ok {
		return true
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// KeyChain holds credentials for encrypted-volume path specs, keyed by the
// spec's comparable form so two specs describing the same volume share
// credentials regardless of object identity (§3 "Key chain").
type KeyChain struct {
	mu     sync.RWMutex
	byCred map[string]map[string]string // comparable(spec) -> name -> value
}

// NewKeyChain returns an empty key chain.
func NewKeyChain() *KeyChain {
	return &KeyChain{byCred: make(map[string]map[string]string)}
}

// Set records a credential value for spec under name. It fails early if
// name is not recognized for spec's type.
func (k *KeyChain) Set(spec *pathspec.PathSpec, name, value string) error {
	if !credentialAllowed(spec.Type(), name) {
		return errs.PathSpecError("unrecognized credential %q for type %s", name, spec.Type())
	}
	key := spec.Comparable()
	k.mu.Lock()
	defer k.mu.Unlock()
	entries, ok := k.byCred[key]
	if !ok {
		entries = make(map[string]string)
		k.byCred[key] = entries
	}
	entries[name] = value
	return nil
}

// Get returns the credential value for spec under name, if one was set.
func (k *KeyChain) Get(spec *pathspec.PathSpec, name string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	entries, ok := k.byCred[spec.Comparable()]
	if !ok {
		return "", false
	}
	value, ok := entries[name]
	return value, ok
}

// Forget discards every credential recorded for spec.
func (k *KeyChain) Forget(spec *pathspec.PathSpec) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.byCred, spec.Comparable())
}
