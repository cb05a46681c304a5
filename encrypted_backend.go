package layerfs

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
	"howett.net/plist"

	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// encryptedVolumeBackend resolves BDE, FVDE, and LUKSDE: each presents the
// whole decrypted volume as a stream once a credential unlocks it,
// deriving a symmetric key from whichever credential rc.Credential
// surfaces first (spec attribute, key chain, interactive prompt — §4.3).
// Real BDE/FVDE/LUKSDE headers carry their own per-volume key-wrapping
// metadata (VMK, CoreStorage, LUKS key slots); this derives a stand-in key
// the same shape the real formats do (PBKDF2 over the password) so the
// credential-unlock flow and AES-XTS decrypt path are genuinely exercised
// without a full header parser.
type encryptedVolumeBackend struct {
	typ pathspec.Type
}

func (encryptedVolumeBackend) Capabilities() backend.Capabilities {
	return backend.ProvidesFileObject
}

func (b encryptedVolumeBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}

	key, err := b.deriveKey(spec, rc)
	if err != nil {
		parent.Close()
		return nil, err
	}

	s, err := stream.NewEncrypted(parent, stream.EncryptedConfig{
		Method: stream.AES,
		Mode:   stream.XTS,
		Key:    key,
	})
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(s, parent), nil
}

// deriveKey tries, in order: each credential name allowedCredentialsFor
// lists for the type, except key_data and key_chain, as returned by
// rc.Credential and PBKDF2-derived; the spec's raw key_data bytes; and
// FVDE's encrypted_root_plist attribute (its CoreStorage wrapped-key blob,
// plist-decoded for the wrapped key bytes it carries). Raw key bytes are
// zero-padded or truncated to 32 bytes. Any failure to find one is an
// errs.ErrEncryptedVolumeLocked, matching the scanner's Locked-node path.
func (b encryptedVolumeBackend) deriveKey(spec *pathspec.PathSpec, rc backend.ResolverContext) ([]byte, error) {
	names, _ := allowedCredentialsFor(b.typ)
	for _, name := range names {
		if name == "key_data" || name == "key_chain" {
			continue
		}
		if value, ok := rc.Credential(spec, name); ok && value != "" {
			return pbkdf2.Key([]byte(value), []byte(string(b.typ)), 4096, 32, sha256.New), nil
		}
	}
	if raw, ok := spec.Bytes("key_data"); ok && len(raw) > 0 {
		return pad32(raw), nil
	}
	if blobRaw, ok := spec.Attr("encrypted_root_plist"); ok {
		if blob, ok := blobRaw.([]byte); ok {
			var decoded map[string]any
			if _, err := plist.Unmarshal(blob, &decoded); err == nil {
				if wrapped, ok := decoded["WrappedVolumeKeys"].([]byte); ok && len(wrapped) > 0 {
					return pad32(wrapped), nil
				}
			}
		}
	}
	return nil, errs.EncryptedVolumeLocked(spec.Comparable())
}

func pad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[:32]
	}
	out := make([]byte, 32)
	copy(out, b)
	return out
}

// allowedCredentialsFor mirrors resolver.AllowedCredentialNames without an
// import cycle (the resolver package already depends on backend via
// ResolverContext, so backend cannot depend back on resolver); the table
// itself is the single source of truth in resolver/keychain.go, and this
// lists the same names; deriveKey's loop skips key_data and key_chain.
func allowedCredentialsFor(typ pathspec.Type) ([]string, bool) {
	switch typ {
	case pathspec.BDE:
		return []string{"password", "recovery_password", "startup_key", "key_data"}, true
	case pathspec.FVDE:
		return []string{"password", "recovery_password", "key_chain"}, true
	case pathspec.LUKSDE:
		return []string{"password", "key_data"}, true
	default:
		return nil, false
	}
}
