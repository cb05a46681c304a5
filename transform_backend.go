package layerfs

import (
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/stream"
)

// dataRangeBackend resolves DATA_RANGE: a fixed window over its parent.
type dataRangeBackend struct{}

func (dataRangeBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (dataRangeBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	offset, ok := spec.Int("range_offset")
	if !ok {
		return nil, errs.PathSpecError("DATA_RANGE requires range_offset")
	}
	size, ok := spec.Int("range_size")
	if !ok {
		return nil, errs.PathSpecError("DATA_RANGE requires range_size")
	}
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	dr, err := stream.NewDataRange(parent, offset, size)
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(dr, parent), nil
}

// compressedBackend resolves COMPRESSED_STREAM under any of the methods
// stream.Compressed supports.
type compressedBackend struct{}

func (compressedBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (compressedBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	method := spec.String("compression_method")
	if method == "" {
		return nil, errs.PathSpecError("COMPRESSED_STREAM requires compression_method")
	}
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	c, err := stream.NewCompressed(parent, stream.CompressionMethod(method))
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(c, parent), nil
}

// gzipBackend resolves GZIP, the member-aware specialization of
// COMPRESSED_STREAM{gzip}.
type gzipBackend struct{}

func (gzipBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (gzipBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	g, err := stream.NewGzipStream(parent)
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(g, parent), nil
}

// encodedBackend resolves ENCODED_STREAM. Encoded fully materializes its
// parent's bytes at construction, so the parent can be closed immediately
// rather than held open for the life of the stream.
type encodedBackend struct{}

func (encodedBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (encodedBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	method := spec.String("encoding_method")
	if method == "" {
		return nil, errs.PathSpecError("ENCODED_STREAM requires encoding_method")
	}
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	defer parent.Close()
	return stream.NewEncoded(parent, stream.EncodingMethod(method))
}

// fixedCompressedBackend resolves BZIP2, XZ, and LZMA: single-method
// specializations of COMPRESSED_STREAM that, like GZIP, take no attribute
// beyond parent linkage — the method is implied by the type indicator
// rather than read from the spec.
type fixedCompressedBackend struct {
	method stream.CompressionMethod
}

func (fixedCompressedBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (b fixedCompressedBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	c, err := stream.NewCompressed(parent, b.method)
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(c, parent), nil
}

// encryptedStreamBackend resolves ENCRYPTED_STREAM. The key comes from the
// spec's own key attribute or, failing that, from rc.Credential under the
// "key" name, so the same key-chain flow that unlocks BDE/FVDE/LUKSDE
// volumes can supply it; the IV comes only from the initialization_vector
// attribute.
type encryptedStreamBackend struct{}

func (encryptedStreamBackend) Capabilities() backend.Capabilities { return backend.ProvidesFileObject }

func (encryptedStreamBackend) NewFileObject(spec *pathspec.PathSpec, rc backend.ResolverContext) (stream.Stream, error) {
	method := spec.String("encryption_method")
	if method == "" {
		return nil, errs.PathSpecError("ENCRYPTED_STREAM requires encryption_method")
	}
	key, ok := spec.Bytes("key")
	if !ok {
		if v, ok := rc.Credential(spec, "key"); ok {
			key = []byte(v)
		}
	}
	if len(key) == 0 {
		return nil, errs.EncryptedVolumeLocked(spec.Comparable())
	}
	iv, _ := spec.Bytes("initialization_vector")

	parent, err := rc.OpenParentFileObject(spec)
	if err != nil {
		return nil, err
	}
	cfg := stream.EncryptedConfig{
		Method: stream.EncryptionMethod(method),
		Mode:   stream.CipherMode(spec.String("cipher_mode")),
		Key:    key,
		IV:     iv,
	}
	s, err := stream.NewEncrypted(parent, cfg)
	if err != nil {
		parent.Close()
		return nil, err
	}
	return wrapClosing(s, parent), nil
}
