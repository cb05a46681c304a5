package layerfs

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/layerfs/layerfs/pathspec"
)

func TestDataRangeBackendWindowsParent(t *testing.T) {
	ctx, factory := newTestContext(t)
	content := []byte("0123456789abcdefghij")
	osSpec := newOSSpec(t, factory, writeTemp(t, content))
	spec, err := factory.New(pathspec.DATA_RANGE, osSpec, map[string]any{
		"range_offset": int64(5),
		"range_size":   int64(4),
	})
	if err != nil {
		t.Fatalf("factory.New(DATA_RANGE): %v", err)
	}
	s, err := ctx.OpenFileObject(spec)
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "5678" {
		t.Fatalf("got %q, want %q", got, "5678")
	}
}

func TestGzipBackendDecompresses(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	content := []byte("gzip payload for the member-aware backend")
	if _, err := gw.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	gw.Close()

	ctx, factory := newTestContext(t)
	osSpec := newOSSpec(t, factory, writeTemp(t, buf.Bytes()))
	spec, err := factory.New(pathspec.GZIP, osSpec, nil)
	if err != nil {
		t.Fatalf("factory.New(GZIP): %v", err)
	}
	s, err := ctx.OpenFileObject(spec)
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestCompressedBackendGzipMethod(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	content := []byte("compressed-stream gzip method payload")
	gw.Write(content)
	gw.Close()

	ctx, factory := newTestContext(t)
	osSpec := newOSSpec(t, factory, writeTemp(t, buf.Bytes()))
	spec, err := factory.New(pathspec.COMPRESSED_STREAM, osSpec, map[string]any{
		"compression_method": "gzip",
	})
	if err != nil {
		t.Fatalf("factory.New(COMPRESSED_STREAM): %v", err)
	}
	s, err := ctx.OpenFileObject(spec)
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestEncodedBackendBase64(t *testing.T) {
	content := []byte("encode me")
	encoded := base64.StdEncoding.EncodeToString(content)

	ctx, factory := newTestContext(t)
	osSpec := newOSSpec(t, factory, writeTemp(t, []byte(encoded)))
	spec, err := factory.New(pathspec.ENCODED_STREAM, osSpec, map[string]any{
		"encoding_method": "base64",
	})
	if err != nil {
		t.Fatalf("factory.New(ENCODED_STREAM): %v", err)
	}
	s, err := ctx.OpenFileObject(spec)
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want %q", got, content)
	}
}

func TestEncryptedStreamBackendAESCFB(t *testing.T) {
	key := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	rand.Read(key)
	rand.Read(iv)

	plain := []byte("secret bytes behind an ENCRYPTED_STREAM spec, four blocks long!")
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	cipherText := make([]byte, len(plain))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(cipherText, plain)

	ctx, factory := newTestContext(t)
	osSpec := newOSSpec(t, factory, writeTemp(t, cipherText))
	spec, err := factory.New(pathspec.ENCRYPTED_STREAM, osSpec, map[string]any{
		"encryption_method":     "aes",
		"cipher_mode":           "cfb",
		"key":                   key,
		"initialization_vector": iv,
	})
	if err != nil {
		t.Fatalf("factory.New(ENCRYPTED_STREAM): %v", err)
	}
	s, err := ctx.OpenFileObject(spec)
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	defer s.Close()
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(plain) {
		t.Fatalf("got %q, want %q", got, plain)
	}
}

func TestEncryptedStreamBackendLockedWithoutKey(t *testing.T) {
	ctx, factory := newTestContext(t)
	osSpec := newOSSpec(t, factory, writeTemp(t, []byte("ciphertext")))
	spec, err := factory.New(pathspec.ENCRYPTED_STREAM, osSpec, map[string]any{
		"encryption_method": "aes",
	})
	if err != nil {
		t.Fatalf("factory.New(ENCRYPTED_STREAM): %v", err)
	}
	if _, err := ctx.OpenFileObject(spec); err == nil {
		t.Fatal("expected an error when no key is available")
	}
}
