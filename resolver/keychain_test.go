package resolver

import (
	"testing"

	"github.com/layerfs/layerfs/pathspec"
)

func bdeSpec(t *testing.T, location string) *pathspec.PathSpec {
	t.Helper()
	factory := pathspec.NewFactory()
	parent, err := factory.New(pathspec.OS, nil, map[string]any{"location": location})
	if err != nil {
		t.Fatalf("factory.New(OS): %v", err)
	}
	spec, err := factory.New(pathspec.BDE, parent, nil)
	if err != nil {
		t.Fatalf("factory.New(BDE): %v", err)
	}
	return spec
}

func TestKeyChainSetGet(t *testing.T) {
	kc := NewKeyChain()
	spec := bdeSpec(t, "/dev/sda2")

	if _, ok := kc.Get(spec, "password"); ok {
		t.Fatal("expected no credential before Set")
	}

	if err := kc.Set(spec, "password", "s3cret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok := kc.Get(spec, "password")
	if !ok || v != "s3cret" {
		t.Fatalf("Get: got (%q, %v)", v, ok)
	}
}

func TestKeyChainRejectsUnknownCredentialName(t *testing.T) {
	kc := NewKeyChain()
	spec := bdeSpec(t, "/dev/sda2")

	if err := kc.Set(spec, "not_a_real_credential", "x"); err == nil {
		t.Fatal("expected Set to reject an unrecognized credential name for BDE")
	}
}

func TestKeyChainSharesAcrossEqualSpecs(t *testing.T) {
	kc := NewKeyChain()
	a := bdeSpec(t, "/dev/sda2")
	b := bdeSpec(t, "/dev/sda2")

	if err := kc.Set(a, "password", "shared"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := kc.Get(b, "password"); !ok || v != "shared" {
		t.Fatalf("expected an equal-by-comparable-form spec to see the same credential, got (%q, %v)", v, ok)
	}
}

func TestKeyChainForget(t *testing.T) {
	kc := NewKeyChain()
	spec := bdeSpec(t, "/dev/sda2")

	kc.Set(spec, "password", "s3cret")
	kc.Forget(spec)

	if _, ok := kc.Get(spec, "password"); ok {
		t.Fatal("expected Forget to remove the credential")
	}
}
