package scanner

import (
	"crypto/aes"
	"crypto/sha256"
	"os"
	"testing"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/xts"

	"github.com/layerfs/layerfs"
	"github.com/layerfs/layerfs/backend"
	"github.com/layerfs/layerfs/internal/logx"
	"github.com/layerfs/layerfs/pathspec"
	"github.com/layerfs/layerfs/resolver"
	"github.com/layerfs/layerfs/vfsmodel"
)

// fixtureMarker is the byte signature a markerAnalyzer recognizes, placed
// at offset 0 of a decrypted BDE sector to stand in for a real nested
// file-system's magic.
const fixtureMarker = "FIXTUREFS"

// markerAnalyzer registers FAKE's signature for this test's analyzer pass,
// so decrypting a BDE volume's one sector into fixtureMarker bytes is
// enough to make the scanner recognize a nested file system underneath it.
type markerAnalyzer struct{}

func (markerAnalyzer) FormatSpec() backend.FormatSpec {
	return backend.FormatSpec{
		Category:   backend.CategoryFileSystem,
		Signatures: []backend.ByteSignature{{Pattern: []byte(fixtureMarker)}},
		SpecAttrs:  func() map[string]any { return map[string]any{"location": "/"} },
	}
}

// bdeKey reproduces encryptedVolumeBackend.deriveKey's password-derived key
// exactly, so the test can encrypt a fixture sector that decrypts cleanly
// under the real back-end's credential-unlock path.
func bdeKey(password string) []byte {
	return pbkdf2.Key([]byte(password), []byte(string(pathspec.BDE)), 4096, 32, sha256.New)
}

// writeBDESector writes one 512-byte XTS sector to a temp file whose
// plaintext, once decrypted under password's derived key, is fixtureMarker
// padded with zeroes — the whole fixture a locked-then-unlocked BDE scan
// needs.
func writeBDESector(t *testing.T, password string) string {
	t.Helper()
	cipher, err := xts.NewCipher(aes.NewCipher, bdeKey(password))
	if err != nil {
		t.Fatalf("xts.NewCipher: %v", err)
	}
	plaintext := make([]byte, 512)
	copy(plaintext, []byte(fixtureMarker))
	ciphertext := make([]byte, 512)
	cipher.Encrypt(ciphertext, plaintext, 0)

	f, err := os.CreateTemp(t.TempDir(), "bde-sector-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(ciphertext); err != nil {
		t.Fatalf("writing fixture sector: %v", err)
	}
	return f.Name()
}

// newBDEFixture wires a registry with the real OS and BDE back ends plus a
// FAKE file system behind markerAnalyzer's signature, and returns a
// VolumeScanner plus the root BDE spec it should scan.
func newBDEFixture(t *testing.T, password string) (*VolumeScanner, *pathspec.PathSpec, Options) {
	t.Helper()
	path := writeBDESector(t, password)

	factory := pathspec.NewFactory()
	registry := backend.NewRegistry()
	layerfs.RegisterDefaults(registry, factory)
	layerfs.RegisterFake(registry, vfsmodel.NewFakeFileSystem(factory))
	registry.RegisterAnalyzer(pathspec.FAKE, markerAnalyzer{})

	ctx, err := resolver.NewContext(registry)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	osSpec, err := factory.New(pathspec.OS, nil, map[string]any{"location": path})
	if err != nil {
		t.Fatalf("factory.New(OS): %v", err)
	}
	bdeSpec, err := factory.New(pathspec.BDE, osSpec, nil)
	if err != nil {
		t.Fatalf("factory.New(BDE): %v", err)
	}

	sc := New(ctx, registry, factory, logx.Nop())
	opts := DefaultOptions()
	return NewVolumeScanner(sc, nil, opts), bdeSpec, opts
}

func TestVolumeScannerOnePassLeavesLockedWithoutCredential(t *testing.T) {
	vs, root, opts := newBDEFixture(t, "hunter2")
	opts.ScanMode = OnePass
	vs.opts = opts

	results, err := vs.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no discovered file systems while BDE stays locked, got %v", results)
	}
}

func TestVolumeScannerExhaustiveUnlocksViaPresetCredential(t *testing.T) {
	vs, root, opts := newBDEFixture(t, "hunter2")
	opts.ScanMode = Exhaustive
	opts.Credentials = []CredentialPreset{{Type: pathspec.BDE, Name: "password", Value: "hunter2"}}
	vs.opts = opts

	results, err := vs.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 discovered file system after unlock, got %v", results)
	}
	if results[0].Type() != pathspec.FAKE {
		t.Fatalf("expected the discovered leaf to be FAKE, got %s", results[0].Type())
	}
}

func TestVolumeScannerExhaustiveUnlocksViaMediatorCredential(t *testing.T) {
	vs, root, opts := newBDEFixture(t, "correct-password")
	opts.ScanMode = Exhaustive
	vs.opts = opts

	mediator := NewStaticMediator()
	mediator.Set(pathspec.BDE, "password", "correct-password")
	vs.mediator = mediator

	results, err := vs.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the mediator's credential to unlock the volume, got %v", results)
	}
}

func TestVolumeScannerPresetWithWrongPasswordStaysLocked(t *testing.T) {
	vs, root, opts := newBDEFixture(t, "hunter2")
	opts.ScanMode = Exhaustive
	opts.Credentials = []CredentialPreset{{Type: pathspec.BDE, Name: "password", Value: "wrong"}}
	vs.opts = opts

	results, err := vs.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected the wrong password to leave the volume locked, got %v", results)
	}
}

func TestFilterSelectedAppliesPartitionSelector(t *testing.T) {
	factory := pathspec.NewFactory()
	root, _ := factory.New(pathspec.FAKE, nil, map[string]any{"location": "/"})
	gpt, _ := factory.New(pathspec.GPT, root, map[string]any{"part_index": int64(0)})
	part0, _ := factory.New(pathspec.GPT, gpt, map[string]any{"part_index": int64(0)})
	part1, _ := factory.New(pathspec.GPT, gpt, map[string]any{"part_index": int64(1)})

	tree := &Node{
		ID:   "root",
		Spec: gpt,
		Children: []*Node{
			{ID: "p0", Spec: part0, FileSystem: true},
			{ID: "p1", Spec: part1, FileSystem: true},
		},
	}

	vs := &VolumeScanner{opts: Options{Partitions: Indices(0), Volumes: AllIndices(), Snapshots: NoIndices()}}
	out := vs.filterSelected(tree)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 selected partition, got %d", len(out))
	}
	if idx, _ := out[0].Int("part_index"); idx != 0 {
		t.Fatalf("expected part_index 0 selected, got %d", idx)
	}
}

func TestApplyMediatorSetsKeyChainFromAllowedCredentialName(t *testing.T) {
	factory := pathspec.NewFactory()
	registry := backend.NewRegistry()
	ctx, err := resolver.NewContext(registry)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	parent, _ := factory.New(pathspec.OS, nil, map[string]any{"location": "/dev/sda"})
	spec, err := factory.New(pathspec.BDE, parent, nil)
	if err != nil {
		t.Fatalf("factory.New(BDE): %v", err)
	}

	mediator := NewStaticMediator()
	mediator.Set(pathspec.BDE, "password", "s3cret")

	sc := &Scanner{ctx: ctx}
	vs := &VolumeScanner{scanner: sc, mediator: mediator}

	if !vs.applyMediator(spec) {
		t.Fatal("expected applyMediator to find the mediator's credential")
	}
	if value, ok := ctx.KeyChain().Get(spec, "password"); !ok || value != "s3cret" {
		t.Fatalf("expected the key chain to hold the mediator's credential, got %q, ok=%v", value, ok)
	}
}

func TestApplyPresetsRejectsMismatchedType(t *testing.T) {
	factory := pathspec.NewFactory()
	registry := backend.NewRegistry()
	ctx, err := resolver.NewContext(registry)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	parent, _ := factory.New(pathspec.OS, nil, map[string]any{"location": "/dev/sda"})
	spec, err := factory.New(pathspec.FVDE, parent, nil)
	if err != nil {
		t.Fatalf("factory.New(FVDE): %v", err)
	}

	sc := &Scanner{ctx: ctx}
	vs := &VolumeScanner{
		scanner: sc,
		opts:    Options{Credentials: []CredentialPreset{{Type: pathspec.BDE, Name: "password", Value: "irrelevant"}}},
	}

	if vs.applyPresets(spec) {
		t.Fatal("expected a BDE preset not to apply to an FVDE spec")
	}
}
