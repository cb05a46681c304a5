package stream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rc4"
	"io"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/xts"

	"github.com/layerfs/layerfs/internal/errs"
)

// EncryptionMethod names the cipher an ENCRYPTED_STREAM may declare.
type EncryptionMethod string

const (
	AES      EncryptionMethod = "aes"
	Blowfish EncryptionMethod = "blowfish"
	DES3     EncryptionMethod = "des3"
	RC4      EncryptionMethod = "rc4"
)

// CipherMode names the block-cipher mode for AES/Blowfish/DES3.
type CipherMode string

const (
	CBC CipherMode = "cbc"
	CFB CipherMode = "cfb"
	ECB CipherMode = "ecb"
	OFB CipherMode = "ofb"
	XTS CipherMode = "xts"
)

// EncryptedConfig carries the attributes an ENCRYPTED_STREAM needs beyond
// its parent: method, mode, key, and an optional explicit IV. The IV
// applies to the first block; CBC/CFB decrypt every later block with the
// previous ciphertext block as its IV.
type EncryptedConfig struct {
	Method EncryptionMethod
	Mode   CipherMode
	Key    []byte
	IV     []byte // optional; all zero bytes if absent
}

func newBlockCipher(method EncryptionMethod, key []byte) (cipher.Block, error) {
	switch method {
	case AES:
		return aes.NewCipher(key)
	case Blowfish:
		return blowfish.NewCipher(key)
	case DES3:
		return des.NewTripleDESCipher(key)
	default:
		return nil, errs.InvalidData("%q is not a block cipher method", method)
	}
}

// NewEncrypted builds the ENCRYPTED_STREAM for parent under cfg. RC4 (a
// stream cipher without random access) is handled by newRC4Stream instead.
func NewEncrypted(parent Stream, cfg EncryptedConfig) (Stream, error) {
	if cfg.Method == RC4 {
		return newRC4Stream(parent, cfg.Key)
	}

	if cfg.Mode == XTS {
		return newXTSStream(parent, cfg)
	}

	block, err := newBlockCipher(cfg.Method, cfg.Key)
	if err != nil {
		return nil, err
	}
	return newBlockModeStream(parent, block, cfg)
}

// blockModeStream provides block-aligned random access for CBC, CFB, ECB,
// and OFB: it computes the block index from the requested offset, reads
// one or two ciphertext blocks from the parent, derives the IV for the
// mode (from cfg.IV, or from the previous ciphertext block for CBC/CFB),
// and decrypts just that window.
type blockModeStream struct {
	parent    Stream
	block     cipher.Block
	mode      CipherMode
	blockSize int
	iv        []byte
	cursor    int64
}

func newBlockModeStream(parent Stream, block cipher.Block, cfg EncryptedConfig) (*blockModeStream, error) {
	bs := block.BlockSize()
	iv := cfg.IV
	if iv == nil {
		iv = make([]byte, bs)
	}
	if len(iv) != bs && cfg.Mode != ECB {
		return nil, errs.InvalidData("initialization vector must be %d bytes", bs)
	}
	return &blockModeStream{parent: parent, block: block, mode: cfg.Mode, blockSize: bs, iv: iv}, nil
}

func (b *blockModeStream) Offset() int64 { return b.cursor }

func (b *blockModeStream) Size() (int64, error) { return b.parent.Size() }

// ivForBlock derives the IV used to decrypt the block starting at
// blockIndex*blockSize: the configured IV for block 0, or the preceding
// ciphertext block for CBC/CFB (per §4.4); ECB and OFB always get the
// configured IV (OFB's keystream doesn't chain on ciphertext, so
// decryptBlock regenerates it from that IV up to blockIndex).
func (b *blockModeStream) ivForBlock(blockIndex int64, ciphertext []byte) ([]byte, error) {
	if blockIndex == 0 || b.mode == ECB || b.mode == OFB {
		return b.iv, nil
	}
	prev := make([]byte, b.blockSize)
	if _, err := b.parent.Seek((blockIndex-1)*int64(b.blockSize), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(b.parent, prev); err != nil {
		return nil, err
	}
	return prev, nil
}

// decryptBlock reads and decrypts the full ciphertext block at blockIndex.
func (b *blockModeStream) decryptBlock(blockIndex int64) ([]byte, error) {
	ciphertext := make([]byte, b.blockSize)
	if _, err := b.parent.Seek(blockIndex*int64(b.blockSize), io.SeekStart); err != nil {
		return nil, err
	}
	n, err := io.ReadFull(b.parent, ciphertext)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		if n == 0 {
			return nil, io.EOF
		}
		ciphertext = ciphertext[:n]
	} else if err != nil {
		return nil, err
	}

	iv, err := b.ivForBlock(blockIndex, ciphertext)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	switch b.mode {
	case CBC:
		if len(ciphertext) < b.blockSize {
			return nil, errs.InvalidData("truncated CBC block")
		}
		cipher.NewCBCDecrypter(b.block, iv).CryptBlocks(plaintext, ciphertext)
	case CFB:
		cipher.NewCFBDecrypter(b.block, iv).XORKeyStream(plaintext, ciphertext)
	case OFB:
		ofb := cipher.NewOFB(b.block, iv)
		skip := make([]byte, b.blockSize)
		for i := int64(0); i < blockIndex; i++ {
			ofb.XORKeyStream(skip, skip)
		}
		ofb.XORKeyStream(plaintext, ciphertext)
	case ECB:
		if len(ciphertext) < b.blockSize {
			return nil, errs.InvalidData("truncated ECB block")
		}
		for off := 0; off+b.blockSize <= len(ciphertext); off += b.blockSize {
			b.block.Decrypt(plaintext[off:off+b.blockSize], ciphertext[off:off+b.blockSize])
		}
	default:
		return nil, errs.InvalidData("unsupported cipher mode %q", b.mode)
	}
	return plaintext, nil
}

func (b *blockModeStream) Read(p []byte) (int, error) {
	size, err := b.Size()
	if err != nil {
		return 0, err
	}
	if b.cursor >= size {
		return 0, io.EOF
	}
	if int64(len(p)) > size-b.cursor {
		p = p[:size-b.cursor]
	}

	total := 0
	for total < len(p) {
		blockIndex := b.cursor / int64(b.blockSize)
		plaintext, err := b.decryptBlock(blockIndex)
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		within := b.cursor % int64(b.blockSize)
		if within >= int64(len(plaintext)) {
			break
		}
		n := copy(p[total:], plaintext[within:])
		total += n
		b.cursor += int64(n)
	}
	return total, nil
}

func (b *blockModeStream) Seek(offset int64, whence int) (int64, error) {
	size, err := b.Size()
	if err != nil {
		return 0, err
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.cursor + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	b.cursor = target
	return target, nil
}

func (b *blockModeStream) Close() error { return nil }

// xtsStream wraps golang.org/x/crypto/xts, which is natively sector-random
// access, so no checkpoint bookkeeping is needed beyond the sector size.
type xtsStream struct {
	parent     Stream
	cipher     *xts.Cipher
	sectorSize int
	cursor     int64
}

const xtsSectorSize = 512

func newXTSStream(parent Stream, cfg EncryptedConfig) (*xtsStream, error) {
	if cfg.Method != AES {
		return nil, errs.InvalidData("XTS mode is only supported for AES")
	}
	c, err := xts.NewCipher(aes.NewCipher, cfg.Key)
	if err != nil {
		return nil, errs.InvalidData("constructing XTS cipher: %v", err)
	}
	return &xtsStream{parent: parent, cipher: c, sectorSize: xtsSectorSize}, nil
}

func (x *xtsStream) Offset() int64        { return x.cursor }
func (x *xtsStream) Size() (int64, error) { return x.parent.Size() }

func (x *xtsStream) Read(p []byte) (int, error) {
	size, err := x.Size()
	if err != nil {
		return 0, err
	}
	if x.cursor >= size {
		return 0, io.EOF
	}
	if int64(len(p)) > size-x.cursor {
		p = p[:size-x.cursor]
	}

	total := 0
	for total < len(p) {
		sector := x.cursor / int64(x.sectorSize)
		ciphertext := make([]byte, x.sectorSize)
		if _, err := x.parent.Seek(sector*int64(x.sectorSize), io.SeekStart); err != nil {
			return total, err
		}
		n, err := io.ReadFull(x.parent, ciphertext)
		if n == 0 {
			break
		}
		ciphertext = ciphertext[:n]
		if n < x.sectorSize {
			// Final partial sector: pad for the cipher, then trim back.
			padded := make([]byte, x.sectorSize)
			copy(padded, ciphertext)
			ciphertext = padded
		}
		plaintext := make([]byte, x.sectorSize)
		x.cipher.Decrypt(plaintext, ciphertext, uint64(sector))

		within := x.cursor % int64(x.sectorSize)
		avail := plaintext[within:]
		if int64(len(avail)) > size-x.cursor {
			avail = avail[:size-x.cursor]
		}
		copied := copy(p[total:], avail)
		total += copied
		x.cursor += int64(copied)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			break
		}
	}
	return total, nil
}

func (x *xtsStream) Seek(offset int64, whence int) (int64, error) {
	size, err := x.Size()
	if err != nil {
		return 0, err
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = x.cursor + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	x.cursor = target
	return target, nil
}

func (x *xtsStream) Close() error { return nil }

// rc4Stream materializes a bounded, reseeded window: RC4 is a pure stream
// cipher with no random access, so seeking backward means re-deriving the
// keystream from offset 0. rc4Window caps how much plaintext is buffered
// across a single forward pass.
const rc4Window = 8 << 20

type rc4Stream struct {
	parent Stream
	key    []byte
	cipher *rc4.Cipher
	cursor int64
	base   int64 // decoded offset of buf[0]
	buf    []byte
}

func newRC4Stream(parent Stream, key []byte) (*rc4Stream, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, errs.InvalidData("constructing RC4 cipher: %v", err)
	}
	return &rc4Stream{parent: parent, key: key, cipher: c}, nil
}

func (r *rc4Stream) Offset() int64        { return r.cursor }
func (r *rc4Stream) Size() (int64, error) { return r.parent.Size() }

func (r *rc4Stream) reseed(from int64) error {
	c, err := rc4.NewCipher(r.key)
	if err != nil {
		return err
	}
	r.cipher = c
	if _, err := r.parent.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.base = 0
	r.buf = nil
	return r.advanceTo(from)
}

func (r *rc4Stream) advanceTo(target int64) error {
	for r.base+int64(len(r.buf)) < target {
		chunk := make([]byte, 64*1024)
		n, err := r.parent.Read(chunk)
		if n > 0 {
			chunk = chunk[:n]
			r.cipher.XORKeyStream(chunk, chunk)
			r.buf = append(r.buf, chunk...)
			if int64(len(r.buf)) > rc4Window {
				drop := int64(len(r.buf)) - rc4Window
				r.buf = r.buf[drop:]
				r.base += drop
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *rc4Stream) Read(p []byte) (int, error) {
	if r.cursor < r.base {
		if err := r.reseed(r.cursor); err != nil {
			return 0, err
		}
	}
	if err := r.advanceTo(r.cursor + int64(len(p))); err != nil && err != io.EOF {
		return 0, err
	}

	idx := r.cursor - r.base
	if idx >= int64(len(r.buf)) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[idx:])
	r.cursor += int64(n)
	return n, nil
}

func (r *rc4Stream) Seek(offset int64, whence int) (int64, error) {
	size, err := r.Size()
	if err != nil {
		return 0, err
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.cursor + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, errs.InvalidData("invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errs.InvalidData("negative seek result")
	}
	r.cursor = target
	return target, nil
}

func (r *rc4Stream) Close() error { return nil }
