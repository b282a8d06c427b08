package container

import (
	"bytes"
	"crypto/rsa"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// Header is the self-describing prefix of every container. It holds
// everything needed to recover the session key (given a password or the
// recipient's private key) plus the encrypted original filename and the
// content IV.
type Header struct {
	Version  byte
	WrapType WrapType

	// Salt is set for WrapSymmetric headers.
	Salt []byte

	// WrappedKey is set for WrapHybrid headers.
	WrappedKey []byte

	EncryptedFilename []byte
	FilenameIV        []byte
	ContentIV         []byte
}

// KeyMaterial is what EncodeHeader needs to protect a new session key:
// either a password or a recipient's public key.
type KeyMaterial struct {
	wrapType     WrapType
	password     string
	publicKeyPEM []byte
}

// Password returns key material for password mode.
func Password(password string) KeyMaterial {
	return KeyMaterial{wrapType: WrapSymmetric, password: password}
}

// Recipient returns key material for hybrid mode, wrapping the session key
// for the holder of the private half of publicKeyPEM.
func Recipient(publicKeyPEM []byte) KeyMaterial {
	return KeyMaterial{wrapType: WrapHybrid, publicKeyPEM: publicKeyPEM}
}

// Mode reports which header type this key material produces.
func (k KeyMaterial) Mode() WrapType {
	return k.wrapType
}

// EncodeHeader creates a new header and session key for originalFilename.
// The returned key is the one the content must be encrypted with; the
// header alone (plus the password or private key) is enough to recover it.
func EncodeHeader(km KeyMaterial, originalFilename string) (*Header, []byte, error) {
	h := &Header{Version: Version, WrapType: km.wrapType}

	var sessionKey []byte
	switch km.wrapType {
	case WrapSymmetric:
		salt, err := randomBytes(SaltSize)
		if err != nil {
			return nil, nil, err
		}
		h.Salt = salt
		sessionKey = DeriveKey(km.password, salt)
	case WrapHybrid:
		pub, err := ParsePublicKey(km.publicKeyPEM)
		if err != nil {
			return nil, nil, err
		}
		sessionKey, err = CreateSessionKey()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		h.WrappedKey, err = WrapKey(sessionKey, pub)
		if err != nil {
			return nil, nil, err
		}
		if len(h.WrappedKey) > math.MaxUint16 {
			return nil, nil, fmt.Errorf("%w: wrapped key is %d bytes", kerrors.ErrInvalidPublicKey, len(h.WrappedKey))
		}
	default:
		return nil, nil, fmt.Errorf("unknown key material type %d", km.wrapType)
	}

	var err error
	if h.FilenameIV, err = randomBytes(IVSize); err != nil {
		return nil, nil, err
	}
	h.EncryptedFilename, err = sealCBC(sessionKey, h.FilenameIV, []byte(originalFilename))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt filename: %w", err)
	}
	if len(h.EncryptedFilename) > math.MaxUint16 {
		return nil, nil, fmt.Errorf("%w: %d bytes", kerrors.ErrFilenameTooLong, len(originalFilename))
	}
	if h.ContentIV, err = randomBytes(IVSize); err != nil {
		return nil, nil, err
	}

	return h, sessionKey, nil
}

// Bytes serialises the header in wire order:
// magic, version, key-wrap type and payload, filename length, encrypted
// filename, filename IV, content IV.
func (h *Header) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(h.Len())
	buf.Write(Magic[:])
	buf.WriteByte(h.Version)
	buf.WriteByte(byte(h.WrapType))
	switch h.WrapType {
	case WrapSymmetric:
		buf.Write(h.Salt)
	case WrapHybrid:
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(h.WrappedKey)))
		buf.Write(h.WrappedKey)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(h.EncryptedFilename)))
	buf.Write(h.EncryptedFilename)
	buf.Write(h.FilenameIV)
	buf.Write(h.ContentIV)
	return buf.Bytes()
}

// Len is the serialised header size, which is also the offset of the
// first content byte in a single-file container.
func (h *Header) Len() int {
	n := len(Magic) + 2
	switch h.WrapType {
	case WrapSymmetric:
		n += len(h.Salt)
	case WrapHybrid:
		n += 2 + len(h.WrappedKey)
	}
	return n + 2 + len(h.EncryptedFilename) + 2*IVSize
}

// headerReader reads exact-length fields and never consumes past the header.
type headerReader struct {
	r io.Reader
	n int
}

func (hr *headerReader) next(size int, field string) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(hr.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header reading %s: %v", kerrors.ErrFormat, field, io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	hr.n += size
	return b, nil
}

func (hr *headerReader) uint16(field string) (int, error) {
	b, err := hr.next(2, field)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(b)), nil
}

// ReadHeader parses a header from r without needing any key material.
// Exactly the header bytes are consumed, so r is left positioned at the
// first content byte. Bad magic, a version newer than Version or an
// unknown key-wrap type is ErrFormat, detected before anything past that
// field is read.
func ReadHeader(r io.Reader) (*Header, error) {
	hr := &headerReader{r: r}

	magic, err := hr.next(len(Magic), "magic")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %x", kerrors.ErrFormat, magic)
	}

	v, err := hr.next(1, "version")
	if err != nil {
		return nil, err
	}
	if v[0] > Version {
		return nil, fmt.Errorf("%w: unsupported version %d (newest supported is %d)", kerrors.ErrFormat, v[0], Version)
	}

	t, err := hr.next(1, "key wrap type")
	if err != nil {
		return nil, err
	}
	h := &Header{Version: v[0], WrapType: WrapType(t[0])}

	switch h.WrapType {
	case WrapSymmetric:
		if h.Salt, err = hr.next(SaltSize, "salt"); err != nil {
			return nil, err
		}
	case WrapHybrid:
		n, err := hr.uint16("wrapped key length")
		if err != nil {
			return nil, err
		}
		if h.WrappedKey, err = hr.next(n, "wrapped key"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown key wrap type 0x%02x", kerrors.ErrFormat, t[0])
	}

	n, err := hr.uint16("filename length")
	if err != nil {
		return nil, err
	}
	if n == 0 || n%IVSize != 0 {
		return nil, fmt.Errorf("%w: encrypted filename length %d is not a whole number of blocks", kerrors.ErrFormat, n)
	}
	if h.EncryptedFilename, err = hr.next(n, "encrypted filename"); err != nil {
		return nil, err
	}
	if h.FilenameIV, err = hr.next(IVSize, "filename IV"); err != nil {
		return nil, err
	}
	if h.ContentIV, err = hr.next(IVSize, "content IV"); err != nil {
		return nil, err
	}

	return h, nil
}

// ParseHeader parses a complete header held in memory, such as the one
// stored in a chunk manifest. Trailing bytes are an error.
func ParseHeader(b []byte) (*Header, error) {
	r := bytes.NewReader(b)
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d unexpected bytes after header", kerrors.ErrFormat, r.Len())
	}
	return h, nil
}

// Opened is the result of unlocking a header: everything the content
// cipher needs plus the original filename.
type Opened struct {
	Header           *Header
	SessionKey       []byte
	OriginalFilename string
	ContentIV        []byte

	// HeaderLen is the offset of the first content byte.
	HeaderLen int
}

// DecodeHeader reads a header from r and recovers the session key through
// resolver. On success r is positioned at the first content byte.
func DecodeHeader(r io.Reader, resolver KeyResolver) (*Opened, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return OpenHeader(h, resolver)
}

// OpenHeader recovers the session key and original filename of a parsed header.
//
// Returns ErrWrongKey if the selected private key cannot unwrap the session key.
// Returns ErrPassphrase if the selected private key cannot be loaded with its passphrase.
// Returns ErrCorruptData if the filename does not decrypt, which in password
// mode usually means the password is wrong.
func OpenHeader(h *Header, resolver KeyResolver) (*Opened, error) {
	var sessionKey []byte
	switch h.WrapType {
	case WrapSymmetric:
		password, err := resolver.ResolvePassword()
		if err != nil {
			return nil, err
		}
		sessionKey = DeriveKey(password, h.Salt)
	case WrapHybrid:
		var err error
		sessionKey, err = unwrapWithResolver(h.WrappedKey, resolver)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown key wrap type 0x%02x", kerrors.ErrFormat, byte(h.WrapType))
	}

	name, err := openCBC(sessionKey, h.FilenameIV, h.EncryptedFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt filename: %w", err)
	}
	if !utf8.Valid(name) {
		return nil, fmt.Errorf("failed to decrypt filename: %w", kerrors.ErrCorruptData)
	}

	return &Opened{
		Header:           h,
		SessionKey:       sessionKey,
		OriginalFilename: string(name),
		ContentIV:        h.ContentIV,
		HeaderLen:        h.Len(),
	}, nil
}

func unwrapWithResolver(wrapped []byte, resolver KeyResolver) ([]byte, error) {
	keys, err := resolver.ListPrivateKeys()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, kerrors.ErrNoPrivateKeys
	}

	name, err := resolver.SelectPrivateKey(keys)
	if err != nil {
		return nil, err
	}
	entry, ok := findEntry(keys, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, name)
	}

	priv, err := loadPrivateKey(entry, resolver)
	if err != nil {
		return nil, fmt.Errorf("loading private key %q: %w", entry.Name, err)
	}
	return UnwrapKey(wrapped, priv)
}

func loadPrivateKey(entry PrivateKeyEntry, resolver KeyResolver) (*rsa.PrivateKey, error) {
	if loader, ok := resolver.(PrivateKeyLoader); ok {
		return loader.LoadPrivateKey(entry)
	}

	var passphrase []byte
	if entry.Protected {
		p, err := resolver.ResolvePassphrase(entry.Name)
		if err != nil {
			return nil, err
		}
		passphrase = []byte(p)
	}
	return ParsePrivateKey(entry.PEM, passphrase)
}
