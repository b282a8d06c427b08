package container

import (
	"crypto/aes"
	"crypto/rand"
)

// Magic identifies a Kete container. It is the first four bytes of every
// header, whether the header sits at the start of a .enc file or base64
// encoded inside a chunk manifest.
var Magic = [4]byte{0x8A, 0xDF, 0x04, 0xFA}

const (
	// Version is the newest header version this package reads and the one it writes.
	Version byte = 1

	// KeySize is the AES-256 session key size in bytes.
	KeySize = 32

	// SaltSize is the PBKDF2 salt size stored in password-mode headers.
	SaltSize = 16

	// IVSize is the CBC IV size, equal to the AES block size.
	IVSize = aes.BlockSize

	// Iterations is the PBKDF2-HMAC-SHA256 iteration count for password mode.
	Iterations = 480000

	// BufferSize is the read size used when streaming content.
	BufferSize = 1024 * 1024

	// ManifestName is the file name of the manifest in a chunked output directory.
	ManifestName = "manifest.json"

	// Extension is appended to single-file containers.
	Extension = ".enc"
)

// WrapType says how the session key is carried in the header.
type WrapType byte

const (
	// WrapSymmetric headers carry a salt; the key is derived from a password.
	WrapSymmetric WrapType = 0x01

	// WrapHybrid headers carry the session key wrapped with RSA-OAEP.
	WrapHybrid WrapType = 0x02
)

func (t WrapType) String() string {
	switch t {
	case WrapSymmetric:
		return "password"
	case WrapHybrid:
		return "key pair"
	}
	return "unknown"
}

// randReader is swapped out by tests that need reproducible salts and IVs.
var randReader = rand.Reader
