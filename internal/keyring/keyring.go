package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2-HMAC-SHA256 iteration count for the master key.
	Iterations = 390000

	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// KeyPair is one of the user's own RSA key pairs. PrivateKey is PEM and may
// be passphrase-protected (OpenSSH format) independently of the keyring.
type KeyPair struct {
	Name       string `json:"name"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// Contact is someone else's public key.
type Contact struct {
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
}

// Data is the plaintext keyring document.
type Data struct {
	MyKeyPairs        []KeyPair `json:"my_key_pairs"`
	ContactPublicKeys []Contact `json:"contact_public_keys"`
}

// Keyring is an unlocked keyring file. The master key stays in memory for
// the lifetime of the value so that Save does not need the password again.
type Keyring struct {
	path string
	salt []byte
	key  [keySize]byte
	data Data

	mu       sync.Mutex
	unlocked map[string]*rsa.PrivateKey
}

// Exists reports whether a keyring file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Create makes a new, empty keyring at path protected by masterPassword.
func Create(path, masterPassword string) (*Keyring, error) {
	if Exists(path) {
		return nil, fmt.Errorf("%w at %s", kerrors.ErrKeyringExists, path)
	}
	if masterPassword == "" {
		return nil, fmt.Errorf("master password cannot be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate keyring salt: %w", err)
	}
	k := newKeyring(path, salt, masterPassword)
	if err := k.Save(); err != nil {
		return nil, err
	}
	return k, nil
}

// Open reads and decrypts the keyring at path.
//
// Returns ErrKeyringNotFound if there is no file at path.
// Returns ErrKeyringLocked if masterPassword does not decrypt it.
func Open(path, masterPassword string) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", kerrors.ErrKeyringNotFound, path)
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: keyring file is truncated", kerrors.ErrKeyringLocked)
	}

	k := newKeyring(path, raw[:saltSize], masterPassword)

	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, &k.key)
	if !ok {
		return nil, kerrors.ErrKeyringLocked
	}
	if err := json.Unmarshal(plaintext, &k.data); err != nil {
		return nil, fmt.Errorf("%w: keyring contents are not valid JSON: %v", kerrors.ErrKeyringLocked, err)
	}
	return k, nil
}

func newKeyring(path string, salt []byte, masterPassword string) *Keyring {
	k := &Keyring{
		path:     path,
		salt:     append([]byte(nil), salt...),
		unlocked: make(map[string]*rsa.PrivateKey),
	}
	copy(k.key[:], pbkdf2.Key([]byte(masterPassword), k.salt, Iterations, keySize, sha256.New))
	return k
}

// Path returns the keyring file location.
func (k *Keyring) Path() string {
	return k.path
}

// Save encrypts the keyring under a fresh nonce and writes it atomically.
func (k *Keyring) Save() error {
	doc := k.data
	if doc.MyKeyPairs == nil {
		doc.MyKeyPairs = []KeyPair{}
	}
	if doc.ContactPublicKeys == nil {
		doc.ContactPublicKeys = []Contact{}
	}
	plaintext, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal keyring: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := append(append([]byte(nil), k.salt...), nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, &k.key)

	dir := filepath.Dir(k.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keyring directory at %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".keyring-*")
	if err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	if err := os.Rename(tmpName, k.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

// KeyPairs returns the user's own key pairs.
func (k *Keyring) KeyPairs() []KeyPair {
	return append([]KeyPair(nil), k.data.MyKeyPairs...)
}

// Contacts returns the stored contact public keys.
func (k *Keyring) Contacts() []Contact {
	return append([]Contact(nil), k.data.ContactPublicKeys...)
}

func (k *Keyring) findPair(name string) (int, bool) {
	for i, p := range k.data.MyKeyPairs {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (k *Keyring) findContact(name string) (int, bool) {
	for i, c := range k.data.ContactPublicKeys {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// nameInUse reports whether name is taken by a key pair or a contact. Both
// share one namespace so a recipient name is never ambiguous.
func (k *Keyring) nameInUse(name string) bool {
	_, pair := k.findPair(name)
	_, contact := k.findContact(name)
	return pair || contact
}
