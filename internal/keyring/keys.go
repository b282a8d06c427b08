package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"golang.org/x/crypto/ssh"
)

// KeySizes are the RSA modulus sizes GenerateKeyPair accepts.
var KeySizes = []int{2048, 3072, 4096}

// DefaultKeySize is used when no size is given.
const DefaultKeySize = 4096

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	return nil
}

// GenerateKeyPair creates a new RSA key pair called name. With a passphrase
// the private key is stored in OpenSSH format encrypted under it; without
// one it is stored as PKCS#1 PEM.
func (k *Keyring) GenerateKeyPair(name string, bits int, passphrase string) (*KeyPair, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if k.nameInUse(name) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyExists, name)
	}
	if !validKeySize(bits) {
		return nil, fmt.Errorf("%w: %d bits", kerrors.ErrInvalidKeySize, bits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	privPEM, err := encodePrivateKey(privateKey, name, passphrase)
	if err != nil {
		return nil, err
	}
	pubPEM, err := encodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	pair := KeyPair{Name: name, PublicKey: pubPEM, PrivateKey: privPEM}
	k.data.MyKeyPairs = append(k.data.MyKeyPairs, pair)
	k.cache(name, privateKey)
	return &pair, nil
}

// ImportKeyPair adds an existing private key. The PEM is stored unchanged,
// so a protected key stays protected; passphrase is only used to check it
// and to derive the public half.
func (k *Keyring) ImportKeyPair(name string, privateKeyPEM []byte, passphrase string) (*KeyPair, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if k.nameInUse(name) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyExists, name)
	}

	privateKey, err := container.ParsePrivateKey(privateKeyPEM, []byte(passphrase))
	if err != nil {
		return nil, err
	}
	pubPEM, err := encodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	pair := KeyPair{Name: name, PublicKey: pubPEM, PrivateKey: string(privateKeyPEM)}
	k.data.MyKeyPairs = append(k.data.MyKeyPairs, pair)
	k.cache(name, privateKey)
	return &pair, nil
}

// AddContact stores someone else's public key. PEM (PKIX or PKCS#1) and
// OpenSSH authorized_keys lines are accepted; the key is stored as PKIX PEM.
func (k *Keyring) AddContact(name string, publicKey []byte) (*Contact, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if k.nameInUse(name) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyExists, name)
	}

	pub, err := container.ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	pubPEM, err := encodePublicKey(pub)
	if err != nil {
		return nil, err
	}

	contact := Contact{Name: name, PublicKey: pubPEM}
	k.data.ContactPublicKeys = append(k.data.ContactPublicKeys, contact)
	return &contact, nil
}

// Delete removes the key pair or contact called name.
func (k *Keyring) Delete(name string) error {
	if i, ok := k.findPair(name); ok {
		k.data.MyKeyPairs = append(k.data.MyKeyPairs[:i], k.data.MyKeyPairs[i+1:]...)
		k.mu.Lock()
		delete(k.unlocked, name)
		k.mu.Unlock()
		return nil
	}
	if i, ok := k.findContact(name); ok {
		k.data.ContactPublicKeys = append(k.data.ContactPublicKeys[:i], k.data.ContactPublicKeys[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, name)
}

// PublicKeyPEMFor returns the public key of recipient, which may be one of
// the user's own key pairs or a contact.
func (k *Keyring) PublicKeyPEMFor(recipient string) (string, error) {
	if i, ok := k.findPair(recipient); ok {
		return k.data.MyKeyPairs[i].PublicKey, nil
	}
	if i, ok := k.findContact(recipient); ok {
		return k.data.ContactPublicKeys[i].PublicKey, nil
	}
	return "", fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, recipient)
}

// ExportPublic returns the public key PEM for a key pair or contact.
func (k *Keyring) ExportPublic(name string) (string, error) {
	return k.PublicKeyPEMFor(name)
}

// ExportPrivate returns the private key PEM of one of the user's key pairs,
// exactly as stored.
func (k *Keyring) ExportPrivate(name string) (string, error) {
	i, ok := k.findPair(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, name)
	}
	return k.data.MyKeyPairs[i].PrivateKey, nil
}

// IsProtected reports whether the key pair's private key needs a passphrase.
func (p KeyPair) IsProtected() bool {
	return container.IsPrivateKeyProtected([]byte(p.PrivateKey))
}

// Bits returns the modulus size of the key pair, or 0 if it cannot be parsed.
func (p KeyPair) Bits() int {
	pub, err := container.ParsePublicKey([]byte(p.PublicKey))
	if err != nil {
		return 0
	}
	return pub.N.BitLen()
}

// Fingerprint returns the OpenSSH SHA256 fingerprint of a PEM public key.
func Fingerprint(publicKeyPEM string) (string, error) {
	pub, err := container.ParsePublicKey([]byte(publicKeyPEM))
	if err != nil {
		return "", err
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
	}
	return ssh.FingerprintSHA256(sshPub), nil
}

func validKeySize(bits int) bool {
	for _, s := range KeySizes {
		if s == bits {
			return true
		}
	}
	return false
}

func encodePrivateKey(key *rsa.PrivateKey, comment, passphrase string) (string, error) {
	if passphrase == "" {
		block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
		return string(pem.EncodeToMemory(block)), nil
	}
	block, err := ssh.MarshalPrivateKeyWithPassphrase(key, comment, []byte(passphrase))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt private key: %w", err)
	}
	return string(pem.EncodeToMemory(block)), nil
}

func encodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
