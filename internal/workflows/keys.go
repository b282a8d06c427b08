package workflows

import (
	"fmt"
	"sort"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/keyring"
)

// KeyInfo summarises a key pair or contact for listing.
type KeyInfo struct {
	Name        string
	Contact     bool
	Bits        int
	Protected   bool
	Fingerprint string
}

// Kind is "key pair" or "contact".
func (k KeyInfo) Kind() string {
	if k.Contact {
		return "contact"
	}
	return "key pair"
}

// InitKeyring creates an empty keyring at path.
//
// Returns ErrKeyringExists if one is already there.
func InitKeyring(path, masterPassword string) (*keyring.Keyring, error) {
	ring, err := keyring.Create(path, masterPassword)
	logKeys("keys.init", "", err)
	return ring, err
}

// GenerateKeyOptions configures GenerateKey.
type GenerateKeyOptions struct {
	Name string

	// Bits defaults to keyring.DefaultKeySize.
	Bits int

	// Passphrase protects the private key when set.
	Passphrase string
}

// GenerateKey creates a key pair and saves the keyring.
func GenerateKey(ring *keyring.Keyring, opts GenerateKeyOptions) (*KeyInfo, error) {
	if opts.Bits == 0 {
		opts.Bits = keyring.DefaultKeySize
	}
	info, err := func() (*KeyInfo, error) {
		pair, err := ring.GenerateKeyPair(opts.Name, opts.Bits, opts.Passphrase)
		if err != nil {
			return nil, err
		}
		if err := ring.Save(); err != nil {
			return nil, err
		}
		return pairInfo(*pair), nil
	}()
	logKeys("keys.generate", opts.Name, err)
	return info, err
}

// ImportKey adds an existing private key. When publicKey is given it must
// be the public half of privateKey.
//
// Returns ErrPassphrase if passphrase does not unlock a protected key.
// Returns ErrInvalidPublicKey if publicKey does not match.
func ImportKey(ring *keyring.Keyring, name string, privateKey, publicKey []byte, passphrase string) (*KeyInfo, error) {
	info, err := func() (*KeyInfo, error) {
		pair, err := ring.ImportKeyPair(name, privateKey, passphrase)
		if err != nil {
			return nil, err
		}
		if len(publicKey) > 0 {
			if err := samePublicKey(pair.PublicKey, publicKey); err != nil {
				_ = ring.Delete(name)
				return nil, err
			}
		}
		if err := ring.Save(); err != nil {
			return nil, err
		}
		return pairInfo(*pair), nil
	}()
	logKeys("keys.import", name, err)
	return info, err
}

func samePublicKey(storedPEM string, given []byte) error {
	stored, err := container.ParsePublicKey([]byte(storedPEM))
	if err != nil {
		return err
	}
	other, err := container.ParsePublicKey(given)
	if err != nil {
		return err
	}
	if !stored.Equal(other) {
		return fmt.Errorf("%w: public key does not match the private key", kerrors.ErrInvalidPublicKey)
	}
	return nil
}

// AddContact stores someone else's public key and saves the keyring.
func AddContact(ring *keyring.Keyring, name string, publicKey []byte) (*KeyInfo, error) {
	info, err := func() (*KeyInfo, error) {
		contact, err := ring.AddContact(name, publicKey)
		if err != nil {
			return nil, err
		}
		if err := ring.Save(); err != nil {
			return nil, err
		}
		return contactInfo(*contact), nil
	}()
	logKeys("keys.contact", name, err)
	return info, err
}

// ListKeys returns key pairs then contacts, each sorted by name.
func ListKeys(ring *keyring.Keyring) []KeyInfo {
	var pairs, contacts []KeyInfo
	for _, p := range ring.KeyPairs() {
		pairs = append(pairs, *pairInfo(p))
	}
	for _, c := range ring.Contacts() {
		contacts = append(contacts, *contactInfo(c))
	}
	byName := func(s []KeyInfo) {
		sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
	}
	byName(pairs)
	byName(contacts)
	return append(pairs, contacts...)
}

// ExportKey returns the public key PEM of a key pair or contact, or the
// stored private key PEM of a key pair when private is set.
func ExportKey(ring *keyring.Keyring, name string, private bool) (string, error) {
	var (
		pem string
		err error
	)
	op := "keys.export"
	if private {
		op = "keys.export-private"
		pem, err = ring.ExportPrivate(name)
	} else {
		pem, err = ring.ExportPublic(name)
	}
	logKeys(op, name, err)
	return pem, err
}

// DeleteKey removes a key pair or contact and saves the keyring.
func DeleteKey(ring *keyring.Keyring, name string) error {
	err := ring.Delete(name)
	if err == nil {
		err = ring.Save()
	}
	logKeys("keys.delete", name, err)
	return err
}

func pairInfo(p keyring.KeyPair) *KeyInfo {
	fp, _ := keyring.Fingerprint(p.PublicKey)
	return &KeyInfo{Name: p.Name, Bits: p.Bits(), Protected: p.IsProtected(), Fingerprint: fp}
}

func contactInfo(c keyring.Contact) *KeyInfo {
	info := &KeyInfo{Name: c.Name, Contact: true}
	info.Fingerprint, _ = keyring.Fingerprint(c.PublicKey)
	if pub, err := container.ParsePublicKey([]byte(c.PublicKey)); err == nil {
		info.Bits = pub.N.BitLen()
	}
	return info
}

func logKeys(op, name string, err error) {
	entry := audit.LogWithUser(op)
	entry.KeyName = name
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)
}
