package keyring

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// PassphraseFunc asks for the passphrase of the named key pair.
type PassphraseFunc func(name string) (string, error)

// Resolver lets the container codec open headers with this keyring's key
// pairs. Keys unlocked earlier in the session are offered without asking
// for their passphrase again.
type Resolver struct {
	ring *Keyring

	// KeyName selects a key pair for hybrid headers. When empty and the
	// keyring holds exactly one key pair, that one is used.
	KeyName string

	// Password answers password-mode headers.
	Password func() (string, error)

	// Passphrase is called for protected key pairs that are still locked.
	Passphrase PassphraseFunc

	// Select picks a key pair when several are available and KeyName is empty.
	Select func(names []string) (string, error)
}

var (
	_ container.KeyResolver      = (*Resolver)(nil)
	_ container.PrivateKeyLoader = (*Resolver)(nil)
)

// Resolver returns a container.KeyResolver backed by k.
func (k *Keyring) Resolver() *Resolver {
	return &Resolver{ring: k}
}

func (r *Resolver) ResolvePassword() (string, error) {
	if r.Password == nil {
		return "", kerrors.ErrCancelled
	}
	return r.Password()
}

func (r *Resolver) ListPrivateKeys() ([]container.PrivateKeyEntry, error) {
	pairs := r.ring.KeyPairs()
	entries := make([]container.PrivateKeyEntry, 0, len(pairs))
	for _, p := range pairs {
		if key := r.ring.cached(p.Name); key != nil {
			entries = append(entries, container.PrivateKeyEntry{Name: p.Name, PEM: marshalUnlocked(key)})
			continue
		}
		entries = append(entries, container.PrivateKeyEntry{
			Name:      p.Name,
			PEM:       []byte(p.PrivateKey),
			Protected: p.IsProtected(),
		})
	}
	return entries, nil
}

func (r *Resolver) SelectPrivateKey(keys []container.PrivateKeyEntry) (string, error) {
	if r.KeyName != "" {
		return r.KeyName, nil
	}
	if len(keys) == 1 {
		return keys[0].Name, nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	if r.Select == nil {
		return "", fmt.Errorf("%w: %d key pairs available, choose one with --key", kerrors.ErrCancelled, len(keys))
	}
	return r.Select(names)
}

func (r *Resolver) ResolvePassphrase(name string) (string, error) {
	if r.Passphrase == nil {
		return "", nil
	}
	return r.Passphrase(name)
}

// LoadPrivateKey unlocks entry through the keyring so the key stays cached
// for later containers in the session.
func (r *Resolver) LoadPrivateKey(entry container.PrivateKeyEntry) (*rsa.PrivateKey, error) {
	if _, ok := r.ring.findPair(entry.Name); !ok {
		return container.ParsePrivateKey(entry.PEM, nil)
	}
	return r.ring.UnlockKey(entry.Name, r.Passphrase)
}

func marshalUnlocked(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func (k *Keyring) cache(name string, key *rsa.PrivateKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.unlocked[name] = key
}

func (k *Keyring) cached(name string) *rsa.PrivateKey {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.unlocked[name]
}

// UnlockKey loads the private key of a key pair, asking for its passphrase
// through passphrase when it is protected. Unlocked keys are kept for the
// lifetime of k.
func (k *Keyring) UnlockKey(name string, passphrase PassphraseFunc) (*rsa.PrivateKey, error) {
	if key := k.cached(name); key != nil {
		return key, nil
	}
	i, ok := k.findPair(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, name)
	}
	pair := k.data.MyKeyPairs[i]

	var secret []byte
	if pair.IsProtected() {
		if passphrase == nil {
			return nil, kerrors.ErrPassphraseRequired
		}
		p, err := passphrase(name)
		if err != nil {
			return nil, err
		}
		secret = []byte(p)
	}

	key, err := container.ParsePrivateKey([]byte(pair.PrivateKey), secret)
	if err != nil {
		return nil, err
	}
	k.cache(name, key)
	return key, nil
}

// UnwrapSessionKey tries every key pair against a wrapped session key:
// unlocked keys first, then the locked ones, asking for passphrases as
// needed. A declined or wrong passphrase moves on to the next key.
//
// Returns ErrNoPrivateKeys if the keyring has no key pairs.
// Returns ErrWrongKey if no key pair unwraps the session key.
func (k *Keyring) UnwrapSessionKey(wrapped []byte, passphrase PassphraseFunc) ([]byte, error) {
	pairs := k.KeyPairs()
	if len(pairs) == 0 {
		return nil, kerrors.ErrNoPrivateKeys
	}

	for _, p := range pairs {
		if key := k.cached(p.Name); key != nil {
			if sessionKey, err := container.UnwrapKey(wrapped, key); err == nil {
				return sessionKey, nil
			}
		}
	}

	var passErr error
	for _, p := range pairs {
		if k.cached(p.Name) != nil {
			continue
		}
		key, err := k.UnlockKey(p.Name, passphrase)
		if err != nil {
			if errors.Is(err, kerrors.ErrPassphrase) {
				passErr = err
			}
			continue
		}
		if sessionKey, err := container.UnwrapKey(wrapped, key); err == nil {
			return sessionKey, nil
		}
	}

	if passErr != nil {
		return nil, fmt.Errorf("%w: no suitable private key found, or passphrase was incorrect (%w)", kerrors.ErrWrongKey, passErr)
	}
	return nil, fmt.Errorf("%w: no suitable private key found", kerrors.ErrWrongKey)
}
