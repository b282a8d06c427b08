package container

import (
	"crypto/rsa"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// PrivateKeyEntry is one private key a KeyResolver can offer for hybrid decryption.
type PrivateKeyEntry struct {
	Name      string
	PEM       []byte
	Protected bool
}

// KeyResolver supplies key material while a header is being opened.
// Implementations typically prompt the user; returning ErrCancelled from
// any method aborts the operation.
type KeyResolver interface {
	// ResolvePassword is called once for password-mode headers.
	ResolvePassword() (string, error)

	// ListPrivateKeys returns the private keys available for hybrid headers.
	ListPrivateKeys() ([]PrivateKeyEntry, error)

	// SelectPrivateKey picks one of keys by name.
	SelectPrivateKey(keys []PrivateKeyEntry) (string, error)

	// ResolvePassphrase is called only when the selected key is protected.
	ResolvePassphrase(name string) (string, error)
}

// PrivateKeyLoader is an optional KeyResolver extension. When a resolver
// implements it, hybrid headers load the selected key through it instead of
// parsing the entry's PEM, so the resolver can keep unlocked keys between
// containers.
type PrivateKeyLoader interface {
	LoadPrivateKey(entry PrivateKeyEntry) (*rsa.PrivateKey, error)
}

// StaticResolver answers from fixed values. It is used when secrets come
// from flags or stdin rather than interactive prompts.
type StaticResolver struct {
	Password    string
	Keys        []PrivateKeyEntry
	KeyName     string
	Passphrases map[string]string
}

// ResolvePassword returns the configured password.
func (s StaticResolver) ResolvePassword() (string, error) {
	if s.Password == "" {
		return "", kerrors.ErrCancelled
	}
	return s.Password, nil
}

// ListPrivateKeys returns the configured keys.
func (s StaticResolver) ListPrivateKeys() ([]PrivateKeyEntry, error) {
	return s.Keys, nil
}

// SelectPrivateKey returns KeyName, or the only key when KeyName is empty.
func (s StaticResolver) SelectPrivateKey(keys []PrivateKeyEntry) (string, error) {
	if s.KeyName != "" {
		return s.KeyName, nil
	}
	if len(keys) == 1 {
		return keys[0].Name, nil
	}
	return "", kerrors.ErrCancelled
}

// ResolvePassphrase returns the configured passphrase for name.
func (s StaticResolver) ResolvePassphrase(name string) (string, error) {
	return s.Passphrases[name], nil
}

func findEntry(keys []PrivateKeyEntry, name string) (PrivateKeyEntry, bool) {
	for _, k := range keys {
		if k.Name == name {
			return k, true
		}
	}
	return PrivateKeyEntry{}, false
}
