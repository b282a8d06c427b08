package container

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"golang.org/x/crypto/ssh"
)

// ParsePublicKey loads an RSA public key. PKIX ("PUBLIC KEY"), PKCS#1
// ("RSA PUBLIC KEY") and OpenSSH authorized_keys lines are accepted.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "ssh-") {
		sshKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(trimmed))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
		}
		cryptoKey, ok := sshKey.(ssh.CryptoPublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrInvalidPublicKey, sshKey.Type())
		}
		rsaPub, ok := cryptoKey.CryptoPublicKey().(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key", kerrors.ErrInvalidPublicKey)
		}
		return rsaPub, nil
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM block containing public key", kerrors.ErrInvalidPublicKey)
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
		}
		return pub, nil
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key", kerrors.ErrInvalidPublicKey)
		}
		return rsaPub, nil
	}
	return nil, fmt.Errorf("%w: unexpected PEM type %q", kerrors.ErrInvalidPublicKey, block.Type)
}

// ParsePrivateKey loads an RSA private key, decrypting it with passphrase
// when the key is protected. PKCS#1, PKCS#8, legacy encrypted PEM and
// OpenSSH keys are accepted.
//
// Returns ErrPassphraseRequired if the key is protected and passphrase is empty.
// Returns ErrPassphrase if the key is protected and passphrase does not open it.
func ParsePrivateKey(data []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM block containing private key", kerrors.ErrInvalidPrivateKey)
	}
	if block.Type == "ENCRYPTED PRIVATE KEY" {
		return nil, fmt.Errorf("%w: encrypted PKCS#8 keys are not supported, re-export the key in OpenSSH format", kerrors.ErrInvalidPrivateKey)
	}

	raw, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if !errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPrivateKey, err)
		}
		if len(passphrase) == 0 {
			return nil, kerrors.ErrPassphraseRequired
		}
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrPassphrase, err)
		}
	}

	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key (%T)", kerrors.ErrInvalidPrivateKey, raw)
	}
	return key, nil
}

// IsPrivateKeyProtected reports whether the private key needs a passphrase.
func IsPrivateKeyProtected(data []byte) bool {
	_, err := ssh.ParseRawPrivateKey(data)
	var missing *ssh.PassphraseMissingError
	return errors.As(err, &missing)
}

// WrapKey encrypts the session key for a recipient with RSA-OAEP(SHA-256).
func WrapKey(sessionKey []byte, pub *rsa.PublicKey) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), randReader, pub, sessionKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap session key: %w", err)
	}
	return wrapped, nil
}

// UnwrapKey recovers a session key wrapped by WrapKey.
// Returns ErrWrongKey if priv is not the matching private key.
func UnwrapKey(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	sessionKey, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrWrongKey, err)
	}
	if len(sessionKey) != KeySize {
		return nil, fmt.Errorf("%w: unwrapped key is %d bytes", kerrors.ErrWrongKey, len(sessionKey))
	}
	return sessionKey, nil
}
