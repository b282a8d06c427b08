// Package armor encrypts short text into copy-pasteable SECURE-TEXT blocks.
//
// A block is a BEGIN line, one line of standard base64 and an END line.
// Password blocks carry salt | iv | ciphertext; key pair blocks carry
// u16 wrapped-key length | wrapped key | iv | ciphertext. The ciphers and
// key derivation are the ones used by the container format.
package armor

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

const (
	SymmetricHeader = "-----BEGIN SECURE-TEXT (SYMMETRIC)-----"
	SymmetricFooter = "-----END SECURE-TEXT (SYMMETRIC)-----"
	HybridHeader    = "-----BEGIN SECURE-TEXT (HYBRID)-----"
	HybridFooter    = "-----END SECURE-TEXT (HYBRID)-----"
)

// UnwrapFunc recovers a session key wrapped for one of the user's key pairs.
type UnwrapFunc func(wrapped []byte) ([]byte, error)

// EncryptWithPassword returns a SYMMETRIC block for plaintext.
func EncryptWithPassword(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	salt, err := random(container.SaltSize)
	if err != nil {
		return "", err
	}
	iv, err := random(container.IVSize)
	if err != nil {
		return "", err
	}
	ct, err := seal(container.DeriveKey(password, salt), iv, plaintext)
	if err != nil {
		return "", err
	}

	payload := append(append(salt, iv...), ct...)
	return render(SymmetricHeader, SymmetricFooter, payload), nil
}

// EncryptForRecipient returns a HYBRID block readable by the holder of the
// private half of publicKeyPEM.
func EncryptForRecipient(plaintext []byte, publicKeyPEM []byte) (string, error) {
	pub, err := container.ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}
	sessionKey, err := container.CreateSessionKey()
	if err != nil {
		return "", err
	}
	wrapped, err := container.WrapKey(sessionKey, pub)
	if err != nil {
		return "", err
	}
	iv, err := random(container.IVSize)
	if err != nil {
		return "", err
	}
	ct, err := seal(sessionKey, iv, plaintext)
	if err != nil {
		return "", err
	}

	var payload bytes.Buffer
	_ = binary.Write(&payload, binary.BigEndian, uint16(len(wrapped)))
	payload.Write(wrapped)
	payload.Write(iv)
	payload.Write(ct)
	return render(HybridHeader, HybridFooter, payload.Bytes()), nil
}

// Detect reports which kind of block text is.
func Detect(text string) (container.WrapType, error) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, SymmetricHeader):
		return container.WrapSymmetric, nil
	case strings.HasPrefix(text, HybridHeader):
		return container.WrapHybrid, nil
	}
	return 0, kerrors.ErrInvalidArmor
}

// Decrypt opens a SECURE-TEXT block. password is only called for
// SYMMETRIC blocks and unwrap only for HYBRID ones.
//
// Returns ErrInvalidArmor if text is not a well-formed block.
// Returns ErrCorruptData if the padding is wrong, usually a wrong password.
func Decrypt(text string, password func() (string, error), unwrap UnwrapFunc) ([]byte, error) {
	mode, err := Detect(text)
	if err != nil {
		return nil, err
	}

	switch mode {
	case container.WrapSymmetric:
		payload, err := decodePayload(text, SymmetricHeader, SymmetricFooter)
		if err != nil {
			return nil, err
		}
		if len(payload) < container.SaltSize+container.IVSize {
			return nil, fmt.Errorf("%w: payload too short", kerrors.ErrInvalidArmor)
		}
		if password == nil {
			return nil, kerrors.ErrCancelled
		}
		pw, err := password()
		if err != nil {
			return nil, err
		}
		salt := payload[:container.SaltSize]
		iv := payload[container.SaltSize : container.SaltSize+container.IVSize]
		return open(container.DeriveKey(pw, salt), iv, payload[container.SaltSize+container.IVSize:])

	default:
		payload, err := decodePayload(text, HybridHeader, HybridFooter)
		if err != nil {
			return nil, err
		}
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: payload too short", kerrors.ErrInvalidArmor)
		}
		n := int(binary.BigEndian.Uint16(payload))
		if len(payload) < 2+n+container.IVSize {
			return nil, fmt.Errorf("%w: payload too short", kerrors.ErrInvalidArmor)
		}
		if unwrap == nil {
			return nil, kerrors.ErrNoPrivateKeys
		}
		sessionKey, err := unwrap(payload[2 : 2+n])
		if err != nil {
			return nil, err
		}
		iv := payload[2+n : 2+n+container.IVSize]
		return open(sessionKey, iv, payload[2+n+container.IVSize:])
	}
}

func render(header, footer string, payload []byte) string {
	return header + "\n" + base64.StdEncoding.EncodeToString(payload) + "\n" + footer
}

func decodePayload(text, header, footer string) ([]byte, error) {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, header)
	end := strings.Index(body, footer)
	if end < 0 {
		return nil, fmt.Errorf("%w: missing %s", kerrors.ErrInvalidArmor, footer)
	}
	body = strings.Join(strings.Fields(body[:end]), "")
	payload, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidArmor, err)
	}
	return payload, nil
}

func random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

func seal(key, iv, plaintext []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := container.NewEncryptWriter(&out, key, iv)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func open(key, iv, ciphertext []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := container.NewDecryptWriter(&out, key, iv)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(ciphertext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
