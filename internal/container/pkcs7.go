package container

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// pkcs7Pad appends RFC 5652 padding to b. At least one byte is always added.
func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	for i := 0; i < n; i++ {
		b = append(b, byte(n))
	}
	return b
}

// pkcs7Unpad strips padding from the final plaintext block(s).
func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, kerrors.ErrCorruptData
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, kerrors.ErrCorruptData
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, kerrors.ErrCorruptData
		}
	}
	return b[:len(b)-n], nil
}

// sealCBC pads and encrypts a short value such as the original filename.
func sealCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	padded := pkcs7Pad(append([]byte(nil), plaintext...))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// openCBC reverses sealCBC. Any length or padding problem is ErrCorruptData.
func openCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, kerrors.ErrCorruptData
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}
