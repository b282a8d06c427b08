package signature

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// Extension is appended to a file's name to get its default signature path.
const Extension = ".sig"

const readSize = 1 << 20

// pssOptions uses the largest salt the key allows when signing and detects
// the salt length when verifying.
var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA256}

// Digest returns the SHA-256 of everything read from r, checking ctx
// between reads.
func Digest(ctx context.Context, r io.Reader) ([]byte, error) {
	h := sha256.New()
	buf := make([]byte, readSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, kerrors.ErrCancelled
		}
		n, err := r.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			return h.Sum(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}
}

// Sign returns an RSA-PSS signature over the contents of r.
func Sign(ctx context.Context, r io.Reader, key *rsa.PrivateKey) ([]byte, error) {
	digest, err := Digest(ctx, r)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest, pssOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Verify checks sig against the contents of r.
//
// Returns ErrBadSignature if sig was not made by the private half of key
// over exactly these contents.
func Verify(ctx context.Context, r io.Reader, sig []byte, key *rsa.PublicKey) error {
	digest, err := Digest(ctx, r)
	if err != nil {
		return err
	}
	return VerifyDigest(digest, sig, key)
}

// VerifyDigest is Verify for a digest already computed with Digest.
func VerifyDigest(digest, sig []byte, key *rsa.PublicKey) error {
	if err := rsa.VerifyPSS(key, crypto.SHA256, digest, sig, pssOptions); err != nil {
		return kerrors.ErrBadSignature
	}
	return nil
}
