package workflows

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/PolarWolf314/kete/internal/signature"
	"github.com/PolarWolf314/kete/internal/utils"
)

// SignOptions configures Sign.
type SignOptions struct {
	Input string

	// Output defaults to Input + ".sig".
	Output string

	// KeyName picks the signing key pair. When empty and the keyring has one
	// key pair, that one is used; otherwise Select is asked.
	KeyName string
	Select  func(names []string) (string, error)

	// Passphrase is called when the key pair is protected and still locked.
	Passphrase keyring.PassphraseFunc

	Force bool
}

// SignResult describes a written signature.
type SignResult struct {
	Signature string
	KeyName   string
}

// Sign writes an RSA-PSS signature of opts.Input made with one of the
// keyring's key pairs.
//
// Returns ErrKeyNotFound if KeyName is not a key pair.
// Returns ErrPassphrase if a protected key cannot be unlocked.
func Sign(ctx context.Context, ring *keyring.Keyring, opts SignOptions) (*SignResult, error) {
	entry := audit.LogWithUser("sign")
	entry.JobID = jobID(ctx)
	entry.Inputs = []string{opts.Input}

	result, err := sign(ctx, ring, opts)
	if result != nil {
		entry.KeyName = result.KeyName
		entry.Outputs = []string{result.Signature}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)

	return result, err
}

func sign(ctx context.Context, ring *keyring.Keyring, opts SignOptions) (*SignResult, error) {
	output := opts.Output
	if output == "" {
		output = opts.Input + signature.Extension
	}
	if utils.FileExists(output) && !opts.Force {
		return nil, fmt.Errorf("%s already exists, use --force to overwrite", output)
	}

	name, err := signingKey(ring, opts)
	if err != nil {
		return nil, err
	}
	result := &SignResult{KeyName: name}
	key, err := ring.UnlockKey(name, opts.Passphrase)
	if err != nil {
		return result, err
	}

	in, err := os.Open(opts.Input)
	if err != nil {
		return result, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, opts.Input)
	}
	defer in.Close()

	sig, err := signature.Sign(ctx, in, key)
	if err != nil {
		return result, err
	}
	if err := writeAtomic(output, 0644, func(w io.Writer) error {
		_, err := w.Write(sig)
		return err
	}); err != nil {
		return result, err
	}
	result.Signature = output
	return result, nil
}

// signingKey chooses the key pair the same way hybrid decryption does.
func signingKey(ring *keyring.Keyring, opts SignOptions) (string, error) {
	r := ring.Resolver()
	r.KeyName = opts.KeyName
	r.Select = opts.Select
	keys, err := r.ListPrivateKeys()
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", kerrors.ErrNoPrivateKeys
	}
	return r.SelectPrivateKey(keys)
}

// VerifySignatureOptions configures VerifySignature.
type VerifySignatureOptions struct {
	Input string

	// Signature defaults to Input + ".sig".
	Signature string

	// Signer names the key pair or contact expected to have signed. When
	// empty every key pair and contact is tried.
	Signer string
}

// VerifySignature checks a signature of opts.Input and returns the name
// of the key pair or contact it belongs to.
//
// Returns ErrBadSignature if it does not match.
// Returns ErrKeyNotFound if Signer is not in the keyring.
func VerifySignature(ctx context.Context, ring *keyring.Keyring, opts VerifySignatureOptions) (string, error) {
	sigPath := opts.Signature
	if sigPath == "" {
		sigPath = opts.Input + signature.Extension
	}

	entry := audit.LogWithUser("verify-signature")
	entry.JobID = jobID(ctx)
	entry.Inputs = []string{opts.Input, sigPath}

	signer, err := verifySignature(ctx, ring, opts.Input, sigPath, opts.Signer)
	entry.KeyName = signer
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)

	return signer, err
}

func verifySignature(ctx context.Context, ring *keyring.Keyring, input, sigPath, signer string) (string, error) {
	candidates, err := signerKeys(ring, signer)
	if err != nil {
		return "", err
	}

	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, sigPath)
	}
	in, err := os.Open(input)
	if err != nil {
		return "", fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, input)
	}
	defer in.Close()

	digest, err := signature.Digest(ctx, in)
	if err != nil {
		return "", err
	}
	for _, c := range candidates {
		pub, err := container.ParsePublicKey([]byte(c.pem))
		if err != nil {
			return "", fmt.Errorf("public key %q: %w", c.name, err)
		}
		if signature.VerifyDigest(digest, sig, pub) == nil {
			return c.name, nil
		}
	}
	return signer, kerrors.ErrBadSignature
}

type namedKey struct {
	name string
	pem  string
}

// signerKeys returns the public key of signer, or every public key in the
// keyring with key pairs first.
func signerKeys(ring *keyring.Keyring, signer string) ([]namedKey, error) {
	if signer != "" {
		pem, err := ring.PublicKeyPEMFor(signer)
		if err != nil {
			return nil, err
		}
		return []namedKey{{signer, pem}}, nil
	}

	var keys []namedKey
	for _, p := range ring.KeyPairs() {
		keys = append(keys, namedKey{p.Name, p.PublicKey})
	}
	for _, c := range ring.Contacts() {
		keys = append(keys, namedKey{c.Name, c.PublicKey})
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: the keyring has no public keys", kerrors.ErrKeyNotFound)
	}
	return keys, nil
}
