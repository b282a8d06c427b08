package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifySignature(t *testing.T) {
	useTempSettings(t)
	dir := t.TempDir()
	ctx := context.Background()

	ring, err := keyring.Create(filepath.Join(dir, "keyring.enc"), "master")
	require.NoError(t, err)
	_, err = ring.GenerateKeyPair("me", 2048, "")
	require.NoError(t, err)

	other, err := keyring.Create(filepath.Join(dir, "other.enc"), "master")
	require.NoError(t, err)
	bob, err := other.GenerateKeyPair("bob", 2048, "")
	require.NoError(t, err)
	_, err = ring.AddContact("bob", []byte(bob.PublicKey))
	require.NoError(t, err)

	doc := writeFile(t, filepath.Join(dir, "contract.pdf"), "signed terms")

	result, err := Sign(ctx, ring, SignOptions{Input: doc})
	require.NoError(t, err)
	assert.Equal(t, doc+".sig", result.Signature)
	assert.Equal(t, "me", result.KeyName)

	signer, err := VerifySignature(ctx, ring, VerifySignatureOptions{Input: doc, Signer: "me"})
	require.NoError(t, err)
	assert.Equal(t, "me", signer)

	// Without a signer every key is tried.
	signer, err = VerifySignature(ctx, ring, VerifySignatureOptions{Input: doc})
	require.NoError(t, err)
	assert.Equal(t, "me", signer)

	_, err = VerifySignature(ctx, ring, VerifySignatureOptions{Input: doc, Signer: "bob"})
	assert.ErrorIs(t, err, kerrors.ErrBadSignature)

	// bob's signature is recognised through the contact.
	bobSig := filepath.Join(dir, "bob.sig")
	_, err = Sign(ctx, other, SignOptions{Input: doc, Output: bobSig})
	require.NoError(t, err)
	signer, err = VerifySignature(ctx, ring, VerifySignatureOptions{Input: doc, Signature: bobSig})
	require.NoError(t, err)
	assert.Equal(t, "bob", signer)

	require.NoError(t, os.WriteFile(doc, []byte("signed termz"), 0644))
	_, err = VerifySignature(ctx, ring, VerifySignatureOptions{Input: doc})
	assert.ErrorIs(t, err, kerrors.ErrBadSignature)

	assert.Equal(t, []string{
		"sign", "verify-signature", "verify-signature", "verify-signature",
		"sign", "verify-signature", "verify-signature",
	}, auditOps(t))
}

func TestSignRefusesOverwrite(t *testing.T) {
	useTempSettings(t)
	dir := t.TempDir()
	ring, err := keyring.Create(filepath.Join(dir, "keyring.enc"), "master")
	require.NoError(t, err)
	_, err = ring.GenerateKeyPair("me", 2048, "")
	require.NoError(t, err)

	doc := writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, doc+".sig", "old")

	_, err = Sign(context.Background(), ring, SignOptions{Input: doc})
	require.Error(t, err)
	assert.Equal(t, "old", readFile(t, doc+".sig"))

	_, err = Sign(context.Background(), ring, SignOptions{Input: doc, Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, "old", readFile(t, doc+".sig"))
}

func TestSignKeySelection(t *testing.T) {
	useTempSettings(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "keyring.enc")
	ring, err := keyring.Create(path, "master")
	require.NoError(t, err)
	doc := writeFile(t, filepath.Join(dir, "a.txt"), "a")

	_, err = Sign(context.Background(), ring, SignOptions{Input: doc})
	assert.ErrorIs(t, err, kerrors.ErrNoPrivateKeys)

	_, err = ring.GenerateKeyPair("work", 2048, "pp")
	require.NoError(t, err)
	_, err = ring.GenerateKeyPair("home", 2048, "")
	require.NoError(t, err)
	_, err = ring.AddContact("carol", []byte(mustExport(t, ring, "home")))
	require.NoError(t, err)
	require.NoError(t, ring.Save())

	_, err = Sign(context.Background(), ring, SignOptions{Input: doc, Force: true})
	assert.ErrorIs(t, err, kerrors.ErrCancelled, "several key pairs and no way to choose")

	_, err = Sign(context.Background(), ring, SignOptions{Input: doc, KeyName: "carol", Force: true})
	assert.ErrorIs(t, err, kerrors.ErrKeyNotFound, "contacts cannot sign")

	reopened, err := keyring.Open(path, "master")
	require.NoError(t, err)
	_, err = Sign(context.Background(), reopened, SignOptions{
		Input:      doc,
		KeyName:    "work",
		Force:      true,
		Passphrase: func(string) (string, error) { return "wrong", nil },
	})
	assert.ErrorIs(t, err, kerrors.ErrPassphrase)

	result, err := Sign(context.Background(), reopened, SignOptions{
		Input:  doc,
		Force:  true,
		Select: func(names []string) (string, error) { return names[0], nil },
		Passphrase: func(name string) (string, error) {
			assert.Equal(t, "work", name)
			return "pp", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "work", result.KeyName)
}

func mustExport(t *testing.T, ring *keyring.Keyring, name string) string {
	t.Helper()
	pub, err := ring.ExportPublic(name)
	require.NoError(t, err)
	return pub
}
