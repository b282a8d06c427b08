package workflows

import (
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyWorkflows(t *testing.T) {
	useTempSettings(t)
	path := filepath.Join(t.TempDir(), "keyring.enc")

	ring, err := InitKeyring(path, "master")
	require.NoError(t, err)
	_, err = InitKeyring(path, "master")
	assert.ErrorIs(t, err, kerrors.ErrKeyringExists)

	laptop, err := GenerateKey(ring, GenerateKeyOptions{Name: "laptop", Bits: 2048, Passphrase: "pp"})
	require.NoError(t, err)
	assert.True(t, laptop.Protected)
	assert.Equal(t, 2048, laptop.Bits)
	assert.True(t, strings.HasPrefix(laptop.Fingerprint, "SHA256:"))

	pub, err := ExportKey(ring, "laptop", false)
	require.NoError(t, err)
	alice, err := AddContact(ring, "alice", []byte(pub))
	require.NoError(t, err)
	assert.Equal(t, "contact", alice.Kind())
	assert.Equal(t, laptop.Fingerprint, alice.Fingerprint)

	// Changes are saved as they happen.
	reopened, err := keyring.Open(path, "master")
	require.NoError(t, err)
	list := ListKeys(reopened)
	require.Len(t, list, 2)
	assert.Equal(t, "laptop", list[0].Name)
	assert.Equal(t, "key pair", list[0].Kind())
	assert.Equal(t, "alice", list[1].Name)

	_, err = ExportKey(ring, "alice", true)
	assert.ErrorIs(t, err, kerrors.ErrKeyNotFound)
	priv, err := ExportKey(ring, "laptop", true)
	require.NoError(t, err)
	assert.Contains(t, priv, "OPENSSH PRIVATE KEY")

	require.NoError(t, DeleteKey(ring, "alice"))
	assert.ErrorIs(t, DeleteKey(ring, "alice"), kerrors.ErrKeyNotFound)

	ops := auditOps(t)
	assert.Equal(t, []string{
		"keys.init", "keys.init", "keys.generate", "keys.export", "keys.contact",
		"keys.export-private", "keys.export-private", "keys.delete", "keys.delete",
	}, ops)
}

func TestImportKey(t *testing.T) {
	useTempSettings(t)
	dir := t.TempDir()

	source, err := keyring.Create(filepath.Join(dir, "source.enc"), "m")
	require.NoError(t, err)
	one, err := source.GenerateKeyPair("one", 2048, "")
	require.NoError(t, err)
	two, err := source.GenerateKeyPair("two", 2048, "")
	require.NoError(t, err)

	ring, err := keyring.Create(filepath.Join(dir, "ring.enc"), "m")
	require.NoError(t, err)

	_, err = ImportKey(ring, "mismatch", []byte(one.PrivateKey), []byte(two.PublicKey), "")
	assert.ErrorIs(t, err, kerrors.ErrInvalidPublicKey)
	assert.Empty(t, ring.KeyPairs(), "a rejected import must not stay in the keyring")

	info, err := ImportKey(ring, "one", []byte(one.PrivateKey), []byte(one.PublicKey), "")
	require.NoError(t, err)
	assert.False(t, info.Protected)

	info, err = ImportKey(ring, "two", []byte(two.PrivateKey), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "two", info.Name)
	assert.Len(t, ring.KeyPairs(), 2)
}
