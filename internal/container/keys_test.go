package container

import (
	"crypto/x509"
	"encoding/pem"
	"testing"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestParsePublicKeyFormats(t *testing.T) {
	a, _ := testKeys(t)

	sshPub, err := ssh.NewPublicKey(&a.PublicKey)
	require.NoError(t, err)

	formats := map[string][]byte{
		"pkix":            publicPEM(t, a),
		"pkcs1":           pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&a.PublicKey)}),
		"authorized_keys": ssh.MarshalAuthorizedKey(sshPub),
	}
	for name, data := range formats {
		t.Run(name, func(t *testing.T) {
			pub, err := ParsePublicKey(data)
			require.NoError(t, err)
			assert.True(t, pub.Equal(&a.PublicKey))
		})
	}
}

func TestParsePublicKeyInvalid(t *testing.T) {
	_, err := ParsePublicKey([]byte("not a key"))
	assert.ErrorIs(t, err, kerrors.ErrInvalidPublicKey)

	_, err = ParsePublicKey(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
	assert.ErrorIs(t, err, kerrors.ErrInvalidPublicKey)
}

func TestParsePrivateKey(t *testing.T) {
	a, _ := testKeys(t)

	der, err := x509.MarshalPKCS8PrivateKey(a)
	require.NoError(t, err)
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	for name, data := range map[string][]byte{"pkcs1": privatePEM(t, a), "pkcs8": pkcs8} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, IsPrivateKeyProtected(data))
			key, err := ParsePrivateKey(data, nil)
			require.NoError(t, err)
			assert.True(t, key.Equal(a))
		})
	}

	t.Run("protected", func(t *testing.T) {
		data := protectedPEM(t, a, "s3cret")
		assert.True(t, IsPrivateKeyProtected(data))

		key, err := ParsePrivateKey(data, []byte("s3cret"))
		require.NoError(t, err)
		assert.True(t, key.Equal(a))

		_, err = ParsePrivateKey(data, []byte("wrong"))
		assert.ErrorIs(t, err, kerrors.ErrPassphrase)

		_, err = ParsePrivateKey(data, nil)
		assert.ErrorIs(t, err, kerrors.ErrPassphraseRequired)
	})

	t.Run("encrypted pkcs8", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: []byte{1, 2, 3}})
		_, err := ParsePrivateKey(data, []byte("x"))
		assert.ErrorIs(t, err, kerrors.ErrInvalidPrivateKey)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParsePrivateKey([]byte("garbage"), nil)
		assert.ErrorIs(t, err, kerrors.ErrInvalidPrivateKey)
	})
}

func TestUnwrapKeyWrongKey(t *testing.T) {
	a, b := testKeys(t)
	sessionKey, err := CreateSessionKey()
	require.NoError(t, err)

	wrapped, err := WrapKey(sessionKey, &a.PublicKey)
	require.NoError(t, err)

	_, err = UnwrapKey(wrapped, b)
	assert.ErrorIs(t, err, kerrors.ErrWrongKey)

	got, err := UnwrapKey(wrapped, a)
	require.NoError(t, err)
	assert.Equal(t, sessionKey, got)
}
