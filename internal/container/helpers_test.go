package container

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

var (
	testKeysOnce sync.Once
	testKeyA     *rsa.PrivateKey
	testKeyB     *rsa.PrivateKey
)

// testKeys returns two unrelated RSA key pairs shared by the package tests.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	testKeysOnce.Do(func() {
		var err error
		if testKeyA, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if testKeyB, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
	})
	return testKeyA, testKeyB
}

func publicPEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func privatePEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func protectedPEM(t *testing.T, key *rsa.PrivateKey, passphrase string) []byte {
	t.Helper()
	block, err := ssh.MarshalPrivateKeyWithPassphrase(key, "", []byte(passphrase))
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

// failingResolver fails the test if any key material is requested.
type failingResolver struct{ t *testing.T }

func (f failingResolver) ResolvePassword() (string, error) {
	f.t.Fatal("password requested")
	return "", nil
}

func (f failingResolver) ListPrivateKeys() ([]PrivateKeyEntry, error) {
	f.t.Fatal("private keys requested")
	return nil, nil
}

func (f failingResolver) SelectPrivateKey([]PrivateKeyEntry) (string, error) {
	f.t.Fatal("key selection requested")
	return "", nil
}

func (f failingResolver) ResolvePassphrase(string) (string, error) {
	f.t.Fatal("passphrase requested")
	return "", nil
}

// countingReader records how many bytes were consumed.
type countingReader struct {
	data []byte
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.read >= len(c.data) {
		return 0, io.EOF
	}
	n := copy(p, c.data[c.read:])
	c.read += n
	return n, nil
}
