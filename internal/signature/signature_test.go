package signature

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestSignAndVerify(t *testing.T) {
	key := testKey(t)
	content := strings.Repeat("contract terms\n", 100000)

	sig, err := Sign(context.Background(), strings.NewReader(content), key)
	require.NoError(t, err)
	assert.Len(t, sig, key.Size())

	require.NoError(t, Verify(context.Background(), strings.NewReader(content), sig, &key.PublicKey))

	again, err := Sign(context.Background(), strings.NewReader(content), key)
	require.NoError(t, err)
	assert.NotEqual(t, sig, again, "PSS signatures are randomised")
	require.NoError(t, Verify(context.Background(), strings.NewReader(content), again, &key.PublicKey))
}

func TestVerifyRejects(t *testing.T) {
	key := testKey(t)
	sig, err := Sign(context.Background(), strings.NewReader("hello"), key)
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		sig     []byte
		key     *rsa.PublicKey
	}{
		{"changed content", "hellO", sig, &key.PublicKey},
		{"other key", "hello", sig, &testKey(t).PublicKey},
		{"flipped bit", "hello", append([]byte{sig[0] ^ 1}, sig[1:]...), &key.PublicKey},
		{"truncated", "hello", sig[:len(sig)-1], &key.PublicKey},
		{"empty", "hello", nil, &key.PublicKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(context.Background(), strings.NewReader(tt.content), tt.sig, tt.key)
			assert.ErrorIs(t, err, kerrors.ErrBadSignature)
		})
	}
}

func TestSignCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sign(ctx, bytes.NewReader([]byte("x")), testKey(t))
	assert.ErrorIs(t, err, kerrors.ErrCancelled)
}
