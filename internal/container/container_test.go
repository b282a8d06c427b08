package container

import (
	"bytes"
	"context"
	"testing"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptPassword(t *testing.T) {
	plain := bytes.Repeat([]byte("secret payload "), 5000)

	var ct bytes.Buffer
	h, err := Encrypt(context.Background(), bytes.NewReader(plain), &ct, Password("correct-horse"), "payload.txt", int64(len(plain)), nil)
	require.NoError(t, err)
	assert.Equal(t, WrapSymmetric, h.WrapType)
	assert.False(t, bytes.Contains(ct.Bytes(), []byte("payload.txt")))

	total := int64(ct.Len())
	var out bytes.Buffer
	opened, n, err := Decrypt(context.Background(), &ct, &out, StaticResolver{Password: "correct-horse"}, total, nil)
	require.NoError(t, err)
	assert.Equal(t, "payload.txt", opened.OriginalFilename)
	assert.Equal(t, int64(len(plain)), n)
	assert.Equal(t, plain, out.Bytes())
}

func TestDecryptWrongPassword(t *testing.T) {
	var ct bytes.Buffer
	_, err := Encrypt(context.Background(), bytes.NewReader([]byte("hello")), &ct, Password("correct-horse"), "hello.txt", 5, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	_, _, err = Decrypt(context.Background(), &ct, &out, StaticResolver{Password: "battery-staple"}, 0, nil)
	assert.ErrorIs(t, err, kerrors.ErrCorruptData)
	assert.Zero(t, out.Len())
}

func TestEncryptDecryptHybrid(t *testing.T) {
	a, b := testKeys(t)
	plain := []byte("for your eyes only")

	var ct bytes.Buffer
	h, err := Encrypt(context.Background(), bytes.NewReader(plain), &ct, Recipient(publicPEM(t, a)), "eyes.txt", int64(len(plain)), nil)
	require.NoError(t, err)
	assert.Equal(t, WrapHybrid, h.WrapType)
	encrypted := ct.Bytes()

	var out bytes.Buffer
	opened, _, err := Decrypt(context.Background(), bytes.NewReader(encrypted), &out,
		StaticResolver{Keys: []PrivateKeyEntry{{Name: "me", PEM: privatePEM(t, a)}}}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "eyes.txt", opened.OriginalFilename)
	assert.Equal(t, plain, out.Bytes())

	out.Reset()
	_, _, err = Decrypt(context.Background(), bytes.NewReader(encrypted), &out,
		StaticResolver{Keys: []PrivateKeyEntry{{Name: "other", PEM: privatePEM(t, b)}}}, 0, nil)
	assert.ErrorIs(t, err, kerrors.ErrWrongKey)
	assert.Zero(t, out.Len())
}

func TestEncryptEmptyFile(t *testing.T) {
	var ct bytes.Buffer
	h, err := Encrypt(context.Background(), bytes.NewReader(nil), &ct, Password("pw"), "empty", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, h.Len()+IVSize, ct.Len())

	var out bytes.Buffer
	_, n, err := Decrypt(context.Background(), &ct, &out, StaticResolver{Password: "pw"}, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDecryptTruncatedContent(t *testing.T) {
	var ct bytes.Buffer
	_, err := Encrypt(context.Background(), bytes.NewReader(make([]byte, 100)), &ct, Password("pw"), "a", 100, nil)
	require.NoError(t, err)

	data := ct.Bytes()[:ct.Len()-5]
	_, _, err = Decrypt(context.Background(), bytes.NewReader(data), &bytes.Buffer{}, StaticResolver{Password: "pw"}, 0, nil)
	assert.ErrorIs(t, err, kerrors.ErrCorruptData)
}

func TestDecryptNotAContainer(t *testing.T) {
	_, _, err := Decrypt(context.Background(), bytes.NewReader([]byte("plain text file")), &bytes.Buffer{}, failingResolver{t}, 0, nil)
	assert.ErrorIs(t, err, kerrors.ErrFormat)
}
