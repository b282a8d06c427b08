package container

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"testing"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyIV() ([]byte, []byte) {
	return bytes.Repeat([]byte{0x42}, KeySize), bytes.Repeat([]byte{0x24}, IVSize)
}

func TestStreamRoundTrip(t *testing.T) {
	key, iv := testKeyIV()
	for _, size := range []int{0, 1, 15, 16, 17, 4096, BufferSize, BufferSize + 3} {
		plain := bytes.Repeat([]byte("kete"), size/4+1)[:size]

		var ct bytes.Buffer
		err := EncryptStream(context.Background(), bytes.NewReader(plain), key, iv, int64(size), nil, func(b []byte) error {
			ct.Write(b)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, (size/aes.BlockSize+1)*aes.BlockSize, ct.Len(), "size %d", size)

		var out bytes.Buffer
		n, err := DecryptStream(context.Background(), &ct, key, iv, &out, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(size), n)
		assert.Equal(t, plain, out.Bytes())
	}
}

func TestEncryptWriterMatchesOneShot(t *testing.T) {
	key, iv := testKeyIV()
	plain := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 100)

	var streamed bytes.Buffer
	ew, err := NewEncryptWriter(&streamed, key, iv)
	require.NoError(t, err)
	for i := 0; i < len(plain); i += 7 {
		end := i + 7
		if end > len(plain) {
			end = len(plain)
		}
		_, err := ew.Write(plain[i:end])
		require.NoError(t, err)
	}
	require.NoError(t, ew.Close())

	oneShot, err := sealCBC(key, iv, plain)
	require.NoError(t, err)
	assert.Equal(t, oneShot, streamed.Bytes())
}

func TestDecryptWriterBadPadding(t *testing.T) {
	key, iv := testKeyIV()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	encryptRaw := func(plain []byte) []byte {
		out := make([]byte, len(plain))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)
		return out
	}

	badTails := map[string][]byte{
		"zero pad byte":     append(bytes.Repeat([]byte{'a'}, 15), 0x00),
		"pad byte too big":  append(bytes.Repeat([]byte{'a'}, 15), 0x11),
		"inconsistent pads": append(bytes.Repeat([]byte{'a'}, 13), 0x03, 0x02, 0x03),
	}
	for name, plain := range badTails {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := DecryptStream(context.Background(), bytes.NewReader(encryptRaw(plain)), key, iv, &out, 0, nil)
			assert.ErrorIs(t, err, kerrors.ErrCorruptData)
			assert.Zero(t, out.Len())
		})
	}
}

func TestDecryptStreamRaggedCiphertext(t *testing.T) {
	key, iv := testKeyIV()

	for _, n := range []int{0, 1, 17, 31} {
		_, err := DecryptStream(context.Background(), bytes.NewReader(make([]byte, n)), key, iv, &bytes.Buffer{}, 0, nil)
		assert.ErrorIs(t, err, kerrors.ErrCorruptData, "length %d", n)
	}
}

func TestStreamProgress(t *testing.T) {
	key, iv := testKeyIV()
	plain := make([]byte, 3*BufferSize)

	var seen []int
	err := EncryptStream(context.Background(), bytes.NewReader(plain), key, iv, int64(len(plain)), func(p int) {
		seen = append(seen, p)
	}, func([]byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []int{33, 66, 100}, seen)
}

func TestStreamProgressEmptyInput(t *testing.T) {
	key, iv := testKeyIV()

	var seen []int
	err := EncryptStream(context.Background(), bytes.NewReader(nil), key, iv, 0, func(p int) {
		seen = append(seen, p)
	}, func([]byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []int{100}, seen)
}

func TestStreamCancelled(t *testing.T) {
	key, iv := testKeyIV()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EncryptStream(ctx, bytes.NewReader([]byte("data")), key, iv, 4, nil, func([]byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
