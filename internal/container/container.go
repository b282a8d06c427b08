package container

import (
	"context"
	"fmt"
	"io"
)

// Encrypt writes a complete single-file container to w: a fresh header for
// km and originalFilename followed by the ciphertext of r.
func Encrypt(ctx context.Context, r io.Reader, w io.Writer, km KeyMaterial, originalFilename string, total int64, progress ProgressFunc) (*Header, error) {
	h, sessionKey, err := EncodeHeader(km, originalFilename)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(h.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	ew, err := NewEncryptWriter(w, sessionKey, h.ContentIV)
	if err != nil {
		return nil, err
	}
	if _, err := copyBlocks(ctx, ew, r, total, progress); err != nil {
		return nil, err
	}
	if err := ew.Close(); err != nil {
		return nil, err
	}
	return h, nil
}

// Decrypt reads a single-file container from r, recovering the session key
// through resolver, and writes the plaintext to w. total is the container
// size and only drives progress. The header is opened completely before
// any content byte is read.
func Decrypt(ctx context.Context, r io.Reader, w io.Writer, resolver KeyResolver, total int64, progress ProgressFunc) (*Opened, int64, error) {
	opened, err := DecodeHeader(r, resolver)
	if err != nil {
		return nil, 0, err
	}
	n, err := DecryptStream(ctx, r, opened.SessionKey, opened.ContentIV, w, total-int64(opened.HeaderLen), progress)
	if err != nil {
		return opened, n, err
	}
	return opened, n, nil
}
