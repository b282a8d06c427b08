package container

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// ProgressFunc receives the percentage (0-100) of input consumed so far.
// It is for display only.
type ProgressFunc func(percent int)

var errWriteAfterClose = errors.New("write after close")

// encryptWriter is a CBC encrypter with a streaming PKCS#7 padder: full
// blocks pass straight through on Write, the tail is padded once on Close.
type encryptWriter struct {
	w       io.Writer
	mode    cipher.BlockMode
	pending []byte
	out     []byte
	closed  bool
}

// NewEncryptWriter returns a writer that encrypts everything written to it
// with AES-256-CBC under key and iv and writes the ciphertext to w. Close
// must be called to emit the final padded block; it does not close w.
func NewEncryptWriter(w io.Writer, key, iv []byte) (io.WriteCloser, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid IV length: expected %d bytes, got %d bytes", IVSize, len(iv))
	}
	return &encryptWriter{w: w, mode: cipher.NewCBCEncrypter(block, iv)}, nil
}

func (e *encryptWriter) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errWriteAfterClose
	}
	e.pending = append(e.pending, p...)
	n := len(e.pending) - len(e.pending)%aes.BlockSize
	if n == 0 {
		return len(p), nil
	}
	if cap(e.out) < n {
		e.out = make([]byte, n)
	}
	out := e.out[:n]
	e.mode.CryptBlocks(out, e.pending[:n])
	if _, err := e.w.Write(out); err != nil {
		return 0, err
	}
	e.pending = append(e.pending[:0], e.pending[n:]...)
	return len(p), nil
}

func (e *encryptWriter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	final := pkcs7Pad(e.pending)
	e.mode.CryptBlocks(final, final)
	_, err := e.w.Write(final)
	return err
}

// decryptWriter is the mirror of encryptWriter. The last decrypted block is
// held back until Close because only then is it known to carry the padding.
type decryptWriter struct {
	w       io.Writer
	mode    cipher.BlockMode
	pending []byte
	held    []byte
	out     []byte
	written int64
	closed  bool
}

// DecryptWriter is an io.WriteCloser that also reports how many plaintext
// bytes it has passed on.
type DecryptWriter interface {
	io.WriteCloser
	Written() int64
}

// NewDecryptWriter returns a writer that decrypts AES-256-CBC ciphertext
// written to it and writes the plaintext to w. Close validates and strips
// the padding; it returns ErrCorruptData when the padding is invalid or the
// ciphertext is not a whole number of blocks. It does not close w.
func NewDecryptWriter(w io.Writer, key, iv []byte) (DecryptWriter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid IV length: expected %d bytes, got %d bytes", IVSize, len(iv))
	}
	return &decryptWriter{w: w, mode: cipher.NewCBCDecrypter(block, iv)}, nil
}

func (d *decryptWriter) Write(p []byte) (int, error) {
	if d.closed {
		return 0, errWriteAfterClose
	}
	d.pending = append(d.pending, p...)
	n := len(d.pending) - len(d.pending)%aes.BlockSize
	if n == 0 {
		return len(p), nil
	}
	if cap(d.out) < n {
		d.out = make([]byte, n)
	}
	out := d.out[:n]
	d.mode.CryptBlocks(out, d.pending[:n])
	d.pending = append(d.pending[:0], d.pending[n:]...)

	if err := d.emit(d.held); err != nil {
		return 0, err
	}
	if err := d.emit(out[:n-aes.BlockSize]); err != nil {
		return 0, err
	}
	d.held = append(d.held[:0], out[n-aes.BlockSize:]...)
	return len(p), nil
}

func (d *decryptWriter) emit(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	n, err := d.w.Write(b)
	d.written += int64(n)
	return err
}

func (d *decryptWriter) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if len(d.pending) != 0 {
		return fmt.Errorf("%w: ciphertext is not a multiple of the block length", kerrors.ErrCorruptData)
	}
	final, err := pkcs7Unpad(d.held)
	if err != nil {
		return err
	}
	return d.emit(final)
}

func (d *decryptWriter) Written() int64 {
	return d.written
}

// EncryptStream reads r in BufferSize blocks and calls emit with each piece
// of ciphertext, in order. Padding is applied once, after r is exhausted.
// total is the expected input size and only drives progress.
func EncryptStream(ctx context.Context, r io.Reader, key, iv []byte, total int64, progress ProgressFunc, emit func([]byte) error) error {
	ew, err := NewEncryptWriter(emitWriter(emit), key, iv)
	if err != nil {
		return err
	}
	if _, err := copyBlocks(ctx, ew, r, total, progress); err != nil {
		return err
	}
	return ew.Close()
}

// DecryptStream decrypts the content that follows a header and writes the
// plaintext to w, returning the number of plaintext bytes written.
// total is the expected ciphertext size and only drives progress.
func DecryptStream(ctx context.Context, r io.Reader, key, iv []byte, w io.Writer, total int64, progress ProgressFunc) (int64, error) {
	dw, err := NewDecryptWriter(w, key, iv)
	if err != nil {
		return 0, err
	}
	if _, err := copyBlocks(ctx, dw, r, total, progress); err != nil {
		return dw.Written(), err
	}
	if err := dw.Close(); err != nil {
		return dw.Written(), err
	}
	return dw.Written(), nil
}

type emitWriter func([]byte) error

func (f emitWriter) Write(p []byte) (int, error) {
	// The encrypter reuses its buffer, so hand out a copy.
	if err := f(append([]byte(nil), p...)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// progressCounter turns a running byte count into percentages and only
// reports when the value changes.
type progressCounter struct {
	fn    ProgressFunc
	total int64
	done  int64
	last  int
}

func newProgressCounter(fn ProgressFunc, total, done int64) *progressCounter {
	return &progressCounter{fn: fn, total: total, done: done, last: -1}
}

func (p *progressCounter) add(n int) {
	p.done += int64(n)
	if p.fn == nil {
		return
	}
	pct := 100
	if p.total > 0 {
		pct = int(p.done * 100 / p.total)
	}
	if pct > 100 {
		pct = 100
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
}

// copyBlocks copies src to dst in BufferSize reads, checking ctx between
// reads and reporting progress after each one.
func copyBlocks(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	return copyBlocksCounted(ctx, dst, src, newProgressCounter(progress, total, 0))
}

func copyBlocksCounted(ctx context.Context, dst io.Writer, src io.Reader, pc *progressCounter) (int64, error) {
	buf := make([]byte, BufferSize)
	var copied int64
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return copied, werr
			}
			copied += int64(n)
			pc.add(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if copied == 0 {
				pc.add(0)
			}
			return copied, nil
		}
		if err != nil {
			return copied, err
		}
	}
}
