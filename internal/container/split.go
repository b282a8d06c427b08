package container

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
)

// SplitWriter spreads ciphertext over numbered chunk files of exactly
// chunkSize bytes (the last one may be shorter) and hashes each one.
// A chunk file is created lazily when the first byte for it arrives, so a
// stream that ends on a chunk boundary never leaves an empty trailing chunk.
type SplitWriter struct {
	dir       string
	name      string
	chunkSize int64
	header    []byte

	part    *os.File
	partLen int64
	hasher  hash.Hash
	hashes  []string
	paths   []string
}

// NewSplitWriter prepares to write chunks of originalFilename into dir.
// header is recorded in the manifest only; it never enters a chunk.
func NewSplitWriter(dir, originalFilename string, chunkSize int64, header []byte) (*SplitWriter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", kerrors.ErrInvalidChunkSize, chunkSize)
	}
	if originalFilename == "" || filepath.Base(originalFilename) != originalFilename {
		return nil, fmt.Errorf("invalid original filename %q", originalFilename)
	}
	return &SplitWriter{
		dir:       dir,
		name:      originalFilename,
		chunkSize: chunkSize,
		header:    header,
	}, nil
}

func (s *SplitWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if s.part == nil {
			if err := s.openPart(); err != nil {
				return written, err
			}
		}
		room := s.chunkSize - s.partLen
		k := int64(len(p))
		if k > room {
			k = room
		}
		n, err := s.part.Write(p[:k])
		s.hasher.Write(p[:n])
		s.partLen += int64(n)
		written += n
		if err != nil {
			return written, err
		}
		p = p[k:]
		if s.partLen == s.chunkSize {
			if err := s.closePart(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (s *SplitWriter) openPart() error {
	path := filepath.Join(s.dir, PartName(s.name, len(s.hashes)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	s.part = f
	s.partLen = 0
	s.hasher = sha256.New()
	s.paths = append(s.paths, path)
	return nil
}

func (s *SplitWriter) closePart() error {
	err := s.part.Close()
	s.part = nil
	if err != nil {
		return fmt.Errorf("failed to close chunk file: %w", err)
	}
	s.hashes = append(s.hashes, hex.EncodeToString(s.hasher.Sum(nil)))
	return nil
}

// Paths lists the chunk files created so far.
func (s *SplitWriter) Paths() []string {
	return s.paths
}

// Finish closes the trailing chunk and writes the manifest. totalSize is
// the plaintext size recorded in the manifest.
func (s *SplitWriter) Finish(totalSize int64) (*Manifest, error) {
	if s.part != nil {
		if err := s.closePart(); err != nil {
			return nil, err
		}
	}
	m := &Manifest{
		OriginalFilename: s.name,
		TotalSize:        totalSize,
		ChunkSize:        s.chunkSize,
		ChunkHashes:      s.hashes,
		EncryptionHeader: base64.StdEncoding.EncodeToString(s.header),
	}
	if m.ChunkHashes == nil {
		m.ChunkHashes = []string{}
	}
	if _, err := WriteManifest(s.dir, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Abort closes any open chunk file without writing a manifest. Chunk files
// already written are left in place.
func (s *SplitWriter) Abort() {
	if s.part != nil {
		s.part.Close()
		s.part = nil
	}
}

// SplitOptions configures SplitEncrypt.
type SplitOptions struct {
	Dir              string
	OriginalFilename string
	ChunkSize        int64

	// TotalSize is the plaintext size; it is recorded in the manifest and drives progress.
	TotalSize int64
	Progress  ProgressFunc
}

// SplitEncrypt encrypts r under the opened header's session key and IV and
// writes the ciphertext as chunk files plus a manifest into opts.Dir.
// On failure the chunk files written so far are left in place, no
// manifest is written, and the error is an *IncompleteSplitError listing
// them.
func SplitEncrypt(ctx context.Context, r io.Reader, h *Header, sessionKey []byte, opts SplitOptions) (*Manifest, error) {
	sw, err := NewSplitWriter(opts.Dir, opts.OriginalFilename, opts.ChunkSize, h.Bytes())
	if err != nil {
		return nil, err
	}
	ew, err := NewEncryptWriter(sw, sessionKey, h.ContentIV)
	if err != nil {
		return nil, err
	}
	if _, err := copyBlocks(ctx, ew, r, opts.TotalSize, opts.Progress); err != nil {
		sw.Abort()
		return nil, &IncompleteSplitError{Parts: sw.Paths(), Err: err}
	}
	if err := ew.Close(); err != nil {
		sw.Abort()
		return nil, &IncompleteSplitError{Parts: sw.Paths(), Err: err}
	}
	m, err := sw.Finish(opts.TotalSize)
	if err != nil {
		return nil, &IncompleteSplitError{Parts: sw.Paths(), Err: err}
	}
	return m, nil
}

// IncompleteSplitError is returned by SplitEncrypt when it fails after
// creating chunk files. Parts lists them; they have no manifest.
type IncompleteSplitError struct {
	Parts []string
	Err   error
}

func (e *IncompleteSplitError) Error() string {
	return fmt.Sprintf("%v (%d chunk files left without a manifest)", e.Err, len(e.Parts))
}

func (e *IncompleteSplitError) Unwrap() error { return e.Err }
