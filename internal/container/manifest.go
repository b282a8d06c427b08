package container

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"golang.org/x/sync/errgroup"
)

// hashWorkers bounds how many chunk files are hashed at once.
const hashWorkers = 4

// Manifest describes a split container. It carries the shared header and
// one SHA-256 per chunk file, in order.
type Manifest struct {
	OriginalFilename string   `json:"original_filename"`
	TotalSize        int64    `json:"total_size"`
	ChunkSize        int64    `json:"chunk_size"`
	ChunkHashes      []string `json:"chunk_hashes"`
	EncryptionHeader string   `json:"encryption_header"`
}

// PartName returns the file name of chunk i (0-based).
func PartName(originalFilename string, i int) string {
	return fmt.Sprintf("%s%s.part%03d", originalFilename, Extension, i+1)
}

// PartName returns the file name of chunk i (0-based).
func (m *Manifest) PartName(i int) string {
	return PartName(m.OriginalFilename, i)
}

// PartPath returns the path of chunk i (0-based) inside dir.
func (m *Manifest) PartPath(dir string, i int) string {
	return filepath.Join(dir, m.PartName(i))
}

// HeaderBytes decodes the base64 encryption header.
func (m *Manifest) HeaderBytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(m.EncryptionHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption_header is not valid base64: %v", kerrors.ErrFormat, err)
	}
	return b, nil
}

// Header parses the encryption header.
func (m *Manifest) Header() (*Header, error) {
	b, err := m.HeaderBytes()
	if err != nil {
		return nil, err
	}
	return ParseHeader(b)
}

// ContentIV returns the last IVSize bytes of the decoded header.
func (m *Manifest) ContentIV() ([]byte, error) {
	b, err := m.HeaderBytes()
	if err != nil {
		return nil, err
	}
	if len(b) < IVSize {
		return nil, fmt.Errorf("%w: encryption_header is %d bytes", kerrors.ErrFormat, len(b))
	}
	return b[len(b)-IVSize:], nil
}

// Validate checks the manifest is structurally usable. The original
// filename must be a bare file name so that chunk paths stay inside the
// manifest's directory.
func (m *Manifest) Validate() error {
	name := m.OriginalFilename
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: invalid original_filename %q", kerrors.ErrFormat, name)
	}
	if m.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d", kerrors.ErrFormat, m.ChunkSize)
	}
	if m.TotalSize < 0 {
		return fmt.Errorf("%w: total_size %d", kerrors.ErrFormat, m.TotalSize)
	}
	for i, h := range m.ChunkHashes {
		if b, err := hex.DecodeString(h); err != nil || len(b) != sha256.Size {
			return fmt.Errorf("%w: chunk hash %d is not a hex SHA-256", kerrors.ErrFormat, i+1)
		}
	}
	if _, err := m.Header(); err != nil {
		return err
	}
	return nil
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest at %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest is not valid JSON: %v", kerrors.ErrFormat, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteManifest writes m to dir/manifest.json. The file is written to a
// temporary name and renamed, so a reader never sees a partial manifest.
func WriteManifest(dir string, m *Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// OpenManifest recovers the session key from the manifest's header and
// checks the decrypted filename against the manifest.
func OpenManifest(m *Manifest, resolver KeyResolver) (*Opened, error) {
	h, err := m.Header()
	if err != nil {
		return nil, err
	}
	opened, err := OpenHeader(h, resolver)
	if err != nil {
		return nil, err
	}
	if opened.OriginalFilename != m.OriginalFilename {
		return nil, fmt.Errorf("%w: manifest filename mismatch, the manifest might be corrupt", kerrors.ErrCorruptData)
	}
	return opened, nil
}

// VerifyChunks checks every chunk file listed in m exists in dir and
// matches its recorded SHA-256. All chunks are checked before it returns;
// when several fail, the error for the lowest-numbered chunk is reported.
//
// Returns ErrMissingChunk if a chunk file does not exist.
// Returns ErrIntegrity if a chunk file's hash does not match.
func VerifyChunks(ctx context.Context, m *Manifest, dir string) error {
	results := make([]error, len(m.ChunkHashes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hashWorkers)
	for i, want := range m.ChunkHashes {
		i, want := i, want
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = verifyChunk(m.PartPath(dir, i), m.PartName(i), want)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

func verifyChunk(path, name, want string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", kerrors.ErrMissingChunk, name)
		}
		return fmt.Errorf("failed to open chunk %s: %w", name, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.CopyBuffer(hasher, f, make([]byte, BufferSize)); err != nil {
		return fmt.Errorf("failed to read chunk %s: %w", name, err)
	}
	if hex.EncodeToString(hasher.Sum(nil)) != strings.ToLower(want) {
		return fmt.Errorf("%w for: %s", kerrors.ErrIntegrity, name)
	}
	return nil
}

// Reassemble verifies every chunk and then decrypts them, in order, into w.
// Nothing is written to w unless the full verification pass succeeds.
// It returns the number of plaintext bytes written.
//
// Chunks are reopened for decryption after the pass, so a chunk replaced in
// between is not re-hashed. A replaced chunk is only caught by padding if
// it is the last one; otherwise it decrypts to garbage. Verification guards
// against damaged or partial chunk sets, not against concurrent tampering.
func Reassemble(ctx context.Context, m *Manifest, dir string, key []byte, w io.Writer, progress ProgressFunc) (int64, error) {
	if err := VerifyChunks(ctx, m, dir); err != nil {
		return 0, err
	}

	iv, err := m.ContentIV()
	if err != nil {
		return 0, err
	}
	dw, err := NewDecryptWriter(w, key, iv)
	if err != nil {
		return 0, err
	}

	pc := newProgressCounter(progress, m.TotalSize, 0)
	for i := range m.ChunkHashes {
		if err := copyPart(ctx, dw, m.PartPath(dir, i), pc); err != nil {
			return dw.Written(), fmt.Errorf("failed to decrypt chunk %s: %w", m.PartName(i), err)
		}
	}
	if err := dw.Close(); err != nil {
		return dw.Written(), err
	}
	return dw.Written(), nil
}

func copyPart(ctx context.Context, dst io.Writer, path string, pc *progressCounter) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = copyBlocksCounted(ctx, dst, f, pc)
	return err
}

// writeFileAtomic writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
