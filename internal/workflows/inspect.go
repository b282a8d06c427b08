package workflows

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/kete/internal/container"
)

// InspectResult is the key-less view of a container.
type InspectResult struct {
	Path    string
	Chunked bool

	Version              byte
	Mode                 container.WrapType
	WrappedKeyLen        int
	EncryptedFilenameLen int
	HeaderLen            int

	// ContentSize is the ciphertext size of a single-file container.
	ContentSize int64

	// Set for split containers only; the manifest stores them in the clear.
	OriginalFilename string
	TotalSize        int64
	ChunkSize        int64
	Chunks           int
}

// Inspect reads a container header without unlocking it.
//
// Returns ErrFormat if path is not a container or manifest.
func Inspect(path string) (*InspectResult, error) {
	if isManifest(path) {
		return inspectManifest(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	h, err := container.ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	result := fromHeader(path, h)
	result.ContentSize = info.Size() - int64(result.HeaderLen)
	return result, nil
}

func inspectManifest(path string) (*InspectResult, error) {
	m, err := container.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	h, err := m.Header()
	if err != nil {
		return nil, err
	}

	result := fromHeader(path, h)
	result.Chunked = true
	result.OriginalFilename = m.OriginalFilename
	result.TotalSize = m.TotalSize
	result.ChunkSize = m.ChunkSize
	result.Chunks = len(m.ChunkHashes)
	return result, nil
}

func fromHeader(path string, h *container.Header) *InspectResult {
	return &InspectResult{
		Path:                 path,
		Version:              h.Version,
		Mode:                 h.WrapType,
		WrappedKeyLen:        len(h.WrappedKey),
		EncryptedFilenameLen: len(h.EncryptedFilename),
		HeaderLen:            h.Len(),
	}
}
