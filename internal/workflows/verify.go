package workflows

import (
	"context"
	"path/filepath"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
)

// VerifyResult describes a chunk set that passed verification.
type VerifyResult struct {
	Manifest         string
	OriginalFilename string
	Chunks           int
	TotalSize        int64
}

// Verify checks every part listed in a manifest against its SHA-256
// without any key material.
//
// Returns ErrFormat if the manifest is malformed.
// Returns ErrMissingChunk or ErrIntegrity for the lowest-numbered bad part.
func Verify(ctx context.Context, manifestPath string) (*VerifyResult, error) {
	entry := audit.LogWithUser("verify")
	entry.JobID = jobID(ctx)
	entry.Inputs = []string{manifestPath}

	result, err := verify(ctx, manifestPath)
	if result != nil {
		entry.Chunks = result.Chunks
	}
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)

	return result, err
}

func verify(ctx context.Context, manifestPath string) (*VerifyResult, error) {
	m, err := container.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	result := &VerifyResult{
		Manifest:         manifestPath,
		OriginalFilename: m.OriginalFilename,
		Chunks:           len(m.ChunkHashes),
		TotalSize:        m.TotalSize,
	}
	if err := container.VerifyChunks(ctx, m, filepath.Dir(manifestPath)); err != nil {
		return result, err
	}
	return result, nil
}
