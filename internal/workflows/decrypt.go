package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// Input is a .enc file or a chunk manifest.
	Input string

	// Output is the plaintext path, or a directory to put the recovered
	// filename in. Empty means the recovered filename next to Input.
	Output string

	// Force allows an explicit Output file to be overwritten.
	Force bool

	// Resolver supplies the password or private key.
	Resolver container.KeyResolver
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	Output           string
	OriginalFilename string
	Mode             container.WrapType
	Chunks           int
	Bytes            int64
}

// Decrypt recovers the plaintext of a single-file or split container.
//
// The header is opened before the output path is chosen, since the default
// name is the one recovered from it. For split containers every part is
// verified before any plaintext is written.
//
// Returns ErrFormat if Input is not a container.
// Returns ErrWrongKey, ErrPassphrase or ErrCorruptData if the key material is wrong.
// Returns ErrMissingChunk or ErrIntegrity if a part is missing or altered.
func Decrypt(ctx context.Context, opts DecryptOptions, progress container.ProgressFunc) (*DecryptResult, error) {
	entry := audit.LogWithUser("decrypt")
	entry.JobID = jobID(ctx)
	entry.Inputs = []string{opts.Input}

	var (
		result *DecryptResult
		err    error
	)
	if isManifest(opts.Input) {
		result, err = decryptSplit(ctx, opts, progress)
	} else {
		result, err = decryptFile(ctx, opts, progress)
	}

	if result != nil {
		entry.Mode = result.Mode.String()
		entry.Chunks = result.Chunks
		entry.Bytes = result.Bytes
		if result.Output != "" {
			entry.Outputs = []string{result.Output}
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)

	return result, err
}

func decryptFile(ctx context.Context, opts DecryptOptions, progress container.ProgressFunc) (*DecryptResult, error) {
	src, err := os.Open(opts.Input)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, err
	}

	opened, err := container.DecodeHeader(src, opts.Resolver)
	if err != nil {
		return nil, err
	}
	result := &DecryptResult{OriginalFilename: opened.OriginalFilename, Mode: opened.Header.WrapType}

	if result.Output, err = decryptedPath(opts.Output, filepath.Dir(opts.Input), opened.OriginalFilename, opts.Force, []string{opts.Input}); err != nil {
		return result, err
	}

	out := &lazyFile{path: result.Output, perm: 0600}
	n, err := container.DecryptStream(ctx, src, opened.SessionKey, opened.ContentIV, out, info.Size()-int64(opened.HeaderLen), progress)
	result.Bytes = n
	if err != nil {
		out.abort()
		if out.f == nil {
			result.Output = ""
		}
		return result, err
	}
	if err := out.Close(); err != nil {
		return result, fmt.Errorf("failed to write %s: %w", result.Output, err)
	}
	return result, nil
}

func decryptSplit(ctx context.Context, opts DecryptOptions, progress container.ProgressFunc) (*DecryptResult, error) {
	m, err := container.LoadManifest(opts.Input)
	if err != nil {
		return nil, err
	}
	opened, err := container.OpenManifest(m, opts.Resolver)
	if err != nil {
		return nil, err
	}
	result := &DecryptResult{
		OriginalFilename: opened.OriginalFilename,
		Mode:             opened.Header.WrapType,
		Chunks:           len(m.ChunkHashes),
	}

	dir := filepath.Dir(opts.Input)
	inputs := []string{opts.Input}
	for i := range m.ChunkHashes {
		inputs = append(inputs, m.PartPath(dir, i))
	}
	if result.Output, err = decryptedPath(opts.Output, dir, opened.OriginalFilename, opts.Force, inputs); err != nil {
		return result, err
	}

	out := &lazyFile{path: result.Output, perm: 0600}
	n, err := container.Reassemble(ctx, m, dir, opened.SessionKey, out, progress)
	result.Bytes = n
	if err != nil {
		out.abort()
		if out.f == nil {
			result.Output = ""
		}
		return result, err
	}
	if err := out.Close(); err != nil {
		return result, fmt.Errorf("failed to write %s: %w", result.Output, err)
	}
	return result, nil
}
