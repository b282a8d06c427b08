package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/google/uuid"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// Inputs are the plaintext files, already resolved.
	Inputs []string

	// Password selects password mode.
	Password string

	// RecipientKey selects key pair mode; it is the recipient's public key PEM.
	RecipientKey []byte

	// Recipient is the recipient's keyring name, recorded in the audit log.
	Recipient string

	// Output is the container path for a single input, or a directory for
	// several inputs and for split output. Empty means next to each input.
	Output string

	// ChunkSize splits each container into parts of this many bytes when positive.
	ChunkSize int64
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// Outputs lists the .enc files, or the manifests for split output, in input order.
	Outputs []string

	Mode   container.WrapType
	Chunks int
	Bytes  int64

	// Orphans lists the parts a failed split left behind without a manifest.
	Orphans []string
}

func (o EncryptOptions) keyMaterial() (container.KeyMaterial, error) {
	switch {
	case o.Password != "" && len(o.RecipientKey) > 0:
		return container.KeyMaterial{}, fmt.Errorf("use either a password or a recipient, not both")
	case o.Password != "":
		return container.Password(o.Password), nil
	case len(o.RecipientKey) > 0:
		return container.Recipient(o.RecipientKey), nil
	}
	return container.KeyMaterial{}, fmt.Errorf("a password or a recipient is required")
}

// Encrypt encrypts every input into its own container.
//
// Each single-file container is written to a temporary file and renamed
// into place, so a failed or cancelled run leaves no half-written .enc.
// Split output writes parts as it goes and the manifest last; parts from a
// failed run stay in place without a manifest.
//
// Returns ErrNoFilesFound if there are no inputs.
// Returns ErrInvalidChunkSize if ChunkSize is negative.
// Returns ErrInvalidPublicKey if RecipientKey is not an RSA public key.
func Encrypt(ctx context.Context, opts EncryptOptions, progress container.ProgressFunc) (*EncryptResult, error) {
	entry := audit.LogWithUser("encrypt")
	entry.JobID = jobID(ctx)
	result, err := encrypt(ctx, opts, progress)

	entry.Inputs = opts.Inputs
	entry.Recipient = opts.Recipient
	if result != nil {
		entry.Mode = result.Mode.String()
		entry.Outputs = append(append([]string(nil), result.Outputs...), result.Orphans...)
		entry.Chunks = result.Chunks
		entry.Bytes = result.Bytes
	}
	if err != nil {
		entry.Error = err.Error()
	}
	audit.Log(entry)

	return result, err
}

func encrypt(ctx context.Context, opts EncryptOptions, progress container.ProgressFunc) (*EncryptResult, error) {
	if len(opts.Inputs) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	if opts.ChunkSize < 0 {
		return nil, kerrors.ErrInvalidChunkSize
	}
	km, err := opts.keyMaterial()
	if err != nil {
		return nil, err
	}

	sizes := make([]int64, len(opts.Inputs))
	for i, in := range opts.Inputs {
		if sizes[i], err = fileSize(in); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", in, err)
		}
	}

	batch := len(opts.Inputs) > 1
	if opts.Output != "" && (batch || opts.ChunkSize > 0) {
		if err := os.MkdirAll(opts.Output, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	result := &EncryptResult{Mode: km.Mode()}
	bp := newBatchProgress(progress, sizes)
	for i, in := range opts.Inputs {
		fileProgress, finish := bp.file(sizes[i])

		var out string
		if opts.ChunkSize > 0 {
			dir := splitDir(opts.Output, in, batch)
			m, err := encryptSplit(ctx, in, dir, km, opts.ChunkSize, sizes[i], fileProgress)
			if err != nil {
				var incomplete *container.IncompleteSplitError
				if errors.As(err, &incomplete) {
					result.Orphans = incomplete.Parts
				}
				return result, fmt.Errorf("failed to encrypt %s: %w", in, err)
			}
			out = filepath.Join(dir, container.ManifestName)
			result.Chunks += len(m.ChunkHashes)
		} else {
			out = containerPath(opts.Output, in, batch)
			if err := encryptFile(ctx, in, out, km, sizes[i], fileProgress); err != nil {
				return result, fmt.Errorf("failed to encrypt %s: %w", in, err)
			}
		}
		finish()

		result.Outputs = append(result.Outputs, out)
		result.Bytes += sizes[i]
	}
	return result, nil
}

// containerPath is where a single-file container for in goes.
func containerPath(output, in string, batch bool) string {
	switch {
	case output == "":
		return filepath.Join(filepath.Dir(in), defaultContainerName())
	case batch || utils.IsDir(output):
		return filepath.Join(output, defaultContainerName())
	}
	return output
}

// splitDir is the directory the parts and manifest for in go to. Every
// split container needs a directory of its own for its manifest.
func splitDir(output, in string, batch bool) string {
	switch {
	case output == "":
		return filepath.Join(filepath.Dir(in), uuid.NewString())
	case batch:
		return filepath.Join(output, uuid.NewString())
	}
	return output
}

func encryptFile(ctx context.Context, in, out string, km container.KeyMaterial, size int64, progress container.ProgressFunc) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()

	return writeAtomic(out, 0644, func(w io.Writer) error {
		_, err := container.Encrypt(ctx, src, w, km, filepath.Base(in), size, progress)
		return err
	})
}

func encryptSplit(ctx context.Context, in, dir string, km container.KeyMaterial, chunkSize, size int64, progress container.ProgressFunc) (*container.Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if _, err := os.Stat(filepath.Join(dir, container.ManifestName)); err == nil {
		return nil, fmt.Errorf("%s already contains a %s", dir, container.ManifestName)
	}

	src, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	name := filepath.Base(in)
	h, sessionKey, err := container.EncodeHeader(km, name)
	if err != nil {
		return nil, err
	}
	return container.SplitEncrypt(ctx, src, h, sessionKey, container.SplitOptions{
		Dir:              dir,
		OriginalFilename: name,
		ChunkSize:        chunkSize,
		TotalSize:        size,
		Progress:         progress,
	})
}
