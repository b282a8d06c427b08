// Package workflows provides high-level orchestration for kete commands.
//
// Workflows coordinate the container, keyring, armor and audit packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// prompts, spinners and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Unlocks the keyring and builds a key resolver
//   - Starts the workflow as a Job and renders its events
//
// Workflows handle everything else:
//   - Resolving input files and output paths
//   - Encrypting, decrypting and verifying containers
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - Encrypt: one container per input, single file or split into parts
//   - Decrypt: recovers plaintext from a .enc file or a manifest
//   - Verify: checks every part of a split container against its hash
//   - Inspect: key-less view of a header
//   - InitKeyring, GenerateKey, ImportKey, AddContact, ListKeys, ExportKey, DeleteKey
//   - EncryptText, DecryptText: SECURE-TEXT blocks
//   - Log: filtered view of the audit log
//
// # Jobs
//
// Long operations run through Start, which executes them on their own
// goroutine and reports Progress events followed by one Done or Failed:
//
//	job := workflows.Start(ctx, func(ctx context.Context, p container.ProgressFunc) (workflows.Done, error) {
//	    res, err := workflows.Decrypt(ctx, opts, p)
//	    ...
//	})
//	for ev := range job.Events() { ... }
//
// Progress is never allowed to block the worker; a slow reader misses
// intermediate percentages but always gets the terminal event.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	_, err := workflows.Decrypt(ctx, opts, nil)
//	if errors.Is(err, kerrors.ErrIntegrity) {
//	    // The chunk set must be re-created.
//	}
package workflows
