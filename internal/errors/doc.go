// Package errors provides typed error values for the Kete toolkit.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. Several
// call sites must tell a wrong key from a wrong passphrase from a wrong
// password, because each needs a different prompt.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Container errors: the input is not a usable container (ErrFormat,
//     ErrCorruptData, ErrMissingChunk, ErrIntegrity)
//   - Key errors: the key material cannot open the container (ErrWrongKey,
//     ErrPassphrase, ErrPassphraseRequired, ErrNoPrivateKeys)
//   - Keyring errors: the local keyring file (ErrKeyringLocked, ErrKeyNotFound)
//   - Input errors: files or text supplied by the user (ErrNoFilesFound)
//
// # Usage
//
// Return errors from internal packages, wrapped with context:
//
//	return fmt.Errorf("%w: version %d", errors.ErrFormat, version)
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Decrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrPassphrase) {
//	    // Ask for the passphrase again
//	}
//
// Describe turns any of these into the message shown to the user.
package errors
