package errors

import (
	"errors"
	"fmt"
)

// Container errors indicate the input is not a usable encrypted container.
var (
	// ErrFormat indicates bad magic, an unsupported version, an unknown key-wrap type or a truncated header.
	ErrFormat = errors.New("not a valid encrypted container")

	// ErrCorruptData indicates padding validation failed after decryption.
	// In password mode this is the only signal of an incorrect password.
	ErrCorruptData = errors.New("invalid padding bytes")

	// ErrMissingChunk indicates a chunk file referenced by the manifest does not exist.
	ErrMissingChunk = errors.New("chunk file not found")

	// ErrIntegrity indicates a chunk file does not match the hash recorded in the manifest.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrInvalidChunkSize indicates a non-positive chunk size was requested.
	ErrInvalidChunkSize = errors.New("chunk size must be a positive number")

	// ErrFilenameTooLong indicates the encrypted filename does not fit the header length field.
	ErrFilenameTooLong = errors.New("filename too long for container header")
)

// Key errors indicate the supplied key material cannot open a container.
var (
	// ErrWrongKey indicates the selected private key could not unwrap the session key.
	ErrWrongKey = errors.New("selected key is not correct for this file")

	// ErrPassphrase indicates the private key could not be loaded with the supplied passphrase.
	ErrPassphrase = errors.New("incorrect passphrase")

	// ErrPassphraseRequired indicates the private key is protected but no passphrase was given.
	// It matches ErrPassphrase under errors.Is.
	ErrPassphraseRequired error = passphraseRequired{}

	// ErrNoPrivateKeys indicates hybrid decryption was attempted with no private keys available.
	ErrNoPrivateKeys = errors.New("no private keys in keyring")

	// ErrInvalidPrivateKey indicates the private key is malformed or unsupported.
	ErrInvalidPrivateKey = errors.New("invalid or unsupported private key format")

	// ErrInvalidPublicKey indicates the public key is malformed or not an RSA key.
	ErrInvalidPublicKey = errors.New("invalid or unsupported public key format")

	// ErrBadSignature indicates a signature does not match the file and public key.
	ErrBadSignature = errors.New("signature does not match")

	// ErrCancelled indicates the user declined to supply a password, passphrase or key.
	ErrCancelled = errors.New("cancelled")
)

// Keyring errors indicate issues with the local keyring file.
var (
	// ErrKeyringLocked indicates the keyring could not be decrypted with the master password.
	ErrKeyringLocked = errors.New("could not decrypt keyring, master password may be incorrect")

	// ErrKeyringNotFound indicates no keyring file exists yet.
	ErrKeyringNotFound = errors.New("keyring not found")

	// ErrKeyringExists indicates a keyring file already exists.
	ErrKeyringExists = errors.New("keyring already exists")

	// ErrKeyNotFound indicates no key pair or contact carries the given name.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists indicates a key pair or contact with the given name already exists.
	ErrKeyExists = errors.New("key name already in use")

	// ErrInvalidKeySize indicates an RSA key size other than 2048, 3072 or 4096 bits.
	ErrInvalidKeySize = errors.New("unsupported RSA key size")
)

// Input errors indicate issues with files or text supplied by the user.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidDateFormat indicates a date filter is not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrInvalidArmor indicates secure text is not in a recognised format.
	ErrInvalidArmor = errors.New("input text format is not recognized")
)

type passphraseRequired struct{}

func (passphraseRequired) Error() string { return "passphrase required for private key" }

func (passphraseRequired) Is(target error) bool { return target == ErrPassphrase }

// Describe returns the message shown to the user for err. Known kinds get the
// prompt that tells the user what to do next; anything else is returned as-is.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "Invalid/unsupported file: " + err.Error()
	case errors.Is(err, ErrWrongKey):
		return "Selected key is not correct for this file."
	case errors.Is(err, ErrPassphraseRequired):
		return "This private key is protected. Enter its passphrase."
	case errors.Is(err, ErrPassphrase):
		return "Incorrect passphrase."
	case errors.Is(err, ErrCorruptData):
		return "Decryption failed: wrong password or corrupted data."
	case errors.Is(err, ErrMissingChunk), errors.Is(err, ErrIntegrity):
		return fmt.Sprintf("%s. The chunk set must be re-created from the original file.", upperFirst(err.Error()))
	case errors.Is(err, ErrBadSignature):
		return "INVALID: Signature does not match!"
	case errors.Is(err, ErrNoPrivateKeys):
		return "No private keys in keyring."
	case errors.Is(err, ErrKeyringLocked):
		return "Could not unlock keyring. Master password may be incorrect."
	case errors.Is(err, ErrKeyringNotFound):
		return "No keyring found. Create one with 'kete keys init'."
	case errors.Is(err, ErrCancelled):
		return "Operation cancelled."
	}
	return err.Error()
}

func upperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
